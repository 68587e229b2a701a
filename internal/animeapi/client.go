package animeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/raainshe/animedash/internal/logging"
	"github.com/raainshe/animedash/internal/metrics"
)

// Backend routes
const (
	PathLogin         = "/login"
	PathLogout        = "/logout"
	PathLibraryList   = "/api/library/list"
	PathDownloadList  = "/api/download/list"
	PathDownloadFile  = "/api/download/file/"
	maxErrorBodyBytes = 512
)

var (
	// ErrUnauthorized is returned when the backend bounces a request to its login page
	ErrUnauthorized = errors.New("backend session is not authenticated")
	// ErrInvalidCredentials is returned when a login attempt is rejected
	ErrInvalidCredentials = errors.New("backend rejected credentials")
)

// StatusError is returned for non-2xx responses
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Path, e.Code)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Path, e.Code, e.Body)
}

// Client represents an anime downloader backend API client
type Client struct {
	baseURL    *url.URL
	username   string
	password   string
	httpClient *http.Client
	cookieJar  http.CookieJar
	timeout    time.Duration
	logger     *logging.Logger

	loginMutex sync.Mutex
	loggedIn   bool
}

// ClientOption represents a configuration option for the backend client
type ClientOption func(*Client)

// WithTimeout sets the HTTP request timeout for the client. Zero disables it.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient sets a custom HTTP client. A missing cookie jar is filled in
// so session login keeps working.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient.Jar == nil {
			httpClient.Jar = c.cookieJar
		}
		c.httpClient = httpClient
	}
}

// NewClient creates a new backend API client. Username may be empty when the
// backend does not require a session.
func NewClient(baseURL, username, password string, options ...ClientOption) (*Client, error) {
	parsedURL, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, err
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}

	client := &Client{
		baseURL:  parsedURL,
		username: username,
		password: password,
		logger:   logging.GetAPILogger(),
	}

	// Create HTTP client with cookie jar for session management
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	client.httpClient = &http.Client{
		Timeout:   client.timeout,
		Jar:       jar,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	client.cookieJar = jar

	// Apply options
	for _, option := range options {
		option(client)
	}

	return client, nil
}

// BaseURL returns the backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Login authenticates with the backend. It is a no-op without credentials.
func (c *Client) Login(ctx context.Context) error {
	if c.username == "" {
		return nil
	}

	c.loginMutex.Lock()
	defer c.loginMutex.Unlock()

	err := c.login(ctx)
	logging.LogLogin(c.BaseURL(), c.username, err)
	c.loggedIn = err == nil
	return err
}

func (c *Client) login(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(PathLogin), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return &StatusError{Path: PathLogin, Code: resp.StatusCode}
	}

	// A successful login redirects away from the login page
	if isLoginPage(resp) {
		return ErrInvalidCredentials
	}
	return nil
}

// Logout ends the backend session
func (c *Client) Logout(ctx context.Context) error {
	if c.username == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(PathLogout), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	c.loginMutex.Lock()
	c.loggedIn = false
	c.loginMutex.Unlock()

	return nil
}

// IsAuthenticated reports whether the last login succeeded
func (c *Client) IsAuthenticated() bool {
	c.loginMutex.Lock()
	defer c.loginMutex.Unlock()
	return c.username == "" || c.loggedIn
}

// ListLibrary retrieves the library snapshot in whichever shape the backend sends
func (c *Client) ListLibrary(ctx context.Context) (LibrarySnapshot, error) {
	var snapshot LibrarySnapshot
	if err := c.getJSON(ctx, PathLibraryList, &snapshot); err != nil {
		return LibrarySnapshot{}, err
	}

	c.logger.WithFields(map[string]interface{}{
		"shape":   snapshot.Shape().String(),
		"entries": snapshot.Len(),
	}).Debug("Library snapshot retrieved")

	return snapshot, nil
}

// ListDownloads retrieves all download jobs
func (c *Client) ListDownloads(ctx context.Context) ([]DownloadJob, error) {
	var jobs []DownloadJob
	if err := c.getJSON(ctx, PathDownloadList, &jobs); err != nil {
		return nil, err
	}

	c.logger.WithField("jobs", len(jobs)).Debug("Download list retrieved")
	return jobs, nil
}

// FilePath returns the download route of a file relative to the backend root
func FilePath(name string) string {
	return PathDownloadFile + url.PathEscape(name)
}

// FileURL returns the absolute download URL of a file
func (c *Client) FileURL(name string) string {
	return c.endpoint(FilePath(name))
}

// OpenFile starts downloading a file. The caller must close the response body.
func (c *Client) OpenFile(ctx context.Context, name string) (*http.Response, error) {
	resp, err := c.get(ctx, FilePath(name))
	if errors.Is(err, ErrUnauthorized) && c.username != "" {
		if loginErr := c.Login(ctx); loginErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, loginErr)
		}
		resp, err = c.get(ctx, FilePath(name))
	}
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, statusError(FilePath(name), resp)
	}
	return resp, nil
}

// getJSON fetches path and decodes the body into v, logging in again once if
// the session has expired
func (c *Client) getJSON(ctx context.Context, path string, v interface{}) error {
	err := c.tryGetJSON(ctx, path, v)
	if !errors.Is(err, ErrUnauthorized) || c.username == "" {
		return err
	}

	c.logger.WithField("path", path).Info("Session expired, logging in again")
	if loginErr := c.Login(ctx); loginErr != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, loginErr)
	}
	return c.tryGetJSON(ctx, path, v)
}

func (c *Client) tryGetJSON(ctx context.Context, path string, v interface{}) (err error) {
	defer func() {
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = metrics.OutcomeFailure
		}
		metrics.BackendRequestsTotal.WithLabelValues(path, outcome).Inc()
	}()

	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(path, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%s: decode response: %w", path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", path, err)
	}

	if isLoginPage(resp) {
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrUnauthorized)
	}
	return resp, nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + path
}

// isLoginPage reports whether the response was served by the login route,
// either after a redirect or as a re-rendered login form
func isLoginPage(resp *http.Response) bool {
	return resp.Request != nil && resp.Request.URL != nil &&
		strings.TrimRight(resp.Request.URL.Path, "/") == PathLogin
}

func statusError(path string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	message := strings.TrimSpace(string(body))

	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		message = payload.Error
	}

	return &StatusError{Path: path, Code: resp.StatusCode, Body: message}
}
