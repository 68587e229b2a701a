package server

import (
	"bufio"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raainshe/animedash/internal/animeapi"
	"github.com/raainshe/animedash/internal/cache"
	"github.com/raainshe/animedash/internal/config"
	"github.com/raainshe/animedash/internal/logging"
	"github.com/raainshe/animedash/internal/metrics"
	"github.com/raainshe/animedash/internal/page"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	dashboardPage = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/dashboard.html"))
	libraryPage   = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/library.html"))
)

// FileOpener streams library files from the backend
type FileOpener interface {
	OpenFile(ctx context.Context, name string) (*http.Response, error)
}

// pageData is what the page templates render
type pageData struct {
	Title    string
	Elements map[string]template.HTML
}

// Server hosts the dashboard and library pages with live element updates
type Server struct {
	config *config.ServerConfig
	store  *page.Store
	views  *cache.CacheManager
	files  FileOpener
	hub    *wsHub
	router *mux.Router
	logger *logging.Logger
}

// New creates a server. files may be nil, in which case file downloads are unavailable.
func New(cfg *config.ServerConfig, store *page.Store, views *cache.CacheManager, files FileOpener) *Server {
	logger := logging.GetServerLogger()

	s := &Server{
		config: cfg,
		store:  store,
		views:  views,
		files:  files,
		hub:    newWSHub(logger),
		logger: logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.UseEncodedPath()
	r.Use(s.instrument)

	r.Handle("/", http.RedirectHandler("/dashboard", http.StatusFound)).Methods("GET")
	r.HandleFunc("/dashboard", s.dashboardHandler).Methods("GET")
	r.HandleFunc("/library", s.libraryHandler).Methods("GET")
	r.HandleFunc("/ws", s.wsHandler).Methods("GET")
	r.HandleFunc("/healthz", healthHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/view/dashboard", s.dashboardViewHandler).Methods("GET")
	api.HandleFunc("/view/library", s.libraryViewHandler).Methods("GET")
	api.HandleFunc("/download/file/{name}", s.fileHandler).Methods("GET")

	if s.config.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics.Register(reg)
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods("GET")
	}

	return r
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is cancelled
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	// Downloads and live updates are long-lived, so only headers are bounded
	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.StartLiveUpdates()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()

	s.logger.WithField("addr", listener.Addr().String()).Info("Server started")

	select {
	case err := <-errCh:
		s.hub.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	s.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// StartLiveUpdates starts the websocket hub and relays page store updates to it
func (s *Server) StartLiveUpdates() {
	updates, unsubscribe := s.store.Subscribe(16)
	go s.hub.run()
	go s.hub.forward(updates)
	go func() {
		<-s.hub.done
		unsubscribe()
	}()
}

// Close stops live updates
func (s *Server) Close() {
	s.hub.Close()
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, dashboardPage, "Dashboard")
}

func (s *Server) libraryHandler(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, libraryPage, "Library")
}

func (s *Server) renderPage(w http.ResponseWriter, tmpl *template.Template, title string) {
	snapshot := s.store.Snapshot()

	// Element content comes from the escaping fragment templates
	elements := make(map[string]template.HTML, len(snapshot.Elements))
	for id, html := range snapshot.Elements {
		elements[id] = template.HTML(html)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout", pageData{Title: title, Elements: elements}); err != nil {
		s.logger.WithError(err).WithField("page", title).Error("Failed to render page")
	}
}

func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Debug("WebSocket upgrade failed")
		return
	}

	client := &wsClient{hub: s.hub, conn: conn, send: make(chan []byte, 16)}

	// New clients start from the current page state
	if payload, err := encodeUpdate(s.store.Snapshot()); err == nil {
		client.send <- payload
	}

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (s *Server) dashboardViewHandler(w http.ResponseWriter, r *http.Request) {
	entry, found := s.views.GetDashboardView()
	if !found {
		writeError(w, http.StatusServiceUnavailable, "dashboard has not loaded yet")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) libraryViewHandler(w http.ResponseWriter, r *http.Request) {
	entry, found := s.views.GetLibraryView()
	if !found {
		writeError(w, http.StatusServiceUnavailable, "library has not loaded yet")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) fileHandler(w http.ResponseWriter, r *http.Request) {
	if s.files == nil {
		writeError(w, http.StatusNotImplemented, "file downloads are not available")
		return
	}

	name, err := url.PathUnescape(mux.Vars(r)["name"])
	if err != nil || name == "" {
		writeError(w, http.StatusBadRequest, "invalid file name")
		return
	}

	resp, err := s.files.OpenFile(r.Context(), name)
	if err != nil {
		var statusErr *animeapi.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		s.logger.WithError(err).WithField("file", name).Error("Failed to open file")
		writeError(w, http.StatusBadGateway, "failed to fetch file from backend")
		return
	}
	defer resp.Body.Close()

	for _, header := range []string{"Content-Type", "Content-Length", "Content-Disposition", "Last-Modified"} {
		if value := resp.Header.Get(header); value != "" {
			w.Header().Set(header, value)
		}
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, resp.Body); err != nil {
		s.logger.WithError(err).WithField("file", name).Debug("File transfer interrupted")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusRecorder captures the response status for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController reach the underlying writer
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack supports the websocket upgrade
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// Flush supports streamed downloads
func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(recorder.status)).Inc()
	})
}
