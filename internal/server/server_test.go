package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raainshe/animedash/internal/animeapi"
	"github.com/raainshe/animedash/internal/cache"
	"github.com/raainshe/animedash/internal/config"
	"github.com/raainshe/animedash/internal/core"
	"github.com/raainshe/animedash/internal/page"
	"github.com/raainshe/animedash/internal/render"
)

// fakeFiles serves one known file
type fakeFiles struct {
	requested string
	err       error
}

func (f *fakeFiles) OpenFile(ctx context.Context, name string) (*http.Response, error) {
	f.requested = name
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"video/mp4"}},
		Body:       io.NopCloser(strings.NewReader("video-bytes")),
	}, nil
}

type testEnv struct {
	server   *Server
	store    *page.Store
	views    *cache.CacheManager
	files    *fakeFiles
	renderer *render.HTMLRenderer
	http     *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	views, err := cache.Initialize(&config.CacheConfig{ViewTTL: time.Minute, CleanupInterval: time.Minute})
	require.NoError(t, err)

	store := page.New(render.InitialElements())
	files := &fakeFiles{}
	srv := New(&config.ServerConfig{Addr: "127.0.0.1:0", Metrics: true}, store, views, files)
	srv.StartLiveUpdates()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})

	return &testEnv{
		server:   srv,
		store:    store,
		views:    views,
		files:    files,
		renderer: render.NewHTMLRenderer(store),
		http:     ts,
	}
}

func sampleDashboard() *core.DashboardView {
	snapshot := animeapi.NewListSnapshot(animeapi.LibraryEntry{Name: "Frieren", TotalFiles: 12, TotalSizeMB: 2048})
	jobs := []animeapi.DownloadJob{{JobID: 1, AnimeTitle: "Frieren", Status: animeapi.StatusDownloading, Progress: 10}}
	return core.BuildDashboard(snapshot, jobs, time.Now())
}

func getDocument(t *testing.T, url string) *goquery.Document {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

func TestRootRedirectsToDashboard(t *testing.T) {
	env := newTestEnv(t)

	client := &http.Client{CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(env.http.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestDashboardPage_InitialState(t *testing.T) {
	env := newTestEnv(t)

	doc := getDocument(t, env.http.URL+"/dashboard")

	for _, id := range page.DashboardElements {
		assert.Equal(t, 1, doc.Find("#"+id).Length(), id)
	}
	assert.Equal(t, "0", doc.Find("#totalAnime").Text())
	assert.Equal(t, "0.00 GB", doc.Find("#totalSize").Text())
}

func TestDashboardPage_ShowsRenderedView(t *testing.T) {
	env := newTestEnv(t)
	env.renderer.RenderDashboard(sampleDashboard())

	doc := getDocument(t, env.http.URL+"/dashboard")

	assert.Equal(t, "1", doc.Find("#totalAnime").Text())
	assert.Equal(t, "12", doc.Find("#totalEpisodes").Text())
	assert.Equal(t, "2.00 GB", doc.Find("#totalSize").Text())
	assert.Equal(t, "1", doc.Find("#activeDownloads").Text())
	assert.Equal(t, "Frieren", doc.Find("#activeDownloadsList .job-title").Text())
	assert.Equal(t, 1, doc.Find("#recentList .anime-card").Length())
}

func TestLibraryPage(t *testing.T) {
	env := newTestEnv(t)
	env.renderer.RenderLibrary(nil, errors.New("backend down"))

	doc := getDocument(t, env.http.URL+"/library")

	assert.Equal(t, core.LibraryLoadFailure, doc.Find("#libraryContainer .empty-state").Text())
	assert.Equal(t, 0, doc.Find("#totalAnime").Length())
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.http.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestViewEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.views.Clear()

	resp, err := http.Get(env.http.URL + "/api/view/dashboard")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	env.views.RenderDashboard(sampleDashboard())

	resp, err = http.Get(env.http.URL + "/api/view/dashboard")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entry cache.DashboardEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entry))
	require.NotNil(t, entry.View)
	assert.Equal(t, 1, entry.View.ActiveCount)
	assert.Equal(t, "2.00 GB", entry.View.TotalSize)

	env.views.RenderLibrary(nil, errors.New("backend down"))

	resp2, err := http.Get(env.http.URL + "/api/view/library")
	require.NoError(t, err)
	defer resp2.Body.Close()

	var library cache.LibraryEntry
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&library))
	assert.Equal(t, core.LibraryLoadFailure, library.Error)
}

func TestDashboardViewEndpoint_ServesLastGoodViewPastTTL(t *testing.T) {
	views, err := cache.Initialize(&config.CacheConfig{ViewTTL: 20 * time.Millisecond, CleanupInterval: 10 * time.Millisecond})
	require.NoError(t, err)
	srv := New(&config.ServerConfig{Addr: "127.0.0.1:0"}, page.New(render.InitialElements()), views, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	views.RenderDashboard(sampleDashboard())

	fetch := func() cache.DashboardEntry {
		resp, err := http.Get(ts.URL + "/api/view/dashboard")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var entry cache.DashboardEntry
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&entry))
		return entry
	}

	assert.False(t, fetch().Stale)

	// Failed cycles publish nothing, the janitor runs several times meanwhile
	time.Sleep(60 * time.Millisecond)

	entry := fetch()
	assert.True(t, entry.Stale)
	require.NotNil(t, entry.View)
	assert.Equal(t, "2.00 GB", entry.View.TotalSize)
}

func TestDashboardViewEndpoint_EmptyFeedsAreArrays(t *testing.T) {
	env := newTestEnv(t)
	env.views.RenderDashboard(core.BuildDashboard(animeapi.NewListSnapshot(), nil, time.Now()))

	resp, err := http.Get(env.http.URL + "/api/view/dashboard")
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw struct {
		View map[string]json.RawMessage `json:"view"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.Equal(t, "[]", string(raw.View["recent"]))
	assert.Equal(t, "[]", string(raw.View["active_jobs"]))
}

func TestFileProxy(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.http.URL + "/api/download/file/Frieren%2001.mp4")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "video/mp4", resp.Header.Get("Content-Type"))
	assert.Equal(t, "video-bytes", string(body))
	assert.Equal(t, "Frieren 01.mp4", env.files.requested)

	resp2, err := http.Get(env.http.URL + "/api/download/file/a%2Fb.mp4")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, "a/b.mp4", env.files.requested)
}

func TestFileProxy_Errors(t *testing.T) {
	env := newTestEnv(t)

	env.files.err = &animeapi.StatusError{Path: "/api/download/file/x", Code: http.StatusNotFound}
	resp, err := http.Get(env.http.URL + "/api/download/file/x")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	env.files.err = errors.New("connection refused")
	resp, err = http.Get(env.http.URL + "/api/download/file/x")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	// Generate at least one instrumented request
	resp, err := http.Get(env.http.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(env.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `animedash_http_requests_total{method="GET",route="/healthz",status="200"}`)
}

func TestMetricsDisabled(t *testing.T) {
	views, err := cache.Initialize(&config.CacheConfig{ViewTTL: time.Minute, CleanupInterval: time.Minute})
	require.NoError(t, err)
	srv := New(&config.ServerConfig{Metrics: false}, page.New(nil), views, nil)

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/download/file/x", nil))
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readWSMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg wsMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestWebSocket_SnapshotThenUpdates(t *testing.T) {
	env := newTestEnv(t)
	conn := dialWS(t, env.http)

	initial := readWSMessage(t, conn)
	assert.Equal(t, messageElements, initial.Type)
	assert.Equal(t, "0", initial.Data[page.ElementTotalAnime])

	// Give the hub a moment to register the client
	time.Sleep(50 * time.Millisecond)
	env.renderer.RenderDashboard(sampleDashboard())

	update := readWSMessage(t, conn)
	assert.Equal(t, messageElements, update.Type)
	assert.Equal(t, "1", update.Data[page.ElementTotalAnime])
	assert.Len(t, update.Data, len(page.DashboardElements))
	assert.Greater(t, update.Version, initial.Version)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	views, err := cache.Initialize(&config.CacheConfig{ViewTTL: time.Minute, CleanupInterval: time.Minute})
	require.NoError(t, err)
	srv := New(&config.ServerConfig{Metrics: false}, page.New(render.InitialElements()), views, nil)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, listener) }()

	assert.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listener.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
