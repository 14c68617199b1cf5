package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/minima/internal/config"
	"github.com/conneroisu/minima/internal/testutils"
	"github.com/conneroisu/minima/internal/watcher"
)

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	s, err := New(cfg, nil)
	require.NoError(t, err)
	return s
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNewWithMissingFixture(t *testing.T) {
	cfg := testutils.TestConfig(t)
	cfg.Theme.Fixture = filepath.Join(t.TempDir(), "missing.yml")

	_, err := New(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading fixture")
}

func TestHandlePage(t *testing.T) {
	s := newTestServer(t, testutils.TestConfig(t))
	h := s.Handler()

	rec := get(t, h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "IE=edge,chrome=1", rec.Header().Get("X-UA-Compatible"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))

	body := rec.Body.String()
	assert.Contains(t, body, "<title>Minima | A minimal theme</title>")
	assert.Contains(t, body, `new WebSocket(protocol + "//" + location.host + "/ws")`)
	assert.Less(t, strings.Index(body, "new WebSocket"), strings.Index(body, "</body>"))
}

func TestHandlePagePaging(t *testing.T) {
	s := newTestServer(t, testutils.TestConfig(t))
	h := s.Handler()

	rec := get(t, h, "/articles?page=2")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<ul class="pager inline">`)
	assert.Contains(t, body, `aria-current="page"`)
	assert.Contains(t, body, `href="/articles?page=1"`)
}

func TestHandlePageProductionOmitsReload(t *testing.T) {
	cfg := testutils.TestConfig(t)
	cfg.Server.Environment = "production"
	s := newTestServer(t, cfg)

	rec := get(t, s.Handler(), "/about")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "WebSocket")
}

func TestHandlePageErrors(t *testing.T) {
	cfg := testutils.TestConfig(t)
	cfg.Theme.Root = testutils.CreateTempTheme(t)
	testutils.WriteFile(t, cfg.Theme.Root, ".env", "DB_PASSWORD=hunter2\n")
	testutils.WriteFile(t, cfg.Theme.Root, ".minima.yml", "server:\n  port: 9999\n")
	testutils.WriteFile(t, cfg.Theme.Root, filepath.Join(".git", "logo.png"), "png")
	testutils.WriteFile(t, cfg.Theme.Root, "site.yml", "site: {}\n")
	testutils.WriteFile(t, cfg.Theme.Root, "notes.txt", "private")
	s := newTestServer(t, cfg)
	h := s.Handler()

	tests := []struct {
		name   string
		method string
		target string
		status int
		body   string
	}{
		{"missing page", http.MethodGet, "/missing", http.StatusNotFound, "Not Found"},
		{"theme asset", http.MethodGet, "/logo.png", http.StatusOK, "png"},
		{"theme stylesheet", http.MethodGet, "/css/minima.css", http.StatusOK, "margin"},
		{"theme directory", http.MethodGet, "/css", http.StatusNotFound, "Not Found"},
		{"dotenv", http.MethodGet, "/.env", http.StatusNotFound, "Not Found"},
		{"dot config", http.MethodGet, "/.minima.yml", http.StatusNotFound, "Not Found"},
		{"asset in hidden directory", http.MethodGet, "/.git/logo.png", http.StatusNotFound, "Not Found"},
		{"fixture file", http.MethodGet, "/site.yml", http.StatusNotFound, "Not Found"},
		{"non asset file", http.MethodGet, "/notes.txt", http.StatusNotFound, "Not Found"},
		{"wrong method", http.MethodPost, "/", http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
			assert.NotContains(t, rec.Body.String(), "hunter2")
			assert.NotContains(t, rec.Body.String(), "private")
		})
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, testutils.TestConfig(t))
	h := s.Handler()
	require.Equal(t, http.StatusOK, get(t, h, "/").Code)

	rec := get(t, h, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var health struct {
		Status string `json:"status"`
		Site   struct {
			Name  string `json:"name"`
			Pages int    `json:"pages"`
		} `json:"site"`
		Clients int `json:"clients"`
		Render  struct {
			Samples int `json:"samples"`
		} `json:"render_ms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "Minima", health.Site.Name)
	assert.Positive(t, health.Site.Pages)
	assert.Zero(t, health.Clients)
	assert.Equal(t, 1, health.Render.Samples)
}

func TestReload(t *testing.T) {
	cfg := testutils.TestConfig(t)
	cfg.Theme.Fixture = testutils.WriteFixture(t, t.TempDir(), "First")
	s := newTestServer(t, cfg)
	h := s.Handler()
	ctx := context.Background()

	assert.Contains(t, get(t, h, "/").Body.String(), "<title>First</title>")
	assert.Equal(t, 1, s.renders.Size())

	testutils.WriteFixture(t, filepath.Dir(cfg.Theme.Fixture), "Second")
	require.NoError(t, s.Reload(ctx))
	assert.Zero(t, s.renders.Size())
	assert.Contains(t, get(t, h, "/").Body.String(), "<title>Second</title>")

	require.NoError(t, os.WriteFile(cfg.Theme.Fixture, []byte("site: [broken"), 0o644))
	require.Error(t, s.Reload(ctx))
	assert.Contains(t, get(t, h, "/").Body.String(), "<title>Second</title>")
}

func TestInjectReload(t *testing.T) {
	out := string(injectReload([]byte("<html><body><p>x</p></body></html>")))
	assert.True(t, strings.HasPrefix(out, "<html><body><p>x</p><script>"))
	assert.True(t, strings.HasSuffix(out, "</script>\n</body></html>"))

	bare := string(injectReload([]byte("<p>x</p>")))
	assert.True(t, strings.HasPrefix(bare, "<p>x</p><script>"))
}

func TestCheckOrigin(t *testing.T) {
	cfg := testutils.TestConfig(t)
	cfg.Server.AllowedOrigins = []string{"https://preview.example.com"}
	s := newTestServer(t, cfg)

	tests := []struct {
		origin string
		want   bool
	}{
		{"", false},
		{"http://example.com", true}, // same host as the request
		{"http://localhost:8080", true},
		{"https://preview.example.com", true},
		{"https://evil.example.com", false},
		{"file://example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, s.checkOrigin(r))
		})
	}

	assert.ElementsMatch(t,
		[]string{"localhost:8080", "127.0.0.1:8080", "preview.example.com"},
		s.originPatterns())
}

func TestWebSocketReload(t *testing.T) {
	s := newTestServer(t, testutils.TestConfig(t))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{ts.URL}},
	})
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return s.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.hub.Broadcast(ctx, UpdateMessage{Type: MessageReload, Target: "site.yml"})

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg UpdateMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, MessageReload, msg.Type)
	assert.Equal(t, "site.yml", msg.Target)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	s := newTestServer(t, testutils.TestConfig(t))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{"https://evil.example.com"}},
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, s.hub.Count())
}

func TestHubBroadcastAndClose(t *testing.T) {
	hub := NewHub(nil)
	ctx := context.Background()

	fast := &client{send: make(chan []byte, 1)}
	slow := &client{send: make(chan []byte)}
	require.True(t, hub.register(fast))
	require.True(t, hub.register(slow))

	hub.Broadcast(ctx, UpdateMessage{Type: MessageReload})
	assert.Equal(t, 1, hub.Count(), "client with a full buffer is dropped")
	assert.Contains(t, string(<-fast.send), `"type":"reload"`)

	_, open := <-slow.send
	assert.False(t, open)

	hub.Close()
	assert.Zero(t, hub.Count())
	assert.False(t, hub.register(&client{send: make(chan []byte, 1)}))
	// Unregistering an already removed client is a no-op.
	hub.unregister(fast)
}

func TestStartAndShutdown(t *testing.T) {
	cfg := testutils.TestConfig(t)
	cfg.Server.Host = "127.0.0.1"
	cfg.Theme.Watch = true
	cfg.Theme.Fixture = testutils.WriteFixture(t, t.TempDir(), "Watched")
	s := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool {
		s.serverMutex.RLock()
		defer s.serverMutex.RUnlock()
		return s.httpServer != nil && s.watcher != nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Shutdown(context.Background()))
		}()
	}
	wg.Wait()
}

func TestFileChangeReloadsFixture(t *testing.T) {
	cfg := testutils.TestConfig(t)
	cfg.Theme.Fixture = testutils.WriteFixture(t, t.TempDir(), "Before")
	s := newTestServer(t, cfg)
	ctx := context.Background()

	testutils.WriteFixture(t, filepath.Dir(cfg.Theme.Fixture), "After")

	require.NoError(t, s.handleFileChange(ctx, nil))
	require.NoError(t, s.handleFileChange(ctx, []watcher.ChangeEvent{
		{Op: watcher.OpWrite, Path: filepath.Join(cfg.Theme.Root, "minima.css")},
	}))
	assert.Equal(t, "Before", s.Builder().Fixture().Site.Name, "assets do not reload the fixture")

	require.NoError(t, s.handleFileChange(ctx, []watcher.ChangeEvent{
		{Op: watcher.OpWrite, Path: cfg.Theme.Fixture},
	}))
	assert.Equal(t, "After", s.Builder().Fixture().Site.Name)
}
