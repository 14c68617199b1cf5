package server

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/conneroisu/minima/internal/errors"
	"github.com/conneroisu/minima/internal/site"
	"github.com/conneroisu/minima/internal/version"
	"github.com/conneroisu/minima/internal/watcher"
)

// reloadScript reconnects to /ws and reloads the page on "reload" messages.
const reloadScript = `<script>
(function () {
  var protocol = location.protocol === "https:" ? "wss:" : "ws:";
  function connect() {
    var ws = new WebSocket(protocol + "//" + location.host + "/ws");
    ws.onmessage = function (event) {
      var message = JSON.parse(event.data);
      if (message.type === "reload") {
        location.reload();
      } else if (message.type === "error") {
        console.error("minima:", message.content);
      }
    };
    ws.onclose = function () { setTimeout(connect, 2000); };
  }
  connect();
})();
</script>
`

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	header := make(http.Header)
	start := time.Now()

	var buf bytes.Buffer
	err := s.builder.Load().Render(ctx, site.Request{
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: header,
	}, &buf)
	if err != nil {
		if errors.IsNotFound(err) && s.serveAsset(w, r) {
			return
		}
		s.errors.Handle(ctx, err)
		code := errors.StatusCode(err)
		http.Error(w, http.StatusText(code), code)
		return
	}

	s.renders.AddDuration(time.Since(start))

	for key, values := range header {
		w.Header()[key] = values
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	body := buf.Bytes()
	if !s.config.IsProduction() {
		body = injectReload(body)
	}
	if _, err := w.Write(body); err != nil {
		s.logger.Warn(ctx, err, "Writing response failed", "path", r.URL.Path)
	}
}

// serveAsset serves the theme asset at the request path, if there is one.
// Only stylesheets, scripts and images are served, and never from a hidden
// file or directory.
func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request) bool {
	name := strings.TrimPrefix(r.URL.Path, "/")
	if !fs.ValidPath(name) || name == "." || !watcher.AssetFilter(name) {
		return false
	}
	for _, segment := range strings.Split(name, "/") {
		if strings.HasPrefix(segment, ".") {
			return false
		}
	}
	info, err := fs.Stat(s.themeRoot, name)
	if err != nil || info.IsDir() {
		return false
	}
	http.ServeFileFS(w, r, s.themeRoot, name)
	return true
}

// injectReload inserts the live reload script before the closing body tag.
func injectReload(body []byte) []byte {
	i := bytes.LastIndex(body, []byte("</body>"))
	if i < 0 {
		return append(body, reloadScript...)
	}
	out := make([]byte, 0, len(body)+len(reloadScript))
	out = append(out, body[:i]...)
	out = append(out, reloadScript...)
	return append(out, body[i:]...)
}

// handleHealth returns the server health status for health checks
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	fixture := s.builder.Load().Fixture()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version.Current().Short(),
		"site": map[string]interface{}{
			"name":  fixture.Site.Name,
			"pages": len(fixture.Nodes),
		},
		"clients":   s.hub.Count(),
		"render_ms": s.renders.Summary(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to encode health response")
	}
}
