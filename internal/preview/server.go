// Package preview serves the document as the export would render it, with a
// websocket feed that reloads the page whenever the document changes.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"genesis/internal/domain"
	"genesis/internal/export"
)

// Source is what the preview reads from.
type Source interface {
	Document() domain.Document
	Assets() map[string]domain.ImageAsset
	ImageByFilename(filename string) ([]byte, string, error)
}

const reloadScript = `<script>
(function () {
  var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
  ws.onmessage = function (m) {
    var ev = JSON.parse(m.data).event;
    if (ev === "document:changed" || ev === "asset:ready") location.reload();
  };
})();
</script>
`

type Server struct {
	src     Source
	hub     *Hub
	metrics http.Handler
	logger  *slog.Logger
}

// Options configures a Server. Metrics, when nil, leaves /metrics unrouted.
type Options struct {
	Hub     *Hub
	Metrics http.Handler
	Logger  *slog.Logger
}

func New(src Source, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hub := opts.Hub
	if hub == nil {
		hub = NewHub(logger)
	}
	return &Server{src: src, hub: hub, metrics: opts.Metrics, logger: logger}
}

// Hub returns the event feed, to be registered as an emitter.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /style.css", s.handleStyle)
	mux.HandleFunc("GET /images/{filename}", s.handleImage)
	mux.Handle("GET /ws", s.hub)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// previewTemplate is the active template, or landing when none is chosen so
// every block stays visible while editing.
func previewTemplate(doc domain.Document) domain.Template {
	if doc.ActiveTemplate == domain.TemplateNone {
		return domain.TemplateLanding
	}
	return doc.ActiveTemplate
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	doc := s.src.Document()
	blocks := export.RewriteImagePaths(doc.Blocks, s.src.Assets())
	page, _, err := export.Page(blocks, previewTemplate(doc), doc.GlobalStyles)
	if err != nil {
		s.logger.Error("render preview", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if i := strings.LastIndex(page, "</body>"); i >= 0 {
		page = page[:i] + reloadScript + page[i:]
	} else {
		page += reloadScript
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	fmt.Fprint(w, page)
}

func (s *Server) handleStyle(w http.ResponseWriter, r *http.Request) {
	css, err := export.Stylesheet(previewTemplate(s.src.Document()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	fmt.Fprint(w, css)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	data, mime, err := s.src.ImageByFilename(r.PathValue("filename"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Write(data)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("preview listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve preview: %w", err)
	}
	return nil
}
