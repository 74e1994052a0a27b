package preview

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/server/middleware"
)

// ShutdownTimeout bounds graceful server shutdown.
const ShutdownTimeout = 5 * time.Second

const scriptTag = `<script src="/livereload.js"></script>`

// ServerOptions configures a Server.
type ServerOptions struct {
	Addr       string
	// Root is the directory served at /.
	Root       string
	LiveReload bool

	// Metrics is served at /metrics when set.
	Metrics http.Handler
	// Status is reported by /healthz when set.
	Status  func() Status
	Logger  *slog.Logger
}

// Server serves the output tree.
type Server struct {
	opts ServerOptions
	hub  *Hub
	srv  *http.Server
	ln   net.Listener
}

// NewServer returns a Server. It does not listen until Start.
func NewServer(opts ServerOptions) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{opts: opts, hub: NewHub(opts.Logger)}
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Hub returns the live reload hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the routed handler wrapped in logging and panic recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.opts.Metrics != nil {
		mux.Handle("/metrics", s.opts.Metrics)
	}
	if s.opts.LiveReload {
		mux.Handle("/livereload", s.hub)
		mux.HandleFunc("/livereload.js", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
			_, _ = w.Write([]byte(Script))
		})
	}
	mux.Handle("/", s.siteHandler())

	chain := middleware.Chain(s.opts.Logger, ferrors.NewHTTPErrorAdapter(s.opts.Logger))
	return chain(mux)
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "listen").WithContext("addr", s.opts.Addr).Build()
	}
	s.ln = ln
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.opts.Logger.Error("preview server stopped", logfields.Error(err))
		}
	}()
	s.opts.Logger.Info("preview server listening", logfields.URL("http://"+ln.Addr().String()+"/"))
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Shutdown disconnects live reload clients and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Shutdown()
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown preview server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.opts.Status != nil {
		st := s.opts.Status()
		body["build"] = st
		if st.LastError != "" {
			body["status"] = "degraded"
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// siteHandler serves files from Root. With live reload on, HTML documents
// get the client script injected.
func (s *Server) siteHandler() http.Handler {
	files := http.FileServer(http.Dir(s.opts.Root))
	if !s.opts.LiveReload {
		return files
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, ok := s.htmlFile(r.URL.Path)
		if !ok {
			files.ServeHTTP(w, r)
			return
		}
		data, err := os.ReadFile(file) // #nosec G304 -- confined to the output root
		if err != nil {
			files.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(injectScript(data))
	})
}

// htmlFile maps a request path to an HTML file under Root.
func (s *Server) htmlFile(urlPath string) (string, bool) {
	clean := path.Clean("/" + urlPath)
	if strings.HasSuffix(urlPath, "/") {
		clean = path.Join(clean, "index.html")
	}
	if path.Ext(clean) != ".html" {
		return "", false
	}
	full := filepath.Join(s.opts.Root, filepath.FromSlash(clean))
	if fi, err := os.Stat(full); err != nil || fi.IsDir() {
		return "", false
	}
	return full, true
}

// injectScript places the live reload tag before </body>, or appends it.
func injectScript(page []byte) []byte {
	idx := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if idx < 0 {
		return append(page, scriptTag...)
	}
	out := make([]byte, 0, len(page)+len(scriptTag))
	out = append(out, page[:idx]...)
	out = append(out, scriptTag...)
	return append(out, page[idx:]...)
}
