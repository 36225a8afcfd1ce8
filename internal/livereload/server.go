// Package livereload serves the browser reload stream used during development.
package livereload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/starfederation/datastar-go/datastar"
	"golang.org/x/sync/errgroup"
)

// DefaultAddr is the conventional live reload address.
const DefaultAddr = "localhost:35729"

const reloadScript = "window.location.reload()"

// clientScript subscribes to the reload stream and runs the scripts the
// server patches in. It needs no client library.
const clientScript = `(function () {
  var src = document.currentScript && document.currentScript.src;
  var origin = src ? new URL(src).origin : "";
  var es = new EventSource(origin + "/reload");
  es.addEventListener("datastar-patch-elements", function (e) {
    var html = e.data.split("\n")
      .filter(function (l) { return l.indexOf("elements ") === 0; })
      .map(function (l) { return l.slice(9); })
      .join("\n");
    var tpl = document.createElement("template");
    tpl.innerHTML = html;
    tpl.content.querySelectorAll("script").forEach(function (s) {
      new Function(s.textContent)();
    });
  });
})();
`

// Config configures a Server.
type Config struct {
	// Addr is the listen address. Empty selects DefaultAddr.
	Addr   string
	Logger *slog.Logger
}

// Server pushes reload events to browsers over server-sent events.
type Server struct {
	addr     string
	logger   *slog.Logger
	notifier *notifier

	mu       sync.Mutex
	boundTo  string
	ready    chan struct{}
	listened bool
}

// New creates a server. It does not listen until Serve is called.
func New(cfg Config) *Server {
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		addr:     addr,
		logger:   logger,
		notifier: newNotifier(),
		ready:    make(chan struct{}),
	}
}

// Handler returns the router serving the client script and the streams.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(middleware.Recoverer, allowAnyOrigin)

	r.Get("/livereload.js", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write([]byte(clientScript))
	})

	r.Get("/reload", s.handleStream)

	hot := func(w http.ResponseWriter, _ *http.Request) {
		s.Reload("hotreload")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
	r.Get("/hotreload", hot)
	r.Post("/hotreload", hot)

	return r
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	ch := s.notifier.subscribe()
	defer s.notifier.unsubscribe(ch)

	sse := datastar.NewSSE(w, r)
	s.logger.Debug("reload client connected", "remote", r.RemoteAddr)

	for {
		select {
		case ev := <-ch:
			if err := sse.ExecuteScript(reloadScript); err != nil {
				s.logger.Debug("reload client gone", "remote", r.RemoteAddr, "error", err)
				return
			}
			s.logger.Debug("reload sent", "reason", ev.Reason)
		case <-r.Context().Done():
			return
		}
	}
}

func allowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

// Reload tells every connected browser to reload.
func (s *Server) Reload(reason string) {
	s.logger.Info("reloading browsers", "reason", reason, "clients", s.notifier.count())
	s.notifier.broadcast(Event{Reason: reason, At: time.Now()})
}

// Clients returns the number of connected reload streams.
func (s *Server) Clients() int {
	return s.notifier.count()
}

// Ready is closed once Serve is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address once listening, or the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.boundTo != "" {
		return s.boundTo
	}
	return s.addr
}

// Serve listens and blocks until ctx is cancelled, then shuts down within
// five seconds. Open streams end with ctx.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.listened {
		s.mu.Unlock()
		return errors.New("livereload: server already started")
	}
	s.listened = true
	s.mu.Unlock()

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.boundTo = ln.Addr().String()
	s.mu.Unlock()
	close(s.ready)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("live reload listening", "addr", "http://"+s.Addr())

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down live reload server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
