// Package server serves the themed site with live reload. Pages are built by
// a site.Builder that is swapped whenever the fixture changes on disk.
package server

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/conneroisu/minima/internal/config"
	"github.com/conneroisu/minima/internal/errors"
	"github.com/conneroisu/minima/internal/logging"
	"github.com/conneroisu/minima/internal/middleware"
	"github.com/conneroisu/minima/internal/performance"
	"github.com/conneroisu/minima/internal/security"
	"github.com/conneroisu/minima/internal/site"
	"github.com/conneroisu/minima/internal/watcher"
)

const (
	debounceDelay   = 300 * time.Millisecond
	shutdownTimeout = 5 * time.Second
)

// Server serves the pages of a fixture.
type Server struct {
	config    *config.Config
	logger    logging.Logger
	errors    *errors.ErrorHandler
	themeRoot fs.FS
	builder   atomic.Pointer[site.Builder]
	hub       *Hub
	origins   security.AllowList
	renders   *performance.PercentileCalculator

	watcher      *watcher.FileWatcher
	httpServer   *http.Server
	serverMutex  sync.RWMutex
	shutdownOnce sync.Once
}

// New creates a server for cfg and loads its fixture.
func New(cfg *config.Config, logger logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithComponent("server")

	policy := security.ForEnvironment(cfg.Server.Environment, cfg.Server.AllowedOrigins)
	s := &Server{
		config:    cfg,
		logger:    logger,
		errors:    errors.NewErrorHandler(logger),
		themeRoot: os.DirFS(cfg.Theme.Root),
		hub:       NewHub(logger),
		origins:   policy.AllowedOrigins,
		renders:   performance.NewPercentileCalculator(performance.DefaultWindow),
	}

	b, err := s.loadBuilder()
	if err != nil {
		return nil, err
	}
	s.builder.Store(b)
	return s, nil
}

// Builder returns the builder currently serving pages.
func (s *Server) Builder() *site.Builder {
	return s.builder.Load()
}

func (s *Server) loadBuilder() (*site.Builder, error) {
	fixture, err := site.LoadOrDefault(s.config.Theme.Fixture)
	if err != nil {
		return nil, fmt.Errorf("loading fixture: %w", err)
	}

	return site.NewBuilder(fixture, site.Options{
		ThemeRoot:    s.themeRoot,
		Pager:        s.config.PagerOptions(),
		ItemsPerPage: s.config.Pager.ItemsPerPage,
		Logger:       s.logger,
	}), nil
}

// Reload rebuilds the site from the fixture, resets the render timings and
// tells connected browsers to reload. An invalid fixture keeps the current site and is reported to the
// browsers instead.
func (s *Server) Reload(ctx context.Context) error {
	b, err := s.loadBuilder()
	if err != nil {
		s.logger.Warn(ctx, err, "Fixture reload failed, keeping previous site")
		s.hub.Broadcast(ctx, UpdateMessage{Type: MessageError, Content: err.Error()})
		return err
	}
	s.builder.Store(b)
	s.renders.Clear()
	s.logger.Info(ctx, "Fixture reloaded", "site", b.Fixture().Site.Name)
	s.hub.Broadcast(ctx, UpdateMessage{Type: MessageReload})
	return nil
}

// Handler returns the routes of the server wrapped in the middleware stack.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebSocket)
	r.PathPrefix("/").HandlerFunc(s.handlePage).Methods(http.MethodGet, http.MethodHead)

	return middleware.New(s.config, s.logger, s.origins).Then(r)
}

// Start serves until ctx is done or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	if s.config.Theme.Watch {
		if err := s.watch(ctx); err != nil {
			s.logger.Warn(ctx, err, "File watching disabled")
		}
	}

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, err, "Shutdown failed")
		}
	}()

	s.logger.Info(ctx, "Serving", "address", "http://"+server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (s *Server) watch(ctx context.Context) error {
	fw, err := watcher.NewFileWatcher(debounceDelay, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	fw.AddFilter(watcher.NoGitFilter)
	fw.AddFilter(watcher.NoTempFilter)
	fw.AddFilter(watcher.AnyFilter(watcher.YAMLFilter, watcher.AssetFilter))
	fw.AddHandler(func(events []watcher.ChangeEvent) error {
		return s.handleFileChange(ctx, events)
	})

	if s.config.Theme.Fixture != "" {
		if err := fw.AddPath(s.config.Theme.Fixture); err != nil {
			s.logger.Warn(ctx, err, "Failed to watch fixture", "path", s.config.Theme.Fixture)
		}
	}
	if err := fw.AddRecursive(s.config.Theme.Root); err != nil {
		s.logger.Warn(ctx, err, "Failed to watch theme root", "path", s.config.Theme.Root)
	}

	if err := fw.Start(ctx); err != nil {
		_ = fw.Stop()
		return err
	}

	s.serverMutex.Lock()
	s.watcher = fw
	s.serverMutex.Unlock()
	return nil
}

// handleFileChange reloads the fixture when a YAML file changed and only
// refreshes the browsers for asset changes.
func (s *Server) handleFileChange(ctx context.Context, events []watcher.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}
	for _, event := range events {
		s.logger.Debug(ctx, "File changed", "path", event.Path, "op", event.Op.String())
	}
	for _, event := range events {
		if watcher.YAMLFilter(event.Path) {
			return s.Reload(ctx)
		}
	}
	s.hub.Broadcast(ctx, UpdateMessage{Type: MessageReload, Target: events[0].Path})
	return nil
}

// Shutdown stops the watcher, disconnects live reload clients and shuts the
// HTTP server down. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		s.serverMutex.RLock()
		fw := s.watcher
		server := s.httpServer
		s.serverMutex.RUnlock()

		if fw != nil {
			if err := fw.Stop(); err != nil {
				s.logger.Warn(ctx, err, "Stopping file watcher")
			}
		}
		s.hub.Close()
		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})

	return shutdownErr
}
