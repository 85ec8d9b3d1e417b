// Package server exposes the transform engine over HTTP: run ad-hoc or
// stored configs, browse datasets and their schemas, and validate or
// describe configs. Responses use the run envelope so clients handle
// success and failure uniformly.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/tableforge-labs/tableforge/internal/dataset"
	"github.com/tableforge-labs/tableforge/internal/pipeline"
)

// Server is the HTTP API server.
type Server struct {
	runner   *pipeline.Runner
	resolver dataset.Resolver
	store    *ConfigStore
	cache    *dataset.CachingResolver
	port     int
	watch    bool
	logger   *slog.Logger
}

// Config holds the server's dependencies and settings.
type Config struct {
	Runner   *pipeline.Runner
	Resolver dataset.Resolver
	Store    *ConfigStore
	// Cache, when set, is invalidated on config-dir changes.
	Cache  *dataset.CachingResolver
	Port   int
	Watch  bool
	Logger *slog.Logger
}

// NewServer creates the API server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		runner:   cfg.Runner,
		resolver: cfg.Resolver,
		store:    cfg.Store,
		cache:    cfg.Cache,
		port:     cfg.Port,
		watch:    cfg.Watch,
		logger:   logger,
	}
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting API server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		eg.Go(func() error {
			return s.watchConfigs(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down API server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Routes builds the router. Exposed for tests.
func (s *Server) Routes() http.Handler {
	r := chi.NewMux()
	r.Use(
		requestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/transform", s.handleTransform)
		r.Get("/configs", s.handleListConfigs)
		r.Route("/configs/{name}", func(r chi.Router) {
			r.Post("/run", s.handleRunConfig)
			r.Get("/describe", s.handleDescribeConfig)
			r.Get("/validate", s.handleValidateConfig)
		})
		r.Get("/datasets", s.handleListDatasets)
		r.Get("/datasets/{name}/schema", s.handleDatasetSchema)
	})
	return r
}

// watchConfigs reloads the config store when files in the configs directory
// change. Events are debounced; a burst of writes triggers one reload.
func (s *Server) watchConfigs(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.store.dir); err != nil {
		s.logger.Error("failed to watch configs directory", "error", err)
		// Don't fail - continue without watching
		return nil
	}

	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			ext := filepath.Ext(event.Name)
			if ext != ".yaml" && ext != ".yml" {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				s.logger.Debug("configs changed, reloading", "file", event.Name)
				if err := s.store.Reload(); err != nil {
					s.logger.Error("config reload failed", "error", err)
				}
				if s.cache != nil {
					s.cache.Invalidate("")
				}
			})

		case err := <-watcher.Errors:
			s.logger.Error("watcher error", "error", err)
		}
	}
}
