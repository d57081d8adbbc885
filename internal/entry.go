// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quire/internal/api"
	"github.com/starford/quire/internal/build"
	"github.com/starford/quire/internal/catalog"
	"github.com/starford/quire/internal/deploy"
	"github.com/starford/quire/internal/listing"
	"github.com/starford/quire/internal/mcpserver"
	"github.com/starford/quire/internal/postservice"
	"github.com/starford/quire/internal/render"
	"github.com/starford/quire/internal/sse"
	"github.com/starford/quire/internal/storage"
	"github.com/starford/quire/internal/templates"
	"github.com/starford/quire/internal/watch"
)

// site holds the opened build resources shared by every entry point.
type site struct {
	cfg       *Config
	logger    *slog.Logger
	pipeline  *build.Pipeline
	db        *catalog.DB
	artifacts storage.Provider
	deployer  deploy.Deployer

	// mu serialises builds: the watcher, the API and MCP may all trigger one.
	mu     sync.Mutex
	broker *sse.Broker
}

// open applies opts and prepares the pipeline and the catalog.
func open(opts ...Option) (*site, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		out := app.logOutput
		if out == nil {
			out = os.Stdout
		}
		logger = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
		slog.SetDefault(logger)
	}

	paths := cfg.Paths.PathConfig()
	logger.Info("Configuration loaded",
		slog.String("posts", paths.Posts),
		slog.String("public", paths.Public),
		slog.String("renderer", cfg.Renderer.Engine),
		slog.String("catalog_path", cfg.Catalog.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	renderer := app.renderer
	if renderer == nil {
		r, err := render.New(cfg.Renderer.Engine, cfg.Renderer.Command)
		if err != nil {
			return nil, err
		}
		renderer = r
	}
	deployer := app.deployer
	if deployer == nil {
		deployer = deploy.NewWrangler(cfg.Deploy.Command, paths.Public, cfg.Deploy.Project)
	}

	artifacts, err := storage.Open(paths.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("init artifacts: %w", err)
	}
	db, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}

	return &site{
		cfg:       cfg,
		logger:    logger,
		pipeline:  build.New(paths, renderer, templates.NewLoader(paths.Templates), cfg.Content.BuildOptions(), logger),
		db:        db,
		artifacts: artifacts,
		deployer:  deployer,
	}, nil
}

func (s *site) close() {
	if s.broker != nil {
		s.broker.Close()
	}
	if err := s.db.Close(); err != nil {
		s.logger.Warn("catalog close failed", slog.String("error", err.Error()))
	}
}

// rebuild runs the pipeline, refreshes the catalog and notifies preview
// clients. A nil Result means the build failed fatally.
func (s *site) rebuild(ctx context.Context) (*build.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuildLocked(ctx)
}

func (s *site) rebuildLocked(ctx context.Context) (*build.Result, error) {
	start := time.Now()
	res, err := s.pipeline.Run(ctx)
	if res == nil {
		s.logger.Error("build failed", slog.String("error", err.Error()))
		s.notify(sse.BuildSummary{Err: err})
		return nil, err
	}

	if up, del, syncErr := catalog.Sync(s.db, s.artifacts, s.logger); syncErr != nil {
		s.logger.Warn("catalog sync failed", slog.String("error", syncErr.Error()))
	} else {
		s.logger.Debug("catalog synced", slog.Int("upserted", up), slog.Int("deleted", del))
	}

	attrs := []any{
		slog.String("build_id", res.ID),
		slog.Int("posts", len(res.Posts)),
		slog.Int("rendered", len(res.Rendered)),
		slog.Int("pruned", len(res.Pruned)),
		slog.Int("processed", len(res.Processed)),
		slog.Duration("took", time.Since(start)),
	}
	if err != nil {
		s.logger.Warn("build finished with render failures", append(attrs, slog.String("error", err.Error()))...)
	} else {
		s.logger.Info("build finished", attrs...)
	}
	s.notify(sse.BuildSummary{ID: res.ID, Rendered: res.Rendered, Pruned: res.Pruned, Err: err})
	return res, err
}

func (s *site) notify(sum sse.BuildSummary) {
	if s.broker != nil {
		s.broker.PublishBuild(sum)
	}
}

// Build runs one full build followed by a catalog sync.
func Build(ctx context.Context, opts ...Option) error {
	s, err := open(opts...)
	if err != nil {
		return err
	}
	defer s.close()

	_, err = s.rebuild(ctx)
	return err
}

// Publish builds the site, removes every draft from the output, deploys it
// and rebuilds so the local output lists drafts again. The rebuild runs even
// when the deploy fails; the returned error carries the deploy failure.
func Publish(ctx context.Context, opts ...Option) error {
	s, err := open(opts...)
	if err != nil {
		return err
	}
	defer s.close()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, renderErr := s.rebuildLocked(ctx)
	if res == nil {
		return renderErr
	}

	paths := s.pipeline.Paths()
	if err := listing.RemoveDraftsFromIndex(paths); err != nil {
		return err
	}
	removed, err := listing.RemoveDraftArtifacts(paths)
	if err != nil {
		return err
	}
	s.logger.Info("drafts removed", slog.Int("files", len(removed)))

	s.logger.Info("Deploying", slog.String("stage", "Deploying"))
	deployErr := s.deployer.Deploy(ctx)
	if deployErr != nil {
		s.logger.Error("deploy failed", slog.String("error", deployErr.Error()))
	} else {
		s.logger.Info("deploy finished")
	}

	if _, err := s.rebuildLocked(ctx); err != nil {
		return errors.Join(deployErr, err)
	}
	return errors.Join(renderErr, deployErr)
}

// Serve builds the site and serves it with the preview API, rebuilding on
// source changes until ctx is cancelled or a shutdown signal arrives.
func Serve(ctx context.Context, opts ...Option) error {
	s, err := open(opts...)
	if err != nil {
		return err
	}
	defer s.close()

	cfg := s.cfg
	logger := s.logger
	paths := s.pipeline.Paths()

	s.broker = sse.NewBroker(time.Second)

	// A broken source must not keep the preview from starting.
	if _, err := s.rebuild(ctx); err != nil {
		logger.Warn("initial build failed", slog.String("error", err.Error()))
	}

	svc := postservice.NewService(s.db, s.artifacts, s.rebuild)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, s.broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)
	r.Handle("/*", api.NewSiteHandler(paths.Public))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Rebuild on source and template changes.
	g.Go(func() error {
		return watch.Watch(gCtx, watch.Options{
			Dirs:   []string{paths.Posts, paths.Pages, paths.Templates},
			Ignore: cfg.Content.Exclude,
		}, logger, func(changed []string) {
			logger.Info("sources changed", slog.Int("files", len(changed)))
			_, _ = s.rebuild(gCtx)
		})
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Close the broker first so open event streams return.
		s.broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the errgroup context once shutdown starts so the
// watcher stops too.
var errShutdown = errors.New("shutdown")

// ServeMCP builds the site and serves the MCP tools on stdin/stdout.
// Logs must not go to stdout in this mode; pass WithLogOutput(os.Stderr).
func ServeMCP(ctx context.Context, opts ...Option) error {
	s, err := open(opts...)
	if err != nil {
		return err
	}
	defer s.close()

	if _, err := s.rebuild(ctx); err != nil {
		s.logger.Warn("initial build failed", slog.String("error", err.Error()))
	}

	posts, err := storage.Open(s.pipeline.Paths().Posts)
	if err != nil {
		return fmt.Errorf("init posts: %w", err)
	}
	svc := postservice.NewService(s.db, s.artifacts, s.rebuild)
	return mcpserver.New(svc, posts).ServeStdio()
}
