// Package app wires storage, scheduling, syncing and the HTTP API into a
// running server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/conorfennell/recall/internal/api"
	"github.com/conorfennell/recall/internal/config"
	"github.com/conorfennell/recall/internal/srs"
	"github.com/conorfennell/recall/internal/storage"
	"github.com/conorfennell/recall/internal/study"
	"github.com/conorfennell/recall/internal/sync"
)

// NewLogger builds the process logger from the app config.
func NewLogger(cfg config.AppConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// App holds the long-lived services.
type App struct {
	cfg    *config.Config
	db     *storage.DB
	study  *study.Service
	syncer *sync.Syncer
	logger *slog.Logger
}

// New creates the services on top of an open database.
func New(cfg *config.Config, db *storage.DB, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		db:     db,
		study:  study.NewService(db, srs.New(), cfg.Study.StudyService(), logger),
		syncer: sync.NewSyncer(db, cfg.Sync.ReposDir, logger),
		logger: logger,
	}
}

// Syncer returns the source syncer.
func (a *App) Syncer() *sync.Syncer {
	return a.syncer
}

// Handler builds the root HTTP handler: health check and the API under /api.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.RequestLogger(a.logger))
	r.Use(middleware.Recoverer)

	// Health check endpoint (unauthenticated).
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := a.db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", api.NewRouter(api.NewHandler(a.db, a.study, a.syncer), a.cfg.Auth.Token))
	return r
}

// Run serves HTTP and, when configured, syncs sources periodically until ctx
// is cancelled. The server is then shut down gracefully.
func (a *App) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: a.cfg.HTTP.ReadTimeout,
		ReadTimeout:       a.cfg.HTTP.ReadTimeout,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if a.cfg.Sync.Interval > 0 {
		g.Go(func() error {
			a.syncLoop(gCtx, a.cfg.Sync.Interval)
			return nil
		})
	}

	g.Go(func() error {
		a.logger.Info("starting HTTP server", slog.String("address", a.cfg.HTTP.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("server stopped")
	return nil
}

func (a *App) syncLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.syncer.RunAll(ctx); err != nil && ctx.Err() == nil {
				a.logger.Warn("periodic sync finished with errors", slog.String("error", err.Error()))
			}
		}
	}
}
