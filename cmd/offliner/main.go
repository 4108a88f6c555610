package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/razeware/offliner/internal/content"
	"github.com/razeware/offliner/internal/engine"
	"github.com/razeware/offliner/internal/engine/remote"
	"github.com/razeware/offliner/internal/jobs"
	"github.com/razeware/offliner/internal/metrics"
	"github.com/razeware/offliner/internal/reconciler"
	"github.com/razeware/offliner/internal/repo"
	"github.com/razeware/offliner/internal/router"
	"github.com/razeware/offliner/internal/service"
	"github.com/razeware/offliner/internal/settings"
)

// verifyInterval is how often the entitlement check re-runs after the one at
// startup.
const verifyInterval = 7 * 24 * time.Hour

func main() {
	logger := newLogger()

	if err := run(logger); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	var w io.Writer = os.Stdout
	if path := os.Getenv("OFFLINER_LOG_FILE"); path != "" {
		w = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
	}
	return slog.New(slog.NewJSONHandler(w, nil))
}

func run(logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	metrics.Register()

	// Stores.
	var (
		downloads repo.DownloadRepo
		prefs     settings.Store
	)
	if os.Getenv("OFFLINER_STORE") == "memory" {
		logger.Warn("using in-memory stores; queue will not survive restarts")
		downloads = repo.NewInMemoryDownloadRepo()
		prefs = settings.NewInMemoryStore()
	} else {
		pg, err := repo.NewPostgresRepoFromEnv()
		if err != nil {
			return err
		}
		defer pg.Close()
		st, err := settings.NewPostgresStoreFromDB(pg.DB())
		if err != nil {
			return err
		}
		downloads = pg
		prefs = st
	}

	cc, err := content.NewClientFromEnv()
	if err != nil {
		return err
	}

	// Transfer engine. Without ENGINE_RPC_URL the service still serves its
	// API but nothing actually transfers.
	events := make(chan engine.Event, 64)
	var (
		eng      engine.Engine
		eventSrc engine.EventSource
	)
	if os.Getenv("ENGINE_RPC_URL") != "" {
		cl, err := remote.NewClientFromEnv()
		if err != nil {
			return err
		}
		adapter := remote.NewAdapter(cl, engine.NewChanReporter(events), logger)
		eng = adapter
		eventSrc = adapter
	} else {
		logger.Warn("ENGINE_RPC_URL not set, running with no-op engine")
		eng = engine.NewNoopEngine(logger)
	}

	lane := jobs.NewLane()
	svc := service.New(logger, downloads, eng, cc, prefs, lane)

	rec := reconciler.New(logger, svc, events)
	rec.Run()
	defer rec.Stop()

	if eventSrc != nil {
		go eventSrc.Run(ctx)
	}
	go lane.Run(ctx, svc.Admit)

	// Re-anchor persisted state against the engine before serving traffic.
	if err := svc.ReconcileStartup(ctx); err != nil {
		logger.Warn("startup reconciliation incomplete", "err", err)
	}

	go jobs.Periodic(ctx, verifyInterval, func(ctx context.Context) {
		if err := svc.VerifyEntitlement(ctx); err != nil {
			logger.Warn("entitlement verification failed, downloads disabled", "err", err)
		}
	})

	addr := os.Getenv("OFFLINER_ADDR")
	if addr == "" {
		addr = ":9090"
	}
	server := &http.Server{
		Addr:         addr,
		Handler:      router.New(logger, svc),
		IdleTimeout:  120 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting offliner api", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("received terminate, graceful shutdown")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
