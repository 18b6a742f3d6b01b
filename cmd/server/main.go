package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"socialnet/internal/api"
	"socialnet/internal/commandlog"
	"socialnet/internal/metrics"
	"socialnet/internal/services"
	"socialnet/internal/store"
	"socialnet/pkg/config"
	"socialnet/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting social network server...", zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("Server failed", zap.Error(err))
	}
	log.Info("Server exited")
}

// run wires the service and serves HTTP until ctx is cancelled
func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []services.Option{
		services.WithMetrics(metrics.New(reg)),
		services.WithLogger(log.Named("service")),
		services.WithMaxLineBytes(cfg.MaxLogLineBytes),
	}

	// Initialize Neo4j mirror
	var repo *store.Repository
	if cfg.Neo4jEnabled {
		driver, err := store.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
		if err != nil {
			return err
		}
		repo = store.NewRepository(driver)
		defer repo.Close(context.Background())

		if err := repo.EnsureSchema(ctx); err != nil {
			log.Warn("Failed to ensure Neo4j schema", zap.Error(err))
		}
		opts = append(opts, services.WithMirror(repo))
		log.Info("Neo4j mirror enabled", zap.String("uri", cfg.Neo4jURI))
	}

	svc := services.NewNetworkService(opts...)
	if err := restore(ctx, cfg, svc, repo, log); err != nil {
		return err
	}

	mode, err := commandlog.ParseExportMode(cfg.ExportMode)
	if err != nil {
		return err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(svc, api.Options{
		ExportPath: cfg.ExportPath,
		ExportMode: mode,
		Gatherer:   reg,
		Logger:     log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Server started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	if cfg.WatchCommandLog && cfg.CommandLogPath != "" {
		watcher, err := services.NewLogWatcher(svc, cfg.CommandLogPath, services.DefaultDebounce)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", zap.Error(err))
			return err
		}
		return nil
	})

	return g.Wait()
}

// restore fills the network from the command log, or from Neo4j when no
// log is configured
func restore(ctx context.Context, cfg *config.Config, svc *services.NetworkService, repo *store.Repository, log *zap.Logger) error {
	switch {
	case cfg.CommandLogPath != "":
		res, err := svc.LoadFromLog(ctx, cfg.CommandLogPath)
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("Command log not found, starting empty", zap.String("path", cfg.CommandLogPath))
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to replay %s: %w", cfg.CommandLogPath, err)
		}
		log.Info("Replayed command log",
			zap.String("path", cfg.CommandLogPath),
			zap.Int("applied", res.Applied),
			zap.Int("skipped", res.Skipped))

	case repo != nil:
		snapshot, err := repo.Snapshot(ctx)
		if err != nil {
			return err
		}
		if err := svc.Restore(snapshot); err != nil {
			return err
		}
	}
	return nil
}
