package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/intelguardhq/controller/internal/admission"
	"github.com/intelguardhq/controller/internal/alerting"
	"github.com/intelguardhq/controller/internal/config"
	"github.com/intelguardhq/controller/internal/logging"
	"github.com/intelguardhq/controller/internal/metrics"
	"github.com/intelguardhq/controller/internal/server"
	"github.com/intelguardhq/controller/internal/store"
)

func main() {
	logger := logging.New()
	ctx := context.Background()

	configPath := flag.String("config", "", "Path to controller configuration file")
	flag.Parse()

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}

	var (
		st      store.Store
		cleanup func()
	)
	if cfg.Database.URL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatalf("failed to connect to database: %v", err)
		}
		if cfg.Database.AutoMigrate {
			if err := pgStore.EnsureSchema(ctx); err != nil {
				logger.Fatalf("failed to migrate schema: %v", err)
			}
		}
		st = pgStore
		cleanup = func() { pgStore.Close() }
		logger.Println("monitor store using PostgreSQL")
	} else {
		st = store.NewMemoryStore()
		cleanup = func() {}
		logger.Println("database url not set, using in-memory store (not for production)")
	}
	defer cleanup()

	alertingSvc := alerting.NewLocalService(alerting.Dependencies{
		Store:  st,
		Logger: logger,
	})

	controller := admission.New(admission.Config{
		FilterByBackendRoles: cfg.Admission.FilterByBackendRoles,
		IndexTimeout:         cfg.Admission.IndexTimeout(),
	}, admission.Dependencies{
		Alerting: alertingSvc,
		Logger:   logger,
	})

	srv := server.New(server.Config{
		Addr:              cfg.Server.Addr,
		ReadTimeout:       cfg.Server.ReadTimeout(),
		WriteTimeout:      cfg.Server.WriteTimeout(),
		IdleTimeout:       cfg.Server.IdleTimeout(),
		RateLimitEnabled:  cfg.RateLimit.Enabled,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}, server.Dependencies{
		Logger:    logger,
		Admission: controller,
		Alerting:  alertingSvc,
		Metrics:   metrics.NewStore(),
	})

	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(shutdownCtx)
	g.Go(func() error {
		logger.Printf("starting controller on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Println("shutdown signal received")
		ctxTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctxTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Fatalf("server error: %v", err)
	}
	logger.Println("controller stopped")
}

// loadConfig resolves configuration from the flag, the environment, or the
// default path, falling back to built-in defaults when no file exists.
func loadConfig(ctx context.Context, path string) (config.Config, error) {
	if path != "" {
		return config.Load(ctx, path)
	}
	if _, err := os.Stat(config.DefaultConfigPath); err == nil || os.Getenv(config.EnvConfigPath) != "" {
		return config.LoadFromEnv(ctx)
	}
	return config.Default(), nil
}
