package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/kursadbilgin/dispatch-console/internal/backend"
	"github.com/kursadbilgin/dispatch-console/internal/config"
	"github.com/kursadbilgin/dispatch-console/internal/console"
	"github.com/kursadbilgin/dispatch-console/internal/handler"
	infraredis "github.com/kursadbilgin/dispatch-console/internal/infra/redis"
	"github.com/kursadbilgin/dispatch-console/internal/observability"
	"github.com/kursadbilgin/dispatch-console/internal/render"
	"github.com/kursadbilgin/dispatch-console/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("dispatch-console stopped with error", zap.Error(err))
	}
	logger.Info("dispatch-console stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	metrics := observability.NewMetrics()

	location, err := cfg.Location()
	if err != nil {
		return err
	}
	layout, err := render.ParseLayout(cfg.ListLayout)
	if err != nil {
		return err
	}

	client, err := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout())
	if err != nil {
		return fmt.Errorf("backend client initialization failed: %w", err)
	}
	client = client.WithMetrics(metrics)

	checks := []handler.HealthCheck{{Name: "backend", Pinger: client}}

	var banners console.BannerStore = console.NewMemoryBannerStore()
	if cfg.RedisURL != "" {
		rdb, err := infraredis.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis initialization failed: %w", err)
		}
		defer rdb.Close()

		redisBanners, err := infraredis.NewBannerStore(rdb)
		if err != nil {
			return err
		}
		banners = redisBanners
		checks = append(checks, handler.HealthCheck{Name: "redis", Pinger: redisBanners})
		logger.Info("using redis banner store")
	}

	registry, err := console.NewRegistry(client, banners, console.Options{
		RefreshInterval: cfg.RefreshInterval(),
		BannerTTL:       cfg.BannerTTL(),
		Location:        location,
		Logger:          logger,
		Metrics:         metrics,
	}, cfg.SessionIdleTTL())
	if err != nil {
		return err
	}

	renderer, err := render.New(layout)
	if err != nil {
		return err
	}

	app := fiber.New(transport.Config(observability.ServiceName, logger))
	app.Use(recover.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, checks...)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	if err := handler.RegisterConsoleRoutes(app, registry, renderer, logger); err != nil {
		return err
	}

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return registry.Run(groupCtx)
	})

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.ConsolePort)
		logger.Info("dispatch-console started",
			zap.String("addr", addr),
			zap.String("backend", client.BaseURL()),
			zap.String("layout", layout.String()),
		)
		if err := app.Listen(addr); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}
