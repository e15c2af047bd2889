package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-pos-terminal/internal/config"
	"go-pos-terminal/internal/handler"
	"go-pos-terminal/internal/live"
	"go-pos-terminal/internal/remote"
	"go-pos-terminal/internal/repository"
	"go-pos-terminal/internal/service"
	"go-pos-terminal/internal/ws"
	"go-pos-terminal/pkg/database"
	"go-pos-terminal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// the local API and ws pushes carry money as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	// 1. Load Env
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog := logger.Must(cfg.AppEnv, cfg.LogLevel)
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("terminal agent stopped", zap.Error(err))
	}
	zlog.Info("terminal agent exited")
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	// 2. Setup Database
	db, err := database.Shared(dbOptions(cfg), zlog)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			zlog.Warn("database close failed", zap.Error(err))
		}
	}()

	if err := repository.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	version, _ := repository.SchemaVersion(db)
	zlog.Info("local store ready", zap.String("driver", cfg.DBDriver), zap.Int("schema_version", version))

	// 3. Dependency Injection (Wiring Layers)
	feed := repository.NewChangeFeed()
	catalogRepo := repository.NewCatalogRepo(db, feed)
	orderRepo := repository.NewOrderRepo(db, feed)

	client := remote.NewClient(remote.Options{
		BaseURL: cfg.RemoteBaseURL,
		Token:   cfg.RemoteAPIToken,
		Timeout: cfg.RemoteTimeout,
	})

	catalogService := service.NewCatalogSyncService(client, catalogRepo, zlog)
	outboxService := service.NewOutboxService(client, orderRepo, zlog)
	orchestrator := service.NewOrchestrator(catalogService, outboxService, service.OrchestratorOptions{
		Interval:     cfg.SyncInterval,
		CycleTimeout: cfg.SyncCycleTimeout,
		BackoffMax:   cfg.SyncBackoffMax,
	}, zlog)
	for _, tenantID := range cfg.Tenants {
		orchestrator.Register(tenantID)
	}

	// 4. Setup WebSocket Hub
	wsHub := ws.NewHub(live.NewHub(catalogRepo, orderRepo, feed, zlog), zlog)
	orchestrator.OnCycle(wsHub.PublishCycle)

	// 5. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:               "POS Terminal Agent",
		DisableStartupMessage: true,
	})
	app.Use(fiberlogger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	handler.RegisterRoutes(app, []byte(cfg.JWTSecret), handler.Handlers{
		Catalog: handler.NewCatalogHandler(catalogService),
		Orders:  handler.NewOrderHandler(outboxService),
		Sync:    handler.NewSyncHandler(orchestrator, outboxService),
		Hub:     wsHub,
	})

	// 6. Run until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return wsHub.Run(gctx) })
	g.Go(func() error { return orchestrator.Run(gctx) })
	g.Go(func() error {
		zlog.Info("listening", zap.String("port", cfg.Port), zap.Strings("tenants", cfg.Tenants))
		if err := app.Listen(":" + cfg.Port); err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zlog.Info("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	return g.Wait()
}

func dbOptions(cfg *config.Config) database.Options {
	opts := database.Options{Driver: cfg.DBDriver, DSN: cfg.DatabaseURL}
	if cfg.DBDriver == database.DriverSQLite {
		opts.DSN = cfg.SQLitePath()
	}
	if cfg.LogLevel == "debug" {
		opts.LogLevel = gormlogger.Info
	}
	return opts
}
