// Command sync-now runs a single sync cycle for one tenant and prints the
// report as JSON. Exit status is 1 when the cycle had failures and 2 when the
// local store failed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go-pos-terminal/internal/config"
	"go-pos-terminal/internal/model"
	"go-pos-terminal/internal/remote"
	"go-pos-terminal/internal/repository"
	"go-pos-terminal/internal/service"
	"go-pos-terminal/pkg/database"
	"go-pos-terminal/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

// run returns the exit status so deferred calls, zlog.Sync included, finish
// before os.Exit.
func run() int {
	tenantID := flag.String("tenant", "", "tenant to sync (required)")
	timeout := flag.Duration("timeout", 0, "cycle timeout, defaults to SYNC_CYCLE_TIMEOUT")
	flag.Parse()

	if *tenantID == "" {
		flag.Usage()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 1
	}
	if *timeout > 0 {
		cfg.SyncCycleTimeout = *timeout
	}

	// zap writes to stderr, stdout carries only the report
	zlog := logger.Must(cfg.AppEnv, cfg.LogLevel)
	defer func() { _ = zlog.Sync() }()

	report, err := syncOnce(cfg, zlog, *tenantID)
	if err != nil {
		zlog.Error("sync failed", zap.Error(err))
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		zlog.Error("write report", zap.Error(err))
		return 1
	}
	return exitCode(report)
}

func exitCode(report model.CycleReport) int {
	switch {
	case report.StoreFailure():
		return 2
	case !report.Clean():
		return 1
	}
	return 0
}

func syncOnce(cfg *config.Config, zlog *zap.Logger, tenantID string) (model.CycleReport, error) {
	opts := database.Options{Driver: cfg.DBDriver, DSN: cfg.DatabaseURL}
	if cfg.DBDriver == database.DriverSQLite {
		opts.DSN = cfg.SQLitePath()
	}
	db, err := database.Open(opts, zlog)
	if err != nil {
		return model.CycleReport{}, fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	if err := repository.Migrate(db); err != nil {
		return model.CycleReport{}, fmt.Errorf("migrate: %w", err)
	}

	client := remote.NewClient(remote.Options{
		BaseURL: cfg.RemoteBaseURL,
		Token:   cfg.RemoteAPIToken,
		Timeout: cfg.RemoteTimeout,
	})
	orchestrator := service.NewOrchestrator(
		service.NewCatalogSyncService(client, repository.NewCatalogRepo(db, nil), zlog),
		service.NewOutboxService(client, repository.NewOrderRepo(db, nil), zlog),
		service.OrchestratorOptions{CycleTimeout: cfg.SyncCycleTimeout},
		zlog,
	)
	defer orchestrator.Stop()

	start := time.Now()
	report := orchestrator.RunCycle(context.Background(), tenantID, model.TriggerManual)
	zlog.Debug("cycle done", zap.Duration("took", time.Since(start)))
	return report, nil
}
