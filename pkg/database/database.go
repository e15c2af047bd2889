package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects the storage engine. DSN is a file path for sqlite and a
// connection URL for postgres.
type Options struct {
	Driver   string
	DSN      string
	LogLevel logger.LogLevel
}

var (
	sharedOnce sync.Once
	sharedDB   *gorm.DB
	sharedErr  error
)

// Shared opens the process-wide database on first call and returns the same
// handle afterwards. Options of later calls are ignored.
func Shared(opts Options, log *zap.Logger) (*gorm.DB, error) {
	sharedOnce.Do(func() {
		sharedDB, sharedErr = Open(opts, log)
	})
	return sharedDB, sharedErr
}

// Open connects to the configured engine.
func Open(opts Options, log *zap.Logger) (*gorm.DB, error) {
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}
	gormLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  opts.LogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	var dialector gorm.Dialector
	switch opts.Driver {
	case DriverSQLite, "":
		if opts.DSN == "" {
			return nil, errors.New("database: sqlite path is empty")
		}
		if opts.DSN != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(opts.DSN), 0o755); err != nil {
				return nil, fmt.Errorf("database: create data dir: %w", err)
			}
		}
		// WAL keeps readers unblocked during a catalog swap; immediate
		// transactions take the write lock up front instead of failing mid-way
		dialector = sqlite.Open(opts.DSN + "?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on")
	case DriverPostgres:
		dialector = postgres.New(postgres.Config{
			DSN:                  opts.DSN,
			PreferSimpleProtocol: true,
		})
	default:
		return nil, fmt.Errorf("database: unknown driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:      gormLogger,
		PrepareStmt: false,
	})
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if opts.Driver == DriverPostgres {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(time.Hour)
	} else {
		// one writer at a time is all sqlite can do anyway
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	log.Info("database connection established", zap.String("driver", opts.Driver))
	return db, nil
}

// Close checkpoints the sqlite WAL and closes the pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	if db.Dialector.Name() == DriverSQLite {
		if err := db.Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error; err != nil {
			return fmt.Errorf("database: checkpoint: %w", err)
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
