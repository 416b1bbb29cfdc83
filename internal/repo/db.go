// Package repo implements persistence for generated content and idempotency
// records on GORM. This file opens the SQLite database (pure Go driver),
// tunes it for a single writer with concurrent readers, and migrates the
// schema.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/prudvi9160/smart-ai-content-creator/internal/domain"
)

// sqlitePragmas run once per open. WAL lets list requests read while a
// generate request writes.
var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL;",
	"PRAGMA synchronous=NORMAL;",
	"PRAGMA busy_timeout=5000;",
}

// slowQuery is the threshold above which GORM logs a query as slow.
const slowQuery = 500 * time.Millisecond

// OpenSQLite opens (or creates) the database at path and applies the pragmas
// and pool settings. The parent directory must already exist.
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	gormLog := log.With().Str("component", "gorm").Logger()
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.New(&gormLog, logger.Config{
			SlowThreshold:             slowQuery,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, err
	}

	for _, p := range sqlitePragmas {
		if err := db.Exec(p).Error; err != nil {
			return nil, fmt.Errorf("sqlite %s: %w", p, err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// EnableTracing installs the GORM OpenTelemetry plugin so every query is
// recorded as a child span of the request. Metrics are left to Prometheus.
func EnableTracing(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}

// AutoMigrate creates or updates the content and idempotency tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.GeneratedContent{},
		&domain.Idempotency{},
	)
}
