// Package database opens the relational store shared by every gorm-backed
// repository.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Migrator is implemented by every gorm-backed store.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// Open connects to the postgres database described by dsn.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}

	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	log.Info().Msg("Database connection established")

	return db, nil
}

// Migrate runs every migrator in order.
func Migrate(ctx context.Context, migrators ...Migrator) error {
	log.Info().Int("stores", len(migrators)).Msg("Running database migrations")

	for _, m := range migrators {
		if err := m.Migrate(ctx); err != nil {
			return err
		}
	}

	log.Info().Msg("Database migrations completed")

	return nil
}

// zerologWriter adapts the global zerolog logger to gorm's logger.Writer.
type zerologWriter struct{}

func (zerologWriter) Printf(format string, args ...any) {
	log.Debug().Str("component", "gorm").Msgf(format, args...)
}

func newLogger() logger.Interface {
	level := logger.Warn
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		level = logger.Info
	}

	return logger.New(zerologWriter{}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}
