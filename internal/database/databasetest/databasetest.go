// Package databasetest opens a throwaway postgres schema for integration tests.
package databasetest

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/serroba/opsportal/internal/database"
	"gorm.io/gorm"
)

// EnvDSN names the variable holding the postgres DSN used by integration tests.
const EnvDSN = "OPSPORTAL_TEST_DSN"

// Open returns a connection scoped to a fresh schema, or skips the test when
// EnvDSN is unset. The schema is dropped on cleanup.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skipf("%s not set; skipping postgres integration test", EnvDSN)
	}

	db, err := database.Open(dsn)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())

	if err := db.Exec("CREATE SCHEMA " + schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}

	if err := db.Exec("SET search_path TO " + schema).Error; err != nil {
		t.Fatalf("set search_path: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("database handle: %v", err)
	}

	// search_path is per connection.
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = db.Exec("DROP SCHEMA " + schema + " CASCADE").Error
		_ = sqlDB.Close()
	})

	return db
}
