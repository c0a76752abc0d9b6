// Package dbtest opens an in-memory SQLite database carrying the production
// gorm schema, for store-backed tests.
package dbtest

import (
	"testing"

	"karmafeed/internal/db"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// New returns a migrated in-memory database with foreign keys enforced.
// The pool is pinned to one connection so every query sees the same memory DB.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), db.Options())
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}
	return gdb
}
