// Package testing holds fixtures shared by package tests.
package testing

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"socialhub-server-go/internal/platform/config"
	"socialhub-server-go/internal/platform/logging"
	"socialhub-server-go/internal/platform/storage"
)

var dbSeq atomic.Int64

// SetupTestConfig returns the defaults with every file path inside a temp dir
// and the in-memory session driver.
func SetupTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Server.IP = "127.0.0.1"
	cfg.Log.Level = "DEBUG"
	cfg.Log.Dir = filepath.Join(dir, "logs")
	cfg.Log.File = "test.log"
	cfg.Log.Console = false
	cfg.Database.DSN = filepath.Join(dir, "test.db")
	cfg.Session.Driver = "memory"
	return cfg
}

func SetupTestLogger(t *testing.T) *logging.Logger {
	t.Helper()

	cfg := SetupTestConfig(t)
	l, err := logging.New(logging.Config{
		Level:    cfg.Log.Level,
		Dir:      cfg.Log.Dir,
		Filename: cfg.Log.File,
	})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

// OpenTestDB opens a private in-memory sqlite database with every migration
// applied. name only labels the database in errors.
func OpenTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s-%d?mode=memory&cache=shared", name, dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open %s: %v", dsn, err)
	}
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("migrate %s: %v", dsn, err)
	}
	t.Cleanup(func() { _ = storage.Close(db) })
	return db
}
