package database

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"
)

// OpenTest returns a migrated SQLite database that lives for the duration of t.
func OpenTest(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := Open(sqlitePrefix + filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
