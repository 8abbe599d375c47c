// Package storetest opens a migrated in-memory store for tests.
package storetest

import (
	"testing"
	"time"

	"chilljobs-api/database"
	"chilljobs-api/internal/store"
)

func New(t *testing.T) *store.GormStore {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return store.New(db, 30*24*time.Hour)
}
