package rdb

import (
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T, schema *Schema) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path, schema, Options{IsTesting: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
