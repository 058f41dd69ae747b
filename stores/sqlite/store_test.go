package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"excalidraw-httpsync/core"
)

func setupTestDB(t *testing.T) *sqliteStore {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "test.db"))
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStore_TableCreated(t *testing.T) {
	store := setupTestDB(t)

	var tableName string
	err := store.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='kv'").Scan(&tableName)
	if err != nil {
		t.Fatalf("kv table not created: %v", err)
	}
}

func TestSetGet(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.Set(ctx, core.NamespaceRooms, "room", []byte("scene")); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	got, err := store.Get(ctx, core.NamespaceRooms, "room")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if string(got) != "scene" {
		t.Errorf("Get() data mismatch: got %q, want %q", got, "scene")
	}
}

func TestGet_NotFound(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.Get(context.Background(), core.NamespaceRooms, "missing")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get() error mismatch: got %v, want %v", err, core.ErrNotFound)
	}
}

func TestSet_Upserts(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	store.Set(ctx, core.NamespaceFiles, "f", []byte("v1"))
	if err := store.Set(ctx, core.NamespaceFiles, "f", []byte("v2")); err != nil {
		t.Fatalf("second Set() failed: %v", err)
	}

	got, _ := store.Get(ctx, core.NamespaceFiles, "f")
	if string(got) != "v2" {
		t.Errorf("Get() after upsert: got %q, want %q", got, "v2")
	}

	var rows int
	store.db.QueryRow("SELECT COUNT(*) FROM kv").Scan(&rows)
	if rows != 1 {
		t.Errorf("Row count mismatch: got %d, want 1", rows)
	}
}

func TestSetGet_EmptyValue(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	store.Set(ctx, core.NamespaceRooms, "empty", []byte{})

	got, err := store.Get(ctx, core.NamespaceRooms, "empty")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Get() of empty value: got %v", got)
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	store.Set(ctx, core.NamespaceRooms, "id", []byte("room"))

	if _, err := store.Get(ctx, core.NamespaceFiles, "id"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get() from other namespace: got %v, want ErrNotFound", err)
	}
}
