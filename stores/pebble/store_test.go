package pebble

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"excalidraw-httpsync/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func setupTestDB(t *testing.T) *pebbleStore {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "pebble"))
	t.Cleanup(func() { store.Close() })
	return store
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

	_, err := store.Get(context.Background(), core.NamespaceFiles, "missing")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get() error mismatch: got %v, want %v", err, core.ErrNotFound)
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	store.Set(ctx, core.NamespaceRooms, "id", []byte("room"))
	store.Set(ctx, core.NamespaceFiles, "id", []byte("file"))

	room, _ := store.Get(ctx, core.NamespaceRooms, "id")
	file, _ := store.Get(ctx, core.NamespaceFiles, "id")
	if string(room) != "room" || string(file) != "file" {
		t.Errorf("namespaces collided: room=%q file=%q", room, file)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pebble")
	ctx := context.Background()

	store := NewStore(path)
	store.Set(ctx, core.NamespaceRooms, "room", []byte("scene"))
	if err := store.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	store = NewStore(path)
	defer store.Close()
	got, err := store.Get(ctx, core.NamespaceRooms, "room")
	if err != nil || string(got) != "scene" {
		t.Errorf("Get() after reopen: got %q, %v", got, err)
	}
}

func TestCollector(t *testing.T) {
	store := setupTestDB(t)
	reg := prometheus.NewRegistry()
	if err := reg.Register(store.Collector()); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	if n := testutil.CollectAndCount(store.Collector()); n != 7 {
		t.Errorf("Metric count mismatch: got %d, want 7", n)
	}
}
