package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/star/tlecat/internal/tle/tletest"
)

func TestWatcherLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run_cat.json")
	if err := SaveRun(path, sampleRun(t)); err != nil {
		t.Fatal(err)
	}

	store := NewStore()
	if store.Get() != nil || store.AgeSeconds() != -1 {
		t.Fatal("new store should be empty")
	}

	w := NewWatcher(path, store, 0, testLogger())
	if err := w.Load(); err != nil {
		t.Fatal(err)
	}
	snap := store.Get()
	if snap == nil || snap.Catalog.Len() != 3 || snap.Source != path {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if store.AgeSeconds() < 0 {
		t.Error("AgeSeconds negative after load")
	}
}

func TestWatcherLoadFailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	store := NewStore()
	w := NewWatcher(filepath.Join(dir, "absent.json"), store, 0, testLogger())
	if err := w.Load(); err == nil {
		t.Fatal("expected error loading a missing file")
	}
	if store.Get() != nil {
		t.Error("failed load populated the store")
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run_cat.json")
	if err := SaveRun(path, sampleRun(t)); err != nil {
		t.Fatal(err)
	}

	store := NewStore()
	w := NewWatcher(path, store, 20*time.Millisecond, testLogger())
	if err := w.Load(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	bigger, err := Organize(concat(
		tletest.Triplet("A", 11111, 1),
		tletest.Triplet("B", 22222, 1),
		tletest.Triplet("C", 33333, 1),
		tletest.Triplet("D", 44444, 1),
		tletest.Triplet("E", 55555, 1),
	))
	if err != nil {
		t.Fatal(err)
	}
	if err := SaveRun(path, bigger); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if snap := store.Get(); snap != nil && snap.Catalog.Len() == 5 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("store not reloaded; has %d objects", store.Get().Catalog.Len())
}
