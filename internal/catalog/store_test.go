package catalog

import (
	"testing"
	"time"
)

func TestStoreChangedWakesOnSet(t *testing.T) {
	store := NewStore()
	ch := store.Changed()

	select {
	case <-ch:
		t.Fatal("Changed fired before any Set")
	default:
	}

	rc, err := Organize(nil)
	if err != nil {
		t.Fatal(err)
	}
	store.Set(&Snapshot{Catalog: rc, Source: "test", LoadedAt: time.Now()})

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("Changed not closed by Set")
	}

	next := store.Changed()
	if next == ch {
		t.Fatal("Changed returned the already-closed channel")
	}
	select {
	case <-next:
		t.Fatal("fresh Changed channel already closed")
	default:
	}
	if store.Get().Source != "test" {
		t.Errorf("Source = %q", store.Get().Source)
	}
}
