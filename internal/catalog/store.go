package catalog

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is a loaded run catalog and where it came from.
type Snapshot struct {
	Catalog  *RunCatalog
	Source   string
	LoadedAt time.Time
}

// Store provides thread-safe access to the current run catalog for readers
// such as the HTTP API. The catalog itself is immutable; reloads swap the
// pointer.
type Store struct {
	snapshot atomic.Pointer[Snapshot]
	mu       sync.Mutex // serializes reloads

	notifyMu sync.Mutex
	changed  chan struct{}
}

// NewStore creates a new empty Store.
func NewStore() *Store {
	return &Store{changed: make(chan struct{})}
}

// Get returns the current snapshot, or nil if none has been loaded.
func (s *Store) Get() *Snapshot {
	return s.snapshot.Load()
}

// Set atomically replaces the current snapshot and wakes every waiter on
// Changed.
func (s *Store) Set(snap *Snapshot) {
	s.snapshot.Store(snap)

	s.notifyMu.Lock()
	close(s.changed)
	s.changed = make(chan struct{})
	s.notifyMu.Unlock()
}

// Changed returns a channel closed by the next Set. Callers take a fresh
// channel after each wake-up.
func (s *Store) Changed() <-chan struct{} {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	return s.changed
}

// AgeSeconds returns the age of the current snapshot in seconds.
// Returns -1 if no snapshot is loaded.
func (s *Store) AgeSeconds() float64 {
	snap := s.snapshot.Load()
	if snap == nil {
		return -1
	}
	return time.Since(snap.LoadedAt).Seconds()
}

// Lock acquires the reload mutex.
func (s *Store) Lock() {
	s.mu.Lock()
}

// Unlock releases the reload mutex.
func (s *Store) Unlock() {
	s.mu.Unlock()
}
