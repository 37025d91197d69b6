package data

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/core"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/domain/model"
)

// MemoryJobStore keeps job records in process memory. It is the default
// backend and holds nothing across restarts.
//
// The index is guarded by an RWMutex and each record carries its own mutex,
// so mutations of unrelated jobs do not serialize on a single lock. All
// reads and writes return deep copies; callers never share memory with the
// store.
type MemoryJobStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryJobEntry
}

type memoryJobEntry struct {
	mu  sync.Mutex
	job *model.Job
}

// NewMemoryJobStore creates an empty in-memory job store.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{entries: make(map[string]*memoryJobEntry)}
}

// Insert adds a new job record. Returns ErrJobExists when the id is taken.
func (s *MemoryJobStore) Insert(_ context.Context, job *model.Job) error {
	if job == nil || job.ID == "" {
		return errors.New("job id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[job.ID]; ok {
		return ErrJobExists
	}
	s.entries[job.ID] = &memoryJobEntry{job: job.Clone()}
	return nil
}

// Get returns a snapshot of the job with the given id.
func (s *MemoryJobStore) Get(_ context.Context, id string) (*model.Job, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.job.Clone(), nil
}

// Mutate applies fn to a working copy of the record and commits the result.
// When fn returns an error the stored record is left untouched and the error
// is returned unchanged. The returned job is a snapshot of the committed
// state.
func (s *MemoryJobStore) Mutate(_ context.Context, id string, fn func(*model.Job) error) (*model.Job, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := entry.job.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	entry.job = working
	return working.Clone(), nil
}

// DeleteTerminalBefore removes jobs that reached a terminal status before the
// cutoff and reports how many were removed. Records still in flight are never
// touched.
func (s *MemoryJobStore) DeleteTerminalBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, entry := range s.entries {
		entry.mu.Lock()
		expired := entry.job.Status.Terminal() &&
			entry.job.CompletedAt != nil &&
			entry.job.CompletedAt.Before(cutoff)
		entry.mu.Unlock()

		if expired {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Health reports whether the store is usable. The in-memory backend is
// always healthy.
func (s *MemoryJobStore) Health(_ context.Context) error {
	return nil
}

// Len returns the number of records currently held.
func (s *MemoryJobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// lookup holds the index read lock only long enough to find the entry. The
// caller locks the entry itself afterwards, so lookups never block behind a
// long mutation of another record.
func (s *MemoryJobStore) lookup(id string) (*memoryJobEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return entry, nil
}

var _ core.JobStore = (*MemoryJobStore)(nil)
