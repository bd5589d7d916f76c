package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/cognicore/uapick/pkg/uapick/store"
)

// Store is an in-memory implementation of store.Store for tests and
// single-process use.
type Store struct {
	mu      sync.RWMutex
	runs    map[string]store.Run
	indexes map[string]store.IndexRecord
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		runs:    make(map[string]store.Run),
		indexes: make(map[string]store.IndexRecord),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// RecordRun inserts or replaces a run, keyed by ID.
func (s *Store) RecordRun(ctx context.Context, r store.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		return nil
	}
	s.runs[r.ID] = copyRun(r)
	return nil
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (store.Run, bool, error) {
	runs, _ := s.ListRuns(ctx, 1)
	if len(runs) == 0 {
		return store.Run{}, false, nil
	}
	return runs[0], true, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	out := make([]store.Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, copyRun(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetIndex returns a cached offset index.
func (s *Store) GetIndex(ctx context.Context, path string) (store.IndexRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.indexes[path]
	if !ok {
		return store.IndexRecord{}, false, nil
	}
	return copyIndex(rec), true, nil
}

// PutIndex stores an offset index.
func (s *Store) PutIndex(ctx context.Context, path string, rec store.IndexRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes[path] = copyIndex(rec)
	return nil
}

// DeleteIndex drops a cached offset index.
func (s *Store) DeleteIndex(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.indexes, path)
	return nil
}

func copyRun(r store.Run) store.Run {
	cp := r
	if r.Samples != nil {
		cp.Samples = append([]store.SampleRecord(nil), r.Samples...)
	}
	return cp
}

func copyIndex(rec store.IndexRecord) store.IndexRecord {
	cp := rec
	if rec.Offsets != nil {
		cp.Offsets = append([]int64(nil), rec.Offsets...)
	}
	return cp
}
