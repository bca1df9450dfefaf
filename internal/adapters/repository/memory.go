package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/slotmatch/internal/domain/types"
	"github.com/okian/slotmatch/pkg/metrics"
)

// MemoryStore is an in-memory Store. Schedules are kept in insertion order.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]types.Schedule
	order      []string
	maxEntries int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{byID: make(map[string]types.Schedule)}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateStoredSchedules(0)
	return s
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, sch types.Schedule) error { //nolint:gocritic // hugeParam: stored by value
	if sch.ID == "" {
		return ErrInvalidID
	}
	defer observe("save", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[sch.ID]; !ok {
		s.order = append(s.order, sch.ID)
	}
	s.byID[sch.ID] = sch
	s.evictLocked()
	metrics.UpdateStoredSchedules(len(s.order))
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (types.Schedule, error) {
	defer observe("get", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	sch, ok := s.byID[id]
	if !ok {
		return types.Schedule{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sch, nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, limit int) ([]types.Schedule, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	defer observe("list", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := min(limit, len(s.order))
	out := make([]types.Schedule, 0, n)
	for i := len(s.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.byID[s.order[i]])
	}
	return out, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// evictLocked drops the oldest finished schedules while above maxEntries.
// Pending and running schedules are never evicted.
func (s *MemoryStore) evictLocked() {
	if s.maxEntries == 0 {
		return
	}
	for i := 0; len(s.order) > s.maxEntries && i < len(s.order); {
		id := s.order[i]
		if !s.byID[id].Status.Done() {
			i++
			continue
		}
		delete(s.byID, id)
		s.order = append(s.order[:i], s.order[i+1:]...)
	}
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}
