package report

import (
	"container/list"
	"errors"
	"sync"
)

// LRUStore is an in-memory LRU cache in front of a backing Store.
// Writes go through to the backing store; reads hit the cache first.
type LRUStore struct {
	mu       sync.Mutex
	capacity int
	back     Store
	order    *list.List // most recent at front; values are *Run
	items    map[string]*list.Element
}

// NewLRUStore creates an LRU cache holding up to capacity runs. Capacity is
// raised to 1 if smaller.
func NewLRUStore(capacity int, back Store) *LRUStore {
	if capacity < 1 {
		capacity = 1
	}
	return &LRUStore{
		capacity: capacity,
		back:     back,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Save stores the run in the backing store and then caches it.
func (s *LRUStore) Save(run *Run) error {
	if err := s.back.Save(run); err != nil {
		return err
	}
	s.mu.Lock()
	s.put(run)
	s.mu.Unlock()
	return nil
}

// Load returns a cached run, or loads it from the backing store and
// caches it.
func (s *LRUStore) Load(runID string) (*Run, error) {
	s.mu.Lock()
	if e, ok := s.items[runID]; ok {
		s.order.MoveToFront(e)
		run := e.Value.(*Run)
		s.mu.Unlock()
		return run, nil
	}
	s.mu.Unlock()

	run, err := s.back.Load(runID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.put(run)
	s.mu.Unlock()
	return run, nil
}

// List delegates to the backing store when it can enumerate runs.
func (s *LRUStore) List(limit int) ([]*Run, error) {
	l, ok := s.back.(Lister)
	if !ok {
		return nil, errors.New("backing store cannot list runs")
	}
	return l.List(limit)
}

// Len returns the number of cached runs.
func (s *LRUStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// put inserts or refreshes run. s.mu must be held.
func (s *LRUStore) put(run *Run) {
	if e, ok := s.items[run.ID]; ok {
		e.Value = run
		s.order.MoveToFront(e)
		return
	}
	s.items[run.ID] = s.order.PushFront(run)
	for s.order.Len() > s.capacity {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*Run).ID)
	}
}
