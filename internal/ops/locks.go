package ops

import (
	"bytes"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// LockManager serializes composite operations over shared aggregates.
// Locks are always acquired in ascending id order so two concurrent
// operations touching overlapping aggregates cannot deadlock.
type LockManager struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewLockManager() *LockManager {
	return &LockManager{
		locks: make(map[uuid.UUID]*entry),
	}
}

// Acquire locks every given id in ascending order and returns the release
// function. Duplicate ids are collapsed.
func (m *LockManager) Acquire(ids ...uuid.UUID) func() {
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	sort.Slice(unique, func(i, j int) bool {
		return bytes.Compare(unique[i][:], unique[j][:]) < 0
	})

	entries := make([]*entry, 0, len(unique))
	for _, id := range unique {
		e := m.retain(id)
		e.mu.Lock()
		entries = append(entries, e)
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		for i := len(entries) - 1; i >= 0; i-- {
			entries[i].mu.Unlock()
			m.release(unique[i])
		}
	}
}

func (m *LockManager) retain(id uuid.UUID) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.locks[id]
	if !ok {
		e = &entry{}
		m.locks[id] = e
	}
	e.refs++
	return e
}

func (m *LockManager) release(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.locks[id]
	if !ok {
		return
	}
	e.refs--
	if e.refs == 0 {
		delete(m.locks, id)
	}
}
