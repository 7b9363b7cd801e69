package activity

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore is an in-memory implementation of the Store interface.
type MemoryStore struct {
	mu      sync.RWMutex
	visits  []Visit
	actions []Action
}

// NewMemoryStore creates a new in-memory activity store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// RecordVisit appends a visit.
func (m *MemoryStore) RecordVisit(_ context.Context, v *Visit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v.ID = int64(len(m.visits) + 1)
	m.visits = append(m.visits, *v)

	return nil
}

// Visits returns the most recent visits of a user, newest first.
func (m *MemoryStore) Visits(_ context.Context, userID int64, limit int) ([]Visit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Visit

	for i := len(m.visits) - 1; i >= 0; i-- {
		if m.visits[i].UserID != userID {
			continue
		}

		result = append(result, m.visits[i])

		if limit > 0 && len(result) == limit {
			break
		}
	}

	return result, nil
}

// LogAction appends an action.
func (m *MemoryStore) LogAction(_ context.Context, a *Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a.ID = int64(len(m.actions) + 1)
	m.actions = append(m.actions, *a)

	return nil
}

// Actions returns a page of matching actions, newest first.
func (m *MemoryStore) Actions(_ context.Context, filter Filter, page Page) (ActionPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Action

	for _, a := range m.actions {
		if filter.Matches(a) {
			matched = append(matched, a)
		}
	}

	slices.SortStableFunc(matched, func(a, b Action) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}

		return int(b.ID - a.ID)
	})

	total := len(matched)
	start := min(page.Offset(), total)
	end := min(start+page.Limit(), total)

	return newActionPage(slices.Clone(matched[start:end]), total, page), nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
