package user

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemoryStore is an in-memory implementation of the Store interface.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[int64]User
	nextID int64
}

// NewMemoryStore creates a new in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[int64]User),
		nextID: 1,
	}
}

// Get returns the user with the given id.
func (m *MemoryStore) Get(_ context.Context, id int64) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, exists := m.users[id]
	if !exists {
		return User{}, ErrUserNotFound
	}

	return cloneUser(u), nil
}

// List returns all users ordered by username.
func (m *MemoryStore) List(_ context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]User, 0, len(m.users))
	for _, u := range m.users {
		result = append(result, cloneUser(u))
	}

	slices.SortFunc(result, func(a, b User) int {
		return strings.Compare(a.Username, b.Username)
	})

	return result, nil
}

// Create inserts a user, assigning the next free id when ID is zero.
func (m *MemoryStore) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u.ID == 0 {
		u.ID = m.nextID
	}

	if u.ID >= m.nextID {
		m.nextID = u.ID + 1
	}

	m.users[u.ID] = cloneUser(*u)

	return nil
}

func cloneUser(u User) User {
	u.Roles = slices.Clone(u.Roles)

	return u
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
