package acl

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of the Store interface.
// Writers are serialized; a transaction stages its writes in a copy that
// is swapped in only when the transaction succeeds.
type MemoryStore struct {
	writeMu sync.Mutex

	mu    sync.RWMutex
	state *memoryState
}

type memoryState struct {
	permissions map[int64]RoutePermission
	nextID      int64
}

// NewMemoryStore creates a new in-memory permission store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memoryState{
			permissions: make(map[int64]RoutePermission),
			nextID:      1,
		},
	}
}

// WithinTx runs fn atomically. Inside fn, write through tx: writing through
// the MemoryStore itself waits for the transaction to finish.
func (m *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.RLock()
	staged := &memoryState{
		permissions: maps.Clone(m.state.permissions),
		nextID:      m.state.nextID,
	}
	m.mu.RUnlock()

	if err := fn(ctx, memoryTx{staged}); err != nil {
		return err
	}

	m.mu.Lock()
	m.state = staged
	m.mu.Unlock()

	return nil
}

func (m *MemoryStore) write(fn func(s *memoryState) error) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	return fn(m.state)
}

// List returns all route permissions ordered by route.
func (m *MemoryStore) List(ctx context.Context) ([]RoutePermission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.List(ctx)
}

// ForRoute returns the entries whose route equals route.
func (m *MemoryStore) ForRoute(ctx context.Context, route string) ([]RoutePermission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.ForRoute(ctx, route)
}

// Get returns a route permission with its grants.
func (m *MemoryStore) Get(ctx context.Context, id int64) (RoutePermission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.Get(ctx, id)
}

// Create inserts a route permission with its grants.
func (m *MemoryStore) Create(ctx context.Context, p *RoutePermission) error {
	return m.write(func(s *memoryState) error { return s.Create(ctx, p) })
}

// SetFields overwrites route and description.
func (m *MemoryStore) SetFields(ctx context.Context, id int64, route, description string) error {
	return m.write(func(s *memoryState) error { return s.SetFields(ctx, id, route, description) })
}

// ReplaceRoles replaces every role grant of the permission.
func (m *MemoryStore) ReplaceRoles(ctx context.Context, id int64, roles []string) error {
	return m.write(func(s *memoryState) error { return s.ReplaceRoles(ctx, id, roles) })
}

// ReplaceUsers replaces every user grant of the permission.
func (m *MemoryStore) ReplaceUsers(ctx context.Context, id int64, userIDs []int64) error {
	return m.write(func(s *memoryState) error { return s.ReplaceUsers(ctx, id, userIDs) })
}

// Delete removes a route permission and its grants.
func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	return m.write(func(s *memoryState) error { return s.Delete(ctx, id) })
}

func (s *memoryState) List(_ context.Context) ([]RoutePermission, error) {
	result := make([]RoutePermission, 0, len(s.permissions))
	for _, p := range s.permissions {
		result = append(result, p.clone())
	}

	slices.SortFunc(result, func(a, b RoutePermission) int {
		return cmp.Or(strings.Compare(a.Route, b.Route), cmp.Compare(a.ID, b.ID))
	})

	return result, nil
}

func (s *memoryState) ForRoute(_ context.Context, route string) ([]RoutePermission, error) {
	var result []RoutePermission

	for _, p := range s.permissions {
		if p.Route == route {
			result = append(result, p.clone())
		}
	}

	return result, nil
}

func (s *memoryState) Get(_ context.Context, id int64) (RoutePermission, error) {
	p, exists := s.permissions[id]
	if !exists {
		return RoutePermission{}, ErrPermissionNotFound
	}

	return p.clone(), nil
}

func (s *memoryState) Create(_ context.Context, p *RoutePermission) error {
	p.ID = s.nextID
	s.nextID++

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	s.permissions[p.ID] = p.clone()

	return nil
}

func (s *memoryState) SetFields(_ context.Context, id int64, route, description string) error {
	return s.modify(id, func(p *RoutePermission) {
		p.Route = route
		p.Description = description
	})
}

func (s *memoryState) ReplaceRoles(_ context.Context, id int64, roles []string) error {
	return s.modify(id, func(p *RoutePermission) {
		p.Roles = slices.Clone(roles)
	})
}

func (s *memoryState) ReplaceUsers(_ context.Context, id int64, userIDs []int64) error {
	return s.modify(id, func(p *RoutePermission) {
		p.UserIDs = slices.Clone(userIDs)
	})
}

func (s *memoryState) Delete(_ context.Context, id int64) error {
	if _, exists := s.permissions[id]; !exists {
		return ErrPermissionNotFound
	}

	delete(s.permissions, id)

	return nil
}

func (s *memoryState) modify(id int64, fn func(p *RoutePermission)) error {
	p, exists := s.permissions[id]
	if !exists {
		return ErrPermissionNotFound
	}

	fn(&p)
	s.permissions[id] = p

	return nil
}

// memoryTx is the Store handed to a transaction body. It writes to the
// staged state only; nested transactions join the outer one.
type memoryTx struct {
	*memoryState
}

func (t memoryTx) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return fn(ctx, t)
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

var _ Store = memoryTx{}
