// pkg/tenants/memory.go
package tenants

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

type memStore struct {
	log *zap.SugaredLogger

	mu      sync.RWMutex
	tenants map[string]Tenant
	users   map[string]User // key: tenantID+":"+username
}

// NewMemoryStore returns a Store for dev and tests.
func NewMemoryStore(log *zap.SugaredLogger) Store {
	return &memStore{log: log, tenants: map[string]Tenant{}, users: map[string]User{}}
}

func (m *memStore) SaveTenant(ctx context.Context, t Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[t.ID] = t
	return nil
}

func (m *memStore) GetTenant(ctx context.Context, id string) (Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.tenants[id]; ok {
		return t, nil
	}
	return Tenant{}, ErrNotFound
}

func (m *memStore) ListTenants(ctx context.Context) ([]Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) DeleteTenant(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tenants, id)
	return nil
}

func (m *memStore) SaveUser(ctx context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.TenantID+":"+u.Username] = u
	return nil
}

func (m *memStore) LookupUserSystem(ctx context.Context, username string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memStore) LookupUser(ctx context.Context, tenantID, username string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[tenantID+":"+username]; ok {
		return u, nil
	}
	return User{}, ErrNotFound
}
