package tenants

import (
	"context"
	"errors"
)

// ErrNotFound is returned by lookups that matched nothing.
var ErrNotFound = errors.New("not found")

// Store is the tenant/user inventory consumed by the sagas and the gateway.
type Store interface {
	// SaveTenant persists the tenant record and its bundle.
	SaveTenant(ctx context.Context, t Tenant) error
	// GetTenant returns one tenant by id, or ErrNotFound.
	GetTenant(ctx context.Context, id string) (Tenant, error)
	// ListTenants returns every tenant; the teardown saga feeds on this.
	ListTenants(ctx context.Context) ([]Tenant, error)
	// DeleteTenant removes the tenant record after teardown.
	DeleteTenant(ctx context.Context, id string) error

	// SaveUser persists a directory user record.
	SaveUser(ctx context.Context, u User) error
	// LookupUserSystem finds a user by username across all tenants. The
	// provisioning existence guard depends on this system-wide scope.
	LookupUserSystem(ctx context.Context, username string) (User, error)
	// LookupUser finds a user inside one tenant.
	LookupUser(ctx context.Context, tenantID, username string) (User, error)
}
