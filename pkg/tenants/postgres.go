package tenants

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// pgStore implements Store backed by PostgreSQL.
type pgStore struct {
	dbPool *pgxpool.Pool      // Connection pool to PostgreSQL
	log    *zap.SugaredLogger // Logger for diagnostic output
}

// NewPostgresStore constructs a PostgreSQL-backed inventory store.
func NewPostgresStore(dbPool *pgxpool.Pool, log *zap.SugaredLogger) Store {
	return &pgStore{dbPool: dbPool, log: log}
}

// EnsureSchema creates required tables if they do not already exist.
// Safe to call repeatedly (idempotent).
func EnsureSchema(ctx context.Context, dbPool *pgxpool.Pool) error {
	_, err := dbPool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tenants (
  id text PRIMARY KEY,
  company_name text,
  account_name text,
  owner_name text,
  tier text,
  email text,
  status text,
  bundle jsonb NOT NULL DEFAULT '{}'::jsonb
);
CREATE TABLE IF NOT EXISTS users (
  tenant_id text NOT NULL,
  username text NOT NULL,
  subject_id text,
  email text,
  first_name text,
  last_name text,
  role text,
  tier text,
  user_pool_id text,
  identity_pool_id text,
  client_id text,
  PRIMARY KEY (tenant_id, username)
);
CREATE INDEX IF NOT EXISTS users_username_idx ON users(username);
`)
	return err
}

func (s *pgStore) SaveTenant(ctx context.Context, t Tenant) error {
	b, err := json.Marshal(t.Bundle)
	if err != nil {
		return err
	}
	_, err = s.dbPool.Exec(ctx, `
INSERT INTO tenants(id, company_name, account_name, owner_name, tier, email, status, bundle)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  company_name=EXCLUDED.company_name, account_name=EXCLUDED.account_name,
  owner_name=EXCLUDED.owner_name, tier=EXCLUDED.tier, email=EXCLUDED.email,
  status=EXCLUDED.status, bundle=EXCLUDED.bundle`,
		t.ID, t.CompanyName, t.AccountName, t.OwnerName, t.Tier, t.Email, t.Status, b)
	return err
}

func (s *pgStore) GetTenant(ctx context.Context, id string) (Tenant, error) {
	row := s.dbPool.QueryRow(ctx, `
SELECT id, company_name, account_name, owner_name, tier, email, status, bundle
FROM tenants WHERE id=$1`, id)
	return scanTenant(row)
}

func (s *pgStore) ListTenants(ctx context.Context) ([]Tenant, error) {
	rows, err := s.dbPool.Query(ctx, `
SELECT id, company_name, account_name, owner_name, tier, email, status, bundle
FROM tenants ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *pgStore) DeleteTenant(ctx context.Context, id string) error {
	_, err := s.dbPool.Exec(ctx, `DELETE FROM tenants WHERE id=$1`, id)
	return err
}

func (s *pgStore) SaveUser(ctx context.Context, u User) error {
	_, err := s.dbPool.Exec(ctx, `
INSERT INTO users(tenant_id, username, subject_id, email, first_name, last_name, role, tier, user_pool_id, identity_pool_id, client_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (tenant_id, username) DO UPDATE SET
  subject_id=EXCLUDED.subject_id, email=EXCLUDED.email,
  first_name=EXCLUDED.first_name, last_name=EXCLUDED.last_name,
  role=EXCLUDED.role, tier=EXCLUDED.tier,
  user_pool_id=EXCLUDED.user_pool_id, identity_pool_id=EXCLUDED.identity_pool_id,
  client_id=EXCLUDED.client_id`,
		u.TenantID, u.Username, u.SubjectID, u.Email, u.FirstName, u.LastName,
		u.Role, u.Tier, u.UserPoolID, u.IdentityPoolID, u.ClientID)
	return err
}

func (s *pgStore) LookupUserSystem(ctx context.Context, username string) (User, error) {
	row := s.dbPool.QueryRow(ctx, `
SELECT tenant_id, username, subject_id, email, first_name, last_name, role, tier, user_pool_id, identity_pool_id, client_id
FROM users WHERE username=$1 LIMIT 1`, username)
	return scanUser(row)
}

func (s *pgStore) LookupUser(ctx context.Context, tenantID, username string) (User, error) {
	row := s.dbPool.QueryRow(ctx, `
SELECT tenant_id, username, subject_id, email, first_name, last_name, role, tier, user_pool_id, identity_pool_id, client_id
FROM users WHERE tenant_id=$1 AND username=$2`, tenantID, username)
	return scanUser(row)
}

type rowScanner interface{ Scan(dest ...any) error }

func scanTenant(row rowScanner) (Tenant, error) {
	var t Tenant
	var b []byte
	err := row.Scan(&t.ID, &t.CompanyName, &t.AccountName, &t.OwnerName, &t.Tier, &t.Email, &t.Status, &b)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tenant{}, ErrNotFound
	}
	if err != nil {
		return Tenant{}, err
	}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &t.Bundle); err != nil {
			return Tenant{}, err
		}
	}
	return t, nil
}

func scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(&u.TenantID, &u.Username, &u.SubjectID, &u.Email, &u.FirstName, &u.LastName,
		&u.Role, &u.Tier, &u.UserPoolID, &u.IdentityPoolID, &u.ClientID)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}
