// Package identity defines the capability interface the sagas drive: a
// per-tenant user directory, a federated credential broker, and an IAM-style
// policy/role administrator. The AWS adapter is the production
// implementation; tests substitute fakes.
package identity

import (
	"context"
	"time"

	"idgate/internal/archetype"
)

// Pool identifies a created directory pool.
type Pool struct {
	ID   string
	Name string
}

// Client identifies a client application registered against a pool.
type Client struct {
	ID   string
	Name string
}

// Role identifies a created role.
type Role struct {
	Arn  string
	Name string
}

// UserAttributes are the directory attributes of a new user.
type UserAttributes struct {
	Username  string
	Email     string
	TenantID  string
	FirstName string
	LastName  string
	Role      string
	Tier      string
}

// Tokens is the result of a successful directory authentication.
type Tokens struct {
	IDToken      string `json:"token"`
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh,omitempty"`
}

// Credentials are temporary role-scoped access credentials issued by the
// federation broker.
type Credentials struct {
	AccessKeyID  string    `json:"access_key_id"`
	SecretKey    string    `json:"secret_key"`
	SessionToken string    `json:"session_token"`
	Expiration   time.Time `json:"expiration"`
}

// ClaimRule maps one claim value to a role.
type ClaimRule struct {
	Claim   string
	Value   string
	RoleArn string
}

// RoleMapping configures claim-based role resolution on a federated identity
// pool. Unauthenticated access stays disallowed; TrustRoleArn is the default
// authenticated role.
type RoleMapping struct {
	IdentityPoolID string
	PoolID         string
	ClientID       string
	TrustRoleArn   string
	Rules          []ClaimRule
}

// Directory manages per-tenant user directories.
type Directory interface {
	CreatePool(ctx context.Context, tenantID string, schema PoolSchema) (Pool, error)
	CreateClient(ctx context.Context, poolID, name string) (Client, error)
	CreateUser(ctx context.Context, poolID string, attrs UserAttributes) (subjectID string, err error)
	AuthenticateUser(ctx context.Context, poolID, clientID, username, password string) (Tokens, error)
	DeletePool(ctx context.Context, poolID string) error
}

// Federation manages federated identity pools and credential exchange.
type Federation interface {
	CreateIdentityPool(ctx context.Context, clientID, poolID, name string) (string, error)
	SetRoleMappings(ctx context.Context, m RoleMapping) error
	DeleteIdentityPool(ctx context.Context, identityPoolID string) error
	ResolveIdentity(ctx context.Context, identityPoolID, provider, idToken string) (string, error)
	CredentialsForIdentity(ctx context.Context, identityID, provider, idToken string) (Credentials, error)
}

// PolicyAdmin manages policies and roles.
type PolicyAdmin interface {
	CreatePolicy(ctx context.Context, name string, doc archetype.Document) (arn string, err error)
	CreateRole(ctx context.Context, name string, trust archetype.Document) (Role, error)
	AttachRolePolicy(ctx context.Context, policyArn, roleName string) error
	DetachRolePolicy(ctx context.Context, policyArn, roleName string) error
	DeletePolicy(ctx context.Context, policyArn string) error
	DeleteRole(ctx context.Context, roleName string) error
}

// Provider is the full capability surface the sagas consume.
type Provider interface {
	Directory
	Federation
	PolicyAdmin
}
