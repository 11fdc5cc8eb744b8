package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"idgate/internal/archetype"
	"idgate/internal/identity"
	"idgate/pkg/tenants"
)

// AdminUser is the candidate first user of a new tenant.
type AdminUser struct {
	TenantID    string `json:"tenant_id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	CompanyName string `json:"company_name"`
	AccountName string `json:"account_name"`
	OwnerName   string `json:"owner_name"`
	Tier        string `json:"tier"`
}

// Options parameterize both sagas.
type Options struct {
	Region         string
	AccountID      string
	TenantTableArn string
	UserTableArn   string

	AdminArchetype   string // e.g. TenantAdmin
	SupportArchetype string // e.g. TenantUser

	PoolSchema identity.PoolSchema

	StepTimeout time.Duration
	SagaTimeout time.Duration
}

// Service runs the provisioning and teardown sagas against an identity
// provider and the tenant inventory.
type Service struct {
	provider identity.Provider
	store    tenants.Store
	opts     Options
	log      *zap.SugaredLogger
}

func NewService(provider identity.Provider, store tenants.Store, opts Options, log *zap.SugaredLogger) *Service {
	return &Service{provider: provider, store: store, opts: opts, log: log}
}

// Provision creates the complete identity environment for one tenant plus
// its first admin user, in strict step order. Failure surfaces immediately
// naming the failing step; nothing already created is reverted.
func (s *Service) Provision(ctx context.Context, user AdminUser) (tenants.Bundle, error) {
	if s.opts.SagaTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.SagaTimeout)
		defer cancel()
	}

	// Existence guard: a username known anywhere in the system blocks
	// provisioning before any provider call is made.
	if _, err := s.store.LookupUserSystem(ctx, user.Username); err == nil {
		return tenants.Bundle{}, fmt.Errorf("%w: %s", ErrAlreadyExists, user.Username)
	} else if !errors.Is(err, tenants.ErrNotFound) {
		return tenants.Bundle{}, fmt.Errorf("existence check: %w", err)
	}

	adminArch, err := archetype.Parse(s.opts.AdminArchetype)
	if err != nil {
		return tenants.Bundle{}, err
	}
	supportArch, err := archetype.Parse(s.opts.SupportArchetype)
	if err != nil {
		return tenants.Bundle{}, err
	}

	bundle := tenants.Bundle{TenantID: user.TenantID, AdminUsername: user.Username}
	var (
		trust  archetype.Document
		params = archetype.Params{
			TenantID:       user.TenantID,
			AccountID:      s.opts.AccountID,
			Region:         s.opts.Region,
			TenantTableArn: s.opts.TenantTableArn,
			UserTableArn:   s.opts.UserTableArn,
		}
	)

	steps := []Step{
		{Name: "create-directory-pool", Run: func(ctx context.Context) error {
			pool, err := s.provider.CreatePool(ctx, user.TenantID, s.opts.PoolSchema)
			if err != nil {
				return err
			}
			bundle.UserPoolID = pool.ID
			bundle.UserPoolName = pool.Name
			params.DirectoryArn = archetype.DirectoryArn(s.opts.Region, s.opts.AccountID, pool.ID)
			return nil
		}},
		{Name: "create-client-app", Run: func(ctx context.Context) error {
			client, err := s.provider.CreateClient(ctx, bundle.UserPoolID, bundle.UserPoolName)
			if err != nil {
				return err
			}
			bundle.ClientID = client.ID
			return nil
		}},
		{Name: "create-identity-pool", Run: func(ctx context.Context) error {
			id, err := s.provider.CreateIdentityPool(ctx, bundle.ClientID, bundle.UserPoolID, bundle.UserPoolName)
			if err != nil {
				return err
			}
			bundle.IdentityPoolID = id
			return nil
		}},
		{Name: "build-trust-policy", Run: func(ctx context.Context) error {
			trust = archetype.Trust(bundle.IdentityPoolID)
			return nil
		}},
		{Name: "create-admin-policy", Run: func(ctx context.Context) error {
			arn, err := s.provider.CreatePolicy(ctx, policyName(user.TenantID, s.opts.AdminArchetype), adminArch.Document(params))
			if err != nil {
				return err
			}
			bundle.AdminPolicyArn = arn
			return nil
		}},
		{Name: "create-directory-user", Run: func(ctx context.Context) error {
			sub, err := s.provider.CreateUser(ctx, bundle.UserPoolID, identity.UserAttributes{
				Username:  user.Username,
				Email:     user.Email,
				TenantID:  user.TenantID,
				FirstName: user.FirstName,
				LastName:  user.LastName,
				Role:      s.opts.AdminArchetype,
				Tier:      user.Tier,
			})
			if err != nil {
				return err
			}
			return s.store.SaveUser(ctx, tenants.User{
				TenantID:       user.TenantID,
				Username:       user.Username,
				SubjectID:      sub,
				Email:          user.Email,
				FirstName:      user.FirstName,
				LastName:       user.LastName,
				Role:           s.opts.AdminArchetype,
				Tier:           user.Tier,
				UserPoolID:     bundle.UserPoolID,
				IdentityPoolID: bundle.IdentityPoolID,
				ClientID:       bundle.ClientID,
			})
		}},
		{Name: "create-support-policy", Run: func(ctx context.Context) error {
			arn, err := s.provider.CreatePolicy(ctx, policyName(user.TenantID, s.opts.SupportArchetype), supportArch.Document(params))
			if err != nil {
				return err
			}
			bundle.SupportPolicyArn = arn
			return nil
		}},
		{Name: "create-admin-role", Run: func(ctx context.Context) error {
			role, err := s.provider.CreateRole(ctx, user.TenantID+"-"+s.opts.AdminArchetype, trust)
			if err != nil {
				return err
			}
			bundle.AdminRoleArn, bundle.AdminRoleName = role.Arn, role.Name
			return nil
		}},
		{Name: "create-support-role", Run: func(ctx context.Context) error {
			role, err := s.provider.CreateRole(ctx, user.TenantID+"-"+s.opts.SupportArchetype, trust)
			if err != nil {
				return err
			}
			bundle.SupportRoleArn, bundle.SupportRoleName = role.Arn, role.Name
			return nil
		}},
		{Name: "create-trust-role", Run: func(ctx context.Context) error {
			role, err := s.provider.CreateRole(ctx, user.TenantID+"-Trust", trust)
			if err != nil {
				return err
			}
			bundle.TrustRoleArn, bundle.TrustRoleName = role.Arn, role.Name
			return nil
		}},
		{Name: "attach-admin-policy", Run: func(ctx context.Context) error {
			return s.provider.AttachRolePolicy(ctx, bundle.AdminPolicyArn, bundle.AdminRoleName)
		}},
		{Name: "attach-support-policy", Run: func(ctx context.Context) error {
			return s.provider.AttachRolePolicy(ctx, bundle.SupportPolicyArn, bundle.SupportRoleName)
		}},
		{Name: "map-roles", Run: func(ctx context.Context) error {
			return s.provider.SetRoleMappings(ctx, identity.RoleMapping{
				IdentityPoolID: bundle.IdentityPoolID,
				PoolID:         bundle.UserPoolID,
				ClientID:       bundle.ClientID,
				TrustRoleArn:   bundle.TrustRoleArn,
				Rules: []identity.ClaimRule{
					{Claim: "custom:role", Value: s.opts.AdminArchetype, RoleArn: bundle.AdminRoleArn},
					{Claim: "custom:role", Value: s.opts.SupportArchetype, RoleArn: bundle.SupportRoleArn},
				},
			})
		}},
	}

	outcomes := run(ctx, "provision", s.opts.StepTimeout, steps)
	if f, failed := failure(outcomes); failed {
		s.log.Errorw("provisioning failed", "tenant", user.TenantID, "step", f.Step, "err", f.Err)
		return tenants.Bundle{}, &PartialProvisioningFailure{
			TenantID:   user.TenantID,
			Completed:  completed(outcomes),
			FailedStep: f.Step,
			Err:        &ProviderError{Step: f.Step, Err: f.Err},
		}
	}
	s.log.Infow("tenant provisioned", "tenant", user.TenantID, "pool", bundle.UserPoolID)
	return bundle, nil
}

func policyName(tenantID, archetypeName string) string {
	return tenantID + "-" + archetypeName + "Policy"
}
