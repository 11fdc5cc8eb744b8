package provision

import (
	"context"

	"idgate/pkg/tenants"
)

// Teardown reverses provisioning for the given bundles, strictly in series:
// each bundle's full chain finishes before the next bundle starts, and the
// first failing step aborts the remainder of the whole batch. Completed
// steps of the failed bundle are not compensated.
func (s *Service) Teardown(ctx context.Context, bundles []tenants.Bundle) error {
	for _, b := range bundles {
		if err := s.teardownOne(ctx, b); err != nil {
			return err
		}
		if err := s.store.DeleteTenant(ctx, b.TenantID); err != nil {
			s.log.Warnw("tenant record not removed", "tenant", b.TenantID, "err", err)
		}
		s.log.Infow("tenant torn down", "tenant", b.TenantID)
	}
	return nil
}

func (s *Service) teardownOne(ctx context.Context, b tenants.Bundle) error {
	if s.opts.SagaTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.SagaTimeout)
		defer cancel()
	}

	steps := []Step{
		{Name: "delete-directory-pool", Run: func(ctx context.Context) error {
			return s.provider.DeletePool(ctx, b.UserPoolID)
		}},
		{Name: "delete-identity-pool", Run: func(ctx context.Context) error {
			return s.provider.DeleteIdentityPool(ctx, b.IdentityPoolID)
		}},
		{Name: "detach-admin-policy", Run: func(ctx context.Context) error {
			return s.provider.DetachRolePolicy(ctx, b.AdminPolicyArn, b.AdminRoleName)
		}},
		{Name: "detach-support-policy", Run: func(ctx context.Context) error {
			return s.provider.DetachRolePolicy(ctx, b.SupportPolicyArn, b.SupportRoleName)
		}},
		{Name: "delete-admin-policy", Run: func(ctx context.Context) error {
			return s.provider.DeletePolicy(ctx, b.AdminPolicyArn)
		}},
		{Name: "delete-support-policy", Run: func(ctx context.Context) error {
			return s.provider.DeletePolicy(ctx, b.SupportPolicyArn)
		}},
		{Name: "delete-admin-role", Run: func(ctx context.Context) error {
			return s.provider.DeleteRole(ctx, b.AdminRoleName)
		}},
		{Name: "delete-support-role", Run: func(ctx context.Context) error {
			return s.provider.DeleteRole(ctx, b.SupportRoleName)
		}},
		{Name: "delete-trust-role", Run: func(ctx context.Context) error {
			return s.provider.DeleteRole(ctx, b.TrustRoleName)
		}},
	}

	outcomes := run(ctx, "teardown", s.opts.StepTimeout, steps)
	if f, failed := failure(outcomes); failed {
		s.log.Errorw("teardown failed", "tenant", b.TenantID, "step", f.Step, "err", f.Err)
		return &PartialTeardownFailure{
			BundleID:   b.TenantID,
			FailedStep: f.Step,
			Err:        &ProviderError{Step: f.Step, Err: f.Err},
		}
	}
	return nil
}
