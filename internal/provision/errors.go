package provision

import (
	"errors"
	"fmt"
)

// ErrAlreadyExists is returned by the provisioning existence guard when the
// admin username is already known system-wide.
var ErrAlreadyExists = errors.New("user already exists")

// ProviderError wraps a failed capability call with the step it served.
type ProviderError struct {
	Step string
	Err  error
}

func (e *ProviderError) Error() string { return fmt.Sprintf("step %s: %v", e.Step, e.Err) }
func (e *ProviderError) Unwrap() error { return e.Err }

// PartialProvisioningFailure reports a provisioning saga that stopped
// mid-chain. Resources created by completed steps are NOT reverted; the
// batch teardown saga is the cleanup path.
type PartialProvisioningFailure struct {
	TenantID   string
	Completed  []string
	FailedStep string
	Err        error
}

func (e *PartialProvisioningFailure) Error() string {
	return fmt.Sprintf("provisioning tenant %s failed at step %s after %d completed steps: %v",
		e.TenantID, e.FailedStep, len(e.Completed), e.Err)
}
func (e *PartialProvisioningFailure) Unwrap() error { return e.Err }

// PartialTeardownFailure reports a teardown batch that stopped inside one
// bundle. Remaining steps of that bundle and all later bundles were not
// attempted.
type PartialTeardownFailure struct {
	BundleID   string
	FailedStep string
	Err        error
}

func (e *PartialTeardownFailure) Error() string {
	return fmt.Sprintf("teardown of tenant %s failed at step %s: %v", e.BundleID, e.FailedStep, e.Err)
}
func (e *PartialTeardownFailure) Unwrap() error { return e.Err }
