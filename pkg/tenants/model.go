package tenants

// Bundle is the complete identity environment provisioned for one tenant.
// Fields populate strictly in creation order during provisioning; the bundle
// is complete only when every field is set.
type Bundle struct {
	TenantID string `json:"tenant_id"`

	UserPoolID     string `json:"user_pool_id"`
	UserPoolName   string `json:"user_pool_name"`
	ClientID       string `json:"client_id"`
	IdentityPoolID string `json:"identity_pool_id"`

	AdminRoleName string `json:"admin_role_name"`
	AdminRoleArn  string `json:"admin_role_arn"`

	SupportRoleName string `json:"support_role_name"`
	SupportRoleArn  string `json:"support_role_arn"`

	TrustRoleName string `json:"trust_role_name"`
	TrustRoleArn  string `json:"trust_role_arn"`

	AdminPolicyArn   string `json:"admin_policy_arn"`
	SupportPolicyArn string `json:"support_policy_arn"`

	AdminUsername string `json:"admin_username"`
}

// Tenant is the business record saved alongside a bundle.
type Tenant struct {
	ID          string `json:"id"`
	CompanyName string `json:"company_name"`
	AccountName string `json:"account_name"`
	OwnerName   string `json:"owner_name"`
	Tier        string `json:"tier"`
	Email       string `json:"email"`
	Status      string `json:"status"`
	Bundle      Bundle `json:"bundle"`
}

// User is a directory user record mirrored into the inventory. The directory
// itself remains the source of truth for credentials and status.
type User struct {
	TenantID  string `json:"tenant_id"`
	Username  string `json:"username"`
	SubjectID string `json:"subject_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Tier      string `json:"tier"`

	UserPoolID     string `json:"user_pool_id"`
	IdentityPoolID string `json:"identity_pool_id"`
	ClientID       string `json:"client_id"`
}
