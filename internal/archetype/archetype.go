// Package archetype generates the least-privilege policy documents attached
// to tenant roles. The four archetypes are a closed set; adding one means
// extending the switch in Document.
package archetype

import "fmt"

// Archetype selects one of the fixed role templates.
type Archetype int

const (
	SystemAdmin Archetype = iota
	SystemUser
	TenantAdmin
	TenantUser
)

var names = map[Archetype]string{
	SystemAdmin: "SystemAdmin",
	SystemUser:  "SystemUser",
	TenantAdmin: "TenantAdmin",
	TenantUser:  "TenantUser",
}

func (a Archetype) String() string { return names[a] }

// Parse maps a role archetype name to its Archetype.
func Parse(s string) (Archetype, error) {
	for a, n := range names {
		if n == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown archetype %q", s)
}

// Params feed the policy templates. All documents are pure functions of
// these values.
type Params struct {
	TenantID       string
	AccountID      string
	Region         string
	TenantTableArn string
	UserTableArn   string
	DirectoryArn   string
}

const Version = "2012-10-17"

// Document is an IAM-style policy document.
type Document struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// Statement is one entry of a Document.
type Statement struct {
	Sid       string                         `json:"Sid,omitempty"`
	Effect    string                         `json:"Effect"`
	Principal map[string]string              `json:"Principal,omitempty"`
	Action    []string                       `json:"Action"`
	Resource  []string                       `json:"Resource,omitempty"`
	Condition map[string]map[string][]string `json:"Condition,omitempty"`
}

// DirectoryArn assembles the ARN of a tenant's directory pool.
func DirectoryArn(region, accountID, poolID string) string {
	return "arn:aws:cognito-idp:" + region + ":" + accountID + ":userpool/" + poolID
}

// leadingKey restricts item-level access to rows whose partition key equals
// the caller's tenant id.
func leadingKey(tenantID string) map[string]map[string][]string {
	return map[string]map[string][]string{
		"ForAllValues:StringEquals": {
			"dynamodb:LeadingKeys": {tenantID},
		},
	}
}

// Document returns the archetype's policy document for the given params.
func (a Archetype) Document(p Params) Document {
	switch a {
	case SystemAdmin:
		return systemAdmin(p)
	case SystemUser:
		return systemUser(p)
	case TenantAdmin:
		return tenantAdmin(p)
	case TenantUser:
		return tenantUser(p)
	default:
		panic(fmt.Sprintf("archetype: unknown archetype %d", int(a)))
	}
}

// Trust returns the trust-policy document for the given federated identity
// pool: only the federation broker may assume the role, the audience must be
// the identity pool, and the authenticated amr claim is required.
func Trust(identityPoolID string) Document {
	return Document{
		Version: Version,
		Statement: []Statement{{
			Effect:    "Allow",
			Principal: map[string]string{"Federated": "cognito-identity.amazonaws.com"},
			Action:    []string{"sts:AssumeRoleWithWebIdentity"},
			Condition: map[string]map[string][]string{
				"StringEquals": {
					"cognito-identity.amazonaws.com:aud": {identityPoolID},
				},
				"ForAnyValue:StringLike": {
					"cognito-identity.amazonaws.com:amr": {"authenticated"},
				},
			},
		}},
	}
}

func systemAdmin(p Params) Document {
	return Document{
		Version: Version,
		Statement: []Statement{
			{
				Sid:      "SystemAdminTenantTable",
				Effect:   "Allow",
				Action:   []string{"dynamodb:*"},
				Resource: []string{p.TenantTableArn},
			},
			{
				Sid:      "SystemAdminUserTable",
				Effect:   "Allow",
				Action:   []string{"dynamodb:*"},
				Resource: []string{p.UserTableArn, p.UserTableArn + "/*"},
			},
			{
				Sid:      "FullFederatedIdentityAccess",
				Effect:   "Allow",
				Action:   []string{"cognito-identity:*"},
				Resource: []string{"*"},
			},
			{
				Sid:      "FullDirectoryAccess",
				Effect:   "Allow",
				Action:   []string{"cognito-idp:*"},
				Resource: []string{"*"},
			},
		},
	}
}

func systemUser(p Params) Document {
	readOnlyTable := []string{
		"dynamodb:GetItem",
		"dynamodb:BatchGetItem",
		"dynamodb:Scan",
		"dynamodb:Query",
		"dynamodb:DescribeTable",
	}
	return Document{
		Version: Version,
		Statement: []Statement{
			{
				Sid:      "SystemUserTenantTable",
				Effect:   "Allow",
				Action:   readOnlyTable,
				Resource: []string{p.TenantTableArn},
			},
			{
				Sid:      "SystemUserUserTable",
				Effect:   "Allow",
				Action:   readOnlyTable,
				Resource: []string{p.UserTableArn},
			},
			{
				Sid:    "ReadFederatedIdentityAccess",
				Effect: "Allow",
				Action: []string{
					"cognito-identity:DescribeIdentity",
					"cognito-identity:DescribeIdentityPool",
					"cognito-identity:GetIdentityPoolRoles",
					"cognito-identity:ListIdentities",
					"cognito-identity:ListIdentityPools",
					"cognito-identity:LookupDeveloperIdentity",
				},
				Resource: []string{"*"},
			},
			{
				Sid:    "ReadDirectoryAccess",
				Effect: "Allow",
				Action: []string{
					"cognito-idp:AdminGetDevice",
					"cognito-idp:AdminGetUser",
					"cognito-idp:AdminListDevices",
					"cognito-idp:AdminListGroupsForUser",
					"cognito-idp:DescribeUserImportJob",
					"cognito-idp:DescribeUserPool",
					"cognito-idp:DescribeUserPoolClient",
					"cognito-idp:GetGroup",
					"cognito-idp:ListGroups",
					"cognito-idp:ListUserImportJobs",
					"cognito-idp:ListUserPoolClients",
					"cognito-idp:ListUserPools",
					"cognito-idp:ListUsers",
					"cognito-idp:ListUsersInGroup",
				},
				Resource: []string{"*"},
			},
		},
	}
}

func tenantAdmin(p Params) Document {
	return Document{
		Version: Version,
		Statement: []Statement{
			{
				Sid:    "TenantAdminUserTable",
				Effect: "Allow",
				Action: []string{
					"dynamodb:GetItem",
					"dynamodb:BatchGetItem",
					"dynamodb:Query",
					"dynamodb:PutItem",
					"dynamodb:UpdateItem",
					"dynamodb:DeleteItem",
					"dynamodb:BatchWriteItem",
					"dynamodb:DescribeTable",
				},
				Resource:  []string{p.UserTableArn, p.UserTableArn + "/*"},
				Condition: leadingKey(p.TenantID),
			},
			{
				Sid:    "TenantAdminDirectoryAccess",
				Effect: "Allow",
				Action: []string{
					"cognito-idp:AdminCreateUser",
					"cognito-idp:AdminDeleteUser",
					"cognito-idp:AdminDisableUser",
					"cognito-idp:AdminEnableUser",
					"cognito-idp:AdminGetUser",
					"cognito-idp:ListUsers",
					"cognito-idp:AdminUpdateUserAttributes",
				},
				Resource: []string{p.DirectoryArn},
			},
		},
	}
}

func tenantUser(p Params) Document {
	return Document{
		Version: Version,
		Statement: []Statement{
			{
				Sid:    "TenantUserReadOnlyUserTable",
				Effect: "Allow",
				Action: []string{
					"dynamodb:GetItem",
					"dynamodb:BatchGetItem",
					"dynamodb:Query",
					"dynamodb:DescribeTable",
				},
				Resource:  []string{p.UserTableArn, p.UserTableArn + "/*"},
				Condition: leadingKey(p.TenantID),
			},
			{
				Sid:    "TenantUserDirectoryAccess",
				Effect: "Allow",
				Action: []string{
					"cognito-idp:AdminGetUser",
					"cognito-idp:ListUsers",
				},
				Resource: []string{p.DirectoryArn},
			},
		},
	}
}
