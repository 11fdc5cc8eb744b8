package identity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cognitoidentity"
	"github.com/aws/aws-sdk-go/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go/service/iam"
	"go.uber.org/zap"

	"idgate/internal/archetype"
)

// AWSProvider implements Provider on Cognito user pools, Cognito identity
// pools and IAM.
type AWSProvider struct {
	idp       *cognitoidentityprovider.CognitoIdentityProvider
	fed       *cognitoidentity.CognitoIdentity
	iam       *iam.IAM
	region    string
	accountID string
	log       *zap.SugaredLogger
}

// NewAWSProvider builds the adapter from ambient AWS credentials.
func NewAWSProvider(region, accountID string, log *zap.SugaredLogger) *AWSProvider {
	sess := session.Must(session.NewSession(&aws.Config{Region: aws.String(region)}))
	return &AWSProvider{
		idp:       cognitoidentityprovider.New(sess),
		fed:       cognitoidentity.New(sess),
		iam:       iam.New(sess),
		region:    region,
		accountID: accountID,
		log:       log,
	}
}

// providerName is the login provider identity pools and token exchanges key on.
func (p *AWSProvider) providerName(poolID string) string {
	return "cognito-idp." + p.region + ".amazonaws.com/" + poolID
}

func (p *AWSProvider) CreatePool(ctx context.Context, tenantID string, schema PoolSchema) (Pool, error) {
	attrs := make([]*cognitoidentityprovider.SchemaAttributeType, 0, len(schema.Attributes))
	for _, a := range schema.Attributes {
		attrs = append(attrs, &cognitoidentityprovider.SchemaAttributeType{
			Name:                   aws.String(a.Name),
			AttributeDataType:      aws.String("String"),
			DeveloperOnlyAttribute: aws.Bool(false),
			Mutable:                aws.Bool(a.Mutable),
			Required:               aws.Bool(a.Required),
			StringAttributeConstraints: &cognitoidentityprovider.StringAttributeConstraintsType{
				MinLength: aws.String("1"),
				MaxLength: aws.String("256"),
			},
		})
	}
	out, err := p.idp.CreateUserPoolWithContext(ctx, &cognitoidentityprovider.CreateUserPoolInput{
		PoolName: aws.String(tenantID),
		AdminCreateUserConfig: &cognitoidentityprovider.AdminCreateUserConfigType{
			AllowAdminCreateUserOnly: aws.Bool(true),
		},
		AutoVerifiedAttributes: []*string{aws.String("email")},
		MfaConfiguration:       aws.String("OFF"),
		Policies: &cognitoidentityprovider.UserPoolPolicyType{
			PasswordPolicy: &cognitoidentityprovider.PasswordPolicyType{
				MinimumLength:    aws.Int64(int64(schema.PasswordMinLength)),
				RequireLowercase: aws.Bool(schema.RequireLowercase),
				RequireUppercase: aws.Bool(schema.RequireUppercase),
				RequireNumbers:   aws.Bool(schema.RequireNumbers),
				RequireSymbols:   aws.Bool(schema.RequireSymbols),
			},
		},
		Schema:       attrs,
		UserPoolTags: map[string]*string{"tenant": aws.String(tenantID)},
	})
	if err != nil {
		return Pool{}, err
	}
	return Pool{ID: aws.StringValue(out.UserPool.Id), Name: aws.StringValue(out.UserPool.Name)}, nil
}

func (p *AWSProvider) CreateClient(ctx context.Context, poolID, name string) (Client, error) {
	readAttrs := []string{
		"email", "family_name", "given_name", "preferred_username",
		"custom:tier", "custom:tenant_id", "custom:company_name",
		"custom:account_name", "custom:role",
	}
	writeAttrs := []string{
		"email", "family_name", "given_name", "preferred_username",
		"custom:tier", "custom:role",
	}
	out, err := p.idp.CreateUserPoolClientWithContext(ctx, &cognitoidentityprovider.CreateUserPoolClientInput{
		ClientName:        aws.String(name),
		UserPoolId:        aws.String(poolID),
		GenerateSecret:    aws.Bool(false),
		ReadAttributes:    aws.StringSlice(readAttrs),
		WriteAttributes:   aws.StringSlice(writeAttrs),
		ExplicitAuthFlows: aws.StringSlice([]string{"ALLOW_ADMIN_USER_PASSWORD_AUTH", "ALLOW_REFRESH_TOKEN_AUTH"}),
	})
	if err != nil {
		return Client{}, err
	}
	c := out.UserPoolClient
	return Client{ID: aws.StringValue(c.ClientId), Name: aws.StringValue(c.ClientName)}, nil
}

func (p *AWSProvider) CreateUser(ctx context.Context, poolID string, attrs UserAttributes) (string, error) {
	out, err := p.idp.AdminCreateUserWithContext(ctx, &cognitoidentityprovider.AdminCreateUserInput{
		UserPoolId:             aws.String(poolID),
		Username:               aws.String(attrs.Username),
		DesiredDeliveryMediums: []*string{aws.String("EMAIL")},
		ForceAliasCreation:     aws.Bool(true),
		UserAttributes: []*cognitoidentityprovider.AttributeType{
			{Name: aws.String("email"), Value: aws.String(attrs.Email)},
			{Name: aws.String("custom:tenant_id"), Value: aws.String(attrs.TenantID)},
			{Name: aws.String("given_name"), Value: aws.String(attrs.FirstName)},
			{Name: aws.String("family_name"), Value: aws.String(attrs.LastName)},
			{Name: aws.String("custom:role"), Value: aws.String(attrs.Role)},
			{Name: aws.String("custom:tier"), Value: aws.String(attrs.Tier)},
		},
	})
	if err != nil {
		return "", err
	}
	for _, a := range out.User.Attributes {
		if aws.StringValue(a.Name) == "sub" {
			return aws.StringValue(a.Value), nil
		}
	}
	return aws.StringValue(out.User.Username), nil
}

func (p *AWSProvider) AuthenticateUser(ctx context.Context, poolID, clientID, username, password string) (Tokens, error) {
	out, err := p.idp.AdminInitiateAuthWithContext(ctx, &cognitoidentityprovider.AdminInitiateAuthInput{
		UserPoolId: aws.String(poolID),
		ClientId:   aws.String(clientID),
		AuthFlow:   aws.String("ADMIN_USER_PASSWORD_AUTH"),
		AuthParameters: map[string]*string{
			"USERNAME": aws.String(username),
			"PASSWORD": aws.String(password),
		},
	})
	if err != nil {
		return Tokens{}, err
	}
	if out.AuthenticationResult == nil {
		return Tokens{}, fmt.Errorf("authentication challenge %q not supported", aws.StringValue(out.ChallengeName))
	}
	r := out.AuthenticationResult
	return Tokens{
		IDToken:      aws.StringValue(r.IdToken),
		AccessToken:  aws.StringValue(r.AccessToken),
		RefreshToken: aws.StringValue(r.RefreshToken),
	}, nil
}

func (p *AWSProvider) DeletePool(ctx context.Context, poolID string) error {
	_, err := p.idp.DeleteUserPoolWithContext(ctx, &cognitoidentityprovider.DeleteUserPoolInput{
		UserPoolId: aws.String(poolID),
	})
	return err
}

func (p *AWSProvider) CreateIdentityPool(ctx context.Context, clientID, poolID, name string) (string, error) {
	out, err := p.fed.CreateIdentityPoolWithContext(ctx, &cognitoidentity.CreateIdentityPoolInput{
		AllowUnauthenticatedIdentities: aws.Bool(false),
		IdentityPoolName:               aws.String(name),
		CognitoIdentityProviders: []*cognitoidentity.Provider{{
			ClientId:             aws.String(clientID),
			ProviderName:         aws.String(p.providerName(poolID)),
			ServerSideTokenCheck: aws.Bool(true),
		}},
	})
	if err != nil {
		return "", err
	}
	return aws.StringValue(out.IdentityPoolId), nil
}

func (p *AWSProvider) SetRoleMappings(ctx context.Context, m RoleMapping) error {
	rules := make([]*cognitoidentity.MappingRule, 0, len(m.Rules))
	for _, r := range m.Rules {
		rules = append(rules, &cognitoidentity.MappingRule{
			Claim:     aws.String(r.Claim),
			MatchType: aws.String("Equals"),
			RoleARN:   aws.String(r.RoleArn),
			Value:     aws.String(r.Value),
		})
	}
	provider := p.providerName(m.PoolID) + ":" + m.ClientID
	_, err := p.fed.SetIdentityPoolRolesWithContext(ctx, &cognitoidentity.SetIdentityPoolRolesInput{
		IdentityPoolId: aws.String(m.IdentityPoolID),
		Roles: map[string]*string{
			"authenticated": aws.String(m.TrustRoleArn),
		},
		RoleMappings: map[string]*cognitoidentity.RoleMapping{
			provider: {
				Type:                    aws.String("Rules"),
				AmbiguousRoleResolution: aws.String("Deny"),
				RulesConfiguration:      &cognitoidentity.RulesConfigurationType{Rules: rules},
			},
		},
	})
	return err
}

func (p *AWSProvider) DeleteIdentityPool(ctx context.Context, identityPoolID string) error {
	_, err := p.fed.DeleteIdentityPoolWithContext(ctx, &cognitoidentity.DeleteIdentityPoolInput{
		IdentityPoolId: aws.String(identityPoolID),
	})
	return err
}

func (p *AWSProvider) ResolveIdentity(ctx context.Context, identityPoolID, provider, idToken string) (string, error) {
	out, err := p.fed.GetIdWithContext(ctx, &cognitoidentity.GetIdInput{
		IdentityPoolId: aws.String(identityPoolID),
		AccountId:      aws.String(p.accountID),
		Logins:         map[string]*string{provider: aws.String(idToken)},
	})
	if err != nil {
		return "", err
	}
	return aws.StringValue(out.IdentityId), nil
}

func (p *AWSProvider) CredentialsForIdentity(ctx context.Context, identityID, provider, idToken string) (Credentials, error) {
	out, err := p.fed.GetCredentialsForIdentityWithContext(ctx, &cognitoidentity.GetCredentialsForIdentityInput{
		IdentityId: aws.String(identityID),
		Logins:     map[string]*string{provider: aws.String(idToken)},
	})
	if err != nil {
		return Credentials{}, err
	}
	c := out.Credentials
	creds := Credentials{
		AccessKeyID:  aws.StringValue(c.AccessKeyId),
		SecretKey:    aws.StringValue(c.SecretKey),
		SessionToken: aws.StringValue(c.SessionToken),
	}
	if c.Expiration != nil {
		creds.Expiration = *c.Expiration
	}
	return creds, nil
}

func (p *AWSProvider) CreatePolicy(ctx context.Context, name string, doc archetype.Document) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	out, err := p.iam.CreatePolicyWithContext(ctx, &iam.CreatePolicyInput{
		PolicyName:     aws.String(name),
		PolicyDocument: aws.String(string(b)),
		Description:    aws.String(name),
	})
	if err != nil {
		return "", err
	}
	return aws.StringValue(out.Policy.Arn), nil
}

func (p *AWSProvider) CreateRole(ctx context.Context, name string, trust archetype.Document) (Role, error) {
	b, err := json.Marshal(trust)
	if err != nil {
		return Role{}, err
	}
	out, err := p.iam.CreateRoleWithContext(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(name),
		AssumeRolePolicyDocument: aws.String(string(b)),
	})
	if err != nil {
		return Role{}, err
	}
	return Role{Arn: aws.StringValue(out.Role.Arn), Name: aws.StringValue(out.Role.RoleName)}, nil
}

func (p *AWSProvider) AttachRolePolicy(ctx context.Context, policyArn, roleName string) error {
	_, err := p.iam.AttachRolePolicyWithContext(ctx, &iam.AttachRolePolicyInput{
		PolicyArn: aws.String(policyArn),
		RoleName:  aws.String(roleName),
	})
	return err
}

func (p *AWSProvider) DetachRolePolicy(ctx context.Context, policyArn, roleName string) error {
	_, err := p.iam.DetachRolePolicyWithContext(ctx, &iam.DetachRolePolicyInput{
		PolicyArn: aws.String(policyArn),
		RoleName:  aws.String(roleName),
	})
	return err
}

func (p *AWSProvider) DeletePolicy(ctx context.Context, policyArn string) error {
	_, err := p.iam.DeletePolicyWithContext(ctx, &iam.DeletePolicyInput{
		PolicyArn: aws.String(policyArn),
	})
	return err
}

func (p *AWSProvider) DeleteRole(ctx context.Context, roleName string) error {
	_, err := p.iam.DeleteRoleWithContext(ctx, &iam.DeleteRoleInput{
		RoleName: aws.String(roleName),
	})
	return err
}

var _ Provider = (*AWSProvider)(nil)
