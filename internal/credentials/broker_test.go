package credentials

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"idgate/internal/identity"
)

type fakeFederation struct {
	resolves  int
	exchanges int
	err       error
	expiresIn time.Duration
}

func (f *fakeFederation) CreateIdentityPool(context.Context, string, string, string) (string, error) {
	return "", errors.New("not implemented")
}
func (f *fakeFederation) SetRoleMappings(context.Context, identity.RoleMapping) error {
	return errors.New("not implemented")
}
func (f *fakeFederation) DeleteIdentityPool(context.Context, string) error {
	return errors.New("not implemented")
}

func (f *fakeFederation) ResolveIdentity(_ context.Context, _, provider, _ string) (string, error) {
	f.resolves++
	if f.err != nil {
		return "", f.err
	}
	return "identity-" + provider, nil
}

func (f *fakeFederation) CredentialsForIdentity(_ context.Context, identityID, _, _ string) (identity.Credentials, error) {
	f.exchanges++
	if f.err != nil {
		return identity.Credentials{}, f.err
	}
	return identity.Credentials{
		AccessKeyID: "AKIA" + identityID,
		SecretKey:   "secret",
		Expiration:  time.Now().Add(f.expiresIn),
	}, nil
}

func testRequest() Request {
	return Request{
		IdentityPoolID: "us-east-1:ip-1",
		PoolID:         "pool-1",
		IDToken:        "header.payload.sig",
	}
}

func TestIssueExchangesAndCaches(t *testing.T) {
	fed := &fakeFederation{expiresIn: time.Hour}
	b := NewBroker(fed, nil, "us-east-1", zap.NewNop().Sugar())

	first, err := b.Issue(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "AKIAidentity-cognito-idp.us-east-1.amazonaws.com/pool-1", first.AccessKeyID)

	second, err := b.Issue(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// The second call is served from cache.
	assert.Equal(t, 1, fed.resolves)
	assert.Equal(t, 1, fed.exchanges)
}

func TestIssueDistinctTokensDoNotShareCache(t *testing.T) {
	fed := &fakeFederation{expiresIn: time.Hour}
	b := NewBroker(fed, nil, "us-east-1", zap.NewNop().Sugar())

	_, err := b.Issue(context.Background(), testRequest())
	require.NoError(t, err)

	other := testRequest()
	other.IDToken = "another.token.sig"
	_, err = b.Issue(context.Background(), other)
	require.NoError(t, err)

	assert.Equal(t, 2, fed.exchanges)
}

func TestIssueNearExpiryBypassesCache(t *testing.T) {
	// Credentials expiring inside the slack window are never cached, so
	// every call re-exchanges.
	fed := &fakeFederation{expiresIn: 5 * time.Second}
	b := NewBroker(fed, nil, "us-east-1", zap.NewNop().Sugar())

	_, err := b.Issue(context.Background(), testRequest())
	require.NoError(t, err)
	_, err = b.Issue(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, 2, fed.exchanges)
}

func TestIssueMissingToken(t *testing.T) {
	b := NewBroker(&fakeFederation{}, nil, "us-east-1", zap.NewNop().Sugar())
	_, err := b.Issue(context.Background(), Request{IdentityPoolID: "ip", PoolID: "pool"})
	assert.Error(t, err)
}

func TestIssueFederationFailure(t *testing.T) {
	fed := &fakeFederation{err: errors.New("token not accepted")}
	b := NewBroker(fed, nil, "us-east-1", zap.NewNop().Sugar())
	_, err := b.Issue(context.Background(), testRequest())
	assert.Error(t, err)
}
