package authorizer

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"idgate/internal/keyset"
)

// testIssuer is a live JWKS endpoint plus the private key that signs
// tokens claiming it as iss.
type testIssuer struct {
	srv *httptest.Server
	key jwk.Key // private, kid "test-key"
}

func newTestIssuer(t *testing.T) *testIssuer {
	t.Helper()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	priv, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, priv.Set(jwk.KeyIDKey, "test-key"))
	require.NoError(t, priv.Set(jwk.AlgorithmKey, jwa.RS256))

	pub, err := priv.PublicKey()
	require.NoError(t, err)
	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(srv.Close)

	return &testIssuer{srv: srv, key: priv}
}

// issuerURL is what lands in iss; the pool id is its last path segment.
func (ti *testIssuer) issuerURL() string { return ti.srv.URL + "/pool-1" }

type claimsOverride func(b *jwt.Builder)

func (ti *testIssuer) signToken(t *testing.T, overrides ...claimsOverride) string {
	t.Helper()
	b := jwt.NewBuilder().
		Issuer(ti.issuerURL()).
		Subject("sub-42").
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(time.Hour)).
		Claim("token_use", "id").
		Claim("custom:tenant_id", "T1").
		Claim("cognito:username", "alice").
		Claim("given_name", "Alice").
		Claim("family_name", "Smith").
		Claim("custom:role", "TenantAdmin")
	for _, o := range overrides {
		o(b)
	}
	tok, err := b.Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, ti.key))
	require.NoError(t, err)
	return string(signed)
}

func newTestAuthorizer() *Authorizer {
	return New(keyset.New(0), zap.NewNop().Sugar())
}

const methodArn = "arn:aws:execute-api:us-east-1:123456789012:api1/prod/GET/tenants"

func TestAuthorizeValidToken(t *testing.T) {
	ti := newTestIssuer(t)
	a := newTestAuthorizer()

	d, err := a.Authorize(context.Background(), Request{
		AuthorizationToken: "Bearer " + ti.signToken(t),
		MethodArn:          methodArn,
	})
	require.NoError(t, err)

	assert.Equal(t, "sub-42", d.PrincipalID)
	require.Len(t, d.PolicyDocument.Statement, 1)
	st := d.PolicyDocument.Statement[0]
	assert.Equal(t, "Allow", st.Effect)
	assert.Equal(t, []string{"arn:aws:execute-api:us-east-1:123456789012:api1/prod/*/*"}, st.Resource)

	assert.Equal(t, map[string]string{
		"tenant_id":   "T1",
		"sub":         "sub-42",
		"username":    "alice",
		"given_name":  "Alice",
		"family_name": "Smith",
		"role":        "TenantAdmin",
		"userPoolId":  "pool-1",
	}, d.Context)
}

func TestAuthorizeBareTokenWithoutScheme(t *testing.T) {
	ti := newTestIssuer(t)
	a := newTestAuthorizer()

	_, err := a.Authorize(context.Background(), Request{
		AuthorizationToken: ti.signToken(t),
		MethodArn:          methodArn,
	})
	assert.NoError(t, err)
}

func TestAuthorizeMalformedToken(t *testing.T) {
	a := newTestAuthorizer()

	for _, raw := range []string{"", "Bearer ", "Bearer not.a.jwt", "garbage"} {
		_, err := a.Authorize(context.Background(), Request{
			AuthorizationToken: raw,
			MethodArn:          methodArn,
		})
		assert.ErrorIs(t, err, ErrMalformedToken, "token %q", raw)
	}
}

func TestAuthorizeRejectsAccessToken(t *testing.T) {
	ti := newTestIssuer(t)
	a := newTestAuthorizer()

	tok := ti.signToken(t, func(b *jwt.Builder) {
		b.Claim("token_use", "access")
	})
	_, err := a.Authorize(context.Background(), Request{AuthorizationToken: tok, MethodArn: methodArn})
	assert.ErrorIs(t, err, ErrWrongTokenUse)
}

func TestAuthorizeUnknownKid(t *testing.T) {
	ti := newTestIssuer(t)
	a := newTestAuthorizer()

	// A second issuer's key signs a token claiming the first issuer. Its kid
	// is absent from the first issuer's published set.
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, other.Set(jwk.KeyIDKey, "rogue-key"))

	tok, err := jwt.NewBuilder().
		Issuer(ti.issuerURL()).
		Subject("sub-42").
		Expiration(time.Now().Add(time.Hour)).
		Claim("token_use", "id").
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, other))
	require.NoError(t, err)

	_, err = a.Authorize(context.Background(), Request{AuthorizationToken: string(signed), MethodArn: methodArn})
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestAuthorizeForgedSignature(t *testing.T) {
	ti := newTestIssuer(t)
	a := newTestAuthorizer()

	// Same kid as the published key, different private key.
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	forged, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, forged.Set(jwk.KeyIDKey, "test-key"))

	tok, err := jwt.NewBuilder().
		Issuer(ti.issuerURL()).
		Subject("sub-42").
		Expiration(time.Now().Add(time.Hour)).
		Claim("token_use", "id").
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, forged))
	require.NoError(t, err)

	_, err = a.Authorize(context.Background(), Request{AuthorizationToken: string(signed), MethodArn: methodArn})
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestAuthorizeExpiredToken(t *testing.T) {
	ti := newTestIssuer(t)
	a := newTestAuthorizer()

	tok := ti.signToken(t, func(b *jwt.Builder) {
		b.Expiration(time.Now().Add(-time.Minute))
	})
	_, err := a.Authorize(context.Background(), Request{AuthorizationToken: tok, MethodArn: methodArn})
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestAuthorizeKeySetUnavailable(t *testing.T) {
	ti := newTestIssuer(t)
	tok := ti.signToken(t)
	ti.srv.Close()

	a := newTestAuthorizer()
	_, err := a.Authorize(context.Background(), Request{AuthorizationToken: tok, MethodArn: methodArn})
	assert.ErrorIs(t, err, keyset.ErrKeySetUnavailable)
}

func TestParseMethodArn(t *testing.T) {
	account, scope := parseMethodArn(methodArn)
	assert.Equal(t, "123456789012", account)
	assert.Equal(t, APIScope{Region: "us-east-1", RestAPIID: "api1", Stage: "prod"}, scope)

	account, scope = parseMethodArn("not-an-arn")
	assert.Equal(t, "*", account)
	assert.Equal(t, APIScope{}, scope)
}
