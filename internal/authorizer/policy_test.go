package authorizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScope() APIScope {
	return APIScope{Region: "us-east-1", RestAPIID: "api1", Stage: "prod"}
}

func TestBuildEmptyPolicy(t *testing.T) {
	pb := NewPolicyBuilder("sub-1", "123456789012", testScope())
	_, err := pb.Build()
	assert.ErrorIs(t, err, ErrEmptyPolicy)
}

func TestAddMethodValidation(t *testing.T) {
	pb := NewPolicyBuilder("sub-1", "123456789012", testScope())

	err := pb.AddMethod(Allow, "FETCH", "/things", nil)
	assert.ErrorIs(t, err, ErrInvalidVerb)

	err = pb.AddMethod(Allow, "GET", "/things?id=1", nil)
	assert.ErrorIs(t, err, ErrInvalidResourcePath)
}

func TestAllowAllMethods(t *testing.T) {
	pb := NewPolicyBuilder("sub-1", "123456789012", testScope())
	pb.AllowAllMethods()

	d, err := pb.Build()
	require.NoError(t, err)

	assert.Equal(t, "sub-1", d.PrincipalID)
	require.Len(t, d.PolicyDocument.Statement, 1)
	st := d.PolicyDocument.Statement[0]
	assert.Equal(t, "Allow", st.Effect)
	assert.Equal(t, []string{"execute-api:Invoke"}, st.Action)
	assert.Equal(t, []string{"arn:aws:execute-api:us-east-1:123456789012:api1/prod/*/*"}, st.Resource)
}

func TestLeadingSlashStripped(t *testing.T) {
	pb := NewPolicyBuilder("sub-1", "123456789012", testScope())
	require.NoError(t, pb.AddMethod(Allow, "GET", "/things", nil))

	d, err := pb.Build()
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"arn:aws:execute-api:us-east-1:123456789012:api1/prod/GET/things"},
		d.PolicyDocument.Statement[0].Resource)
}

func TestEmptyScopeWidensToWildcards(t *testing.T) {
	pb := NewPolicyBuilder("sub-1", "*", APIScope{})
	require.NoError(t, pb.AddMethod(Allow, "GET", "things", nil))

	d, err := pb.Build()
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"arn:aws:execute-api:*:*:*/*/GET/things"},
		d.PolicyDocument.Statement[0].Resource)
}

func TestUnconditionalMethodsAggregate(t *testing.T) {
	pb := NewPolicyBuilder("sub-1", "123456789012", testScope())
	require.NoError(t, pb.AddMethod(Allow, "GET", "/a", nil))
	require.NoError(t, pb.AddMethod(Allow, "POST", "/b", nil))

	d, err := pb.Build()
	require.NoError(t, err)
	require.Len(t, d.PolicyDocument.Statement, 1)
	assert.Equal(t, []string{
		"arn:aws:execute-api:us-east-1:123456789012:api1/prod/GET/a",
		"arn:aws:execute-api:us-east-1:123456789012:api1/prod/POST/b",
	}, d.PolicyDocument.Statement[0].Resource)
}

func TestConditionalMethodsGetOwnStatements(t *testing.T) {
	cond := Condition{"StringEquals": {"aws:SourceIp": {"10.0.0.1"}}}

	pb := NewPolicyBuilder("sub-1", "123456789012", testScope())
	require.NoError(t, pb.AddMethod(Allow, "GET", "/a", nil))
	require.NoError(t, pb.AddMethod(Allow, "DELETE", "/a", cond))

	d, err := pb.Build()
	require.NoError(t, err)
	require.Len(t, d.PolicyDocument.Statement, 2)

	// Conditional statements come first, then the aggregate.
	assert.NotEmpty(t, d.PolicyDocument.Statement[0].Condition)
	assert.Equal(t,
		[]string{"arn:aws:execute-api:us-east-1:123456789012:api1/prod/DELETE/a"},
		d.PolicyDocument.Statement[0].Resource)
	assert.Empty(t, d.PolicyDocument.Statement[1].Condition)
}

func TestAllowStatementsPrecedeDeny(t *testing.T) {
	pb := NewPolicyBuilder("sub-1", "123456789012", testScope())
	pb.DenyAllMethods()
	require.NoError(t, pb.AddMethod(Allow, "GET", "/public", nil))

	d, err := pb.Build()
	require.NoError(t, err)
	require.Len(t, d.PolicyDocument.Statement, 2)
	assert.Equal(t, "Allow", d.PolicyDocument.Statement[0].Effect)
	assert.Equal(t, "Deny", d.PolicyDocument.Statement[1].Effect)
}
