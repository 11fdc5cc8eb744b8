package authorizer

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeEndpoint(t *testing.T) {
	ti := newTestIssuer(t)

	r := chi.NewRouter()
	RegisterHTTP(r, newTestAuthorizer())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	body, _ := json.Marshal(Request{
		AuthorizationToken: "Bearer " + ti.signToken(t),
		MethodArn:          methodArn,
	})
	resp, err := http.Post(srv.URL+"/authorize", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var d Decision
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&d))
	assert.Equal(t, "sub-42", d.PrincipalID)
	assert.Equal(t, "T1", d.Context["tenant_id"])
}

func TestAuthorizeEndpointRejectsBadToken(t *testing.T) {
	r := chi.NewRouter()
	RegisterHTTP(r, newTestAuthorizer())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	body, _ := json.Marshal(Request{AuthorizationToken: "Bearer junk", MethodArn: methodArn})
	resp, err := http.Post(srv.URL+"/authorize", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))

	var prob map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&prob))
	assert.Contains(t, prob["type"], "malformed-token")
}
