// Package authn fronts the tenant directories: username/password sign-in
// routed by system-wide user lookup, and ID-token exchange for temporary
// role-scoped credentials.
package authn

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"idgate/internal/credentials"
	"idgate/internal/identity"
	"idgate/pkg/problems"
	"idgate/pkg/tenants"
)

// Service authenticates users against their tenant's directory pool.
type Service struct {
	dir    identity.Directory
	store  tenants.Store
	broker *credentials.Broker
	log    *zap.SugaredLogger
}

func NewService(dir identity.Directory, store tenants.Store, broker *credentials.Broker, log *zap.SugaredLogger) *Service {
	return &Service{dir: dir, store: store, broker: broker, log: log}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterHTTP mounts the sign-in and credential endpoints.
// POST /auth         body: { username, password } -> directory tokens
// POST /credentials  body: { identity_pool_id, pool_id, token } -> temporary credentials
func RegisterHTTP(r chi.Router, s *Service) {
	r.Post("/auth", func(w http.ResponseWriter, req *http.Request) {
		var in loginRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil || in.Username == "" || in.Password == "" {
			problems.Write(w, http.StatusBadRequest, "invalid-request", "Invalid request", "username and password are required")
			return
		}
		toks, u, err := s.Login(req.Context(), in.Username, in.Password)
		if errors.Is(err, tenants.ErrNotFound) {
			// Same response as a bad password: the endpoint never reveals
			// whether a username exists.
			problems.Write(w, http.StatusUnauthorized, "auth-failed", "Authentication failed", "invalid username or password")
			return
		}
		if err != nil {
			s.log.Warnw("sign-in rejected", "username", in.Username, "err", err)
			problems.Write(w, http.StatusUnauthorized, "auth-failed", "Authentication failed", "invalid username or password")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tokens":           toks,
			"tenant_id":        u.TenantID,
			"user_pool_id":     u.UserPoolID,
			"identity_pool_id": u.IdentityPoolID,
			"client_id":        u.ClientID,
		})
	})

	r.Post("/credentials", func(w http.ResponseWriter, req *http.Request) {
		var in credentials.Request
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil || in.IDToken == "" {
			problems.Write(w, http.StatusBadRequest, "invalid-request", "Invalid request", "identity_pool_id, pool_id and token are required")
			return
		}
		creds, err := s.broker.Issue(req.Context(), in)
		if err != nil {
			s.log.Warnw("credential exchange rejected", "err", err)
			problems.Write(w, http.StatusUnauthorized, "exchange-failed", "Credential exchange failed", "token not accepted by the federation broker")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(creds)
	})
}

// Login finds the user's directory pool system-wide and runs the password
// flow against it.
func (s *Service) Login(ctx context.Context, username, password string) (identity.Tokens, tenants.User, error) {
	u, err := s.store.LookupUserSystem(ctx, username)
	if err != nil {
		return identity.Tokens{}, tenants.User{}, err
	}
	toks, err := s.dir.AuthenticateUser(ctx, u.UserPoolID, u.ClientID, username, password)
	if err != nil {
		return identity.Tokens{}, tenants.User{}, err
	}
	return toks, u, nil
}
