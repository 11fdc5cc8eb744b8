package provision

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idgate/pkg/problems"
	"idgate/pkg/tenants"
)

// RegisterHTTP mounts the tenant lifecycle endpoints.
// POST   /tenants               body: AdminUser       -> provision a tenant
// GET    /tenants/system                              -> list all tenants
// DELETE /tenants               body: { tenant_ids }  -> batch teardown
// GET    /users/pool/{username}                       -> directory routing info
func RegisterHTTP(r chi.Router, svc *Service, store tenants.Store) {
	r.Post("/tenants", func(w http.ResponseWriter, req *http.Request) {
		var user AdminUser
		if err := json.NewDecoder(req.Body).Decode(&user); err != nil {
			problems.Write(w, http.StatusBadRequest, "invalid-request", "Invalid request", "body must be a JSON admin user")
			return
		}
		if user.TenantID == "" || user.Username == "" {
			problems.Write(w, http.StatusBadRequest, "invalid-request", "Invalid request", "tenant_id and username are required")
			return
		}
		bundle, err := svc.Provision(req.Context(), user)
		if err != nil {
			writeProvisionError(w, err)
			return
		}
		t := tenants.Tenant{
			ID:          user.TenantID,
			CompanyName: user.CompanyName,
			AccountName: user.AccountName,
			OwnerName:   user.OwnerName,
			Tier:        user.Tier,
			Email:       user.Email,
			Status:      "active",
			Bundle:      bundle,
		}
		if err := store.SaveTenant(req.Context(), t); err != nil {
			problems.Write(w, http.StatusInternalServerError, "persist-failed", "Tenant not persisted", err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(t)
	})

	r.Get("/tenants/system", func(w http.ResponseWriter, req *http.Request) {
		all, err := store.ListTenants(req.Context())
		if err != nil {
			problems.Write(w, http.StatusInternalServerError, "list-failed", "Tenant listing failed", err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(all)
	})

	r.Delete("/tenants", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			TenantIDs []string `json:"tenant_ids"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil || len(body.TenantIDs) == 0 {
			problems.Write(w, http.StatusBadRequest, "invalid-request", "Invalid request", "tenant_ids is required")
			return
		}
		bundles := make([]tenants.Bundle, 0, len(body.TenantIDs))
		for _, id := range body.TenantIDs {
			t, err := store.GetTenant(req.Context(), id)
			if errors.Is(err, tenants.ErrNotFound) {
				problems.Write(w, http.StatusNotFound, "tenant-not-found", "Tenant not found", id)
				return
			}
			if err != nil {
				problems.Write(w, http.StatusInternalServerError, "lookup-failed", "Tenant lookup failed", err.Error())
				return
			}
			bundles = append(bundles, t.Bundle)
		}
		if err := svc.Teardown(req.Context(), bundles); err != nil {
			var ptf *PartialTeardownFailure
			if errors.As(err, &ptf) {
				w.Header().Set("Content-Type", "application/problem+json")
				w.WriteHeader(http.StatusConflict)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"type":        problems.Type("teardown-incomplete"),
					"title":       "Teardown incomplete",
					"status":      http.StatusConflict,
					"tenant_id":   ptf.BundleID,
					"failed_step": ptf.FailedStep,
					"detail":      ptf.Err.Error(),
				})
				return
			}
			problems.Write(w, http.StatusInternalServerError, "teardown-failed", "Teardown failed", err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/users/pool/{username}", func(w http.ResponseWriter, req *http.Request) {
		username := chi.URLParam(req, "username")
		u, err := store.LookupUserSystem(req.Context(), username)
		if errors.Is(err, tenants.ErrNotFound) {
			problems.Write(w, http.StatusNotFound, "user-not-found", "User not found", username)
			return
		}
		if err != nil {
			problems.Write(w, http.StatusInternalServerError, "lookup-failed", "User lookup failed", err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"tenant_id":        u.TenantID,
			"user_pool_id":     u.UserPoolID,
			"identity_pool_id": u.IdentityPoolID,
			"client_id":        u.ClientID,
		})
	})
}

func writeProvisionError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrAlreadyExists) {
		problems.Write(w, http.StatusConflict, "user-exists", "User already exists", "the requested admin username is taken")
		return
	}
	var ppf *PartialProvisioningFailure
	if errors.As(err, &ppf) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":        problems.Type("provisioning-incomplete"),
			"title":       "Provisioning incomplete",
			"status":      http.StatusBadGateway,
			"tenant_id":   ppf.TenantID,
			"completed":   ppf.Completed,
			"failed_step": ppf.FailedStep,
			"detail":      ppf.Err.Error(),
		})
		return
	}
	problems.Write(w, http.StatusInternalServerError, "provisioning-failed", "Provisioning failed", err.Error())
}
