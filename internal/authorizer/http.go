package authorizer

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idgate/pkg/problems"
)

// RegisterHTTP mounts the decision endpoint.
// POST /authorize  body: { authorizationToken, methodArn }
func RegisterHTTP(r chi.Router, a *Authorizer) {
	r.Post("/authorize", func(w http.ResponseWriter, req *http.Request) {
		var in Request
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			problems.Write(w, http.StatusBadRequest, "invalid-request", "Invalid request", "body must be a JSON authorizer event")
			return
		}
		dec, err := a.Authorize(req.Context(), in)
		if err != nil {
			writeDenied(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(dec)
	})
}

// writeDenied maps the verification chain's failure modes onto problem
// slugs. Every failure is a 401: the caller learns the category but not
// which check tripped inside it.
func writeDenied(w http.ResponseWriter, err error) {
	slug := "unauthorized"
	switch {
	case errors.Is(err, ErrMalformedToken):
		slug = "malformed-token"
	case errors.Is(err, ErrSignatureInvalid):
		slug = "invalid-signature"
	case errors.Is(err, ErrWrongTokenUse):
		slug = "wrong-token-use"
	case errors.Is(err, ErrInvalidVerb), errors.Is(err, ErrInvalidResourcePath):
		slug = "invalid-method-arn"
	}
	problems.Write(w, http.StatusUnauthorized, slug, "Unauthorized", "token rejected")
}
