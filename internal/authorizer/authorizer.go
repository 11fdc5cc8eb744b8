// Package authorizer turns bearer tokens into scoped access decisions.
package authorizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"go.uber.org/zap"

	"idgate/internal/keyset"
	"idgate/pkg/metrics"
)

// Request mirrors the API-gateway authorizer event.
type Request struct {
	AuthorizationToken string `json:"authorizationToken"`
	MethodArn          string `json:"methodArn"`
}

// Authorizer verifies bearer tokens against per-issuer key sets and
// synthesizes one decision per request.
type Authorizer struct {
	keys *keyset.Resolver
	log  *zap.SugaredLogger
}

func New(keys *keyset.Resolver, log *zap.SugaredLogger) *Authorizer {
	return &Authorizer{keys: keys, log: log}
}

// Authorize runs the full verification chain. A returned error is terminal
// for the request; no decision accompanies it and no retry is made.
func (a *Authorizer) Authorize(ctx context.Context, req Request) (Decision, error) {
	d, err := a.authorize(ctx, req)
	if err != nil {
		metrics.AuthDecisions.WithLabelValues(outcome(err)).Inc()
		return Decision{}, err
	}
	metrics.AuthDecisions.WithLabelValues("allow").Inc()
	return d, nil
}

func (a *Authorizer) authorize(ctx context.Context, req Request) (Decision, error) {
	raw := stripScheme(req.AuthorizationToken)

	// Decode without verifying; the kid lives in the protected header and
	// the issuer in the payload, both needed before any key is known.
	tok, err := jwt.Parse([]byte(raw), jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	msg, err := jws.Parse([]byte(raw))
	if err != nil || len(msg.Signatures()) == 0 {
		return Decision{}, fmt.Errorf("%w: no signature", ErrMalformedToken)
	}
	hdr := msg.Signatures()[0].ProtectedHeaders()

	iss := tok.Issuer()
	if iss == "" {
		return Decision{}, fmt.Errorf("%w: missing iss", ErrMalformedToken)
	}

	set, err := a.keys.Resolve(ctx, iss)
	if err != nil {
		return Decision{}, err
	}

	key, ok := set.LookupKeyID(hdr.KeyID())
	if !ok {
		return Decision{}, fmt.Errorf("%w: no key for kid %q", ErrSignatureInvalid, hdr.KeyID())
	}

	// Full verification: signature under the resolved key, expiry, and a
	// bit-for-bit issuer match.
	vtok, err := jwt.Parse([]byte(raw),
		jwt.WithKey(hdr.Algorithm(), key),
		jwt.WithValidate(true),
		jwt.WithIssuer(iss),
	)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	if use := claimStr(vtok, "token_use"); use != "id" {
		return Decision{}, fmt.Errorf("%w: token_use=%q", ErrWrongTokenUse, use)
	}

	principalID := vtok.Subject()
	userPoolID := iss[strings.LastIndex(iss, "/")+1:]

	accountID, scope := parseMethodArn(req.MethodArn)
	pb := NewPolicyBuilder(principalID, accountID, scope)
	pb.AllowAllMethods()
	d, err := pb.Build()
	if err != nil {
		return Decision{}, err
	}

	d.Context = map[string]string{
		"tenant_id":   claimStr(vtok, "custom:tenant_id"),
		"sub":         claimStr(vtok, "sub"),
		"username":    claimStr(vtok, "cognito:username"),
		"given_name":  claimStr(vtok, "given_name"),
		"family_name": claimStr(vtok, "family_name"),
		"role":        claimStr(vtok, "custom:role"),
		"userPoolId":  userPoolID,
	}
	a.log.Debugw("authorized", "principal", principalID, "tenant", d.Context["tenant_id"])
	return d, nil
}

// stripScheme drops the "Bearer " prefix; a bare token passes through.
func stripScheme(header string) string {
	if i := strings.IndexByte(header, ' '); i >= 0 {
		return header[i+1:]
	}
	return header
}

// parseMethodArn pulls the account id and API deployment scope out of
// "arn:aws:execute-api:<region>:<account>:<apiId>/<stage>/<verb>/<resource>".
func parseMethodArn(arn string) (string, APIScope) {
	parts := strings.SplitN(arn, ":", 6)
	if len(parts) < 6 {
		return "*", APIScope{}
	}
	seg := strings.SplitN(parts[5], "/", 4)
	scope := APIScope{Region: parts[3], RestAPIID: seg[0]}
	if len(seg) > 1 {
		scope.Stage = seg[1]
	}
	return parts[4], scope
}

func claimStr(tok jwt.Token, name string) string {
	if v, ok := tok.Get(name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func outcome(err error) string {
	switch {
	case errors.Is(err, keyset.ErrKeySetUnavailable):
		return "keyset_unavailable"
	case errors.Is(err, ErrMalformedToken):
		return "malformed_token"
	case errors.Is(err, ErrWrongTokenUse):
		return "wrong_token_use"
	case errors.Is(err, ErrSignatureInvalid):
		return "signature_invalid"
	default:
		return "rejected"
	}
}
