package authorizer

import "errors"

// Terminal rejection reasons. Every rejection maps to exactly one of these
// (or keyset.ErrKeySetUnavailable); callers receive no decision alongside
// them.
var (
	ErrMalformedToken      = errors.New("malformed token")
	ErrSignatureInvalid    = errors.New("signature invalid")
	ErrWrongTokenUse       = errors.New("wrong token use")
	ErrInvalidVerb         = errors.New("invalid HTTP verb")
	ErrInvalidResourcePath = errors.New("invalid resource path")
	ErrEmptyPolicy         = errors.New("no statements defined for the policy")
)
