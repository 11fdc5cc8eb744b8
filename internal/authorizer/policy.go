package authorizer

import (
	"fmt"
	"regexp"
	"strings"

	"idgate/internal/archetype"
)

// Effect of a policy statement.
type Effect string

const (
	Allow Effect = "Allow"
	Deny  Effect = "Deny"
)

const invokeAction = "execute-api:Invoke"

var httpVerbs = map[string]struct{}{
	"GET": {}, "POST": {}, "PUT": {}, "PATCH": {}, "HEAD": {},
	"DELETE": {}, "OPTIONS": {}, "*": {},
}

var pathPattern = regexp.MustCompile(`^[/.a-zA-Z0-9\-*]+$`)

// APIScope pins synthesized resource ARNs to one API deployment. Empty
// fields widen to "*".
type APIScope struct {
	Region    string
	RestAPIID string
	Stage     string
}

func (s APIScope) orWild() APIScope {
	if s.Region == "" {
		s.Region = "*"
	}
	if s.RestAPIID == "" {
		s.RestAPIID = "*"
	}
	if s.Stage == "" {
		s.Stage = "*"
	}
	return s
}

// Condition constrains a single registered method.
type Condition map[string]map[string][]string

type method struct {
	resourceArn string
	condition   Condition
}

// Decision is the access decision emitted for one authorized request.
type Decision struct {
	PrincipalID    string             `json:"principalId"`
	PolicyDocument archetype.Document `json:"policyDocument"`
	Context        map[string]string  `json:"context,omitempty"`
}

// PolicyBuilder accumulates verb/resource/condition tuples and synthesizes
// the decision document.
type PolicyBuilder struct {
	principalID string
	accountID   string
	scope       APIScope

	allow []method
	deny  []method
}

// NewPolicyBuilder returns a builder scoped to one principal and API
// deployment.
func NewPolicyBuilder(principalID, accountID string, scope APIScope) *PolicyBuilder {
	return &PolicyBuilder{principalID: principalID, accountID: accountID, scope: scope.orWild()}
}

// AddMethod registers one verb/resource grant or denial. The verb must be a
// known HTTP verb or "*"; the resource path is restricted to letters, digits,
// ".", "-", "/" and "*".
func (b *PolicyBuilder) AddMethod(effect Effect, verb, resource string, cond Condition) error {
	if _, ok := httpVerbs[verb]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidVerb, verb)
	}
	if !pathPattern.MatchString(resource) {
		return fmt.Errorf("%w: %q", ErrInvalidResourcePath, resource)
	}
	cleaned := strings.TrimPrefix(resource, "/")
	arn := "arn:aws:execute-api:" + b.scope.Region + ":" + b.accountID + ":" +
		b.scope.RestAPIID + "/" + b.scope.Stage + "/" + verb + "/" + cleaned

	m := method{resourceArn: arn, condition: cond}
	switch effect {
	case Deny:
		b.deny = append(b.deny, m)
	default:
		b.allow = append(b.allow, m)
	}
	return nil
}

// AllowAllMethods grants every verb on every resource.
func (b *PolicyBuilder) AllowAllMethods() {
	_ = b.AddMethod(Allow, "*", "*", nil)
}

// DenyAllMethods denies every verb on every resource.
func (b *PolicyBuilder) DenyAllMethods() {
	_ = b.AddMethod(Deny, "*", "*", nil)
}

// Build emits the decision. All allow statements precede all deny statements;
// within one effect, each conditional method gets its own statement and all
// unconditional resources are aggregated into one.
func (b *PolicyBuilder) Build() (Decision, error) {
	if len(b.allow) == 0 && len(b.deny) == 0 {
		return Decision{}, ErrEmptyPolicy
	}
	doc := archetype.Document{Version: archetype.Version}
	doc.Statement = append(doc.Statement, statementsForEffect(Allow, b.allow)...)
	doc.Statement = append(doc.Statement, statementsForEffect(Deny, b.deny)...)
	return Decision{PrincipalID: b.principalID, PolicyDocument: doc}, nil
}

func statementsForEffect(effect Effect, methods []method) []archetype.Statement {
	if len(methods) == 0 {
		return nil
	}
	var out []archetype.Statement
	var unconditional []string
	for _, m := range methods {
		if len(m.condition) == 0 {
			unconditional = append(unconditional, m.resourceArn)
			continue
		}
		out = append(out, archetype.Statement{
			Effect:    string(effect),
			Action:    []string{invokeAction},
			Resource:  []string{m.resourceArn},
			Condition: m.condition,
		})
	}
	if len(unconditional) > 0 {
		out = append(out, archetype.Statement{
			Effect:   string(effect),
			Action:   []string{invokeAction},
			Resource: unconditional,
		})
	}
	return out
}
