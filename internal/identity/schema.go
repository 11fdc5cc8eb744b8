package identity

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PoolSchema declares the custom attributes and password rules of a
// directory pool.
type PoolSchema struct {
	PasswordMinLength int             `yaml:"password_min_length"`
	RequireLowercase  bool            `yaml:"require_lowercase"`
	RequireUppercase  bool            `yaml:"require_uppercase"`
	RequireNumbers    bool            `yaml:"require_numbers"`
	RequireSymbols    bool            `yaml:"require_symbols"`
	Attributes        []PoolAttribute `yaml:"attributes"`
}

// PoolAttribute is a single schema attribute.
type PoolAttribute struct {
	Name     string `yaml:"name"`
	Mutable  bool   `yaml:"mutable"`
	Required bool   `yaml:"required"`
}

// DefaultPoolSchema mirrors the attribute set every tenant directory needs:
// the immutable tenant id plus the mutable profile attributes the client app
// reads and writes.
func DefaultPoolSchema() PoolSchema {
	return PoolSchema{
		PasswordMinLength: 8,
		RequireLowercase:  true,
		RequireUppercase:  true,
		RequireNumbers:    true,
		Attributes: []PoolAttribute{
			{Name: "tenant_id", Mutable: false},
			{Name: "tier", Mutable: true},
			{Name: "email", Mutable: true, Required: true},
			{Name: "company_name", Mutable: true},
			{Name: "role", Mutable: true},
			{Name: "account_name", Mutable: true},
		},
	}
}

// LoadPoolSchema reads a schema override from a YAML file; an empty path
// returns the default.
func LoadPoolSchema(path string) (PoolSchema, error) {
	if path == "" {
		return DefaultPoolSchema(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return PoolSchema{}, fmt.Errorf("pool schema: %w", err)
	}
	var s PoolSchema
	if err := yaml.Unmarshal(b, &s); err != nil {
		return PoolSchema{}, fmt.Errorf("pool schema: %w", err)
	}
	if s.PasswordMinLength == 0 {
		s.PasswordMinLength = 8
	}
	return s, nil
}
