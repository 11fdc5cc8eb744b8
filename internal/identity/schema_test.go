package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPoolSchemaTenantIDImmutable(t *testing.T) {
	s := DefaultPoolSchema()
	for _, a := range s.Attributes {
		if a.Name == "tenant_id" {
			assert.False(t, a.Mutable, "tenant_id must never be mutable")
			return
		}
	}
	t.Fatal("tenant_id attribute missing from default schema")
}

func TestLoadPoolSchemaEmptyPathUsesDefault(t *testing.T) {
	s, err := LoadPoolSchema("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPoolSchema(), s)
}

func TestLoadPoolSchemaFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
password_min_length: 12
require_symbols: true
attributes:
  - name: tenant_id
    mutable: false
  - name: department
    mutable: true
`), 0o600))

	s, err := LoadPoolSchema(path)
	require.NoError(t, err)
	assert.Equal(t, 12, s.PasswordMinLength)
	assert.True(t, s.RequireSymbols)
	require.Len(t, s.Attributes, 2)
	assert.Equal(t, "department", s.Attributes[1].Name)
}

func TestLoadPoolSchemaMissingFile(t *testing.T) {
	_, err := LoadPoolSchema("/nonexistent/schema.yaml")
	assert.Error(t, err)
}
