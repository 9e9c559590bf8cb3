package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCargoSchema(t *testing.T) {
	s := Cargo()
	assert.Equal(t, KeyName, s.Identity())
	assert.Len(t, s.Fields(), 11)
	assert.Equal(t, []string{KeyFragility, KeyLoadBear, KeyTempSensitivity}, s.AIAssisted())

	f, ok := s.Field(KeyQuantity)
	require.True(t, ok)
	assert.Equal(t, KindNumeric, f.Kind())
	assert.True(t, f.Constraint.(Numeric).Integer)

	blank := s.BlankRecord()
	assert.Len(t, blank, 11)
	assert.True(t, blank.IsBlank())
}

func TestNewRejectsBadSchemas(t *testing.T) {
	_, err := New("name")
	assert.Error(t, err)

	_, err = New("name", Field{Key: "name"}, Field{Key: "name"})
	assert.ErrorContains(t, err, "duplicate")

	_, err = New("missing", Field{Key: "name"})
	assert.ErrorContains(t, err, "identity")

	_, err = New("name", Field{Key: "name", Constraint: Pattern{}})
	assert.ErrorContains(t, err, "pattern")

	_, err = New("name", Field{Key: "n", Constraint: Numeric{Min: Bound(5), Max: Bound(1)}}, Field{Key: "name"})
	assert.ErrorContains(t, err, "above max")
}

func TestFieldLabelDefaultsToKey(t *testing.T) {
	s := MustNew("id", Field{Key: "id"})
	f, _ := s.Field("id")
	assert.Equal(t, "id", f.Label)
	assert.Equal(t, KindText, f.Kind())
}

const yamlSchema = `
identity: sku
fields:
  - key: sku
    required: true
  - key: mass
    kind: numeric
    min: 1
    max: 10
    unit: kg
  - key: grade
    kind: enum
    ai_assisted: true
    allowed: [A, B]
  - key: code
    kind: pattern
    pattern: '^[A-Z]{3}$'
    hint: three capitals
`

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlSchema), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sku", s.Identity())
	assert.Equal(t, []string{"sku", "mass", "grade", "code"}, s.Keys())
	assert.Equal(t, []string{"grade"}, s.AIAssisted())

	code, _ := s.Field("code")
	assert.True(t, code.Constraint.(Pattern).Expr.MatchString("ABC"))
}

func TestParseRejectsUnknownKind(t *testing.T) {
	_, err := Parse([]byte("identity: a\nfields:\n  - key: a\n    kind: date\n"))
	assert.ErrorContains(t, err, "unknown kind")
}
