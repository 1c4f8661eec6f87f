package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userSchema = `{
  "type": "object",
  "required": ["id", "name"],
  "properties": {
    "id": {"type": "integer"},
    "name": {"type": "string"}
  }
}`

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantErr    bool
		violations int
	}{
		{"valid", `{"id": 1, "name": "Ada"}`, false, 0},
		{"missing field", `{"id": 1}`, true, 1},
		{"wrong types", `{"id": "one", "name": 2}`, true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate([]byte(userSchema), []byte(tt.body))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Len(t, verr.Violations, tt.violations)
			assert.Contains(t, err.Error(), "schema validation failed")
		})
	}
}

func TestValidate_InvalidBody(t *testing.T) {
	err := Validate([]byte(userSchema), []byte("not json"))
	require.Error(t, err)

	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
}

func TestValidateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.schema.json")
	require.NoError(t, os.WriteFile(path, []byte(userSchema), 0644))

	assert.NoError(t, ValidateFile(path, []byte(`{"id": 7, "name": "Grace"}`)))
	assert.Error(t, ValidateFile(path, []byte(`{}`)))
}

func TestValidateFile_Missing(t *testing.T) {
	err := ValidateFile(filepath.Join(t.TempDir(), "nope.json"), []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read schema file")
}
