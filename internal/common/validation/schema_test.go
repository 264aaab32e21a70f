package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const filterSchema = `{
  "$schema": "http://json-schema.org/draft-04/schema#",
  "type": "object",
  "required": ["name", "min_cap_rate"],
  "properties": {
    "name": {"type": "string"},
    "min_cap_rate": {"type": "number", "minimum": 0},
    "kind": {"type": "string", "enum": ["a", "b"]}
  }
}`

var filterMessages = FieldMessages{
	"name":         {"required": "Name is required"},
	"min_cap_rate": {"required": "Minimum cap rate is required", "*": "Minimum cap rate must be a non-negative number"},
}

func TestValidator_Validate(t *testing.T) {
	v, err := NewValidator(filterSchema, filterMessages)
	require.NoError(t, err)

	tests := []struct {
		name string
		doc  map[string]interface{}
		want map[string]string
	}{
		{
			name: "valid",
			doc:  map[string]interface{}{"name": "Core", "min_cap_rate": 6.5},
			want: map[string]string{},
		},
		{
			name: "blank string counts as missing",
			doc:  map[string]interface{}{"name": "   ", "min_cap_rate": 6.5},
			want: map[string]string{"name": "Name is required"},
		},
		{
			name: "wildcard message",
			doc:  map[string]interface{}{"name": "x", "min_cap_rate": -1},
			want: map[string]string{"min_cap_rate": "Minimum cap rate must be a non-negative number"},
		},
		{
			name: "both missing",
			doc:  map[string]interface{}{},
			want: map[string]string{
				"name":         "Name is required",
				"min_cap_rate": "Minimum cap rate is required",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Validate(tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidator_FallsBackToSchemaDescription(t *testing.T) {
	v, err := NewValidator(filterSchema, filterMessages)
	require.NoError(t, err)

	got, err := v.Validate(map[string]interface{}{"name": "x", "min_cap_rate": 1, "kind": "c"})
	require.NoError(t, err)
	assert.NotEmpty(t, got["kind"])
}

func TestNewValidator_InvalidSchema(t *testing.T) {
	_, err := NewValidator(`{"type": 12}`, nil)
	assert.Error(t, err)
}
