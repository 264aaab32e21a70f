package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// FieldMessages maps a field name and a gojsonschema error type ("required",
// "enum", "number_gt", "invalid_type", ...) to the message shown next to the
// field. The "*" type is used when no specific entry exists.
type FieldMessages map[string]map[string]string

// Validator checks form documents against a compiled JSON schema and reports
// one message per failing field.
type Validator struct {
	schema   *gojsonschema.Schema
	messages FieldMessages
}

func NewValidator(schemaJSON string, messages FieldMessages) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Validator{schema: schema, messages: messages}, nil
}

// MustValidator panics on an invalid schema. Use for package-level schemas only.
func MustValidator(schemaJSON string, messages FieldMessages) *Validator {
	v, err := NewValidator(schemaJSON, messages)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate returns field -> message for every failing field; an empty map means
// the document is valid. Blank strings are treated as missing.
func (v *Validator) Validate(doc map[string]interface{}) (map[string]string, error) {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(Normalize(doc)))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	fieldErrors := map[string]string{}
	if result.Valid() {
		return fieldErrors, nil
	}

	for _, desc := range result.Errors() {
		field := desc.Field()
		if desc.Type() == "required" {
			if prop, ok := desc.Details()["property"].(string); ok {
				field = prop
			}
		}
		if _, seen := fieldErrors[field]; seen {
			continue
		}
		fieldErrors[field] = v.message(field, desc)
	}
	return fieldErrors, nil
}

func (v *Validator) message(field string, desc gojsonschema.ResultError) string {
	if byType, ok := v.messages[field]; ok {
		if msg, ok := byType[desc.Type()]; ok {
			return msg
		}
		if msg, ok := byType["*"]; ok {
			return msg
		}
	}
	return desc.Description()
}

// Normalize trims string values and drops blank ones so that "required" covers
// empty input.
func Normalize(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, val := range doc {
		if s, ok := val.(string); ok {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			out[k] = s
			continue
		}
		if val == nil {
			continue
		}
		out[k] = val
	}
	return out
}
