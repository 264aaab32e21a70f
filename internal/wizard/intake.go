package wizard

import (
	"fmt"
	"strings"

	"deal-analyzer-client/internal/common/validation"
	"deal-analyzer-client/internal/models"
)

var intakeSchema = fmt.Sprintf(`{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["address", "city", "state", "zip_code", "property_type", "asking_price"],
	"properties": {
		"address":       {"type": "string"},
		"city":          {"type": "string"},
		"state":         {"type": "string"},
		"zip_code":      {"type": "string"},
		"property_type": {"type": "string", "enum": [%s]},
		"asking_price":  {"type": "number", "exclusiveMinimum": 0}
	}
}`, quotedPropertyTypes())

var intakeMessages = validation.FieldMessages{
	"address":       {"*": "Street address is required"},
	"city":          {"*": "City is required"},
	"state":         {"*": "State is required"},
	"zip_code":      {"*": "ZIP code is required"},
	"property_type": {"required": "Property type is required", "*": "Select a valid property type"},
	"asking_price":  {"required": "Asking price is required", "*": "Price must be greater than 0"},
}

var intakeValidator = validation.MustValidator(intakeSchema, intakeMessages)

// ValidateIntake returns field -> message for every invalid intake field.
func ValidateIntake(form models.DealInput) (map[string]string, error) {
	return intakeValidator.Validate(form.Fields())
}

func quotedPropertyTypes() string {
	quoted := make([]string, len(models.PropertyTypes))
	for i, pt := range models.PropertyTypes {
		quoted[i] = fmt.Sprintf("%q", pt)
	}
	return strings.Join(quoted, ", ")
}
