// Package validation checks client-composed payloads before they are sent
// to the backend.
package validation

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "boltvisa/internal/common/errors"
)

const dealSchema = `{
  "type": "object",
  "required": ["applyFor", "dealType", "userId"],
  "properties": {
    "applyFor": {"type": "string", "minLength": 1},
    "dealType": {"type": "string", "enum": ["Main", "Sub", "Family"]},
    "userId": {"type": "string", "minLength": 1},
    "caseId": {"type": "string"},
    "applicantName": {"type": "string"},
    "passportNumber": {"type": "string"},
    "phone": {"type": "string"},
    "email": {"type": "string"}
  },
  "additionalProperties": true
}`

const registrationSchema = `{
  "type": "object",
  "required": ["name", "email", "password", "role"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "email": {"type": "string", "pattern": "^[^@\\s]+@[^@\\s]+\\.[^@\\s]+$"},
    "password": {"type": "string", "minLength": 6},
    "role": {"type": "string", "enum": ["admin", "agent"]}
  },
  "additionalProperties": true
}`

var (
	dealSchemaLoader         = gojsonschema.NewStringLoader(dealSchema)
	registrationSchemaLoader = gojsonschema.NewStringLoader(registrationSchema)
)

// ValidateDeal checks a create-application payload.
func ValidateDeal(payload map[string]interface{}) error {
	return validate(dealSchemaLoader, payload, "Invalid application data")
}

// ValidateRegistration checks an admin register payload.
func ValidateRegistration(payload map[string]interface{}) error {
	return validate(registrationSchemaLoader, payload, "Invalid registration data")
}

func validate(schema gojsonschema.JSONLoader, payload map[string]interface{}, message string) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewGoLoader(payload))
	if err != nil {
		return apperrors.NewValidationError(message, err.Error())
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return apperrors.NewValidationError(message, strings.Join(details, "; "))
}
