package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ProfileSchema is the JSON Schema every incoming student profile document
// is checked against before it reaches the matching pipeline. All fields
// are optional; an empty profile matches every school.
const ProfileSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "StudentProfile",
  "type": "object",
  "properties": {
    "school_level": {
      "type": "integer",
      "minimum": 0,
      "maximum": 3
    },
    "location": {
      "type": "object",
      "properties": {
        "city": {"type": "string"},
        "latitude": {"type": "number"},
        "longitude": {"type": "number"}
      },
      "additionalProperties": false
    },
    "needs_categories": {
      "type": "object",
      "additionalProperties": {"type": "boolean"}
    },
    "interest_categories": {
      "type": "object",
      "additionalProperties": {"type": "boolean"}
    }
  },
  "additionalProperties": false
}`

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

var profileSchemaLoader = gojsonschema.NewStringLoader(ProfileSchema)

// ValidateProfileJSON validates a raw student profile document against
// ProfileSchema with detailed errors.
func ValidateProfileJSON(raw []byte) *ValidationResult {
	result, err := gojsonschema.Validate(profileSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: err.Error(),
				Code:    "INVALID_JSON",
			}},
		}
	}

	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	errors := make([]ValidationError, 0, len(result.Errors()))
	for _, resErr := range result.Errors() {
		errors = append(errors, ValidationError{
			Field:   resErr.Field(),
			Message: resErr.Description(),
			Code:    strings.ToUpper(resErr.Type()),
		})
	}

	return &ValidationResult{
		Valid:  false,
		Errors: errors,
	}
}

// ValidateQueryName validates a catalog query name follows naming convention
func ValidateQueryName(name string) error {
	namingPattern := regexp.MustCompile(`^[a-z]+(_[a-z]+)*$`)
	if !namingPattern.MatchString(name) {
		return fmt.Errorf("query name must be lowercase snake_case (e.g., high_need_low_tech)")
	}
	return nil
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// GetErrorsForField returns errors for a specific field
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") || strings.HasPrefix(err.Field, field+"[") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}
