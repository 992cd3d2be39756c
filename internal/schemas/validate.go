// Package schemas provides JSON Schema validation for booking-config files
// imported through the CLI.
package schemas

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed booking_config.schema.json
var bookingConfigSchema []byte

// FieldError is a single validation error at a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError aggregates schema validation errors with field paths.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return fmt.Sprintf("booking config validation failed: %s", strings.Join(parts, "; "))
}

// ValidateBookingConfig validates a JSON document against the booking-config
// schema. Returns a *ValidationError describing every violation, or an error
// for unparseable input.
func ValidateBookingConfig(document []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(bookingConfigSchema)
	documentLoader := gojsonschema.NewBytesLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate booking config: %w", err)
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{}
	for _, desc := range result.Errors() {
		verr.Errors = append(verr.Errors, FieldError{
			Field:   desc.Field(),
			Message: desc.Description(),
		})
	}
	return verr
}
