// Package validate implements the validation half of a compiled model: field
// specifications derived from declaration options, value checking and
// coercion, and construction of validated value sets.
package validate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Errors collects validation failures per field.
type Errors struct {
	Fields map[string][]string `json:"fields"`
}

// NewErrors creates an empty Errors collection
func NewErrors() *Errors {
	return &Errors{Fields: make(map[string][]string)}
}

// Add records a validation failure for a field.
func (e *Errors) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// HasErrors reports whether any failure was recorded.
func (e *Errors) HasErrors() bool {
	return len(e.Fields) > 0
}

// Count returns the total number of recorded failures.
func (e *Errors) Count() int {
	count := 0
	for _, messages := range e.Fields {
		count += len(messages)
	}
	return count
}

// Error implements the error interface
func (e *Errors) Error() string {
	if !e.HasErrors() {
		return "validation failed"
	}
	var messages []string
	for field, errs := range e.Fields {
		for _, msg := range errs {
			messages = append(messages, fmt.Sprintf("  - %s: %s", field, msg))
		}
	}
	if len(messages) == 1 {
		return fmt.Sprintf("validation failed: %s", strings.TrimPrefix(messages[0], "  - "))
	}
	return fmt.Sprintf("validation failed:\n%s", strings.Join(messages, "\n"))
}

// MarshalJSON implements json.Marshaler
func (e *Errors) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Error  string              `json:"error"`
		Fields map[string][]string `json:"fields"`
	}{
		Error:  "validation_failed",
		Fields: e.Fields,
	})
}

// FieldError is a single-field validation failure.
type FieldError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (fe FieldError) Error() string {
	return fmt.Sprintf("%s: %s", fe.Field, fe.Message)
}
