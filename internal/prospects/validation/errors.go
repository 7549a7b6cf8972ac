package validation

import (
	"fmt"
	"strings"
)

// FieldError is one rejected field of one input record.
type FieldError struct {
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("record %d: %s %s", e.Index, e.Field, e.Reason)
}

// Errors is the structured list returned when a record fails validation.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Error())
	}
	return strings.Join(parts, "; ")
}
