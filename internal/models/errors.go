package models

import "fmt"

// InputDataError reports a record that violates a data invariant, such as a
// negative price or quantity.
type InputDataError struct {
	Field  string
	Reason string
}

func (e *InputDataError) Error() string {
	return fmt.Sprintf("invalid input data: %s: %s", e.Field, e.Reason)
}

// NewNegativeValueError builds the InputDataError for a negative field
func NewNegativeValueError(field string, value float64) *InputDataError {
	return &InputDataError{Field: field, Reason: fmt.Sprintf("must not be negative, got %v", value)}
}
