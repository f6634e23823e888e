package operation

import "fmt"

// MalformedTemplateError is returned when a template has no root operation keyword
// or no balanced operation body.
type MalformedTemplateError struct {
	Reason string
	Offset int // Byte offset in the source where the problem was detected, -1 if unknown.
}

func (e *MalformedTemplateError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("malformed operation template: %s (at byte %d)", e.Reason, e.Offset)
	}
	return fmt.Sprintf("malformed operation template: %s", e.Reason)
}

// MissingVariableError is returned when a row does not carry a column the template references.
type MissingVariableError struct {
	Name string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("missing value for template variable %q", e.Name)
}

// InvalidValueError is returned when a value cannot be rendered with the marker's filter.
type InvalidValueError struct {
	Name   string
	Filter string
	Value  string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("value %q for variable %q is not a valid %s", e.Value, e.Name, e.Filter)
}
