package descriptor

import (
	"errors"
	"fmt"
)

// ErrInvalidSchema is matched by every *SchemaError.
var ErrInvalidSchema = errors.New("descriptor: invalid schema")

// SchemaError reports a schema that cannot be turned into descriptors.
type SchemaError struct {
	File    string // file the offending element was declared in
	Element string // full name of the offending element
	Reason  string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	switch {
	case e.File != "" && e.Element != "":
		return fmt.Sprintf("descriptor: %s: %s: %s", e.File, e.Element, e.Reason)
	case e.File != "":
		return fmt.Sprintf("descriptor: %s: %s", e.File, e.Reason)
	default:
		return fmt.Sprintf("descriptor: %s: %s", e.Element, e.Reason)
	}
}

// Unwrap returns ErrInvalidSchema.
func (e *SchemaError) Unwrap() error {
	return ErrInvalidSchema
}

func schemaErrorf(file, element, format string, args ...any) *SchemaError {
	return &SchemaError{File: file, Element: element, Reason: fmt.Sprintf(format, args...)}
}
