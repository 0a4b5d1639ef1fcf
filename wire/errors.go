package wire

import (
	"errors"
	"fmt"
	"strings"
)

// Malformed-input errors. Every decoding failure unwraps to one of these.
var (
	ErrMalformedVarint        = errors.New("wire: malformed varint")
	ErrInvalidTag             = errors.New("wire: invalid tag")
	ErrTruncatedMessage       = errors.New("wire: truncated message")
	ErrRecursionLimitExceeded = errors.New("wire: recursion limit exceeded")
	ErrInvalidUTF8            = errors.New("wire: invalid UTF-8 in string field")
	ErrMismatchedEndGroup     = errors.New("wire: mismatched end group marker")
	ErrWireTypeMismatch       = errors.New("wire: unexpected wire type")
)

// ParseError records where in the input a decoding failure happened.
type ParseError struct {
	Offset int
	Err    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%v at offset %d/%#x", e.Err, e.Offset, e.Offset)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

func (d *Decoder) errorf(err error) error {
	return &ParseError{Offset: d.base + d.pos, Err: err}
}

// Failure wraps err in a ParseError at the decoder's current offset. It is
// for callers layering their own structure over the decoder, such as
// message parsers detecting an unterminated group.
func (d *Decoder) Failure(err error) error { return d.errorf(err) }

// FieldError represents an encoding/decoding error with a field path.
type FieldError struct {
	FieldPath []string // e.g., ["profile", "address", "latitude"]
	Err       error    // underlying error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if len(e.FieldPath) == 0 {
		return e.Err.Error()
	}

	return fmt.Sprintf("error at proto path %s: %v", strings.Join(e.FieldPath, "."), e.Err)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// WrapWithField prefixes err's field path with fieldName.
func WrapWithField(err error, fieldName string) error {
	if err == nil {
		return nil
	}

	var fe *FieldError
	if errors.As(err, &fe) {
		return &FieldError{
			FieldPath: append([]string{fieldName}, fe.FieldPath...),
			Err:       fe.Err,
		}
	}

	return &FieldError{
		FieldPath: []string{fieldName},
		Err:       err,
	}
}
