package wkt

import "errors"

// Errors in this package report values that are well formed on the wire but
// outside what the type allows. They never wrap wire errors.
var (
	// ErrOverflow is returned when arithmetic would overflow the 64-bit
	// seconds counter.
	ErrOverflow = errors.New("wkt: arithmetic overflow")

	// ErrOutOfRange is returned when a value lies outside the range its type
	// or the target Go type can represent.
	ErrOutOfRange = errors.New("wkt: value out of range")

	// ErrTypeMismatch is returned when a message has the wrong type, such as
	// unpacking an Any into a message it does not hold.
	ErrTypeMismatch = errors.New("wkt: type mismatch")

	// ErrUnknownType is returned when an Any names a type the resolver does
	// not know.
	ErrUnknownType = errors.New("wkt: unknown message type")

	// ErrInvalidPath is returned for FieldMask paths that cannot be
	// rendered in camelCase form.
	ErrInvalidPath = errors.New("wkt: invalid field mask path")
)
