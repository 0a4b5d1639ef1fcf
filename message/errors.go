package message

import (
	"errors"
	"fmt"

	"github.com/anirudhraja/protocore/descriptor"
)

var (
	// ErrTypeMismatch is returned when a value's Go type does not match the
	// field it is stored in.
	ErrTypeMismatch = errors.New("message: value type does not match field")

	// ErrUnknownField is returned when a field descriptor does not belong to
	// the message it is used with.
	ErrUnknownField = errors.New("message: field does not belong to message")

	// ErrNotExtension is returned when a regular field is passed to an
	// extension method, or an extension to a regular one.
	ErrNotExtension = errors.New("message: wrong field category")

	// ErrRequiredNotSet is returned when a proto2 required field is missing
	// and partial messages are not allowed.
	ErrRequiredNotSet = errors.New("message: required field not set")
)

func typeMismatch(fd *descriptor.Field, v any) error {
	return fmt.Errorf("%w: %s (%s) cannot hold %T", ErrTypeMismatch, fd.FullName(), fd.Kind(), v)
}
