package accessor

import "errors"

var (
	// ErrUnsupportedOperation is returned when an operation does not apply
	// to the accessor's variant, such as a repeated-only call on a singular
	// field.
	ErrUnsupportedOperation = errors.New("accessor: operation not supported by this field")

	// ErrForeignField is returned when a field or message does not belong to
	// the table's message type.
	ErrForeignField = errors.New("accessor: field does not belong to this message type")

	// ErrExtensionField is returned when an extension is looked up in a
	// table. Extensions are accessed through the message's extension
	// methods.
	ErrExtensionField = errors.New("accessor: extensions are not in the accessor table")
)
