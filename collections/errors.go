package collections

import "errors"

// Misuse errors. They indicate a bug in the calling code.
var (
	ErrFrozen          = errors.New("collections: collection is frozen")
	ErrNilKey          = errors.New("collections: nil map key")
	ErrNilValue        = errors.New("collections: nil value")
	ErrDuplicateKey    = errors.New("collections: key already present")
	ErrIndexOutOfRange = errors.New("collections: index out of range")
)
