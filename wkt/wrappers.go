package wkt

import (
	"fmt"

	"github.com/anirudhraja/protocore/descriptor"
	"github.com/anirudhraja/protocore/message"
	"github.com/anirudhraja/protocore/schema"
)

// wrapperKinds maps each wrapper message to the kind of its value field.
var wrapperKinds = map[schema.WrapperType]descriptor.Kind{
	schema.WrapperDoubleValue: descriptor.DoubleKind,
	schema.WrapperFloatValue:  descriptor.FloatKind,
	schema.WrapperInt64Value:  descriptor.Int64Kind,
	schema.WrapperUInt64Value: descriptor.Uint64Kind,
	schema.WrapperInt32Value:  descriptor.Int32Kind,
	schema.WrapperUInt32Value: descriptor.Uint32Kind,
	schema.WrapperBoolValue:   descriptor.BoolKind,
	schema.WrapperStringValue: descriptor.StringKind,
	schema.WrapperBytesValue:  descriptor.BytesKind,
}

// IsWrapper reports whether desc is one of the google.protobuf scalar
// wrapper types.
func IsWrapper(desc *descriptor.Message) bool {
	if desc == nil {
		return false
	}
	_, ok := wrapperKinds[schema.WrapperType(desc.FullName())]
	return ok
}

func wrapperValueField(desc *descriptor.Message) (*descriptor.Field, error) {
	if !IsWrapper(desc) {
		name := "<nil>"
		if desc != nil {
			name = desc.FullName()
		}
		return nil, fmt.Errorf("%w: %s is not a wrapper type", ErrTypeMismatch, name)
	}
	fd := desc.FieldByNumber(1)
	if fd == nil || fd.Kind() != wrapperKinds[schema.WrapperType(desc.FullName())] {
		return nil, fmt.Errorf("%w: %s has an unexpected value field", ErrTypeMismatch, desc.FullName())
	}
	return fd, nil
}

// Wrap returns a wrapper message of type desc holding v. v must have the
// Go type of the wrapper's value, int64 for Int64Value and so on.
func Wrap(desc *descriptor.Message, v any) (*message.Message, error) {
	fd, err := wrapperValueField(desc)
	if err != nil {
		return nil, err
	}
	m := message.New(desc)
	if err := m.Set(fd, v); err != nil {
		return nil, err
	}
	return m, nil
}

// Unwrap returns the value held by a wrapper message.
func Unwrap(m *message.Message) (any, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: cannot unwrap a nil message", ErrTypeMismatch)
	}
	fd, err := wrapperValueField(m.Descriptor())
	if err != nil {
		return nil, err
	}
	return m.Get(fd), nil
}
