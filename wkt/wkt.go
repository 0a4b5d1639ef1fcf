// Package wkt converts the google.protobuf well-known types between their
// dynamic message form, plain Go values and the generated types of
// google.golang.org/protobuf.
//
// Duration and Timestamp arithmetic is exact: results are normalized and
// any overflow of the seconds counter is reported instead of wrapping.
package wkt

import (
	"fmt"

	"github.com/anirudhraja/protocore/descriptor"
	"github.com/anirudhraja/protocore/message"
)

// Full names of the supported well-known message types.
const (
	AnyFullName       = "google.protobuf.Any"
	DurationFullName  = "google.protobuf.Duration"
	TimestampFullName = "google.protobuf.Timestamp"
	FieldMaskFullName = "google.protobuf.FieldMask"
)

const nanosPerSecond = 1_000_000_000

// checkType fails unless desc is the message type called name.
func checkType(desc *descriptor.Message, name string) error {
	if desc == nil {
		return fmt.Errorf("%w: want %s, got nil descriptor", ErrTypeMismatch, name)
	}
	if desc.FullName() != name {
		return fmt.Errorf("%w: want %s, got %s", ErrTypeMismatch, name, desc.FullName())
	}
	return nil
}

func checkMessage(m *message.Message, name string) error {
	if m == nil {
		return fmt.Errorf("%w: want %s, got nil message", ErrTypeMismatch, name)
	}
	return checkType(m.Descriptor(), name)
}

// fields looks up the named fields of desc, failing if one is missing.
func fields(desc *descriptor.Message, names ...string) ([]*descriptor.Field, error) {
	out := make([]*descriptor.Field, len(names))
	for i, name := range names {
		fd := desc.FieldByName(name)
		if fd == nil {
			return nil, fmt.Errorf("%w: %s has no field %q", ErrTypeMismatch, desc.FullName(), name)
		}
		out[i] = fd
	}
	return out, nil
}

// secondsNanos builds a message with int64 seconds and int32 nanos fields,
// the shape shared by Duration and Timestamp.
func secondsNanos(desc *descriptor.Message, name string, seconds int64, nanos int32) (*message.Message, error) {
	if err := checkType(desc, name); err != nil {
		return nil, err
	}
	fds, err := fields(desc, "seconds", "nanos")
	if err != nil {
		return nil, err
	}
	m := message.New(desc)
	if err := m.Set(fds[0], seconds); err != nil {
		return nil, err
	}
	if err := m.Set(fds[1], nanos); err != nil {
		return nil, err
	}
	return m, nil
}

func readSecondsNanos(m *message.Message, name string) (int64, int32, error) {
	if err := checkMessage(m, name); err != nil {
		return 0, 0, err
	}
	fds, err := fields(m.Descriptor(), "seconds", "nanos")
	if err != nil {
		return 0, 0, err
	}
	seconds, _ := m.Get(fds[0]).(int64)
	nanos, _ := m.Get(fds[1]).(int32)
	return seconds, nanos, nil
}

// addInt64 returns a+b and whether it did not overflow.
func addInt64(a, b int64) (int64, bool) {
	c := a + b
	return c, (c > a) == (b > 0)
}

// subInt64 returns a-b and whether it did not overflow.
func subInt64(a, b int64) (int64, bool) {
	c := a - b
	return c, (c < a) == (b > 0)
}
