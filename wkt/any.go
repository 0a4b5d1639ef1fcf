package wkt

import (
	"bytes"
	"fmt"
	"strings"

	"google.golang.org/protobuf/types/known/anypb"

	"github.com/anirudhraja/protocore/collections"
	"github.com/anirudhraja/protocore/descriptor"
	"github.com/anirudhraja/protocore/message"
)

// DefaultTypeURLPrefix is the prefix Pack puts before the type name.
const DefaultTypeURLPrefix = "type.googleapis.com"

// Any holds a serialized message together with a URL naming its type.
type Any struct {
	TypeURL string
	Value   []byte
}

// MessageResolver finds message types by full name. *registry.Registry and
// *descriptor.Pool implement it.
type MessageResolver interface {
	FindMessage(name string) *descriptor.Message
}

// Pack serializes m into an Any with the default type URL prefix.
func Pack(m *message.Message) (Any, error) {
	return PackWithPrefix(m, DefaultTypeURLPrefix)
}

// PackWithPrefix serializes m into an Any whose type URL is prefix, a
// slash, and m's full type name. A trailing slash on prefix is not
// doubled.
func PackWithPrefix(m *message.Message, prefix string) (Any, error) {
	return PackWith(m, prefix, message.MarshalOptions{})
}

// PackWith is PackWithPrefix serializing with opts.
func PackWith(m *message.Message, prefix string, opts message.MarshalOptions) (Any, error) {
	if m == nil {
		return Any{}, fmt.Errorf("%w: cannot pack a nil message", ErrTypeMismatch)
	}
	value, err := opts.Marshal(m)
	if err != nil {
		return Any{}, err
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return Any{TypeURL: prefix + m.Descriptor().FullName(), Value: value}, nil
}

// TypeName returns the part of the type URL after the last slash, or ""
// if there is no slash.
func (a Any) TypeName() string {
	i := strings.LastIndexByte(a.TypeURL, '/')
	if i < 0 {
		return ""
	}
	return a.TypeURL[i+1:]
}

// Is reports whether a holds a message of type desc. The type name must
// match desc's full name exactly.
func (a Any) Is(desc *descriptor.Message) bool {
	name := a.TypeName()
	return name != "" && desc != nil && name == desc.FullName()
}

// Unpack parses the held message as a new message of type desc. It fails
// with ErrTypeMismatch if a does not hold a desc.
func (a Any) Unpack(desc *descriptor.Message) (*message.Message, error) {
	if !a.Is(desc) {
		return nil, a.mismatch(desc)
	}
	return message.Parse(desc, a.Value)
}

// UnpackInto replaces the contents of m with the held message. Nothing is
// written to m unless the type matches and the value parses.
func (a Any) UnpackInto(m *message.Message) error {
	if m == nil {
		return fmt.Errorf("%w: cannot unpack into a nil message", ErrTypeMismatch)
	}
	if m.IsFrozen() {
		return collections.ErrFrozen
	}
	parsed, err := a.Unpack(m.Descriptor())
	if err != nil {
		return err
	}
	if err := m.Reset(); err != nil {
		return err
	}
	return m.Merge(parsed)
}

// TryUnpackInto is UnpackInto reporting success as a bool. On false m is
// unchanged.
func (a Any) TryUnpackInto(m *message.Message) bool {
	return a.UnpackInto(m) == nil
}

// Resolve looks up the held type in r and unpacks the message.
func (a Any) Resolve(r MessageResolver) (*message.Message, error) {
	name := a.TypeName()
	desc := r.FindMessage(name)
	if desc == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, a.TypeURL)
	}
	return message.Parse(desc, a.Value)
}

func (a Any) mismatch(desc *descriptor.Message) error {
	want := "<nil>"
	if desc != nil {
		want = desc.FullName()
	}
	return fmt.Errorf("%w: Any holds %q, not %s", ErrTypeMismatch, a.TypeURL, want)
}

// ToProto converts a to the generated Any type.
func (a Any) ToProto() *anypb.Any {
	return &anypb.Any{TypeUrl: a.TypeURL, Value: bytes.Clone(a.Value)}
}

// AnyFromProto converts the generated Any type.
func AnyFromProto(p *anypb.Any) Any {
	return Any{TypeURL: p.GetTypeUrl(), Value: bytes.Clone(p.GetValue())}
}

// ToMessage returns a as a dynamic message of type desc, which must be
// google.protobuf.Any.
func (a Any) ToMessage(desc *descriptor.Message) (*message.Message, error) {
	if err := checkType(desc, AnyFullName); err != nil {
		return nil, err
	}
	fds, err := fields(desc, "type_url", "value")
	if err != nil {
		return nil, err
	}
	m := message.New(desc)
	if err := m.Set(fds[0], a.TypeURL); err != nil {
		return nil, err
	}
	if err := m.Set(fds[1], bytes.Clone(a.Value)); err != nil {
		return nil, err
	}
	return m, nil
}

// AnyFromMessage reads a dynamic google.protobuf.Any message.
func AnyFromMessage(m *message.Message) (Any, error) {
	if err := checkMessage(m, AnyFullName); err != nil {
		return Any{}, err
	}
	fds, err := fields(m.Descriptor(), "type_url", "value")
	if err != nil {
		return Any{}, err
	}
	url, _ := m.Get(fds[0]).(string)
	value, _ := m.Get(fds[1]).([]byte)
	return Any{TypeURL: url, Value: bytes.Clone(value)}, nil
}
