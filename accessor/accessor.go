// Package accessor provides per-message-type tables of field accessors.
//
// A Table maps every field of a message type to one of six accessor
// variants. Each accessor carries the conversion and storage closures for
// its field, chosen once when the table is built, so generic code can read
// and write fields of a dynamic message without switching on the field's
// kind at every call.
package accessor

import (
	"fmt"

	"github.com/anirudhraja/protocore/collections"
	"github.com/anirudhraja/protocore/descriptor"
	"github.com/anirudhraja/protocore/message"
)

// Variant classifies a field by cardinality and value category.
type Variant uint8

const (
	SingularScalar Variant = iota
	RepeatedScalar
	SingularMessage
	RepeatedMessage
	SingularEnum
	RepeatedEnum
)

var variantNames = [...]string{
	SingularScalar:  "singular scalar",
	RepeatedScalar:  "repeated scalar",
	SingularMessage: "singular message",
	RepeatedMessage: "repeated message",
	SingularEnum:    "singular enum",
	RepeatedEnum:    "repeated enum",
}

func (v Variant) String() string {
	if int(v) < len(variantNames) {
		return variantNames[v]
	}
	return fmt.Sprintf("Variant(%d)", v)
}

// IsRepeated reports whether the variant supports the repeated operations.
func (v Variant) IsRepeated() bool {
	return v == RepeatedScalar || v == RepeatedMessage || v == RepeatedEnum
}

// variantOf maps a field to its accessor variant. Map fields are repeated
// message fields whose elements are entry messages.
func variantOf(fd *descriptor.Field) Variant {
	var v Variant
	switch {
	case fd.Kind().IsMessage():
		v = SingularMessage
	case fd.Kind() == descriptor.EnumKind:
		v = SingularEnum
	default:
		v = SingularScalar
	}
	if fd.IsRepeated() {
		v++
	}
	return v
}

// Accessor reads and writes one field of messages of a single type. All
// methods fail with ErrForeignField when given a message of another type.
type Accessor interface {
	// Field returns the field this accessor serves.
	Field() *descriptor.Field
	// Variant returns the accessor's variant.
	Variant() Variant

	// Has reports whether the field is set. Not supported on repeated
	// fields.
	Has(m *message.Message) (bool, error)
	// Clear unsets the field.
	Clear(m *message.Message) error
	// GetValue returns the field's value. Repeated fields return their
	// *message.List or *message.Map.
	GetValue(m *message.Message) (any, error)
	// SetValue stores v in a singular field. A nil message value clears
	// the field. Not supported on repeated fields.
	SetValue(m *message.Message, v any) error

	// RepeatedCount returns the number of elements, or map entries.
	RepeatedCount(m *message.Message) (int, error)
	// RepeatedValue returns element i. Map fields return a synthetic
	// entry message holding the i'th key and value in insertion order.
	RepeatedValue(m *message.Message, i int) (any, error)
	// SetRepeated replaces element i.
	SetRepeated(m *message.Message, i int, v any) error
	// AddRepeated appends v. Map fields take an entry message and store
	// its key and value.
	AddRepeated(m *message.Message, v any) error
}

// fieldAccessor implements every variant. The closures are resolved by
// newAccessor; repeated ones are nil for singular variants.
type fieldAccessor struct {
	field   *descriptor.Field
	variant Variant

	// convert turns a boxed value into the element type stored for the
	// field, or reports why it cannot.
	convert func(v any) (any, error)

	count func(m *message.Message) int
	at    func(m *message.Message, i int) (any, error)
	setAt func(m *message.Message, i int, v any) error
	add   func(m *message.Message, v any) error
}

func newAccessor(fd *descriptor.Field) *fieldAccessor {
	a := &fieldAccessor{field: fd, variant: variantOf(fd)}
	switch a.variant {
	case SingularEnum, RepeatedEnum:
		a.convert = enumConverter(fd)
	case SingularMessage, RepeatedMessage:
		a.convert = messageConverter(fd)
	default:
		a.convert = scalarConverter(fd)
	}
	switch {
	case fd.IsMap():
		a.bindMap()
	case fd.IsRepeated():
		a.bindList()
	}
	return a
}

func (a *fieldAccessor) Field() *descriptor.Field { return a.field }
func (a *fieldAccessor) Variant() Variant         { return a.variant }

func (a *fieldAccessor) check(m *message.Message) error {
	if m == nil || m.Descriptor() != a.field.ContainingMessage() {
		got := "<nil>"
		if m != nil {
			got = m.Descriptor().FullName()
		}
		return fmt.Errorf("%w: %s is not a field of %s", ErrForeignField, a.field.FullName(), got)
	}
	return nil
}

func (a *fieldAccessor) unsupported(op string) error {
	return fmt.Errorf("%w: %s on %s field %s", ErrUnsupportedOperation, op, a.variant, a.field.FullName())
}

func (a *fieldAccessor) Has(m *message.Message) (bool, error) {
	if err := a.check(m); err != nil {
		return false, err
	}
	if a.variant.IsRepeated() {
		return false, a.unsupported("Has")
	}
	return m.Has(a.field), nil
}

func (a *fieldAccessor) Clear(m *message.Message) error {
	if err := a.check(m); err != nil {
		return err
	}
	return m.Clear(a.field)
}

func (a *fieldAccessor) GetValue(m *message.Message) (any, error) {
	if err := a.check(m); err != nil {
		return nil, err
	}
	switch {
	case a.field.IsMap():
		return m.Map(a.field), nil
	case a.field.IsList():
		return m.List(a.field), nil
	}
	return m.Get(a.field), nil
}

func (a *fieldAccessor) SetValue(m *message.Message, v any) error {
	if err := a.check(m); err != nil {
		return err
	}
	if a.variant.IsRepeated() {
		return a.unsupported("SetValue")
	}
	if v == nil && a.variant == SingularMessage {
		return m.Clear(a.field)
	}
	v, err := a.convert(v)
	if err != nil {
		return err
	}
	return m.Set(a.field, v)
}

func (a *fieldAccessor) RepeatedCount(m *message.Message) (int, error) {
	if err := a.check(m); err != nil {
		return 0, err
	}
	if a.count == nil {
		return 0, a.unsupported("RepeatedCount")
	}
	return a.count(m), nil
}

func (a *fieldAccessor) RepeatedValue(m *message.Message, i int) (any, error) {
	if err := a.check(m); err != nil {
		return nil, err
	}
	if a.at == nil {
		return nil, a.unsupported("RepeatedValue")
	}
	return a.at(m, i)
}

func (a *fieldAccessor) SetRepeated(m *message.Message, i int, v any) error {
	if err := a.check(m); err != nil {
		return err
	}
	if a.setAt == nil {
		return a.unsupported("SetRepeated")
	}
	return a.setAt(m, i, v)
}

func (a *fieldAccessor) AddRepeated(m *message.Message, v any) error {
	if err := a.check(m); err != nil {
		return err
	}
	if a.add == nil {
		return a.unsupported("AddRepeated")
	}
	return a.add(m, v)
}

func (a *fieldAccessor) bindList() {
	fd := a.field
	list := func(m *message.Message) *message.List {
		l, _ := m.Get(fd).(*message.List)
		return l
	}
	a.count = func(m *message.Message) int { return list(m).Len() }
	a.at = func(m *message.Message, i int) (any, error) {
		l := list(m)
		if i < 0 || i >= l.Len() {
			return nil, outOfRange(i, l.Len())
		}
		return l.Get(i), nil
	}
	a.setAt = func(m *message.Message, i int, v any) error {
		v, err := a.convert(v)
		if err != nil {
			return err
		}
		return m.List(fd).Set(i, v)
	}
	a.add = func(m *message.Message, v any) error {
		v, err := a.convert(v)
		if err != nil {
			return err
		}
		return m.List(fd).Add(v)
	}
}

// bindMap exposes a map field as a list of entry messages.
func (a *fieldAccessor) bindMap() {
	fd := a.field
	entryDesc := fd.MapEntry()
	kf, vf := fd.MapKey(), fd.MapValue()
	mapOf := func(m *message.Message) *message.Map {
		mf, _ := m.Get(fd).(*message.Map)
		return mf
	}
	keyAt := func(mf *message.Map, i int) (any, error) {
		if i < 0 || i >= mf.Len() {
			return nil, outOfRange(i, mf.Len())
		}
		n := 0
		for k := range mf.All() {
			if n == i {
				return k, nil
			}
			n++
		}
		return nil, outOfRange(i, mf.Len())
	}
	// split validates an entry message and returns its key and value. A
	// missing message value becomes an empty message, as when parsing.
	split := func(v any) (key, value any, err error) {
		entry, ok := v.(*message.Message)
		if !ok || entry == nil || entry.Descriptor() != entryDesc {
			return nil, nil, fmt.Errorf("%w: %s takes %s entries, got %T", message.ErrTypeMismatch, fd.FullName(), entryDesc.FullName(), v)
		}
		key = entry.Get(kf)
		value = entry.Get(vf)
		if value == nil && vf.Kind().IsMessage() {
			value = message.New(vf.Message())
		}
		return key, value, nil
	}

	a.count = func(m *message.Message) int { return mapOf(m).Len() }
	a.at = func(m *message.Message, i int) (any, error) {
		mf := mapOf(m)
		k, err := keyAt(mf, i)
		if err != nil {
			return nil, err
		}
		entry := message.New(entryDesc)
		if err := entry.Set(kf, k); err != nil {
			return nil, err
		}
		if v := mf.Get(k); v != nil {
			if err := entry.Set(vf, v); err != nil {
				return nil, err
			}
		}
		return entry, nil
	}
	a.setAt = func(m *message.Message, i int, v any) error {
		key, value, err := split(v)
		if err != nil {
			return err
		}
		mf := m.Map(fd)
		old, err := keyAt(mf, i)
		if err != nil {
			return err
		}
		if !collections.ValuesEqual(old, key) {
			if _, err := mf.Remove(old); err != nil {
				return err
			}
		}
		return mf.Set(key, value)
	}
	a.add = func(m *message.Message, v any) error {
		key, value, err := split(v)
		if err != nil {
			return err
		}
		return m.Map(fd).Set(key, value)
	}
}

func outOfRange(i, n int) error {
	return fmt.Errorf("%w: index %d, length %d", collections.ErrIndexOutOfRange, i, n)
}

func scalarConverter(fd *descriptor.Field) func(any) (any, error) {
	return func(v any) (any, error) {
		if err := message.CheckElement(fd, v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// enumConverter accepts an enum number, a value of the field's enum, or a
// plain int32. Numbers outside the declared values are kept, enums being
// open.
func enumConverter(fd *descriptor.Field) func(any) (any, error) {
	ed := fd.Enum()
	return func(v any) (any, error) {
		switch x := v.(type) {
		case descriptor.EnumNumber:
			return x, nil
		case int32:
			return descriptor.EnumNumber(x), nil
		case *descriptor.EnumValue:
			if x != nil && x.Enum() == ed {
				return x.Number(), nil
			}
		}
		return nil, fmt.Errorf("%w: %s (enum %s) cannot hold %T", message.ErrTypeMismatch, fd.FullName(), ed.FullName(), v)
	}
}

func messageConverter(fd *descriptor.Field) func(any) (any, error) {
	if fd.IsMap() {
		// Map elements are converted by split.
		return nil
	}
	return func(v any) (any, error) {
		if err := message.CheckElement(fd, v); err != nil {
			return nil, err
		}
		return v, nil
	}
}
