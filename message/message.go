// Package message implements dynamic protobuf messages: values of a message
// type known only through its descriptor, with binary parsing and
// serialization.
//
// Field values use the Go types documented on descriptor.Kind. Repeated
// fields hold a *collections.RepeatedField[any], map fields a
// *collections.MapField[any, any] and message fields a *Message.
//
// A Message is not safe for concurrent mutation. Once frozen it and
// everything it owns may be read from any number of goroutines.
package message

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/anirudhraja/protocore/collections"
	"github.com/anirudhraja/protocore/descriptor"
	"github.com/anirudhraja/protocore/wire"
)

// List is the value type of repeated fields.
type List = collections.RepeatedField[any]

// Map is the value type of map fields.
type Map = collections.MapField[any, any]

// Message is a dynamic message.
type Message struct {
	desc *descriptor.Message

	// values is indexed by field index. Oneof members are kept in oneofs.
	values  []any
	oneofs  []oneofValue
	ext     map[wire.FieldNumber]extensionValue
	unknown []byte
	frozen  bool
}

// oneofValue is the tagged-union slot of a oneof. field is nil when no
// member is set.
type oneofValue struct {
	field *descriptor.Field
	value any
}

type extensionValue struct {
	field *descriptor.Field
	value any
}

// New returns an empty mutable message of type desc.
func New(desc *descriptor.Message) *Message {
	return &Message{
		desc:   desc,
		values: make([]any, len(desc.Fields())),
		oneofs: make([]oneofValue, len(desc.Oneofs())),
	}
}

// Descriptor returns the message's type.
func (m *Message) Descriptor() *descriptor.Message { return m.desc }

// IsFrozen reports whether Freeze has been called.
func (m *Message) IsFrozen() bool { return m.frozen }

// Freeze makes the message and everything it owns read-only. It is
// idempotent.
func (m *Message) Freeze() {
	if m.frozen {
		return
	}
	m.frozen = true
	for _, v := range m.values {
		collections.FreezeValue(v)
	}
	for _, o := range m.oneofs {
		collections.FreezeValue(o.value)
	}
	for _, x := range m.ext {
		collections.FreezeValue(x.value)
	}
}

func (m *Message) checkMutable() error {
	if m.frozen {
		return collections.ErrFrozen
	}
	return nil
}

func (m *Message) owns(fd *descriptor.Field) bool {
	return fd != nil && fd.ContainingMessage() == m.desc
}

func (m *Message) checkField(fd *descriptor.Field) error {
	if !m.owns(fd) {
		name := "<nil>"
		if fd != nil {
			name = fd.FullName()
		}
		return fmt.Errorf("%w: %s is not a field of %s", ErrUnknownField, name, m.desc.FullName())
	}
	return nil
}

func (m *Message) load(fd *descriptor.Field) any {
	switch {
	case fd.IsExtension():
		if x, ok := m.ext[fd.Number()]; ok && x.field == fd {
			return x.value
		}
		return nil
	case fd.ContainingOneof() != nil:
		if slot := m.oneofs[fd.ContainingOneof().Index()]; slot.field == fd {
			return slot.value
		}
		return nil
	}
	return m.values[fd.Index()]
}

// store sets the raw slot of fd. A nil v clears it.
func (m *Message) store(fd *descriptor.Field, v any) {
	switch {
	case fd.IsExtension():
		if v == nil {
			delete(m.ext, fd.Number())
			return
		}
		if m.ext == nil {
			m.ext = make(map[wire.FieldNumber]extensionValue)
		}
		m.ext[fd.Number()] = extensionValue{field: fd, value: v}
	case fd.ContainingOneof() != nil:
		slot := &m.oneofs[fd.ContainingOneof().Index()]
		if v != nil {
			*slot = oneofValue{field: fd, value: v}
		} else if slot.field == fd {
			*slot = oneofValue{}
		}
	default:
		m.values[fd.Index()] = v
	}
}

// storeScalar stores a singular value, treating the zero value of a field
// without presence as unset.
func (m *Message) storeScalar(fd *descriptor.Field, v any) {
	if !fd.HasPresence() && isZero(v) {
		v = nil
	}
	m.store(fd, v)
}

// Has reports whether fd is set. Repeated fields are set when non-empty.
func (m *Message) Has(fd *descriptor.Field) bool {
	if !m.owns(fd) {
		return false
	}
	switch x := m.load(fd).(type) {
	case nil:
		return false
	case *List:
		return x.Len() > 0
	case *Map:
		return x.Len() > 0
	}
	return true
}

// Get returns the value of fd. Unset scalar fields report their default,
// unset message fields nil, and unset repeated fields an empty frozen
// collection. Bytes values are returned as copies.
func (m *Message) Get(fd *descriptor.Field) any {
	if !m.owns(fd) {
		return nil
	}
	if v := m.load(fd); v != nil {
		if b, ok := v.([]byte); ok {
			return bytes.Clone(b)
		}
		return v
	}
	switch {
	case fd.IsMap():
		empty := newMap(fd)
		empty.Freeze()
		return empty
	case fd.IsList():
		empty := collections.NewRepeatedField[any]()
		empty.Freeze()
		return empty
	case fd.Kind().IsMessage():
		return nil
	case fd.Kind() == descriptor.BytesKind:
		return bytes.Clone(fd.Default().([]byte))
	}
	return fd.Default()
}

// Set stores v in fd. Setting a oneof member replaces whichever member was
// set. Setting the zero value of a field without presence clears it.
func (m *Message) Set(fd *descriptor.Field, v any) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	if err := m.checkField(fd); err != nil {
		return err
	}
	if err := checkValue(fd, v); err != nil {
		return err
	}
	if fd.IsRepeated() || fd.Kind().IsMessage() {
		m.store(fd, v)
		return nil
	}
	if b, ok := v.([]byte); ok {
		v = bytes.Clone(b)
	}
	m.storeScalar(fd, v)
	return nil
}

// Clear unsets fd.
func (m *Message) Clear(fd *descriptor.Field) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	if err := m.checkField(fd); err != nil {
		return err
	}
	m.store(fd, nil)
	return nil
}

// WhichOneof returns the member of od that is set, or nil.
func (m *Message) WhichOneof(od *descriptor.Oneof) *descriptor.Field {
	if od == nil || od.ContainingMessage() != m.desc {
		return nil
	}
	return m.oneofs[od.Index()].field
}

// ClearOneof unsets whichever member of od is set.
func (m *Message) ClearOneof(od *descriptor.Oneof) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	if od == nil || od.ContainingMessage() != m.desc {
		return fmt.Errorf("%w: oneof does not belong to %s", ErrUnknownField, m.desc.FullName())
	}
	m.oneofs[od.Index()] = oneofValue{}
	return nil
}

// Mutable returns the sub-message stored in a singular message field,
// creating and storing an empty one if the field is unset. A frozen
// sub-message is replaced by a mutable copy.
func (m *Message) Mutable(fd *descriptor.Field) (*Message, error) {
	if err := m.checkMutable(); err != nil {
		return nil, err
	}
	if err := m.checkField(fd); err != nil {
		return nil, err
	}
	if fd.IsRepeated() || !fd.Kind().IsMessage() {
		return nil, fmt.Errorf("%w: %s is not a singular message field", ErrTypeMismatch, fd.FullName())
	}
	return m.mutableMessage(fd), nil
}

func (m *Message) mutableMessage(fd *descriptor.Field) *Message {
	sub, _ := m.load(fd).(*Message)
	switch {
	case sub == nil:
		sub = New(fd.Message())
		m.store(fd, sub)
	case sub.frozen:
		sub = sub.Clone()
		m.store(fd, sub)
	}
	return sub
}

// List returns the list stored in a repeated non-map field, creating an
// empty one if needed. It returns nil if fd is not such a field of m. The
// list of a frozen message is frozen.
func (m *Message) List(fd *descriptor.Field) *List {
	if !m.owns(fd) || !fd.IsList() {
		return nil
	}
	if m.frozen {
		return m.Get(fd).(*List)
	}
	return m.mutableList(fd)
}

func (m *Message) mutableList(fd *descriptor.Field) *List {
	l, _ := m.load(fd).(*List)
	switch {
	case l == nil:
		l = collections.NewRepeatedField[any]()
		m.store(fd, l)
	case l.IsFrozen():
		l = l.Clone()
		m.store(fd, l)
	}
	return l
}

// Map returns the map stored in a map field, creating an empty one if
// needed. It returns nil if fd is not a map field of m.
func (m *Message) Map(fd *descriptor.Field) *Map {
	if !m.owns(fd) || !fd.IsMap() {
		return nil
	}
	if m.frozen {
		return m.Get(fd).(*Map)
	}
	return m.mutableMap(fd)
}

func (m *Message) mutableMap(fd *descriptor.Field) *Map {
	mf, _ := m.load(fd).(*Map)
	switch {
	case mf == nil:
		mf = newMap(fd)
		m.store(fd, mf)
	case mf.IsFrozen():
		mf = mf.Clone()
		m.store(fd, mf)
	}
	return mf
}

// NewList returns an empty list suitable for Set on a repeated field.
func NewList(values ...any) *List { return collections.NewRepeatedField(values...) }

// NewMap returns an empty map suitable for Set on map field fd.
func NewMap(fd *descriptor.Field) *Map { return newMap(fd) }

func newMap(fd *descriptor.Field) *Map {
	if v := fd.MapValue(); v != nil && v.Kind().IsMessage() {
		return collections.NewMessageMapField[any, any]()
	}
	return collections.NewMapField[any, any]()
}

// GetExtension returns the value of extension xd, or its default.
func (m *Message) GetExtension(xd *descriptor.Field) any {
	if xd == nil || !xd.IsExtension() {
		return nil
	}
	return m.Get(xd)
}

// SetExtension stores v in extension xd.
func (m *Message) SetExtension(xd *descriptor.Field, v any) error {
	if err := checkExtension(xd); err != nil {
		return err
	}
	return m.Set(xd, v)
}

// HasExtension reports whether extension xd is set.
func (m *Message) HasExtension(xd *descriptor.Field) bool {
	return xd != nil && xd.IsExtension() && m.Has(xd)
}

// ClearExtension unsets extension xd.
func (m *Message) ClearExtension(xd *descriptor.Field) error {
	if err := checkExtension(xd); err != nil {
		return err
	}
	return m.Clear(xd)
}

func checkExtension(xd *descriptor.Field) error {
	if xd == nil || !xd.IsExtension() {
		return fmt.Errorf("%w: not an extension", ErrNotExtension)
	}
	return nil
}

// Range calls f for every set field in ascending field number order, then
// for every set extension in number order, until f returns false.
func (m *Message) Range(f func(fd *descriptor.Field, v any) bool) {
	for _, fd := range m.desc.FieldsByNumber() {
		if m.Has(fd) && !f(fd, m.load(fd)) {
			return
		}
	}
	for _, x := range m.extensions() {
		if m.Has(x.field) && !f(x.field, x.value) {
			return
		}
	}
}

func (m *Message) extensions() []extensionValue {
	if len(m.ext) == 0 {
		return nil
	}
	out := make([]extensionValue, 0, len(m.ext))
	for _, x := range m.ext {
		out = append(out, x)
	}
	slices.SortFunc(out, func(a, b extensionValue) int { return cmp.Compare(a.field.Number(), b.field.Number()) })
	return out
}

// UnknownFields returns a copy of the raw bytes of fields the parser did
// not recognize, in the order they were read.
func (m *Message) UnknownFields() []byte { return bytes.Clone(m.unknown) }

// SetUnknownFields replaces the unknown field bytes.
func (m *Message) SetUnknownFields(raw []byte) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	m.unknown = bytes.Clone(raw)
	return nil
}

// Reset clears every field, extension and unknown field.
func (m *Message) Reset() error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	clear(m.values)
	clear(m.oneofs)
	m.ext = nil
	m.unknown = nil
	return nil
}

// Merge merges src into m: set scalars overwrite, messages merge
// recursively, lists append, maps overwrite per key, unknown fields append.
func (m *Message) Merge(src *Message) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	if src.desc != m.desc {
		return fmt.Errorf("%w: cannot merge %s into %s", ErrTypeMismatch, src.desc.FullName(), m.desc.FullName())
	}
	var err error
	src.Range(func(fd *descriptor.Field, v any) bool {
		err = m.mergeField(fd, v)
		return err == nil
	})
	if err != nil {
		return err
	}
	m.unknown = append(m.unknown, src.unknown...)
	return nil
}

func (m *Message) mergeField(fd *descriptor.Field, v any) error {
	switch x := v.(type) {
	case *List:
		dst := m.mutableList(fd)
		for _, e := range x.All() {
			if err := dst.Add(collections.CloneValue(e)); err != nil {
				return err
			}
		}
		return nil
	case *Map:
		return m.mutableMap(fd).MergeFrom(x)
	case *Message:
		if _, ok := m.load(fd).(*Message); ok {
			return wire.WrapWithField(m.mutableMessage(fd).Merge(x), fd.Name())
		}
		m.store(fd, x.Clone())
		return nil
	case []byte:
		m.store(fd, bytes.Clone(x))
		return nil
	}
	m.store(fd, v)
	return nil
}

// Clone returns a mutable deep copy. Frozen sub-values are shared.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	out := New(m.desc)
	for i, v := range m.values {
		out.values[i] = collections.CloneValue(v)
	}
	for i, o := range m.oneofs {
		out.oneofs[i] = oneofValue{field: o.field, value: collections.CloneValue(o.value)}
	}
	if len(m.ext) > 0 {
		out.ext = make(map[wire.FieldNumber]extensionValue, len(m.ext))
		for n, x := range m.ext {
			out.ext[n] = extensionValue{field: x.field, value: collections.CloneValue(x.value)}
		}
	}
	out.unknown = bytes.Clone(m.unknown)
	return out
}

// DeepClone implements collections.DeepCloneable.
func (m *Message) DeepClone() any { return m.Clone() }

// Equal reports whether both messages have the same type, the same set
// fields with equal values, the same extensions and identical unknown
// bytes.
func (m *Message) Equal(other *Message) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m == other {
		return true
	}
	if m.desc != other.desc || !bytes.Equal(m.unknown, other.unknown) {
		return false
	}
	for _, fd := range m.desc.Fields() {
		if !fieldEqual(m, other, fd) {
			return false
		}
	}
	for _, x := range m.ext {
		if !fieldEqual(m, other, x.field) {
			return false
		}
	}
	for _, x := range other.ext {
		if !fieldEqual(m, other, x.field) {
			return false
		}
	}
	return true
}

func fieldEqual(a, b *Message, fd *descriptor.Field) bool {
	has := a.Has(fd)
	if has != b.Has(fd) {
		return false
	}
	return !has || collections.ValuesEqual(a.load(fd), b.load(fd))
}

// Equals implements collections.Equatable.
func (m *Message) Equals(other any) bool {
	o, ok := other.(*Message)
	return ok && m.Equal(o)
}

// CheckInitialized returns ErrRequiredNotSet, wrapped with the field path,
// if any required field in the message tree is unset.
func (m *Message) CheckInitialized() error {
	for _, fd := range m.desc.RequiredFields() {
		if !m.Has(fd) {
			return fmt.Errorf("%w: %s", ErrRequiredNotSet, fd.FullName())
		}
	}
	var err error
	m.Range(func(fd *descriptor.Field, v any) bool {
		if !fd.Kind().IsMessage() {
			return true
		}
		switch x := v.(type) {
		case *Message:
			err = x.CheckInitialized()
		case *List:
			for _, e := range x.All() {
				if sub, ok := e.(*Message); ok {
					if err = sub.CheckInitialized(); err != nil {
						break
					}
				}
			}
		case *Map:
			for _, e := range x.All() {
				if sub, ok := e.(*Message); ok && sub != nil {
					if err = sub.CheckInitialized(); err != nil {
						break
					}
				}
			}
		}
		if err != nil {
			err = wire.WrapWithField(err, fd.Name())
			return false
		}
		return true
	})
	return err
}

// IsInitialized reports whether every required field in the message tree
// is set.
func (m *Message) IsInitialized() bool { return m.CheckInitialized() == nil }

// Size returns the encoded size of the message with default options.
func (m *Message) Size() int { return MarshalOptions{}.Size(m) }

// checkValue validates the Go type of a value about to be stored in fd.
func checkValue(fd *descriptor.Field, v any) error {
	switch {
	case fd.IsMap():
		mf, ok := v.(*Map)
		if !ok || mf == nil {
			return typeMismatch(fd, v)
		}
		return checkMap(fd, mf)
	case fd.IsList():
		l, ok := v.(*List)
		if !ok || l == nil {
			return typeMismatch(fd, v)
		}
		return checkList(fd, l)
	}
	return checkSingular(fd, v)
}

// CheckElement validates v as one element of fd: a list element for
// repeated fields, the field value otherwise. Map fields are not accepted.
func CheckElement(fd *descriptor.Field, v any) error {
	if fd.IsMap() {
		return typeMismatch(fd, v)
	}
	return checkSingular(fd, v)
}

func checkList(fd *descriptor.Field, l *List) error {
	for _, e := range l.All() {
		if err := checkSingular(fd, e); err != nil {
			return err
		}
	}
	return nil
}

func checkMap(fd *descriptor.Field, mf *Map) error {
	kf, vf := fd.MapKey(), fd.MapValue()
	for k, v := range mf.All() {
		if err := checkSingular(kf, k); err != nil {
			return err
		}
		if v == nil && vf.Kind().IsMessage() {
			continue
		}
		if err := checkSingular(vf, v); err != nil {
			return err
		}
	}
	return nil
}

func checkSingular(fd *descriptor.Field, v any) error {
	var ok bool
	switch fd.Kind() {
	case descriptor.Int32Kind, descriptor.Sint32Kind, descriptor.Sfixed32Kind:
		_, ok = v.(int32)
	case descriptor.Int64Kind, descriptor.Sint64Kind, descriptor.Sfixed64Kind:
		_, ok = v.(int64)
	case descriptor.Uint32Kind, descriptor.Fixed32Kind:
		_, ok = v.(uint32)
	case descriptor.Uint64Kind, descriptor.Fixed64Kind:
		_, ok = v.(uint64)
	case descriptor.FloatKind:
		_, ok = v.(float32)
	case descriptor.DoubleKind:
		_, ok = v.(float64)
	case descriptor.BoolKind:
		_, ok = v.(bool)
	case descriptor.StringKind:
		_, ok = v.(string)
	case descriptor.BytesKind:
		_, ok = v.([]byte)
	case descriptor.EnumKind:
		_, ok = v.(descriptor.EnumNumber)
	case descriptor.MessageKind, descriptor.GroupKind:
		sub, isMsg := v.(*Message)
		ok = isMsg && sub != nil && sub.desc == fd.Message()
	}
	if !ok {
		return typeMismatch(fd, v)
	}
	return nil
}

func isZero(v any) bool {
	switch x := v.(type) {
	case int32:
		return x == 0
	case int64:
		return x == 0
	case uint32:
		return x == 0
	case uint64:
		return x == 0
	case float32:
		return math.Float32bits(x) == 0
	case float64:
		return math.Float64bits(x) == 0
	case bool:
		return !x
	case string:
		return x == ""
	case []byte:
		return len(x) == 0
	case descriptor.EnumNumber:
		return x == 0
	}
	return false
}
