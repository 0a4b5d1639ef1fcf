// Package descriptor holds the immutable, fully resolved description of
// protobuf files, messages, fields, oneofs and enums. Descriptors are built
// once by a Pool and are safe for concurrent use afterwards.
package descriptor

import (
	"github.com/anirudhraja/protocore/wire"
)

// maxDenseFieldNumber bounds the slice used for O(1) field lookup. Messages
// with larger field numbers fall back to a map for those fields.
const maxDenseFieldNumber = 1024

// File describes one .proto file.
type File struct {
	name       string
	pkg        string
	syntax     Syntax
	imports    []string
	messages   []*Message
	enums      []*Enum
	extensions []*Field
	services   []*Service
}

func (f *File) Name() string         { return f.name }
func (f *File) Package() string      { return f.pkg }
func (f *File) Syntax() Syntax       { return f.syntax }
func (f *File) Imports() []string    { return f.imports }
func (f *File) Messages() []*Message { return f.messages }
func (f *File) Enums() []*Enum       { return f.enums }
func (f *File) Extensions() []*Field { return f.extensions }
func (f *File) Services() []*Service { return f.services }

// Message describes a message type.
type Message struct {
	file     *File
	parent   *Message
	name     string
	fullName string
	mapEntry bool

	fields     []*Field
	byNumber   []*Field
	dense      []*Field
	sparse     map[wire.FieldNumber]*Field
	byName     map[string]*Field
	oneofs     []*Oneof
	messages   []*Message
	enums      []*Enum
	extensions []*Field
	required   []*Field
}

// Name returns the short name of the message.
func (m *Message) Name() string { return m.name }

// FullName returns the package-qualified name, without a leading dot.
func (m *Message) FullName() string { return m.fullName }

// File returns the file the message is declared in.
func (m *Message) File() *File { return m.file }

// Parent returns the enclosing message, or nil for top-level messages.
func (m *Message) Parent() *Message { return m.parent }

// Syntax returns the syntax of the declaring file.
func (m *Message) Syntax() Syntax { return m.file.syntax }

// IsMapEntry reports whether the message is the synthetic entry type of a
// map field.
func (m *Message) IsMapEntry() bool { return m.mapEntry }

// Fields returns the fields in declaration order. Field.Index is the
// position in this slice.
func (m *Message) Fields() []*Field { return m.fields }

// FieldsByNumber returns the fields sorted by ascending field number.
func (m *Message) FieldsByNumber() []*Field { return m.byNumber }

// FieldByIndex returns the i'th declared field.
func (m *Message) FieldByIndex(i int) *Field {
	if i < 0 || i >= len(m.fields) {
		return nil
	}
	return m.fields[i]
}

// FieldByNumber returns the field with the given number, or nil.
func (m *Message) FieldByNumber(n wire.FieldNumber) *Field {
	if n >= 0 && int(n) < len(m.dense) {
		return m.dense[n]
	}
	return m.sparse[n]
}

// FieldByName returns the field with the given proto name, or nil.
func (m *Message) FieldByName(name string) *Field { return m.byName[name] }

// Oneofs returns the message's oneofs in declaration order.
func (m *Message) Oneofs() []*Oneof { return m.oneofs }

// Messages returns the nested message types, including map entries.
func (m *Message) Messages() []*Message { return m.messages }

// Enums returns the nested enum types.
func (m *Message) Enums() []*Enum { return m.enums }

// Extensions returns extensions declared inside this message's scope. They
// generally extend other messages.
func (m *Message) Extensions() []*Field { return m.extensions }

// RequiredFields returns the fields labeled required.
func (m *Message) RequiredFields() []*Field { return m.required }

// Field describes a message field or an extension.
type Field struct {
	parent   *Message // containing message; the extendee for extensions
	scope    string   // full name of the declaring scope
	name     string
	fullName string
	jsonName string
	number   wire.FieldNumber
	index    int

	kind        Kind
	cardinality Cardinality
	oneof       *Oneof
	message     *Message
	enum        *Enum
	mapEntry    *Message

	packed         bool
	hasPresence    bool
	isExtension    bool
	proto3Optional bool
	validateUTF8   bool
	hasDefault     bool
	defaultValue   any

	codec *wire.FieldCodec[any]
}

func (f *Field) Name() string                { return f.name }
func (f *Field) FullName() string            { return f.fullName }
func (f *Field) JSONName() string            { return f.jsonName }
func (f *Field) Number() wire.FieldNumber    { return f.number }
func (f *Field) Kind() Kind                  { return f.kind }
func (f *Field) Cardinality() Cardinality    { return f.cardinality }
func (f *Field) IsExtension() bool           { return f.isExtension }
func (f *Field) IsProto3Optional() bool      { return f.proto3Optional }
func (f *Field) ContainingOneof() *Oneof     { return f.oneof }
func (f *Field) ContainingMessage() *Message { return f.parent }

// Index returns the declaration index within the containing message, or -1
// for extensions.
func (f *Field) Index() int { return f.index }

// OneofIndex returns the index of the containing oneof, or -1.
func (f *Field) OneofIndex() int {
	if f.oneof == nil {
		return -1
	}
	return f.oneof.index
}

// IsRepeated reports whether the field is a list or a map.
func (f *Field) IsRepeated() bool { return f.cardinality == Repeated }

// IsList reports whether the field is repeated and not a map.
func (f *Field) IsList() bool { return f.cardinality == Repeated && f.mapEntry == nil }

// IsMap reports whether the field is a map.
func (f *Field) IsMap() bool { return f.mapEntry != nil }

// MapEntry returns the synthetic entry message of a map field.
func (f *Field) MapEntry() *Message { return f.mapEntry }

// MapKey returns the key field of a map field's entry.
func (f *Field) MapKey() *Field {
	if f.mapEntry == nil {
		return nil
	}
	return f.mapEntry.FieldByNumber(1)
}

// MapValue returns the value field of a map field's entry.
func (f *Field) MapValue() *Field {
	if f.mapEntry == nil {
		return nil
	}
	return f.mapEntry.FieldByNumber(2)
}

// IsPacked reports whether repeated values are written packed.
func (f *Field) IsPacked() bool { return f.packed }

// HasPresence reports whether the field tracks whether it is set, as
// opposed to treating its zero value as unset.
func (f *Field) HasPresence() bool { return f.hasPresence }

// Message returns the message type of a message, group or map field.
func (f *Field) Message() *Message {
	if f.mapEntry != nil {
		return f.mapEntry
	}
	return f.message
}

// Enum returns the enum type of an enum field.
func (f *Field) Enum() *Enum { return f.enum }

// Default returns the value reported when the field is unset: the declared
// default if there is one, otherwise the zero value of its kind. Message
// fields and repeated fields return nil.
func (f *Field) Default() any { return f.defaultValue }

// HasDefault reports whether the schema declared an explicit default.
func (f *Field) HasDefault() bool { return f.hasDefault }

// WireType returns the wire type of a single unpacked value.
func (f *Field) WireType() wire.WireType { return f.kind.WireType() }

// Tag returns the tag the field is written with.
func (f *Field) Tag() wire.Tag {
	if f.packed {
		return wire.MakeTag(f.number, wire.WireBytes)
	}
	return wire.MakeTag(f.number, f.kind.WireType())
}

// ValidateUTF8 reports whether string values must be valid UTF-8.
func (f *Field) ValidateUTF8() bool { return f.validateUTF8 }

// Codec returns the codec for scalar and enum fields, or nil for message,
// group and map fields.
func (f *Field) Codec() *wire.FieldCodec[any] { return f.codec }

// Oneof describes a oneof.
type Oneof struct {
	parent   *Message
	name     string
	fullName string
	index    int
	fields   []*Field
}

func (o *Oneof) Name() string                { return o.name }
func (o *Oneof) FullName() string            { return o.fullName }
func (o *Oneof) Index() int                  { return o.index }
func (o *Oneof) Fields() []*Field            { return o.fields }
func (o *Oneof) ContainingMessage() *Message { return o.parent }

// Enum describes an enum type.
type Enum struct {
	file     *File
	parent   *Message
	name     string
	fullName string
	values   []*EnumValue
	byNumber map[EnumNumber]*EnumValue
	byName   map[string]*EnumValue
}

func (e *Enum) Name() string         { return e.name }
func (e *Enum) FullName() string     { return e.fullName }
func (e *Enum) File() *File          { return e.file }
func (e *Enum) Parent() *Message     { return e.parent }
func (e *Enum) Values() []*EnumValue { return e.values }

// ValueByNumber returns the first value declared with number n, or nil.
func (e *Enum) ValueByNumber(n EnumNumber) *EnumValue { return e.byNumber[n] }

// ValueByName returns the value with the given name, or nil.
func (e *Enum) ValueByName(name string) *EnumValue { return e.byName[name] }

// EnumValue describes one enum constant.
type EnumValue struct {
	enum   *Enum
	name   string
	number EnumNumber
	index  int
}

func (v *EnumValue) Name() string       { return v.name }
func (v *EnumValue) Number() EnumNumber { return v.number }
func (v *EnumValue) Index() int         { return v.index }
func (v *EnumValue) Enum() *Enum        { return v.enum }

// Service describes a service. Services are carried for completeness; the
// engine does not dispatch calls.
type Service struct {
	name     string
	fullName string
	methods  []*Method
}

func (s *Service) Name() string       { return s.name }
func (s *Service) FullName() string   { return s.fullName }
func (s *Service) Methods() []*Method { return s.methods }

// Method describes one service method.
type Method struct {
	name            string
	input           *Message
	output          *Message
	clientStreaming bool
	serverStreaming bool
}

func (m *Method) Name() string          { return m.name }
func (m *Method) Input() *Message       { return m.input }
func (m *Method) Output() *Message      { return m.output }
func (m *Method) ClientStreaming() bool { return m.clientStreaming }
func (m *Method) ServerStreaming() bool { return m.serverStreaming }
