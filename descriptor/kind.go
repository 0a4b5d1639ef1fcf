package descriptor

import (
	"fmt"

	"github.com/anirudhraja/protocore/schema"
	"github.com/anirudhraja/protocore/wire"
)

// Kind is the declared type of a field. The numeric values match the type
// numbers used by descriptor.proto.
type Kind int8

const (
	DoubleKind   Kind = 1
	FloatKind    Kind = 2
	Int64Kind    Kind = 3
	Uint64Kind   Kind = 4
	Int32Kind    Kind = 5
	Fixed64Kind  Kind = 6
	Fixed32Kind  Kind = 7
	BoolKind     Kind = 8
	StringKind   Kind = 9
	GroupKind    Kind = 10
	MessageKind  Kind = 11
	BytesKind    Kind = 12
	Uint32Kind   Kind = 13
	EnumKind     Kind = 14
	Sfixed32Kind Kind = 15
	Sfixed64Kind Kind = 16
	Sint32Kind   Kind = 17
	Sint64Kind   Kind = 18
)

var kindNames = map[Kind]string{
	DoubleKind:   "double",
	FloatKind:    "float",
	Int64Kind:    "int64",
	Uint64Kind:   "uint64",
	Int32Kind:    "int32",
	Fixed64Kind:  "fixed64",
	Fixed32Kind:  "fixed32",
	BoolKind:     "bool",
	StringKind:   "string",
	GroupKind:    "group",
	MessageKind:  "message",
	BytesKind:    "bytes",
	Uint32Kind:   "uint32",
	EnumKind:     "enum",
	Sfixed32Kind: "sfixed32",
	Sfixed64Kind: "sfixed64",
	Sint32Kind:   "sint32",
	Sint64Kind:   "sint64",
}

var primitiveKinds = map[schema.PrimitiveType]Kind{
	schema.TypeDouble:   DoubleKind,
	schema.TypeFloat:    FloatKind,
	schema.TypeInt64:    Int64Kind,
	schema.TypeUint64:   Uint64Kind,
	schema.TypeInt32:    Int32Kind,
	schema.TypeFixed64:  Fixed64Kind,
	schema.TypeFixed32:  Fixed32Kind,
	schema.TypeBool:     BoolKind,
	schema.TypeString:   StringKind,
	schema.TypeBytes:    BytesKind,
	schema.TypeUint32:   Uint32Kind,
	schema.TypeSfixed32: Sfixed32Kind,
	schema.TypeSfixed64: Sfixed64Kind,
	schema.TypeSint32:   Sint32Kind,
	schema.TypeSint64:   Sint64Kind,
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int8(k))
}

// WireType returns the wire type a single value of kind k is encoded with.
func (k Kind) WireType() wire.WireType {
	switch k {
	case DoubleKind, Fixed64Kind, Sfixed64Kind:
		return wire.WireFixed64
	case FloatKind, Fixed32Kind, Sfixed32Kind:
		return wire.WireFixed32
	case StringKind, BytesKind, MessageKind:
		return wire.WireBytes
	case GroupKind:
		return wire.WireStartGroup
	default:
		return wire.WireVarint
	}
}

// IsPackable reports whether repeated values of kind k may be packed.
func (k Kind) IsPackable() bool {
	return wire.Packable(k.WireType())
}

// IsMessage reports whether values of kind k are sub-messages.
func (k Kind) IsMessage() bool {
	return k == MessageKind || k == GroupKind
}

// IsScalar reports whether k is neither a message, a group nor an enum.
func (k Kind) IsScalar() bool {
	return !k.IsMessage() && k != EnumKind
}

// validMapKey reports whether k may be used as a map key.
func (k Kind) validMapKey() bool {
	switch k {
	case DoubleKind, FloatKind, BytesKind, MessageKind, GroupKind, EnumKind:
		return false
	}
	return true
}

// Cardinality is a field's label.
type Cardinality int8

const (
	Optional Cardinality = 1
	Required Cardinality = 2
	Repeated Cardinality = 3
)

func (c Cardinality) String() string {
	switch c {
	case Optional:
		return "optional"
	case Required:
		return "required"
	case Repeated:
		return "repeated"
	}
	return fmt.Sprintf("Cardinality(%d)", int8(c))
}

// Syntax is the language level a file was written in.
type Syntax int8

const (
	Proto2 Syntax = 2
	Proto3 Syntax = 3
)

func (s Syntax) String() string {
	if s == Proto3 {
		return schema.SyntaxProto3
	}
	return schema.SyntaxProto2
}

// EnumNumber is the numeric value of an enum constant. Enum fields hold
// EnumNumber values, including numbers the enum does not declare.
type EnumNumber int32
