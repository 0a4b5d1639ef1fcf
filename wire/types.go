package wire

import "fmt"

// ===== PROTOBUF WIRE FORMAT TYPES =====

// WireType represents protobuf wire format types
type WireType int8

const (
	WireVarint     WireType = 0 // int32, int64, uint32, uint64, sint32, sint64, bool, enum
	WireFixed64    WireType = 1 // fixed64, sfixed64, double
	WireBytes      WireType = 2 // string, bytes, embedded messages, packed repeated fields
	WireStartGroup WireType = 3 // deprecated group start
	WireEndGroup   WireType = 4 // deprecated group end
	WireFixed32    WireType = 5 // fixed32, sfixed32, float
)

// Valid reports whether w is one of the six defined wire types.
func (w WireType) Valid() bool {
	return w >= WireVarint && w <= WireFixed32
}

// String returns the protoscope-style name of the wire type.
func (w WireType) String() string {
	switch w {
	case WireVarint:
		return "VARINT"
	case WireFixed64:
		return "I64"
	case WireBytes:
		return "LEN"
	case WireStartGroup:
		return "SGROUP"
	case WireEndGroup:
		return "EGROUP"
	case WireFixed32:
		return "I32"
	default:
		return fmt.Sprintf("WireType(%d)", int8(w))
	}
}

// FieldNumber represents a protobuf field number
type FieldNumber int32

const (
	MinFieldNumber FieldNumber = 1
	MaxFieldNumber FieldNumber = 1<<29 - 1

	// Numbers in this range are reserved for the protobuf implementation.
	FirstReservedNumber FieldNumber = 19000
	LastReservedNumber  FieldNumber = 19999
)

// Valid reports whether n may appear on the wire.
func (n FieldNumber) Valid() bool {
	return n >= MinFieldNumber && n <= MaxFieldNumber
}

// Tag represents a protobuf field tag (field number + wire type)
type Tag uint32

// MakeTag creates a tag from field number and wire type
func MakeTag(fieldNumber FieldNumber, wireType WireType) Tag {
	return Tag(uint32(fieldNumber)<<3 | uint32(wireType))
}

// ParseTag parses a tag into field number and wire type
func ParseTag(tag Tag) (FieldNumber, WireType) {
	return FieldNumber(tag >> 3), WireType(tag & 0x7)
}

// FieldNumber returns the field number half of the tag.
func (t Tag) FieldNumber() FieldNumber { return FieldNumber(t >> 3) }

// WireType returns the wire type half of the tag.
func (t Tag) WireType() WireType { return WireType(t & 0x7) }

// Packable reports whether values of wire type w may be concatenated into a
// single length-delimited packed blob.
func Packable(w WireType) bool {
	return w == WireVarint || w == WireFixed32 || w == WireFixed64
}
