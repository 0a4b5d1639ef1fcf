package descriptor

import (
	"github.com/anirudhraja/protocore/wire"
)

// scalarCodec builds the boxed codec used to read and write values of a
// scalar or enum field. Values travel as the Go types documented on Kind.
func scalarCodec(fd *Field) *wire.FieldCodec[any] {
	tag := fd.Tag()
	switch fd.kind {
	case Int32Kind:
		return wire.Box(wire.ForInt32(tag))
	case Int64Kind:
		return wire.Box(wire.ForInt64(tag))
	case Uint32Kind:
		return wire.Box(wire.ForUInt32(tag))
	case Uint64Kind:
		return wire.Box(wire.ForUInt64(tag))
	case Sint32Kind:
		return wire.Box(wire.ForSInt32(tag))
	case Sint64Kind:
		return wire.Box(wire.ForSInt64(tag))
	case Fixed32Kind:
		return wire.Box(wire.ForFixed32(tag))
	case Fixed64Kind:
		return wire.Box(wire.ForFixed64(tag))
	case Sfixed32Kind:
		return wire.Box(wire.ForSFixed32(tag))
	case Sfixed64Kind:
		return wire.Box(wire.ForSFixed64(tag))
	case FloatKind:
		return wire.Box(wire.ForFloat(tag))
	case DoubleKind:
		return wire.Box(wire.ForDouble(tag))
	case BoolKind:
		return wire.Box(wire.ForBool(tag))
	case StringKind:
		return wire.Box(wire.ForString(tag, fd.validateUTF8))
	case BytesKind:
		return wire.Box(wire.ForBytes(tag))
	case EnumKind:
		return wire.Box(enumCodec(tag))
	}
	return nil
}

func enumCodec(tag wire.Tag) *wire.FieldCodec[EnumNumber] {
	num, wt := wire.ParseTag(tag)
	return wire.NewFieldCodec(num, wire.WireVarint, wt == wire.WireBytes, 0,
		func(d *wire.Decoder) (EnumNumber, error) {
			v, err := d.ReadInt32()
			return EnumNumber(v), err
		},
		func(e *wire.Encoder, v EnumNumber) { e.WriteInt32(int32(v)) },
		func(v EnumNumber) int { return wire.SizeOfVarint(int32(v)) },
		EnumNumber(0))
}
