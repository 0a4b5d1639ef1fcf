package wire

// FieldCodec bundles everything needed to read, write and size values of a
// single field: its tag, its element wire type and typed read/write
// closures. Codecs are immutable and may be shared freely.
type FieldCodec[T any] struct {
	number       FieldNumber
	elemWire     WireType
	packed       bool
	fixedSize    int
	defaultValue T

	read  func(*Decoder) (T, error)
	write func(*Encoder, T)
	size  func(T) int
}

// NewFieldCodec builds a codec for a field whose elements use elemWire. A
// fixedSize of zero means values are variable-length.
func NewFieldCodec[T any](
	number FieldNumber,
	elemWire WireType,
	packed bool,
	fixedSize int,
	read func(*Decoder) (T, error),
	write func(*Encoder, T),
	size func(T) int,
	defaultValue T,
) *FieldCodec[T] {
	return &FieldCodec[T]{
		number:       number,
		elemWire:     elemWire,
		packed:       packed && Packable(elemWire),
		fixedSize:    fixedSize,
		defaultValue: defaultValue,
		read:         read,
		write:        write,
		size:         size,
	}
}

// FieldNumber returns the field number the codec writes.
func (c *FieldCodec[T]) FieldNumber() FieldNumber { return c.number }

// ElementWireType returns the wire type of a single unpacked element.
func (c *FieldCodec[T]) ElementWireType() WireType { return c.elemWire }

// ElementTag returns the tag written before a single unpacked element.
func (c *FieldCodec[T]) ElementTag() Tag { return MakeTag(c.number, c.elemWire) }

// Tag returns the tag the codec writes: the packed tag when packed.
func (c *FieldCodec[T]) Tag() Tag {
	if c.packed {
		return MakeTag(c.number, WireBytes)
	}
	return c.ElementTag()
}

// Packed reports whether repeated values are written packed.
func (c *FieldCodec[T]) Packed() bool { return c.packed }

// Packable reports whether values of this codec may legally appear packed.
func (c *FieldCodec[T]) Packable() bool { return Packable(c.elemWire) }

// FixedSize returns the encoded size of every value, or zero if variable.
func (c *FieldCodec[T]) FixedSize() int { return c.fixedSize }

// Default returns the field's default value.
func (c *FieldCodec[T]) Default() T { return c.defaultValue }

// WithPacked returns a copy of the codec with packing switched on or off.
// Unpackable codecs are returned unchanged.
func (c *FieldCodec[T]) WithPacked(packed bool) *FieldCodec[T] {
	if c.packed == packed || !c.Packable() {
		return c
	}
	out := *c
	out.packed = packed
	return &out
}

// Read decodes one value.
func (c *FieldCodec[T]) Read(d *Decoder) (T, error) { return c.read(d) }

// Write encodes one value without a tag.
func (c *FieldCodec[T]) Write(e *Encoder, v T) { c.write(e, v) }

// WriteTagged encodes a single element with its tag, and the closing tag
// for groups.
func (c *FieldCodec[T]) WriteTagged(e *Encoder, v T) {
	e.WriteTag(c.number, c.elemWire)
	c.write(e, v)
	if c.elemWire == WireStartGroup {
		e.WriteTag(c.number, WireEndGroup)
	}
}

// ValueSize returns the encoded size of v without a tag.
func (c *FieldCodec[T]) ValueSize(v T) int {
	if c.fixedSize > 0 {
		return c.fixedSize
	}
	return c.size(v)
}

// TaggedSize returns the encoded size of v as written by WriteTagged.
func (c *FieldCodec[T]) TaggedSize(v T) int {
	n := TagSize(c.number) + c.ValueSize(v)
	if c.elemWire == WireStartGroup {
		n += TagSize(c.number)
	}
	return n
}

// Box adapts a typed codec into one that traffics in any. Writing a value of
// the wrong dynamic type panics; callers validate values before storing them.
func Box[T any](c *FieldCodec[T]) *FieldCodec[any] {
	return &FieldCodec[any]{
		number:       c.number,
		elemWire:     c.elemWire,
		packed:       c.packed,
		fixedSize:    c.fixedSize,
		defaultValue: c.defaultValue,
		read: func(d *Decoder) (any, error) {
			v, err := c.read(d)
			if err != nil {
				return nil, err
			}
			return v, nil
		},
		write: func(e *Encoder, v any) { c.write(e, v.(T)) },
		size:  func(v any) int { return c.size(v.(T)) },
	}
}

// ===== STANDARD CODECS =====
//
// Each constructor takes the tag a field is declared with. A length-delimited
// tag on a numeric codec selects packed encoding.

func numericCodec[T any](tag Tag, elemWire WireType, fixedSize int, read func(*Decoder) (T, error), write func(*Encoder, T), size func(T) int) *FieldCodec[T] {
	num, wt := ParseTag(tag)
	var zero T
	return NewFieldCodec(num, elemWire, wt == WireBytes, fixedSize, read, write, size, zero)
}

// ForInt32 returns a codec for int32 fields.
func ForInt32(tag Tag) *FieldCodec[int32] {
	return numericCodec(tag, WireVarint, 0, (*Decoder).ReadInt32, (*Encoder).WriteInt32, SizeOfVarint[int32])
}

// ForInt64 returns a codec for int64 fields.
func ForInt64(tag Tag) *FieldCodec[int64] {
	return numericCodec(tag, WireVarint, 0, (*Decoder).ReadInt64, (*Encoder).WriteInt64, SizeOfVarint[int64])
}

// ForUInt32 returns a codec for uint32 fields.
func ForUInt32(tag Tag) *FieldCodec[uint32] {
	return numericCodec(tag, WireVarint, 0, (*Decoder).ReadUint32, (*Encoder).WriteUint32, SizeOfVarint[uint32])
}

// ForUInt64 returns a codec for uint64 fields.
func ForUInt64(tag Tag) *FieldCodec[uint64] {
	return numericCodec(tag, WireVarint, 0, (*Decoder).ReadVarint, (*Encoder).WriteVarint, SizeOfVarint[uint64])
}

// ForSInt32 returns a codec for zigzag-encoded sint32 fields.
func ForSInt32(tag Tag) *FieldCodec[int32] {
	return numericCodec(tag, WireVarint, 0, (*Decoder).ReadSint32, (*Encoder).WriteSint32,
		func(v int32) int { return VarintSize(uint64(ZigZagEncode32(v))) })
}

// ForSInt64 returns a codec for zigzag-encoded sint64 fields.
func ForSInt64(tag Tag) *FieldCodec[int64] {
	return numericCodec(tag, WireVarint, 0, (*Decoder).ReadSint64, (*Encoder).WriteSint64,
		func(v int64) int { return VarintSize(ZigZagEncode64(v)) })
}

// ForFixed32 returns a codec for fixed32 fields.
func ForFixed32(tag Tag) *FieldCodec[uint32] {
	return numericCodec(tag, WireFixed32, Fixed32Size, (*Decoder).ReadFixed32, (*Encoder).WriteFixed32, nil)
}

// ForFixed64 returns a codec for fixed64 fields.
func ForFixed64(tag Tag) *FieldCodec[uint64] {
	return numericCodec(tag, WireFixed64, Fixed64Size, (*Decoder).ReadFixed64, (*Encoder).WriteFixed64, nil)
}

// ForSFixed32 returns a codec for sfixed32 fields.
func ForSFixed32(tag Tag) *FieldCodec[int32] {
	return numericCodec(tag, WireFixed32, Fixed32Size, (*Decoder).ReadSfixed32, (*Encoder).WriteSfixed32, nil)
}

// ForSFixed64 returns a codec for sfixed64 fields.
func ForSFixed64(tag Tag) *FieldCodec[int64] {
	return numericCodec(tag, WireFixed64, Fixed64Size, (*Decoder).ReadSfixed64, (*Encoder).WriteSfixed64, nil)
}

// ForFloat returns a codec for float fields.
func ForFloat(tag Tag) *FieldCodec[float32] {
	return numericCodec(tag, WireFixed32, Fixed32Size, (*Decoder).ReadFloat, (*Encoder).WriteFloat, nil)
}

// ForDouble returns a codec for double fields.
func ForDouble(tag Tag) *FieldCodec[float64] {
	return numericCodec(tag, WireFixed64, Fixed64Size, (*Decoder).ReadDouble, (*Encoder).WriteDouble, nil)
}

// ForBool returns a codec for bool fields.
func ForBool(tag Tag) *FieldCodec[bool] {
	return numericCodec(tag, WireVarint, 0, (*Decoder).ReadBool, (*Encoder).WriteBool, func(bool) int { return 1 })
}

// ForEnum returns a codec for enum fields, carried as their int32 number.
func ForEnum(tag Tag) *FieldCodec[int32] {
	return ForInt32(tag)
}

// ForString returns a codec for string fields. validateUTF8 requests UTF-8
// validation on read, subject to the decoder's options.
func ForString(tag Tag, validateUTF8 bool) *FieldCodec[string] {
	return NewFieldCodec(tag.FieldNumber(), WireBytes, false, 0,
		func(d *Decoder) (string, error) { return d.ReadString(validateUTF8) },
		(*Encoder).WriteString,
		func(s string) int { return LengthDelimitedSize(len(s)) },
		"")
}

// ForBytes returns a codec for bytes fields.
func ForBytes(tag Tag) *FieldCodec[[]byte] {
	return NewFieldCodec(tag.FieldNumber(), WireBytes, false, 0,
		(*Decoder).ReadBytes,
		(*Encoder).WriteBytes,
		func(b []byte) int { return LengthDelimitedSize(len(b)) },
		nil)
}
