package wire

import (
	"golang.org/x/exp/constraints"
)

// maxVarintLen is the longest encoding of a 64-bit value.
const maxVarintLen = 10

// DECODER METHODS

// ReadVarint decodes a varint from the current position
func (d *Decoder) ReadVarint() (uint64, error) {
	var result uint64
	var shift uint

	for i := 0; i < maxVarintLen; i++ {
		if d.pos >= len(d.buf) {
			return 0, d.errorf(ErrMalformedVarint)
		}

		b := d.buf[d.pos]
		d.pos++

		// The tenth byte carries only the 64th bit.
		if i == maxVarintLen-1 && b > 1 {
			return 0, d.errorf(ErrMalformedVarint)
		}
		result |= uint64(b&0x7F) << shift

		if b < 0x80 {
			return result, nil
		}

		shift += 7
	}

	return 0, d.errorf(ErrMalformedVarint)
}

// ReadInt32 decodes a plain varint as int32, truncating sign-extended input.
func (d *Decoder) ReadInt32() (int32, error) {
	v, err := d.ReadVarint()
	return int32(v), err
}

// ReadInt64 decodes a plain varint as int64
func (d *Decoder) ReadInt64() (int64, error) {
	v, err := d.ReadVarint()
	return int64(v), err
}

// ReadUint32 decodes a varint as uint32
func (d *Decoder) ReadUint32() (uint32, error) {
	v, err := d.ReadVarint()
	return uint32(v), err
}

// ReadSint32 decodes a zigzag-encoded signed varint as int32
func (d *Decoder) ReadSint32() (int32, error) {
	v, err := d.ReadVarint()
	return ZigZagDecode32(uint32(v)), err
}

// ReadSint64 decodes a zigzag-encoded signed varint as int64
func (d *Decoder) ReadSint64() (int64, error) {
	v, err := d.ReadVarint()
	return ZigZagDecode64(v), err
}

// ReadBool decodes a varint as bool
func (d *Decoder) ReadBool() (bool, error) {
	v, err := d.ReadVarint()
	return v != 0, err
}

func (d *Decoder) skipVarint() error {
	for i := 0; i < maxVarintLen; i++ {
		if d.pos >= len(d.buf) {
			return d.errorf(ErrMalformedVarint)
		}
		b := d.buf[d.pos]
		d.pos++
		if i == maxVarintLen-1 && b > 1 {
			return d.errorf(ErrMalformedVarint)
		}
		if b < 0x80 {
			return nil
		}
	}
	return d.errorf(ErrMalformedVarint)
}

// peekVarint decodes a varint at the start of b without failing; n is zero
// when b does not start with a complete varint.
func peekVarint(b []byte) (v uint64, n int) {
	var shift uint
	for i := 0; i < maxVarintLen && i < len(b); i++ {
		if i == maxVarintLen-1 && b[i] > 1 {
			return 0, 0
		}
		v |= uint64(b[i]&0x7F) << shift
		if b[i] < 0x80 {
			return v, i + 1
		}
		shift += 7
	}
	return 0, 0
}

// ENCODER METHODS

// WriteVarint encodes a uint64 as varint
func (e *Encoder) WriteVarint(v uint64) {
	e.buf = AppendVarint(e.buf, v)
}

// WriteInt32 encodes an int32 as varint. Negative values are sign-extended
// to 64 bits and therefore always take ten bytes.
func (e *Encoder) WriteInt32(v int32) {
	e.buf = AppendVarint(e.buf, v)
}

// WriteInt64 encodes an int64 as varint
func (e *Encoder) WriteInt64(v int64) {
	e.buf = AppendVarint(e.buf, v)
}

// WriteUint32 encodes a uint32 as varint
func (e *Encoder) WriteUint32(v uint32) {
	e.buf = AppendVarint(e.buf, v)
}

// WriteSint32 encodes a signed int32 with zigzag encoding
func (e *Encoder) WriteSint32(v int32) {
	e.buf = AppendVarint(e.buf, ZigZagEncode32(v))
}

// WriteSint64 encodes a signed int64 with zigzag encoding
func (e *Encoder) WriteSint64(v int64) {
	e.buf = AppendVarint(e.buf, ZigZagEncode64(v))
}

// WriteBool encodes a bool as varint
func (e *Encoder) WriteBool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

// WriteTag encodes a field tag
func (e *Encoder) WriteTag(fieldNumber FieldNumber, wireType WireType) {
	e.buf = AppendVarint(e.buf, uint32(MakeTag(fieldNumber, wireType)))
}

// UTILITY FUNCTIONS

// AppendVarint appends v as a varint. Signed values are converted with
// sign extension, which is what the wire format requires for int32/int64.
func AppendVarint[T constraints.Integer](b []byte, v T) []byte {
	u := uint64(v)
	for u >= 0x80 {
		b = append(b, byte(u)|0x80)
		u >>= 7
	}
	return append(b, byte(u))
}

// SizeOfVarint returns the encoded size of v after the same conversion
// AppendVarint performs.
func SizeOfVarint[T constraints.Integer](v T) int {
	return VarintSize(uint64(v))
}

// ZigZagEncode32 encodes a signed 32-bit integer using zigzag encoding
func ZigZagEncode32(v int32) uint32 {
	return uint32(v<<1) ^ uint32(v>>31)
}

// ZigZagEncode64 encodes a signed 64-bit integer using zigzag encoding
func ZigZagEncode64(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

// ZigZagDecode32 decodes a zigzag-encoded 32-bit integer
func ZigZagDecode32(v uint32) int32 {
	return int32(v>>1) ^ -int32(v&1)
}

// ZigZagDecode64 decodes a zigzag-encoded 64-bit integer
func ZigZagDecode64(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}

// VarintSize returns the number of bytes needed to encode the given varint
func VarintSize(v uint64) int {
	switch {
	case v < 1<<7:
		return 1
	case v < 1<<14:
		return 2
	case v < 1<<21:
		return 3
	case v < 1<<28:
		return 4
	case v < 1<<35:
		return 5
	case v < 1<<42:
		return 6
	case v < 1<<49:
		return 7
	case v < 1<<56:
		return 8
	case v < 1<<63:
		return 9
	default:
		return 10
	}
}

// TagSize returns the encoded size of a tag for fieldNumber.
func TagSize(fieldNumber FieldNumber) int {
	return VarintSize(uint64(fieldNumber) << 3)
}
