package wire

import (
	"encoding/binary"
	"math"
)

// DECODER METHODS

// ReadFixed32 decodes a 32-bit little-endian fixed-width value
func (d *Decoder) ReadFixed32() (uint32, error) {
	if d.Remaining() < 4 {
		return 0, d.errorf(ErrTruncatedMessage)
	}

	value := binary.LittleEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return value, nil
}

// ReadFixed64 decodes a 64-bit little-endian fixed-width value
func (d *Decoder) ReadFixed64() (uint64, error) {
	if d.Remaining() < 8 {
		return 0, d.errorf(ErrTruncatedMessage)
	}

	value := binary.LittleEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return value, nil
}

// ReadSfixed32 decodes a signed 32-bit fixed-width value
func (d *Decoder) ReadSfixed32() (int32, error) {
	v, err := d.ReadFixed32()
	return int32(v), err
}

// ReadSfixed64 decodes a signed 64-bit fixed-width value
func (d *Decoder) ReadSfixed64() (int64, error) {
	v, err := d.ReadFixed64()
	return int64(v), err
}

// ReadFloat decodes a 32-bit float from fixed32 data
func (d *Decoder) ReadFloat() (float32, error) {
	v, err := d.ReadFixed32()
	return math.Float32frombits(v), err
}

// ReadDouble decodes a 64-bit float from fixed64 data
func (d *Decoder) ReadDouble() (float64, error) {
	v, err := d.ReadFixed64()
	return math.Float64frombits(v), err
}

// ENCODER METHODS

// WriteFixed32 encodes a 32-bit fixed-width value
func (e *Encoder) WriteFixed32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

// WriteFixed64 encodes a 64-bit fixed-width value
func (e *Encoder) WriteFixed64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

// WriteSfixed32 encodes a signed 32-bit fixed-width value
func (e *Encoder) WriteSfixed32(v int32) {
	e.WriteFixed32(uint32(v))
}

// WriteSfixed64 encodes a signed 64-bit fixed-width value
func (e *Encoder) WriteSfixed64(v int64) {
	e.WriteFixed64(uint64(v))
}

// WriteFloat encodes a 32-bit float as fixed32
func (e *Encoder) WriteFloat(v float32) {
	e.WriteFixed32(math.Float32bits(v))
}

// WriteDouble encodes a 64-bit float as fixed64
func (e *Encoder) WriteDouble(v float64) {
	e.WriteFixed64(math.Float64bits(v))
}

// UTILITY FUNCTIONS

const (
	// Fixed32Size is the encoded size of any fixed32 value.
	Fixed32Size = 4
	// Fixed64Size is the encoded size of any fixed64 value.
	Fixed64Size = 8
)
