package wire

import (
	"unicode/utf8"
)

// DECODER METHODS

// ReadLength decodes a length prefix and checks it against the remaining input.
func (d *Decoder) ReadLength() (int, error) {
	length, err := d.ReadVarint()
	if err != nil {
		return 0, err
	}
	if length > uint64(d.Remaining()) {
		return 0, d.errorf(ErrTruncatedMessage)
	}
	return int(length), nil
}

func (d *Decoder) readLengthDelimited() ([]byte, int, error) {
	length, err := d.ReadLength()
	if err != nil {
		return nil, 0, err
	}
	start := d.pos
	d.pos += length
	return d.buf[start:d.pos:d.pos], start, nil
}

// ReadBytes decodes a length-delimited byte array into a fresh slice
func (d *Decoder) ReadBytes() ([]byte, error) {
	raw, _, err := d.readLengthDelimited()
	if err != nil {
		return nil, err
	}

	// Copy the data to avoid sharing the underlying buffer
	data := make([]byte, len(raw))
	copy(data, raw)
	return data, nil
}

// ReadRawBytes decodes a length-delimited byte array without copying.
func (d *Decoder) ReadRawBytes() ([]byte, error) {
	raw, _, err := d.readLengthDelimited()
	return raw, err
}

// ReadString decodes a length-delimited string. When validate is set and
// the decoder allows it, the contents must be valid UTF-8.
func (d *Decoder) ReadString(validate bool) (string, error) {
	raw, start, err := d.readLengthDelimited()
	if err != nil {
		return "", err
	}
	if validate && !d.opts.AllowInvalidUTF8 && !utf8.Valid(raw) {
		return "", &ParseError{Offset: d.base + start, Err: ErrInvalidUTF8}
	}
	return string(raw), nil
}

// ENCODER METHODS

// WriteLength encodes a length prefix
func (e *Encoder) WriteLength(n int) {
	e.buf = AppendVarint(e.buf, uint64(n))
}

// WriteBytes encodes a byte array as length-delimited
func (e *Encoder) WriteBytes(data []byte) {
	e.WriteLength(len(data))
	e.buf = append(e.buf, data...)
}

// WriteString encodes a string as length-delimited bytes
func (e *Encoder) WriteString(s string) {
	e.WriteLength(len(s))
	e.buf = append(e.buf, s...)
}

// UTILITY FUNCTIONS

// LengthDelimitedSize returns the size needed to encode n bytes with their
// length prefix.
func LengthDelimitedSize(n int) int {
	return VarintSize(uint64(n)) + n
}
