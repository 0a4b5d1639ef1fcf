package wire

// Encoder handles low-level protobuf wire format encoding by appending to
// an in-memory buffer.
type Encoder struct {
	buf []byte
}

// NewEncoder creates a new wire format encoder
func NewEncoder() *Encoder {
	return &Encoder{
		buf: make([]byte, 0, 64),
	}
}

// NewEncoderSize creates an encoder with room for size bytes.
func NewEncoderSize(size int) *Encoder {
	return &Encoder{
		buf: make([]byte, 0, size),
	}
}

// Bytes returns the encoded bytes
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Reset clears the encoder buffer
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// WriteRaw appends pre-encoded bytes verbatim.
func (e *Encoder) WriteRaw(b []byte) {
	e.buf = append(e.buf, b...)
}
