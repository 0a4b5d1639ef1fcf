package wire

// DefaultRecursionLimit bounds how deeply sub-messages and groups may nest
// before decoding fails with ErrRecursionLimitExceeded.
const DefaultRecursionLimit = 100

// DecoderOptions controls decoding limits shared by a decoder and every
// decoder derived from it.
type DecoderOptions struct {
	// RecursionLimit is the maximum nesting depth. Zero means DefaultRecursionLimit.
	RecursionLimit int

	// AllowInvalidUTF8 disables UTF-8 validation of string fields that would
	// otherwise require it.
	AllowInvalidUTF8 bool
}

// Decoder handles low-level protobuf wire format decoding over an in-memory
// buffer. It is not safe for concurrent use.
type Decoder struct {
	buf     []byte
	pos     int
	base    int // offset of buf[0] within the outermost input
	depth   int
	opts    DecoderOptions
	lastTag Tag
}

// NewDecoder creates a new wire format decoder
func NewDecoder(data []byte) *Decoder {
	return NewDecoderWithOptions(data, DecoderOptions{})
}

// NewDecoderWithOptions creates a decoder with explicit limits.
func NewDecoderWithOptions(data []byte, opts DecoderOptions) *Decoder {
	if opts.RecursionLimit <= 0 {
		opts.RecursionLimit = DefaultRecursionLimit
	}
	return &Decoder{
		buf:  data,
		opts: opts,
	}
}

// Options returns the options the decoder was built with.
func (d *Decoder) Options() DecoderOptions { return d.opts }

// Pos returns the current read offset into the decoder's buffer.
func (d *Decoder) Pos() int { return d.pos }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

// EOF reports whether every byte has been consumed.
func (d *Decoder) EOF() bool { return d.pos >= len(d.buf) }

// Depth returns the current nesting depth.
func (d *Decoder) Depth() int { return d.depth }

// LastTag returns the most recent tag read by ReadTag or MaybeConsumeTag.
func (d *Decoder) LastTag() Tag { return d.lastTag }

// RawSince returns a copy of the bytes consumed since offset start.
func (d *Decoder) RawSince(start int) []byte {
	out := make([]byte, d.pos-start)
	copy(out, d.buf[start:d.pos])
	return out
}

// ReadTag reads a field tag and validates its field number and wire type.
func (d *Decoder) ReadTag() (FieldNumber, WireType, error) {
	v, err := d.ReadVarint()
	if err != nil {
		return 0, 0, err
	}
	if v > uint64(^uint32(0)) {
		return 0, 0, d.errorf(ErrInvalidTag)
	}
	num, wt := ParseTag(Tag(v))
	if num == 0 || !wt.Valid() {
		return 0, 0, d.errorf(ErrInvalidTag)
	}
	d.lastTag = Tag(v)
	return num, wt, nil
}

// MaybeConsumeTag consumes the next tag if it equals tag, leaving the
// decoder untouched otherwise.
func (d *Decoder) MaybeConsumeTag(tag Tag) bool {
	v, n := peekVarint(d.buf[d.pos:])
	if n == 0 || v != uint64(tag) {
		return false
	}
	d.pos += n
	d.lastTag = tag
	return true
}

// SubDecoder reads a length prefix and returns a decoder over exactly that
// many bytes at the same depth. Used for packed repeated runs.
func (d *Decoder) SubDecoder() (*Decoder, error) {
	raw, start, err := d.readLengthDelimited()
	if err != nil {
		return nil, err
	}
	return &Decoder{buf: raw, base: d.base + start, depth: d.depth, opts: d.opts}, nil
}

// NestedDecoder reads a length prefix and returns a decoder over the
// embedded message one level deeper.
func (d *Decoder) NestedDecoder() (*Decoder, error) {
	if d.depth+1 > d.opts.RecursionLimit {
		return nil, d.errorf(ErrRecursionLimitExceeded)
	}
	sub, err := d.SubDecoder()
	if err != nil {
		return nil, err
	}
	sub.depth++
	return sub, nil
}

// PushDepth records entry into a group, which nests on the same buffer.
func (d *Decoder) PushDepth() error {
	if d.depth+1 > d.opts.RecursionLimit {
		return d.errorf(ErrRecursionLimitExceeded)
	}
	d.depth++
	return nil
}

// PopDepth records leaving a group.
func (d *Decoder) PopDepth() {
	d.depth--
}

// SkipField skips the value following a tag that has already been read. For
// a start-group tag the whole group up to its matching end tag is skipped.
func (d *Decoder) SkipField(num FieldNumber, wt WireType) error {
	switch wt {
	case WireVarint:
		return d.skipVarint()
	case WireFixed64:
		return d.skip(8)
	case WireFixed32:
		return d.skip(4)
	case WireBytes:
		_, _, err := d.readLengthDelimited()
		return err
	case WireStartGroup:
		return d.skipGroup(num)
	case WireEndGroup:
		return d.errorf(ErrMismatchedEndGroup)
	default:
		return d.errorf(ErrInvalidTag)
	}
}

func (d *Decoder) skipGroup(num FieldNumber) error {
	if err := d.PushDepth(); err != nil {
		return err
	}
	defer d.PopDepth()

	for {
		if d.EOF() {
			return d.errorf(ErrTruncatedMessage)
		}
		n, wt, err := d.ReadTag()
		if err != nil {
			return err
		}
		if wt == WireEndGroup {
			if n != num {
				return d.errorf(ErrMismatchedEndGroup)
			}
			return nil
		}
		if err := d.SkipField(n, wt); err != nil {
			return err
		}
	}
}

func (d *Decoder) skip(n int) error {
	if d.Remaining() < n {
		return d.errorf(ErrTruncatedMessage)
	}
	d.pos += n
	return nil
}
