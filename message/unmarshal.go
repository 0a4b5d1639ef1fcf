package message

import (
	"github.com/anirudhraja/protocore/collections"
	"github.com/anirudhraja/protocore/descriptor"
	"github.com/anirudhraja/protocore/wire"
)

// Resolver finds extensions of a message while parsing.
type Resolver interface {
	FindExtensionByNumber(extendee string, number wire.FieldNumber) *descriptor.Field
}

// UnmarshalOptions configures parsing.
type UnmarshalOptions struct {
	// RecursionLimit bounds message and group nesting. Zero means
	// wire.DefaultRecursionLimit.
	RecursionLimit int

	// DiscardUnknown drops unrecognized fields instead of keeping their
	// bytes.
	DiscardUnknown bool

	// AllowInvalidUTF8 accepts proto3 string fields that are not valid UTF-8.
	AllowInvalidUTF8 bool

	// AllowPartial skips the required field check after parsing.
	AllowPartial bool

	// Resolver resolves extension numbers. Without one, extensions are kept
	// as unknown fields.
	Resolver Resolver
}

// Parse decodes data as a new message of type desc.
func Parse(desc *descriptor.Message, data []byte) (*Message, error) {
	return UnmarshalOptions{}.Parse(desc, data)
}

// Unmarshal merges data into m.
func Unmarshal(data []byte, m *Message) error {
	return UnmarshalOptions{}.Unmarshal(data, m)
}

// Parse decodes data as a new message of type desc. On any error it returns
// a nil message; no partially decoded message is ever handed out.
func (o UnmarshalOptions) Parse(desc *descriptor.Message, data []byte) (*Message, error) {
	m := New(desc)
	if err := o.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Unmarshal merges data into m. Fields present in data overwrite singular
// fields, append to lists and merge into sub-messages. If an error is
// returned the contents of m are unspecified.
func (o UnmarshalOptions) Unmarshal(data []byte, m *Message) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	d := wire.NewDecoderWithOptions(data, wire.DecoderOptions{
		RecursionLimit:   o.RecursionLimit,
		AllowInvalidUTF8: o.AllowInvalidUTF8,
	})
	u := &unmarshaler{opts: o}
	if err := u.merge(d, m, 0); err != nil {
		return err
	}
	if !o.AllowPartial {
		return m.CheckInitialized()
	}
	return nil
}

// unmarshaler carries the state of one Unmarshal call. Codecs for message
// elements are built on first use and reused for the rest of the call; they
// only read.
type unmarshaler struct {
	opts   UnmarshalOptions
	codecs map[*descriptor.Field]*wire.FieldCodec[any]
	maps   map[*descriptor.Field]*collections.MapCodec[any, any]
}

// merge reads fields into m until the input ends or, when group is
// non-zero, until the end tag of that group.
func (u *unmarshaler) merge(d *wire.Decoder, m *Message, group wire.FieldNumber) error {
	for !d.EOF() {
		start := d.Pos()
		num, wt, err := d.ReadTag()
		if err != nil {
			return err
		}
		if wt == wire.WireEndGroup {
			if group != 0 && num == group {
				return nil
			}
			return d.SkipField(num, wt)
		}

		fd := u.findField(m.desc, num)
		if fd == nil || !wireTypeMatches(fd, wt) {
			if err := d.SkipField(num, wt); err != nil {
				return err
			}
			if !u.opts.DiscardUnknown {
				m.unknown = append(m.unknown, d.RawSince(start)...)
			}
			continue
		}
		if err := u.readField(d, m, fd); err != nil {
			return wire.WrapWithField(err, fd.Name())
		}
	}
	if group != 0 {
		return d.Failure(wire.ErrTruncatedMessage)
	}
	return nil
}

func (u *unmarshaler) findField(desc *descriptor.Message, num wire.FieldNumber) *descriptor.Field {
	if fd := desc.FieldByNumber(num); fd != nil {
		return fd
	}
	if u.opts.Resolver != nil {
		return u.opts.Resolver.FindExtensionByNumber(desc.FullName(), num)
	}
	return nil
}

// wireTypeMatches reports whether a value of fd may arrive with wire type
// wt. Repeated scalars are accepted both packed and unpacked.
func wireTypeMatches(fd *descriptor.Field, wt wire.WireType) bool {
	if fd.IsList() && fd.Kind().IsPackable() && wt == wire.WireBytes {
		return true
	}
	return wt == fd.WireType()
}

func (u *unmarshaler) readField(d *wire.Decoder, m *Message, fd *descriptor.Field) error {
	switch {
	case fd.IsMap():
		return m.mutableMap(fd).AddEntriesFrom(d, u.mapCodec(fd))
	case fd.IsList():
		return m.mutableList(fd).AddEntriesFrom(d, u.elementCodec(fd))
	case fd.Kind().IsMessage():
		return u.readMessage(d, m.mutableMessage(fd), fd)
	}
	v, err := fd.Codec().Read(d)
	if err != nil {
		return err
	}
	m.storeScalar(fd, v)
	return nil
}

// readMessage merges one occurrence of message or group field fd into sub.
// The field's tag has already been read.
func (u *unmarshaler) readMessage(d *wire.Decoder, sub *Message, fd *descriptor.Field) error {
	if fd.Kind() == descriptor.GroupKind {
		if err := d.PushDepth(); err != nil {
			return err
		}
		defer d.PopDepth()
		return u.merge(d, sub, fd.Number())
	}
	nested, err := d.NestedDecoder()
	if err != nil {
		return err
	}
	return u.merge(nested, sub, 0)
}

func (u *unmarshaler) elementCodec(fd *descriptor.Field) *wire.FieldCodec[any] {
	if !fd.Kind().IsMessage() {
		return fd.Codec()
	}
	if c, ok := u.codecs[fd]; ok {
		return c
	}
	md := fd.Message()
	c := wire.NewFieldCodec[any](fd.Number(), fd.WireType(), false, 0,
		func(d *wire.Decoder) (any, error) {
			sub := New(md)
			if err := u.readMessage(d, sub, fd); err != nil {
				return nil, err
			}
			return sub, nil
		},
		nil, nil, nil)
	if u.codecs == nil {
		u.codecs = make(map[*descriptor.Field]*wire.FieldCodec[any])
	}
	u.codecs[fd] = c
	return c
}

func (u *unmarshaler) mapCodec(fd *descriptor.Field) *collections.MapCodec[any, any] {
	if c, ok := u.maps[fd]; ok {
		return c
	}
	vf := fd.MapValue()
	c := collections.NewMapCodec(fd.Number(), fd.MapKey().Codec(), u.elementCodec(vf))
	if vf.Kind().IsMessage() {
		md := vf.Message()
		c = c.WithValueDefault(func() any { return New(md) })
	} else {
		def := vf.Default()
		c = c.WithValueDefault(func() any { return def })
	}
	if u.maps == nil {
		u.maps = make(map[*descriptor.Field]*collections.MapCodec[any, any])
	}
	u.maps[fd] = c
	return c
}
