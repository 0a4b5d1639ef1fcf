package message

import (
	"cmp"
	"slices"

	"github.com/anirudhraja/protocore/collections"
	"github.com/anirudhraja/protocore/descriptor"
	"github.com/anirudhraja/protocore/wire"
)

// MarshalOptions configures serialization.
type MarshalOptions struct {
	// PreserveRepeatedEncoding writes repeated scalars packed or unpacked the
	// way they were parsed instead of the way the schema declares them.
	PreserveRepeatedEncoding bool

	// Deterministic sorts map entries by key. Without it they are written in
	// insertion order.
	Deterministic bool

	// AllowPartial skips the required field check.
	AllowPartial bool
}

// Marshal encodes m with default options.
func Marshal(m *Message) ([]byte, error) {
	return MarshalOptions{}.Marshal(m)
}

// Marshal encodes m: set fields in ascending number order, then set
// extensions, then the unknown field bytes in the order they were read.
func (o MarshalOptions) Marshal(m *Message) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	if !o.AllowPartial {
		if err := m.CheckInitialized(); err != nil {
			return nil, err
		}
	}
	w := newMarshaler(o)
	n := w.size(m)
	if w.err != nil {
		return nil, w.err
	}
	e := wire.NewEncoderSize(n)
	w.write(e, m)
	return e.Bytes(), nil
}

// Size returns the number of bytes Marshal would produce for m.
func (o MarshalOptions) Size(m *Message) int {
	if m == nil {
		return 0
	}
	return newMarshaler(o).size(m)
}

// marshaler carries the state of one Marshal call: sizes of every
// sub-message, computed once, and write-only codecs for message elements.
type marshaler struct {
	opts   MarshalOptions
	sizes  map[*Message]int
	codecs map[*descriptor.Field]*wire.FieldCodec[any]
	maps   map[*descriptor.Field]*collections.MapCodec[any, any]
	err    error
}

func newMarshaler(o MarshalOptions) *marshaler {
	return &marshaler{
		opts:   o,
		sizes:  make(map[*Message]int),
		codecs: make(map[*descriptor.Field]*wire.FieldCodec[any]),
		maps:   make(map[*descriptor.Field]*collections.MapCodec[any, any]),
	}
}

// fail records the first value that cannot be encoded. Size passes run
// before any byte is written, so a failed Marshal never writes partial
// output.
func (w *marshaler) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *marshaler) size(m *Message) int {
	if n, ok := w.sizes[m]; ok {
		return n
	}
	n := 0
	m.Range(func(fd *descriptor.Field, v any) bool {
		n += w.fieldSize(fd, v)
		return true
	})
	n += len(m.unknown)
	w.sizes[m] = n
	return n
}

func (w *marshaler) fieldSize(fd *descriptor.Field, v any) int {
	switch x := v.(type) {
	case *List:
		if err := checkList(fd, x); err != nil {
			w.fail(err)
			return 0
		}
		if w.opts.PreserveRepeatedEncoding {
			return x.CalculateSizePreserving(w.elementCodec(fd))
		}
		return x.CalculateSize(w.elementCodec(fd))
	case *Map:
		if err := checkMap(fd, x); err != nil {
			w.fail(err)
			return 0
		}
		return x.CalculateSize(w.mapCodec(fd))
	}
	if err := checkSingular(fd, v); err != nil {
		w.fail(err)
		return 0
	}
	if fd.Kind().IsMessage() {
		return w.elementCodec(fd).TaggedSize(v)
	}
	return fd.Codec().TaggedSize(v)
}

func (w *marshaler) write(e *wire.Encoder, m *Message) {
	m.Range(func(fd *descriptor.Field, v any) bool {
		w.writeField(e, fd, v)
		return true
	})
	e.WriteRaw(m.unknown)
}

func (w *marshaler) writeField(e *wire.Encoder, fd *descriptor.Field, v any) {
	switch x := v.(type) {
	case *List:
		if w.opts.PreserveRepeatedEncoding {
			x.WriteToPreserving(e, w.elementCodec(fd))
		} else {
			x.WriteTo(e, w.elementCodec(fd))
		}
	case *Map:
		if w.opts.Deterministic {
			x = sortedMap(x)
		}
		x.WriteTo(e, w.mapCodec(fd))
	case *Message:
		w.elementCodec(fd).WriteTagged(e, x)
	default:
		fd.Codec().WriteTagged(e, v)
	}
}

func (w *marshaler) elementCodec(fd *descriptor.Field) *wire.FieldCodec[any] {
	if !fd.Kind().IsMessage() {
		return fd.Codec()
	}
	if c, ok := w.codecs[fd]; ok {
		return c
	}
	group := fd.Kind() == descriptor.GroupKind
	c := wire.NewFieldCodec[any](fd.Number(), fd.WireType(), false, 0,
		nil,
		func(e *wire.Encoder, v any) {
			sub := v.(*Message)
			if !group {
				e.WriteLength(w.size(sub))
			}
			w.write(e, sub)
		},
		func(v any) int {
			n := w.size(v.(*Message))
			if group {
				return n
			}
			return wire.LengthDelimitedSize(n)
		},
		nil)
	w.codecs[fd] = c
	return c
}

func (w *marshaler) mapCodec(fd *descriptor.Field) *collections.MapCodec[any, any] {
	if c, ok := w.maps[fd]; ok {
		return c
	}
	c := collections.NewMapCodec(fd.Number(), fd.MapKey().Codec(), w.elementCodec(fd.MapValue()))
	w.maps[fd] = c
	return c
}

// sortedMap returns a copy of mf with entries ordered by key.
func sortedMap(mf *Map) *Map {
	keys := mf.Keys()
	slices.SortFunc(keys, compareKeys)
	out := collections.NewMessageMapField[any, any]()
	for _, k := range keys {
		_ = out.Set(k, mf.Get(k))
	}
	return out
}

func compareKeys(a, b any) int {
	switch x := a.(type) {
	case bool:
		y, _ := b.(bool)
		return cmp.Compare(boolRank(x), boolRank(y))
	case int32:
		y, _ := b.(int32)
		return cmp.Compare(x, y)
	case int64:
		y, _ := b.(int64)
		return cmp.Compare(x, y)
	case uint32:
		y, _ := b.(uint32)
		return cmp.Compare(x, y)
	case uint64:
		y, _ := b.(uint64)
		return cmp.Compare(x, y)
	case string:
		y, _ := b.(string)
		return cmp.Compare(x, y)
	}
	return 0
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
