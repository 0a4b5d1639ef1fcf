package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/anirudhraja/protocore/collections"
	"github.com/anirudhraja/protocore/descriptor"
	"github.com/anirudhraja/protocore/wire"
)

func TestPresence(t *testing.T) {
	t.Parallel()

	scalars := findMessage(t, "corpus.Scalars")
	i32, opt, s := field(t, scalars, "i32"), field(t, scalars, "opt"), field(t, scalars, "s")

	m := New(scalars)
	assert.False(t, m.Has(i32))
	assert.Equal(t, int32(0), m.Get(i32))

	require.NoError(t, m.Set(i32, int32(5)))
	assert.True(t, m.Has(i32))
	require.NoError(t, m.Set(i32, int32(0)))
	assert.False(t, m.Has(i32), "implicit presence: zero clears")

	require.NoError(t, m.Set(opt, int32(0)))
	assert.True(t, m.Has(opt), "proto3 optional keeps an explicit zero")

	require.NoError(t, m.Set(s, ""))
	assert.False(t, m.Has(s))

	legacy := findMessage(t, "corpus.Legacy")
	name, mode, id := field(t, legacy, "name"), field(t, legacy, "mode"), field(t, legacy, "id")
	l := New(legacy)
	assert.Equal(t, "anon", l.Get(name))
	assert.Equal(t, descriptor.EnumNumber(2), l.Get(mode))
	require.NoError(t, l.Set(id, int32(0)))
	assert.True(t, l.Has(id), "proto2 optional has explicit presence")

	out, err := Marshal(l)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x08, 0x00}, out)
}

func TestSetTypeChecks(t *testing.T) {
	t.Parallel()

	scalars := findMessage(t, "corpus.Scalars")
	container := findMessage(t, "corpus.Container")
	m := New(scalars)

	tests := []struct {
		field string
		value any
	}{
		{"i32", int64(1)},
		{"i32", 1},
		{"u64", int64(1)},
		{"fl", float64(1)},
		{"by", "bytes"},
		{"color", int32(1)},
		{"s", nil},
	}
	for _, tt := range tests {
		err := m.Set(field(t, scalars, tt.field), tt.value)
		assert.ErrorIs(t, err, ErrTypeMismatch, "%s <- %T", tt.field, tt.value)
	}

	c := New(container)
	assert.ErrorIs(t, c.Set(field(t, container, "single"), New(container)), ErrTypeMismatch)
	assert.ErrorIs(t, c.Set(field(t, container, "nums"), NewList("x")), ErrTypeMismatch)
	assert.ErrorIs(t, c.Set(field(t, container, "nums"), []int32{1}), ErrTypeMismatch)
	assert.ErrorIs(t, m.Set(field(t, container, "nums"), NewList()), ErrUnknownField)

	bad := NewMap(field(t, container, "counts"))
	require.NoError(t, bad.Set(int32(1), int32(2)))
	assert.ErrorIs(t, c.Set(field(t, container, "counts"), bad), ErrTypeMismatch, "wrong key type")
}

func TestOneofIsATaggedUnion(t *testing.T) {
	t.Parallel()

	container := findMessage(t, "corpus.Container")
	text, detail, number := field(t, container, "text"), field(t, container, "detail"), field(t, container, "number")
	choice := text.ContainingOneof()
	require.NotNil(t, choice)

	m := New(container)
	assert.Nil(t, m.WhichOneof(choice))

	require.NoError(t, m.Set(text, "hi"))
	assert.Equal(t, text, m.WhichOneof(choice))

	require.NoError(t, m.Set(number, int64(0)))
	assert.Equal(t, number, m.WhichOneof(choice), "oneof members keep an explicit zero")
	assert.False(t, m.Has(text))
	assert.Equal(t, "", m.Get(text))

	sub, err := m.Mutable(detail)
	require.NoError(t, err)
	assert.Equal(t, detail, m.WhichOneof(choice))
	assert.Same(t, sub, m.Get(detail))

	require.NoError(t, m.Clear(text))
	assert.Equal(t, detail, m.WhichOneof(choice), "clearing another member is a no-op")

	require.NoError(t, m.ClearOneof(choice))
	assert.Nil(t, m.WhichOneof(choice))
	assert.False(t, m.Has(detail))
}

func TestListsAndMaps(t *testing.T) {
	t.Parallel()

	container := findMessage(t, "corpus.Container")
	scalars := findMessage(t, "corpus.Scalars")
	nums, counts, items := field(t, container, "nums"), field(t, container, "counts"), field(t, container, "items")

	m := New(container)
	empty := m.Get(nums).(*List)
	assert.Zero(t, empty.Len())
	assert.True(t, empty.IsFrozen())
	assert.False(t, m.Has(nums))

	require.NoError(t, m.List(nums).AddAll(int32(3), int32(1)))
	assert.True(t, m.Has(nums))
	assert.Nil(t, m.List(counts), "not a list field")

	require.NoError(t, m.Map(counts).Set("a", int32(1)))
	item := New(scalars)
	require.NoError(t, item.Set(field(t, scalars, "i32"), int32(9)))
	require.NoError(t, m.Map(items).Set(int32(2), item))
	require.NoError(t, m.Map(items).Set(int32(1), nil), "message maps accept nil")

	out, err := Marshal(m)
	require.NoError(t, err)

	back, err := Parse(container, out)
	require.NoError(t, err)
	assert.Equal(t, []any{int32(3), int32(1)}, back.List(nums).Slice())
	assert.Equal(t, int32(1), back.Map(counts).Get("a"))
	got := back.Map(items).Get(int32(1)).(*Message)
	assert.True(t, got.Equal(New(scalars)), "a nil value reads back as an empty message")
	assert.Equal(t, int32(9), back.Map(items).Get(int32(2)).(*Message).Get(field(t, scalars, "i32")))
}

func TestDeterministicMaps(t *testing.T) {
	t.Parallel()

	container := findMessage(t, "corpus.Container")
	counts := field(t, container, "counts")

	a, b := New(container), New(container)
	for _, k := range []string{"b", "c", "a"} {
		require.NoError(t, a.Map(counts).Set(k, int32(len(k))))
	}
	for _, k := range []string{"a", "c", "b"} {
		require.NoError(t, b.Map(counts).Set(k, int32(len(k))))
	}
	assert.True(t, a.Equal(b), "map equality ignores order")

	plain, err := Marshal(a)
	require.NoError(t, err)
	other, err := Marshal(b)
	require.NoError(t, err)
	assert.NotEqual(t, plain, other, "insertion order is kept by default")

	det := MarshalOptions{Deterministic: true}
	x, err := det.Marshal(a)
	require.NoError(t, err)
	y, err := det.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, x, y)
}

func TestFreeze(t *testing.T) {
	t.Parallel()

	container := findMessage(t, "corpus.Container")
	scalars := findMessage(t, "corpus.Scalars")
	single, nums, counts, text := field(t, container, "single"), field(t, container, "nums"), field(t, container, "counts"), field(t, container, "text")

	m := New(container)
	sub, err := m.Mutable(single)
	require.NoError(t, err)
	require.NoError(t, m.List(nums).Add(int32(1)))
	require.NoError(t, m.Map(counts).Set("k", int32(1)))

	m.Freeze()
	m.Freeze()
	assert.True(t, m.IsFrozen())
	assert.True(t, sub.IsFrozen())
	assert.True(t, m.List(nums).IsFrozen())
	assert.True(t, m.Map(counts).IsFrozen())

	assert.ErrorIs(t, m.Set(text, "x"), collections.ErrFrozen)
	assert.ErrorIs(t, m.Clear(nums), collections.ErrFrozen)
	assert.ErrorIs(t, m.ClearOneof(text.ContainingOneof()), collections.ErrFrozen)
	assert.ErrorIs(t, m.Reset(), collections.ErrFrozen)
	assert.ErrorIs(t, m.Merge(New(container)), collections.ErrFrozen)
	assert.ErrorIs(t, m.SetUnknownFields([]byte{1}), collections.ErrFrozen)
	assert.ErrorIs(t, Unmarshal(nil, m), collections.ErrFrozen)
	assert.ErrorIs(t, m.List(nums).Add(int32(2)), collections.ErrFrozen)
	assert.ErrorIs(t, sub.Set(field(t, scalars, "i32"), int32(1)), collections.ErrFrozen)
	_, err = m.Mutable(single)
	assert.ErrorIs(t, err, collections.ErrFrozen)

	c := m.Clone()
	assert.False(t, c.IsFrozen())
	assert.True(t, c.Equal(m))
	require.NoError(t, c.Set(text, "x"))
	assert.False(t, m.Has(text))

	// Frozen parts are shared by the clone and copied on first mutation.
	assert.Same(t, sub, c.Get(single))
	csub, err := c.Mutable(single)
	require.NoError(t, err)
	assert.NotSame(t, sub, csub)
	require.NoError(t, c.List(nums).Add(int32(2)))
	assert.Equal(t, 1, m.List(nums).Len())
}

func TestBytesAreNotShared(t *testing.T) {
	t.Parallel()

	scalars := findMessage(t, "corpus.Scalars")
	by := field(t, scalars, "by")

	in := []byte("abc")
	m := New(scalars)
	require.NoError(t, m.Set(by, in))
	in[0] = 'Z'
	assert.Equal(t, []byte("abc"), m.Get(by), "Set copies its argument")

	unknown := protowire.AppendVarint(protowire.AppendTag(nil, 99, protowire.VarintType), 1)
	require.NoError(t, m.SetUnknownFields(unknown))

	m.Freeze()
	require.True(t, m.IsFrozen())

	got := m.Get(by).([]byte)
	got[0] = 'X'
	assert.Equal(t, []byte("abc"), m.Get(by))

	raw := m.UnknownFields()
	raw[0] = 0
	assert.Equal(t, unknown, m.UnknownFields())

	out, err := Marshal(m)
	require.NoError(t, err)
	want := protowire.AppendBytes(protowire.AppendTag(nil, 15, protowire.BytesType), []byte("abc"))
	assert.Equal(t, append(want, unknown...), out)
}

func TestMerge(t *testing.T) {
	t.Parallel()

	container := findMessage(t, "corpus.Container")
	scalars := findMessage(t, "corpus.Scalars")
	nums, single, counts, text, number := field(t, container, "nums"), field(t, container, "single"),
		field(t, container, "counts"), field(t, container, "text"), field(t, container, "number")
	i32, s := field(t, scalars, "i32"), field(t, scalars, "s")

	dst := New(container)
	require.NoError(t, dst.List(nums).Add(int32(1)))
	dsub, err := dst.Mutable(single)
	require.NoError(t, err)
	require.NoError(t, dsub.Set(i32, int32(1)))
	require.NoError(t, dst.Map(counts).Set("a", int32(1)))
	require.NoError(t, dst.Set(text, "t"))

	src := New(container)
	require.NoError(t, src.List(nums).Add(int32(2)))
	ssub, err := src.Mutable(single)
	require.NoError(t, err)
	require.NoError(t, ssub.Set(s, "s"))
	require.NoError(t, src.Map(counts).Set("a", int32(5)))
	require.NoError(t, src.Map(counts).Set("b", int32(6)))
	require.NoError(t, src.Set(number, int64(7)))
	require.NoError(t, src.SetUnknownFields([]byte{0xa0, 0x06, 0x01}))

	require.NoError(t, dst.Merge(src))
	assert.Equal(t, []any{int32(1), int32(2)}, dst.List(nums).Slice())
	assert.Equal(t, int32(1), dsub.Get(i32))
	assert.Equal(t, "s", dsub.Get(s))
	assert.Equal(t, int32(5), dst.Map(counts).Get("a"))
	assert.Equal(t, int32(6), dst.Map(counts).Get("b"))
	assert.Equal(t, number, dst.WhichOneof(number.ContainingOneof()))
	assert.Equal(t, []byte{0xa0, 0x06, 0x01}, dst.UnknownFields())

	assert.ErrorIs(t, dst.Merge(New(scalars)), ErrTypeMismatch)

	// Merging bytes is the same as concatenating encodings.
	a, err := Marshal(dst)
	require.NoError(t, err)
	b, err := Marshal(src)
	require.NoError(t, err)
	viaWire := New(container)
	require.NoError(t, Unmarshal(append(a, b...), viaWire))
	require.NoError(t, dst.Merge(src))
	assert.True(t, viaWire.Equal(dst))
}

func TestRangeOrder(t *testing.T) {
	t.Parallel()

	container := findMessage(t, "corpus.Container")
	m := New(container)
	for _, name := range []string{"next", "text", "nums"} {
		fd := field(t, container, name)
		switch {
		case fd.IsList():
			require.NoError(t, m.List(fd).Add(int32(1)))
		case fd.Kind().IsMessage():
			_, err := m.Mutable(fd)
			require.NoError(t, err)
		default:
			require.NoError(t, m.Set(fd, "x"))
		}
	}
	var numbers []wire.FieldNumber
	m.Range(func(fd *descriptor.Field, _ any) bool {
		numbers = append(numbers, fd.Number())
		return true
	})
	assert.Equal(t, []wire.FieldNumber{1, 6, 10}, numbers)

	numbers = numbers[:0]
	m.Range(func(fd *descriptor.Field, _ any) bool {
		numbers = append(numbers, fd.Number())
		return false
	})
	assert.Len(t, numbers, 1)
}

func TestExtensions(t *testing.T) {
	t.Parallel()

	pool := testPool(t)
	legacy := findMessage(t, "corpus.Legacy")
	note := pool.FindExtensionByName("corpus.note")
	tags := pool.FindExtensionByName("corpus.tags")
	require.NotNil(t, note)
	require.NotNil(t, tags)

	m := New(legacy)
	assert.Equal(t, "", m.GetExtension(note))
	require.NoError(t, m.SetExtension(note, "hi"))
	require.NoError(t, m.List(tags).AddAll(int32(1), int32(2)))
	assert.True(t, m.HasExtension(note))
	assert.True(t, m.HasExtension(tags))
	assert.ErrorIs(t, m.SetExtension(field(t, legacy, "id"), int32(1)), ErrNotExtension)

	out, err := Marshal(m)
	require.NoError(t, err)

	withResolver, err := UnmarshalOptions{Resolver: poolResolver{pool}}.Parse(legacy, out)
	require.NoError(t, err)
	assert.Equal(t, "hi", withResolver.GetExtension(note))
	assert.Empty(t, withResolver.UnknownFields())
	assert.True(t, withResolver.Equal(m))

	without, err := Parse(legacy, out)
	require.NoError(t, err)
	assert.False(t, without.HasExtension(note))
	assert.Equal(t, out, without.UnknownFields())

	require.NoError(t, m.ClearExtension(note))
	assert.False(t, m.HasExtension(note))
}

func TestRequiredFields(t *testing.T) {
	t.Parallel()

	strict := findMessage(t, "corpus.Strict")
	id, inner := field(t, strict, "id"), field(t, strict, "inner")

	m := New(strict)
	_, err := Marshal(m)
	assert.ErrorIs(t, err, ErrRequiredNotSet)
	assert.False(t, m.IsInitialized())

	require.NoError(t, m.Set(id, int32(1)))
	sub, err := m.Mutable(inner)
	require.NoError(t, err)
	_, err = Marshal(m)
	var fe *wire.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, []string{"inner"}, fe.FieldPath)

	partial, err := MarshalOptions{AllowPartial: true}.Marshal(m)
	require.NoError(t, err)
	_, err = Parse(strict, partial)
	assert.ErrorIs(t, err, ErrRequiredNotSet)
	_, err = UnmarshalOptions{AllowPartial: true}.Parse(strict, partial)
	require.NoError(t, err)

	require.NoError(t, sub.Set(id, int32(2)))
	assert.True(t, m.IsInitialized())
}

func TestUnmarshalOptions(t *testing.T) {
	t.Parallel()

	scalars := findMessage(t, "corpus.Scalars")

	bad := protowire.AppendTag(nil, 14, protowire.BytesType)
	bad = protowire.AppendBytes(bad, []byte{0xff})
	_, err := Parse(scalars, bad)
	assert.ErrorIs(t, err, wire.ErrInvalidUTF8)
	m, err := UnmarshalOptions{AllowInvalidUTF8: true}.Parse(scalars, bad)
	require.NoError(t, err)
	assert.Equal(t, "\xff", m.Get(field(t, scalars, "s")))

	unknown := protowire.AppendTag(nil, 99, protowire.VarintType)
	unknown = protowire.AppendVarint(unknown, 1)
	m, err = UnmarshalOptions{DiscardUnknown: true}.Parse(scalars, unknown)
	require.NoError(t, err)
	assert.Empty(t, m.UnknownFields())
}

func TestRecursionLimit(t *testing.T) {
	t.Parallel()

	container := findMessage(t, "corpus.Container")

	nested := func(depth int) []byte {
		var b []byte
		for i := 0; i < depth; i++ {
			b = protowire.AppendBytes(protowire.AppendTag(nil, 10, protowire.BytesType), b)
		}
		return b
	}

	_, err := Parse(container, nested(wire.DefaultRecursionLimit))
	require.NoError(t, err)

	m, err := Parse(container, nested(wire.DefaultRecursionLimit+1))
	assert.ErrorIs(t, err, wire.ErrRecursionLimitExceeded)
	assert.Nil(t, m)

	_, err = UnmarshalOptions{RecursionLimit: 5}.Parse(container, nested(6))
	assert.ErrorIs(t, err, wire.ErrRecursionLimitExceeded)
	var fe *wire.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Len(t, fe.FieldPath, 6)
}

func TestGroupValues(t *testing.T) {
	t.Parallel()

	legacy := findMessage(t, "corpus.Legacy")
	item, entry := field(t, legacy, "item"), field(t, legacy, "entry")
	require.Equal(t, descriptor.GroupKind, item.Kind())

	m := New(legacy)
	sub, err := m.Mutable(item)
	require.NoError(t, err)
	require.NoError(t, sub.Set(field(t, item.Message(), "value"), int32(1)))
	e := New(entry.Message())
	require.NoError(t, e.Set(field(t, entry.Message(), "key"), "k"))
	require.NoError(t, m.List(entry).Add(e))

	out, err := Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x2b, 0x30, 0x01, 0x2c, 0x3b, 0x42, 0x01, 0x6b, 0x3c}, out)
	assert.Equal(t, len(out), m.Size())

	back, err := Parse(legacy, out)
	require.NoError(t, err)
	assert.True(t, back.Equal(m))
}

func TestResetAndUnknown(t *testing.T) {
	t.Parallel()

	scalars := findMessage(t, "corpus.Scalars")
	m := New(scalars)
	require.NoError(t, m.Set(field(t, scalars, "i32"), int32(1)))
	require.NoError(t, m.SetUnknownFields([]byte{0xa0, 0x06, 0x01}))
	assert.Equal(t, 5, m.Size())

	require.NoError(t, m.Reset())
	assert.Zero(t, m.Size())
	assert.True(t, m.Equal(New(scalars)))
}
