package wire

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestVarintRoundTrip(t *testing.T) {
	t.Parallel()

	values := []uint64{
		0, 1, 127, 128, 150, 255, 256, 16383, 16384,
		1<<21 - 1, 1 << 21, 1<<28 - 1, 1 << 28,
		1<<35 - 1, 1<<42 - 1, 1<<49 - 1, 1<<56 - 1,
		1<<63 - 1, 1 << 63, math.MaxUint64,
	}

	for _, v := range values {
		e := NewEncoder()
		e.WriteVarint(v)

		assert.Equal(t, protowire.AppendVarint(nil, v), e.Bytes(), "encoding of %d", v)
		assert.Equal(t, protowire.SizeVarint(v), VarintSize(v), "size of %d", v)

		got, err := NewDecoder(e.Bytes()).ReadVarint()
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestVarintMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated", []byte{0x80}},
		{"truncated after several", []byte{0xff, 0xff, 0xff}},
		{"eleven bytes", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}},
		{"tenth byte past 64 bits", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x02}},
		{"tenth byte past 64 bits, zero payload", []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x7f}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewDecoder(tt.data).ReadVarint()
			assert.ErrorIs(t, err, ErrMalformedVarint)

			var perr *ParseError
			assert.ErrorAs(t, err, &perr)

			assert.ErrorIs(t, NewDecoder(tt.data).SkipField(1, WireVarint), ErrMalformedVarint)
			_, n := peekVarint(tt.data)
			assert.Zero(t, n)
		})
	}
}

func TestVarintTenBytes(t *testing.T) {
	t.Parallel()

	// Ten bytes with a terminating final byte is the longest legal encoding.
	data := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}
	v, err := NewDecoder(data).ReadVarint()
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), v)
}

func TestNegativeInt32IsSignExtended(t *testing.T) {
	t.Parallel()

	e := NewEncoder()
	e.WriteInt32(-1)
	assert.Len(t, e.Bytes(), 10)
	assert.Equal(t, protowire.AppendVarint(nil, math.MaxUint64), e.Bytes())
	assert.Equal(t, 10, SizeOfVarint(int32(-1)))

	got, err := NewDecoder(e.Bytes()).ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-1), got)
}

func TestZigZag(t *testing.T) {
	t.Parallel()

	for _, v := range []int32{0, -1, 1, -2, 2, math.MaxInt32, math.MinInt32} {
		assert.Equal(t, uint32(protowire.EncodeZigZag(int64(v))), ZigZagEncode32(v), "encode32(%d)", v)
		assert.Equal(t, v, ZigZagDecode32(ZigZagEncode32(v)))
	}
	for _, v := range []int64{0, -1, 1, -2, 2, math.MaxInt64, math.MinInt64} {
		assert.Equal(t, protowire.EncodeZigZag(v), ZigZagEncode64(v), "encode64(%d)", v)
		assert.Equal(t, v, ZigZagDecode64(ZigZagEncode64(v)))
	}

	assert.Equal(t, uint32(0), ZigZagEncode32(0))
	assert.Equal(t, uint32(1), ZigZagEncode32(-1))
	assert.Equal(t, uint32(2), ZigZagEncode32(1))
	assert.Equal(t, uint32(0xfffffffe), ZigZagEncode32(math.MaxInt32))
	assert.Equal(t, uint32(0xffffffff), ZigZagEncode32(math.MinInt32))
}

func TestFixedRoundTrip(t *testing.T) {
	t.Parallel()

	e := NewEncoder()
	e.WriteFixed32(0xdeadbeef)
	e.WriteFixed64(0x0102030405060708)
	e.WriteFloat(1.5)
	e.WriteDouble(-2.25)
	e.WriteSfixed32(-7)
	e.WriteSfixed64(-9)

	want := protowire.AppendFixed32(nil, 0xdeadbeef)
	want = protowire.AppendFixed64(want, 0x0102030405060708)
	want = protowire.AppendFixed32(want, math.Float32bits(1.5))
	want = protowire.AppendFixed64(want, math.Float64bits(-2.25))
	assert.Equal(t, want, e.Bytes()[:len(want)])

	d := NewDecoder(e.Bytes())
	u32, err := d.ReadFixed32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), u32)
	u64, err := d.ReadFixed64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), u64)
	f, err := d.ReadFloat()
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), f)
	g, err := d.ReadDouble()
	require.NoError(t, err)
	assert.Equal(t, -2.25, g)
	s32, err := d.ReadSfixed32()
	require.NoError(t, err)
	assert.Equal(t, int32(-7), s32)
	s64, err := d.ReadSfixed64()
	require.NoError(t, err)
	assert.Equal(t, int64(-9), s64)
	assert.True(t, d.EOF())

	_, err = NewDecoder([]byte{1, 2, 3}).ReadFixed32()
	assert.ErrorIs(t, err, ErrTruncatedMessage)
}

func TestTags(t *testing.T) {
	t.Parallel()

	tag := MakeTag(1, WireVarint)
	assert.Equal(t, Tag(0x08), tag)
	assert.Equal(t, Tag(protowire.EncodeTag(536870911, protowire.BytesType)), MakeTag(MaxFieldNumber, WireBytes))

	num, wt := ParseTag(MakeTag(150, WireFixed32))
	assert.Equal(t, FieldNumber(150), num)
	assert.Equal(t, WireFixed32, wt)
	assert.Equal(t, protowire.SizeTag(150), TagSize(150))

	e := NewEncoder()
	e.WriteTag(2, WireBytes)
	n, w, err := NewDecoder(e.Bytes()).ReadTag()
	require.NoError(t, err)
	assert.Equal(t, FieldNumber(2), n)
	assert.Equal(t, WireBytes, w)
}

func TestReadTagInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{"field zero", []byte{0x00}},
		{"wire type 6", []byte{0x0e}},
		{"wire type 7", []byte{0x0f}},
		{"above uint32", protowire.AppendVarint(nil, 1<<40)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := NewDecoder(tt.data).ReadTag()
			assert.ErrorIs(t, err, ErrInvalidTag)
		})
	}
}
