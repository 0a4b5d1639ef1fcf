package wkt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/anirudhraja/protocore/collections"
	"github.com/anirudhraja/protocore/message"
)

func TestAnyPackUnpack(t *testing.T) {
	t.Parallel()
	durDesc := wellKnown(t, DurationFullName)
	tsDesc := wellKnown(t, TimestampFullName)

	m, err := Duration{7, 5}.ToMessage(durDesc)
	require.NoError(t, err)

	a, err := Pack(m)
	require.NoError(t, err)
	assert.Equal(t, "type.googleapis.com/google.protobuf.Duration", a.TypeURL)
	assert.Equal(t, "google.protobuf.Duration", a.TypeName())
	assert.True(t, a.Is(durDesc))
	assert.False(t, a.Is(tsDesc))

	got, err := a.Unpack(durDesc)
	require.NoError(t, err)
	assert.True(t, m.Equal(got))

	_, err = a.Unpack(tsDesc)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	custom, err := PackWithPrefix(m, "example.com/types/")
	require.NoError(t, err)
	assert.Equal(t, "example.com/types/google.protobuf.Duration", custom.TypeURL)
	custom, err = PackWithPrefix(m, "example.com")
	require.NoError(t, err)
	assert.Equal(t, "example.com/google.protobuf.Duration", custom.TypeURL)

	same, err := PackWith(m, DefaultTypeURLPrefix, message.MarshalOptions{Deterministic: true})
	require.NoError(t, err)
	assert.Equal(t, a, same)
	_, err = PackWith(nil, DefaultTypeURLPrefix, message.MarshalOptions{})
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestAnyTypeNameMatching(t *testing.T) {
	t.Parallel()
	durDesc := wellKnown(t, DurationFullName)

	tests := []struct {
		url  string
		want bool
	}{
		{"type.googleapis.com/google.protobuf.Duration", true},
		{"/google.protobuf.Duration", true},
		{"google.protobuf.Duration", false},
		{"type.googleapis.com/google.protobuf.Duration2", false},
		{"type.googleapis.com/protobuf.Duration", false},
		{"type.googleapis.com/", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Any{TypeURL: tt.url}.Is(durDesc), tt.url)
	}
}

func TestTryUnpackInto(t *testing.T) {
	t.Parallel()
	durDesc := wellKnown(t, DurationFullName)
	tsDesc := wellKnown(t, TimestampFullName)

	src, err := Duration{1, 2}.ToMessage(durDesc)
	require.NoError(t, err)
	a, err := Pack(src)
	require.NoError(t, err)

	// Wrong type: the target is left as it was.
	target, err := Timestamp{9, 9}.ToMessage(tsDesc)
	require.NoError(t, err)
	before := target.Clone()
	assert.False(t, a.TryUnpackInto(target))
	assert.ErrorIs(t, a.UnpackInto(target), ErrTypeMismatch)
	assert.True(t, before.Equal(target))

	// Bad bytes: likewise untouched.
	dst, err := Duration{4, 4}.ToMessage(durDesc)
	require.NoError(t, err)
	broken := Any{TypeURL: a.TypeURL, Value: []byte{0x08}}
	assert.False(t, broken.TryUnpackInto(dst))
	d, _ := DurationFromMessage(dst)
	assert.Equal(t, Duration{4, 4}, d)

	// Success replaces the contents.
	assert.True(t, a.TryUnpackInto(dst))
	d, _ = DurationFromMessage(dst)
	assert.Equal(t, Duration{1, 2}, d)

	dst.Freeze()
	assert.ErrorIs(t, a.UnpackInto(dst), collections.ErrFrozen)
}

func TestAnyResolve(t *testing.T) {
	t.Parallel()
	m, err := Duration{3, 0}.ToMessage(wellKnown(t, DurationFullName))
	require.NoError(t, err)
	a, err := Pack(m)
	require.NoError(t, err)

	got, err := a.Resolve(wellKnownPool(t))
	require.NoError(t, err)
	assert.True(t, m.Equal(got))

	_, err = Any{TypeURL: "type.googleapis.com/nope.Missing"}.Resolve(wellKnownPool(t))
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestAnyInterop(t *testing.T) {
	t.Parallel()
	anyDesc := wellKnown(t, AnyFullName)

	m, err := DurationOf(90 * time.Second).ToMessage(wellKnown(t, DurationFullName))
	require.NoError(t, err)
	a, err := Pack(m)
	require.NoError(t, err)

	// The generated runtime can unpack what we packed.
	var got durationpb.Duration
	require.NoError(t, a.ToProto().UnmarshalTo(&got))
	assert.Equal(t, 90*time.Second, got.AsDuration())

	// And we can unpack what it packed, through the dynamic Any message.
	pb, err := anypb.New(durationpb.New(-time.Millisecond))
	require.NoError(t, err)
	fromProto := AnyFromProto(pb)
	am, err := fromProto.ToMessage(anyDesc)
	require.NoError(t, err)
	back, err := AnyFromMessage(am)
	require.NoError(t, err)
	assert.Equal(t, fromProto, back)

	unpacked, err := back.Unpack(wellKnown(t, DurationFullName))
	require.NoError(t, err)
	d, err := DurationFromMessage(unpacked)
	require.NoError(t, err)
	assert.Equal(t, Duration{0, -1_000_000}, d)

	_, err = AnyFromMessage(message.New(wellKnown(t, DurationFullName)))
	assert.ErrorIs(t, err, ErrTypeMismatch)
}
