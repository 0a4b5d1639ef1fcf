package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudhraja/protocore/descriptor"
	"github.com/anirudhraja/protocore/schema"
	"github.com/anirudhraja/protocore/wkt"
)

func TestRegistry_WrapperTypes(t *testing.T) {
	t.Parallel()
	r := New()

	tests := []struct {
		wrapper      schema.WrapperType
		expectedKind descriptor.Kind
	}{
		{schema.WrapperDoubleValue, descriptor.DoubleKind},
		{schema.WrapperFloatValue, descriptor.FloatKind},
		{schema.WrapperInt64Value, descriptor.Int64Kind},
		{schema.WrapperUInt64Value, descriptor.Uint64Kind},
		{schema.WrapperInt32Value, descriptor.Int32Kind},
		{schema.WrapperUInt32Value, descriptor.Uint32Kind},
		{schema.WrapperBoolValue, descriptor.BoolKind},
		{schema.WrapperStringValue, descriptor.StringKind},
		{schema.WrapperBytesValue, descriptor.BytesKind},
	}

	for _, tt := range tests {
		t.Run(string(tt.wrapper), func(t *testing.T) {
			md := r.FindMessage(string(tt.wrapper))
			require.NotNil(t, md)
			assert.True(t, wkt.IsWrapper(md))
			require.Len(t, md.Fields(), 1)
			assert.Equal(t, "value", md.Fields()[0].Name())
			assert.Equal(t, tt.expectedKind, md.Fields()[0].Kind())
		})
	}
}

func TestRegistry_WrapperFieldResolution(t *testing.T) {
	t.Parallel()
	dir := writeProtos(t, map[string]string{"wrapped.proto": `syntax = "proto3";
package test.pkg;

import "google/protobuf/wrappers.proto";

message TestMessage {
  google.protobuf.StringValue optional_string = 1;
  google.protobuf.Int32Value optional_int = 2;
}
`})
	r := New(WithProtoDirectories(dir))
	require.NoError(t, r.LoadSchemaFromFile("wrapped.proto"))

	md := r.FindMessage("TestMessage")
	require.NotNil(t, md)
	for _, fd := range md.Fields() {
		assert.Equal(t, descriptor.MessageKind, fd.Kind(), fd.Name())
		assert.True(t, wkt.IsWrapper(fd.Message()), fd.Name())
		assert.True(t, fd.HasPresence(), fd.Name())
	}
}

func TestRegistry_NonWrapperTypes(t *testing.T) {
	t.Parallel()
	r := New()

	for _, name := range []string{
		"google.protobuf.Timestamp",
		"google.protobuf.Any",
		"google.protobuf.Struct",
	} {
		t.Run(name, func(t *testing.T) {
			md := r.FindMessage(name)
			require.NotNil(t, md)
			assert.False(t, wkt.IsWrapper(md))
		})
	}
	assert.Nil(t, r.FindMessage("com.example.User"))
}
