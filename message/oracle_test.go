package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/anirudhraja/protocore/descriptor"
	"github.com/anirudhraja/protocore/schema"
)

// oraclePool builds descriptors for generated types so that the reference
// implementation can check our encoding.
func oraclePool(t testing.TB, files ...protoreflect.FileDescriptor) *descriptor.Pool {
	t.Helper()
	var in []*schema.ProtoFile
	for _, fd := range files {
		pf, err := schema.FromFileDescriptorProto(protodesc.ToFileDescriptorProto(fd))
		require.NoError(t, err)
		in = append(in, pf)
	}
	pool, err := descriptor.Build(in...)
	require.NoError(t, err)
	return pool
}

func TestDescriptorProtoOracle(t *testing.T) {
	t.Parallel()

	pool := oraclePool(t, descriptorpb.File_google_protobuf_descriptor_proto)
	md := pool.FindMessage("google.protobuf.FileDescriptorProto")
	require.NotNil(t, md)

	want := protodesc.ToFileDescriptorProto(descriptorpb.File_google_protobuf_descriptor_proto)
	want.SourceCodeInfo = &descriptorpb.SourceCodeInfo{
		Location: []*descriptorpb.SourceCodeInfo_Location{
			{Path: []int32{4, 0, 2, 1}, Span: []int32{10, 2, 30}, LeadingComments: proto.String(" hi\n")},
			{Path: []int32{}, Span: []int32{0, 0, 400, 1}},
		},
	}
	data, err := proto.Marshal(want)
	require.NoError(t, err)

	m, err := Parse(md, data)
	require.NoError(t, err)
	assert.Empty(t, m.UnknownFields())

	out, err := Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, data, out, "same field order and packing as the reference encoder")

	got := new(descriptorpb.FileDescriptorProto)
	require.NoError(t, proto.Unmarshal(out, got))
	assert.True(t, proto.Equal(want, got))

	name := m.Get(md.FieldByName("name"))
	assert.Equal(t, "google/protobuf/descriptor.proto", name)
	assert.Equal(t, len(want.GetMessageType()), m.List(md.FieldByName("message_type")).Len())
}

func TestStructOracle(t *testing.T) {
	t.Parallel()

	pool := oraclePool(t, structpb.File_google_protobuf_struct_proto)
	md := pool.FindMessage("google.protobuf.Struct")
	require.NotNil(t, md)

	want, err := structpb.NewStruct(map[string]any{
		"name":    "protocore",
		"size":    12.5,
		"enabled": true,
		"nothing": nil,
		"tags":    []any{"a", 1.0, false, map[string]any{"deep": "yes"}},
		"nested":  map[string]any{"k": -3.0},
	})
	require.NoError(t, err)
	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(want)
	require.NoError(t, err)

	m, err := Parse(md, data)
	require.NoError(t, err)
	fields := m.Map(md.FieldByName("fields"))
	assert.Equal(t, 6, fields.Len())

	out, err := MarshalOptions{Deterministic: true}.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	got := new(structpb.Struct)
	require.NoError(t, proto.Unmarshal(out, got))
	assert.True(t, proto.Equal(want, got))

	// The null_value member of the kind oneof is an enum holding zero.
	value := fields.Get("nothing").(*Message)
	kind := value.Descriptor().Oneofs()[0]
	set := value.WhichOneof(kind)
	require.NotNil(t, set)
	assert.Equal(t, "null_value", set.Name())
	assert.Equal(t, descriptor.EnumNumber(0), value.Get(set))
}

func TestBuildOracleMessage(t *testing.T) {
	t.Parallel()

	pool := oraclePool(t, structpb.File_google_protobuf_struct_proto)
	valueDesc := pool.FindMessage("google.protobuf.Value")
	listDesc := pool.FindMessage("google.protobuf.ListValue")

	list := New(listDesc)
	for _, s := range []string{"x", "y"} {
		v := New(valueDesc)
		require.NoError(t, v.Set(valueDesc.FieldByName("string_value"), s))
		require.NoError(t, list.List(listDesc.FieldByName("values")).Add(v))
	}
	top := New(valueDesc)
	require.NoError(t, top.Set(valueDesc.FieldByName("list_value"), list))

	out, err := Marshal(top)
	require.NoError(t, err)

	got := new(structpb.Value)
	require.NoError(t, proto.Unmarshal(out, got))
	want := structpb.NewListValue(&structpb.ListValue{Values: []*structpb.Value{
		structpb.NewStringValue("x"),
		structpb.NewStringValue("y"),
	}})
	assert.True(t, proto.Equal(want, got))
}
