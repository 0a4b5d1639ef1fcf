package registry

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/anirudhraja/protocore/accessor"
	"github.com/anirudhraja/protocore/descriptor"
	"github.com/anirudhraja/protocore/message"
	"github.com/anirudhraja/protocore/schema"
)

// writeProtos writes files (relative path -> content) under a new temporary
// directory and returns it.
func writeProtos(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

const userProto = `syntax = "proto3";
package acme.v1;

import "acme/v1/common.proto";
import "google/protobuf/timestamp.proto";

message User {
  int64 id = 1;
  string name = 2;
  Status status = 3;
  google.protobuf.Timestamp created_at = 4;
  Address address = 5;
}

service Users {
  rpc Get(User) returns (User);
}
`

const commonProto = `syntax = "proto3";
package acme.v1;

enum Status {
  STATUS_UNSPECIFIED = 0;
  STATUS_ACTIVE = 1;
}

message Address {
  string city = 1;
}
`

func TestNewRegistry(t *testing.T) {
	t.Parallel()
	r := New()

	for _, name := range []string{
		"google.protobuf.Any",
		"google.protobuf.Duration",
		"google.protobuf.Timestamp",
		"google.protobuf.FieldMask",
		"google.protobuf.Empty",
		"google.protobuf.Struct",
	} {
		assert.NotNil(t, r.FindMessage(name), name)
	}
	assert.NotNil(t, r.FindEnum("google.protobuf.NullValue"))
	assert.Empty(t, r.ListServices())
	assert.NotNil(t, r.Pool())
}

func TestLoadSchemaFromFile(t *testing.T) {
	t.Parallel()
	dir := writeProtos(t, map[string]string{
		"acme/v1/user.proto":   userProto,
		"acme/v1/common.proto": commonProto,
	})
	r := New(WithProtoDirectories(t.TempDir(), dir))

	require.NoError(t, r.LoadSchemaFromFile("acme/v1/user.proto"))

	user := r.FindMessage("acme.v1.User")
	require.NotNil(t, user)
	assert.Same(t, r.FindMessage("acme.v1.Address"), user.FieldByName("address").Message())
	assert.Same(t, r.FindMessage("google.protobuf.Timestamp"), user.FieldByName("created_at").Message())
	assert.Same(t, r.FindEnum("acme.v1.Status"), user.FieldByName("status").Enum())
	assert.True(t, r.Pool().HasFile("acme/v1/common.proto"))

	svc, err := r.GetService("acme.v1.Users")
	require.NoError(t, err)
	require.Len(t, svc.Methods(), 1)
	assert.Same(t, user, svc.Methods()[0].Input())

	// Loading again, or loading a dependency alone, is a no-op.
	require.NoError(t, r.LoadSchemaFromFile("acme/v1/user.proto"))
	require.NoError(t, r.LoadSchemaFromFile("acme/v1/common.proto"))
}

func TestLoadSchemaFromFile_Errors(t *testing.T) {
	t.Parallel()
	dir := writeProtos(t, map[string]string{
		"broken.proto":  `syntax = "proto3"; message {`,
		"missing.proto": `syntax = "proto3"; import "nowhere.proto"; message M { int32 a = 1; }`,
		"notes.txt":     "not a proto file",
	})
	r := New(WithProtoDirectories(dir))

	err := r.LoadSchemaFromFile("absent.proto")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.Error(t, r.LoadSchemaFromFile("broken.proto"))
	assert.Error(t, r.LoadSchemaFromFile("notes.txt"))

	err = r.LoadSchemaFromFile("missing.proto")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `import "nowhere.proto"`)
	assert.Nil(t, r.FindMessage("M"), "nothing is added when an import fails")
}

func TestLoadSchema_NonExistentPath(t *testing.T) {
	t.Parallel()
	err := New().LoadSchema("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path does not exist")
}

func TestLoadSchema_NonProtoFile(t *testing.T) {
	t.Parallel()
	dir := writeProtos(t, map[string]string{"test.txt": "hello"})
	err := New().LoadSchema(filepath.Join(dir, "test.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a .proto file")
}

func TestLoadSchema_SingleProtoFile(t *testing.T) {
	t.Parallel()
	dir := writeProtos(t, map[string]string{"test.proto": `syntax = "proto3";
package test.pkg;

message TestMessage {
  string name = 1;
  int32 id = 2;
}

enum TestEnum {
  UNKNOWN = 0;
  ACTIVE = 1;
}

service TestService {
  rpc GetTest(TestMessage) returns (TestMessage);
}
`})
	r := New()
	require.NoError(t, r.LoadSchema(filepath.Join(dir, "test.proto")))

	f := r.Pool().FindFile("test.proto")
	require.NotNil(t, f)
	assert.Equal(t, "test.pkg", f.Package())
	assert.Equal(t, descriptor.Proto3, f.Syntax())
	assert.Contains(t, r.ListMessages(), "test.pkg.TestMessage")
	assert.Contains(t, r.ListEnums(), "test.pkg.TestEnum")
	assert.Equal(t, []string{"test.pkg.TestService"}, r.ListServices())
}

func TestLoadSchema_Directory(t *testing.T) {
	t.Parallel()
	dir := writeProtos(t, map[string]string{
		"file1.proto":        "syntax = \"proto3\";\npackage pkg1;\nmessage A { pkg2.B b = 1; }",
		"subdir/file2.proto": "syntax = \"proto2\";\npackage pkg2;\nmessage B { optional int32 x = 1; }",
		"notproto.txt":       "not a proto file",
	})
	r := New()
	require.NoError(t, r.LoadSchema(dir))

	assert.True(t, r.Pool().HasFile("file1.proto"))
	assert.True(t, r.Pool().HasFile("subdir/file2.proto"))
	assert.Same(t, r.FindMessage("pkg2.B"), r.FindMessage("pkg1.A").FieldByName("b").Message())
	assert.Equal(t, descriptor.Proto2, r.FindMessage("pkg2.B").Syntax())
}

func TestLoadRepo(t *testing.T) {
	t.Parallel()
	parse := func(name, src string) *schema.ProtoFile {
		pf, err := schema.ParseProto(name, bytes.NewBufferString(src))
		require.NoError(t, err)
		return pf
	}
	r := New()

	good := parse("good.proto", `syntax = "proto3"; package repo; message Good { int32 a = 1; }`)
	bad := parse("bad.proto", `syntax = "proto3"; package repo; message Bad { Missing m = 1; }`)

	err := r.LoadRepo(&schema.ProtoRepo{ProtoFiles: map[string]*schema.ProtoFile{
		"good.proto": good,
		"bad.proto":  bad,
	}})
	var schemaErr *descriptor.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Nil(t, r.FindMessage("repo.Good"), "a failed load adds nothing")

	require.NoError(t, r.LoadRepo(&schema.ProtoRepo{ProtoFiles: map[string]*schema.ProtoFile{"good.proto": good}}))
	assert.NotNil(t, r.FindMessage("repo.Good"))

	// Files already present are skipped, including the well-known ones.
	require.NoError(t, r.LoadRepo(&schema.ProtoRepo{ProtoFiles: map[string]*schema.ProtoFile{"good.proto": good}}))
	require.NoError(t, r.LoadRepo(&schema.ProtoRepo{ProtoFiles: map[string]*schema.ProtoFile{
		"google/protobuf/any.proto": schema.WellKnownFiles()[0],
	}}))
	require.NoError(t, r.LoadRepo(nil))
}

func TestLoadFileDescriptorSet(t *testing.T) {
	t.Parallel()
	set := &descriptorpb.FileDescriptorSet{File: []*descriptorpb.FileDescriptorProto{{
		Name:    proto.String("user.proto"),
		Package: proto.String("benchmark"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{{
			Name: proto.String("User"),
			Field: []*descriptorpb.FieldDescriptorProto{
				{Name: proto.String("id"), Number: proto.Int32(1), Type: descriptorpb.FieldDescriptorProto_TYPE_INT32.Enum(), Label: descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum()},
				{Name: proto.String("name"), Number: proto.Int32(2), Type: descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(), Label: descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum()},
				{Name: proto.String("active"), Number: proto.Int32(4), Type: descriptorpb.FieldDescriptorProto_TYPE_BOOL.Enum(), Label: descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum()},
			},
		}},
	}}}

	r := New()
	require.NoError(t, r.LoadFileDescriptorSet(set))
	user := r.FindMessage("benchmark.User")
	require.NotNil(t, user)
	assert.Len(t, user.Fields(), 3)
	assert.Equal(t, descriptor.BoolKind, user.FieldByNumber(4).Kind())
}

func TestFindByShortName(t *testing.T) {
	t.Parallel()
	dir := writeProtos(t, map[string]string{
		"a.proto": `syntax = "proto3"; package one; message User { int32 id = 1; } message Only { int32 id = 1; } enum Kind { K = 0; }`,
		"b.proto": `syntax = "proto3"; package two; message User { int32 id = 1; }`,
	})
	r := New()
	require.NoError(t, r.LoadSchema(dir))

	assert.Equal(t, "one.Only", r.FindMessage("Only").FullName())
	assert.Equal(t, "one.Only", r.FindMessage(".one.Only").FullName())
	assert.Nil(t, r.FindMessage("User"), "ambiguous short names do not resolve")
	assert.NotNil(t, r.FindMessage("two.User"))
	assert.Equal(t, "one.Kind", r.FindEnum("Kind").FullName())

	_, err := r.GetMessage("NonExistent")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.GetEnum("NonExistent")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.GetService("NonExistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExtensionResolution(t *testing.T) {
	t.Parallel()
	dir := writeProtos(t, map[string]string{"ext.proto": `syntax = "proto2";
package ext;

message Base {
  optional int32 id = 1;
  extensions 100 to 199;
}

extend Base {
  optional string label = 100;
}
`})
	r := New()
	require.NoError(t, r.LoadSchema(dir))

	base := r.FindMessage("ext.Base")
	label := r.FindExtensionByNumber("ext.Base", 100)
	require.NotNil(t, label)
	assert.Same(t, label, r.FindExtensionByName(".ext.label"))

	m := message.New(base)
	require.NoError(t, m.SetExtension(label, "tagged"))
	data, err := message.Marshal(m)
	require.NoError(t, err)

	withoutResolver, err := message.Parse(base, data)
	require.NoError(t, err)
	assert.False(t, withoutResolver.HasExtension(label))
	assert.NotEmpty(t, withoutResolver.UnknownFields())

	got, err := message.UnmarshalOptions{Resolver: r}.Parse(base, data)
	require.NoError(t, err)
	assert.Equal(t, "tagged", got.GetExtension(label))
	assert.Empty(t, got.UnknownFields())
}

func TestAccessorTableIsBuiltOnce(t *testing.T) {
	t.Parallel()
	r := New()
	md := r.FindMessage("google.protobuf.Timestamp")

	const workers = 16
	tables := make([]*accessor.Table, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tables[i] = r.AccessorTable(md)
		}()
	}
	wg.Wait()

	for _, tbl := range tables {
		assert.Same(t, tables[0], tbl)
	}
	assert.Same(t, md, tables[0].Descriptor())
}

func TestLogger(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	dir := writeProtos(t, map[string]string{"log.proto": `syntax = "proto3"; package logtest; message L { int32 a = 1; }`})
	r := New(WithLogger(zerolog.New(&buf).Level(zerolog.DebugLevel)))

	require.NoError(t, r.LoadSchema(dir))
	assert.Contains(t, buf.String(), `"file":"log.proto"`)
	assert.Contains(t, buf.String(), "schema file loaded")
}
