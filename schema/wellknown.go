package schema

import (
	"sync"

	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/fieldmaskpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var (
	wellKnownOnce  sync.Once
	wellKnownFiles []*ProtoFile
)

// WellKnownFiles returns schema definitions for the google/protobuf well-known
// types. Each call returns the same shared files; callers must not mutate them.
func WellKnownFiles() []*ProtoFile {
	wellKnownOnce.Do(func() {
		for _, fd := range []protoreflect.FileDescriptor{
			anypb.File_google_protobuf_any_proto,
			durationpb.File_google_protobuf_duration_proto,
			timestamppb.File_google_protobuf_timestamp_proto,
			fieldmaskpb.File_google_protobuf_field_mask_proto,
			wrapperspb.File_google_protobuf_wrappers_proto,
			emptypb.File_google_protobuf_empty_proto,
			structpb.File_google_protobuf_struct_proto,
		} {
			pf, err := FromFileDescriptorProto(protodesc.ToFileDescriptorProto(fd))
			if err != nil {
				// The inputs are compiled into the binary; a failure is a bug.
				panic(err)
			}
			wellKnownFiles = append(wellKnownFiles, pf)
		}
	})
	return wellKnownFiles
}

// IsWellKnownFile reports whether path names one of the files returned by
// WellKnownFiles.
func IsWellKnownFile(path string) bool {
	for _, f := range WellKnownFiles() {
		if f.Name == path {
			return true
		}
	}
	return false
}
