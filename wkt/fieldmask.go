package wkt

import (
	"fmt"
	"slices"
	"strings"

	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/anirudhraja/protocore/descriptor"
	"github.com/anirudhraja/protocore/message"
)

// FieldMask is a set of dotted field paths such as "user.display_name".
type FieldMask struct {
	Paths []string
}

// ValidatePath checks that path can be rendered in camelCase and parsed
// back unchanged: it may not contain an upper-case ASCII letter, and every
// underscore must be followed by a lower-case letter.
func ValidatePath(path string) error {
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c >= 'A' && c <= 'Z' {
			return fmt.Errorf("%w: %q contains an upper-case letter", ErrInvalidPath, path)
		}
		if c == '_' && (i+1 == len(path) || path[i+1] < 'a' || path[i+1] > 'z') {
			return fmt.Errorf("%w: %q has an underscore not followed by a lower-case letter", ErrInvalidPath, path)
		}
	}
	return nil
}

// ToJSONPath converts a snake_case path to camelCase, "foo_bar.baz_qux"
// becoming "fooBar.bazQux".
func ToJSONPath(path string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}
	return descriptor.JSONCamelCase(path), nil
}

// JSONString renders the mask as comma-separated camelCase paths. It fails
// on the first invalid path.
func (f FieldMask) JSONString() (string, error) {
	out := make([]string, len(f.Paths))
	for i, p := range f.Paths {
		jp, err := ToJSONPath(p)
		if err != nil {
			return "", err
		}
		out[i] = jp
	}
	return strings.Join(out, ","), nil
}

// DiagnosticString renders the mask for logs and debugging. It never
// fails: a mask with invalid paths is rendered as a warning listing the raw
// paths instead of as camelCase.
func (f FieldMask) DiagnosticString() string {
	if s, err := f.JSONString(); err == nil {
		return s
	}
	return fmt.Sprintf("<invalid FieldMask %q>", f.Paths)
}

// Normalize returns the mask with its paths sorted, duplicates removed and
// any path dropped that is already covered by one of its ancestors.
func (f FieldMask) Normalize() FieldMask {
	sorted := slices.Clone(f.Paths)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	kept := make(map[string]bool, len(sorted))
	out := make([]string, 0, len(sorted))
	for _, p := range sorted {
		if !coveredBy(p, kept) {
			kept[p] = true
			out = append(out, p)
		}
	}
	return FieldMask{Paths: out}
}

// coveredBy reports whether a proper ancestor of path is in kept.
func coveredBy(path string, kept map[string]bool) bool {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' && kept[path[:i]] {
			return true
		}
	}
	return false
}

// IsValidFor reports whether every path names a field of desc. Every
// segment but the last must be a singular message field.
func (f FieldMask) IsValidFor(desc *descriptor.Message) bool {
	for _, p := range f.Paths {
		if !pathValidFor(p, desc) {
			return false
		}
	}
	return true
}

func pathValidFor(path string, desc *descriptor.Message) bool {
	segments := strings.Split(path, ".")
	for i, name := range segments {
		if desc == nil {
			return false
		}
		fd := desc.FieldByName(name)
		if fd == nil {
			return false
		}
		if i == len(segments)-1 {
			return true
		}
		if fd.IsRepeated() || !fd.Kind().IsMessage() {
			return false
		}
		desc = fd.Message()
	}
	return false
}

// Union returns the normalized union of the masks.
func Union(masks ...FieldMask) FieldMask {
	var all []string
	for _, m := range masks {
		all = append(all, m.Paths...)
	}
	return FieldMask{Paths: all}.Normalize()
}

// ToProto converts f to the generated FieldMask type.
func (f FieldMask) ToProto() *fieldmaskpb.FieldMask {
	return &fieldmaskpb.FieldMask{Paths: slices.Clone(f.Paths)}
}

// FieldMaskFromProto converts the generated FieldMask type.
func FieldMaskFromProto(p *fieldmaskpb.FieldMask) FieldMask {
	return FieldMask{Paths: slices.Clone(p.GetPaths())}
}

// ToMessage returns f as a dynamic message of type desc, which must be
// google.protobuf.FieldMask.
func (f FieldMask) ToMessage(desc *descriptor.Message) (*message.Message, error) {
	if err := checkType(desc, FieldMaskFullName); err != nil {
		return nil, err
	}
	fds, err := fields(desc, "paths")
	if err != nil {
		return nil, err
	}
	m := message.New(desc)
	list := m.List(fds[0])
	for _, p := range f.Paths {
		if err := list.Add(p); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// FieldMaskFromMessage reads a dynamic google.protobuf.FieldMask message.
func FieldMaskFromMessage(m *message.Message) (FieldMask, error) {
	if err := checkMessage(m, FieldMaskFullName); err != nil {
		return FieldMask{}, err
	}
	fds, err := fields(m.Descriptor(), "paths")
	if err != nil {
		return FieldMask{}, err
	}
	var out FieldMask
	paths, _ := m.Get(fds[0]).(*message.List)
	for _, v := range paths.All() {
		if s, ok := v.(string); ok {
			out.Paths = append(out.Paths, s)
		}
	}
	return out, nil
}
