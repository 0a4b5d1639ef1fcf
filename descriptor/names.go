package descriptor

import (
	"fmt"
	"strings"
)

// JSONCamelCase converts a snake_case field name to the camelCase form used
// for JSON names: each underscore is dropped and the letter after it is
// upper-cased. The first letter is left as written.
func JSONCamelCase(s string) string {
	if strings.IndexByte(s, '_') < 0 {
		return s
	}
	out := make([]byte, 0, len(s))
	upperNext := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			upperNext = true
			continue
		}
		if upperNext && c >= 'a' && c <= 'z' {
			c = c - 'a' + 'A'
		}
		upperNext = false
		out = append(out, c)
	}
	return string(out)
}

// mapEntryName returns the name of the synthetic entry message protoc
// generates for a map field, e.g. "my_map" -> "MyMapEntry".
func mapEntryName(field string) string {
	name := JSONCamelCase(field)
	if name != "" && name[0] >= 'a' && name[0] <= 'z' {
		name = string(name[0]-'a'+'A') + name[1:]
	}
	return name + "Entry"
}

func joinName(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "." + name
}

func parentScope(scope string) string {
	if i := strings.LastIndexByte(scope, '.'); i >= 0 {
		return scope[:i]
	}
	return ""
}

// resolveTypeName finds the entity a type reference names, following the
// protobuf scoping rules: a leading dot means fully qualified, otherwise the
// reference is tried in the innermost scope first and then in each
// enclosing scope up to the root.
func resolveTypeName(typeName, scope string, exists func(string) bool) (string, error) {
	if strings.HasPrefix(typeName, ".") {
		return getFullyQualifiedType(typeName, exists)
	}
	if result, ok := splitNameAndCheck(typeName, scope, exists); ok {
		return result, nil
	}
	if exists(typeName) {
		return typeName, nil
	}
	return "", fmt.Errorf("unable to resolve type name: %s", typeName)
}

// splitNameAndCheck walks from scope outward, appending typeName at each
// level until an entity is found.
func splitNameAndCheck(typeName, scope string, exists func(string) bool) (string, bool) {
	for s := scope; s != ""; s = parentScope(s) {
		if entityName := s + "." + typeName; exists(entityName) {
			return entityName, true
		}
	}
	return "", false
}

func getFullyQualifiedType(typeName string, exists func(string) bool) (string, error) {
	typeName = strings.TrimPrefix(typeName, ".")
	if exists(typeName) {
		return typeName, nil
	}
	return "", fmt.Errorf("unable to resolve fully qualified type name: .%s", typeName)
}
