package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/anirudhraja/protocore/schema"
)

// LoadSchemaFromFile loads protoFile and, depth first, every file it
// imports. protoFile and the imports are paths relative to one of
// ProtoDirectories; they become the file names in the registry, so imports
// between files resolve by name. Well-known imports are served by the
// registry itself.
func (r *Registry) LoadSchemaFromFile(protoFile string) error {
	files, err := r.collect(protoFile)
	if err != nil {
		return err
	}
	return r.addFiles(files)
}

// collect parses protoFile and its transitive imports. Dependencies come
// before the files that import them.
func (r *Registry) collect(protoFile string) ([]*schema.ProtoFile, error) {
	visited := make(map[string]struct{}) // to make sure we don't end up in a loop
	var result []*schema.ProtoFile

	var dfs func(name string) error
	dfs = func(name string) error {
		if _, ok := visited[name]; ok {
			return nil
		}
		visited[name] = struct{}{}
		if schema.IsWellKnownFile(name) || r.pool.HasFile(name) {
			return nil
		}
		fullPath, err := r.findIfProtoExists(name)
		if err != nil {
			return err
		}
		pf, err := parseFile(name, fullPath)
		if err != nil {
			return err
		}
		for _, imp := range pf.Imports {
			if err := dfs(imp.Path); err != nil {
				return fmt.Errorf("%s: import %q: %w", name, imp.Path, err)
			}
		}
		result = append(result, pf)
		return nil
	}
	if err := dfs(cleanName(protoFile)); err != nil {
		return nil, err
	}
	return result, nil
}

// LoadSchema loads every .proto file under root, which may also be a
// single file. File names are paths relative to root.
func (r *Registry) LoadSchema(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		if !strings.HasSuffix(root, ".proto") {
			return fmt.Errorf("file %s is not a .proto file", root)
		}
		pf, err := parseFile(filepath.Base(root), root)
		if err != nil {
			return err
		}
		return r.addFiles([]*schema.ProtoFile{pf})
	}

	var files []*schema.ProtoFile
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		// Skip directories and non-proto files
		if d.IsDir() || !strings.HasSuffix(p, ".proto") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		pf, err := parseFile(filepath.ToSlash(rel), p)
		if err != nil {
			return err
		}
		files = append(files, pf)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk directory: %w", err)
	}
	return r.addFiles(files)
}

func parseFile(name, fullPath string) (*schema.ProtoFile, error) {
	f, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	defer f.Close()
	return schema.ParseProto(name, f)
}

// findIfProtoExists returns the path of the first ProtoDirectories entry
// holding protoPath.
func (r *Registry) findIfProtoExists(protoPath string) (string, error) {
	if !strings.HasSuffix(protoPath, ".proto") {
		return "", fmt.Errorf("%s is not a .proto file", protoPath)
	}
	dirs := r.ProtoDirectories
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	var lastErr error
	for _, dir := range dirs {
		fullPath := filepath.Join(dir, filepath.FromSlash(protoPath))
		_, err := os.Stat(fullPath)
		if err == nil {
			return fullPath, nil
		}
		lastErr = err
	}
	if errors.Is(lastErr, fs.ErrNotExist) {
		return "", fmt.Errorf("path does not exist: %s in %v: %w", protoPath, dirs, lastErr)
	}
	return "", lastErr
}

func cleanName(name string) string {
	return path.Clean(filepath.ToSlash(strings.Trim(name, `"`)))
}
