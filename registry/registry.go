package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/anirudhraja/protocore/accessor"
	"github.com/anirudhraja/protocore/descriptor"
	"github.com/anirudhraja/protocore/schema"
	"github.com/anirudhraja/protocore/wire"
)

// ErrNotFound is returned when a type name does not resolve.
var ErrNotFound = errors.New("registry: not found")

// Registry owns the schema of a set of protobuf messages: a descriptor pool
// built from loaded files, the accessor tables of its message types, and
// the extension index used while parsing. Create one per independent
// schema set and pass it where messages are parsed or built.
//
// A Registry is safe for concurrent use. Loads are serialized; lookups never
// block on each other.
type Registry struct {
	// ProtoDirectories are searched, in order, for .proto files and their
	// imports.
	ProtoDirectories []string

	pool   *descriptor.Pool
	tables *xsync.Map[*descriptor.Message, *accessor.Table]
	logger zerolog.Logger

	loadMu sync.Mutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithProtoDirectories sets the directories searched for .proto files.
func WithProtoDirectories(dirs ...string) Option {
	return func(r *Registry) { r.ProtoDirectories = append(r.ProtoDirectories, dirs...) }
}

// WithLogger sets the logger used for load diagnostics. The default
// discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// New returns a registry holding the google/protobuf well-known types.
func New(opts ...Option) *Registry {
	r := &Registry{
		pool:   descriptor.NewPool(),
		tables: xsync.NewMap[*descriptor.Message, *accessor.Table](),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.pool.Add(schema.WellKnownFiles()...); err != nil {
		// The well-known files are compiled in; failing to build them is a bug.
		panic(fmt.Sprintf("registry: building well-known types: %v", err))
	}
	return r
}

// Pool returns the descriptor pool backing the registry.
func (r *Registry) Pool() *descriptor.Pool { return r.pool }

// LoadRepo adds every file of repo. Files already loaded, such as the
// well-known types, are skipped. Either all new files are added or none.
func (r *Registry) LoadRepo(repo *schema.ProtoRepo) error {
	if repo == nil {
		return nil
	}
	names := make([]string, 0, len(repo.ProtoFiles))
	for name := range repo.ProtoFiles {
		names = append(names, name)
	}
	slices.Sort(names)
	files := make([]*schema.ProtoFile, 0, len(names))
	for _, name := range names {
		files = append(files, repo.ProtoFiles[name])
	}
	return r.addFiles(files)
}

// LoadFileDescriptorSet adds the files of a compiled descriptor set, as
// produced by protoc --descriptor_set_out.
func (r *Registry) LoadFileDescriptorSet(set *descriptorpb.FileDescriptorSet) error {
	files := make([]*schema.ProtoFile, 0, len(set.GetFile()))
	for _, fdp := range set.GetFile() {
		pf, err := schema.FromFileDescriptorProto(fdp)
		if err != nil {
			return err
		}
		files = append(files, pf)
	}
	return r.addFiles(files)
}

func (r *Registry) addFiles(files []*schema.ProtoFile) error {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	fresh := files[:0:0]
	for _, f := range files {
		if f == nil {
			continue
		}
		if r.pool.HasFile(f.Name) {
			r.logger.Debug().Str("file", f.Name).Msg("schema file already loaded")
			continue
		}
		fresh = append(fresh, f)
	}
	if len(fresh) == 0 {
		return nil
	}
	if err := r.pool.Add(fresh...); err != nil {
		r.logger.Debug().Err(err).Int("files", len(fresh)).Msg("schema load failed")
		return err
	}
	for _, f := range fresh {
		r.logger.Debug().Str("file", f.Name).Str("package", f.Package).Msg("schema file loaded")
	}
	return nil
}

// FindMessage returns the message type called name, or nil. A leading dot
// is ignored. A name that is not fully qualified resolves if exactly one
// loaded type ends with it, so "User" finds "acme.v1.User".
func (r *Registry) FindMessage(name string) *descriptor.Message {
	name = strings.TrimPrefix(name, ".")
	if md := r.pool.FindMessage(name); md != nil {
		return md
	}
	if full, ok := uniqueSuffix(r.pool.MessageNames(), name); ok {
		return r.pool.FindMessage(full)
	}
	return nil
}

// GetMessage is FindMessage returning ErrNotFound for unknown names.
func (r *Registry) GetMessage(name string) (*descriptor.Message, error) {
	if md := r.FindMessage(name); md != nil {
		return md, nil
	}
	return nil, fmt.Errorf("%w: message %s", ErrNotFound, name)
}

// FindEnum returns the enum type called name, or nil. Names resolve as in
// FindMessage.
func (r *Registry) FindEnum(name string) *descriptor.Enum {
	name = strings.TrimPrefix(name, ".")
	if ed := r.pool.FindEnum(name); ed != nil {
		return ed
	}
	if full, ok := uniqueSuffix(r.pool.EnumNames(), name); ok {
		return r.pool.FindEnum(full)
	}
	return nil
}

// GetEnum is FindEnum returning ErrNotFound for unknown names.
func (r *Registry) GetEnum(name string) (*descriptor.Enum, error) {
	if ed := r.FindEnum(name); ed != nil {
		return ed, nil
	}
	return nil, fmt.Errorf("%w: enum %s", ErrNotFound, name)
}

// GetService returns the service called name.
func (r *Registry) GetService(name string) (*descriptor.Service, error) {
	name = strings.TrimPrefix(name, ".")
	if sd := r.pool.FindService(name); sd != nil {
		return sd, nil
	}
	if full, ok := uniqueSuffix(r.pool.ServiceNames(), name); ok {
		return r.pool.FindService(full), nil
	}
	return nil, fmt.Errorf("%w: service %s", ErrNotFound, name)
}

// FindExtensionByNumber returns the extension of extendee numbered n, or
// nil. It lets a Registry serve as message.UnmarshalOptions.Resolver.
func (r *Registry) FindExtensionByNumber(extendee string, n wire.FieldNumber) *descriptor.Field {
	return r.pool.FindExtension(extendee, n)
}

// FindExtensionByName returns the extension with the given full name, or
// nil.
func (r *Registry) FindExtensionByName(name string) *descriptor.Field {
	return r.pool.FindExtensionByName(strings.TrimPrefix(name, "."))
}

// AccessorTable returns the accessor table of md, building it on first use.
// Concurrent first calls build it once.
func (r *Registry) AccessorTable(md *descriptor.Message) *accessor.Table {
	t, _ := r.tables.LoadOrCompute(md, func() (*accessor.Table, bool) {
		return accessor.Build(md), false
	})
	return t
}

// ListMessages returns the full names of all message types, sorted.
func (r *Registry) ListMessages() []string { return r.pool.MessageNames() }

// ListEnums returns the full names of all enum types, sorted.
func (r *Registry) ListEnums() []string { return r.pool.EnumNames() }

// ListServices returns the full names of all services, sorted.
func (r *Registry) ListServices() []string { return r.pool.ServiceNames() }

// uniqueSuffix finds the one name in names that ends with "."+short.
func uniqueSuffix(names []string, short string) (string, bool) {
	if short == "" {
		return "", false
	}
	var found string
	for _, n := range names {
		if strings.HasSuffix(n, "."+short) {
			if found != "" {
				return "", false
			}
			found = n
		}
	}
	return found, found != ""
}
