package protocore

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/anirudhraja/protocore/accessor"
	"github.com/anirudhraja/protocore/descriptor"
	"github.com/anirudhraja/protocore/message"
	"github.com/anirudhraja/protocore/registry"
	"github.com/anirudhraja/protocore/schema"
	"github.com/anirudhraja/protocore/wkt"
)

// ===== SCHEMA-AWARE API =====

// Protocore provides schema-aware protobuf operations without generated code.
// It bundles a Registry with the parse and serialize options every call
// uses. A Protocore is safe for concurrent use.
type Protocore struct {
	registry  *registry.Registry
	unmarshal message.UnmarshalOptions
	marshal   message.MarshalOptions
	logger    zerolog.Logger
}

// New creates a new Protocore instance.
func New(opts ...Option) *Protocore {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt.apply(&o)
	}
	r := registry.New(append(o.registry, registry.WithLogger(o.logger))...)
	o.unmarshal.Resolver = r
	return &Protocore{
		registry:  r,
		unmarshal: o.unmarshal,
		marshal:   o.marshal,
		logger:    o.logger,
	}
}

// LoadSchemaFromFile loads a .proto file and its imports from the proto
// directories.
func (p *Protocore) LoadSchemaFromFile(protoFile string) error {
	return p.registry.LoadSchemaFromFile(protoFile)
}

// LoadSchema loads every .proto file under path, which may be a single file.
func (p *Protocore) LoadSchema(path string) error {
	return p.registry.LoadSchema(path)
}

// LoadRepo loads a protobuf repository (collection of .proto files).
func (p *Protocore) LoadRepo(repo *schema.ProtoRepo) error {
	return p.registry.LoadRepo(repo)
}

// LoadFileDescriptorSet loads compiled descriptors.
func (p *Protocore) LoadFileDescriptorSet(set *descriptorpb.FileDescriptorSet) error {
	return p.registry.LoadFileDescriptorSet(set)
}

// NewMessage returns an empty message of the named type.
func (p *Protocore) NewMessage(typeName string) (*message.Message, error) {
	md, err := p.registry.GetMessage(typeName)
	if err != nil {
		return nil, err
	}
	return message.New(md), nil
}

// Parse decodes protobuf bytes as a message of the named type.
func (p *Protocore) Parse(data []byte, typeName string) (*message.Message, error) {
	md, err := p.registry.GetMessage(typeName)
	if err != nil {
		return nil, err
	}
	m, err := p.unmarshal.Parse(md, data)
	if err != nil {
		p.logger.Debug().Err(err).Str("type", md.FullName()).Int("bytes", len(data)).Msg("parse failed")
		return nil, err
	}
	return m, nil
}

// Merge decodes data into m, on top of what m already holds.
func (p *Protocore) Merge(data []byte, m *message.Message) error {
	if err := p.unmarshal.Unmarshal(data, m); err != nil {
		p.logger.Debug().Err(err).Str("type", m.Descriptor().FullName()).Int("bytes", len(data)).Msg("parse failed")
		return err
	}
	return nil
}

// Marshal encodes m to protobuf bytes.
func (p *Protocore) Marshal(m *message.Message) ([]byte, error) {
	return p.marshal.Marshal(m)
}

// Accessors returns the accessor table of the named type.
func (p *Protocore) Accessors(typeName string) (*accessor.Table, error) {
	md, err := p.registry.GetMessage(typeName)
	if err != nil {
		return nil, err
	}
	return p.registry.AccessorTable(md), nil
}

// PackAny serializes m into an Any with the default type URL prefix.
func (p *Protocore) PackAny(m *message.Message) (wkt.Any, error) {
	return wkt.PackWith(m, wkt.DefaultTypeURLPrefix, p.marshal)
}

// UnpackAny parses the message held by a, looking its type up in the
// registry.
func (p *Protocore) UnpackAny(a wkt.Any) (*message.Message, error) {
	md := p.registry.FindMessage(a.TypeName())
	if md == nil {
		return nil, fmt.Errorf("%w: %q", wkt.ErrUnknownType, a.TypeURL)
	}
	return p.unmarshal.Parse(md, a.Value)
}

// ===== STRUCT DECODING =====

// Unmarshal decodes protobuf bytes into a Go struct using reflection. The
// message type is the struct's type name, resolved as in FindMessage.
func (p *Protocore) Unmarshal(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("unmarshal target must be a pointer to struct")
	}
	return p.UnmarshalAs(data, rv.Elem().Type().Name(), v)
}

// UnmarshalAs decodes protobuf bytes of the named type into a Go struct.
//
// Struct fields are matched to message fields by a `protocore:"name"` tag,
// then a json tag, then by name ignoring case and underscores. Unmatched
// fields are left alone. Nested messages decode into structs or struct
// pointers, repeated fields into slices, map fields into Go maps and enums
// into integers or, for string fields, value names.
func (p *Protocore) UnmarshalAs(data []byte, typeName string, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("unmarshal target must be a pointer to struct")
	}
	m, err := p.Parse(data, typeName)
	if err != nil {
		return err
	}
	return mapToStruct(m, rv.Elem())
}

// mapToStruct maps a parsed message to struct fields.
func mapToStruct(m *message.Message, rv reflect.Value) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fieldValue := rv.Field(i)

		if !fieldValue.CanSet() {
			continue
		}
		fd := fieldFor(m.Descriptor(), field)
		if fd == nil || !m.Has(fd) {
			continue
		}
		if err := setFieldValue(fieldValue, fd, m.Get(fd)); err != nil {
			return fmt.Errorf("failed to set field %s: %w", field.Name, err)
		}
	}
	return nil
}

// fieldFor finds the message field a struct field decodes from.
func fieldFor(md *descriptor.Message, sf reflect.StructField) *descriptor.Field {
	for _, key := range []string{"protocore", "json"} {
		name, _, _ := strings.Cut(sf.Tag.Get(key), ",")
		if name == "-" {
			return nil
		}
		if name == "" {
			continue
		}
		if fd := md.FieldByName(name); fd != nil {
			return fd
		}
		for _, fd := range md.Fields() {
			if fd.JSONName() == name {
				return fd
			}
		}
	}
	want := foldName(sf.Name)
	for _, fd := range md.Fields() {
		if foldName(fd.Name()) == want {
			return fd
		}
	}
	return nil
}

func foldName(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", ""))
}

// setFieldValue sets a struct field with type conversion.
func setFieldValue(fieldValue reflect.Value, fd *descriptor.Field, value any) error {
	switch {
	case fd.IsMap():
		mf, _ := value.(*message.Map)
		return setMap(fieldValue, fd, mf)
	case fd.IsList():
		list, _ := value.(*message.List)
		return setSlice(fieldValue, fd, list)
	}
	return setElement(fieldValue, fd, value)
}

func setSlice(fieldValue reflect.Value, fd *descriptor.Field, list *message.List) error {
	if list == nil {
		return nil
	}
	if fieldValue.Kind() != reflect.Slice {
		return fmt.Errorf("cannot decode repeated %s into %s", fd.Kind(), fieldValue.Type())
	}
	out := reflect.MakeSlice(fieldValue.Type(), list.Len(), list.Len())
	for i, v := range list.All() {
		if err := setElement(out.Index(i), fd, v); err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
	}
	fieldValue.Set(out)
	return nil
}

func setMap(fieldValue reflect.Value, fd *descriptor.Field, mf *message.Map) error {
	if mf == nil {
		return nil
	}
	if fieldValue.Kind() != reflect.Map {
		return fmt.Errorf("cannot decode map field into %s", fieldValue.Type())
	}
	out := reflect.MakeMapWithSize(fieldValue.Type(), mf.Len())
	for k, v := range mf.All() {
		key := reflect.New(fieldValue.Type().Key()).Elem()
		if err := setElement(key, fd.MapKey(), k); err != nil {
			return fmt.Errorf("key %v: %w", k, err)
		}
		val := reflect.New(fieldValue.Type().Elem()).Elem()
		if err := setElement(val, fd.MapValue(), v); err != nil {
			return fmt.Errorf("key %v: %w", k, err)
		}
		out.SetMapIndex(key, val)
	}
	fieldValue.Set(out)
	return nil
}

// setElement sets one singular value.
func setElement(fieldValue reflect.Value, fd *descriptor.Field, value any) error {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case *message.Message:
		if v == nil {
			return nil
		}
		return setMessage(fieldValue, v)
	case descriptor.EnumNumber:
		if fieldValue.Kind() == reflect.String {
			if ev := fd.Enum().ValueByNumber(v); ev != nil {
				fieldValue.SetString(ev.Name())
				return nil
			}
			return fmt.Errorf("enum %s has no value %d", fd.Enum().FullName(), v)
		}
	}

	sourceValue := reflect.ValueOf(value)
	if sourceValue.Type().AssignableTo(fieldValue.Type()) {
		fieldValue.Set(sourceValue)
		return nil
	}

	if sourceValue.Type().ConvertibleTo(fieldValue.Type()) {
		fieldValue.Set(sourceValue.Convert(fieldValue.Type()))
		return nil
	}

	return fmt.Errorf("cannot convert %T to %s", value, fieldValue.Type())
}

func setMessage(fieldValue reflect.Value, m *message.Message) error {
	if reflect.TypeOf(m).AssignableTo(fieldValue.Type()) {
		fieldValue.Set(reflect.ValueOf(m))
		return nil
	}
	switch {
	case fieldValue.Kind() == reflect.Struct:
		return mapToStruct(m, fieldValue)
	case fieldValue.Kind() == reflect.Ptr && fieldValue.Type().Elem().Kind() == reflect.Struct:
		target := reflect.New(fieldValue.Type().Elem())
		if err := mapToStruct(m, target.Elem()); err != nil {
			return err
		}
		fieldValue.Set(target)
		return nil
	}
	return fmt.Errorf("cannot decode message %s into %s", m.Descriptor().FullName(), fieldValue.Type())
}

// ===== REGISTRY ACCESS =====

func (p *Protocore) Registry() *registry.Registry { return p.registry }
func (p *Protocore) ListMessages() []string       { return p.registry.ListMessages() }
func (p *Protocore) ListEnums() []string          { return p.registry.ListEnums() }
func (p *Protocore) ListServices() []string       { return p.registry.ListServices() }
