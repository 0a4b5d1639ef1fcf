package descriptor

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/anirudhraja/protocore/schema"
	"github.com/anirudhraja/protocore/wire"
)

// builder stages the descriptors of one Add call. Nothing becomes visible
// in the pool until commit.
type builder struct {
	pool *Pool

	files      map[string]*File
	order      []*File
	messages   map[string]*Message
	enums      map[string]*Enum
	services   map[string]*Service
	extensions map[string]map[wire.FieldNumber]*Field
	extByName  map[string]*Field

	pending    []*pendingMessage
	pendingExt []*pendingExtension
	pendingSvc []*pendingService
}

type pendingMessage struct {
	msg     *Message
	def     *schema.Message
	entries map[string]*Message // map field name -> entry message
}

type pendingExtension struct {
	file  *File
	scope string
	owner *Message // declaring message, nil at file level
	def   *schema.Field
}

type pendingService struct {
	file *File
	def  *schema.Service
}

func newBuilder(p *Pool) *builder {
	return &builder{
		pool:       p,
		files:      make(map[string]*File),
		messages:   make(map[string]*Message),
		enums:      make(map[string]*Enum),
		services:   make(map[string]*Service),
		extensions: make(map[string]map[wire.FieldNumber]*Field),
		extByName:  make(map[string]*Field),
	}
}

func (b *builder) build(files []*schema.ProtoFile) error {
	// Pass 1: declare every named entity so references can resolve in any order.
	for _, sf := range files {
		if err := b.declareFile(sf); err != nil {
			return err
		}
	}

	// Pass 2: resolve fields.
	for _, pm := range b.pending {
		if err := b.resolveMessage(pm); err != nil {
			return err
		}
	}

	// Pass 3: extensions, which need their extendee's fields.
	for _, pe := range b.pendingExt {
		if err := b.resolveExtension(pe); err != nil {
			return err
		}
	}

	// Pass 4: services.
	for _, ps := range b.pendingSvc {
		if err := b.resolveService(ps); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) commit() {
	p := b.pool
	for name, f := range b.files {
		p.files[name] = f
	}
	p.order = append(p.order, b.order...)
	for name, m := range b.messages {
		p.messages[name] = m
	}
	for name, e := range b.enums {
		p.enums[name] = e
	}
	for name, s := range b.services {
		p.services[name] = s
	}
	for extendee, byNum := range b.extensions {
		dst := p.extensions[extendee]
		if dst == nil {
			dst = make(map[wire.FieldNumber]*Field, len(byNum))
			p.extensions[extendee] = dst
		}
		for n, f := range byNum {
			dst[n] = f
		}
	}
	for name, f := range b.extByName {
		p.extByName[name] = f
	}
}

// ===== LOOKUP =====

func (b *builder) findMessage(name string) *Message {
	if m, ok := b.messages[name]; ok {
		return m
	}
	return b.pool.messages[name]
}

func (b *builder) findEnum(name string) *Enum {
	if e, ok := b.enums[name]; ok {
		return e
	}
	return b.pool.enums[name]
}

func (b *builder) isType(name string) bool {
	return b.findMessage(name) != nil || b.findEnum(name) != nil
}

func (b *builder) defined(name string) bool {
	if b.isType(name) {
		return true
	}
	if _, ok := b.services[name]; ok {
		return true
	}
	if _, ok := b.pool.services[name]; ok {
		return true
	}
	if _, ok := b.extByName[name]; ok {
		return true
	}
	_, ok := b.pool.extByName[name]
	return ok
}

func (b *builder) findExtension(extendee string, n wire.FieldNumber) *Field {
	if f := b.extensions[extendee][n]; f != nil {
		return f
	}
	return b.pool.extensions[extendee][n]
}

// ===== DECLARATION =====

func (b *builder) declareFile(sf *schema.ProtoFile) error {
	if sf == nil {
		return schemaErrorf("", "", "nil file")
	}
	if sf.Name == "" {
		return schemaErrorf("", sf.Package, "file has no name")
	}
	if _, ok := b.files[sf.Name]; ok {
		return schemaErrorf(sf.Name, "", "file added twice")
	}
	if _, ok := b.pool.files[sf.Name]; ok {
		return schemaErrorf(sf.Name, "", "file already in pool")
	}

	f := &File{name: sf.Name, pkg: sf.Package}
	switch sf.Syntax {
	case "", schema.SyntaxProto2:
		f.syntax = Proto2
	case schema.SyntaxProto3:
		f.syntax = Proto3
	default:
		return schemaErrorf(sf.Name, "", "unsupported syntax %q", sf.Syntax)
	}
	for _, imp := range sf.Imports {
		f.imports = append(f.imports, imp.Path)
	}
	b.files[sf.Name] = f
	b.order = append(b.order, f)

	for _, sm := range sf.Messages {
		m, err := b.declareMessage(f, nil, sf.Package, sm)
		if err != nil {
			return err
		}
		f.messages = append(f.messages, m)
	}
	for _, se := range sf.Enums {
		e, err := b.declareEnum(f, nil, sf.Package, se)
		if err != nil {
			return err
		}
		f.enums = append(f.enums, e)
	}
	for _, ext := range sf.Extensions {
		b.pendingExt = append(b.pendingExt, &pendingExtension{file: f, scope: sf.Package, def: ext})
	}
	for _, svc := range sf.Services {
		b.pendingSvc = append(b.pendingSvc, &pendingService{file: f, def: svc})
	}
	return nil
}

func (b *builder) declareMessage(f *File, parent *Message, scope string, sm *schema.Message) (*Message, error) {
	if sm == nil || sm.Name == "" {
		return nil, schemaErrorf(f.name, scope, "message has no name")
	}
	fullName := joinName(scope, sm.Name)
	if b.defined(fullName) {
		return nil, schemaErrorf(f.name, fullName, "duplicate name")
	}
	m := &Message{file: f, parent: parent, name: sm.Name, fullName: fullName, mapEntry: sm.MapEntry}
	b.messages[fullName] = m

	for _, nested := range sm.NestedTypes {
		n, err := b.declareMessage(f, m, fullName, nested)
		if err != nil {
			return nil, err
		}
		m.messages = append(m.messages, n)
	}
	for _, se := range sm.NestedEnums {
		e, err := b.declareEnum(f, m, fullName, se)
		if err != nil {
			return nil, err
		}
		m.enums = append(m.enums, e)
	}

	pm := &pendingMessage{msg: m, def: sm}
	for _, field := range allFields(sm) {
		if field.Type.Kind != schema.KindMap {
			continue
		}
		entry, err := b.declareMapEntry(f, m, field)
		if err != nil {
			return nil, err
		}
		if pm.entries == nil {
			pm.entries = make(map[string]*Message)
		}
		pm.entries[field.Name] = entry
		m.messages = append(m.messages, entry)
	}
	b.pending = append(b.pending, pm)

	for _, ext := range sm.Extensions {
		b.pendingExt = append(b.pendingExt, &pendingExtension{file: f, scope: fullName, owner: m, def: ext})
	}
	return m, nil
}

func (b *builder) declareMapEntry(f *File, parent *Message, field *schema.Field) (*Message, error) {
	element := joinName(parent.fullName, field.Name)
	if field.Type.MapKey == nil || field.Type.MapValue == nil {
		return nil, schemaErrorf(f.name, element, "map field is missing its key or value type")
	}
	if field.Type.MapKey.Kind != schema.KindPrimitive {
		return nil, schemaErrorf(f.name, element, "invalid map key type")
	}
	if k, ok := primitiveKinds[field.Type.MapKey.PrimitiveType]; !ok || !k.validMapKey() {
		return nil, schemaErrorf(f.name, element, "invalid map key type %q", field.Type.MapKey.PrimitiveType)
	}

	name := mapEntryName(field.Name)
	fullName := joinName(parent.fullName, name)
	if b.defined(fullName) {
		return nil, schemaErrorf(f.name, fullName, "duplicate name")
	}
	entry := &Message{file: f, parent: parent, name: name, fullName: fullName, mapEntry: true}
	b.messages[fullName] = entry

	def := &schema.Message{
		Name:     name,
		MapEntry: true,
		Fields: []*schema.Field{
			{Name: "key", Number: 1, Label: schema.LabelOptional, Type: *field.Type.MapKey},
			{Name: "value", Number: 2, Label: schema.LabelOptional, Type: *field.Type.MapValue},
		},
	}
	b.pending = append(b.pending, &pendingMessage{msg: entry, def: def})
	return entry, nil
}

func (b *builder) declareEnum(f *File, parent *Message, scope string, se *schema.Enum) (*Enum, error) {
	if se == nil || se.Name == "" {
		return nil, schemaErrorf(f.name, scope, "enum has no name")
	}
	fullName := joinName(scope, se.Name)
	if b.defined(fullName) {
		return nil, schemaErrorf(f.name, fullName, "duplicate name")
	}
	if len(se.Values) == 0 {
		return nil, schemaErrorf(f.name, fullName, "enum has no values")
	}

	e := &Enum{
		file:     f,
		parent:   parent,
		name:     se.Name,
		fullName: fullName,
		byNumber: make(map[EnumNumber]*EnumValue, len(se.Values)),
		byName:   make(map[string]*EnumValue, len(se.Values)),
	}
	for i, sv := range se.Values {
		v := &EnumValue{enum: e, name: sv.Name, number: EnumNumber(sv.Number), index: i}
		if _, dup := e.byName[v.name]; dup {
			return nil, schemaErrorf(f.name, fullName, "duplicate enum value name %s", v.name)
		}
		if _, dup := e.byNumber[v.number]; dup {
			if !se.AllowAlias {
				return nil, schemaErrorf(f.name, fullName, "duplicate enum value number %d without allow_alias", v.number)
			}
		} else {
			e.byNumber[v.number] = v
		}
		e.byName[v.name] = v
		e.values = append(e.values, v)
	}
	if f.syntax == Proto3 && e.values[0].number != 0 {
		return nil, schemaErrorf(f.name, fullName, "first value of a proto3 enum must be zero")
	}
	b.enums[fullName] = e
	return e, nil
}

// allFields returns the declared fields followed by any oneof members that
// were only listed under their oneof.
func allFields(sm *schema.Message) []*schema.Field {
	out := make([]*schema.Field, 0, len(sm.Fields))
	seen := make(map[string]bool, len(sm.Fields))
	for _, f := range sm.Fields {
		out = append(out, f)
		seen[f.Name] = true
	}
	for _, o := range sm.OneofGroups {
		for _, f := range o.Fields {
			if !seen[f.Name] {
				out = append(out, f)
				seen[f.Name] = true
			}
		}
	}
	return out
}

// ===== RESOLUTION =====

func (b *builder) resolveMessage(pm *pendingMessage) error {
	m, sm := pm.msg, pm.def
	file := m.file.name

	oneofOf := make(map[string]*Oneof)
	for i, so := range sm.OneofGroups {
		o := &Oneof{parent: m, name: so.Name, fullName: joinName(m.fullName, so.Name), index: i}
		if len(so.Fields) == 0 {
			return schemaErrorf(file, o.fullName, "oneof has no fields")
		}
		for _, sf := range so.Fields {
			if _, dup := oneofOf[sf.Name]; dup {
				return schemaErrorf(file, joinName(m.fullName, sf.Name), "field belongs to more than one oneof")
			}
			oneofOf[sf.Name] = o
		}
		m.oneofs = append(m.oneofs, o)
	}

	defs := allFields(sm)
	m.fields = make([]*Field, 0, len(defs))
	m.byName = make(map[string]*Field, len(defs))
	byNumber := make(map[wire.FieldNumber]*Field, len(defs))

	for i, sf := range defs {
		fd, err := b.newField(m.file, m.fullName, sf, pm.entries[sf.Name])
		if err != nil {
			return err
		}
		fd.parent = m
		fd.index = i

		if o := oneofOf[sf.Name]; o != nil {
			if fd.cardinality != Optional {
				return schemaErrorf(file, fd.fullName, "oneof members must be singular and optional")
			}
			fd.oneof = o
			o.fields = append(o.fields, fd)
		}
		fd.hasPresence = computePresence(fd, m.file.syntax)

		if _, dup := m.byName[fd.name]; dup {
			return schemaErrorf(file, fd.fullName, "duplicate field name")
		}
		if other, dup := byNumber[fd.number]; dup {
			return schemaErrorf(file, fd.fullName, "field number %d already used by %s", fd.number, other.name)
		}
		m.byName[fd.name] = fd
		byNumber[fd.number] = fd
		m.fields = append(m.fields, fd)
		if fd.cardinality == Required {
			m.required = append(m.required, fd)
		}
	}

	m.byNumber = make([]*Field, len(m.fields))
	copy(m.byNumber, m.fields)
	sort.Slice(m.byNumber, func(i, j int) bool { return m.byNumber[i].number < m.byNumber[j].number })

	maxDense := 0
	for _, fd := range m.byNumber {
		if int(fd.number) <= maxDenseFieldNumber {
			maxDense = int(fd.number)
		}
	}
	m.dense = make([]*Field, maxDense+1)
	for _, fd := range m.byNumber {
		if int(fd.number) <= maxDense {
			m.dense[fd.number] = fd
			continue
		}
		if m.sparse == nil {
			m.sparse = make(map[wire.FieldNumber]*Field)
		}
		m.sparse[fd.number] = fd
	}
	return nil
}

func (b *builder) newField(f *File, scope string, sf *schema.Field, entry *Message) (*Field, error) {
	if sf == nil || sf.Name == "" {
		return nil, schemaErrorf(f.name, scope, "field has no name")
	}
	fd := &Field{
		scope:    scope,
		name:     sf.Name,
		fullName: joinName(scope, sf.Name),
		number:   wire.FieldNumber(sf.Number),
		jsonName: sf.JsonName,
	}
	errorf := func(format string, args ...any) (*Field, error) {
		return nil, schemaErrorf(f.name, fd.fullName, format, args...)
	}

	if !fd.number.Valid() {
		return errorf("field number %d out of range", sf.Number)
	}
	if fd.number >= wire.FirstReservedNumber && fd.number <= wire.LastReservedNumber {
		return errorf("field number %d is in the reserved range %d-%d", sf.Number, wire.FirstReservedNumber, wire.LastReservedNumber)
	}
	if fd.jsonName == "" {
		fd.jsonName = JSONCamelCase(sf.Name)
	}

	switch sf.Label {
	case "", schema.LabelOptional:
		fd.cardinality = Optional
	case schema.LabelRequired:
		if f.syntax == Proto3 {
			return errorf("required fields are not allowed in proto3")
		}
		fd.cardinality = Required
	case schema.LabelRepeated:
		fd.cardinality = Repeated
	default:
		return errorf("unknown label %q", sf.Label)
	}

	switch sf.Type.Kind {
	case schema.KindPrimitive:
		k, ok := primitiveKinds[sf.Type.PrimitiveType]
		if !ok {
			return errorf("unknown scalar type %q", sf.Type.PrimitiveType)
		}
		fd.kind = k

	case schema.KindMessage, schema.KindGroup, schema.KindEnum:
		ref := sf.Type.MessageType
		if sf.Type.Kind == schema.KindEnum {
			ref = sf.Type.EnumType
		}
		name, err := resolveTypeName(ref, scope, b.isType)
		if err != nil {
			return errorf("%v", err)
		}
		if msg := b.findMessage(name); msg != nil {
			if sf.Type.Kind == schema.KindEnum {
				return errorf("%s is a message, not an enum", name)
			}
			fd.kind = MessageKind
			if sf.Type.Kind == schema.KindGroup {
				if f.syntax == Proto3 {
					return errorf("groups are not allowed in proto3")
				}
				fd.kind = GroupKind
			}
			fd.message = msg
		} else {
			if sf.Type.Kind == schema.KindGroup {
				return errorf("%s is an enum, not a group", name)
			}
			fd.kind = EnumKind
			fd.enum = b.findEnum(name)
		}

	case schema.KindMap:
		if entry == nil {
			return errorf("map fields are only allowed in messages")
		}
		if fd.cardinality == Required {
			return errorf("map fields cannot be required")
		}
		fd.kind = MessageKind
		fd.cardinality = Repeated
		fd.mapEntry = entry

	default:
		return errorf("unknown type kind %q", sf.Type.Kind)
	}

	if sf.Proto3Optional {
		if f.syntax != Proto3 {
			return errorf("proto3 optional used in a %s file", f.syntax)
		}
		if fd.cardinality != Optional {
			return errorf("proto3 optional field must be singular")
		}
		fd.proto3Optional = true
	}

	fd.validateUTF8 = fd.kind == StringKind && f.syntax == Proto3

	if sf.Packed != nil {
		if *sf.Packed && (fd.cardinality != Repeated || fd.mapEntry != nil || !fd.kind.IsPackable()) {
			return errorf("packed option on a field that is not a repeated scalar")
		}
		fd.packed = *sf.Packed
	} else {
		fd.packed = f.syntax == Proto3 && fd.cardinality == Repeated && fd.mapEntry == nil && fd.kind.IsPackable()
	}

	if sf.DefaultValue != "" {
		switch {
		case f.syntax == Proto3:
			return errorf("explicit default values are not allowed in proto3")
		case fd.cardinality == Repeated:
			return errorf("repeated fields cannot have default values")
		case fd.kind.IsMessage():
			return errorf("message fields cannot have default values")
		}
		v, err := parseDefault(fd, sf.DefaultValue)
		if err != nil {
			return errorf("invalid default value %q: %v", sf.DefaultValue, err)
		}
		fd.defaultValue = v
		fd.hasDefault = true
	} else if fd.cardinality != Repeated && !fd.kind.IsMessage() {
		fd.defaultValue = zeroValue(fd)
	}

	if fd.mapEntry == nil && !fd.kind.IsMessage() {
		fd.codec = scalarCodec(fd)
	}
	return fd, nil
}

func computePresence(fd *Field, syntax Syntax) bool {
	switch {
	case fd.cardinality == Repeated:
		return false
	case fd.isExtension, fd.kind.IsMessage(), fd.oneof != nil, fd.proto3Optional:
		return true
	default:
		return syntax == Proto2
	}
}

func (b *builder) resolveExtension(pe *pendingExtension) error {
	sf := pe.def
	element := joinName(pe.scope, sf.Name)
	if sf.Extendee == "" {
		return schemaErrorf(pe.file.name, element, "extension has no extendee")
	}
	name, err := resolveTypeName(sf.Extendee, pe.scope, func(n string) bool { return b.findMessage(n) != nil })
	if err != nil {
		return schemaErrorf(pe.file.name, element, "extends unknown message: %v", err)
	}
	extendee := b.findMessage(name)

	fd, err := b.newField(pe.file, pe.scope, sf, nil)
	if err != nil {
		return err
	}
	if b.defined(fd.fullName) {
		return schemaErrorf(pe.file.name, fd.fullName, "duplicate name")
	}
	fd.parent = extendee
	fd.index = -1
	fd.isExtension = true
	fd.hasPresence = computePresence(fd, pe.file.syntax)

	if other := extendee.FieldByNumber(fd.number); other != nil {
		return schemaErrorf(pe.file.name, fd.fullName, "extension number %d conflicts with field %s", fd.number, other.fullName)
	}
	if other := b.findExtension(extendee.fullName, fd.number); other != nil {
		return schemaErrorf(pe.file.name, fd.fullName, "extension number %d already used by %s", fd.number, other.fullName)
	}

	byNum := b.extensions[extendee.fullName]
	if byNum == nil {
		byNum = make(map[wire.FieldNumber]*Field)
		b.extensions[extendee.fullName] = byNum
	}
	byNum[fd.number] = fd
	b.extByName[fd.fullName] = fd

	if pe.owner != nil {
		pe.owner.extensions = append(pe.owner.extensions, fd)
	} else {
		pe.file.extensions = append(pe.file.extensions, fd)
	}
	return nil
}

func (b *builder) resolveService(ps *pendingService) error {
	sd := ps.def
	fullName := joinName(ps.file.pkg, sd.Name)
	if b.defined(fullName) {
		return schemaErrorf(ps.file.name, fullName, "duplicate name")
	}
	isMessage := func(n string) bool { return b.findMessage(n) != nil }

	svc := &Service{name: sd.Name, fullName: fullName}
	for _, md := range sd.Methods {
		in, err := resolveTypeName(md.InputType, ps.file.pkg, isMessage)
		if err != nil {
			return schemaErrorf(ps.file.name, joinName(fullName, md.Name), "input: %v", err)
		}
		out, err := resolveTypeName(md.OutputType, ps.file.pkg, isMessage)
		if err != nil {
			return schemaErrorf(ps.file.name, joinName(fullName, md.Name), "output: %v", err)
		}
		svc.methods = append(svc.methods, &Method{
			name:            md.Name,
			input:           b.findMessage(in),
			output:          b.findMessage(out),
			clientStreaming: md.ClientStreaming,
			serverStreaming: md.ServerStreaming,
		})
	}
	b.services[fullName] = svc
	ps.file.services = append(ps.file.services, svc)
	return nil
}

// ===== VALUES =====

func zeroValue(fd *Field) any {
	switch fd.kind {
	case Int32Kind, Sint32Kind, Sfixed32Kind:
		return int32(0)
	case Int64Kind, Sint64Kind, Sfixed64Kind:
		return int64(0)
	case Uint32Kind, Fixed32Kind:
		return uint32(0)
	case Uint64Kind, Fixed64Kind:
		return uint64(0)
	case FloatKind:
		return float32(0)
	case DoubleKind:
		return float64(0)
	case BoolKind:
		return false
	case StringKind:
		return ""
	case BytesKind:
		return []byte(nil)
	case EnumKind:
		return fd.enum.values[0].number
	}
	return nil
}

func parseDefault(fd *Field, s string) (any, error) {
	switch fd.kind {
	case Int32Kind, Sint32Kind, Sfixed32Kind:
		v, err := strconv.ParseInt(s, 0, 32)
		return int32(v), err
	case Int64Kind, Sint64Kind, Sfixed64Kind:
		return strconv.ParseInt(s, 0, 64)
	case Uint32Kind, Fixed32Kind:
		v, err := strconv.ParseUint(s, 0, 32)
		return uint32(v), err
	case Uint64Kind, Fixed64Kind:
		return strconv.ParseUint(s, 0, 64)
	case FloatKind:
		v, err := parseFloat(s, 32)
		return float32(v), err
	case DoubleKind:
		return parseFloat(s, 64)
	case BoolKind:
		return strconv.ParseBool(s)
	case StringKind:
		return s, nil
	case BytesKind:
		if u, err := strconv.Unquote(`"` + s + `"`); err == nil {
			return []byte(u), nil
		}
		return []byte(s), nil
	case EnumKind:
		v := fd.enum.ValueByName(s)
		if v == nil {
			return nil, schemaErrorf("", fd.enum.fullName, "no value named %s", s)
		}
		return v.number, nil
	}
	return nil, schemaErrorf("", fd.fullName, "kind %v has no defaults", fd.kind)
}

func parseFloat(s string, bits int) (float64, error) {
	switch strings.ToLower(s) {
	case "inf", "+inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	case "nan":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, bits)
}
