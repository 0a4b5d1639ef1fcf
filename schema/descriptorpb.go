package schema

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/types/descriptorpb"
)

var primitiveOf = map[descriptorpb.FieldDescriptorProto_Type]PrimitiveType{
	descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:   TypeDouble,
	descriptorpb.FieldDescriptorProto_TYPE_FLOAT:    TypeFloat,
	descriptorpb.FieldDescriptorProto_TYPE_INT64:    TypeInt64,
	descriptorpb.FieldDescriptorProto_TYPE_UINT64:   TypeUint64,
	descriptorpb.FieldDescriptorProto_TYPE_INT32:    TypeInt32,
	descriptorpb.FieldDescriptorProto_TYPE_FIXED64:  TypeFixed64,
	descriptorpb.FieldDescriptorProto_TYPE_FIXED32:  TypeFixed32,
	descriptorpb.FieldDescriptorProto_TYPE_BOOL:     TypeBool,
	descriptorpb.FieldDescriptorProto_TYPE_STRING:   TypeString,
	descriptorpb.FieldDescriptorProto_TYPE_BYTES:    TypeBytes,
	descriptorpb.FieldDescriptorProto_TYPE_UINT32:   TypeUint32,
	descriptorpb.FieldDescriptorProto_TYPE_SFIXED32: TypeSfixed32,
	descriptorpb.FieldDescriptorProto_TYPE_SFIXED64: TypeSfixed64,
	descriptorpb.FieldDescriptorProto_TYPE_SINT32:   TypeSint32,
	descriptorpb.FieldDescriptorProto_TYPE_SINT64:   TypeSint64,
}

// FromFileDescriptorProto converts a compiled file descriptor, as produced by
// protoc or protodesc, into a ProtoFile. Map entry types are folded back into
// map fields and synthetic proto3 optional oneofs are dropped.
func FromFileDescriptorProto(fd *descriptorpb.FileDescriptorProto) (*ProtoFile, error) {
	pf := &ProtoFile{
		Name:    fd.GetName(),
		Package: fd.GetPackage(),
		Syntax:  fd.GetSyntax(),
	}
	if pf.Syntax == "" {
		pf.Syntax = SyntaxProto2
	}

	public := make(map[int32]bool, len(fd.GetPublicDependency()))
	for _, i := range fd.GetPublicDependency() {
		public[i] = true
	}
	weak := make(map[int32]bool, len(fd.GetWeakDependency()))
	for _, i := range fd.GetWeakDependency() {
		weak[i] = true
	}
	for i, dep := range fd.GetDependency() {
		pf.Imports = append(pf.Imports, &Import{Path: dep, Public: public[int32(i)], Weak: weak[int32(i)]})
	}

	for _, md := range fd.GetMessageType() {
		m, err := messageFromProto(md)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pf.Name, err)
		}
		pf.Messages = append(pf.Messages, m)
	}
	for _, ed := range fd.GetEnumType() {
		pf.Enums = append(pf.Enums, enumFromProto(ed))
	}
	for _, xd := range fd.GetExtension() {
		f, err := fieldFromProto(xd, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pf.Name, err)
		}
		pf.Extensions = append(pf.Extensions, f)
	}
	for _, sd := range fd.GetService() {
		s := &Service{Name: sd.GetName()}
		for _, md := range sd.GetMethod() {
			s.Methods = append(s.Methods, &Method{
				Name:            md.GetName(),
				InputType:       md.GetInputType(),
				OutputType:      md.GetOutputType(),
				ClientStreaming: md.GetClientStreaming(),
				ServerStreaming: md.GetServerStreaming(),
			})
		}
		pf.Services = append(pf.Services, s)
	}
	return pf, nil
}

func messageFromProto(md *descriptorpb.DescriptorProto) (*Message, error) {
	msg := &Message{
		Name:     md.GetName(),
		MapEntry: md.GetOptions().GetMapEntry(),
	}

	// Map entries are referenced by the map field and then discarded.
	entries := make(map[string]*descriptorpb.DescriptorProto)
	for _, nested := range md.GetNestedType() {
		if nested.GetOptions().GetMapEntry() {
			entries[nested.GetName()] = nested
			continue
		}
		m, err := messageFromProto(nested)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", msg.Name, err)
		}
		msg.NestedTypes = append(msg.NestedTypes, m)
	}
	for _, ed := range md.GetEnumType() {
		msg.NestedEnums = append(msg.NestedEnums, enumFromProto(ed))
	}

	oneofs := make([]*Oneof, len(md.GetOneofDecl()))
	synthetic := make([]bool, len(md.GetOneofDecl()))
	for i, od := range md.GetOneofDecl() {
		oneofs[i] = &Oneof{Name: od.GetName()}
		synthetic[i] = true
	}
	for _, fdp := range md.GetField() {
		if fdp.OneofIndex != nil && !fdp.GetProto3Optional() {
			synthetic[fdp.GetOneofIndex()] = false
		}
	}

	for _, fdp := range md.GetField() {
		f, err := fieldFromProto(fdp, entries)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", msg.Name, err)
		}
		msg.Fields = append(msg.Fields, f)
		if fdp.OneofIndex != nil && !synthetic[fdp.GetOneofIndex()] {
			o := oneofs[fdp.GetOneofIndex()]
			o.Fields = append(o.Fields, f)
		}
	}
	for i, o := range oneofs {
		if !synthetic[i] {
			msg.OneofGroups = append(msg.OneofGroups, o)
		}
	}

	for _, xd := range md.GetExtension() {
		f, err := fieldFromProto(xd, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", msg.Name, err)
		}
		msg.Extensions = append(msg.Extensions, f)
	}
	return msg, nil
}

func fieldFromProto(fdp *descriptorpb.FieldDescriptorProto, entries map[string]*descriptorpb.DescriptorProto) (*Field, error) {
	f := &Field{
		Name:           fdp.GetName(),
		Number:         fdp.GetNumber(),
		DefaultValue:   fdp.GetDefaultValue(),
		JsonName:       fdp.GetJsonName(),
		Proto3Optional: fdp.GetProto3Optional(),
		Extendee:       fdp.GetExtendee(),
	}
	switch fdp.GetLabel() {
	case descriptorpb.FieldDescriptorProto_LABEL_REPEATED:
		f.Label = LabelRepeated
	case descriptorpb.FieldDescriptorProto_LABEL_REQUIRED:
		f.Label = LabelRequired
	default:
		f.Label = LabelOptional
	}
	if fdp.GetOptions() != nil && fdp.GetOptions().Packed != nil {
		packed := fdp.GetOptions().GetPacked()
		f.Packed = &packed
	}

	typ, err := fieldTypeFromProto(fdp)
	if err != nil {
		return nil, err
	}
	f.Type = typ

	if typ.Kind == KindMessage && f.Label == LabelRepeated && entries != nil {
		name := typ.MessageType[strings.LastIndexByte(typ.MessageType, '.')+1:]
		if entry, ok := entries[name]; ok {
			var key, value FieldType
			for _, ef := range entry.GetField() {
				t, err := fieldTypeFromProto(ef)
				if err != nil {
					return nil, err
				}
				switch ef.GetNumber() {
				case 1:
					key = t
				case 2:
					value = t
				}
			}
			f.Type = FieldType{Kind: KindMap, MapKey: &key, MapValue: &value}
		}
	}
	return f, nil
}

func fieldTypeFromProto(fdp *descriptorpb.FieldDescriptorProto) (FieldType, error) {
	switch t := fdp.GetType(); t {
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE:
		return FieldType{Kind: KindMessage, MessageType: fdp.GetTypeName()}, nil
	case descriptorpb.FieldDescriptorProto_TYPE_GROUP:
		return FieldType{Kind: KindGroup, MessageType: fdp.GetTypeName()}, nil
	case descriptorpb.FieldDescriptorProto_TYPE_ENUM:
		return FieldType{Kind: KindEnum, EnumType: fdp.GetTypeName()}, nil
	default:
		p, ok := primitiveOf[t]
		if !ok {
			return FieldType{}, fmt.Errorf("field %s: unsupported type %v", fdp.GetName(), t)
		}
		return FieldType{Kind: KindPrimitive, PrimitiveType: p}, nil
	}
}

func enumFromProto(ed *descriptorpb.EnumDescriptorProto) *Enum {
	e := &Enum{Name: ed.GetName(), AllowAlias: ed.GetOptions().GetAllowAlias()}
	for _, v := range ed.GetValue() {
		e.Values = append(e.Values, &EnumValue{Name: v.GetName(), Number: v.GetNumber()})
	}
	return e
}
