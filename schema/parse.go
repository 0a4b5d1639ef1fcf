package schema

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	protoparser "github.com/yoheimuta/go-protoparser/v4"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"
)

// ParseProto parses .proto source into a ProtoFile. name is recorded as the
// file name and used in error messages.
func ParseProto(name string, r io.Reader) (*ProtoFile, error) {
	parsed, err := protoparser.Parse(r, protoparser.WithFilename(name))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return FromParsedProto(name, parsed)
}

// FromParsedProto converts a go-protoparser syntax tree into a ProtoFile.
func FromParsedProto(name string, parsed *protoparserparser.Proto) (*ProtoFile, error) {
	pf := &ProtoFile{
		Name:   name,
		Syntax: SyntaxProto2,
	}
	if parsed.Syntax != nil && parsed.Syntax.ProtobufVersion != "" {
		pf.Syntax = strings.Trim(parsed.Syntax.ProtobufVersion, `"'`)
	}

	c := &converter{file: pf}
	for _, body := range parsed.ProtoBody {
		switch b := body.(type) {
		case *protoparserparser.Package:
			pf.Package = b.Name
		case *protoparserparser.Import:
			pf.Imports = append(pf.Imports, &Import{
				Path:   strings.Trim(b.Location, `"`),
				Public: b.Modifier == protoparserparser.ImportModifierPublic,
				Weak:   b.Modifier == protoparserparser.ImportModifierWeak,
			})
		case *protoparserparser.Message:
			m, err := c.message(b.MessageName, b.MessageBody)
			if err != nil {
				return nil, err
			}
			pf.Messages = append(pf.Messages, m)
		case *protoparserparser.Enum:
			e, err := c.enum(b)
			if err != nil {
				return nil, err
			}
			pf.Enums = append(pf.Enums, e)
		case *protoparserparser.Extend:
			exts, groups, err := c.extend(b)
			if err != nil {
				return nil, err
			}
			pf.Extensions = append(pf.Extensions, exts...)
			pf.Messages = append(pf.Messages, groups...)
		case *protoparserparser.Service:
			pf.Services = append(pf.Services, c.service(b))
		}
	}
	return pf, nil
}

type converter struct {
	file *ProtoFile
}

func (c *converter) proto3() bool {
	return c.file.Syntax == SyntaxProto3
}

func (c *converter) message(name string, body []protoparserparser.Visitee) (*Message, error) {
	msg := &Message{Name: name}

	for _, item := range body {
		switch b := item.(type) {
		case *protoparserparser.Field:
			f, err := c.field(b.FieldName, b.FieldNumber, b.Type, b.FieldOptions)
			if err != nil {
				return nil, fmt.Errorf("message %s: %w", name, err)
			}
			switch {
			case b.IsRepeated:
				f.Label = LabelRepeated
			case b.IsRequired:
				f.Label = LabelRequired
			case b.IsOptional && c.proto3():
				f.Proto3Optional = true
			}
			msg.Fields = append(msg.Fields, f)

		case *protoparserparser.MapField:
			f, err := c.field(b.MapName, b.FieldNumber, b.Type, b.FieldOptions)
			if err != nil {
				return nil, fmt.Errorf("message %s: %w", name, err)
			}
			value := f.Type
			key := typeOf(b.KeyType)
			f.Label = LabelRepeated
			f.Type = FieldType{Kind: KindMap, MapKey: &key, MapValue: &value}
			msg.Fields = append(msg.Fields, f)

		case *protoparserparser.Oneof:
			oneof := &Oneof{Name: b.OneofName}
			for _, of := range b.OneofFields {
				f, err := c.field(of.FieldName, of.FieldNumber, of.Type, of.FieldOptions)
				if err != nil {
					return nil, fmt.Errorf("message %s: oneof %s: %w", name, b.OneofName, err)
				}
				oneof.Fields = append(oneof.Fields, f)
				msg.Fields = append(msg.Fields, f)
			}
			msg.OneofGroups = append(msg.OneofGroups, oneof)

		case *protoparserparser.GroupField:
			f, nested, err := c.group(b)
			if err != nil {
				return nil, fmt.Errorf("message %s: %w", name, err)
			}
			msg.Fields = append(msg.Fields, f)
			msg.NestedTypes = append(msg.NestedTypes, nested)

		case *protoparserparser.Message:
			nested, err := c.message(b.MessageName, b.MessageBody)
			if err != nil {
				return nil, err
			}
			msg.NestedTypes = append(msg.NestedTypes, nested)

		case *protoparserparser.Enum:
			e, err := c.enum(b)
			if err != nil {
				return nil, err
			}
			msg.NestedEnums = append(msg.NestedEnums, e)

		case *protoparserparser.Extend:
			exts, groups, err := c.extend(b)
			if err != nil {
				return nil, err
			}
			msg.Extensions = append(msg.Extensions, exts...)
			msg.NestedTypes = append(msg.NestedTypes, groups...)
		}
	}
	return msg, nil
}

func (c *converter) field(name, number, typ string, options []*protoparserparser.FieldOption) (*Field, error) {
	num, err := strconv.ParseInt(number, 0, 32)
	if err != nil {
		return nil, fmt.Errorf("field %s: invalid number %q", name, number)
	}
	f := &Field{
		Name:   name,
		Number: int32(num),
		Label:  LabelOptional,
		Type:   typeOf(typ),
	}
	for _, opt := range options {
		switch opt.OptionName {
		case "packed":
			packed := opt.Constant == "true"
			f.Packed = &packed
		case "default":
			f.DefaultValue = unquote(opt.Constant)
		case "json_name":
			f.JsonName = unquote(opt.Constant)
		}
	}
	return f, nil
}

func (c *converter) group(g *protoparserparser.GroupField) (*Field, *Message, error) {
	nested, err := c.message(g.GroupName, g.MessageBody)
	if err != nil {
		return nil, nil, err
	}
	num, err := strconv.ParseInt(g.FieldNumber, 0, 32)
	if err != nil {
		return nil, nil, fmt.Errorf("group %s: invalid number %q", g.GroupName, g.FieldNumber)
	}
	f := &Field{
		Name:   strings.ToLower(g.GroupName),
		Number: int32(num),
		Label:  LabelOptional,
		Type:   FieldType{Kind: KindGroup, MessageType: g.GroupName},
	}
	switch {
	case g.IsRepeated:
		f.Label = LabelRepeated
	case g.IsRequired:
		f.Label = LabelRequired
	}
	return f, nested, nil
}

func (c *converter) extend(e *protoparserparser.Extend) ([]*Field, []*Message, error) {
	var (
		fields []*Field
		groups []*Message
	)
	for _, item := range e.ExtendBody {
		switch b := item.(type) {
		case *protoparserparser.Field:
			f, err := c.field(b.FieldName, b.FieldNumber, b.Type, b.FieldOptions)
			if err != nil {
				return nil, nil, fmt.Errorf("extend %s: %w", e.MessageType, err)
			}
			if b.IsRepeated {
				f.Label = LabelRepeated
			}
			f.Extendee = e.MessageType
			fields = append(fields, f)
		case *protoparserparser.GroupField:
			f, nested, err := c.group(b)
			if err != nil {
				return nil, nil, fmt.Errorf("extend %s: %w", e.MessageType, err)
			}
			f.Extendee = e.MessageType
			fields = append(fields, f)
			groups = append(groups, nested)
		}
	}
	return fields, groups, nil
}

func (c *converter) enum(e *protoparserparser.Enum) (*Enum, error) {
	out := &Enum{Name: e.EnumName}
	for _, item := range e.EnumBody {
		switch b := item.(type) {
		case *protoparserparser.EnumField:
			num, err := strconv.ParseInt(b.Number, 0, 32)
			if err != nil {
				return nil, fmt.Errorf("enum %s: value %s: invalid number %q", e.EnumName, b.Ident, b.Number)
			}
			out.Values = append(out.Values, &EnumValue{Name: b.Ident, Number: int32(num)})
		case *protoparserparser.Option:
			if b.OptionName == "allow_alias" {
				out.AllowAlias = b.Constant == "true"
			}
		}
	}
	return out, nil
}

func (c *converter) service(s *protoparserparser.Service) *Service {
	out := &Service{Name: s.ServiceName}
	for _, item := range s.ServiceBody {
		rpc, ok := item.(*protoparserparser.RPC)
		if !ok {
			continue
		}
		m := &Method{Name: rpc.RPCName}
		if rpc.RPCRequest != nil {
			m.InputType = rpc.RPCRequest.MessageType
			m.ClientStreaming = rpc.RPCRequest.IsStream
		}
		if rpc.RPCResponse != nil {
			m.OutputType = rpc.RPCResponse.MessageType
			m.ServerStreaming = rpc.RPCResponse.IsStream
		}
		out.Methods = append(out.Methods, m)
	}
	return out
}

// typeOf classifies a type reference. Anything that is not a scalar keyword
// is recorded as a message reference; the descriptor builder re-classifies
// references that resolve to enums.
func typeOf(name string) FieldType {
	if IsPrimitive(name) {
		return FieldType{Kind: KindPrimitive, PrimitiveType: PrimitiveType(name)}
	}
	return FieldType{Kind: KindMessage, MessageType: name}
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		if u, err := strconv.Unquote(`"` + s[1:len(s)-1] + `"`); err == nil {
			return u
		}
		return s[1 : len(s)-1]
	}
	return s
}
