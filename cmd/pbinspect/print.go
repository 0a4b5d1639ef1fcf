package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/protocolbuffers/protoscope"

	"github.com/anirudhraja/protocore/accessor"
	"github.com/anirudhraja/protocore/descriptor"
	"github.com/anirudhraja/protocore/message"
	"github.com/anirudhraja/protocore/wkt"
)

// printMessage writes m in a text format close to protobuf's own: one
// field per line, sub-messages in braces, map entries as key/value pairs.
func printMessage(w io.Writer, m *message.Message, depth int) {
	indent := strings.Repeat("  ", depth)
	if note := wellKnownNote(m); note != "" {
		fmt.Fprintf(w, "%s# %s\n", indent, note)
	}
	m.Range(func(fd *descriptor.Field, v any) bool {
		name := fd.Name()
		if fd.IsExtension() {
			name = "[" + fd.FullName() + "]"
		}
		switch v := v.(type) {
		case *message.List:
			for _, e := range v.All() {
				printValue(w, indent, name, fd, e, depth)
			}
		case *message.Map:
			for k, e := range v.All() {
				fmt.Fprintf(w, "%s%s {\n", indent, name)
				printValue(w, indent+"  ", "key", fd.MapKey(), k, depth+1)
				printValue(w, indent+"  ", "value", fd.MapValue(), e, depth+1)
				fmt.Fprintf(w, "%s}\n", indent)
			}
		default:
			printValue(w, indent, name, fd, v, depth)
		}
		return true
	})
	if raw := m.UnknownFields(); len(raw) > 0 {
		fmt.Fprintf(w, "%s# unknown fields:\n", indent)
		for _, line := range strings.Split(strings.TrimRight(protoscope.Write(raw, protoscope.WriterOptions{}), "\n"), "\n") {
			fmt.Fprintf(w, "%s#   %s\n", indent, line)
		}
	}
}

func printValue(w io.Writer, indent, name string, fd *descriptor.Field, v any, depth int) {
	if sub, ok := v.(*message.Message); ok || (v == nil && fd.Kind().IsMessage()) {
		if sub == nil {
			fmt.Fprintf(w, "%s%s {}\n", indent, name)
			return
		}
		fmt.Fprintf(w, "%s%s {\n", indent, name)
		printMessage(w, sub, depth+1)
		fmt.Fprintf(w, "%s}\n", indent)
		return
	}
	fmt.Fprintf(w, "%s%s: %s\n", indent, name, formatScalar(fd, v))
}

func formatScalar(fd *descriptor.Field, v any) string {
	switch v := v.(type) {
	case string:
		return strconv.Quote(v)
	case []byte:
		return strconv.Quote(string(v))
	case descriptor.EnumNumber:
		if ev := fd.Enum().ValueByNumber(v); ev != nil {
			return ev.Name()
		}
		return strconv.Itoa(int(v))
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return fmt.Sprint(v)
}

// wellKnownNote renders timestamps, durations and field masks the way
// people read them.
func wellKnownNote(m *message.Message) string {
	switch m.Descriptor().FullName() {
	case wkt.TimestampFullName:
		ts, err := wkt.TimestampFromMessage(m)
		if err != nil {
			return ""
		}
		t, err := ts.AsTime()
		if err != nil {
			return "invalid timestamp: " + err.Error()
		}
		return t.Format(time.RFC3339Nano)
	case wkt.DurationFullName:
		d, err := wkt.DurationFromMessage(m)
		if err != nil {
			return ""
		}
		td, err := d.AsDuration()
		if err != nil {
			return "duration out of range: " + err.Error()
		}
		return td.String()
	case wkt.FieldMaskFullName:
		fm, err := wkt.FieldMaskFromMessage(m)
		if err != nil {
			return ""
		}
		return fm.DiagnosticString()
	}
	return ""
}

func printAccessors(w io.Writer, table *accessor.Table) {
	for _, acc := range table.Accessors() {
		fd := acc.Field()
		typ := typeName(fd)
		if fd.IsMap() {
			typ = fmt.Sprintf("map<%s, %s>", typeName(fd.MapKey()), typeName(fd.MapValue()))
		}
		oneof := ""
		if od := fd.ContainingOneof(); od != nil {
			oneof = " oneof=" + od.Name()
		}
		fmt.Fprintf(w, "%4d %-24s %-32s %s%s\n", fd.Number(), fd.Name(), typ, acc.Variant(), oneof)
	}
}

func typeName(fd *descriptor.Field) string {
	switch {
	case fd.Enum() != nil:
		return fd.Enum().FullName()
	case fd.Message() != nil:
		return fd.Message().FullName()
	}
	return fd.Kind().String()
}
