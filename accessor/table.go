package accessor

import (
	"fmt"

	"github.com/anirudhraja/protocore/descriptor"
	"github.com/anirudhraja/protocore/message"
	"github.com/anirudhraja/protocore/wire"
)

// Table holds one Accessor per field of a message type, indexed by field
// declaration index. A Table is immutable and safe for concurrent use.
type Table struct {
	desc      *descriptor.Message
	accessors []Accessor
	oneofs    []*OneofAccessor
}

// Build creates the accessor table of desc. Build is relatively costly;
// callers that need a table repeatedly should cache it, as the registry does.
func Build(desc *descriptor.Message) *Table {
	t := &Table{
		desc:      desc,
		accessors: make([]Accessor, len(desc.Fields())),
		oneofs:    make([]*OneofAccessor, len(desc.Oneofs())),
	}
	for i, fd := range desc.Fields() {
		t.accessors[i] = newAccessor(fd)
	}
	for i, od := range desc.Oneofs() {
		t.oneofs[i] = &OneofAccessor{table: t, oneof: od}
	}
	return t
}

// Descriptor returns the message type the table serves.
func (t *Table) Descriptor() *descriptor.Message { return t.desc }

// Accessors returns the accessors in field declaration order.
func (t *Table) Accessors() []Accessor { return t.accessors }

// For returns the accessor of fd. It fails with ErrExtensionField for
// extensions and ErrForeignField for fields of other message types.
func (t *Table) For(fd *descriptor.Field) (Accessor, error) {
	switch {
	case fd == nil:
		return nil, fmt.Errorf("%w: nil field", ErrForeignField)
	case fd.IsExtension():
		return nil, fmt.Errorf("%w: %s", ErrExtensionField, fd.FullName())
	case fd.ContainingMessage() != t.desc:
		return nil, fmt.Errorf("%w: %s is not a field of %s", ErrForeignField, fd.FullName(), t.desc.FullName())
	}
	return t.accessors[fd.Index()], nil
}

// ByIndex returns the accessor of the i'th declared field, or nil.
func (t *Table) ByIndex(i int) Accessor {
	if i < 0 || i >= len(t.accessors) {
		return nil
	}
	return t.accessors[i]
}

// ByNumber returns the accessor of the field numbered n, or nil.
func (t *Table) ByNumber(n wire.FieldNumber) Accessor {
	fd := t.desc.FieldByNumber(n)
	if fd == nil {
		return nil
	}
	return t.accessors[fd.Index()]
}

// Oneof returns the accessor of oneof od.
func (t *Table) Oneof(od *descriptor.Oneof) (*OneofAccessor, error) {
	if od == nil || od.ContainingMessage() != t.desc {
		return nil, fmt.Errorf("%w: oneof is not part of %s", ErrForeignField, t.desc.FullName())
	}
	return t.oneofs[od.Index()], nil
}

// OneofAccessor reports and clears the set member of a oneof.
type OneofAccessor struct {
	table *Table
	oneof *descriptor.Oneof
}

// Descriptor returns the oneof.
func (o *OneofAccessor) Descriptor() *descriptor.Oneof { return o.oneof }

// Case returns the accessor of the member that is set, or nil if none is.
func (o *OneofAccessor) Case(m *message.Message) (Accessor, error) {
	if err := o.check(m); err != nil {
		return nil, err
	}
	fd := m.WhichOneof(o.oneof)
	if fd == nil {
		return nil, nil
	}
	return o.table.accessors[fd.Index()], nil
}

// Clear unsets whichever member is set.
func (o *OneofAccessor) Clear(m *message.Message) error {
	if err := o.check(m); err != nil {
		return err
	}
	return m.ClearOneof(o.oneof)
}

func (o *OneofAccessor) check(m *message.Message) error {
	if m == nil || m.Descriptor() != o.table.desc {
		return fmt.Errorf("%w: message is not a %s", ErrForeignField, o.table.desc.FullName())
	}
	return nil
}
