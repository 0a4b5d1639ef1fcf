package collections

import (
	"fmt"
	"iter"

	"github.com/anirudhraja/protocore/wire"
)

// Packing records how the elements of a repeated field arrived on the wire.
type Packing uint8

const (
	PackingUnknown Packing = iota
	PackingPacked
	PackingUnpacked
	PackingMixed
)

func (p Packing) String() string {
	switch p {
	case PackingPacked:
		return "packed"
	case PackingUnpacked:
		return "unpacked"
	case PackingMixed:
		return "mixed"
	}
	return "unknown"
}

func (p Packing) merge(q Packing) Packing {
	switch {
	case p == PackingUnknown:
		return q
	case p == q:
		return p
	}
	return PackingMixed
}

// RepeatedField is an ordered list of field values.
type RepeatedField[T any] struct {
	items    []T
	frozen   bool
	observed Packing
}

// NewRepeatedField returns a mutable list holding items. Items are not
// checked; use AddAll when they come from untrusted code.
func NewRepeatedField[T any](items ...T) *RepeatedField[T] {
	r := &RepeatedField[T]{items: make([]T, 0, len(items))}
	for _, v := range items {
		r.items = append(r.items, ownBytes(v))
	}
	return r
}

// Len returns the number of elements.
func (r *RepeatedField[T]) Len() int {
	if r == nil {
		return 0
	}
	return len(r.items)
}

// Get returns the i'th element. It panics if i is out of range, like a
// slice index.
func (r *RepeatedField[T]) Get(i int) T { return ownBytes(r.items[i]) }

// Set replaces the i'th element.
func (r *RepeatedField[T]) Set(i int, v T) error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	if i < 0 || i >= len(r.items) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(r.items))
	}
	if isNil(v) {
		return ErrNilValue
	}
	r.items[i] = ownBytes(v)
	return nil
}

// Add appends v.
func (r *RepeatedField[T]) Add(v T) error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	if isNil(v) {
		return ErrNilValue
	}
	r.items = append(r.items, ownBytes(v))
	return nil
}

// AddAll appends every value, or none of them if any is nil.
func (r *RepeatedField[T]) AddAll(values ...T) error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	for _, v := range values {
		if isNil(v) {
			return ErrNilValue
		}
	}
	for _, v := range values {
		r.items = append(r.items, ownBytes(v))
	}
	return nil
}

// Insert places v at index i, shifting later elements up. i may equal Len.
func (r *RepeatedField[T]) Insert(i int, v T) error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	if i < 0 || i > len(r.items) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(r.items))
	}
	if isNil(v) {
		return ErrNilValue
	}
	var zero T
	r.items = append(r.items, zero)
	copy(r.items[i+1:], r.items[i:])
	r.items[i] = ownBytes(v)
	return nil
}

// Remove deletes the first element equal to v and reports whether one was
// found.
func (r *RepeatedField[T]) Remove(v T) (bool, error) {
	if err := r.checkMutable(); err != nil {
		return false, err
	}
	i := r.IndexOf(v)
	if i < 0 {
		return false, nil
	}
	r.items = append(r.items[:i], r.items[i+1:]...)
	return true, nil
}

// RemoveAt deletes the i'th element.
func (r *RepeatedField[T]) RemoveAt(i int) error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	if i < 0 || i >= len(r.items) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(r.items))
	}
	r.items = append(r.items[:i], r.items[i+1:]...)
	return nil
}

// IndexOf returns the index of the first element equal to v, or -1.
func (r *RepeatedField[T]) IndexOf(v T) int {
	for i, item := range r.items {
		if ValuesEqual(item, v) {
			return i
		}
	}
	return -1
}

// Contains reports whether an element equal to v is present.
func (r *RepeatedField[T]) Contains(v T) bool { return r.IndexOf(v) >= 0 }

// Clear removes every element.
func (r *RepeatedField[T]) Clear() error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	clear(r.items)
	r.items = r.items[:0]
	r.observed = PackingUnknown
	return nil
}

// All iterates over the elements with their indexes.
func (r *RepeatedField[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		if r == nil {
			return
		}
		for i, v := range r.items {
			if !yield(i, ownBytes(v)) {
				return
			}
		}
	}
}

// Slice returns a shallow copy of the elements. Byte slices are copied.
func (r *RepeatedField[T]) Slice() []T {
	if r == nil {
		return nil
	}
	out := make([]T, len(r.items))
	for i, v := range r.items {
		out[i] = ownBytes(v)
	}
	return out
}

// Equal reports whether both lists hold equal elements in the same order.
func (r *RepeatedField[T]) Equal(other *RepeatedField[T]) bool {
	if r.Len() != other.Len() {
		return false
	}
	for i := 0; i < r.Len(); i++ {
		if !ValuesEqual(r.items[i], other.items[i]) {
			return false
		}
	}
	return true
}

// Equals implements Equatable.
func (r *RepeatedField[T]) Equals(other any) bool {
	o, ok := other.(*RepeatedField[T])
	return ok && r.Equal(o)
}

// Clone returns a mutable deep copy. Message elements are cloned; frozen
// elements are shared.
func (r *RepeatedField[T]) Clone() *RepeatedField[T] {
	out := &RepeatedField[T]{items: make([]T, len(r.items)), observed: r.observed}
	for i, v := range r.items {
		out.items[i], _ = CloneValue(v).(T)
	}
	return out
}

// DeepClone implements DeepCloneable.
func (r *RepeatedField[T]) DeepClone() any { return r.Clone() }

// Freeze makes the list and every element read-only.
func (r *RepeatedField[T]) Freeze() {
	if r.frozen {
		return
	}
	r.frozen = true
	for _, v := range r.items {
		FreezeValue(v)
	}
}

// IsFrozen reports whether Freeze has been called.
func (r *RepeatedField[T]) IsFrozen() bool { return r.frozen }

// ObservedPacking reports how elements read by AddEntriesFrom were encoded.
func (r *RepeatedField[T]) ObservedPacking() Packing { return r.observed }

func (r *RepeatedField[T]) checkMutable() error {
	if r.frozen {
		return ErrFrozen
	}
	return nil
}

// AddEntriesFrom appends the elements of one field occurrence. The field's
// tag must already have been read. A length-delimited tag on a packable
// codec is a packed run; otherwise elements are read for as long as the
// same tag repeats. Both forms are accepted regardless of how the codec
// itself writes.
func (r *RepeatedField[T]) AddEntriesFrom(d *wire.Decoder, codec *wire.FieldCodec[T]) error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	tag := d.LastTag()
	if tag.WireType() == wire.WireBytes && codec.Packable() {
		sub, err := d.SubDecoder()
		if err != nil {
			return err
		}
		for !sub.EOF() {
			v, err := codec.Read(sub)
			if err != nil {
				return err
			}
			r.items = append(r.items, v)
		}
		r.observed = r.observed.merge(PackingPacked)
		return nil
	}
	for {
		v, err := codec.Read(d)
		if err != nil {
			return err
		}
		r.items = append(r.items, v)
		if !d.MaybeConsumeTag(tag) {
			break
		}
	}
	if codec.Packable() {
		r.observed = r.observed.merge(PackingUnpacked)
	}
	return nil
}

// WriteTo encodes the elements in the form the codec is configured for.
// Nothing is written for an empty list.
func (r *RepeatedField[T]) WriteTo(e *wire.Encoder, codec *wire.FieldCodec[T]) {
	r.writeTo(e, codec, codec.Packed())
}

// WriteToPreserving encodes the elements packed or unpacked the way they
// were read, falling back to the codec's configuration when the list was
// built in memory or arrived in both forms.
func (r *RepeatedField[T]) WriteToPreserving(e *wire.Encoder, codec *wire.FieldCodec[T]) {
	r.writeTo(e, codec, r.preservedPacking(codec))
}

func (r *RepeatedField[T]) preservedPacking(codec *wire.FieldCodec[T]) bool {
	switch r.observed {
	case PackingPacked:
		return codec.Packable()
	case PackingUnpacked:
		return false
	}
	return codec.Packed()
}

func (r *RepeatedField[T]) writeTo(e *wire.Encoder, codec *wire.FieldCodec[T], packed bool) {
	if r.Len() == 0 {
		return
	}
	if packed {
		e.WriteTag(codec.FieldNumber(), wire.WireBytes)
		e.WriteLength(r.dataSize(codec))
		for _, v := range r.items {
			codec.Write(e, v)
		}
		return
	}
	for _, v := range r.items {
		codec.WriteTagged(e, v)
	}
}

// CalculateSize returns the number of bytes WriteTo would produce.
func (r *RepeatedField[T]) CalculateSize(codec *wire.FieldCodec[T]) int {
	return r.calculateSize(codec, codec.Packed())
}

// CalculateSizePreserving returns the number of bytes WriteToPreserving
// would produce.
func (r *RepeatedField[T]) CalculateSizePreserving(codec *wire.FieldCodec[T]) int {
	return r.calculateSize(codec, r.preservedPacking(codec))
}

func (r *RepeatedField[T]) calculateSize(codec *wire.FieldCodec[T], packed bool) int {
	if r.Len() == 0 {
		return 0
	}
	if packed {
		return wire.TagSize(codec.FieldNumber()) + wire.LengthDelimitedSize(r.dataSize(codec))
	}
	n := 0
	for _, v := range r.items {
		n += codec.TaggedSize(v)
	}
	return n
}

func (r *RepeatedField[T]) dataSize(codec *wire.FieldCodec[T]) int {
	if fs := codec.FixedSize(); fs > 0 {
		return fs * len(r.items)
	}
	n := 0
	for _, v := range r.items {
		n += codec.ValueSize(v)
	}
	return n
}
