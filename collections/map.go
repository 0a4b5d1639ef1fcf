package collections

import (
	"container/list"
	"fmt"
	"iter"

	"github.com/anirudhraja/protocore/wire"
)

// MapCodec describes how a map field is encoded: each entry is a nested
// message with the key as field 1 and the value as field 2.
type MapCodec[K comparable, V any] struct {
	number       wire.FieldNumber
	key          *wire.FieldCodec[K]
	value        *wire.FieldCodec[V]
	valueDefault func() V
}

// NewMapCodec returns the codec for map field number. The key codec must
// use field number 1 and the value codec field number 2.
func NewMapCodec[K comparable, V any](number wire.FieldNumber, key *wire.FieldCodec[K], value *wire.FieldCodec[V]) *MapCodec[K, V] {
	return &MapCodec[K, V]{number: number, key: key, value: value}
}

// WithValueDefault returns a copy of the codec whose entries start from
// fn() instead of the value codec's default. Message-valued maps use it so
// that an entry without a value decodes to an empty message.
func (c *MapCodec[K, V]) WithValueDefault(fn func() V) *MapCodec[K, V] {
	out := *c
	out.valueDefault = fn
	return &out
}

// FieldNumber returns the map field's number.
func (c *MapCodec[K, V]) FieldNumber() wire.FieldNumber { return c.number }

// Tag returns the tag written before every entry.
func (c *MapCodec[K, V]) Tag() wire.Tag { return wire.MakeTag(c.number, wire.WireBytes) }

// Key returns the key codec.
func (c *MapCodec[K, V]) Key() *wire.FieldCodec[K] { return c.key }

// Value returns the value codec.
func (c *MapCodec[K, V]) Value() *wire.FieldCodec[V] { return c.value }

func (c *MapCodec[K, V]) defaultValue() V {
	if c.valueDefault != nil {
		return c.valueDefault()
	}
	return c.value.Default()
}

type mapEntry[K comparable, V any] struct {
	key   K
	value V
}

// MapField is a map field value. Iteration follows insertion order;
// replacing the value of an existing key keeps its position.
type MapField[K comparable, V any] struct {
	entries        *list.List
	index          map[K]*list.Element
	allowNilValues bool
	frozen         bool
}

// NewMapField returns an empty map that rejects nil values.
func NewMapField[K comparable, V any]() *MapField[K, V] {
	return &MapField[K, V]{entries: list.New(), index: make(map[K]*list.Element)}
}

// NewMessageMapField returns an empty map for message values. It accepts
// an explicit nil value, which is kept distinct from an absent key.
func NewMessageMapField[K comparable, V any]() *MapField[K, V] {
	m := NewMapField[K, V]()
	m.allowNilValues = true
	return m
}

// AllowsNilValues reports whether the map was built with NewMessageMapField.
func (m *MapField[K, V]) AllowsNilValues() bool { return m.allowNilValues }

// Len returns the number of entries.
func (m *MapField[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.index)
}

// Get returns the value stored under key, or the zero value.
func (m *MapField[K, V]) Get(key K) V {
	v, _ := m.Lookup(key)
	return v
}

// Lookup returns the value stored under key and whether the key is present.
func (m *MapField[K, V]) Lookup(key K) (V, bool) {
	if m != nil {
		if el, ok := m.index[key]; ok {
			return ownBytes(el.Value.(*mapEntry[K, V]).value), true
		}
	}
	var zero V
	return zero, false
}

// ContainsKey reports whether key is present.
func (m *MapField[K, V]) ContainsKey(key K) bool {
	_, ok := m.Lookup(key)
	return ok
}

// Set stores value under key, replacing any existing value.
func (m *MapField[K, V]) Set(key K, value V) error {
	if err := m.check(key, value); err != nil {
		return err
	}
	value = ownBytes(value)
	if el, ok := m.index[key]; ok {
		el.Value.(*mapEntry[K, V]).value = value
		return nil
	}
	m.index[key] = m.entries.PushBack(&mapEntry[K, V]{key: key, value: value})
	return nil
}

// Add stores value under key. It fails if the key is already present.
func (m *MapField[K, V]) Add(key K, value V) error {
	if err := m.check(key, value); err != nil {
		return err
	}
	if _, ok := m.index[key]; ok {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, key)
	}
	m.index[key] = m.entries.PushBack(&mapEntry[K, V]{key: key, value: ownBytes(value)})
	return nil
}

func (m *MapField[K, V]) check(key K, value V) error {
	if m.frozen {
		return ErrFrozen
	}
	if isNil(key) {
		return ErrNilKey
	}
	if !m.allowNilValues && isNil(value) {
		return ErrNilValue
	}
	return nil
}

// Remove deletes key and reports whether it was present.
func (m *MapField[K, V]) Remove(key K) (bool, error) {
	if m.frozen {
		return false, ErrFrozen
	}
	el, ok := m.index[key]
	if !ok {
		return false, nil
	}
	m.entries.Remove(el)
	delete(m.index, key)
	return true, nil
}

// Clear removes every entry.
func (m *MapField[K, V]) Clear() error {
	if m.frozen {
		return ErrFrozen
	}
	m.entries.Init()
	clear(m.index)
	return nil
}

// All iterates over the entries in insertion order.
func (m *MapField[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if m == nil {
			return
		}
		for el := m.entries.Front(); el != nil; el = el.Next() {
			e := el.Value.(*mapEntry[K, V])
			if !yield(e.key, ownBytes(e.value)) {
				return
			}
		}
	}
}

// Keys returns the keys in insertion order.
func (m *MapField[K, V]) Keys() []K {
	out := make([]K, 0, m.Len())
	for k := range m.All() {
		out = append(out, k)
	}
	return out
}

// Values returns the values in insertion order.
func (m *MapField[K, V]) Values() []V {
	out := make([]V, 0, m.Len())
	for _, v := range m.All() {
		out = append(out, v)
	}
	return out
}

// MergeFrom copies every entry of other into m, overwriting values of
// keys present in both. Values are cloned.
func (m *MapField[K, V]) MergeFrom(other *MapField[K, V]) error {
	if m.frozen {
		return ErrFrozen
	}
	for k, v := range other.All() {
		c, _ := CloneValue(v).(V)
		if err := m.Set(k, c); err != nil {
			return err
		}
	}
	return nil
}

// Equal reports whether both maps hold the same keys with equal values.
// Order is ignored.
func (m *MapField[K, V]) Equal(other *MapField[K, V]) bool {
	if m.Len() != other.Len() {
		return false
	}
	for k, v := range m.All() {
		ov, ok := other.Lookup(k)
		if !ok || !ValuesEqual(v, ov) {
			return false
		}
	}
	return true
}

// Equals implements Equatable.
func (m *MapField[K, V]) Equals(other any) bool {
	o, ok := other.(*MapField[K, V])
	return ok && m.Equal(o)
}

// Clone returns a mutable deep copy in the same order.
func (m *MapField[K, V]) Clone() *MapField[K, V] {
	out := NewMapField[K, V]()
	out.allowNilValues = m.allowNilValues
	for k, v := range m.All() {
		c, _ := CloneValue(v).(V)
		out.index[k] = out.entries.PushBack(&mapEntry[K, V]{key: k, value: c})
	}
	return out
}

// DeepClone implements DeepCloneable.
func (m *MapField[K, V]) DeepClone() any { return m.Clone() }

// Freeze makes the map and every value read-only.
func (m *MapField[K, V]) Freeze() {
	if m.frozen {
		return
	}
	m.frozen = true
	for _, v := range m.All() {
		FreezeValue(v)
	}
}

// IsFrozen reports whether Freeze has been called.
func (m *MapField[K, V]) IsFrozen() bool { return m.frozen }

// AddEntriesFrom reads one or more consecutive entries. The first entry's
// tag must already have been read. Missing keys and values take their
// defaults; a repeated key keeps the last value.
func (m *MapField[K, V]) AddEntriesFrom(d *wire.Decoder, codec *MapCodec[K, V]) error {
	if m.frozen {
		return ErrFrozen
	}
	for {
		if err := m.readEntry(d, codec); err != nil {
			return err
		}
		if !d.MaybeConsumeTag(codec.Tag()) {
			return nil
		}
	}
}

func (m *MapField[K, V]) readEntry(d *wire.Decoder, codec *MapCodec[K, V]) error {
	sub, err := d.NestedDecoder()
	if err != nil {
		return err
	}
	key := codec.key.Default()
	var value V
	haveValue := false
	keyTag, valueTag := codec.key.ElementTag(), codec.value.ElementTag()
	for !sub.EOF() {
		num, wt, err := sub.ReadTag()
		if err != nil {
			return err
		}
		switch wire.MakeTag(num, wt) {
		case keyTag:
			if key, err = codec.key.Read(sub); err != nil {
				return err
			}
		case valueTag:
			if value, err = codec.value.Read(sub); err != nil {
				return err
			}
			haveValue = true
		default:
			if err := sub.SkipField(num, wt); err != nil {
				return err
			}
		}
	}
	if !haveValue {
		value = codec.defaultValue()
	}
	if el, ok := m.index[key]; ok {
		el.Value.(*mapEntry[K, V]).value = value
		return nil
	}
	m.index[key] = m.entries.PushBack(&mapEntry[K, V]{key: key, value: value})
	return nil
}

// WriteTo encodes every entry in insertion order. A nil message value is
// written as an entry with only a key.
func (m *MapField[K, V]) WriteTo(e *wire.Encoder, codec *MapCodec[K, V]) {
	for k, v := range m.All() {
		e.WriteTag(codec.number, wire.WireBytes)
		e.WriteLength(entrySize(codec, k, v))
		codec.key.WriteTagged(e, k)
		if !isNil(v) {
			codec.value.WriteTagged(e, v)
		}
	}
}

// CalculateSize returns the number of bytes WriteTo would produce.
func (m *MapField[K, V]) CalculateSize(codec *MapCodec[K, V]) int {
	n := 0
	for k, v := range m.All() {
		n += wire.TagSize(codec.number) + wire.LengthDelimitedSize(entrySize(codec, k, v))
	}
	return n
}

func entrySize[K comparable, V any](codec *MapCodec[K, V], k K, v V) int {
	n := codec.key.TaggedSize(k)
	if !isNil(v) {
		n += codec.value.TaggedSize(v)
	}
	return n
}
