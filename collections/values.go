// Package collections provides the list and map containers that hold
// repeated and map field values. Both start mutable and can be frozen,
// after which every mutator fails with ErrFrozen and the container may be
// shared between goroutines.
package collections

import (
	"bytes"
	"math"
	"reflect"
)

// Freezable is implemented by values that can be made read-only.
type Freezable interface {
	Freeze()
	IsFrozen() bool
}

// DeepCloneable is implemented by values whose Clone must be deep. The
// result is a mutable copy of the same dynamic type.
type DeepCloneable interface {
	DeepClone() any
}

// Equatable is implemented by values with their own notion of equality.
type Equatable interface {
	Equals(other any) bool
}

// ValuesEqual compares two element values. Byte slices compare by content,
// floats compare bitwise so NaN equals an identical NaN, and values that
// implement Equatable decide for themselves.
func ValuesEqual(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return isNil(b)
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	case float32:
		y, ok := b.(float32)
		return ok && math.Float32bits(x) == math.Float32bits(y)
	case float64:
		y, ok := b.(float64)
		return ok && math.Float64bits(x) == math.Float64bits(y)
	case Equatable:
		if isNil(a) {
			return isNil(b)
		}
		return x.Equals(b)
	}
	if isNil(b) {
		return false
	}
	if reflect.TypeOf(a).Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// CloneValue returns a copy of v that shares no mutable state with it.
// Frozen values are immutable and returned as is.
func CloneValue(v any) any {
	switch x := v.(type) {
	case []byte:
		if x == nil {
			return x
		}
		return bytes.Clone(x)
	case Freezable:
		if isNil(v) || x.IsFrozen() {
			return v
		}
	}
	if c, ok := v.(DeepCloneable); ok && !isNil(v) {
		return c.DeepClone()
	}
	return v
}

// ownBytes copies v when it holds a byte slice. Containers apply it on the
// way in and on the way out so no caller shares their backing arrays.
func ownBytes[T any](v T) T {
	if b, ok := any(v).([]byte); ok && b != nil {
		out, _ := any(bytes.Clone(b)).(T)
		return out
	}
	return v
}

// FreezeValue freezes v if it can be frozen.
func FreezeValue(v any) {
	if f, ok := v.(Freezable); ok && !isNil(v) {
		f.Freeze()
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
