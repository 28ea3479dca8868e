// Package value implements the typed Value variant and the variable store
// used throughout the test execution engine: every literal in a .chor file,
// every capture, and every substitution flows through this package.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBoolean
	KindDuration
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindDuration:
		return "duration"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is the tagged variant described in spec.md §3: String, Number
// (int64 for counts/status codes, float64 for decimals), Boolean, Duration
// (time.Duration, i.e. nanoseconds), List of Value, and Object (an ordered
// mapping from string to Value).
type Value struct {
	kind Kind

	str  string
	i64  int64
	f64  float64
	flt  bool // true when the Number carries f64 rather than i64
	b    bool
	dur  time.Duration
	list []Value
	obj  *Object
}

// Object is an ordered string-keyed mapping, preserving insertion order so
// that structural JSON comparison (spec.md §4.2) can normalise key order
// deterministically rather than relying on Go map iteration order.
type Object struct {
	keys   []string
	values map[string]Value
}

// NewObject returns an empty ordered object.
func NewObject() *Object {
	return &Object{values: make(map[string]Value)}
}

// Set inserts or overwrites a key, preserving first-insertion order.
func (o *Object) Set(key string, v Value) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Get looks up a key.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

// SortedKeys returns the keys sorted lexically, used when normalising for
// structural comparison (spec.md §4.2 "normalises object key order").
func (o *Object) SortedKeys() []string {
	keys := o.Keys()
	sort.Strings(keys)
	return keys
}

func (o *Object) Len() int { return len(o.keys) }

// Constructors.

func String(s string) Value { return Value{kind: KindString, str: s} }

func Int(n int64) Value { return Value{kind: KindNumber, i64: n} }

func Float(f float64) Value { return Value{kind: KindNumber, f64: f, flt: true} }

func Bool(b bool) Value { return Value{kind: KindBoolean, b: b} }

func Dur(d time.Duration) Value { return Value{kind: KindDuration, dur: d} }

func List(items []Value) Value { return Value{kind: KindList, list: items} }

func Obj(o *Object) Value { return Value{kind: KindObject, obj: o} }

// Kind reports which variant is held.
func (v Value) Kind() Kind { return v.kind }

// AsString renders the value for substitution (spec.md §3 "Substitution")
// and for display in failure reasons. Lists render as "[a,b]" from their
// items' string forms; objects render only as "<object:N fields>".
func (v Value) AsString() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		if v.flt {
			return strconv.FormatFloat(v.f64, 'g', -1, 64)
		}
		return strconv.FormatInt(v.i64, 10)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindDuration:
		return v.dur.String()
	case KindList:
		out := "["
		for i, item := range v.list {
			if i > 0 {
				out += ","
			}
			out += item.AsString()
		}
		return out + "]"
	case KindObject:
		return fmt.Sprintf("<object:%d fields>", v.obj.Len())
	default:
		return ""
	}
}

// AsNumber returns the numeric value (integer widened to float when needed)
// for comparisons, and whether the value is in fact numeric.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		if v.flt {
			return v.f64, true
		}
		return float64(v.i64), true
	case KindDuration:
		return float64(v.dur), true
	default:
		return 0, false
	}
}

// AsDuration returns the duration, widening a plain Number (assumed
// nanoseconds) if needed.
func (v Value) AsDuration() (time.Duration, bool) {
	switch v.kind {
	case KindDuration:
		return v.dur, true
	case KindNumber:
		if v.flt {
			return time.Duration(v.f64), true
		}
		return time.Duration(v.i64), true
	default:
		return 0, false
	}
}

// AsBool returns the boolean value.
func (v Value) AsBool() (bool, bool) {
	if v.kind == KindBoolean {
		return v.b, true
	}
	return false, false
}

// AsList returns the underlying slice.
func (v Value) AsList() ([]Value, bool) {
	if v.kind == KindList {
		return v.list, true
	}
	return nil, false
}

// AsObject returns the underlying ordered object.
func (v Value) AsObject() (*Object, bool) {
	if v.kind == KindObject {
		return v.obj, true
	}
	return nil, false
}

// Index returns the i-th element of a List value (0-based), reporting
// whether the index is in range. Out-of-range access is a substitution
// error per spec.md §3.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindList || i < 0 || i >= len(v.list) {
		return Value{}, false
	}
	return v.list[i], true
}

// Equal implements structural equality: Values compare equal when their
// kinds and contents match; numbers compare by numeric value regardless of
// int/float representation, and durations compare by nanosecond count.
func Equal(a, b Value) bool {
	an, aIsNum := a.AsNumber()
	bn, bIsNum := b.AsNumber()
	if aIsNum && bIsNum && a.kind != KindString && b.kind != KindString {
		return an == bn
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindString:
		return a.str == b.str
	case KindBoolean:
		return a.b == b.b
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if a.obj.Len() != b.obj.Len() {
			return false
		}
		for _, k := range a.obj.Keys() {
			av, _ := a.obj.Get(k)
			bv, ok := b.obj.Get(k)
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare orders two numeric-or-duration values; ok is false when neither
// side is comparable (spec.md §3: "comparison is defined for numbers and
// durations").
func Compare(a, b Value) (cmp int, ok bool) {
	an, aok := a.AsNumber()
	bn, bok := b.AsNumber()
	if !aok || !bok {
		return 0, false
	}
	switch {
	case an < bn:
		return -1, true
	case an > bn:
		return 1, true
	default:
		return 0, true
	}
}
