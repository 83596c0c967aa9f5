package facts

import (
	"strconv"
	"strings"
)

// Kind identifies the shape of a Value.
type Kind uint8

const (
	// KindNull is an absent or explicitly null value.
	KindNull Kind = iota
	// KindBool is a boolean answer.
	KindBool
	// KindString is a free-text or enum answer.
	KindString
	// KindNumber is a numeric scalar. Question types never produce numbers but
	// hand-edited documents may carry them.
	KindNumber
	// KindList is a set answer: an ordered sequence of scalars, usually
	// strings.
	KindList
	// KindMap is a nested namespace of named values.
	KindMap
)

// String returns the kind name used in validation messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is an immutable node of a facts tree.
//
// Maps remember the order keys were first written so that documents round-trip
// in authored order. A Value must not be modified after construction; every
// editing helper returns a new tree and shares untouched subtrees.
type Value struct {
	kind Kind
	b    bool
	s    string
	n    float64
	list []Value
	keys []string
	m    map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// List returns a list of string items. A nil slice yields an empty list,
// which is an answer, not an absence.
func List(items ...string) Value {
	out := make([]Value, len(items))
	for i, item := range items {
		out[i] = String(item)
	}
	return Value{kind: KindList, list: out}
}

// ListOf returns a list of the scalar items, keeping their kinds. Null and
// collection items are dropped because set answers are flat.
func ListOf(items ...Value) Value {
	out := make([]Value, 0, len(items))
	for _, item := range items {
		switch item.kind {
		case KindBool, KindString, KindNumber:
			out = append(out, item)
		}
	}
	return Value{kind: KindList, list: out}
}

// EmptyMap returns a map value with no keys.
func EmptyMap() Value {
	return Value{kind: KindMap, m: map[string]Value{}}
}

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is absent or null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean and whether the value is a bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsString returns the string and whether the value is a string.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsNumber returns the number and whether the value is a number.
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

// AsList returns the textual form of each list item and whether the value is
// a list.
func (v Value) AsList() ([]string, bool) {
	if v.kind != KindList {
		return nil, false
	}
	out := make([]string, len(v.list))
	for i, item := range v.list {
		out[i] = item.String()
	}
	return out, true
}

// Items returns a copy of the list items and whether the value is a list.
func (v Value) Items() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	cp := make([]Value, len(v.list))
	copy(cp, v.list)
	return cp, true
}

// Contains reports whether a list value has an item equal to s. Membership is
// strict: a bool or number never matches its textual form.
func (v Value) Contains(s Value) bool {
	if v.kind != KindList {
		return false
	}
	for _, item := range v.list {
		if item.Equal(s) {
			return true
		}
	}
	return false
}

// Keys returns the map keys in insertion order, or nil for non-maps.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	cp := make([]string, len(v.keys))
	copy(cp, v.keys)
	return cp
}

// Len returns the number of list items or map keys.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.keys)
	default:
		return 0
	}
}

// Get returns the child stored under key. Non-maps and missing keys yield
// Null and false.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Null(), false
	}
	child, ok := v.m[key]
	return child, ok
}

// With returns a copy of the map with key set to child. Non-map receivers are
// treated as empty maps.
func (v Value) With(key string, child Value) Value {
	out := Value{kind: KindMap, m: make(map[string]Value, len(v.keys)+1)}
	if v.kind == KindMap {
		out.keys = make([]string, len(v.keys), len(v.keys)+1)
		copy(out.keys, v.keys)
		for k, c := range v.m {
			out.m[k] = c
		}
	}
	if _, exists := out.m[key]; !exists {
		out.keys = append(out.keys, key)
	}
	out.m[key] = child
	return out
}

// Without returns a copy of the map with key removed.
func (v Value) Without(key string) Value {
	if v.kind != KindMap {
		return v
	}
	if _, ok := v.m[key]; !ok {
		return v
	}
	out := Value{kind: KindMap, m: make(map[string]Value, len(v.keys))}
	for _, k := range v.keys {
		if k == key {
			continue
		}
		out.keys = append(out.keys, k)
		out.m[k] = v.m[k]
	}
	return out
}

// Equal reports strict equality. Null is never equal to anything, including
// another null: an unanswered question satisfies no expectation.
func (v Value) Equal(o Value) bool {
	if v.kind == KindNull || o.kind == KindNull || v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	case KindNumber:
		return v.n == o.n
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.keys) != len(o.keys) {
			return false
		}
		for k, child := range v.m {
			other, ok := o.m[k]
			if !ok {
				return false
			}
			if child.IsNull() && other.IsNull() {
				continue
			}
			if !child.Equal(other) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the value for log lines and reports.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return v.s
	case KindNumber:
		return formatNumber(v.n)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		parts := make([]string, 0, len(v.keys))
		for _, k := range v.keys {
			parts = append(parts, k+": "+v.m[k].String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return ""
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
