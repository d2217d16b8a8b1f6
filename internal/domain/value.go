// Package domain contains the core entities shared by the query pipeline.
// This package has no external dependencies (only stdlib).
package domain

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the shape of a Value.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindBool
	KindList
	KindMap
)

// Value is a single parameter value: a scalar, a list, or a nested mapping.
// Request parameters only ever produce strings, lists and maps; ints and bools
// come from server-side defaults and policy fallbacks.
type Value struct {
	kind Kind
	str  string
	num  int
	flag bool
	list []Value
	dict map[string]Value
}

// String creates a text value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Int creates an integer value.
func Int(n int) Value {
	return Value{kind: KindInt, num: n}
}

// Bool creates a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, flag: b}
}

// List creates a list of text values.
func List(items ...string) Value {
	list := make([]Value, len(items))
	for i, s := range items {
		list[i] = String(s)
	}
	return Value{kind: KindList, list: list}
}

// ListOf creates a list from arbitrary values.
func ListOf(items ...Value) Value {
	list := make([]Value, len(items))
	copy(list, items)
	return Value{kind: KindList, list: list}
}

// Map creates a nested mapping value.
func Map(m map[string]Value) Value {
	dict := make(map[string]Value, len(m))
	for k, v := range m {
		dict[k] = v
	}
	return Value{kind: KindMap, dict: dict}
}

// Kind returns the shape of the value.
func (v Value) Kind() Kind { return v.kind }

// IsScalar reports whether the value is a string, int or bool.
func (v Value) IsScalar() bool {
	return v.kind == KindString || v.kind == KindInt || v.kind == KindBool
}

// IsList reports whether the value is a list.
func (v Value) IsList() bool { return v.kind == KindList }

// IsMap reports whether the value is a nested mapping.
func (v Value) IsMap() bool { return v.kind == KindMap }

// Text returns the scalar rendered as text. Lists and maps return "".
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.Itoa(v.num)
	case KindBool:
		if v.flag {
			return "1"
		}
		return ""
	default:
		return ""
	}
}

// Int parses the value as an integer. Only scalars convert.
func (v Value) Int() (int, bool) {
	switch v.kind {
	case KindInt:
		return v.num, true
	case KindBool:
		if v.flag {
			return 1, true
		}
		return 0, true
	case KindString:
		n, err := strconv.Atoi(strings.TrimSpace(v.str))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Truthy follows the loose boolean reading used by query-string flags:
// "", "0", "false" and "no" are false, anything else is true.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.flag
	case KindInt:
		return v.num != 0
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.str)) {
		case "", "0", "false", "no", "off":
			return false
		}
		return true
	case KindList:
		return len(v.list) > 0
	case KindMap:
		return len(v.dict) > 0
	}
	return false
}

// Items returns the members of a list, or the values of a map in key order.
// A scalar yields a single-element slice.
func (v Value) Items() []Value {
	switch v.kind {
	case KindList:
		out := make([]Value, len(v.list))
		copy(out, v.list)
		return out
	case KindMap:
		keys := v.Keys()
		out := make([]Value, len(keys))
		for i, k := range keys {
			out[i] = v.dict[k]
		}
		return out
	default:
		return []Value{v}
	}
}

// Strings flattens the value into its scalar members as text.
// Nested lists and maps inside a list are skipped.
func (v Value) Strings() []string {
	items := v.Items()
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item.IsScalar() {
			out = append(out, item.Text())
		}
	}
	return out
}

// Len returns the number of members of a list or map; scalars have length 1.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.dict)
	default:
		return 1
	}
}

// Get returns a member of a map value.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	m, ok := v.dict[key]
	return m, ok
}

// Keys returns the sorted keys of a map value.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	keys := make([]string, 0, len(v.dict))
	for k := range v.dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindInt:
		return v.num == o.num
	case KindBool:
		return v.flag == o.flag
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
		if len(v.dict) != len(o.dict) {
			return false
		}
		for k, a := range v.dict {
			b, ok := o.dict[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

// Raw converts the value into plain Go types (string, int, bool, []any, map[string]any).
func (v Value) Raw() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return v.num
	case KindBool:
		return v.flag
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Raw()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.dict))
		for k, item := range v.dict {
			out[k] = item.Raw()
		}
		return out
	}
	return nil
}

// MarshalJSON encodes the raw form of the value.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Raw())
}
