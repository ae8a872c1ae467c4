// Package phpserial decodes the loosely typed values WordPress keeps in its
// options and meta tables into a tagged variant that can be searched
// without reflection.
package phpserial

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a decoded PHP or JSON value. Only the field matching Kind is set.
type Value struct {
	Kind    Kind
	Bool    bool
	Int     int64
	Float   float64
	Str     string
	Class   string
	Entries []Entry
}

// Entry is one key/value pair of an array or object. Keys are Int or String.
type Entry struct {
	Key   Value
	Value Value
}

func Null() Value              { return Value{Kind: KindNull} }
func Bool(b bool) Value        { return Value{Kind: KindBool, Bool: b} }
func Int(i int64) Value        { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value    { return Value{Kind: KindFloat, Float: f} }
func String(s string) Value    { return Value{Kind: KindString, Str: s} }
func Array(e ...Entry) Value   { return Value{Kind: KindArray, Entries: e} }
func E(key, value Value) Entry { return Entry{Key: key, Value: value} }

func Object(class string, e ...Entry) Value {
	return Value{Kind: KindObject, Class: class, Entries: e}
}

// List builds an array with sequential integer keys.
func List(values ...Value) Value {
	entries := make([]Entry, len(values))
	for i, v := range values {
		entries[i] = Entry{Key: Int(int64(i)), Value: v}
	}
	return Array(entries...)
}

// Map builds an array with string keys in sorted key order.
func Map(m map[string]Value) Value {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry{Key: String(k), Value: m[k]})
	}
	return Array(entries...)
}

func (v Value) IsContainer() bool {
	return v.Kind == KindArray || v.Kind == KindObject
}

// Get returns the entry stored under key, comparing keys by their string form.
func (v Value) Get(key string) (Value, bool) {
	for _, e := range v.Entries {
		if e.Key.String() == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// AsInt reports the integer a scalar represents: ints, integral floats and
// numeric strings (surrounding whitespace ignored).
func (v Value) AsInt() (int64, bool) {
	switch v.Kind {
	case KindInt:
		return v.Int, true
	case KindFloat:
		if v.Float == math.Trunc(v.Float) && !math.IsInf(v.Float, 0) && math.Abs(v.Float) < 1<<53 {
			return int64(v.Float), true
		}
	case KindString:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return 0, false
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

// String renders scalars the way PHP would cast them to string. Containers
// render as their kind name.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindBool:
		if v.Bool {
			return "1"
		}
		return ""
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case KindString:
		return v.Str
	default:
		return v.Kind.String()
	}
}

// Walk visits v and every nested value depth first. The path holds the keys
// leading to the visited value. Returning false from fn stops the walk, in
// which case Walk returns false.
func (v Value) Walk(fn func(path []string, value Value) bool) bool {
	return v.walk(nil, fn)
}

func (v Value) walk(path []string, fn func(path []string, value Value) bool) bool {
	if !fn(path, v) {
		return false
	}
	for _, e := range v.Entries {
		child := append(path[:len(path):len(path)], e.Key.String())
		if !e.Value.walk(child, fn) {
			return false
		}
	}
	return true
}

// Interface converts v into plain Go values: arrays with sequential integer
// keys become []any, other arrays and objects become map[string]any.
func (v Value) Interface() any {
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindString:
		return v.Str
	case KindArray:
		if v.isList() {
			out := make([]any, len(v.Entries))
			for i, e := range v.Entries {
				out[i] = e.Value.Interface()
			}
			return out
		}
		fallthrough
	default:
		out := make(map[string]any, len(v.Entries))
		for _, e := range v.Entries {
			out[e.Key.String()] = e.Value.Interface()
		}
		return out
	}
}

func (v Value) isList() bool {
	for i, e := range v.Entries {
		if e.Key.Kind != KindInt || e.Key.Int != int64(i) {
			return false
		}
	}
	return true
}
