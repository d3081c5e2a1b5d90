package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// ============================================================================
// Argument Bags
// ============================================================================
// Remote events carry loosely-typed arguments (strings, numbers, nested maps).
// Value is a tagged variant over those shapes so handlers can tell "absent"
// from "present but malformed" instead of tripping over a bad type assertion.
// ============================================================================

var (
	// ErrMissingArgument is returned when a required argument is absent or null.
	ErrMissingArgument = errors.New("missing argument")

	// ErrInvalidArgument is returned when an argument has the wrong shape.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Kind identifies which field of a Value is meaningful.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is one argument value. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	list []Value
	m    Args
}

func StringValue(s string) Value     { return Value{kind: KindString, s: s} }
func IntValue(i int64) Value         { return Value{kind: KindInt, i: i} }
func FloatValue(f float64) Value     { return Value{kind: KindFloat, f: f} }
func BoolValue(b bool) Value         { return Value{kind: KindBool, b: b} }
func ListValue(items ...Value) Value { return Value{kind: KindList, list: items} }
func MapValue(m Args) Value          { return Value{kind: KindMap, m: m} }

func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v carries no value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the string form of scalar values.
func (v Value) AsString() (string, bool) {
	switch v.kind {
	case KindString:
		return v.s, true
	case KindInt:
		return strconv.FormatInt(v.i, 10), true
	default:
		return "", false
	}
}

// AsInt returns v as an integer. Decimal strings and integral floats are accepted
// because remote clients are inconsistent about quoting indexes.
func (v Value) AsInt() (int64, error) {
	switch v.kind {
	case KindInt:
		return v.i, nil
	case KindFloat:
		if v.f != math.Trunc(v.f) || math.IsInf(v.f, 0) || math.IsNaN(v.f) {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrInvalidArgument, v.f)
		}
		return int64(v.f), nil
	case KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidArgument, v.s)
		}
		return n, nil
	case KindNull:
		return 0, ErrMissingArgument
	default:
		return 0, fmt.Errorf("%w: expected integer, got %s", ErrInvalidArgument, v.kind)
	}
}

// AsFloat returns v as a number. Decimal strings are accepted.
func (v Value) AsFloat() (float64, error) {
	switch v.kind {
	case KindInt:
		return float64(v.i), nil
	case KindFloat:
		return v.f, nil
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidArgument, v.s)
		}
		return f, nil
	case KindNull:
		return 0, ErrMissingArgument
	default:
		return 0, fmt.Errorf("%w: expected number, got %s", ErrInvalidArgument, v.kind)
	}
}

// AsList returns the elements of a list value.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// AsMap returns the nested bag of a map value.
func (v Value) AsMap() (Args, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.m, true
}

// UnmarshalJSON decodes any JSON value into the matching Kind.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	val, err := valueFromJSON(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func valueFromJSON(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Value{}, nil
	case string:
		return StringValue(x), nil
	case bool:
		return BoolValue(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return IntValue(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("decode number %q: %w", x.String(), err)
		}
		return FloatValue(f), nil
	case []any:
		items := make([]Value, 0, len(x))
		for _, el := range x {
			item, err := valueFromJSON(el)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return ListValue(items...), nil
	case map[string]any:
		m := make(Args, len(x))
		for k, el := range x {
			item, err := valueFromJSON(el)
			if err != nil {
				return Value{}, err
			}
			m[k] = item
		}
		return MapValue(m), nil
	default:
		return Value{}, fmt.Errorf("unsupported JSON value %T", raw)
	}
}

// MarshalJSON encodes v back into plain JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.s)
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindMap:
		if v.m == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(map[string]Value(v.m))
	default:
		return nil, fmt.Errorf("marshal value: unknown kind %s", v.kind)
	}
}

// ============================================================================
// Args
// ============================================================================

// Args is an event's argument bag. A nil Args is valid and empty.
type Args map[string]Value

// LogValue renders the bag as JSON in log records.
func (a Args) LogValue() slog.Value {
	b, err := json.Marshal(map[string]Value(a))
	if err != nil {
		return slog.StringValue("<unencodable arguments>")
	}
	return slog.StringValue(string(b))
}

// Get returns the value for key. Null values report as absent.
func (a Args) Get(key string) (Value, bool) {
	v, ok := a[key]
	if !ok || v.IsNull() {
		return Value{}, false
	}
	return v, true
}

// String returns a string argument.
func (a Args) String(key string) (string, bool) {
	v, ok := a.Get(key)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// StringOr returns a string argument or def when absent.
func (a Args) StringOr(key, def string) string {
	if s, ok := a.String(key); ok {
		return s
	}
	return def
}

// Int returns an integer argument. The error wraps ErrMissingArgument or
// ErrInvalidArgument and names the key.
func (a Args) Int(key string) (int64, error) {
	v, ok := a.Get(key)
	if !ok {
		return 0, fmt.Errorf("%s: %w", key, ErrMissingArgument)
	}
	n, err := v.AsInt()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// Float returns a numeric argument. Tick counts use it because remotes may
// send them with a fractional part.
func (a Args) Float(key string) (float64, error) {
	v, ok := a.Get(key)
	if !ok {
		return 0, fmt.Errorf("%s: %w", key, ErrMissingArgument)
	}
	f, err := v.AsFloat()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// OptionalInt returns nil when key is absent.
func (a Args) OptionalInt(key string) (*int, error) {
	if _, ok := a.Get(key); !ok {
		return nil, nil
	}
	n, err := a.Int(key)
	if err != nil {
		return nil, err
	}
	i := int(n)
	return &i, nil
}

// Map returns a nested argument bag, or nil when key is absent or not a map.
func (a Args) Map(key string) Args {
	v, ok := a.Get(key)
	if !ok {
		return nil
	}
	m, _ := v.AsMap()
	return m
}

// StringList returns a list of ids. A single comma-separated string is split.
func (a Args) StringList(key string) []string {
	v, ok := a.Get(key)
	if !ok {
		return nil
	}
	if items, ok := v.AsList(); ok {
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.AsString(); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	s, ok := v.AsString()
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
