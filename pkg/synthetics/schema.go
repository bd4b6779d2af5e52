package synthetics

import (
	"fmt"
	"sort"
)

// Element is a value that can be flattened into the wire form (a string-keyed
// map of primitives and nested values) and reconstructed from it. Concrete
// types describe their wire fields with a Schema of closures bound to the
// instance; Encode and Decode consume the schema generically, so one codec
// serves every settings, task and test type.
type Element interface {
	Schema() Schema
}

// Field binds one wire key to an instance field. Internal fields hold
// server-populated attributes (id, timestamps, author records): Decode sets
// them like any other field, Encode skips them unless the full form is
// requested. Required fields must be present in the wire map during Decode.
type Field struct {
	Key      string
	Internal bool
	Required bool
	Get      func() any
	Set      func(v any) error
}

type Schema []Field

// Encode flattens an element into its wire form, excluding internal fields.
func Encode(e Element) map[string]any {
	return encodeSchema(e.Schema(), false)
}

// EncodeFull flattens an element including internal (server-populated) fields.
func EncodeFull(e Element) map[string]any {
	return encodeSchema(e.Schema(), true)
}

func encodeSchema(schema Schema, full bool) map[string]any {
	out := make(map[string]any, len(schema))
	for _, f := range schema {
		if f.Internal && !full {
			continue
		}
		out[f.Key] = encodeValue(f.Get())
	}
	return out
}

func encodeValue(v any) any {
	switch x := v.(type) {
	case Element:
		return Encode(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = encodeValue(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = encodeValue(e)
		}
		return out
	case []string:
		out := make([]string, len(x))
		copy(out, x)
		return out
	case []int:
		out := make([]int, len(x))
		copy(out, x)
		return out
	case map[string]string:
		out := make(map[string]string, len(x))
		for k, e := range x {
			out[k] = e
		}
		return out
	default:
		return v
	}
}

// Decode reconstructs an element from its wire form. Wire keys without a
// schema field are ignored; schema fields without a wire key keep their
// current value unless required.
func Decode(e Element, m map[string]any) error {
	for _, f := range e.Schema() {
		v, ok := m[f.Key]
		if !ok {
			if f.Required {
				return fmt.Errorf("required field '%s' missing in %v", f.Key, m)
			}
			continue
		}
		if err := f.Set(v); err != nil {
			return fmt.Errorf("field '%s': %w", f.Key, err)
		}
	}
	return nil
}

// ----- wire value conversion -----
//
// Wire maps arrive from two decoders with different scalar conventions:
// encoding/json yields float64 for every number, yaml.v3 yields int. The
// as* helpers accept both.

func asString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case fmt.Stringer:
		return x.String(), nil
	default:
		return "", fmt.Errorf("cannot decode %T value '%v' as string", v, v)
	}
}

func asInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case uint64:
		return int(x), nil
	case float64:
		return int(x), nil
	case float32:
		return int(x), nil
	default:
		return 0, fmt.Errorf("cannot decode %T value '%v' as int", v, v)
	}
}

func asFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("cannot decode %T value '%v' as float", v, v)
	}
}

func asBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("cannot decode %T value '%v' as bool", v, v)
}

func asStringSlice(v any) ([]string, error) {
	switch x := v.(type) {
	case []string:
		out := make([]string, len(x))
		copy(out, x)
		return out, nil
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			s, err := asString(e)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot decode %T value '%v' as string list", v, v)
	}
}

func asIntSlice(v any) ([]int, error) {
	switch x := v.(type) {
	case []int:
		out := make([]int, len(x))
		copy(out, x)
		return out, nil
	case []any:
		out := make([]int, 0, len(x))
		for _, e := range x {
			n, err := asInt(e)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot decode %T value '%v' as int list", v, v)
	}
}

func asMap(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		out := make(map[string]any, len(m))
		for k, e := range m {
			out[k] = encodeValue(e)
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot decode %T value '%v' as map", v, v)
}

// ----- field setter builders -----

func setString(dst *string) func(any) error {
	return func(v any) error {
		s, err := asString(v)
		if err != nil {
			return err
		}
		*dst = s
		return nil
	}
}

func setInt(dst *int) func(any) error {
	return func(v any) error {
		n, err := asInt(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func setFloat(dst *float64) func(any) error {
	return func(v any) error {
		f, err := asFloat(v)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func setBool(dst *bool) func(any) error {
	return func(v any) error {
		b, err := asBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func setStringSlice(dst *[]string) func(any) error {
	return func(v any) error {
		s, err := asStringSlice(v)
		if err != nil {
			return err
		}
		*dst = s
		return nil
	}
}

func setIntSlice(dst *[]int) func(any) error {
	return func(v any) error {
		s, err := asIntSlice(v)
		if err != nil {
			return err
		}
		*dst = s
		return nil
	}
}

func setMap(dst *map[string]any) func(any) error {
	return func(v any) error {
		m, err := asMap(v)
		if err != nil {
			return err
		}
		*dst = m
		return nil
	}
}

func setElement(dst Element) func(any) error {
	return func(v any) error {
		m, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("cannot decode %T value '%v' as %T", v, v, dst)
		}
		return Decode(dst, m)
	}
}

func setEnum[T ~string](dst *T, parse func(string) (T, error)) func(any) error {
	return func(v any) error {
		s, err := asString(v)
		if err != nil {
			return err
		}
		e, err := parse(s)
		if err != nil {
			return err
		}
		*dst = e
		return nil
	}
}

// sortedStrings returns a sorted copy, used wherever deterministic wire
// output matters (labels, notification channels).
func sortedStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}
