package querykey

import (
	"encoding/json"
	"reflect"
	"sort"
)

// IsEmptyObject reports whether v is an object with zero keys.
//
// Nil, slices, arrays and primitives are never empty objects; an empty
// slice is meaningful ordered data and is kept.
func IsEmptyObject(v any) bool {
	obj, ok := asObject(v)
	return ok && len(obj) == 0
}

// SortObjectDeep returns a copy of v with object keys sorted ascending at
// every level of direct object nesting.
//
// Nil, non-object values and slices are returned unchanged. Objects nested
// inside slices are not visited.
func SortObjectDeep(v any) any {
	if isArray(v) {
		return v
	}
	obj, ok := asObject(v)
	if !ok {
		return v
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(keys))
	for _, k := range keys {
		out[k] = SortObjectDeep(obj[k])
	}
	return out
}

// NormalizeObject filters and sorts a request payload for use in a key.
//
// It returns ok=false when the payload is falsy (nil, false, zero, "") or
// when every top-level field is nil or an empty object. Top-level fields
// with other values are kept, each passed through SortObjectDeep.
func NormalizeObject(payload any) (normalized map[string]any, ok bool) {
	if isFalsy(payload) {
		return nil, false
	}
	obj, isObj := asObject(payload)
	if !isObj {
		return nil, false
	}

	filtered := make(map[string]any, len(obj))
	for k, v := range obj {
		if isNil(v) || IsEmptyObject(v) {
			continue
		}
		filtered[k] = SortObjectDeep(v)
	}

	if len(filtered) == 0 {
		return nil, false
	}
	return filtered, true
}

// asObject returns v as a string-keyed object. Maps with string keys are
// copied shallowly; structs are converted through their JSON form.
func asObject(v any) (map[string]any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return val, val != nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String || rv.IsNil() {
			return nil, false
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, true
	case reflect.Struct:
		data, err := json.Marshal(rv.Interface())
		if err != nil {
			return nil, false
		}
		var out map[string]any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, false
		}
		return out, true
	default:
		return nil, false
	}
}

func isArray(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	return rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// isFalsy mirrors JavaScript truthiness for the values a payload can hold.
// Empty objects and empty slices are truthy.
func isFalsy(v any) bool {
	if isNil(v) {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return !rv.Bool()
	case reflect.String:
		return rv.Len() == 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f == 0 || f != f
	}
	return false
}
