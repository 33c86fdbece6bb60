package querykey

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// canonicalize produces a deterministic encoding of v. Maps are emitted
// with sorted keys; slices keep their order.
//
// Encodable values produce JSON. Non-finite floats are written as NaN,
// +Inf and -Inf, and values encoding/json rejects as <type value>. Neither
// form is valid JSON, so they never collide with an encodable value.
func canonicalize(v any) []byte {
	switch val := v.(type) {
	case nil:
		return []byte("null")
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	case float64:
		return canonicalizeFloat(val, val)
	case float32:
		return canonicalizeFloat(float64(val), val)
	default:
		return canonicalizeLeaf(v)
	}
}

func canonicalizeMap(m map[string]any) []byte {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}
		result = append(result, canonicalizeLeaf(k)...)
		result = append(result, ':')
		result = append(result, canonicalize(m[k])...)
	}
	return append(result, '}')
}

func canonicalizeSlice(s []any) []byte {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}
		result = append(result, canonicalize(v)...)
	}
	return append(result, ']')
}

func canonicalizeFloat(f float64, v any) []byte {
	switch {
	case math.IsNaN(f):
		return []byte("NaN")
	case math.IsInf(f, 1):
		return []byte("+Inf")
	case math.IsInf(f, -1):
		return []byte("-Inf")
	}
	return canonicalizeLeaf(v)
}

// canonicalizeLeaf falls back to the Go syntax form when encoding/json
// cannot encode v. fmt prints maps with sorted keys, so the fallback is
// deterministic too.
func canonicalizeLeaf(v any) []byte {
	b, err := marshalNoEscape(v)
	if err != nil {
		return fmt.Appendf(nil, "<%T %#v>", v, v)
	}
	return b
}

// marshalNoEscape encodes v without HTML escaping so paths such as
// "/a&b" stay readable in keys.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
