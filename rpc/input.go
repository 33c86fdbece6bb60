package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/jonwraymond/rpcquery/querykey"
)

// Input is everything a caller supplies for one request.
//
// Its JSON form ({"param": ..., "query": ..., ...}) is the payload used to
// derive query keys.
type Input struct {
	// Param fills ":name" path segments.
	Param map[string]string `json:"param,omitempty"`

	// Query is encoded into the URL. Slice values are repeated and nil
	// values are skipped.
	Query map[string]any `json:"query,omitempty"`

	// Header is added to the request headers.
	Header map[string]string `json:"header,omitempty"`

	// JSON is marshaled as an application/json body.
	JSON any `json:"json,omitempty"`

	// Form is sent as an application/x-www-form-urlencoded body when JSON
	// is nil. Values follow the same rules as Query.
	Form map[string]any `json:"form,omitempty"`
}

// Payload returns the generic form of the input with empty sections left
// out.
func (in Input) Payload() map[string]any {
	p := make(map[string]any, 5)
	if len(in.Param) > 0 {
		p["param"] = in.Param
	}
	if len(in.Query) > 0 {
		p["query"] = in.Query
	}
	if len(in.Header) > 0 {
		p["header"] = in.Header
	}
	if in.JSON != nil {
		p["json"] = in.JSON
	}
	if len(in.Form) > 0 {
		p["form"] = in.Form
	}
	return p
}

// IsZero reports whether the input normalizes to no key segment.
func (in Input) IsZero() bool {
	_, ok := querykey.NormalizeObject(in.Payload())
	return !ok
}

// ToInput converts v to an Input. Input and *Input are returned as is;
// anything else goes through its JSON form, so a struct with "param",
// "query", "header", "json" and "form" fields maps onto Input.
func ToInput(v any) (Input, error) {
	switch in := v.(type) {
	case nil:
		return Input{}, nil
	case Input:
		return in, nil
	case *Input:
		if in == nil {
			return Input{}, nil
		}
		return *in, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return Input{}, fmt.Errorf("rpc: encode input: %w", err)
	}
	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return Input{}, fmt.Errorf("rpc: decode input: %w", err)
	}
	return in, nil
}

// expandPath substitutes path parameters. Values are path-escaped. A
// missing optional parameter removes its segment.
func expandPath(path string, params map[string]string) (string, error) {
	segs := strings.Split(path, "/")
	out := make([]string, 0, len(segs))
	for _, seg := range segs {
		name, optional, ok := paramName(seg)
		if !ok {
			out = append(out, seg)
			continue
		}
		v, has := params[name]
		if !has {
			if optional {
				continue
			}
			return "", fmt.Errorf("%w: %q in %s", ErrMissingParam, name, path)
		}
		out = append(out, url.PathEscape(v))
	}
	return strings.Join(out, "/"), nil
}

// encodeValues flattens m into url.Values.
func encodeValues(m map[string]any) url.Values {
	values := make(url.Values, len(m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, s := range formatValue(m[k]) {
			values.Add(k, s)
		}
	}
	return values
}

func formatValue(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return []string{val}
	case []string:
		return val
	case fmt.Stringer:
		return []string{val.String()}
	case []byte:
		return []string{string(val)}
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out = append(out, formatValue(rv.Index(i).Interface())...)
		}
		return out
	}
	return []string{fmt.Sprint(v)}
}

// encodeBody returns the request body and its content type.
func encodeBody(in Input) (io.Reader, string, error) {
	if in.JSON != nil {
		data, err := json.Marshal(in.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("rpc: encode json body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
	if len(in.Form) > 0 {
		return strings.NewReader(encodeValues(in.Form).Encode()), "application/x-www-form-urlencoded", nil
	}
	return nil, "", nil
}
