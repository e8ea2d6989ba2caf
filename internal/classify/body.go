package classify

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
)

var errNotObject = errors.New("body is not a JSON object")

// Body is a parsed JSON object returned by the provider.
type Body map[string]any

// ParseBody decodes data as a JSON object.
func ParseBody(data []byte) (Body, error) {
	var v any
	if err := sonic.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", errNotObject, v)
	}
	return Body(obj), nil
}

// Lookup walks nested objects by key.
func (b Body) Lookup(path ...string) (any, bool) {
	var cur any = map[string]any(b)
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the scalar at path rendered as text, or "" when the path is
// missing, null, or not a scalar.
func (b Body) String(path ...string) string {
	v, ok := b.Lookup(path...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// Indent renders the body as indented JSON with sorted keys. An absent body
// renders as null.
func (b Body) Indent() string {
	if b == nil {
		return "null"
	}
	out, err := sonic.ConfigStd.MarshalIndent(map[string]any(b), "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(b))
	}
	return string(out)
}
