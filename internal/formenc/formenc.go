// Package formenc builds application/x-www-form-urlencoded payloads from an
// insertion-ordered set of fields.
package formenc

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ContentType is the media type of an encoded payload.
const ContentType = "application/x-www-form-urlencoded"

type field struct {
	key   string
	value any
}

// Fields is an ordered mapping of field name to scalar value. Keys may use
// bracket notation such as source[number]. The zero value is ready to use.
type Fields struct {
	entries []field
}

// Add appends a field. A nil value is kept but skipped by Encode.
func (f *Fields) Add(key string, value any) *Fields {
	f.entries = append(f.entries, field{key: key, value: value})
	return f
}

// AddIf appends key=value only when value is non-empty.
func (f *Fields) AddIf(key, value string) *Fields {
	if value == "" {
		return f
	}
	return f.Add(key, value)
}

// Len returns the number of fields added, including ones Encode will skip.
func (f *Fields) Len() int {
	return len(f.entries)
}

// Encode renders the fields in insertion order, skipping entries with an
// empty key or a nil value. ok is false when nothing was rendered, which
// callers treat as "no body".
func (f *Fields) Encode() (payload string, ok bool) {
	if f == nil || len(f.entries) == 0 {
		return "", false
	}

	var b strings.Builder
	for _, e := range f.entries {
		if e.key == "" || e.value == nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(e.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(scalarString(e.value)))
	}

	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
