// Package cookie stores JSON-serialized values as cookie strings in an injected Store.
//
// A value is rendered as "key=<json>; path=/; expires=<date>;".
// Writes of cookie strings longer than the configured limit are rejected, never truncated.
package cookie

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf16"

	jsoniter "github.com/json-iterator/go"
)

// json encodes cookie values, "<", ">" and "&" are kept as they are, so they count as one character.
var json = jsoniter.Config{ //nolint:gochecknoglobals
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// Format renders a cookie string, zero expires omits the attribute.
func Format(key, value, path string, expires time.Time) string {
	var b strings.Builder
	b.WriteString(key)
	b.WriteString("=")
	b.WriteString(value)
	if path != "" {
		b.WriteString("; path=")
		b.WriteString(path)
	}
	if !expires.IsZero() {
		b.WriteString("; expires=")
		b.WriteString(expires.UTC().Format(http.TimeFormat))
	}
	b.WriteString(";")
	return b.String()
}

// Parse splits a cookie string to the name, the JSON value and lower-cased attributes.
// The value is read as one JSON document, so it may contain ";" and "=".
func Parse(cookie string) (name, value string, attrs map[string]string, err error) {
	eq := strings.IndexByte(cookie, '=')
	if eq <= 0 {
		return "", "", nil, fmt.Errorf(`cookie "%s" has no name`, cookie)
	}
	name = strings.TrimSpace(cookie[:eq])
	rest := cookie[eq+1:]

	iter := jsoniter.ParseString(json, rest)
	raw := iter.SkipAndReturnBytes()
	if iter.Error != nil && !(errors.Is(iter.Error, io.EOF) && len(strings.TrimSpace(string(raw))) > 0) {
		return "", "", nil, fmt.Errorf(`cookie "%s" has invalid value: %w`, name, iter.Error)
	}
	value = strings.TrimSpace(string(raw))
	rest = rest[len(raw):]

	attrs = make(map[string]string)
	for _, part := range strings.Split(rest, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		attrs[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return name, value, attrs, nil
}

// Length returns the length of the cookie string in UTF-16 code units, as browsers measure it.
// A character outside the Basic Multilingual Plane counts as two.
func Length(cookie string) int {
	return len(utf16.Encode([]rune(cookie)))
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("cookie key is empty")
	}
	if strings.ContainsAny(key, "=; \t\r\n") {
		return fmt.Errorf(`cookie key "%s" contains invalid characters`, key)
	}
	return nil
}
