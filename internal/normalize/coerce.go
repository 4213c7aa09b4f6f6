package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// lookup walks a dotted path through nested objects.
func lookup(obj map[string]any, path string) any {
	var current any = obj
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}

// first returns the first non-nil value among paths.
func first(obj map[string]any, paths ...string) any {
	for _, path := range paths {
		if v := lookup(obj, path); v != nil {
			return v
		}
	}
	return nil
}

func number(v any) float64 {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case float64:
		f = n
	case int:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func integer(v any) int {
	return int(number(v))
}

// text returns strings as-is and renders numeric ids; anything else is "".
func text(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	}
	return ""
}

func optionalText(v any) *string {
	s := text(v)
	if s == "" {
		return nil
	}
	return &s
}

func boolean(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && parsed
	case json.Number:
		return number(b) != 0
	}
	return false
}

// images accepts a list of URLs, a list of {url} objects or a single URL.
func images(v any) []string {
	out := []string{}
	switch list := v.(type) {
	case []any:
		for _, item := range list {
			if url := imageURL(item); url != "" {
				out = append(out, url)
			}
		}
	default:
		if url := imageURL(v); url != "" {
			out = append(out, url)
		}
	}
	return out
}

func imageURL(v any) string {
	switch img := v.(type) {
	case string:
		return strings.TrimSpace(img)
	case map[string]any:
		return text(first(img, "url", "src", "secure_url"))
	}
	return ""
}
