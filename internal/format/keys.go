package format

import (
	"strings"
	"unicode"
)

// CamelToSnake converts a camelCase wire key to its snake_case display form.
// Hyphenated keys are converted segment by segment with the hyphens kept, so
// task names like "page-load" survive unchanged.
func CamelToSnake(s string) string {
	if strings.Contains(s, "-") {
		parts := strings.Split(s, "-")
		for i, p := range parts {
			parts[i] = underscore(p)
		}
		return strings.Join(parts, "-")
	}
	return underscore(s)
}

// underscore lowercases a camelCase word, inserting "_" before a capital
// that follows a lowercase letter or digit and before the last capital of an
// acronym run ("HTTPStatus" becomes "http_status").
func underscore(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if !unicode.IsUpper(r) {
			b.WriteRune(r)
			continue
		}
		afterLower := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
		acronymEnd := i > 0 && i+1 < len(runes) && unicode.IsUpper(runes[i-1]) && unicode.IsLower(runes[i+1])
		if afterLower || acronymEnd {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// TransformKeys returns a copy of a wire form with every map key passed
// through fn, recursing into nested maps and list elements.
func TransformKeys(m map[string]any, fn func(string) string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[fn(k)] = transformValue(v, fn)
	}
	return out
}

func transformValue(v any, fn func(string) string) any {
	switch x := v.(type) {
	case map[string]any:
		return TransformKeys(x, fn)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = transformValue(e, fn)
		}
		return out
	default:
		return v
	}
}
