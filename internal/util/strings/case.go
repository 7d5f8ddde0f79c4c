// Package strings holds the name inflection used to derive record, collection
// and relation names.
package strings

import (
	"strings"
	"unicode"
)

// ToSnakeCase converts CamelCase to snake_case
// Handles acronyms properly (HTTPRequest -> http_request)
func ToSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)

	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				if unicode.IsLower(prev) || unicode.IsDigit(prev) {
					result.WriteRune('_')
				} else if unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
					result.WriteRune('_')
				}
			}
			result.WriteRune(unicode.ToLower(r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Underscore converts CamelCase, kebab-case and space separated words to
// snake_case. "test-record" and "TestRecord" both become "test_record".
func Underscore(s string) string {
	s = strings.NewReplacer("-", "_", " ", "_", "::", "/").Replace(s)
	s = ToSnakeCase(s)
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return s
}

// Camelize joins the words of a snake_case, kebab-case or CamelCase string.
// With upperFirst the result is PascalCase, otherwise camelCase.
func Camelize(s string, upperFirst bool) string {
	parts := strings.FieldsFunc(Underscore(s), func(r rune) bool { return r == '_' })

	var b strings.Builder
	for i, part := range parts {
		runes := []rune(part)
		if i > 0 || upperFirst {
			runes[0] = unicode.ToUpper(runes[0])
		}
		b.WriteString(string(runes))
	}
	return b.String()
}

// UpperFirst upper-cases the first rune of s
func UpperFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// LowerFirst lower-cases the first rune of s
func LowerFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}
