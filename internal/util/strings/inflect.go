package strings

import (
	"strings"
	"unicode"
)

var irregulars = map[string]string{
	"person": "people",
	"child":  "children",
	"man":    "men",
	"woman":  "women",
	"tooth":  "teeth",
	"foot":   "feet",
	"mouse":  "mice",
	"goose":  "geese",
	"ox":     "oxen",
}

var uncountables = map[string]bool{
	"equipment":   true,
	"information": true,
	"rice":        true,
	"money":       true,
	"species":     true,
	"series":      true,
	"fish":        true,
	"sheep":       true,
	"data":        true,
	"metadata":    true,
}

var singulars = func() map[string]string {
	m := make(map[string]string, len(irregulars))
	for singular, plural := range irregulars {
		m[plural] = singular
	}
	return m
}()

// Pluralize returns the plural form of the last word in s.
// "Cucumber" becomes "Cucumbers" and "tomatoRel" becomes "tomatoRels".
func Pluralize(s string) string {
	head, word := splitLastWord(s)
	if word == "" {
		return s
	}
	return head + matchCase(word, pluralizeWord(strings.ToLower(word)))
}

// Singularize returns the singular form of the last word in s
func Singularize(s string) string {
	head, word := splitLastWord(s)
	if word == "" {
		return s
	}
	return head + matchCase(word, singularizeWord(strings.ToLower(word)))
}

func pluralizeWord(word string) string {
	if uncountables[word] {
		return word
	}
	if plural, ok := irregulars[word]; ok {
		return plural
	}
	if _, ok := singulars[word]; ok {
		return word
	}

	switch {
	case strings.HasSuffix(word, "y") && len(word) > 1 && !isVowel(word[len(word)-2]):
		return word[:len(word)-1] + "ies"
	case strings.HasSuffix(word, "s") || strings.HasSuffix(word, "x") ||
		strings.HasSuffix(word, "z") || strings.HasSuffix(word, "ch") ||
		strings.HasSuffix(word, "sh"):
		return word + "es"
	case strings.HasSuffix(word, "fe"):
		return word[:len(word)-2] + "ves"
	case strings.HasSuffix(word, "lf") || strings.HasSuffix(word, "af"):
		return word[:len(word)-1] + "ves"
	default:
		return word + "s"
	}
}

func singularizeWord(word string) string {
	if uncountables[word] {
		return word
	}
	if singular, ok := singulars[word]; ok {
		return singular
	}
	if _, ok := irregulars[word]; ok {
		return word
	}

	switch {
	case strings.HasSuffix(word, "ies") && len(word) > 3:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "lves") || strings.HasSuffix(word, "aves"):
		return word[:len(word)-3] + "f"
	case strings.HasSuffix(word, "ives"):
		return word[:len(word)-3] + "fe"
	case strings.HasSuffix(word, "sses") || strings.HasSuffix(word, "xes") ||
		strings.HasSuffix(word, "zes") || strings.HasSuffix(word, "ches") ||
		strings.HasSuffix(word, "shes"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ss") || strings.HasSuffix(word, "us"):
		return word
	case strings.HasSuffix(word, "s"):
		return word[:len(word)-1]
	default:
		return word
	}
}

// splitLastWord separates the final camel-case or underscore word
func splitLastWord(s string) (string, string) {
	runes := []rune(s)
	for i := len(runes) - 1; i > 0; i-- {
		if runes[i-1] == '_' || runes[i-1] == '-' {
			return string(runes[:i]), string(runes[i:])
		}
		if unicode.IsUpper(runes[i]) && unicode.IsLower(runes[i-1]) {
			return string(runes[:i]), string(runes[i:])
		}
	}
	return "", s
}

// matchCase applies the capitalization of original to replacement
func matchCase(original, replacement string) string {
	if original == strings.ToUpper(original) && len(original) > 1 {
		return strings.ToUpper(replacement)
	}
	if unicode.IsUpper([]rune(original)[0]) {
		return UpperFirst(replacement)
	}
	return replacement
}

func isVowel(c byte) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
