// Package strings provides the case and name conversions used when mapping
// resource type names onto database tables and URL segments.
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
				// Add underscore before uppercase letter if:
				// 1. Previous char is lowercase
				// 2. Next char is lowercase (for acronyms like HTTPRequest -> http_request)
				if unicode.IsLower(prev) {
					result.WriteRune('_')
				} else if i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
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

// ToKebabCase converts CamelCase to kebab-case (dasherized)
func ToKebabCase(s string) string {
	return strings.ReplaceAll(ToSnakeCase(s), "_", "-")
}

// Camelize converts snake_case or kebab-case to lowerCamelCase.
// The first rune is always lowercased, so "PostId" stays "postId".
func Camelize(s string) string {
	var result strings.Builder
	upperNext := false

	for i, r := range s {
		switch {
		case r == '_' || r == '-':
			upperNext = true
		case upperNext:
			result.WriteRune(unicode.ToUpper(r))
			upperNext = false
		case i == 0:
			result.WriteRune(unicode.ToLower(r))
		default:
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Pluralize adds simple English pluralization
func Pluralize(s string) string {
	if strings.HasSuffix(s, "s") ||
		strings.HasSuffix(s, "x") ||
		strings.HasSuffix(s, "z") ||
		strings.HasSuffix(s, "ch") ||
		strings.HasSuffix(s, "sh") {
		return s + "es"
	}
	if strings.HasSuffix(s, "y") && len(s) > 1 && !isVowel(rune(s[len(s)-2])) {
		return s[:len(s)-1] + "ies"
	}
	return s + "s"
}

// PluralDasherize converts a singular type name to its plural, dasherized
// URL segment ("BlogPost" -> "blog-posts").
func PluralDasherize(s string) string {
	return Pluralize(ToKebabCase(s))
}

// PluralSnake converts a singular type name to its plural snake_case table
// name ("BlogPost" -> "blog_posts").
func PluralSnake(s string) string {
	return Pluralize(ToSnakeCase(s))
}

func isVowel(r rune) bool {
	switch unicode.ToLower(r) {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
