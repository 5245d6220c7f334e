package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// cleanReplacer rewrites whitespace variants the archive pages use.
var cleanReplacer = strings.NewReplacer(
	"\t", "    ",
	"\u00a0", " ",
)

// Clean returns value in NFD form with tabs expanded and non-breaking spaces
// replaced. Leading and trailing whitespace is preserved; callers trim where
// the field semantics call for it.
func Clean(value string) string {
	if value == "" {
		return ""
	}
	return cleanReplacer.Replace(norm.NFD.String(value))
}

// NFD returns value in Unicode canonical decomposition.
func NFD(value string) string {
	return norm.NFD.String(value)
}

// Collapse trims value and folds internal whitespace runs to a single space.
func Collapse(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// IsBlank reports whether value contains only whitespace.
func IsBlank(value string) bool {
	return strings.IndexFunc(value, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}

// Truncate shortens value to at most limit runes.
func Truncate(value string, limit int) string {
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
