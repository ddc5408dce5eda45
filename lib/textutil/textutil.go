package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeKey lowercases key and drops all whitespace, so "Taco Bell"
// and "tacobell" name the same thing.
func NormalizeKey(key string) string {
	return whitespaceRegex.ReplaceAllString(strings.ToLower(key), "")
}
