package security

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxSearchPatternLength is the longest name pattern accepted for substring search.
const MaxSearchPatternLength = 100

var (
	ErrPatternEmpty   = errors.New("search pattern is required")
	ErrPatternTooLong = errors.New("search pattern too long")
	ErrPatternInvalid = errors.New("search pattern contains invalid characters")
)

// ValidateSearchPattern checks a substring-search pattern. The pattern is
// returned unchanged: whitespace is significant for substring matching.
func ValidateSearchPattern(pattern string) (string, error) {
	if pattern == "" {
		return "", ErrPatternEmpty
	}

	if utf8.RuneCountInString(pattern) > MaxSearchPatternLength {
		return "", ErrPatternTooLong
	}

	if !utf8.ValidString(pattern) {
		return "", ErrPatternInvalid
	}

	for _, r := range pattern {
		if unicode.IsControl(r) {
			return "", ErrPatternInvalid
		}
	}

	return pattern, nil
}

// EscapeLike escapes LIKE wildcards so the pattern matches literally.
// The result must be used with ESCAPE '\'.
func EscapeLike(pattern string) string {
	if pattern == "" {
		return ""
	}

	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(pattern)
}

// ContainsPattern wraps an escaped pattern for a LIKE substring match.
func ContainsPattern(pattern string) string {
	return "%" + EscapeLike(pattern) + "%"
}
