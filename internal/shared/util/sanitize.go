package util

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

var ErrInvalidFileName = errors.New("invalid file name")

// MaxFileNameBytes bounds a sanitized name so it fits in a single path element
// once a uuid prefix is added.
const MaxFileNameBytes = 128

// SanitizeFileName turns a client-supplied name into a single safe path element.
// Separators become underscores and control characters are dropped. Dots inside
// a name are kept; only names that reduce to "." or ".." are rejected. Long names
// lose the end of their stem and keep the extension.
func SanitizeFileName(name string) (string, error) {
	s := strings.TrimSpace(name)
	s = strings.NewReplacer("/", "_", "\\", "_").Replace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	if s == "" || s == "." || s == ".." {
		return "", ErrInvalidFileName
	}
	return truncateName(s, MaxFileNameBytes), nil
}

func truncateName(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	ext := filepath.Ext(s)
	if len(ext) >= limit/2 {
		ext = ""
	}
	stem := s[:len(s)-len(ext)]
	keep := limit - len(ext)
	for keep > 0 && !utf8.RuneStart(stem[keep]) {
		keep--
	}
	return stem[:keep] + ext
}

// Ext returns the lower-cased extension of name without the leading dot.
func Ext(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(strings.TrimSpace(name))), ".")
}
