package http

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Input validation constants
const (
	MaxSlugLength    = 64
	MaxNameLength    = 256
	MaxMessageLength = 10000
	MaxSettingKeyLen = 64
	MaxSettingValLen = 50000 // AI prompts can be long
)

var (
	slugRe  = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	keyRe   = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9]{8,15}$`)
)

// ValidSlug checks if a slug is safe (alphanumeric + underscore + hyphen)
func ValidSlug(s string) bool {
	return s != "" && len(s) <= MaxSlugLength && slugRe.MatchString(s)
}

// ValidSettingKey checks if a settings key is safe
func ValidSettingKey(s string) bool {
	return s != "" && len(s) <= MaxSettingKeyLen && keyRe.MatchString(s)
}

// ValidPhone accepts E.164-ish numbers with or without the plus.
func ValidPhone(s string) bool {
	return phoneRe.MatchString(strings.TrimSpace(s))
}

// SanitizeString removes null bytes and invalid UTF-8
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r != utf8.RuneError {
				v = append(v, r)
			}
		}
		s = string(v)
	}
	return s
}

// ValidateLength checks if string is within bounds
func ValidateLength(s string, min, max int) bool {
	l := len(s)
	return l >= min && l <= max
}
