package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateCollectionName validates a collection name used in steering files
// and event files.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No whitespace (steering entries are whitespace-separated pairs)
//   - No control characters
//   - Maximum length of 128 characters
func ValidateCollectionName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidConfig, "collection name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidConfig, "collection name too long (max 128 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidConfig, "collection name contains invalid control characters")
		}
		if unicode.IsSpace(r) {
			return New(ErrCodeInvalidConfig, "collection name cannot contain whitespace: %q", name)
		}
	}

	if !collectionNameRegex.MatchString(name) {
		return New(ErrCodeInvalidConfig, "invalid collection name: %q", name)
	}

	return nil
}

// collectionNameRegex matches identifiers like "VXDCollection" or "mcParticles_BG".
var collectionNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// ValidateLocation validates a background stream location.
//
// Validation rules:
//   - Location cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidateLocation(location string) error {
	if strings.TrimSpace(location) == "" {
		return New(ErrCodeInvalidConfig, "stream location cannot be empty")
	}

	const maxLocationLength = 4096
	if len(location) > maxLocationLength {
		return New(ErrCodeInvalidConfig, "stream location too long (max %d characters)", maxLocationLength)
	}

	for _, r := range location {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidConfig, "stream location contains invalid characters")
		}
	}

	return nil
}
