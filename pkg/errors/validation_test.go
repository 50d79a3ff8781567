package errors

import (
	"strings"
	"testing"
)

func TestValidateCollectionName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "VXDCollection", false},
		{"valid underscore", "mcParticles_BG", false},
		{"valid leading underscore", "_hidden", false},
		{"valid dotted", "SIT.hits", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 200), true},
		{"space", "mcParticles mcParticlesBG", true},
		{"tab", "foo\tbar", true},
		{"control char", "foo\x01bar", true},
		{"leading digit", "1layer", true},
		{"slash", "foo/bar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCollectionName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCollectionName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidConfig) {
				t.Errorf("ValidateCollectionName(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidConfig)
			}
		})
	}
}

func TestValidateLocation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative file", "bg/pairs.evz", false},
		{"absolute file", "/data/overlay/pairs_001.zst", false},

		{"empty", "", true},
		{"blank", "   ", true},
		{"null byte", "foo\x00bar", true},
		{"newline", "foo\nbar", true},
		{"too long", strings.Repeat("x", 5000), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLocation(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLocation(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
