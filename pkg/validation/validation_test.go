package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "web-frontend", SanitizeString("  web-frontend  "))
	assert.Equal(t, "abc", SanitizeString("a\x00b\x01c"))
	assert.Equal(t, "line1\nline2", SanitizeString("line1\nline2"))
}

func TestValidateServiceName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "web-frontend", false},
		{"valid with underscore", "api_v2", false},
		{"valid numeric start", "3tier-app", false},
		{"empty", "", true},
		{"too short", "ab", true},
		{"leading hyphen", "-web", true},
		{"spaces", "my service", true},
		{"reserved", "admin", true},
		{"reserved mixed case", "RooT", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServiceName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Str0ngpass"))
	assert.Error(t, ValidatePassword("short1A"))
	assert.Error(t, ValidatePassword("alllowercase1"))
	assert.Error(t, ValidatePassword("ALLUPPERCASE1"))
	assert.Error(t, ValidatePassword("NoNumbersHere"))
}
