package validation

import (
	"os"
	"strings"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected bool
	}{
		{"Valid email", "user@example.com", true},
		{"Valid email with subdomain", "user@mail.example.com", true},
		{"Empty email", "", false},
		{"Email without @", "userexample.com", false},
		{"Email without domain", "user@", false},
		{"Email with spaces", "user @example.com", false},
		{"Valid email with dots", "user.name@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateEmail(tt.email)
			if result != tt.expected {
				t.Errorf("ValidateEmail(%q) = %v, want %v", tt.email, result, tt.expected)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected string
	}{
		{"Email with uppercase", "User@EXAMPLE.COM", "user@example.com"},
		{"Email with spaces", "  user@example.com  ", "user@example.com"},
		{"Lowercase email", "user@example.com", "user@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeEmail(tt.email)
			if result != tt.expected {
				t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.email, result, tt.expected)
			}
		})
	}
}

func TestMaxMessageLength(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected int
	}{
		{"Default", "", 5000},
		{"Custom", "120", 120},
		{"Invalid env value", "lots", 5000},
		{"Zero", "0", 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue == "" {
				os.Unsetenv("MAX_MESSAGE_LENGTH")
			} else {
				t.Setenv("MAX_MESSAGE_LENGTH", tt.envValue)
			}
			if got := MaxMessageLength(); got != tt.expected {
				t.Errorf("MaxMessageLength() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestMaxAttachmentBytes(t *testing.T) {
	os.Unsetenv("MAX_ATTACHMENT_BYTES")
	if got := MaxAttachmentBytes(); got != 10<<20 {
		t.Errorf("MaxAttachmentBytes() = %d, want %d", got, 10<<20)
	}
	t.Setenv("MAX_ATTACHMENT_BYTES", "2048")
	if got := MaxAttachmentBytes(); got != 2048 {
		t.Errorf("MaxAttachmentBytes() = %d, want 2048", got)
	}
}

func TestTrimAndLimit(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		limit    int
		expected string
	}{
		{"Normal string", "hello world", 20, "hello world"},
		{"String with spaces", "  hello world  ", 20, "hello world"},
		{"String exceeding limit", "hello world this is too long", 10, "hello worl"},
		{"Empty string", "", 20, ""},
		{"String at limit", "hello", 5, "hello"},
		{"Multibyte runes", "héllo wörld", 7, "héllo w"},
		{"Whitespace only", "   \n\t ", 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TrimAndLimit(tt.input, tt.limit)
			if result != tt.expected {
				t.Errorf("TrimAndLimit(%q, %d) = %q, want %q", tt.input, tt.limit, result, tt.expected)
			}
		})
	}
}

func TestNormalizeTitle(t *testing.T) {
	blank := "   "
	if NormalizeTitle(&blank) != nil {
		t.Error("blank title should normalize to nil")
	}
	if NormalizeTitle(nil) != nil {
		t.Error("nil title should stay nil")
	}
	long := strings.Repeat("a", MaxTitleLength+10)
	got := NormalizeTitle(&long)
	if got == nil || len(*got) != MaxTitleLength {
		t.Errorf("long title not limited: %v", got)
	}
}
