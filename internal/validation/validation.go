package validation

import (
	"net/mail"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	defaultMaxMessageLength   = 5000
	defaultMaxAttachmentBytes = 10 << 20
	defaultMaxAttachments     = 10
	MaxTitleLength            = 255
)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}

func envPositiveInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// MaxMessageLength is the limit, in characters, applied to trimmed message bodies.
func MaxMessageLength() int {
	return envPositiveInt("MAX_MESSAGE_LENGTH", defaultMaxMessageLength)
}

// MaxAttachmentBytes bounds a single uploaded file.
func MaxAttachmentBytes() int64 {
	return int64(envPositiveInt("MAX_ATTACHMENT_BYTES", defaultMaxAttachmentBytes))
}

func MaxAttachmentsPerMessage() int {
	return envPositiveInt("MAX_ATTACHMENTS_PER_MESSAGE", defaultMaxAttachments)
}

// TrimAndLimit trims surrounding whitespace and cuts s to at most max runes.
func TrimAndLimit(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// NormalizeTitle returns nil for blank titles.
func NormalizeTitle(title *string) *string {
	if title == nil {
		return nil
	}
	t := TrimAndLimit(*title, MaxTitleLength)
	if t == "" {
		return nil
	}
	return &t
}
