package middleware

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Input validation and sanitization utilities

var deviceIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ValidateDeviceID validates device ID format
func ValidateDeviceID(device string) error {
	if device == "" {
		return fmt.Errorf("device ID cannot be empty")
	}
	if !deviceIDPattern.MatchString(device) {
		return fmt.Errorf("invalid device ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateRecordID validates record ID format
func ValidateRecordID(id string) error {
	if id == "" {
		return fmt.Errorf("record ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid record ID format")
	}
	return nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// SanitizeString removes NUL and control characters, keeping tabs and newlines.
func SanitizeString(input string) string {
	var result strings.Builder
	result.Grow(len(input))
	for _, r := range input {
		if r == '\r' {
			continue
		}
		if r >= 32 && r != 0x7f || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}
