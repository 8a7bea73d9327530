package logger

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Length caps for logged values, in bytes.
const (
	MaxPathLength          = 500
	MaxProfileIDLength     = 64 // UUIDs are 36
	MaxErrorMessageLength  = 1000
	MaxGeneralStringLength = 2000
	MaxPreviewLength       = 200
	MaxDebugContentLength  = 10000
)

// SanitizeString makes s safe for a single log field: invalid UTF-8 and
// control characters other than whitespace are dropped, and the result is
// cut to maxLength bytes on a rune boundary with "..." appended.
// maxLength <= 0 means MaxGeneralStringLength.
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}
	s = strings.Map(func(r rune) rune {
		if r == utf8.RuneError || (!unicode.IsPrint(r) && !unicode.IsSpace(r)) {
			return -1
		}
		return r
	}, strings.ToValidUTF8(s, ""))
	if len(s) <= maxLength {
		return s
	}
	cut := maxLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// SanitizePath sanitizes a URL path for logging.
func SanitizePath(path string) string {
	return SanitizeString(path, MaxPathLength)
}

// SanitizeError returns err's message sanitized for logging.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}

// SanitizeProfileID sanitizes a profile ID for logging.
func SanitizeProfileID(profileID string) string {
	return SanitizeString(profileID, MaxProfileIDLength)
}

// Preview shortens a prompt or model response for logging. full raises
// the cap for debug mode.
func Preview(s string, full bool) string {
	if full {
		return SanitizeString(s, MaxDebugContentLength)
	}
	return SanitizeString(s, MaxPreviewLength)
}

// RedactDetails replaces free-text check-in details with their length so
// journal content never reaches the logs.
func RedactDetails(details string) string {
	if details == "" {
		return ""
	}
	return "[redacted " + strconv.Itoa(utf8.RuneCountInString(details)) + " chars]"
}
