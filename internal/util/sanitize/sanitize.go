// Package sanitize cleans channel strings and shell fragments read from
// settings files, channel lists and the terminal.
//
// It removes:
//   - Windows/Mac line endings (CRLF/CR → LF)
//   - Invisible Unicode characters (zero-width spaces, etc.)
//   - Repeated whitespace
package sanitize

import (
	"regexp"
	"strings"
)

var (
	blankRun   = regexp.MustCompile(`[ \t]+`)
	newlineRun = regexp.MustCompile(`\n+`)
	anyRun     = regexp.MustCompile(`\s+`)
)

// SanitizeCommand removes problematic characters from a shell fragment such as
// the additional generator flags.
func SanitizeCommand(cmd string) string {
	if cmd == "" {
		return cmd
	}

	cmd = strings.ReplaceAll(cmd, "\r\n", "\n")
	cmd = strings.ReplaceAll(cmd, "\r", "\n")

	cmd = removeInvisibleChars(cmd)
	cmd = normalizeWhitespace(cmd)

	return strings.TrimSpace(cmd)
}

// SanitizeChannel normalizes a raw channel string: invisible characters are
// removed, all whitespace collapses to single spaces and one pair of
// surrounding double quotes is stripped.
func SanitizeChannel(channel string) string {
	channel = removeInvisibleChars(channel)
	channel = strings.TrimSpace(channel)
	if len(channel) >= 2 && strings.HasPrefix(channel, `"`) && strings.HasSuffix(channel, `"`) {
		channel = channel[1 : len(channel)-1]
	}
	channel = anyRun.ReplaceAllString(channel, " ")
	return strings.TrimSpace(channel)
}

// removeInvisibleChars removes zero-width and other invisible Unicode characters
func removeInvisibleChars(s string) string {
	invisibleChars := []string{
		"\u200B", // Zero-width space
		"\u200C", // Zero-width non-joiner
		"\u200D", // Zero-width joiner
		"\uFEFF", // Zero-width no-break space (BOM)
		"\u00AD", // Soft hyphen
		"\u2060", // Word joiner
		"\u180E", // Mongolian vowel separator
	}

	for _, char := range invisibleChars {
		s = strings.ReplaceAll(s, char, "")
	}

	return s
}

// normalizeWhitespace replaces sequences of whitespace with single spaces
func normalizeWhitespace(s string) string {
	s = blankRun.ReplaceAllString(s, " ")
	return newlineRun.ReplaceAllString(s, "\n")
}
