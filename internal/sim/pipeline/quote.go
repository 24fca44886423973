package pipeline

import (
	"regexp"
	"strings"
)

var shellSafe = regexp.MustCompile(`^[A-Za-z0-9_/.+\-=:,@%]+$`)

// shellQuote returns s unchanged when the shell would read it as one plain
// word, otherwise single-quoted.
func shellQuote(s string) string {
	if s != "" && shellSafe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
