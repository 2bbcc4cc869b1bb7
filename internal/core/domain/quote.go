package domain

import (
	"regexp"
	"strings"
)

// shellSafePattern matches values that can appear on a command line bare.
// Anything else (spaces, '=', globs, quotes) gets wrapped in double quotes.
var shellSafePattern = regexp.MustCompile(`^[A-Za-z0-9_.,:/@+-]+$`)

// shellEscaper escapes the characters the shell still interprets inside
// double quotes.
var shellEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"`", "\\`",
	`$`, `\$`,
)

// ShellQuote returns s quoted for a POSIX shell command line. Safe values
// pass through untouched so generated commands stay readable.
func ShellQuote(s string) string {
	if s != "" && shellSafePattern.MatchString(s) {
		return s
	}
	return `"` + shellEscaper.Replace(s) + `"`
}

// ShellQuoteAll quotes each element of a list.
func ShellQuoteAll(items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = ShellQuote(item)
	}
	return out
}
