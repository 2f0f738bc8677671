// Package sanitize strips injection-prone fragments from free-text questions.
package sanitize

import "strings"

// MaxLength bounds a sanitized question, in runes.
const MaxLength = 1000

// denylist is matched case-sensitively, longest fragments first.
var denylist = []string{
	"DELETE",
	"INSERT",
	"UPDATE",
	"DROP",
	"/*",
	"*/",
	"--",
	"'",
	`"`,
	"`",
	";",
	"<",
	">",
}

// Sanitize removes denylisted fragments and surrounding whitespace.
// Removal repeats until nothing changes, so the result is a fixpoint and
// sanitizing twice equals sanitizing once. The output is never longer than raw.
func Sanitize(raw string) string {
	out := truncate(raw)
	for {
		next := strings.TrimSpace(strip(out))
		if next == out {
			return out
		}
		out = next
	}
}

func strip(s string) string {
	for _, token := range denylist {
		s = strings.ReplaceAll(s, token, "")
	}
	return s
}

func truncate(s string) string {
	if len(s) <= MaxLength {
		return s
	}
	n := 0
	for i := range s {
		if n == MaxLength {
			return s[:i]
		}
		n++
	}
	return s
}
