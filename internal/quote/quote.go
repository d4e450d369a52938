// Package quote implements the narrow POSIX word-quoting collaborator
// spec.md §1 calls out as a separately specified dependency: turning an
// arbitrary string back into shell source that, when parsed and
// expanded, reproduces it exactly (the "quoting neutrality" property,
// spec.md §8). No pack or ecosystem library performs this narrow a
// transform (see DESIGN.md), so it is hand-written.
package quote

import "strings"

// Single quotes s using single-quote syntax, the simplest form that
// round-trips any byte string except one containing a single quote
// itself, which is closed, escaped, and reopened (`'`\''`).
func Single(s string) string {
	if s == "" {
		return "''"
	}
	var b strings.Builder
	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			b.WriteString(`'\''`)
			continue
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('\'')
	return b.String()
}

// special is the set of characters that are special to the shell
// anywhere outside quotes.
const special = " \t\n'\"\\$`*?[#~=%!^&(){}<>;|"

// NeedsQuoting reports whether s contains any character that would
// change the shell's interpretation of the word if left unquoted, or is
// empty (an empty word still needs `''` to round-trip as one field).
func NeedsQuoting(s string) bool {
	if s == "" {
		return true
	}
	return strings.ContainsAny(s, special)
}

// Quote returns s unchanged if it needs no quoting, else single-quotes
// it. This is the form used by `alias` output and `set -x` tracing.
func Quote(s string) string {
	if !NeedsQuoting(s) {
		return s
	}
	return Single(s)
}
