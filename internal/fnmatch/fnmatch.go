// Package fnmatch implements the glob-pattern collaborator spec.md §1
// calls out as a narrow, separately specified dependency: POSIX shell
// pattern matching for pathname expansion, `case`, and trim modifiers.
// It wraps mvdan.cc/sh/v3/pattern (SPEC_FULL.md §3) rather than
// hand-rolling glob-to-regexp translation — the one domain piece the
// spec itself says may be an external collaborator.
package fnmatch

import (
	"regexp"

	"mvdan.cc/sh/v3/pattern"
)

// Mode tunes pattern.Regexp's translation.
type Mode = pattern.Mode

// Match reports whether name matches the shell pattern pat in its
// entirety (POSIX pattern-matching notation: `*`, `?`, `[...]`).
// The pattern is translated without pattern.Filenames, so `*` and `?`
// also match '/'.
func Match(pat, name string) (bool, error) {
	re, err := Translate(pat, false)
	if err != nil {
		return false, err
	}
	return re.MatchString(name), nil
}

// Translate compiles pat into a compiled regular expression anchored to
// match the whole subject string, the form internal/expand uses for
// pathname components and `case` subjects alike. filenameMode enables
// pattern.Filenames (`*`/`?` do not cross `/`), used for pathname
// expansion but not for `case`/trim matching.
func Translate(pat string, filenameMode bool) (*regexp.Regexp, error) {
	mode := pattern.EntireString
	if filenameMode {
		mode |= pattern.Filenames
	}
	expr, err := pattern.Regexp(pat, mode)
	if err != nil {
		return nil, err
	}
	return regexp.Compile(expr)
}

// HasMeta reports whether pat contains any unescaped pattern
// metacharacter, used by internal/expand to skip pathname expansion
// for fields with no pattern content (spec.md §4.4 step 4: "No match:
// the field is left unchanged", an optimization that also avoids a
// needless directory read).
func HasMeta(pat string) bool {
	for i := 0; i < len(pat); i++ {
		switch pat[i] {
		case '*', '?', '[':
			return true
		case '\\':
			i++
		}
	}
	return false
}
