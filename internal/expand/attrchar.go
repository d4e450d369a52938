// Package expand implements the word → phrase → field expansion
// pipeline (spec.md §4.4): initial expansion (parameter, command,
// arithmetic, tilde), field splitting, pathname expansion and quote
// removal (brace expansion is not performed), tracking quoting/origin attributes on
// every character the way the teacher's internal/interp/evaluator
// threads type and location information through expression evaluation.
package expand

import "strings"

// Origin classifies where an AttrChar's value came from, driving which
// characters are eligible for field splitting and pattern specialness
// (spec.md §3.4).
type Origin int

const (
	// Literal characters came directly from source text (unquoted) or
	// single/double-quoted spans; never split, never re-interpreted as
	// pattern metacharacters unless genuinely unquoted source syntax.
	OriginLiteral Origin = iota
	// HardExpansion characters came from tilde expansion: never split.
	// (Expansion results inside double quotes stay SoftExpansion and
	// carry the Quoted flag instead.)
	OriginHardExpansion
	// SoftExpansion characters came from parameter/command/arithmetic
	// expansion outside quotes: eligible for field splitting and, when
	// unquoted, for pathname-pattern specialness.
	OriginSoftExpansion
)

// AttrChar is one character carrying the quoting/origin attributes
// that survive from expansion through splitting into quote removal
// (spec.md §3.4).
type AttrChar struct {
	Value   rune
	Origin  Origin
	Quoted  bool // protected from splitting and pattern specialness
	Quoting bool // a quote syntax character; deleted by quote removal
}

// Field is an ordered run of AttrChars, the unit field splitting
// operates over.
type Field []AttrChar

// Phrase is an ordered sequence of zero or more Fields, the
// intermediate result of initial expansion before field splitting
// (spec.md §3.4).
type Phrase []Field

// literalField returns s as unquoted Literal-origin characters.
func literalField(s string) Field {
	f := make(Field, 0, len(s))
	for _, r := range s {
		f = append(f, AttrChar{Value: r, Origin: OriginLiteral})
	}
	return f
}

// quotedField appends s as Literal-origin, quoted characters (the
// contents of a single-quoted or double-quoted span).
func quotedField(s string, origin Origin) Field {
	f := make(Field, 0, len(s))
	for _, r := range s {
		f = append(f, AttrChar{Value: r, Origin: origin, Quoted: true})
	}
	return f
}

// quotingChar returns a single AttrChar representing a quote syntax
// character (the `'`/`"` delimiters themselves), deleted by quote
// removal and never contributing to the stripped value.
func quotingChar(r rune) AttrChar {
	return AttrChar{Value: r, Origin: OriginLiteral, Quoting: true}
}

// softField appends s as unquoted SoftExpansion characters (the
// product of parameter/command/arithmetic expansion outside quotes).
func softField(s string) Field {
	f := make(Field, 0, len(s))
	for _, r := range s {
		f = append(f, AttrChar{Value: r, Origin: OriginSoftExpansion})
	}
	return f
}

// quotedSoftField is softField with every character additionally
// marked Quoted (expansion result inside double quotes).
func quotedSoftField(s string) Field {
	f := make(Field, 0, len(s))
	for _, r := range s {
		f = append(f, AttrChar{Value: r, Origin: OriginSoftExpansion, Quoted: true})
	}
	return f
}

// hardField appends s as unquoted HardExpansion characters (tilde
// expansion).
func hardField(s string) Field {
	f := make(Field, 0, len(s))
	for _, r := range s {
		f = append(f, AttrChar{Value: r, Origin: OriginHardExpansion})
	}
	return f
}

// markQuoted returns a copy of f with every character's Quoted flag
// forced true — applied to the inner expansion of a DoubleQuote unit
// (spec.md §4.4: "mark every resulting character is_quoted=true except
// those produced by an already-quoting unit").
func markQuoted(f Field) Field {
	out := make(Field, len(f))
	for i, c := range f {
		c.Quoted = true
		out[i] = c
	}
	return out
}

// String renders a Field's raw values, ignoring attributes — used for
// diagnostics and for feeding a field into fnmatch/arith as plain text.
func (f Field) String() string {
	var sb strings.Builder
	for _, c := range f {
		sb.WriteRune(c.Value)
	}
	return sb.String()
}

// StripQuoting deletes every Quoting character (quote removal) and
// returns the remaining characters.
func (f Field) StripQuoting() Field {
	out := make(Field, 0, len(f))
	for _, c := range f {
		if c.Quoting {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Strip applies quote removal then attribute stripping, yielding the
// final plain string value (spec.md §4.4 step 5).
func (f Field) Strip() string {
	return f.StripQuoting().String()
}

// Join renders every field's stripped value joined by sep — used for
// `$*` inside double quotes and for assignment-expansion's scalar join
// (spec.md §4.4).
func (p Phrase) Join(sep string) string {
	parts := make([]string, len(p))
	for i, f := range p {
		parts[i] = f.Strip()
	}
	return strings.Join(parts, sep)
}

// Flatten concatenates every field's characters into one Field, used
// internally when a construct (e.g. a pattern word, a here-doc
// delimiter) wants the whole phrase as a single run of attributed
// characters irrespective of field boundaries.
func (p Phrase) Flatten() Field {
	var out Field
	for _, f := range p {
		out = append(out, f...)
	}
	return out
}
