// Package source models the immutable code fragments that flow through the
// lexer, parser and executor. A [Code] is a growable buffer of source text
// with an origin; a [Location] is a byte range into one Code. Locations
// survive across every later phase and are what error messages, trap
// frames and $LINENO ultimately point back to.
package source

import "strings"

// OriginKind tags where a [Code]'s text came from.
type OriginKind int

const (
	// OriginStdin is interactive or piped standard input.
	OriginStdin OriginKind = iota
	// OriginScriptFile is a script passed as a command-line argument.
	OriginScriptFile
	// OriginEvalArgument is the operand of `-c command_string`.
	OriginEvalArgument
	// OriginAlias is text spliced in by alias substitution.
	OriginAlias
	// OriginCommandSubstitution is the body of `$(...)` or backquotes.
	OriginCommandSubstitution
	// OriginDotScript is a file read by `.`/`source`.
	OriginDotScript
	// OriginTrapBody is a trap action's command text.
	OriginTrapBody
	// OriginArith is the inner expression of `$((...))`.
	OriginArith
	// OriginHeredocBody is an unquoted here-document body re-lexed for
	// its embedded parameter/command/arithmetic expansions.
	OriginHeredocBody
)

// Origin describes the provenance of a [Code]'s text.
type Origin struct {
	Kind OriginKind

	// Name is the script path, alias name, or trap condition name,
	// depending on Kind. Empty when not applicable.
	Name string

	// AliasAt is the Location of the word that triggered an alias
	// substitution, set only when Kind == OriginAlias.
	AliasAt *Location
}

// Code is an immutable-once-built record of source text. Lines are
// appended to it as an interactive or streamed input producer delivers
// them; it is never mutated after the unit producing it (a single
// parsed command, a here-document body, ...) has been fully consumed.
// Code is always shared by pointer: every Location referencing it keeps
// it alive, and nothing ever copies one.
type Code struct {
	text        strings.Builder
	startLine   int
	origin      Origin
	lineOffsets []int // byte offset of the start of each line; lazily built
}

// NewCode creates an empty Code fragment starting at startLine (1-based)
// with the given origin.
func NewCode(startLine int, origin Origin) *Code {
	c := &Code{startLine: startLine, origin: origin}
	c.lineOffsets = []int{0}
	return c
}

// Append adds text (normally one line, including its trailing newline if
// any) to the fragment and returns the byte offset at which it starts.
func (c *Code) Append(text string) int {
	start := c.text.Len()
	c.text.WriteString(text)
	for i, r := range text {
		if r == '\n' {
			c.lineOffsets = append(c.lineOffsets, start+i+1)
		}
	}
	return start
}

// Text returns the full accumulated source text.
func (c *Code) Text() string { return c.text.String() }

// Len returns the number of bytes currently accumulated.
func (c *Code) Len() int { return c.text.Len() }

// StartLine returns the 1-based line number of the first line in this
// fragment.
func (c *Code) StartLine() int { return c.startLine }

// Origin returns the fragment's provenance.
func (c *Code) Origin() Origin { return c.origin }

// LineCol converts a byte offset into this Code into a 1-based
// (line, column) pair, where column is a rune count from the start of
// the line (matching the teacher lexer's rune-counted-column
// convention).
func (c *Code) LineCol(offset int) (line, col int) {
	text := c.Text()
	if offset > len(text) {
		offset = len(text)
	}
	lineIdx := 0
	for i := 1; i < len(c.lineOffsets); i++ {
		if c.lineOffsets[i] > offset {
			break
		}
		lineIdx = i
	}
	lineStart := c.lineOffsets[lineIdx]
	col = 1
	for _, r := range text[lineStart:offset] {
		_ = r
		col++
	}
	return c.startLine + lineIdx, col
}

// LineText returns the full text of the given 1-based line number
// relative to this fragment, or "" if out of range.
func (c *Code) LineText(line int) string {
	idx := line - c.startLine
	if idx < 0 || idx >= len(c.lineOffsets) {
		return ""
	}
	text := c.Text()
	start := c.lineOffsets[idx]
	end := len(text)
	if idx+1 < len(c.lineOffsets) {
		end = c.lineOffsets[idx+1]
	}
	line2 := text[start:end]
	return strings.TrimRight(line2, "\n")
}

// Location identifies a byte range [Start,End) within a Code fragment.
// A zero-width Location (Start == End) is used for diagnostics that
// point at a single position (e.g. unexpected EOF).
type Location struct {
	Code       *Code
	Start, End int
}

// Line returns the 1-based starting line of the location.
func (l Location) Line() int {
	line, _ := l.Code.LineCol(l.Start)
	return line
}

// Column returns the 1-based starting column (rune count) of the
// location.
func (l Location) Column() int {
	_, col := l.Code.LineCol(l.Start)
	return col
}

// Text returns the source text covered by the location.
func (l Location) Text() string {
	if l.Code == nil {
		return ""
	}
	full := l.Code.Text()
	if l.End > len(full) {
		return full[l.Start:]
	}
	return full[l.Start:l.End]
}

// Valid reports whether the location references a Code fragment.
func (l Location) Valid() bool { return l.Code != nil }
