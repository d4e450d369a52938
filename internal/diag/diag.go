// Package diag formats shell diagnostics with source context,
// line/column information and a caret pointing at the offending
// Location, modeled directly on the teacher's internal/errors package
// (SPEC_FULL.md §2). Unlike the teacher's single-Position error, a
// Diagnostic carries a chain of auxiliary annotations (spec.md §7: "a
// primary Location and auxiliary annotations") so a syntax error can
// point at both the failing token and, say, the unmatched opening
// quote or here-doc delimiter that caused it.
package diag

import (
	"fmt"
	"strings"

	"github.com/cmdshell/posh/internal/source"
)

// Annotation is one (message, Location) pair chained onto a
// Diagnostic, rendered after the primary message.
type Annotation struct {
	Message string
	Loc     source.Location
}

// Diagnostic is a single user-visible error: a primary message and
// Location, plus zero or more auxiliary annotations.
type Diagnostic struct {
	Message     string
	Loc         source.Location
	Annotations []Annotation
}

// New creates a Diagnostic with no annotations.
func New(loc source.Location, format string, args ...any) *Diagnostic {
	return &Diagnostic{Message: fmt.Sprintf(format, args...), Loc: loc}
}

// Error implements the error interface.
func (d *Diagnostic) Error() string { return d.Format(false) }

// Annotate appends an auxiliary annotation and returns d for chaining.
func (d *Diagnostic) Annotate(loc source.Location, format string, args ...any) *Diagnostic {
	d.Annotations = append(d.Annotations, Annotation{Message: fmt.Sprintf(format, args...), Loc: loc})
	return d
}

// Format renders the diagnostic with a source excerpt and caret under
// the primary Location, followed by each annotation the same way. If
// color is true, ANSI escapes highlight the message and caret.
func (d *Diagnostic) Format(color bool) string {
	var sb strings.Builder
	writeSnippet(&sb, d.Loc, d.Message, color)
	for _, a := range d.Annotations {
		sb.WriteString("\n")
		writeSnippet(&sb, a.Loc, a.Message, color)
	}
	return sb.String()
}

func writeSnippet(sb *strings.Builder, loc source.Location, message string, color bool) {
	if !loc.Valid() {
		if color {
			sb.WriteString("\033[1;31m")
		}
		sb.WriteString(message)
		if color {
			sb.WriteString("\033[0m")
		}
		return
	}
	line, col := loc.Code.LineCol(loc.Start)
	name := loc.Code.Origin().Name
	if name == "" {
		fmt.Fprintf(sb, "line %d:%d: ", line, col)
	} else {
		fmt.Fprintf(sb, "%s:%d:%d: ", name, line, col)
	}
	if color {
		sb.WriteString("\033[1m")
	}
	sb.WriteString(message)
	if color {
		sb.WriteString("\033[0m")
	}

	srcLine := loc.Code.LineText(line)
	if srcLine == "" {
		return
	}
	sb.WriteString("\n")
	lineNumStr := fmt.Sprintf("%4d | ", line)
	sb.WriteString(lineNumStr)
	sb.WriteString(srcLine)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat(" ", len(lineNumStr)+col-1))
	if color {
		sb.WriteString("\033[1;31m")
	}
	sb.WriteString("^")
	if color {
		sb.WriteString("\033[0m")
	}
}

// FormatAll formats a slice of diagnostics, one per error, separated by
// blank lines.
func FormatAll(diags []*Diagnostic, color bool) string {
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = d.Format(color)
	}
	return strings.Join(parts, "\n\n")
}
