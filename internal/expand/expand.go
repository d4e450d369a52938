package expand

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cmdshell/posh/internal/arith"
	"github.com/cmdshell/posh/internal/ast"
	"github.com/cmdshell/posh/internal/fnmatch"
	"github.com/cmdshell/posh/internal/lexer"
	"github.com/cmdshell/posh/internal/source"
)

// Error is an expansion-time failure (spec.md §7's "Expansion error"):
// unset parameter under nounset, a triggered `${name:?msg}`, an
// arithmetic failure, or a command-substitution failure.
type Error struct {
	Msg string
	Loc source.Location
}

func (e *Error) Error() string { return e.Msg }

func errAt(loc source.Location, format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...), Loc: loc}
}

// Variables is the narrow variable-lookup/assignment contract the
// expander needs from internal/state.Environment (spec.md §3.5);
// declared here, not imported from internal/state, so the two packages
// depend on each other only through this interface (Go's idiomatic
// analogue of spec.md §9's "dependency bag").
type Variables interface {
	// Lookup resolves name to its scalar value, or its array values if
	// it is array-typed; ok is false if unset.
	Lookup(name string) (scalar string, array []string, isArray bool, ok bool)
	// Assign writes name's scalar value into the appropriate scope.
	Assign(name, value string) error
	// AssignArray writes name's array value.
	AssignArray(name string, values []string) error
	// Positional returns the n'th positional parameter (1-based); ok is
	// false if n is out of range.
	Positional(n int) (string, bool)
	PositionalCount() int
	PositionalAll() []string
	// Special resolves a special parameter: "$", "!", "-", "?", "0".
	Special(name string) (string, bool)
	IFS() string
	OptionSet(name string) bool
}

// System is the narrow capability contract the expander needs:
// resolving `~user` and listing directory entries for pathname
// expansion (spec.md §6.5's Filesystem group).
type System interface {
	HomeDir(user string) (string, bool)
	ReadDir(path string) ([]string, error)
}

// CommandRunner runs a command-substitution body in a subshell and
// captures its stdout, the "dependency bag" hook breaking the
// expand→interp cycle (spec.md §9): the expander cannot import the
// executor directly since the executor itself calls back into the
// expander for every word.
type CommandRunner func(body []*ast.Item) (output string, exitStatus int, err error)

// Expander holds the collaborators one expansion pass needs.
type Expander struct {
	Vars       Variables
	Sys        System
	RunCommand CommandRunner
	LastStatus *int // receives the exit status of each command substitution
}

// New creates an Expander.
func New(vars Variables, sys System, run CommandRunner, lastStatus *int) *Expander {
	return &Expander{Vars: vars, Sys: sys, RunCommand: run, LastStatus: lastStatus}
}

// Words expands each operand of a simple command, honoring its
// recorded ExpandMode, and returns the concatenated argv fields
// (spec.md §4.5 step 1).
func (e *Expander) Words(operands []ast.WordOperand) ([]string, error) {
	var out []string
	for _, op := range operands {
		willSplit := op.Mode == ast.Multiple
		phrase, err := e.ExpandWord(op.Word, willSplit)
		if err != nil {
			return nil, err
		}
		for _, f := range phrase {
			out = append(out, f.Strip())
		}
	}
	return out, nil
}

// ExpandWord runs the pipeline on w: initial expansion, then, iff
// willSplit, field splitting and pathname expansion (the latter unless
// noglob is set). Brace expansion is not performed. Quote removal is
// left to the caller via Field.Strip/Phrase.Join so that callers
// needing attributed characters (pattern compilation, prompt
// rendering) can skip the final collapse.
func (e *Expander) ExpandWord(w *ast.Word, willSplit bool) (Phrase, error) {
	phrase, err := e.initialExpand(w)
	if err != nil {
		return nil, err
	}
	if willSplit {
		phrase = e.fieldSplit(phrase)
		if !e.Vars.OptionSet("noglob") {
			phrase = e.pathnameExpand(phrase)
		}
		return phrase, nil
	}
	// A non-splitting context (redirection target, case subject, trim
	// pattern word...) still wants exactly one field even if every unit
	// expanded to nothing.
	if len(phrase) == 0 {
		phrase = Phrase{Field{}}
	}
	return phrase, nil
}

// ExpandWordScalar expands w with WillSplit=false and joins the result
// into a single plain string (quote removal applied), the form used
// for redirection targets, here-strings and case subjects (spec.md
// §4.4, §4.6).
func (e *Expander) ExpandWordScalar(w *ast.Word) (string, error) {
	phrase, err := e.initialExpand(w)
	if err != nil {
		return "", err
	}
	return phrase.Join(" "), nil
}

// ExpandHereDocText expands an unquoted here-document body's embedded
// parameter/command/arithmetic expansions (spec.md §4.6: "field
// splitting and pathname expansion are not" applied), following the
// same quoting-neutral rules double-quoted text uses.
func (e *Expander) ExpandHereDocText(text string) (string, error) {
	units, err := lexer.HeredocUnits(text)
	if err != nil {
		return "", err
	}
	field, multi, err := e.expandDoubleQuote(units)
	if err != nil {
		return "", err
	}
	if multi != nil {
		ifsSep := firstIFS(e.Vars.IFS())
		var joined Field
		for i, m := range multi {
			if i > 0 {
				joined = append(joined, quotedSoftField(ifsSep)...)
			}
			joined = append(joined, m...)
		}
		field = joined
	}
	return field.Strip(), nil
}

// ExpandAssignment implements spec.md §4.4's final paragraph: same
// engine, WillSplit=false, noglob-effective; a scalar result joins
// fields with spaces; array-typed targets keep the Phrase as-is.
func (e *Expander) ExpandAssignment(w *ast.Word) (scalar string, fields []string, err error) {
	phrase, err := e.initialExpand(w)
	if err != nil {
		return "", nil, err
	}
	fields = make([]string, len(phrase))
	for i, f := range phrase {
		fields[i] = f.Strip()
	}
	return phrase.Join(" "), fields, nil
}

// initialExpand maps Word → Phrase by walking units (spec.md §4.4 step 1).
func (e *Expander) initialExpand(w *ast.Word) (Phrase, error) {
	var field Field
	var phrase Phrase
	flush := func() {
		if field != nil {
			phrase = append(phrase, field)
			field = nil
		}
	}
	for _, u := range w.Units {
		switch uu := u.(type) {
		case ast.Unquoted:
			tf, multi, err := e.expandTextUnit(uu.Unit, false)
			if err != nil {
				return nil, err
			}
			if multi != nil {
				flush()
				phrase = append(phrase, multi...)
				continue
			}
			field = append(field, tf...)
		case ast.SingleQuote:
			field = append(field, quotingChar('\''))
			field = append(field, quotedField(uu.Value, OriginLiteral)...)
			field = append(field, quotingChar('\''))
		case ast.DollarSingleQuote:
			field = append(field, quotingChar('\''))
			field = append(field, quotedField(uu.Value, OriginLiteral)...)
			field = append(field, quotingChar('\''))
		case ast.DoubleQuote:
			field = append(field, quotingChar('"'))
			inner, multi, err := e.expandDoubleQuote(uu.Units)
			if err != nil {
				return nil, err
			}
			if multi != nil {
				// "$@": one field per positional parameter; the first
				// joins whatever prefix this word already accumulated,
				// the last collects the rest of the word. Zero
				// parameters: the quoted span contributes nothing at
				// all, not an empty field.
				if len(multi) == 0 {
					field = field[:len(field)-1]
					if len(field) == 0 {
						field = nil
					}
					continue
				}
				for i, m := range multi {
					if i > 0 {
						phrase = append(phrase, field)
						field = nil
					}
					field = append(field, m...)
				}
				field = append(field, quotingChar('"'))
				continue
			}
			field = append(field, inner...)
			field = append(field, quotingChar('"'))
		case ast.Tilde:
			var home string
			var ok bool
			if uu.Name == "" {
				home, _, _, ok = e.Vars.Lookup("HOME")
			} else if e.Sys != nil {
				home, ok = e.Sys.HomeDir(uu.Name)
			}
			if ok {
				field = append(field, hardField(home)...)
			} else {
				prefix := "~" + uu.Name
				field = append(field, literalField(prefix)...)
			}
		}
	}
	flush()
	return phrase, nil
}

// expandDoubleQuote expands the inner units of a DoubleQuote span. If
// the span reduces to a single `$@`/array expansion, multi is returned
// instead (each array element marked Quoted) per spec.md §4.4.
func (e *Expander) expandDoubleQuote(units []ast.TextUnit) (Field, []Field, error) {
	var field Field
	for _, u := range units {
		tf, multi, err := e.expandTextUnit(u, true)
		if err != nil {
			return nil, nil, err
		}
		if multi != nil && len(units) == 1 {
			return nil, multi, nil
		}
		if multi != nil {
			// Embedded in a larger quoted span: join with first IFS char.
			ifsSep := firstIFS(e.Vars.IFS())
			var joined Field
			for i, m := range multi {
				if i > 0 {
					joined = append(joined, quotedSoftField(ifsSep)...)
				}
				joined = append(joined, m...)
			}
			field = append(field, joined...)
			continue
		}
		field = append(field, markQuoted(tf)...)
	}
	return field, nil, nil
}

func firstIFS(ifs string) string {
	if ifs == "" {
		return " "
	}
	return string([]rune(ifs)[0])
}

// expandTextUnit expands one TextUnit. multi is non-nil only for `$@`/
// array-typed parameter expansions, which the caller splices as
// separate fields.
func (e *Expander) expandTextUnit(u ast.TextUnit, inDouble bool) (field Field, multi []Field, err error) {
	switch t := u.(type) {
	case ast.Literal:
		return literalField(t.Value), nil, nil
	case ast.Backslash:
		if inDouble {
			return quotedField(string(t.Value), OriginLiteral), nil, nil
		}
		return append(Field{quotingChar('\\')}, quotedField(string(t.Value), OriginLiteral)...), nil, nil
	case ast.RawParam:
		return e.expandParam(t.Name, nil, t.Loc, inDouble)
	case ast.BracedParam:
		return e.expandBracedParam(t, inDouble)
	case ast.CommandSubst:
		out, err := e.runSubst(t.Body, t.Loc)
		if err != nil {
			return nil, nil, err
		}
		if inDouble {
			return quotedSoftField(out), nil, nil
		}
		return softField(out), nil, nil
	case ast.Backquote:
		out, err := e.runSubst(t.Body, t.Loc)
		if err != nil {
			return nil, nil, err
		}
		if inDouble {
			return quotedSoftField(out), nil, nil
		}
		return softField(out), nil, nil
	case ast.Arith:
		v, err := arith.Eval(t.Expr, arithVars{e})
		if err != nil {
			return nil, nil, errAt(t.Loc, "%s", err.Error())
		}
		s := strconv.FormatInt(v, 10)
		if inDouble {
			return quotedSoftField(s), nil, nil
		}
		return softField(s), nil, nil
	}
	return nil, nil, nil
}

func (e *Expander) runSubst(body []*ast.Item, loc source.Location) (string, error) {
	if e.RunCommand == nil {
		return "", errAt(loc, "command substitution unavailable: no run-function injected")
	}
	out, status, err := e.RunCommand(body)
	if err != nil {
		return "", errAt(loc, "command substitution failed: %s", err.Error())
	}
	if e.LastStatus != nil {
		*e.LastStatus = status
	}
	return strings.TrimRight(out, "\n"), nil
}

// arithVars adapts Expander+Variables to arith.Vars.
type arithVars struct{ e *Expander }

func (a arithVars) GetInt(name string) int64 {
	if name == "" {
		return 0
	}
	scalar, _, _, ok := a.e.Vars.Lookup(name)
	if !ok {
		return 0
	}
	n, _ := strconv.ParseInt(strings.TrimSpace(scalar), 0, 64)
	return n
}

func (a arithVars) SetInt(name string, value int64) error {
	return a.e.Vars.Assign(name, strconv.FormatInt(value, 10))
}

// ExpandPattern expands w as a single non-splitting field (spec.md
// §4.5's Case subject/pattern handling) and renders it as pattern
// source text, ready for fnmatch — quoted characters come back
// backslash-escaped so they match themselves literally.
func (e *Expander) ExpandPattern(w *ast.Word) (string, error) {
	phrase, err := e.ExpandWord(w, false)
	if err != nil {
		return "", err
	}
	return patternText(phrase.Flatten()), nil
}

// pathnameExpand implements spec.md §4.4 step 4: each field whose
// unquoted characters contain pattern metacharacters is matched
// against the real directory listing; no match leaves the field
// unchanged.
func (e *Expander) pathnameExpand(phrase Phrase) Phrase {
	if e.Sys == nil {
		return phrase
	}
	var out Phrase
	for _, f := range phrase {
		pat := patternText(f)
		if !fnmatch.HasMeta(pat) {
			out = append(out, f)
			continue
		}
		matches := e.globField(pat)
		if len(matches) == 0 {
			out = append(out, f)
			continue
		}
		sort.Strings(matches)
		for _, m := range matches {
			out = append(out, literalField(m))
		}
	}
	return out
}

// patternText renders a field as pattern source: quoted characters are
// backslash-escaped so fnmatch treats them literally (spec.md §3.4:
// "Pattern-matching characters are literal iff quoted").
func patternText(f Field) string {
	var sb strings.Builder
	for _, c := range f {
		if c.Quoting {
			continue
		}
		if c.Quoted || c.Origin != OriginLiteral {
			switch c.Value {
			case '*', '?', '[', '\\':
				sb.WriteByte('\\')
			}
		}
		sb.WriteRune(c.Value)
	}
	return sb.String()
}

func (e *Expander) globField(pat string) []string {
	dir, base := "", pat
	if idx := strings.LastIndexByte(pat, '/'); idx >= 0 {
		dir, base = pat[:idx], pat[idx+1:]
		if dir == "" {
			dir = "/"
		}
	}
	entries, err := e.Sys.ReadDir(dirOrDot(dir))
	if err != nil {
		return nil
	}
	var matches []string
	for _, name := range entries {
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(base, ".") {
			continue
		}
		ok, err := fnmatch.Match(base, name)
		if err != nil || !ok {
			continue
		}
		if dir == "" {
			matches = append(matches, name)
		} else {
			matches = append(matches, dir+"/"+name)
		}
	}
	return matches
}

func dirOrDot(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
