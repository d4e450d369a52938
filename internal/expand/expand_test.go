package expand_test

import (
	"strings"
	"testing"

	"github.com/cmdshell/posh/internal/ast"
	"github.com/cmdshell/posh/internal/expand"
	"github.com/cmdshell/posh/internal/input"
	"github.com/cmdshell/posh/internal/lexer"
	"github.com/cmdshell/posh/internal/source"

	// Registers the nested-items parser hook for $(...) words.
	_ "github.com/cmdshell/posh/internal/parser"
)

// fakeVars is a minimal Variables implementation for expansion tests.
type fakeVars struct {
	vars   map[string]string
	arrays map[string][]string
	pos    []string
	ifs    string
	opts   map[string]bool
}

func newFakeVars() *fakeVars {
	return &fakeVars{
		vars:   map[string]string{},
		arrays: map[string][]string{},
		ifs:    " \t\n",
		opts:   map[string]bool{},
	}
}

func (v *fakeVars) Lookup(name string) (string, []string, bool, bool) {
	if a, ok := v.arrays[name]; ok {
		return "", a, true, true
	}
	s, ok := v.vars[name]
	return s, nil, false, ok
}

func (v *fakeVars) Assign(name, value string) error {
	v.vars[name] = value
	return nil
}

func (v *fakeVars) AssignArray(name string, values []string) error {
	v.arrays[name] = values
	return nil
}

func (v *fakeVars) Positional(n int) (string, bool) {
	if n < 1 || n > len(v.pos) {
		return "", false
	}
	return v.pos[n-1], true
}

func (v *fakeVars) PositionalCount() int    { return len(v.pos) }
func (v *fakeVars) PositionalAll() []string { return append([]string(nil), v.pos...) }

func (v *fakeVars) Special(name string) (string, bool) {
	switch name {
	case "$":
		return "12345", true
	case "?":
		return "0", true
	case "0":
		return "posh", true
	}
	return "", false
}

func (v *fakeVars) IFS() string              { return v.ifs }
func (v *fakeVars) OptionSet(n string) bool  { return v.opts[n] }

// fakeSystem backs tilde and pathname expansion.
type fakeSystem struct {
	homes map[string]string
	dirs  map[string][]string
}

func (s *fakeSystem) HomeDir(user string) (string, bool) {
	d, ok := s.homes[user]
	return d, ok
}

func (s *fakeSystem) ReadDir(path string) ([]string, error) {
	return s.dirs[path], nil
}

func parseWord(t *testing.T, src string) *ast.Word {
	t.Helper()
	l := lexer.New(input.String(src+"\n"), source.Origin{Kind: source.OriginStdin}, nil)
	tok, err := l.Next()
	if err != nil {
		t.Fatalf("lex %q: %v", src, err)
	}
	w, ok := tok.Word.(*ast.Word)
	if !ok {
		t.Fatalf("token for %q is not a word", src)
	}
	return w
}

func newExpander(vars *fakeVars, sys *fakeSystem) *expand.Expander {
	status := 0
	var esys expand.System
	if sys != nil {
		esys = sys
	}
	return expand.New(vars, esys, nil, &status)
}

func expandFields(t *testing.T, e *expand.Expander, src string, willSplit bool) []string {
	t.Helper()
	phrase, err := e.ExpandWord(parseWord(t, src), willSplit)
	if err != nil {
		t.Fatalf("expand %q: %v", src, err)
	}
	out := make([]string, len(phrase))
	for i, f := range phrase {
		out[i] = f.Strip()
	}
	return out
}

func assertFields(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("fields = %q, want %q", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("fields = %q, want %q", got, want)
		}
	}
}

func TestLiteralWord(t *testing.T) {
	e := newExpander(newFakeVars(), nil)
	assertFields(t, expandFields(t, e, "hello", true), "hello")
}

func TestSingleQuoteProtectsSpaces(t *testing.T) {
	e := newExpander(newFakeVars(), nil)
	assertFields(t, expandFields(t, e, "'a b c'", true), "a b c")
}

func TestParamSplitsUnquoted(t *testing.T) {
	vars := newFakeVars()
	vars.vars["x"] = "a b c"
	e := newExpander(vars, nil)
	assertFields(t, expandFields(t, e, "$x", true), "a", "b", "c")
}

func TestParamQuotedDoesNotSplit(t *testing.T) {
	vars := newFakeVars()
	vars.vars["x"] = "a b c"
	e := newExpander(vars, nil)
	assertFields(t, expandFields(t, e, `"$x"`, true), "a b c")
}

func TestEmptyUnquotedExpansionVanishes(t *testing.T) {
	e := newExpander(newFakeVars(), nil)
	assertFields(t, expandFields(t, e, "$unset", true))
}

func TestEmptyQuotedExpansionSurvives(t *testing.T) {
	e := newExpander(newFakeVars(), nil)
	assertFields(t, expandFields(t, e, `"$unset"`, true), "")
	assertFields(t, expandFields(t, e, `""`, true), "")
}

func TestCustomIFSPunctuation(t *testing.T) {
	vars := newFakeVars()
	vars.vars["x"] = "a::b"
	vars.ifs = ":"
	e := newExpander(vars, nil)
	assertFields(t, expandFields(t, e, "$x", true), "a", "", "b")
}

func TestEmptyIFSDisablesSplitting(t *testing.T) {
	vars := newFakeVars()
	vars.vars["x"] = "a b c"
	vars.ifs = ""
	e := newExpander(vars, nil)
	assertFields(t, expandFields(t, e, "$x", true), "a b c")
}

func TestSwitchModifiers(t *testing.T) {
	vars := newFakeVars()
	vars.vars["set"] = "value"
	vars.vars["empty"] = ""
	e := newExpander(vars, nil)

	assertFields(t, expandFields(t, e, "${unset:-def}", false), "def")
	assertFields(t, expandFields(t, e, "${set:-def}", false), "value")
	assertFields(t, expandFields(t, e, "${empty:-def}", false), "def")
	// Without the colon, a set-but-empty variable keeps its (empty) value.
	assertFields(t, expandFields(t, e, "${empty-def}", false), "")
	assertFields(t, expandFields(t, e, "${set:+alt}", false), "alt")
	assertFields(t, expandFields(t, e, "${unset:+alt}", false), "")
}

func TestAssignModifierUpdatesVariable(t *testing.T) {
	vars := newFakeVars()
	e := newExpander(vars, nil)
	assertFields(t, expandFields(t, e, "${x:=word}", false), "word")
	if vars.vars["x"] != "word" {
		t.Errorf("variable after := is %q, want %q", vars.vars["x"], "word")
	}
}

func TestErrorModifier(t *testing.T) {
	e := newExpander(newFakeVars(), nil)
	_, err := e.ExpandWord(parseWord(t, "${unset:?custom message}"), false)
	if err == nil {
		t.Fatal("${unset:?} did not fail")
	}
	if !strings.Contains(err.Error(), "custom message") {
		t.Errorf("error = %q, want the custom message", err)
	}
}

func TestLengthModifier(t *testing.T) {
	vars := newFakeVars()
	vars.vars["x"] = "héllo"
	e := newExpander(vars, nil)
	// Character count, not byte count.
	assertFields(t, expandFields(t, e, "${#x}", false), "5")
}

func TestTrimModifiers(t *testing.T) {
	vars := newFakeVars()
	vars.vars["x"] = "123123123"
	vars.vars["file"] = "dir/name.txt"
	e := newExpander(vars, nil)

	assertFields(t, expandFields(t, e, "${x#*2}", false), "3123123")
	assertFields(t, expandFields(t, e, "${x##*2}", false), "3")
	assertFields(t, expandFields(t, e, "${x%2*}", false), "1231231")
	assertFields(t, expandFields(t, e, "${x%%2*}", false), "1")
	assertFields(t, expandFields(t, e, "${file%.txt}", false), "dir/name")
	assertFields(t, expandFields(t, e, "${file##*/}", false), "name.txt")
}

func TestNounsetFailsOnUnset(t *testing.T) {
	vars := newFakeVars()
	vars.opts["nounset"] = true
	e := newExpander(vars, nil)
	if _, err := e.ExpandWord(parseWord(t, "$missing"), true); err == nil {
		t.Fatal("nounset did not reject an unset variable")
	}
	// A default modifier supplies a value and suppresses the error.
	assertFields(t, expandFields(t, e, "${missing:-ok}", false), "ok")
}

func TestPositionalParameters(t *testing.T) {
	vars := newFakeVars()
	vars.pos = []string{"one", "two three"}
	e := newExpander(vars, nil)

	assertFields(t, expandFields(t, e, "$1", false), "one")
	assertFields(t, expandFields(t, e, "$#", false), "2")
	assertFields(t, expandFields(t, e, `"$@"`, true), "one", "two three")
	vars.ifs = ","
	assertFields(t, expandFields(t, e, `"$*"`, true), "one,two three")
}

func TestUnquotedAtSplits(t *testing.T) {
	vars := newFakeVars()
	vars.pos = []string{"a b", "c"}
	e := newExpander(vars, nil)
	assertFields(t, expandFields(t, e, "$@", true), "a", "b", "c")
}

func TestTildeExpansion(t *testing.T) {
	vars := newFakeVars()
	vars.vars["HOME"] = "/home/me"
	sys := &fakeSystem{homes: map[string]string{"bob": "/home/bob"}}
	e := newExpander(vars, sys)

	assertFields(t, expandFields(t, e, "~/docs", false), "/home/me/docs")
	assertFields(t, expandFields(t, e, "~bob/x", false), "/home/bob/x")
	// Unknown user: the prefix stays literal.
	assertFields(t, expandFields(t, e, "~ghost/x", false), "~ghost/x")
}

func TestArithExpansionWord(t *testing.T) {
	vars := newFakeVars()
	vars.vars["n"] = "6"
	e := newExpander(vars, nil)
	assertFields(t, expandFields(t, e, "$((n * 7))", false), "42")
}

func TestCommandSubstitution(t *testing.T) {
	vars := newFakeVars()
	status := 0
	runner := func(body []*ast.Item) (string, int, error) {
		return "captured output\n\n", 9, nil
	}
	e := expand.New(vars, nil, runner, &status)

	got := expandFields(t, e, "$(anything)", false)
	assertFields(t, got, "captured output")
	if status != 9 {
		t.Errorf("exit status sink = %d, want 9", status)
	}
}

func TestCommandSubstitutionSplits(t *testing.T) {
	vars := newFakeVars()
	status := 0
	runner := func(body []*ast.Item) (string, int, error) {
		return "a b\nc\n", 0, nil
	}
	e := expand.New(vars, nil, runner, &status)
	assertFields(t, expandFields(t, e, "$(x)", true), "a", "b", "c")
}

func TestPathnameExpansion(t *testing.T) {
	vars := newFakeVars()
	sys := &fakeSystem{dirs: map[string][]string{
		".": {"b.go", "a.go", "c.txt", ".hidden.go"},
	}}
	e := newExpander(vars, sys)

	// Matches are sorted; dotfiles stay hidden from a non-dot pattern.
	assertFields(t, expandFields(t, e, "*.go", true), "a.go", "b.go")
	// No match leaves the pattern untouched.
	assertFields(t, expandFields(t, e, "*.rs", true), "*.rs")
}

func TestNoglobDisablesPathnameExpansion(t *testing.T) {
	vars := newFakeVars()
	vars.opts["noglob"] = true
	sys := &fakeSystem{dirs: map[string][]string{".": {"a.go"}}}
	e := newExpander(vars, sys)
	assertFields(t, expandFields(t, e, "*.go", true), "*.go")
}

func TestQuotedStarDoesNotGlob(t *testing.T) {
	vars := newFakeVars()
	sys := &fakeSystem{dirs: map[string][]string{".": {"a.go"}}}
	e := newExpander(vars, sys)
	assertFields(t, expandFields(t, e, `'*.go'`, true), "*.go")
}

func TestExpansionResultDoesNotGlob(t *testing.T) {
	vars := newFakeVars()
	vars.vars["pat"] = "*.go"
	sys := &fakeSystem{dirs: map[string][]string{".": {"a.go"}}}
	e := newExpander(vars, sys)
	// Pattern characters are special only with Literal origin.
	assertFields(t, expandFields(t, e, "$pat", true), "*.go")
}

func TestQuoteRemovalIdempotence(t *testing.T) {
	e := newExpander(newFakeVars(), nil)
	phrase, err := e.ExpandWord(parseWord(t, `'a'"b"c`), false)
	if err != nil {
		t.Fatal(err)
	}
	once := phrase[0].StripQuoting()
	twice := once.StripQuoting()
	if once.String() != twice.String() {
		t.Errorf("quote removal not idempotent: %q vs %q", once.String(), twice.String())
	}
	if got := phrase[0].Strip(); got != "abc" {
		t.Errorf("stripped = %q, want abc", got)
	}
}

func TestWordsConcatenation(t *testing.T) {
	vars := newFakeVars()
	vars.vars["x"] = "mid"
	e := newExpander(vars, nil)
	assertFields(t, expandFields(t, e, "pre${x}post", true), "premidpost")
}

func TestExpandAssignment(t *testing.T) {
	vars := newFakeVars()
	vars.vars["x"] = "a b"
	e := newExpander(vars, nil)
	scalar, _, err := e.ExpandAssignment(parseWord(t, "$x-suffix"))
	if err != nil {
		t.Fatal(err)
	}
	// Assignments never field-split.
	if scalar != "a b-suffix" {
		t.Errorf("assignment value = %q", scalar)
	}
}
