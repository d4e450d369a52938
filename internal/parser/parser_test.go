package parser_test

import (
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"github.com/cmdshell/posh/internal/ast"
	"github.com/cmdshell/posh/internal/input"
	"github.com/cmdshell/posh/internal/lexer"
	"github.com/cmdshell/posh/internal/parser"
	"github.com/cmdshell/posh/internal/source"
)

type declSet map[string]bool

func (d declSet) IsDeclarationUtility(name string) bool { return d[name] }

func newParser(src string, decl parser.DeclUtilityChecker) *parser.Parser {
	l := lexer.New(input.String(src), source.Origin{Kind: source.OriginStdin}, nil)
	return parser.New(l, decl)
}

func parseLine(t *testing.T, src string) *ast.List {
	t.Helper()
	p := newParser(src, nil)
	list, err := p.CommandLine()
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	if list == nil {
		t.Fatalf("parse %q: unexpected end of input", src)
	}
	return list
}

func firstSimple(t *testing.T, list *ast.List) *ast.SimpleCommand {
	t.Helper()
	cmd := list.Items[0].List.First.Commands[0]
	sc, ok := cmd.(ast.SimpleCmd)
	if !ok {
		t.Fatalf("first command is %T, want SimpleCmd", cmd)
	}
	return sc.SimpleCommand
}

func TestSimpleCommand(t *testing.T) {
	list := parseLine(t, "echo one two\n")
	sc := firstSimple(t, list)
	if len(sc.Words) != 3 {
		t.Fatalf("words = %d, want 3", len(sc.Words))
	}
	if len(sc.Assignments) != 0 || len(sc.Redirs) != 0 {
		t.Errorf("unexpected assignments/redirs")
	}
}

func TestAssignmentsBeforeCommandName(t *testing.T) {
	list := parseLine(t, "FOO=bar BAZ=qux cmd arg\n")
	sc := firstSimple(t, list)
	if len(sc.Assignments) != 2 {
		t.Fatalf("assignments = %d, want 2", len(sc.Assignments))
	}
	if sc.Assignments[0].Name != "FOO" || sc.Assignments[1].Name != "BAZ" {
		t.Errorf("assignment names = %q/%q", sc.Assignments[0].Name, sc.Assignments[1].Name)
	}
	if len(sc.Words) != 2 {
		t.Errorf("words = %d, want 2 (cmd arg)", len(sc.Words))
	}
}

func TestAssignmentAfterCommandNameIsOperand(t *testing.T) {
	list := parseLine(t, "cmd FOO=bar\n")
	sc := firstSimple(t, list)
	if len(sc.Assignments) != 0 {
		t.Fatalf("assignment-shaped operand parsed as assignment")
	}
	if len(sc.Words) != 2 {
		t.Fatalf("words = %d, want 2", len(sc.Words))
	}
	if sc.Words[1].Mode != ast.Multiple {
		t.Errorf("plain command operand mode = %v, want Multiple", sc.Words[1].Mode)
	}
}

func TestDeclarationUtilityOperandMode(t *testing.T) {
	p := newParser("export FOO=bar\n", declSet{"export": true})
	list, err := p.CommandLine()
	if err != nil {
		t.Fatal(err)
	}
	sc := list.Items[0].List.First.Commands[0].(ast.SimpleCmd).SimpleCommand
	if len(sc.Words) != 2 {
		t.Fatalf("words = %d, want 2", len(sc.Words))
	}
	if sc.Words[1].Mode != ast.Single {
		t.Errorf("declaration-utility operand mode = %v, want Single", sc.Words[1].Mode)
	}
}

func TestPipeline(t *testing.T) {
	list := parseLine(t, "a | b | c\n")
	pl := list.Items[0].List.First
	if len(pl.Commands) != 3 {
		t.Fatalf("pipeline length = %d, want 3", len(pl.Commands))
	}
	if pl.Negated {
		t.Error("pipeline unexpectedly negated")
	}
}

func TestNegatedPipeline(t *testing.T) {
	list := parseLine(t, "! false\n")
	pl := list.Items[0].List.First
	if !pl.Negated {
		t.Fatal("! not recorded")
	}
}

func TestAndOrList(t *testing.T) {
	list := parseLine(t, "a && b || c\n")
	ao := list.Items[0].List
	if len(ao.Rest) != 2 {
		t.Fatalf("rest = %d, want 2", len(ao.Rest))
	}
	if ao.Rest[0].Op != ast.AndOrAnd || ao.Rest[1].Op != ast.AndOrOr {
		t.Errorf("operators = %v/%v", ao.Rest[0].Op, ao.Rest[1].Op)
	}
}

func TestAsyncItem(t *testing.T) {
	list := parseLine(t, "work & next\n")
	if len(list.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(list.Items))
	}
	if !list.Items[0].Async {
		t.Error("first item not async")
	}
	if list.Items[1].Async {
		t.Error("second item wrongly async")
	}
}

func TestIfElifElse(t *testing.T) {
	list := parseLine(t, "if a; then b; elif c; then d; else e; fi\n")
	cc := list.Items[0].List.First.Commands[0].(ast.CompoundCmd)
	node, ok := cc.Compound.(*ast.If)
	if !ok {
		t.Fatalf("compound is %T, want *If", cc.Compound)
	}
	if len(node.Elifs) != 1 {
		t.Errorf("elifs = %d, want 1", len(node.Elifs))
	}
	if node.Else == nil {
		t.Error("else branch missing")
	}
}

func TestWhileUntil(t *testing.T) {
	list := parseLine(t, "while a; do b; done\n")
	cc := list.Items[0].List.First.Commands[0].(ast.CompoundCmd)
	w, ok := cc.Compound.(*ast.WhileUntil)
	if !ok || w.Until {
		t.Fatalf("compound = %T until=%v", cc.Compound, w != nil && w.Until)
	}

	list = parseLine(t, "until a; do b; done\n")
	cc = list.Items[0].List.First.Commands[0].(ast.CompoundCmd)
	u := cc.Compound.(*ast.WhileUntil)
	if !u.Until {
		t.Error("until not recorded")
	}
}

func TestForLoop(t *testing.T) {
	list := parseLine(t, "for x in a b c; do echo $x; done\n")
	cc := list.Items[0].List.First.Commands[0].(ast.CompoundCmd)
	f, ok := cc.Compound.(*ast.For)
	if !ok {
		t.Fatalf("compound is %T, want *For", cc.Compound)
	}
	if f.Name != "x" {
		t.Errorf("loop variable = %q", f.Name)
	}
	if len(f.Values) != 3 {
		t.Errorf("values = %d, want 3", len(f.Values))
	}
}

func TestForLoopWithoutIn(t *testing.T) {
	list := parseLine(t, "for x; do echo $x; done\n")
	cc := list.Items[0].List.First.Commands[0].(ast.CompoundCmd)
	f := cc.Compound.(*ast.For)
	if f.Values != nil {
		t.Error("absent `in` clause should leave Values nil (positional parameters)")
	}
}

func TestCase(t *testing.T) {
	list := parseLine(t, "case $x in a|b) one;; *) two;; esac\n")
	cc := list.Items[0].List.First.Commands[0].(ast.CompoundCmd)
	c, ok := cc.Compound.(*ast.Case)
	if !ok {
		t.Fatalf("compound is %T, want *Case", cc.Compound)
	}
	if len(c.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(c.Items))
	}
	if len(c.Items[0].Patterns) != 2 {
		t.Errorf("first item patterns = %d, want 2", len(c.Items[0].Patterns))
	}
	if c.Items[0].Terminator != ast.CaseBreak {
		t.Errorf("terminator = %v, want CaseBreak", c.Items[0].Terminator)
	}
}

func TestSubshellAndGrouping(t *testing.T) {
	list := parseLine(t, "(a; b)\n")
	cc := list.Items[0].List.First.Commands[0].(ast.CompoundCmd)
	if _, ok := cc.Compound.(*ast.Subshell); !ok {
		t.Fatalf("compound is %T, want *Subshell", cc.Compound)
	}

	list = parseLine(t, "{ a; b; }\n")
	cc = list.Items[0].List.First.Commands[0].(ast.CompoundCmd)
	if _, ok := cc.Compound.(*ast.Grouping); !ok {
		t.Fatalf("compound is %T, want *Grouping", cc.Compound)
	}
}

func TestFunctionDefinition(t *testing.T) {
	list := parseLine(t, "greet() { echo hi; }\n")
	fd, ok := list.Items[0].List.First.Commands[0].(*ast.FunctionDefinition)
	if !ok {
		t.Fatalf("command is %T, want *FunctionDefinition", list.Items[0].List.First.Commands[0])
	}
	if fd.Name != "greet" {
		t.Errorf("function name = %q", fd.Name)
	}
	if fd.Body == nil {
		t.Fatal("function body missing")
	}
}

func TestRedirections(t *testing.T) {
	list := parseLine(t, "cmd < in > out 2>&1 >> log\n")
	sc := firstSimple(t, list)
	if len(sc.Redirs) != 4 {
		t.Fatalf("redirs = %d, want 4", len(sc.Redirs))
	}
	if r := sc.Redirs[0]; r.Fd != 0 {
		t.Errorf("first redir fd = %d, want 0", r.Fd)
	}
	if r := sc.Redirs[2]; r.Fd != 2 {
		t.Errorf("2>&1 fd = %d, want 2", r.Fd)
	}
	if _, ok := sc.Redirs[2].Body.(ast.DupRedir); !ok {
		t.Errorf("2>&1 body = %T, want DupRedir", sc.Redirs[2].Body)
	}
	if fr, ok := sc.Redirs[3].Body.(ast.FileRedir); !ok || fr.Op != ast.RedirAppend {
		t.Errorf(">> did not parse as append")
	}
}

func TestHereDocBody(t *testing.T) {
	list := parseLine(t, "cat <<EOF\nline one\nline two\nEOF\n")
	sc := firstSimple(t, list)
	if len(sc.Redirs) != 1 {
		t.Fatalf("redirs = %d, want 1", len(sc.Redirs))
	}
	hd, ok := sc.Redirs[0].Body.(ast.HereDoc)
	if !ok {
		t.Fatalf("redir body = %T, want HereDoc", sc.Redirs[0].Body)
	}
	if hd.Content != "line one\nline two\n" {
		t.Errorf("content = %q", hd.Content)
	}
	if hd.Quoted {
		t.Error("unquoted delimiter marked quoted")
	}
}

func TestHereDocQuotedDelimiter(t *testing.T) {
	list := parseLine(t, "cat <<'EOF'\n$not_expanded\nEOF\n")
	sc := firstSimple(t, list)
	hd := sc.Redirs[0].Body.(ast.HereDoc)
	if !hd.Quoted {
		t.Error("quoted delimiter not marked")
	}
	if hd.Content != "$not_expanded\n" {
		t.Errorf("content = %q", hd.Content)
	}
}

func TestHereDocStripTabs(t *testing.T) {
	list := parseLine(t, "cat <<-EOF\n\tindented\n\tEOF\n")
	sc := firstSimple(t, list)
	hd := sc.Redirs[0].Body.(ast.HereDoc)
	if !hd.StripTabs {
		t.Fatal("<<- did not record StripTabs")
	}
	if hd.Content != "indented\n" {
		t.Errorf("content = %q (tabs should be stripped)", hd.Content)
	}
}

func TestCommandLineReturnsNilAtEOF(t *testing.T) {
	p := newParser("", nil)
	list, err := p.CommandLine()
	if err != nil {
		t.Fatal(err)
	}
	if list != nil {
		t.Fatalf("expected nil at EOF, got %+v", list)
	}
}

func TestSyntaxErrors(t *testing.T) {
	bad := []string{
		"if a; then b\n",      // missing fi at EOF
		"while a; do b\n",     // missing done
		"case x in a) b\n",    // missing esac
		"(a; b\n",             // missing )
		"| cmd\n",             // pipeline with no first command
		"a &&\n",              // dangling &&
	}
	for _, src := range bad {
		t.Run(src, func(t *testing.T) {
			p := newParser(src, nil)
			if _, err := p.CommandLine(); err == nil {
				t.Fatalf("parse %q succeeded, want syntax error", src)
			}
		})
	}
}

func TestSyntaxErrorCarriesLocation(t *testing.T) {
	p := newParser("(a; b\n", nil)
	_, err := p.CommandLine()
	perr, ok := err.(*parser.Error)
	if !ok {
		t.Fatalf("error type = %T, want *parser.Error", err)
	}
	if !perr.Loc.Valid() {
		t.Error("syntax error lacks a Location")
	}
}

// TestPrintRoundTrip checks spec'd printer law: printing a parsed tree
// and re-parsing yields an equivalent tree (compared via its printed
// form, which normalizes layout).
func TestPrintRoundTrip(t *testing.T) {
	sources := []string{
		"echo hello\n",
		"echo 'single quoted'\n",
		"x=1 y=2 cmd a b\n",
		"a | b | c\n",
		"! a && b || c\n",
		"work &\n",
		"if a; then b; else c; fi\n",
		"while a; do b; done\n",
		"until a; do b; done\n",
		"for x in a b; do echo $x; done\n",
		"case $x in a|b) one;; *) two;; esac\n",
		"(a; b)\n",
		"{ a; b; }\n",
		"greet() { echo hi; }\n",
		"cmd < in > out 2>&1\n",
		"echo ${name:-default}\n",
		"echo ${x##*2}\n",
		"echo \"quoted $v here\"\n",
		"echo $(inner cmd)\n",
		"echo $((1 + 2))\n",
	}
	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			first := ast.Print(parseLine(t, src))
			second := ast.Print(parseLine(t, first+"\n"))
			if first != second {
				t.Errorf("round trip diverged:\n first: %s\nsecond: %s", first, second)
			}
			snaps.MatchSnapshot(t, first)
		})
	}
}
