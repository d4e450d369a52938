package interp_test

import (
	"strings"
	"testing"

	"github.com/cmdshell/posh/internal/ast"
	"github.com/cmdshell/posh/internal/builtin"
	"github.com/cmdshell/posh/internal/expand"
	"github.com/cmdshell/posh/internal/input"
	"github.com/cmdshell/posh/internal/interp"
	"github.com/cmdshell/posh/internal/lexer"
	"github.com/cmdshell/posh/internal/parser"
	"github.com/cmdshell/posh/internal/source"
	"github.com/cmdshell/posh/internal/state"
	"github.com/cmdshell/posh/internal/system"
)

type harness struct {
	ex     *interp.Executor
	sys    *system.Virtual
	stdout *[]byte
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	sys := system.NewVirtual()
	sys.InstallFd(0)
	out := sys.InstallFd(1)
	sys.InstallFd(2)

	env := state.New("posh", nil)
	env.SetPid(sys.Getpid())
	ex := interp.New(env, sys, builtin.New(), nil)
	ex.Expander = expand.New(env, sys, ex.RunCommandSubstitution, env.ExitStatusPtr())
	ex.RunList = func(list *ast.List) (interp.Divert, error) {
		return ex.ExecList(list), nil
	}
	return &harness{ex: ex, sys: sys, stdout: out}
}

func (h *harness) parse(t *testing.T, src string) *ast.List {
	t.Helper()
	lex := lexer.New(input.String(src), source.Origin{Kind: source.OriginStdin}, h.ex.Env.Aliases)
	p := parser.New(lex, nil)
	list, err := p.CommandLine()
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return list
}

func (h *harness) exec(t *testing.T, src string) interp.Divert {
	t.Helper()
	return h.ex.ExecList(h.parse(t, src))
}

func TestExecSetsExitStatus(t *testing.T) {
	h := newHarness(t)
	h.exec(t, "false\n")
	if got := h.ex.Env.ExitStatus(); got != 1 {
		t.Errorf("status = %d, want 1", got)
	}
	h.exec(t, "true\n")
	if got := h.ex.Env.ExitStatus(); got != 0 {
		t.Errorf("status = %d, want 0", got)
	}
}

func TestDivertStatusOr(t *testing.T) {
	n := 5
	d := interp.Divert{Kind: interp.DivertExit, Status: &n}
	if d.StatusOr(9) != 5 {
		t.Error("StatusOr ignored explicit status")
	}
	if (interp.Divert{Kind: interp.DivertExit}).StatusOr(9) != 9 {
		t.Error("StatusOr ignored fallback")
	}
	if !interp.None.IsNone() {
		t.Error("None is not none")
	}
}

func TestBreakOutsideLoopTopLevel(t *testing.T) {
	h := newHarness(t)
	d := h.exec(t, "break\n")
	if d.Kind != interp.DivertBreak {
		t.Errorf("divert = %v, want break (consumed by the loop or loop-less caller)", d.Kind)
	}
}

func TestPipefail(t *testing.T) {
	h := newHarness(t)
	h.ex.Env.Options.Set("pipefail", true)
	h.exec(t, "false | true\n")
	if got := h.ex.Env.ExitStatus(); got != 1 {
		t.Errorf("pipefail status = %d, want 1", got)
	}
}

func TestPipelineStatusIsLastCommand(t *testing.T) {
	h := newHarness(t)
	h.exec(t, "false | true\n")
	if got := h.ex.Env.ExitStatus(); got != 0 {
		t.Errorf("status = %d, want 0 (last command wins without pipefail)", got)
	}
}

func TestCommandKind(t *testing.T) {
	h := newHarness(t)
	h.exec(t, "f() { :; }\n")
	h.sys.WriteFile("/bin/prog", nil, true)
	h.ex.Env.Vars.Assign("PATH", "/bin")

	tests := []struct {
		name     string
		wantKind string
	}{
		{"exit", "special builtin"},
		{"f", "function"},
		{"echo", "builtin"},
		{"prog", "file"},
	}
	for _, tt := range tests {
		kind, _, ok := h.ex.CommandKind(tt.name, false)
		if !ok || kind != tt.wantKind {
			t.Errorf("CommandKind(%s) = %q/%v, want %q", tt.name, kind, ok, tt.wantKind)
		}
	}
	if _, _, ok := h.ex.CommandKind("nope", false); ok {
		t.Error("unknown name resolved")
	}

	// command's function bypass.
	kind, _, _ := h.ex.CommandKind("f", true)
	if kind == "function" {
		t.Error("noFunctions lookup still found the function")
	}
}

func TestRunTextExecutesEveryList(t *testing.T) {
	h := newHarness(t)
	d, err := h.ex.RunText("echo one\necho two\n", source.Origin{Kind: source.OriginEvalArgument})
	if err != nil {
		t.Fatal(err)
	}
	if !d.IsNone() {
		t.Errorf("divert = %v", d.Kind)
	}
	if got := string(*h.stdout); got != "one\ntwo\n" {
		t.Errorf("stdout = %q", got)
	}
}

func TestCommandSubstitutionStatusVisible(t *testing.T) {
	h := newHarness(t)
	h.exec(t, "x=$(false)\n")
	// The inner exit status lands in $? through the ExitStatusSink.
	got, _, _, _ := h.ex.Env.Vars.Lookup("x")
	if got != "" {
		t.Errorf("x = %q", got)
	}
	if st := h.ex.Env.ExitStatus(); st != 1 {
		t.Errorf("$? = %d, want 1", st)
	}
}

func TestRedirectionRestoredAfterCommand(t *testing.T) {
	h := newHarness(t)
	h.exec(t, "echo first > /out\n")
	h.exec(t, "echo second\n")
	if got := string(*h.stdout); got != "second\n" {
		t.Errorf("stdout = %q (redirection leaked across commands?)", got)
	}
}

func TestFunctionDefinitionSharesBody(t *testing.T) {
	h := newHarness(t)
	h.exec(t, "f() { echo ran; }\n")
	fn := h.ex.Env.Functions.Lookup("f")
	if fn == nil {
		t.Fatal("function not recorded")
	}
	h.exec(t, "f; f\n")
	if got := string(*h.stdout); got != "ran\nran\n" {
		t.Errorf("stdout = %q", got)
	}
	if again := h.ex.Env.Functions.Lookup("f"); again.Body != fn.Body {
		t.Error("function body pointer changed between calls")
	}
}

func TestErrexitSkipsConditions(t *testing.T) {
	h := newHarness(t)
	h.ex.Env.Options.Set("errexit", true)

	d := h.exec(t, "if false; then echo a; else echo b; fi\n")
	if !d.IsNone() {
		t.Fatalf("errexit fired inside an if condition: %v", d.Kind)
	}
	if !strings.Contains(string(*h.stdout), "b\n") {
		t.Errorf("stdout = %q", string(*h.stdout))
	}

	d = h.exec(t, "! false\n")
	if !d.IsNone() {
		t.Errorf("errexit fired on a negated pipeline: %v", d.Kind)
	}
}

func TestErrexitFiresOnPlainFailure(t *testing.T) {
	h := newHarness(t)
	h.ex.Env.Options.Set("errexit", true)
	d := h.exec(t, "false\n")
	if d.Kind != interp.DivertExit {
		t.Errorf("divert = %v, want exit", d.Kind)
	}
}
