package repl_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cmdshell/posh/internal/builtin"
	"github.com/cmdshell/posh/internal/expand"
	"github.com/cmdshell/posh/internal/input"
	"github.com/cmdshell/posh/internal/interp"
	"github.com/cmdshell/posh/internal/repl"
	"github.com/cmdshell/posh/internal/source"
	"github.com/cmdshell/posh/internal/state"
	"github.com/cmdshell/posh/internal/system"
	"github.com/cmdshell/posh/internal/trap"
)

// shell is one fully wired interpreter over a Virtual system, the
// in-memory analogue of cmd/posh's runShell.
type shell struct {
	sys    *system.Virtual
	env    *state.Environment
	ex     *interp.Executor
	stdout *[]byte
	stderr *[]byte
	stdin  *[]byte
	errBuf bytes.Buffer
}

func newShell(t *testing.T, args ...string) *shell {
	t.Helper()
	sys := system.NewVirtual()
	sh := &shell{sys: sys}
	sh.stdin = sys.InstallFd(0)
	sh.stdout = sys.InstallFd(1)
	sh.stderr = sys.InstallFd(2)

	sh.env = state.New("posh", args)
	sh.env.SetPid(sys.Getpid())
	sh.ex = interp.New(sh.env, sys, builtin.New(), nil)
	sh.ex.Expander = expand.New(sh.env, sys, sh.ex.RunCommandSubstitution, sh.env.ExitStatusPtr())
	return sh
}

// run feeds script through the read-eval loop and returns the final
// exit status.
func (sh *shell) run(script string) int {
	loop := repl.New(sh.ex, trap.New(sh.ex, sh.sys), input.String(script),
		source.Origin{Kind: source.OriginScriptFile, Name: "test.sh"})
	loop.Stderr = &sh.errBuf
	return loop.Run()
}

func (sh *shell) out() string { return string(*sh.stdout) }

func runScript(t *testing.T, script string) (string, int) {
	t.Helper()
	sh := newShell(t)
	status := sh.run(script)
	return sh.out(), status
}

func TestEchoAndStatus(t *testing.T) {
	out, status := runScript(t, "echo hello world\n")
	if out != "hello world\n" {
		t.Errorf("stdout = %q", out)
	}
	if status != 0 {
		t.Errorf("status = %d", status)
	}
}

func TestVariableAssignmentAndExpansion(t *testing.T) {
	out, _ := runScript(t, "x=shell\necho the $x speaks\n")
	if out != "the shell speaks\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestPipelineThroughExternalCommand(t *testing.T) {
	sh := newShell(t)
	sh.sys.WriteFile("/bin/tr", []byte("#!elf"), true)
	sh.sys.ProgramExternal("/bin/tr", 0, "HELLO\n", "")
	sh.env.Vars.Assign("PATH", "/bin")

	status := sh.run("echo hello | tr a-z A-Z\n")
	if sh.out() != "HELLO\n" {
		t.Errorf("stdout = %q, want HELLO", sh.out())
	}
	if status != 0 {
		t.Errorf("status = %d", status)
	}
}

func TestFunctionReturnPreservesSubshellStatus(t *testing.T) {
	out, status := runScript(t, "f() { (exit 47); return; echo X; }\nf\necho done $?\n")
	if out != "done 47\n" {
		t.Errorf("stdout = %q, want %q", out, "done 47\n")
	}
	if status != 0 {
		t.Errorf("status = %d", status)
	}
}

func TestSignalTrapReturnOverridesStatus(t *testing.T) {
	script := "trap '(exit 1); return 10; echo X $?' INT\n" +
		"f() { (kill -INT $$; exit 2); echo Y $?; }\n" +
		"f\n" +
		"echo Z $?\n"
	out, status := runScript(t, script)
	if out != "Z 10\n" {
		t.Errorf("stdout = %q, want %q", out, "Z 10\n")
	}
	if status != 0 {
		t.Errorf("status = %d", status)
	}
}

func TestErrexitInSubshell(t *testing.T) {
	out, status := runScript(t, "set -e\n(false)\necho reached\n")
	if out != "" {
		t.Errorf("stdout = %q, want empty (errexit should stop the shell)", out)
	}
	if status != 1 {
		t.Errorf("status = %d, want 1", status)
	}
}

func TestTrimLongestPrefix(t *testing.T) {
	out, status := runScript(t, "x=123123123\nprintf '%s\\n' \"${x##*2}\"\n")
	if out != "3\n" {
		t.Errorf("stdout = %q, want %q", out, "3\n")
	}
	if status != 0 {
		t.Errorf("status = %d", status)
	}
}

func TestAliasTrailingBlank(t *testing.T) {
	script := "alias ll='echo '\nalias dir='mydir'\nll dir\n"
	out, _ := runScript(t, script)
	if out != "mydir\n" {
		t.Errorf("stdout = %q, want %q (POSIX trailing-blank rule)", out, "mydir\n")
	}
}

func TestAndOrShortCircuit(t *testing.T) {
	out, _ := runScript(t, "true && echo yes || echo no\nfalse && echo yes || echo no\n")
	if out != "yes\nno\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestNegatedPipelineStatus(t *testing.T) {
	_, status := runScript(t, "! true\n")
	if status != 1 {
		t.Errorf("! true status = %d, want 1", status)
	}
	_, status = runScript(t, "! false\n")
	if status != 0 {
		t.Errorf("! false status = %d, want 0", status)
	}
}

func TestIfElse(t *testing.T) {
	out, _ := runScript(t, "if false; then echo a; elif true; then echo b; else echo c; fi\n")
	if out != "b\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestWhileLoopWithBreak(t *testing.T) {
	script := `i=0
while true; do
  i=$((i + 1))
  echo $i
  break
done
echo after $i
`
	out, _ := runScript(t, script)
	if out != "1\nafter 1\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestUntilLoop(t *testing.T) {
	script := `i=0
until false; do
  i=$((i + 1))
  echo $i
  break
done
`
	out, _ := runScript(t, script)
	if !strings.HasPrefix(out, "1\n") {
		t.Errorf("stdout = %q", out)
	}
}

func TestForLoop(t *testing.T) {
	out, _ := runScript(t, "for x in a b c; do echo item $x; done\n")
	if out != "item a\nitem b\nitem c\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestForLoopOverPositionals(t *testing.T) {
	sh := newShell(t, "p1", "p2")
	sh.run("for a; do echo got $a; done\n")
	if sh.out() != "got p1\ngot p2\n" {
		t.Errorf("stdout = %q", sh.out())
	}
}

func TestBreakN(t *testing.T) {
	script := `for a in 1 2; do
  for b in x y; do
    echo $a$b
    break 2
  done
done
echo end
`
	out, _ := runScript(t, script)
	if out != "1x\nend\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestCaseTerminators(t *testing.T) {
	out, _ := runScript(t, "case ab in a*) echo first;; *b) echo second;; esac\n")
	if out != "first\n" {
		t.Errorf(";; stdout = %q", out)
	}

	out, _ = runScript(t, "case ab in a*) echo first;& zzz) echo forced;; esac\n")
	if out != "first\nforced\n" {
		t.Errorf(";& stdout = %q", out)
	}

	out, _ = runScript(t, "case ab in a*) echo first;;& *b) echo second;; esac\n")
	if out != "first\nsecond\n" {
		t.Errorf(";;& stdout = %q", out)
	}
}

func TestCaseQuotedSubjectIsLiteral(t *testing.T) {
	out, _ := runScript(t, "x='a*b'\ncase \"$x\" in 'a*b') echo exact;; *) echo glob;; esac\n")
	if out != "exact\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestSubshellIsolation(t *testing.T) {
	out, _ := runScript(t, "x=outer\n(x=inner; echo in $x)\necho out $x\n")
	if out != "in inner\nout outer\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestCommandSubstitutionCapture(t *testing.T) {
	out, _ := runScript(t, "msg=$(echo captured)\necho got $msg\n")
	if out != "got captured\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestArithmeticExpansion(t *testing.T) {
	out, _ := runScript(t, "n=6\necho $((n * 7))\n")
	if out != "42\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestRedirectionToFileAndBack(t *testing.T) {
	sh := newShell(t)
	sh.run("echo stored > /tmp.txt\nread line < /tmp.txt\necho read: $line\n")
	if sh.out() != "read: stored\n" {
		t.Errorf("stdout = %q", sh.out())
	}
}

func TestAppendRedirection(t *testing.T) {
	sh := newShell(t)
	sh.run("echo one > /f\necho two >> /f\nread a < /f\necho $a\n")
	if !strings.HasPrefix(sh.out(), "one\n") {
		t.Errorf("stdout = %q", sh.out())
	}
}

func TestHereDocExpansion(t *testing.T) {
	script := "who=world\nread line <<EOF\nhello $who\nEOF\necho got $line\n"
	out, _ := runScript(t, script)
	if out != "got hello world\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestHereDocQuotedDelimiterIsLiteral(t *testing.T) {
	script := "who=world\nread -r line <<'EOF'\nhello $who\nEOF\necho got $line\n"
	out, _ := runScript(t, script)
	if out != "got hello $who\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestHereString(t *testing.T) {
	out, _ := runScript(t, "read line <<<'from here string'\necho $line\n")
	if out != "from here string\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestDupAndCloseRedirection(t *testing.T) {
	sh := newShell(t)
	sh.run("echo to-err 1>&2\n")
	if string(*sh.stderr) != "to-err\n" {
		t.Errorf("stderr = %q", string(*sh.stderr))
	}
	if sh.out() != "" {
		t.Errorf("stdout = %q, want empty", sh.out())
	}
}

func TestExitStatusPropagation(t *testing.T) {
	_, status := runScript(t, "exit 5\necho unreachable\n")
	if status != 5 {
		t.Errorf("status = %d, want 5", status)
	}
}

func TestExitTrapRunsExactlyOnce(t *testing.T) {
	out, status := runScript(t, "trap 'echo bye' EXIT\necho hi\n")
	if out != "hi\nbye\n" {
		t.Errorf("stdout = %q", out)
	}
	if status != 0 {
		t.Errorf("status = %d", status)
	}
}

func TestExitTrapRunsOnExplicitExit(t *testing.T) {
	out, status := runScript(t, "trap 'echo bye' EXIT\nexit 3\necho unreachable\n")
	if out != "bye\n" {
		t.Errorf("stdout = %q", out)
	}
	if status != 3 {
		t.Errorf("status = %d, want 3", status)
	}
}

func TestExitTrapSeesFinalStatus(t *testing.T) {
	out, _ := runScript(t, "trap 'echo status $?' EXIT\nfalse\n")
	if out != "status 1\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestUnsetVariableExpandsEmpty(t *testing.T) {
	out, _ := runScript(t, "echo [$missing]\n")
	if out != "[]\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestNounsetAborts(t *testing.T) {
	out, status := runScript(t, "set -u\necho $missing\necho reached\n")
	if strings.Contains(out, "reached") {
		t.Errorf("nounset did not stop the script: %q", out)
	}
	if status == 0 {
		t.Errorf("status = 0, want failure")
	}
}

func TestReadonlyAssignmentStopsScript(t *testing.T) {
	out, _ := runScript(t, "readonly x=1\nx=2\necho reached\n")
	if strings.Contains(out, "reached") {
		t.Errorf("assignment to readonly did not interrupt: %q", out)
	}
}

func TestEval(t *testing.T) {
	out, _ := runScript(t, "eval 'echo from eval'\n")
	if out != "from eval\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestShiftAndPositionals(t *testing.T) {
	sh := newShell(t, "a", "b", "c")
	sh.run("echo $1 $#\nshift\necho $1 $#\n")
	if sh.out() != "a 3\nb 2\n" {
		t.Errorf("stdout = %q", sh.out())
	}
}

func TestFunctionPositionalsRestored(t *testing.T) {
	sh := newShell(t, "outer")
	sh.run("f() { echo in $1 $#; }\nf inner extra\necho out $1 $#\n")
	if sh.out() != "in inner 2\nout outer 1\n" {
		t.Errorf("stdout = %q", sh.out())
	}
}

func TestTempAssignmentRevertsAfterCommand(t *testing.T) {
	out, _ := runScript(t, "x=old\nx=new echo during $x\necho after $x\n")
	// The temporary assignment is visible to the command's environment
	// but the word `$x` was expanded before it applied.
	if !strings.HasSuffix(out, "after old\n") {
		t.Errorf("stdout = %q, temporary assignment leaked", out)
	}
}

func TestSpecialBuiltinAssignmentPersists(t *testing.T) {
	out, _ := runScript(t, "x=1 :\necho $x\n")
	if out != "1\n" {
		t.Errorf("stdout = %q (assignments on a special builtin persist)", out)
	}
}

func TestGetopts(t *testing.T) {
	script := `while getopts ab:c opt -a -b val -c; do echo opt $opt arg $OPTARG; done
`
	out, _ := runScript(t, script)
	want := "opt a arg\nopt b arg val\nopt c arg\n"
	if out != want {
		t.Errorf("stdout = %q, want %q", out, want)
	}
}

func TestTypeReportsCategories(t *testing.T) {
	out, _ := runScript(t, "f() { :; }\ntype exit f echo\n")
	want := "exit is a special shell builtin\nf is a shell function\necho is a shell builtin\n"
	if out != want {
		t.Errorf("stdout = %q", out)
	}
}

func TestCommandNotFound(t *testing.T) {
	_, status := runScript(t, "no_such_command_anywhere\n")
	if status != 127 {
		t.Errorf("status = %d, want 127", status)
	}
}

func TestAsyncItemRecordsJob(t *testing.T) {
	out, _ := runScript(t, "echo bg &\nwait\necho done\n")
	if !strings.Contains(out, "bg\n") || !strings.HasSuffix(out, "done\n") {
		t.Errorf("stdout = %q", out)
	}
}

func TestSyntaxErrorStatusNonInteractive(t *testing.T) {
	_, status := runScript(t, "if true; then\n")
	if status != 2 {
		t.Errorf("status = %d, want 2 (syntax error)", status)
	}
}

func TestInteractiveRecoversFromSyntaxError(t *testing.T) {
	sh := newShell(t)
	sh.env.Options.Set("interactive", true)
	sh.run(")\necho recovered\n")
	if !strings.Contains(sh.out(), "recovered\n") {
		t.Errorf("stdout = %q, interactive shell did not recover", sh.out())
	}
}

func TestVerboseEcho(t *testing.T) {
	sh := newShell(t)
	sh.env.Options.Set("verbose", true)
	sh.run("echo visible\n")
	if !strings.Contains(sh.errBuf.String(), "echo visible") {
		t.Errorf("verbose echo missing from stderr: %q", sh.errBuf.String())
	}
}

func TestXtraceWritesExpandedCommand(t *testing.T) {
	sh := newShell(t)
	sh.run("set -x\nx=val\necho $x\n")
	trace := string(*sh.stderr)
	if !strings.Contains(trace, "+ echo val") {
		t.Errorf("xtrace = %q, want expanded command behind PS4", trace)
	}
}

func TestNoexecParsesWithoutRunning(t *testing.T) {
	sh := newShell(t)
	sh.env.Options.Set("noexec", true)
	status := sh.run("echo should not appear\n")
	if sh.out() != "" {
		t.Errorf("stdout = %q, want empty under -n", sh.out())
	}
	if status != 0 {
		t.Errorf("status = %d", status)
	}

	sh2 := newShell(t)
	sh2.env.Options.Set("noexec", true)
	if st := sh2.run("if true; then\n"); st != 2 {
		t.Errorf("syntax error under -n gave status %d, want 2", st)
	}
}

func TestPromptWrittenWhenInteractive(t *testing.T) {
	sh := newShell(t)
	sh.env.Options.Set("interactive", true)
	sh.env.Vars.Assign("PS1", "PROMPT> ")
	sh.run("echo hi\n")
	if !strings.Contains(sh.errBuf.String(), "PROMPT> ") {
		t.Errorf("prompt missing: %q", sh.errBuf.String())
	}
}

func TestDotScript(t *testing.T) {
	sh := newShell(t)
	sh.sys.WriteFile("/lib.sh", []byte("sourced=yes\necho sourcing\n"), false)
	sh.run(". /lib.sh\necho got $sourced\n")
	if sh.out() != "sourcing\ngot yes\n" {
		t.Errorf("stdout = %q", sh.out())
	}
}

func TestUmaskRoundTrip(t *testing.T) {
	out, _ := runScript(t, "umask 027\numask\n")
	if out != "0027\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestPwdBuiltin(t *testing.T) {
	out, _ := runScript(t, "pwd\n")
	if out != "/\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestCdChangesDirectory(t *testing.T) {
	sh := newShell(t)
	sh.sys.MkdirAll("/dir")
	sh.run("cd /dir\npwd\n")
	if !strings.Contains(sh.out(), "/dir\n") {
		t.Errorf("stdout = %q", sh.out())
	}
}

func TestQuotingNeutrality(t *testing.T) {
	// printf '%s' of a quoted literal reproduces it exactly (spec §8's
	// quoting-neutrality property).
	out, _ := runScript(t, `printf '%s' 'a b  c$d'`+"\n")
	if out != "a b  c$d" {
		t.Errorf("stdout = %q", out)
	}
}

func TestIFSFieldCount(t *testing.T) {
	out, _ := runScript(t, "IFS=''\nx='a b'\nset -- $x\necho $#\n")
	if out != "1\n" {
		t.Errorf("IFS='' field count output = %q, want 1", out)
	}
}
