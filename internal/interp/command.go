package interp

import (
	"strings"

	"github.com/cmdshell/posh/internal/ast"
	"github.com/cmdshell/posh/internal/diag"
	"github.com/cmdshell/posh/internal/quote"
	"github.com/cmdshell/posh/internal/source"
	"github.com/cmdshell/posh/internal/state"
)

// Exit status conventions for execution failures that have no more
// specific code of their own (spec.md §7).
const (
	statusError           = 2
	statusNotExecutable   = 126
	statusCommandNotFound = 127
)

// ExecCommand runs one Command node: a SimpleCmd, a CompoundCmd (with
// its own trailing redirections), or a FunctionDefinition (spec.md
// §4.5).
func (ex *Executor) ExecCommand(cmd ast.Command) Divert {
	ex.Env.Vars.SetCurrentLine(commandLine(cmd))
	switch c := cmd.(type) {
	case ast.SimpleCmd:
		return ex.ExecSimpleCommand(c.SimpleCommand)
	case ast.CompoundCmd:
		return ex.execCompoundCmd(c)
	case *ast.FunctionDefinition:
		return ex.execFunctionDefinition(c)
	}
	return None
}

func commandLine(cmd ast.Command) int {
	switch c := cmd.(type) {
	case ast.SimpleCmd:
		return c.SimpleCommand.Loc.Line()
	case ast.CompoundCmd:
		return compoundLoc(c.Compound).Line()
	case *ast.FunctionDefinition:
		return c.Loc.Line()
	}
	return 0
}

func (ex *Executor) execFunctionDefinition(fd *ast.FunctionDefinition) Divert {
	if err := ex.Env.Functions.Define(fd.Name, fd.Body, fd.Loc); err != nil {
		return ex.preExecFailure(false, statusError, err)
	}
	ex.Env.SetExitStatus(0)
	return None
}

// ExecSimpleCommand implements spec.md §4.5's SimpleCommand algorithm:
// expand words, search for the target, open redirections, apply
// assignments with the scoping the target kind dictates, invoke, then
// restore.
func (ex *Executor) ExecSimpleCommand(sc *ast.SimpleCommand) Divert {
	argv, err := ex.Expander.Words(sc.Words)
	if err != nil {
		return ex.expansionFailure(err)
	}

	if len(argv) > 0 && ex.Env.OptionSet("xtrace") {
		ex.writeXtrace(argv)
	}

	var t target
	if len(argv) > 0 {
		t = ex.searchCommand(argv[0])
	}

	saved, err := ex.openRedirs(sc.Redirs)
	if err != nil {
		return ex.preExecFailure(t.kind == targetSpecial, statusError, err)
	}
	defer ex.restoreRedirs(saved)

	if len(argv) == 0 || t.kind == targetSpecial {
		// With no command name, $? is left at the status of the last
		// command substitution in the assignments, or 0 if none ran.
		substRan := false
		if run := ex.Expander.RunCommand; len(argv) == 0 && run != nil {
			ex.Expander.RunCommand = func(body []*ast.Item) (string, int, error) {
				substRan = true
				return run(body)
			}
			defer func() { ex.Expander.RunCommand = run }()
		}
		for _, a := range sc.Assignments {
			if err := ex.applyAssignment(a); err != nil {
				// Assignment errors on a special built-in or a bare
				// assignment command exit a non-interactive shell
				// (spec.md §7): Interrupt, escalated by the loop.
				return ex.expansionFailure(err)
			}
		}
		if len(argv) == 0 {
			if !substRan {
				ex.Env.SetExitStatus(0)
			}
			return None
		}
	} else {
		restore, err := ex.applyTempAssignments(sc.Assignments)
		defer restore()
		if err != nil {
			return ex.expansionFailure(err)
		}
	}

	switch t.kind {
	case targetSpecial, targetIntrinsic:
		return ex.invokeBuiltin(t, argv)
	case targetFunction:
		return ex.invokeFunction(argv, t.function)
	case targetExternal:
		return ex.invokeExternal(t.path, argv)
	default:
		ex.reportError(diag.New(sc.Loc, "%s: command not found", argv[0]))
		ex.Env.SetExitStatus(statusCommandNotFound)
		return None
	}
}

// writeXtrace echoes the expanded command to standard error behind the
// PS4 prefix (`set -x`, spec.md §3.5's xtrace option).
func (ex *Executor) writeXtrace(argv []string) {
	ps4, _, _, ok := ex.Env.Lookup("PS4")
	if !ok {
		ps4 = "+ "
	}
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = quote.Quote(a)
	}
	ex.Sys.Write(ex.Stderr, []byte(ps4+strings.Join(quoted, " ")+"\n"))
}

func (ex *Executor) applyAssignment(a ast.Assignment) error {
	scalar, _, err := ex.Expander.ExpandAssignment(a.Value)
	if err != nil {
		return err
	}
	return ex.Env.Vars.Assign(a.Name, scalar)
}

// savedVar is enough of a variable's prior state to restore it after a
// command-environment-only assignment.
type savedVar struct {
	name    string
	existed bool
	entry   state.Variable
}

// applyTempAssignments implements the "command environment" scoping
// rule (spec.md §4.5 step 4b): assignments preceding a non-special
// command are visible to it (and exported to an external process) but
// revert once the command returns.
func (ex *Executor) applyTempAssignments(assigns []ast.Assignment) (restore func(), err error) {
	if len(assigns) == 0 {
		return func() {}, nil
	}
	saved := make([]savedVar, 0, len(assigns))
	for _, a := range assigns {
		existing := ex.Env.Vars.Entry(a.Name)
		sv := savedVar{name: a.Name, existed: existing != nil}
		if existing != nil {
			sv.entry = *existing
		}
		saved = append(saved, sv)

		scalar, _, aerr := ex.Expander.ExpandAssignment(a.Value)
		if aerr != nil {
			err = aerr
			break
		}
		if aerr := ex.Env.Vars.Assign(a.Name, scalar); aerr != nil {
			err = aerr
			break
		}
		ex.Env.Vars.SetExported(a.Name, true)
	}
	restore = func() {
		for _, sv := range saved {
			if sv.existed {
				*ex.Env.Vars.Entry(sv.name) = sv.entry
			} else {
				ex.Env.Vars.Unset(sv.name)
			}
		}
	}
	return restore, err
}

// expansionFailure reports an expansion or assignment error (spec.md
// §7): it surfaces as an Interrupt divert, which the read-eval loop
// turns into Exit for non-interactive shells and into a fresh prompt
// for interactive ones (spec.md §6.6).
func (ex *Executor) expansionFailure(err error) Divert {
	ex.reportError(err)
	ex.Env.SetExitStatus(statusError)
	return interruptDivert(statusError)
}

// preExecFailure handles a pre-execution failure (redirection or
// function-definition error): special built-ins escalate to Interrupt
// (spec.md §7), everything else just records the status and lets the
// item-level errexit check decide.
func (ex *Executor) preExecFailure(special bool, status int, err error) Divert {
	ex.reportError(err)
	ex.Env.SetExitStatus(status)
	if special {
		return interruptDivert(status)
	}
	return None
}

// invokeBuiltin runs a built-in under a Builtin frame. A built-in that
// merely completes with a non-zero status (like `eval false`) is an
// ordinary failure left to the item-level errexit check; a built-in
// that reports an error escalates to Interrupt when it is special
// (spec.md §6.4, §7).
func (ex *Executor) invokeBuiltin(t target, argv []string) Divert {
	ex.Env.Stack.Push(state.Frame{Kind: state.FrameBuiltin, Name: argv[0], IsSpecial: t.kind == targetSpecial})
	status, divert, err := t.builtin.Run(ex, argv)
	ex.Env.Stack.Pop()
	if err != nil {
		ex.reportError(err)
		if status == 0 {
			status = statusError
		}
		ex.Env.SetExitStatus(status)
		if t.kind == targetSpecial {
			return interruptDivert(status)
		}
		if !divert.IsNone() {
			return divert
		}
		return None
	}
	ex.Env.SetExitStatus(status)
	return divert
}

func (ex *Executor) invokeFunction(argv []string, body *ast.FunctionBody) Divert {
	ex.Env.Stack.Push(state.Frame{Kind: state.FrameFunctionCall, Name: argv[0]})
	ex.Env.Vars.PushScope()
	ex.Env.Pos.Push(argv[1:])

	d := ex.execCompoundCommand(body)

	ex.Env.Pos.Pop()
	ex.Env.Vars.PopScope()
	ex.Env.Stack.Pop()

	if d.Kind == DivertReturn {
		ex.Env.SetExitStatus(d.StatusOr(ex.Env.ExitStatus()))
		return None
	}
	return d
}

// invokeExternal runs path as an external program (spec.md §4.5 step
// 5): fork+exec via the System capability, await completion, map the
// wait result to a POSIX exit status.
func (ex *Executor) invokeExternal(path string, argv []string) Divert {
	envp := ex.Env.Vars.Exported()
	pid, err := ex.Sys.StartProcess(path, argv, envp, [3]int{ex.Stdin, ex.Stdout, ex.Stderr})
	if err != nil {
		status := statusNotExecutable
		if strings.Contains(err.Error(), "no such file") {
			status = statusCommandNotFound
		}
		ex.reportError(diag.New(source.Location{}, "%s: %v", path, err))
		ex.Env.SetExitStatus(status)
		return None
	}
	ex.Env.SetExitStatus(ex.awaitExternal(pid))
	return None
}

// awaitExternal blocks for pid's completion, draining any trap that
// becomes pending in between (spec.md §4.8: "well-defined await
// points" include waiting on a child).
func (ex *Executor) awaitExternal(pid int) int {
	for {
		res, err := ex.Sys.Wait(pid, true)
		if err != nil {
			return statusError
		}
		if res.Stopped {
			continue
		}
		ex.drainTraps()
		if res.Signaled {
			return 128 + res.Signal
		}
		return res.ExitCode
	}
}
