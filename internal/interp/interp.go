package interp

import (
	"github.com/cmdshell/posh/internal/ast"
	"github.com/cmdshell/posh/internal/diag"
	"github.com/cmdshell/posh/internal/expand"
	"github.com/cmdshell/posh/internal/source"
	"github.com/cmdshell/posh/internal/state"
	"github.com/cmdshell/posh/internal/system"
)

// Builtin is the uniform contract every built-in utility implements
// (spec.md §6.4): `main(env, argv)` returning an exit status and any
// Divert it raises.
type Builtin interface {
	Run(ex *Executor, argv []string) (exitStatus int, divert Divert, err error)
}

// BuiltinLookup resolves a command name to its Builtin and whether the
// name is a POSIX "special" built-in (spec.md §4.7), a narrow
// interface so interp never imports internal/builtin directly (the
// dependency runs the other way: cmd/posh wires a concrete registry in).
type BuiltinLookup interface {
	Lookup(name string) (b Builtin, special bool, ok bool)
}

// RunList is injected by the read-eval loop to let the executor invoke
// a freshly parsed AST (trap actions, `eval`, `.` dot-scripts, command
// substitution) without interp depending on the loop package.
type RunList func(list *ast.List) (Divert, error)

// Executor walks the AST against one Environment, the Go analogue of
// the teacher's Evaluator (internal/interp/evaluator).
type Executor struct {
	Env      *state.Environment
	Sys      system.System
	Builtins BuiltinLookup
	Expander *expand.Expander
	RunList  RunList

	Stdin  int
	Stdout int
	Stderr int

	Diagnostics []*diag.Diagnostic

	// suppressErrexit is true while running a context `errexit` never
	// fires from (an If/While/Until condition, a negated pipeline; see
	// checkErrexit and spec.md §4.5's "applicable context" rule).
	suppressErrexit bool

	// inSubshell is true on executors cloned by forSubshell. A subshell
	// is conceptually its own process: it must not consume signals the
	// OS delivered to the parent shell, so drainTraps skips the
	// CaughtSignals poll here and the parent picks them up after the
	// subshell completes (spec.md §4.8; the in-process subshell
	// emulation is documented in DESIGN.md).
	inSubshell bool
}

// New constructs an Executor. Stdin/Stdout/Stderr are the initial file
// descriptor numbers (0/1/2 for the top-level shell).
func New(env *state.Environment, sys system.System, builtins BuiltinLookup, expander *expand.Expander) *Executor {
	return &Executor{
		Env:      env,
		Sys:      sys,
		Builtins: builtins,
		Expander: expander,
		Stdin:    0,
		Stdout:   1,
		Stderr:   2,
	}
}

// reportError writes a user-visible diagnostic to the shell's standard
// error through the System capability, so a virtual run captures it
// the same way it captures command output (spec.md §7).
func (ex *Executor) reportError(err error) {
	msg := "posh: " + err.Error() + "\n"
	switch e := err.(type) {
	case *diag.Diagnostic:
		ex.Diagnostics = append(ex.Diagnostics, e)
		msg = e.Format(false) + "\n"
	case *expand.Error:
		msg = diag.New(e.Loc, "%s", e.Msg).Format(false) + "\n"
	}
	ex.Sys.Write(ex.Stderr, []byte(msg))
}

// ExecList runs a List (spec.md §3.3's top-level production) item by
// item, draining pending traps between items and honoring errexit.
func (ex *Executor) ExecList(list *ast.List) Divert {
	var last Divert
	for _, item := range list.Items {
		last = ex.ExecItem(item)
		if d := ex.drainTraps(); !d.IsNone() {
			return d
		}
		if !last.IsNone() {
			return last
		}
		if d := ex.checkErrexit(item); !d.IsNone() {
			return d
		}
	}
	return last
}

// checkErrexit implements spec.md §4.5's errexit rule at list-item
// granularity: a whole And-Or chain's final status is what's tested,
// so an intermediate pipeline's failure inside `a && b` never
// triggers it, only the chain's last-run command does.
func (ex *Executor) checkErrexit(item *ast.Item) Divert {
	if ex.suppressErrexit || item.Async {
		return None
	}
	if item.List.First.Negated {
		return None
	}
	if !ex.Env.OptionSet("errexit") {
		return None
	}
	if status := ex.Env.ExitStatus(); status != 0 {
		return exitDivert(status)
	}
	return None
}

// runSuppressed runs f with errexit disabled, for conditions that are
// merely tested, not asserted (If/While/Until conditions).
func (ex *Executor) runSuppressed(f func() Divert) Divert {
	saved := ex.suppressErrexit
	ex.suppressErrexit = true
	d := f()
	ex.suppressErrexit = saved
	return d
}

// ExecItem runs one Item (an AndOrList, optionally asynchronous;
// spec.md §4.5).
func (ex *Executor) ExecItem(item *ast.Item) Divert {
	if item.Async {
		ex.runAsync(item.List)
		ex.Env.SetExitStatus(0)
		return None
	}
	return ex.ExecAndOrList(item.List)
}

// runAsync starts list as a background job (spec.md §4.5's Item rule).
// The System capability layer offers no portable in-process fork (see
// system.Real.StartProcess's doc comment), so a background job here
// runs synchronously against a cloned subshell Environment instead of
// a genuinely detached OS process; its completion is recorded
// immediately rather than polled later through Wait.
func (ex *Executor) runAsync(list *ast.AndOrList) {
	clone := ex.forSubshell()
	status := clone.ExecAndOrListStatus(list)
	pid := ex.Sys.Getpid()
	ex.Env.Jobs.Add(pid, asyncName(list), false)
	ex.Env.Jobs.SetState(pid, state.JobExited, status)
	ex.Env.SetLastBgPid(pid)
}

// asyncName renders the job's command text for the job table, the
// string `jobs` reports.
func asyncName(list *ast.AndOrList) string {
	return ast.Print(&ast.List{Items: []*ast.Item{{List: list}}})
}

// ExecAndOrList evaluates an And-Or list (spec.md §4.5): left, then
// `&&`/`||` continuations short-circuited on the running exit status.
func (ex *Executor) ExecAndOrList(l *ast.AndOrList) Divert {
	d := ex.ExecPipeline(l.First)
	if !d.IsNone() {
		return d
	}
	status := ex.Env.ExitStatus()
	for _, rest := range l.Rest {
		if rest.Op == ast.AndOrAnd && status != 0 {
			continue
		}
		if rest.Op == ast.AndOrOr && status == 0 {
			continue
		}
		d = ex.ExecPipeline(rest.Pipeline)
		if !d.IsNone() {
			return d
		}
		status = ex.Env.ExitStatus()
	}
	return None
}

// ExecAndOrListStatus runs l and reports only the resulting exit
// status, for subshell/pipeline-tail contexts that adopt it directly.
func (ex *Executor) ExecAndOrListStatus(l *ast.AndOrList) int {
	ex.ExecAndOrList(l)
	return ex.Env.ExitStatus()
}

// drainTraps moves any signal the System layer caught since the last
// await point onto the trap table, then runs every pending Command
// action in turn (spec.md §4.8). A trap action can contain `return`,
// `break`, `exit` or anything else a function body can: whatever
// Divert it raises propagates out of drainTraps to unwind exactly as
// if the trap's text had been inlined at the await point, except
// `exit`'s sibling, the interrupted status, which trap actions may
// override without unwinding further (see the Interrupt case below).
func (ex *Executor) drainTraps() Divert {
	if !ex.inSubshell {
		for _, name := range ex.Sys.CaughtSignals() {
			ex.Env.Traps.MarkPending(name)
		}
	}
	pending := ex.Env.Traps.DrainPending()
	if len(pending) == 0 {
		return None
	}
	savedStatus := ex.Env.ExitStatus()
	for _, entry := range pending {
		if entry.Action != state.TrapCommand {
			continue
		}
		if d := ex.runTrapCommand(entry.Condition, entry.Command); !d.IsNone() {
			return d
		}
	}
	ex.Env.SetExitStatus(savedStatus)
	return None
}

// DrainTraps exposes the between-commands trap poll to the trap
// runtime and the read-eval loop, which must also run pending actions
// between their own iterations (spec.md §4.9 step 4).
func (ex *Executor) DrainTraps() Divert { return ex.drainTraps() }

// RunTrapText parses and runs one trap action body under a Trap frame;
// the trap runtime uses it for the EXIT trap (spec.md §4.8).
func (ex *Executor) RunTrapText(condition, command string) Divert {
	return ex.runTrapCommand(condition, command)
}

func (ex *Executor) runTrapCommand(condition, command string) Divert {
	if ex.RunList == nil {
		return None
	}
	list, err := ex.parseText(command, source.Origin{Kind: source.OriginTrapBody, Name: condition})
	if err != nil {
		ex.reportError(err)
		return None
	}
	ex.Env.Stack.Push(state.Frame{Kind: state.FrameTrap, Condition: condition})
	d, err := ex.RunList(list)
	ex.Env.Stack.Pop()
	if err != nil {
		ex.reportError(err)
		return None
	}
	if d.Kind == DivertInterrupt {
		ex.Env.SetExitStatus(d.StatusOr(ex.Env.ExitStatus()))
		return None
	}
	return d
}
