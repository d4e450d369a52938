// Package trap implements the trap runtime (spec.md §4.8): it turns
// caught signals and the shell's EXIT condition into AST executions,
// with the nesting discipline the executor's Trap frames provide, and
// keeps the operating-system signal dispositions in sync with the
// Environment's trap table.
package trap

import (
	"github.com/cmdshell/posh/internal/interp"
	"github.com/cmdshell/posh/internal/state"
	"github.com/cmdshell/posh/internal/system"
)

// Runner drives trap execution for one shell. The read-eval loop calls
// RunPending between commands and RunExit exactly once at shutdown.
type Runner struct {
	Ex  *interp.Executor
	Sys system.Signals

	exitTrapRan bool
}

// New creates a Runner over ex.
func New(ex *interp.Executor, sys system.Signals) *Runner {
	return &Runner{Ex: ex, Sys: sys}
}

// Sync pushes every recorded trap entry's action onto the OS signal
// dispositions. It is called once at startup, after startup files or a
// `-c` prelude may have installed traps through a cloned table.
func (r *Runner) Sync() {
	for _, cond := range r.Ex.Env.Traps.Names() {
		if cond == "EXIT" {
			continue
		}
		e := r.Ex.Env.Traps.Get(cond)
		if e == nil {
			continue
		}
		switch e.Action {
		case state.TrapCommand:
			r.Sys.SigactionCatch(cond)
		case state.TrapIgnore:
			r.Sys.SigactionIgnore(cond)
		default:
			r.Sys.SigactionDefault(cond)
		}
	}
}

// RunPending polls for signals caught since the last await point and
// runs their Command actions. Whatever Divert a trap body raises
// propagates to the caller, as if the body had been inlined at the
// await point (spec.md §2's ordering guarantee: trap actions run after
// the current command completes and before the next one).
func (r *Runner) RunPending() interp.Divert {
	return r.Ex.DrainTraps()
}

// RunExit runs the EXIT trap's command action exactly once (spec.md
// §4.8: "The Exit trap runs exactly once, at shell exit time ...
// after all other processing"). status is the exit status the shell is
// terminating with; it is visible to the trap body as $? and restored
// afterwards unless the body itself exits with an explicit status.
func (r *Runner) RunExit(status int) int {
	if r.exitTrapRan {
		return status
	}
	r.exitTrapRan = true
	e := r.Ex.Env.Traps.Get("EXIT")
	if e == nil || e.Action != state.TrapCommand {
		return status
	}
	r.Ex.Env.SetExitStatus(status)
	d := r.Ex.RunTrapText("EXIT", e.Command)
	if d.Kind == interp.DivertExit {
		return d.StatusOr(status)
	}
	return status
}
