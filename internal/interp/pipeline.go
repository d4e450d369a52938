package interp

import (
	"github.com/cmdshell/posh/internal/ast"
	"github.com/cmdshell/posh/internal/expand"
)

// ExecPipeline runs a Pipeline (spec.md §4.5): n commands connected by
// n-1 pipes. A single command runs in the current shell; with two or
// more, every stage, the last included, runs in its own subshell clone
// of the environment, one stage after another. Exit status is the last command's, or, under
// `pipefail`, the rightmost non-zero status; `!` negates it.
func (ex *Executor) ExecPipeline(p *ast.Pipeline) Divert {
	var d Divert
	var statuses []int

	if len(p.Commands) == 1 {
		d = ex.ExecCommand(p.Commands[0])
		statuses = []int{ex.Env.ExitStatus()}
	} else {
		statuses = make([]int, len(p.Commands))
		fds := make([][2]int, len(p.Commands)-1)
		for i := range fds {
			r, w, err := ex.Sys.Pipe()
			if err != nil {
				ex.reportError(err)
				ex.Env.SetExitStatus(1)
				return None
			}
			fds[i] = [2]int{r, w}
		}
		for i, cmd := range p.Commands {
			clone := ex.forSubshell()
			if i > 0 {
				clone.Stdin = fds[i-1][0]
			}
			if i < len(p.Commands)-1 {
				clone.Stdout = fds[i][1]
			}
			statuses[i] = clone.ExecCommandStatus(cmd)
		}
		for _, pair := range fds {
			ex.Sys.Close(pair[0])
			ex.Sys.Close(pair[1])
		}
		d = None
	}

	status := statuses[len(statuses)-1]
	if ex.Env.OptionSet("pipefail") {
		for _, s := range statuses {
			if s != 0 {
				status = s
			}
		}
	}
	if p.Negated {
		if status == 0 {
			status = 1
		} else {
			status = 0
		}
	}
	ex.Env.SetExitStatus(status)
	return d
}

// forSubshell returns an Executor operating on a cloned Environment for
// a subshell-isolated command (spec.md §3.6, §4.5's pipeline/subshell
// fork semantics). Its Expander is rebuilt against the clone's own
// Environment: Expander.Vars is an interface value fixed at
// construction, so reusing the parent's Expander verbatim would leave
// every expansion inside the subshell reading and writing the
// parent's variables instead of the clone's isolated copy.
func (ex *Executor) forSubshell() *Executor {
	clone := *ex
	cp := &clone
	cp.inSubshell = true
	cp.Env = ex.Env.CloneForSubshell()
	cp.Expander = expand.New(cp.Env, ex.Expander.Sys, cp.RunCommandSubstitution, cp.Env.ExitStatusPtr())
	cp.Diagnostics = nil
	return cp
}

// ExecCommandStatus runs cmd and reports only its resulting status,
// for pipeline stages that don't propagate a Divert upward (a forked
// pipeline stage's control-flow diverts do not cross the fork).
func (ex *Executor) ExecCommandStatus(cmd ast.Command) int {
	ex.ExecCommand(cmd)
	return ex.Env.ExitStatus()
}
