package interp

import (
	"github.com/cmdshell/posh/internal/ast"
	"github.com/cmdshell/posh/internal/fnmatch"
	"github.com/cmdshell/posh/internal/source"
	"github.com/cmdshell/posh/internal/state"
)

// execCompoundCmd runs a CompoundCmd: open its trailing redirections,
// dispatch to the specific construct, then apply errexit to its final
// status the same way a SimpleCommand would (spec.md §4.5).
func (ex *Executor) execCompoundCmd(c ast.CompoundCmd) Divert {
	saved, err := ex.openRedirs(c.Redirs)
	if err != nil {
		return ex.preExecFailure(false, statusError, err)
	}
	defer ex.restoreRedirs(saved)

	d := ex.execCompound(c.Compound)
	if d.IsNone() && ex.Env.ExitStatus() != 0 && ex.Env.OptionSet("errexit") && !ex.suppressErrexit {
		return exitDivert(ex.Env.ExitStatus())
	}
	return d
}

// execCompoundCommand runs a shared function body (spec.md §3.3, §9:
// FunctionBody is CompoundCommand shared by reference).
func (ex *Executor) execCompoundCommand(body *ast.FunctionBody) Divert {
	return ex.execCompound(*body)
}

func (ex *Executor) execCompound(cc ast.CompoundCommand) Divert {
	switch c := cc.(type) {
	case *ast.Grouping:
		return ex.execGrouping(c)
	case *ast.Subshell:
		return ex.execSubshell(c)
	case *ast.For:
		return ex.execFor(c)
	case *ast.WhileUntil:
		return ex.execWhileUntil(c)
	case *ast.If:
		return ex.execIf(c)
	case *ast.Case:
		return ex.execCase(c)
	}
	return None
}

func compoundLoc(cc ast.CompoundCommand) source.Location {
	switch c := cc.(type) {
	case *ast.Grouping:
		return c.Loc
	case *ast.Subshell:
		return c.Loc
	case *ast.For:
		return c.Loc
	case *ast.WhileUntil:
		return c.Loc
	case *ast.If:
		return c.Loc
	case *ast.Case:
		return c.Loc
	}
	return source.Location{}
}

// execGrouping runs `{ list; }` in the current shell (spec.md §4.5).
func (ex *Executor) execGrouping(g *ast.Grouping) Divert {
	return ex.ExecList(g.Body)
}

// execSubshell runs `( list )` in a cloned Environment, adopting its
// final exit status; only Abort (non-recoverable) crosses the
// subshell boundary, matching spec.md §4.5/§6.6.
func (ex *Executor) execSubshell(s *ast.Subshell) Divert {
	clone := ex.forSubshell()
	d := clone.ExecList(s.Body)
	status := clone.Env.ExitStatus()
	if d.Kind == DivertExit {
		status = d.StatusOr(status)
	}
	ex.Env.SetExitStatus(status)
	if d.Kind == DivertAbort {
		return d
	}
	return None
}

// loopOutcome is the result of feeding one loop-body iteration's
// Divert through the Break/Continue count-decrementing rule spec.md
// §6.6 describes.
type loopOutcome int

const (
	loopProceed loopOutcome = iota
	loopStop
	loopPropagate
)

func loopDivert(d Divert) (loopOutcome, Divert) {
	switch d.Kind {
	case DivertNone:
		return loopProceed, None
	case DivertBreak:
		if d.Count > 1 {
			d.Count--
			return loopPropagate, d
		}
		return loopStop, None
	case DivertContinue:
		if d.Count > 1 {
			d.Count--
			return loopPropagate, d
		}
		return loopProceed, None
	default:
		return loopPropagate, d
	}
}

func wordsAsOperands(words []*ast.Word) []ast.WordOperand {
	out := make([]ast.WordOperand, len(words))
	for i, w := range words {
		out[i] = ast.WordOperand{Word: w, Mode: ast.Multiple}
	}
	return out
}

// execFor runs the `for name [in values]; do body; done` loop (spec.md
// §4.5): Values == nil means iterate the current positional
// parameters instead.
func (ex *Executor) execFor(f *ast.For) Divert {
	var values []string
	if f.Values == nil {
		values = ex.Env.Pos.PositionalAll()
	} else {
		var err error
		values, err = ex.Expander.Words(wordsAsOperands(f.Values))
		if err != nil {
			return ex.expansionFailure(err)
		}
	}

	ex.Env.Stack.Push(state.Frame{Kind: state.FrameLoop})
	defer ex.Env.Stack.Pop()
	ex.Env.SetExitStatus(0)

	for _, v := range values {
		if err := ex.Env.Vars.Assign(f.Name, v); err != nil {
			return ex.expansionFailure(err)
		}
		d := ex.ExecList(f.Body)
		outcome, out := loopDivert(d)
		switch outcome {
		case loopStop:
			return None
		case loopPropagate:
			return out
		}
	}
	return None
}

// execWhileUntil runs the `while`/`until` loop (spec.md §4.5): the
// condition list always runs with errexit suppressed, since its
// status is merely being tested.
func (ex *Executor) execWhileUntil(w *ast.WhileUntil) Divert {
	ex.Env.Stack.Push(state.Frame{Kind: state.FrameLoop})
	defer ex.Env.Stack.Pop()
	ex.Env.SetExitStatus(0)

	for {
		cd := ex.runSuppressed(func() Divert { return ex.ExecList(w.Condition) })
		if !cd.IsNone() {
			return cd
		}
		ok := ex.Env.ExitStatus() == 0
		if w.Until {
			ok = !ok
		}
		if !ok {
			ex.Env.SetExitStatus(0)
			return None
		}

		d := ex.ExecList(w.Body)
		outcome, out := loopDivert(d)
		switch outcome {
		case loopStop:
			return None
		case loopPropagate:
			return out
		}
	}
}

// execIf runs the `if/elif*/else?/fi` construct (spec.md §4.5).
func (ex *Executor) execIf(f *ast.If) Divert {
	d := ex.runSuppressed(func() Divert { return ex.ExecList(f.Condition) })
	if !d.IsNone() {
		return d
	}
	if ex.Env.ExitStatus() == 0 {
		return ex.ExecList(f.Body)
	}
	for _, ei := range f.Elifs {
		d := ex.runSuppressed(func() Divert { return ex.ExecList(ei.Condition) })
		if !d.IsNone() {
			return d
		}
		if ex.Env.ExitStatus() == 0 {
			return ex.ExecList(ei.Body)
		}
	}
	if f.Else != nil {
		return ex.ExecList(f.Else)
	}
	ex.Env.SetExitStatus(0)
	return None
}

// execCase runs the `case subject in items esac` construct (spec.md
// §4.5), chaining `;&`/`;;&` terminators across items.
func (ex *Executor) execCase(c *ast.Case) Divert {
	subject, err := ex.Expander.ExpandWordScalar(c.Subject)
	if err != nil {
		return ex.expansionFailure(err)
	}
	ex.Env.SetExitStatus(0)

	forceRun := false
	for i := 0; i < len(c.Items); i++ {
		item := c.Items[i]
		if !forceRun {
			matched, err := ex.caseItemMatches(item, subject)
			if err != nil {
				return ex.expansionFailure(err)
			}
			if !matched {
				continue
			}
		}

		d := ex.ExecList(item.Body)
		if !d.IsNone() {
			return d
		}
		switch item.Terminator {
		case ast.CaseFallthrough:
			forceRun = true
		case ast.CaseContinue:
			forceRun = false
		default:
			return None
		}
	}
	return None
}

func (ex *Executor) caseItemMatches(item ast.CaseItem, subject string) (bool, error) {
	for _, pw := range item.Patterns {
		pat, err := ex.Expander.ExpandPattern(pw)
		if err != nil {
			return false, err
		}
		ok, err := fnmatch.Match(pat, subject)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
