package builtin

import (
	"strconv"

	"github.com/cmdshell/posh/internal/interp"
	"github.com/cmdshell/posh/internal/source"
	"github.com/cmdshell/posh/internal/state"
)

// trapBuiltin implements `trap [-lp] [action condition...]` (spec.md
// §4.8, §5.1's signal-name/number resolution supplement).
type trapBuiltin struct{}

func (trapBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	args := argv[1:]
	if len(args) > 0 && args[0] == "-l" {
		for _, name := range signalNames(ex) {
			writeOut(ex, name+"\n")
		}
		return 0, interp.None, nil
	}
	if len(args) > 0 && args[0] == "-p" {
		for _, cond := range ex.Env.Traps.Names() {
			e := ex.Env.Traps.Get(cond)
			if e != nil && e.Action == state.TrapCommand {
				writeOut(ex, "trap -- '"+e.Command+"' "+cond+"\n")
			}
		}
		return 0, interp.None, nil
	}
	if len(args) == 0 {
		for _, cond := range ex.Env.Traps.Names() {
			e := ex.Env.Traps.Get(cond)
			if e == nil {
				continue
			}
			switch e.Action {
			case state.TrapCommand:
				writeOut(ex, "trap -- '"+e.Command+"' "+cond+"\n")
			case state.TrapIgnore:
				writeOut(ex, "trap -- '' "+cond+"\n")
			}
		}
		return 0, interp.None, nil
	}

	var action string
	var conditions []string
	if len(args) == 1 {
		// A single operand is a condition list with no action: reset it
		// to Default (the `trap condition` shorthand).
		action, conditions = "-", args
	} else {
		action, conditions = args[0], args[1:]
	}

	for _, c := range conditions {
		cond, ok := canonicalCondition(ex, c)
		if !ok {
			return 1, interp.None, usageError(argv[0], "%s: invalid condition", c)
		}
		switch action {
		case "-":
			ex.Env.Traps.Set(cond, state.TrapDefault, "", source.Location{})
		case "":
			ex.Env.Traps.Set(cond, state.TrapIgnore, "", source.Location{})
		default:
			ex.Env.Traps.Set(cond, state.TrapCommand, action, source.Location{})
		}
		// EXIT is handled inside the shell; signal conditions also
		// change the process disposition (spec.md §4.8's lifecycle).
		if cond != "EXIT" {
			var err error
			switch action {
			case "-":
				err = ex.Sys.SigactionDefault(cond)
			case "":
				err = ex.Sys.SigactionIgnore(cond)
			default:
				err = ex.Sys.SigactionCatch(cond)
			}
			if err != nil {
				return 1, interp.None, usageError(argv[0], "%s: %v", c, err)
			}
		}
	}
	return 0, interp.None, nil
}

func canonicalCondition(ex *interp.Executor, c string) (string, bool) {
	if c == "EXIT" || c == "0" {
		return "EXIT", true
	}
	if n, err := strconv.Atoi(c); err == nil {
		name, ok := ex.Sys.SignalNameFromNumber(n)
		return name, ok
	}
	if _, ok := ex.Sys.SignalNumberFromName(c); ok {
		return c, true
	}
	return "", false
}

func signalNames(ex *interp.Executor) []string {
	var out []string
	for i := 1; i < 64; i++ {
		if name, ok := ex.Sys.SignalNameFromNumber(i); ok {
			out = append(out, name)
		}
	}
	return out
}
