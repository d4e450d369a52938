package builtin

import "github.com/cmdshell/posh/internal/interp"

// exitBuiltin implements `exit [n]` (spec.md §6.4): ends the current
// shell, or subshell, with n (mod 256) or the last command's status if
// n is omitted.
type exitBuiltin struct{}

func (exitBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	status := ex.Env.ExitStatus()
	n, err := parseOptionalInt(argv, 1, status)
	if err != nil {
		return 2, interp.None, usageError(argv[0], "%s: numeric argument required", argv[1])
	}
	status = n & 0xff
	return status, interp.Divert{Kind: interp.DivertExit, Status: &status}, nil
}

// returnBuiltin implements `return [n]`: unwinds the innermost
// function call or dot-script, or behaves like exit if neither
// encloses it.
type returnBuiltin struct{}

func (returnBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	status := ex.Env.ExitStatus()
	n, err := parseOptionalInt(argv, 1, status)
	if err != nil {
		return 2, interp.None, usageError(argv[0], "%s: numeric argument required", argv[1])
	}
	status = n & 0xff
	return status, interp.Divert{Kind: interp.DivertReturn, Status: &status}, nil
}

// breakBuiltin implements `break [n]`: exits the innermost n enclosing
// for/while/until loops (spec.md §4.8).
type breakBuiltin struct{}

func (breakBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	n, err := loopCount(argv)
	if err != nil {
		return 2, interp.None, err
	}
	return 0, interp.Divert{Kind: interp.DivertBreak, Count: n}, nil
}

// continueBuiltin implements `continue [n]`.
type continueBuiltin struct{}

func (continueBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	n, err := loopCount(argv)
	if err != nil {
		return 2, interp.None, err
	}
	return 0, interp.Divert{Kind: interp.DivertContinue, Count: n}, nil
}

func loopCount(argv []string) (int, error) {
	n, err := parseOptionalInt(argv, 1, 1)
	if err != nil || n < 1 {
		return 0, usageError(argv[0], "invalid loop count")
	}
	return n, nil
}

// shiftBuiltin implements `shift [n]` (spec.md §3.5's Positional
// subsystem): discards the first n positional parameters, defaulting
// to 1; fails if n exceeds $#.
type shiftBuiltin struct{}

func (shiftBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	n, err := parseOptionalInt(argv, 1, 1)
	if err != nil || n < 0 {
		return 1, interp.None, usageError(argv[0], "invalid shift count")
	}
	if !ex.Env.Pos.Shift(n) {
		return 1, interp.None, usageError(argv[0], "shift count exceeds the positional parameter count")
	}
	return 0, interp.None, nil
}
