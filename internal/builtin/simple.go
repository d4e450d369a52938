package builtin

import "github.com/cmdshell/posh/internal/interp"

// colonBuiltin implements `:`: expand operands, do nothing, succeed.
type colonBuiltin struct{}

func (colonBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	return 0, interp.None, nil
}

type trueBuiltin struct{}

func (trueBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	return 0, interp.None, nil
}

type falseBuiltin struct{}

func (falseBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	return 1, interp.None, nil
}
