package builtin

import (
	"strings"

	"github.com/cmdshell/posh/internal/interp"
	"github.com/cmdshell/posh/internal/source"
)

// evalBuiltin implements `eval arg...` (spec.md §4.7): its operands,
// joined by spaces, are parsed and executed as if they were the
// shell's own input.
type evalBuiltin struct{}

func (evalBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	text := strings.Join(argv[1:], " ")
	if text == "" {
		return 0, interp.None, nil
	}
	d, err := ex.RunText(text, source.Origin{Kind: source.OriginEvalArgument})
	if err != nil {
		return 2, interp.None, err
	}
	return ex.Env.ExitStatus(), d, nil
}
