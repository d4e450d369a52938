package builtin

import (
	"strings"

	"github.com/cmdshell/posh/internal/interp"
	"github.com/cmdshell/posh/internal/source"
	"github.com/cmdshell/posh/internal/state"
	"github.com/cmdshell/posh/internal/system"
)

// dotBuiltin implements `. file [arg...]` (spec.md §4.7, §5.1): reads
// file and runs it as if its text had been typed at this point, in the
// current Environment (no function-call scoping). A `return` inside it
// unwinds only the dot-script, not further.
type dotBuiltin struct{}

func (dotBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	if len(argv) < 2 {
		return 2, interp.None, usageError(argv[0], "filename argument required")
	}
	path := argv[1]
	content, err := readWholeFile(ex, path)
	if err != nil {
		return 1, interp.None, usageError(argv[0], "%s: %v", path, err)
	}

	var restorePos func()
	if len(argv) > 2 {
		prevAll := ex.Env.Pos.PositionalAll()
		ex.Env.Pos.SetAll(argv[2:])
		restorePos = func() { ex.Env.Pos.SetAll(prevAll) }
	}

	ex.Env.Stack.Push(state.Frame{Kind: state.FrameDotScript, Name: path})
	d, rerr := ex.RunText(content, source.Origin{Kind: source.OriginDotScript, Name: path})
	ex.Env.Stack.Pop()
	if restorePos != nil {
		restorePos()
	}
	if rerr != nil {
		return 2, interp.None, rerr
	}
	if d.Kind == interp.DivertReturn {
		return d.StatusOr(ex.Env.ExitStatus()), interp.None, nil
	}
	return ex.Env.ExitStatus(), d, nil
}

func readWholeFile(ex *interp.Executor, path string) (string, error) {
	fd, err := ex.Sys.Open(path, system.OpenRead, 0)
	if err != nil {
		return "", err
	}
	defer ex.Sys.Close(fd)
	var sb strings.Builder
	buf := make([]byte, 4096)
	for {
		n, rerr := ex.Sys.Read(fd, buf)
		if n > 0 {
			sb.Write(buf[:n])
		}
		if rerr != nil || n == 0 {
			break
		}
	}
	return sb.String(), nil
}
