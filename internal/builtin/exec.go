package builtin

import (
	"path/filepath"
	"strings"

	"github.com/cmdshell/posh/internal/interp"
)

// execBuiltin implements `exec [command [arg...]]` (spec.md §4.7):
// replaces the shell process image with command. With no operands it
// only applies pending redirections, which this implementation already
// does at the SimpleCommand level, so a bare `exec` is a no-op here.
type execBuiltin struct{}

func (execBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	if len(argv) < 2 {
		return 0, interp.None, nil
	}
	name := argv[1]
	path, ok := resolveExternal(ex, name)
	if !ok {
		return 127, interp.None, usageError(argv[0], "%s: not found", name)
	}
	envp := ex.Env.Vars.Exported()
	if err := ex.Sys.Exec(path, argv[1:], envp); err == nil {
		return 0, interp.None, nil // real system: image replaced, never reached
	}

	// No in-process exec available (the virtual system, or any backend
	// that only models fork+exec as StartProcess): run to completion and
	// carry the child's status out as our own exit, the closest
	// externally observable equivalent to replacing the shell's image.
	pid, err := ex.Sys.StartProcess(path, argv[1:], envp, [3]int{ex.Stdin, ex.Stdout, ex.Stderr})
	if err != nil {
		return 126, interp.None, err
	}
	for {
		res, werr := ex.Sys.Wait(pid, true)
		if werr != nil {
			status := 2
			return status, interp.Divert{Kind: interp.DivertExit, Status: &status}, nil
		}
		if res.Stopped {
			continue
		}
		status := res.ExitCode
		if res.Signaled {
			status = 128 + res.Signal
		}
		return status, interp.Divert{Kind: interp.DivertExit, Status: &status}, nil
	}
}

func resolveExternal(ex *interp.Executor, name string) (string, bool) {
	if name == "" {
		return "", false
	}
	if strings.Contains(name, "/") {
		if ex.Sys.IsExecutableFile(name) {
			return name, true
		}
		return "", false
	}
	scalar, _, _, _ := ex.Env.Lookup("PATH")
	for _, dir := range strings.Split(scalar, ":") {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, name)
		if ex.Sys.IsExecutableFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}
