package interp

import "github.com/cmdshell/posh/internal/ast"

// RunCommandSubstitution executes body — the parsed command list
// inside `$(...)` or backquotes — in a forked subshell with its
// standard output captured, implementing expand.CommandRunner
// (spec.md §4.4's command substitution). It is a method rather than a
// free function so a command substitution encountered while expanding
// a word inside an already-forked pipeline stage or subshell forks
// from *that* Executor, not the top-level one: the clone carries its
// own Environment, and with it its own variables, cwd and exit status.
func (ex *Executor) RunCommandSubstitution(body []*ast.Item) (string, int, error) {
	r, w, err := ex.Sys.Pipe()
	if err != nil {
		return "", 0, err
	}
	clone := ex.forSubshell()
	clone.Stdout = w
	clone.ExecList(&ast.List{Items: body})
	ex.Sys.Close(w)

	var out []byte
	buf := make([]byte, 4096)
	for {
		n, rerr := ex.Sys.Read(r, buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if rerr != nil || n == 0 {
			break
		}
	}
	ex.Sys.Close(r)
	return string(out), clone.Env.ExitStatus(), nil
}
