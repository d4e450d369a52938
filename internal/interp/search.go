package interp

import (
	"path/filepath"
	"strings"

	"github.com/cmdshell/posh/internal/ast"
)

// targetKind is the result of command search (spec.md §4.7).
type targetKind int

const (
	targetNone targetKind = iota
	targetSpecial
	targetFunction
	targetIntrinsic
	targetExternal
)

type target struct {
	kind     targetKind
	builtin  Builtin
	function *ast.FunctionBody
	path     string
}

// specialBuiltins is the fixed POSIX set whose errors escalate to Exit
// and whose assignments persist in the current scope (spec.md §4.7).
var specialBuiltins = map[string]bool{
	":": true, ".": true, "eval": true, "exec": true, "exit": true,
	"export": true, "readonly": true, "return": true, "set": true,
	"shift": true, "trap": true, "unset": true, "break": true,
	"continue": true, "times": true,
}

// searchCommand resolves name to an executable target, in the order
// spec.md §4.7 mandates: special built-in, function (if name is a
// valid identifier), intrinsic built-in, then $PATH search.
func (ex *Executor) searchCommand(name string) target {
	if specialBuiltins[name] {
		if b, special, ok := ex.Builtins.Lookup(name); ok && special {
			return target{kind: targetSpecial, builtin: b}
		}
	}
	if isValidIdentifier(name) {
		if fn := ex.Env.Functions.Lookup(name); fn != nil {
			return target{kind: targetFunction, function: fn.Body}
		}
	}
	if b, _, ok := ex.Builtins.Lookup(name); ok {
		return target{kind: targetIntrinsic, builtin: b}
	}
	if strings.Contains(name, "/") {
		if ex.Sys.IsExecutableFile(name) {
			return target{kind: targetExternal, path: name}
		}
		return target{}
	}
	scalar, _, _, _ := ex.Env.Lookup("PATH")
	for _, dir := range strings.Split(scalar, ":") {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, name)
		if ex.Sys.IsExecutableFile(candidate) {
			return target{kind: targetExternal, path: candidate}
		}
	}
	return target{}
}

// CommandKind classifies name the way `type`/`command -v` report it
// (spec.md §4.7): "special builtin", "builtin", "function", or "file"
// together with the utility's path, or ("", "", false) when nothing is
// found.
// noFunctions skips function lookup, for `command`'s bypass rule.
func (ex *Executor) CommandKind(name string, noFunctions bool) (kind string, path string, ok bool) {
	if specialBuiltins[name] {
		if _, special, found := ex.Builtins.Lookup(name); found && special {
			return "special builtin", "", true
		}
	}
	if !noFunctions && isValidIdentifier(name) {
		if fn := ex.Env.Functions.Lookup(name); fn != nil {
			return "function", "", true
		}
	}
	if _, _, found := ex.Builtins.Lookup(name); found {
		return "builtin", "", true
	}
	t := ex.searchCommand(name)
	if t.kind == targetExternal {
		return "file", t.path, true
	}
	return "", "", false
}

// RunResolved invokes name's resolved target with argv, bypassing
// function lookup when noFunctions is set — the execution half of the
// `command` built-in (spec.md §4.7).
func (ex *Executor) RunResolved(name string, argv []string, noFunctions bool) Divert {
	t := ex.searchCommand(name)
	if noFunctions && t.kind == targetFunction {
		if b, _, found := ex.Builtins.Lookup(name); found {
			t = target{kind: targetIntrinsic, builtin: b}
		} else {
			t = target{}
		}
	}
	switch t.kind {
	case targetSpecial, targetIntrinsic:
		return ex.invokeBuiltin(t, argv)
	case targetFunction:
		return ex.invokeFunction(argv, t.function)
	case targetExternal:
		return ex.invokeExternal(t.path, argv)
	default:
		ex.Env.SetExitStatus(statusCommandNotFound)
		return None
	}
}

func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		isAlpha := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if i == 0 && !isAlpha {
			return false
		}
		if i > 0 && !isAlpha && !isDigit {
			return false
		}
	}
	return true
}
