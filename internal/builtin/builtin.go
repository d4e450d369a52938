// Package builtin implements the POSIX utilities spec.md §6.6 lists as
// intrinsic to the shell itself (spec.md §4.7): special built-ins
// whose errors end the shell (or subshell) and whose assignments
// persist in the caller's scope, and regular built-ins that behave
// like any other command. Each utility is the Go analogue of the
// teacher's evaluator built-in handlers, one file per utility or small
// family of utilities.
package builtin

import "github.com/cmdshell/posh/internal/interp"

// entry pairs a registered Builtin with whether it is a POSIX special
// built-in (spec.md §4.7's search-order and error-severity rules).
type entry struct {
	impl    interp.Builtin
	special bool
}

// Table is the concrete interp.BuiltinLookup the top-level program
// wires into every Executor.
type Table struct {
	entries map[string]entry
}

// New returns a Table with every built-in spec.md §6.6 names
// registered, plus `.`/`exec` (both already anticipated by interp's
// fixed special-built-in set but not themselves listed in §6.6 — see
// DESIGN.md).
func New() *Table {
	t := &Table{entries: map[string]entry{}}

	t.register(":", colonBuiltin{}, true)
	t.register("true", trueBuiltin{}, false)
	t.register("false", falseBuiltin{}, false)

	t.register("exit", exitBuiltin{}, true)
	t.register("return", returnBuiltin{}, true)
	t.register("break", breakBuiltin{}, true)
	t.register("continue", continueBuiltin{}, true)
	t.register("shift", shiftBuiltin{}, true)

	t.register("export", exportBuiltin{}, true)
	t.register("unset", unsetBuiltin{}, true)
	t.register("readonly", readonlyBuiltin{}, true)
	t.register("set", setBuiltin{}, true)

	t.register("eval", evalBuiltin{}, true)
	t.register(".", dotBuiltin{}, true)
	t.register("exec", execBuiltin{}, true)
	t.register("trap", trapBuiltin{}, true)

	t.register("cd", cdBuiltin{}, false)
	t.register("pwd", pwdBuiltin{}, false)
	t.register("read", readBuiltin{}, false)
	t.register("getopts", getoptsBuiltin{}, false)
	t.register("wait", waitBuiltin{}, false)
	t.register("kill", killBuiltin{}, false)
	t.register("times", timesBuiltin{}, true)

	t.register("echo", echoBuiltin{}, false)
	t.register("printf", printfBuiltin{}, false)

	t.register("alias", aliasBuiltin{}, false)
	t.register("unalias", unaliasBuiltin{}, false)
	t.register("type", typeBuiltin{}, false)
	t.register("command", commandBuiltin{}, false)
	t.register("umask", umaskBuiltin{}, false)
	t.register("jobs", jobsBuiltin{}, false)
	t.register("ulimit", ulimitBuiltin{}, false)

	return t
}

func (t *Table) register(name string, b interp.Builtin, special bool) {
	t.entries[name] = entry{impl: b, special: special}
}

// Lookup implements interp.BuiltinLookup.
func (t *Table) Lookup(name string) (interp.Builtin, bool, bool) {
	e, ok := t.entries[name]
	if !ok {
		return nil, false, false
	}
	return e.impl, e.special, true
}

// Names returns every registered built-in name, for `type`/`command -v`.
func (t *Table) Names() []string {
	out := make([]string, 0, len(t.entries))
	for n := range t.entries {
		out = append(out, n)
	}
	return out
}
