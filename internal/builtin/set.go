package builtin

import (
	"sort"

	"github.com/cmdshell/posh/internal/interp"
)

// longOptionNames maps `set -o name`/`set +o name` spellings to the
// same canonical flag names shortFlagNames resolves from a letter
// (spec.md §3.5, §6.1).
var longOptionNames = map[string]bool{
	"allexport": true, "errexit": true, "noglob": true, "hashall": true,
	"monitor": true, "noexec": true, "nounset": true, "verbose": true,
	"xtrace": true, "noclobber": true, "pipefail": true, "notify": true,
	"ignoreeof": true, "vi": true, "emacs": true,
}

// setBuiltin implements `set` (spec.md §6.1): toggles shell options and
// replaces the positional parameters.
type setBuiltin struct{}

func (setBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	args := argv[1:]
	if len(args) == 0 {
		for _, name := range sortedNames(ex.Env.Vars.Names()) {
			scalar, _, isArray, _ := ex.Env.Vars.Lookup(name)
			if !isArray {
				writeOut(ex, name+"="+scalar+"\n")
			}
		}
		return 0, interp.None, nil
	}

	i := 0
	sawDashDash := false
	for i < len(args) {
		a := args[i]
		if a == "--" {
			i++
			sawDashDash = true
			break
		}
		if len(a) < 2 || (a[0] != '-' && a[0] != '+') {
			break
		}
		value := a[0] == '-'
		if a == "-o" || a == "+o" {
			i++
			if i >= len(args) {
				if value {
					printOptions(ex)
					i++
					continue
				}
				return 2, interp.None, usageError(argv[0], "-o: option name required")
			}
			if !longOptionNames[args[i]] {
				return 2, interp.None, usageError(argv[0], "%s: unknown option", args[i])
			}
			ex.Env.Options.Set(args[i], value)
			i++
			continue
		}
		for j := 1; j < len(a); j++ {
			if !ex.Env.Options.SetShort(a[j], value) {
				return 2, interp.None, usageError(argv[0], "%c: unknown option", a[j])
			}
		}
		i++
	}
	if i < len(args) || sawDashDash {
		ex.Env.Pos.SetAll(append([]string(nil), args[i:]...))
	}
	return 0, interp.None, nil
}

func printOptions(ex *interp.Executor) {
	for name := range longOptionNames {
		state := "off"
		if ex.Env.Options.Get(name) {
			state = "on"
		}
		writeOut(ex, "set -o "+name+"    "+state+"\n")
	}
}

func sortedNames(names []string) []string {
	out := append([]string(nil), names...)
	sort.Strings(out)
	return out
}
