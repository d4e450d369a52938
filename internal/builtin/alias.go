package builtin

import (
	"sort"
	"strings"

	"github.com/cmdshell/posh/internal/interp"
	"github.com/cmdshell/posh/internal/quote"
	"github.com/cmdshell/posh/internal/source"
)

// aliasBuiltin implements `alias [name[=value]...]` (spec.md §3.5: the
// alias set is mutated only by alias/unalias and initial
// configuration).
type aliasBuiltin struct{}

func (aliasBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	args := argv[1:]
	global := false
	if len(args) > 0 && args[0] == "-g" {
		global = true
		args = args[1:]
	}
	if len(args) == 0 {
		names := ex.Env.Aliases.Names()
		sort.Strings(names)
		for _, name := range names {
			a := ex.Env.Aliases.Get(name)
			writeOut(ex, name+"="+quote.Quote(a.Replacement)+"\n")
		}
		return 0, interp.None, nil
	}

	status := 0
	for _, arg := range args {
		eq := strings.IndexByte(arg, '=')
		if eq < 0 {
			a := ex.Env.Aliases.Get(arg)
			if a == nil {
				writeErr(ex, argv[0]+": "+arg+": not found\n")
				status = 1
				continue
			}
			writeOut(ex, arg+"="+quote.Quote(a.Replacement)+"\n")
			continue
		}
		name := arg[:eq]
		if name == "" {
			writeErr(ex, argv[0]+": "+arg+": invalid alias name\n")
			status = 1
			continue
		}
		ex.Env.Aliases.Set(name, arg[eq+1:], global, source.Location{})
	}
	return status, interp.None, nil
}

// unaliasBuiltin implements `unalias [-a] name...`.
type unaliasBuiltin struct{}

func (unaliasBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	args := argv[1:]
	if len(args) == 1 && args[0] == "-a" {
		ex.Env.Aliases.UnsetAll()
		return 0, interp.None, nil
	}
	if len(args) == 0 {
		return 2, interp.None, usageError(argv[0], "missing alias name")
	}
	status := 0
	for _, name := range args {
		if !ex.Env.Aliases.Unset(name) {
			writeErr(ex, argv[0]+": "+name+": not found\n")
			status = 1
		}
	}
	return status, interp.None, nil
}
