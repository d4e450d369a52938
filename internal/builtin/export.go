package builtin

import (
	"strings"

	"github.com/cmdshell/posh/internal/interp"
	"github.com/cmdshell/posh/internal/source"
)

// exportBuiltin implements `export [-p] [name[=value]...]` (spec.md
// §4.7's declaration-utility rule: assignments here persist in the
// current scope, not a temporary one).
type exportBuiltin struct{}

func (exportBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	args := argv[1:]
	if len(args) > 0 && args[0] == "-p" {
		args = args[1:]
	}
	if len(args) == 0 {
		for _, kv := range ex.Env.Vars.Exported() {
			writeOut(ex, "export "+kv+"\n")
		}
		return 0, interp.None, nil
	}
	for _, a := range args {
		name, value, hasValue := strings.Cut(a, "=")
		if hasValue {
			if err := ex.Env.Vars.Assign(name, value); err != nil {
				return 1, interp.None, err
			}
		}
		ex.Env.Vars.SetExported(name, true)
	}
	return 0, interp.None, nil
}

// unsetBuiltin implements `unset [-v|-f] name...` (spec.md §4.7).
type unsetBuiltin struct{}

func (unsetBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	args := argv[1:]
	functions := false
	if len(args) > 0 && (args[0] == "-f" || args[0] == "-v") {
		functions = args[0] == "-f"
		args = args[1:]
	}
	status := 0
	for _, name := range args {
		if functions {
			if err := ex.Env.Functions.Unset(name); err != nil {
				writeErr(ex, usageError(argv[0], "%v", err).Error()+"\n")
				status = 1
			}
			continue
		}
		if err := ex.Env.Vars.Unset(name); err != nil {
			writeErr(ex, usageError(argv[0], "%v", err).Error()+"\n")
			status = 1
		}
	}
	return status, interp.None, nil
}

// readonlyBuiltin implements `readonly [-p] [name[=value]...]`.
type readonlyBuiltin struct{}

func (readonlyBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	args := argv[1:]
	if len(args) > 0 && args[0] == "-p" {
		args = args[1:]
	}
	if len(args) == 0 {
		for _, name := range ex.Env.Vars.Names() {
			if e := ex.Env.Vars.Entry(name); e != nil && e.IsReadonly {
				writeOut(ex, "readonly "+name+"="+e.Scalar+"\n")
			}
		}
		return 0, interp.None, nil
	}
	for _, a := range args {
		name, value, hasValue := strings.Cut(a, "=")
		if hasValue {
			if err := ex.Env.Vars.Assign(name, value); err != nil {
				return 1, interp.None, err
			}
		}
		ex.Env.Vars.SetReadonly(name, source.Location{})
	}
	return 0, interp.None, nil
}
