package builtin

import (
	"github.com/cmdshell/posh/internal/interp"
)

// typeBuiltin implements `type name...` (spec.md §4.7: "`type` reports
// the category").
type typeBuiltin struct{}

func (typeBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	if len(argv) < 2 {
		return 2, interp.None, usageError(argv[0], "missing operand")
	}
	status := 0
	for _, name := range argv[1:] {
		if _, _, ok := ex.Env.Aliases.Lookup(name); ok {
			a := ex.Env.Aliases.Get(name)
			writeOut(ex, name+" is an alias for "+a.Replacement+"\n")
			continue
		}
		kind, path, ok := ex.CommandKind(name, false)
		if !ok {
			writeErr(ex, argv[0]+": "+name+": not found\n")
			status = 1
			continue
		}
		switch kind {
		case "special builtin":
			writeOut(ex, name+" is a special shell builtin\n")
		case "builtin":
			writeOut(ex, name+" is a shell builtin\n")
		case "function":
			writeOut(ex, name+" is a shell function\n")
		default:
			writeOut(ex, name+" is "+path+"\n")
		}
	}
	return status, interp.None, nil
}

// commandBuiltin implements `command [-p] [-v|-V] name [arg...]`
// (spec.md §4.7): bypass function lookup, restrict search categories,
// or just report the resolution.
type commandBuiltin struct{}

func (commandBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	args := argv[1:]
	verbose := false
	verboseLong := false
	defaultPath := false
	for len(args) > 0 && len(args[0]) > 1 && args[0][0] == '-' {
		switch args[0] {
		case "-v":
			verbose = true
		case "-V":
			verboseLong = true
		case "-p":
			defaultPath = true
		case "--":
			args = args[1:]
			goto operands
		default:
			return 2, interp.None, usageError(argv[0], "%s: unknown option", args[0])
		}
		args = args[1:]
	}
operands:
	if len(args) == 0 {
		return 2, interp.None, usageError(argv[0], "missing command name")
	}

	if defaultPath {
		// `command -p` searches the standard utility path instead of
		// the caller's $PATH (spec.md §6.5 Sysconf's confstr_path).
		saved, _, _, had := ex.Env.Vars.Lookup("PATH")
		ex.Env.Vars.Assign("PATH", ex.Sys.ConfstrPath())
		defer func() {
			if had {
				ex.Env.Vars.Assign("PATH", saved)
			} else {
				ex.Env.Vars.Unset("PATH")
			}
		}()
	}

	name := args[0]
	if verbose || verboseLong {
		kind, path, ok := ex.CommandKind(name, false)
		if !ok {
			return 1, interp.None, nil
		}
		if verboseLong {
			switch kind {
			case "file":
				writeOut(ex, name+" is "+path+"\n")
			case "function":
				writeOut(ex, name+" is a shell function\n")
			case "special builtin":
				writeOut(ex, name+" is a special shell builtin\n")
			default:
				writeOut(ex, name+" is a shell builtin\n")
			}
		} else {
			if kind == "file" {
				writeOut(ex, path+"\n")
			} else {
				writeOut(ex, name+"\n")
			}
		}
		return 0, interp.None, nil
	}

	d := ex.RunResolved(name, args, true)
	return ex.Env.ExitStatus(), d, nil
}
