package builtin

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cmdshell/posh/internal/interp"
)

// pwdBuiltin implements `pwd`: print the current working directory as
// the System capability reports it.
type pwdBuiltin struct{}

func (pwdBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	cwd, err := ex.Sys.Getcwd()
	if err != nil {
		return 1, interp.None, usageError(argv[0], "%v", err)
	}
	writeOut(ex, cwd+"\n")
	return 0, interp.None, nil
}

// timesBuiltin implements `times`: accumulated user/system CPU times
// for the shell and its children, in the POSIX "1m2.345678s" format.
type timesBuiltin struct{}

func (timesBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	user, sys, childUser, childSys := ex.Sys.Times()
	writeOut(ex, formatTimes(user)+" "+formatTimes(sys)+"\n")
	writeOut(ex, formatTimes(childUser)+" "+formatTimes(childSys)+"\n")
	return 0, interp.None, nil
}

func formatTimes(d time.Duration) string {
	minutes := int64(d / time.Minute)
	seconds := float64(d%time.Minute) / float64(time.Second)
	return fmt.Sprintf("%dm%fs", minutes, seconds)
}

// umaskKey stores the shell's file-creation mask in the dependency bag:
// the mask is process-wide OS state the System capability bundle does
// not model (spec.md §6.5), so the shell tracks its own view.
const umaskKey = "builtin.umask"

// umaskBuiltin implements `umask [mask]` with octal masks only.
type umaskBuiltin struct{}

func (umaskBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	if len(argv) == 1 {
		mask := 0o22
		if v, ok := ex.Env.Deps.Get(umaskKey); ok {
			mask = v.(int)
		}
		writeOut(ex, fmt.Sprintf("%04o\n", mask))
		return 0, interp.None, nil
	}
	mask, err := strconv.ParseInt(argv[1], 8, 32)
	if err != nil || mask < 0 || mask > 0o777 {
		return 1, interp.None, usageError(argv[0], "%s: invalid mask", argv[1])
	}
	ex.Env.Deps.Install(umaskKey, int(mask))
	return 0, interp.None, nil
}

// ulimitResources maps the option letters `ulimit` accepts to the
// resource names the System capability understands.
var ulimitResources = map[string]string{
	"-f": "fsize",
	"-n": "nofile",
	"-t": "cpu",
	"-d": "data",
	"-s": "stack",
}

// ulimitBuiltin implements a minimal `ulimit [-f|-n|-t|-d|-s] [limit]`
// over the System capability's Getrlimit/Setrlimit; anything the
// platform does not model fails with its distinct unsupported error
// (see DESIGN.md's deliberate scope cut).
type ulimitBuiltin struct{}

func (ulimitBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	resource := "fsize"
	args := argv[1:]
	if len(args) > 0 {
		if r, ok := ulimitResources[args[0]]; ok {
			resource = r
			args = args[1:]
		} else if len(args[0]) > 1 && args[0][0] == '-' {
			return 2, interp.None, usageError(argv[0], "%s: unknown option", args[0])
		}
	}

	if len(args) == 0 {
		soft, _, err := ex.Sys.Getrlimit(resource)
		if err != nil {
			return 1, interp.None, usageError(argv[0], "%v", err)
		}
		if soft < 0 {
			writeOut(ex, "unlimited\n")
		} else {
			writeOut(ex, strconv.FormatInt(soft, 10)+"\n")
		}
		return 0, interp.None, nil
	}

	var soft int64 = -1
	if args[0] != "unlimited" {
		n, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || n < 0 {
			return 2, interp.None, usageError(argv[0], "%s: invalid limit", args[0])
		}
		soft = n
	}
	if err := ex.Sys.Setrlimit(resource, soft, soft); err != nil {
		return 1, interp.None, usageError(argv[0], "%v", err)
	}
	return 0, interp.None, nil
}
