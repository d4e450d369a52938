package builtin

import (
	"strconv"
	"strings"

	"github.com/cmdshell/posh/internal/interp"
)

// killBuiltin implements `kill [-s sig|-sig] pid...` (spec.md §5.1's
// signal name/number resolution supplement): sends a signal to each
// target through the System capability layer, so self-targeted
// delivery (`kill -INT $$`) is indistinguishable from an externally
// delivered signal to the trap runtime that later drains it.
type killBuiltin struct{}

func (killBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	args := argv[1:]
	sig := 15 // SIGTERM
	if len(args) > 0 && args[0] == "-l" {
		for _, name := range signalNames(ex) {
			writeOut(ex, name+"\n")
		}
		return 0, interp.None, nil
	}
	if len(args) > 0 && strings.HasPrefix(args[0], "-s") {
		spec := strings.TrimPrefix(args[0], "-s")
		if spec == "" && len(args) > 1 {
			spec, args = args[1], args[1:]
		}
		n, ok := resolveSignal(ex, spec)
		if !ok {
			return 1, interp.None, usageError(argv[0], "%s: invalid signal specification", spec)
		}
		sig = n
		args = args[1:]
	} else if len(args) > 0 && len(args[0]) > 1 && args[0][0] == '-' {
		n, ok := resolveSignal(ex, args[0][1:])
		if !ok {
			return 1, interp.None, usageError(argv[0], "%s: invalid signal specification", args[0])
		}
		sig = n
		args = args[1:]
	}
	if len(args) == 0 {
		return 2, interp.None, usageError(argv[0], "usage: kill [-s sig|-sig] pid...")
	}

	status := 0
	for _, t := range args {
		pid, ok := resolveTarget(ex, t)
		if !ok {
			writeErr(ex, usageError(argv[0], "%s: no such job or process", t).Error()+"\n")
			status = 1
			continue
		}
		if err := ex.Sys.Kill(pid, sig); err != nil {
			writeErr(ex, usageError(argv[0], "%s: %v", t, err).Error()+"\n")
			status = 1
		}
	}
	return status, interp.None, nil
}

func resolveSignal(ex *interp.Executor, spec string) (int, bool) {
	if n, err := strconv.Atoi(spec); err == nil {
		if ex.Sys.ValidateSignal(n) {
			return n, true
		}
		return 0, false
	}
	return ex.Sys.SignalNumberFromName(strings.TrimPrefix(spec, "SIG"))
}

func resolveTarget(ex *interp.Executor, t string) (int, bool) {
	if strings.HasPrefix(t, "%") {
		id, err := strconv.Atoi(strings.TrimPrefix(t, "%"))
		if err != nil {
			return 0, false
		}
		job := ex.Env.Jobs.ByID(id)
		if job == nil {
			return 0, false
		}
		return job.Pid, true
	}
	pid, err := strconv.Atoi(t)
	if err != nil {
		return 0, false
	}
	return pid, true
}
