package builtin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cmdshell/posh/internal/interp"
	"github.com/cmdshell/posh/internal/state"
)

// waitBuiltin implements `wait [pid|%id ...]` (spec.md §4.7): await the
// named jobs (or every known job) and report the last one's exit
// status. Caught signals interrupt the wait and run their traps first
// (spec.md §5: "`read` and `wait` explicitly check for caught
// signals").
type waitBuiltin struct{}

func (waitBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	if d := ex.DrainTraps(); !d.IsNone() {
		return 129, d, nil
	}

	var targets []*state.Job
	if len(argv) == 1 {
		targets = ex.Env.Jobs.All()
	} else {
		for _, arg := range argv[1:] {
			job, err := findJob(ex, arg)
			if err != nil {
				return 1, interp.None, err
			}
			if job == nil {
				// An unknown pid has "already been waited for": POSIX
				// says report 127 without failing the others.
				targets = append(targets, nil)
				continue
			}
			targets = append(targets, job)
		}
	}

	status := 0
	for _, job := range targets {
		if job == nil {
			status = 127
			continue
		}
		status = awaitJob(ex, job)
		ex.Env.Jobs.Remove(job.Pid)
	}
	return status, interp.None, nil
}

// awaitJob resolves one job to its final status, waiting through the
// System capability when the table still shows it running.
func awaitJob(ex *interp.Executor, job *state.Job) int {
	for {
		switch job.State {
		case state.JobExited:
			return job.ExitStatus
		case state.JobSignaled:
			return 128 + job.Signal
		}
		res, err := ex.Sys.Wait(job.Pid, true)
		if err != nil {
			return 127
		}
		if res.Stopped {
			ex.Env.Jobs.SetState(job.Pid, state.JobStopped, res.StopSig)
			continue
		}
		if res.Signaled {
			ex.Env.Jobs.SetState(job.Pid, state.JobSignaled, res.Signal)
		} else {
			ex.Env.Jobs.SetState(job.Pid, state.JobExited, res.ExitCode)
		}
	}
}

// findJob resolves a `wait`/`kill` operand: `%n` job id or a pid.
// A nil job with nil error means "valid operand, no such job".
func findJob(ex *interp.Executor, arg string) (*state.Job, error) {
	if strings.HasPrefix(arg, "%") {
		id, err := strconv.Atoi(arg[1:])
		if err != nil {
			return nil, usageError("wait", "%s: ambiguous job specification", arg)
		}
		job := ex.Env.Jobs.ByID(id)
		if job == nil {
			return nil, usageError("wait", "%s: no such job", arg)
		}
		return job, nil
	}
	pid, err := strconv.Atoi(arg)
	if err != nil {
		return nil, usageError("wait", "%s: not a process id", arg)
	}
	return ex.Env.Jobs.Get(pid), nil
}

// jobsBuiltin implements `jobs`: report every job-table entry,
// marking each as reported so `notify`-style asynchronous reporting
// does not repeat it (SPEC_FULL.md §5.1).
type jobsBuiltin struct{}

func (jobsBuiltin) Run(ex *interp.Executor, argv []string) (int, interp.Divert, error) {
	for _, job := range ex.Env.Jobs.All() {
		writeOut(ex, formatJob(job))
		ex.Env.Jobs.MarkReported(job.Pid)
	}
	return 0, interp.None, nil
}

func formatJob(job *state.Job) string {
	var stateText string
	switch job.State {
	case state.JobRunning:
		stateText = "Running"
	case state.JobStopped:
		stateText = "Stopped"
	case state.JobExited:
		if job.ExitStatus == 0 {
			stateText = "Done"
		} else {
			stateText = fmt.Sprintf("Done(%d)", job.ExitStatus)
		}
	case state.JobSignaled:
		stateText = fmt.Sprintf("Terminated(%d)", job.Signal)
	}
	return fmt.Sprintf("[%d] %-12s %s\n", job.ID, stateText, job.Name)
}
