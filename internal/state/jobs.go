package state

// JobState is a job-table entry's current run state (spec.md §3.5).
type JobState int

const (
	JobRunning JobState = iota
	JobStopped
	JobExited
	JobSignaled
)

// Job is one process-id-keyed job-table entry.
type Job struct {
	ID                int
	Pid               int
	Name              string
	JobControlled     bool
	State             JobState
	Signal            int // meaningful for JobStopped/JobSignaled
	ExitStatus        int // meaningful for JobExited
	LastReportedState JobState
}

// Jobs is the Environment's job-table subsystem (SPEC_FULL.md §5.1:
// last_reported_state supports `notify`-style asynchronous reporting).
type Jobs struct {
	byPid  map[int]*Job
	order  []int
	nextID int
}

func newJobs() *Jobs { return &Jobs{byPid: map[int]*Job{}} }

// Add registers a newly spawned job and returns its job-table id.
func (j *Jobs) Add(pid int, name string, jobControlled bool) int {
	j.nextID++
	job := &Job{ID: j.nextID, Pid: pid, Name: name, JobControlled: jobControlled, State: JobRunning}
	j.byPid[pid] = job
	j.order = append(j.order, pid)
	return job.ID
}

// Get returns the job for pid, or nil.
func (j *Jobs) Get(pid int) *Job { return j.byPid[pid] }

// ByID returns the job with the given job-table id, or nil.
func (j *Jobs) ByID(id int) *Job {
	for _, pid := range j.order {
		if job := j.byPid[pid]; job != nil && job.ID == id {
			return job
		}
	}
	return nil
}

// SetState updates pid's run state.
func (j *Jobs) SetState(pid int, state JobState, code int) {
	if job, ok := j.byPid[pid]; ok {
		job.State = state
		switch state {
		case JobExited:
			job.ExitStatus = code
		case JobSignaled, JobStopped:
			job.Signal = code
		}
	}
}

// MarkReported updates LastReportedState to the job's current State,
// called after the `jobs`/notify machinery has surfaced a state
// transition to the user.
func (j *Jobs) MarkReported(pid int) {
	if job, ok := j.byPid[pid]; ok {
		job.LastReportedState = job.State
	}
}

// All returns every tracked job in insertion order.
func (j *Jobs) All() []*Job {
	out := make([]*Job, 0, len(j.order))
	for _, pid := range j.order {
		out = append(out, j.byPid[pid])
	}
	return out
}

// Remove deletes pid's job-table entry (after it has been waited for
// and reported).
func (j *Jobs) Remove(pid int) {
	delete(j.byPid, pid)
	for i, p := range j.order {
		if p == pid {
			j.order = append(j.order[:i], j.order[i+1:]...)
			break
		}
	}
}
