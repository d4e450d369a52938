// Package system implements the capability-bundle collaborator spec.md
// §6.5 describes: processes, file descriptors, filesystem/metadata,
// signals, time/resources, terminal and sysconf groups, each group
// provided by both a real OS-backed implementation (golang.org/x/sys,
// github.com/mattn/go-isatty — SPEC_FULL.md §3) and a virtual
// in-memory implementation for deterministic tests.
package system

import "time"

// WaitResult reports how a waited-for process ended.
type WaitResult struct {
	Pid      int
	Exited   bool
	ExitCode int
	Signaled bool
	Signal   int
	Stopped  bool
	StopSig  int
}

// System is the full capability bundle the core requires. Every
// implementation must provide every group or explicitly fail
// unsupported operations with ErrUnsupported (spec.md §6.5).
type System interface {
	Processes
	FileDescriptors
	Filesystem
	Signals
	TimeResources
	Terminal
	Sysconf
}

// Processes is the process-management capability group.
type Processes interface {
	Fork() (pid int, inChild bool, err error)
	Exec(path string, argv []string, envp []string) error
	Wait(pid int, blocking bool) (WaitResult, error)
	Getpid() int
	Getppid() int
	Setpgid(pid, pgid int) error
	Tcgetpgrp(fd int) (int, error)
	Tcsetpgrp(fd int, pgid int) error
	Kill(pid int, sig int) error
	// StartProcess launches path as a child process with argv/envp,
	// its stdin/stdout/stderr wired to the given file descriptors, and
	// returns its pid. This is the external-command step of spec.md
	// §4.5: Go offers no safe way to split fork() and exec() across a
	// single-threaded process, so the two are combined here instead of
	// composing Fork+Exec.
	StartProcess(path string, argv []string, envp []string, fds [3]int) (pid int, err error)
}

// OpenFlag mirrors the access modes a File redirection may request.
type OpenFlag int

const (
	OpenRead OpenFlag = 1 << iota
	OpenWrite
	OpenAppend
	OpenCreate
	OpenTruncate
	OpenExclusive
)

// FileDescriptors is the low-level I/O capability group.
type FileDescriptors interface {
	Open(path string, flags OpenFlag, mode uint32) (fd int, err error)
	Close(fd int) error
	Dup(fd int) (int, error)
	Dup2(oldfd, newfd int) error
	Pipe() (r, w int, err error)
	Read(fd int, p []byte) (int, error)
	Write(fd int, p []byte) (int, error)
	Lseek(fd int, offset int64, whence int) (int64, error)
	OpenTmpfile(dir string) (fd int, err error)
}

// Filesystem is the metadata/navigation capability group.
type Filesystem interface {
	Stat(path string) (isDir bool, exists bool, err error)
	IsExecutableFile(path string) bool
	Getcwd() (string, error)
	Chdir(path string) error
	HomeDir(user string) (string, bool)
	ReadDir(path string) ([]string, error)
}

// Signals is the signal-disposition capability group.
type Signals interface {
	SigactionCatch(name string) error
	SigactionIgnore(name string) error
	SigactionDefault(name string) error
	SignalNameFromNumber(n int) (string, bool)
	SignalNumberFromName(name string) (int, bool)
	ValidateSignal(n int) bool
	CaughtSignals() []string
}

// TimeResources is the time/resource-limit capability group.
type TimeResources interface {
	Now() time.Time
	Times() (userTime, systemTime, childUserTime, childSystemTime time.Duration)
	Getrlimit(resource string) (soft, hard int64, err error)
	Setrlimit(resource string, soft, hard int64) error
}

// Terminal is the terminal capability group.
type Terminal interface {
	Isatty(fd int) bool
}

// Sysconf is the sysconf capability group.
type Sysconf interface {
	ConfstrPath() string
	ShellPath() string
}

// ErrUnsupported is returned by an implementation (typically the
// virtual one) for an operation it does not model.
type ErrUnsupported struct{ Op string }

func (e *ErrUnsupported) Error() string { return "system: unsupported operation: " + e.Op }
