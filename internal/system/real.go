package system

import (
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"
)

// Real is the OS-backed System implementation (SPEC_FULL.md §3):
// golang.org/x/sys/unix for process groups, terminal control and
// signal plumbing, github.com/mattn/go-isatty for the Terminal group.
type Real struct {
	signalNames  map[string]os.Signal
	numberToName map[int]string
}

// NewReal constructs the real System.
func NewReal() *Real {
	r := &Real{
		signalNames:  map[string]os.Signal{},
		numberToName: map[int]string{},
	}
	for name, sig := range signalTable {
		r.signalNames[name] = sig
		r.numberToName[int(sig.(syscall.Signal))] = name
	}
	return r
}

// --- Processes ---

func (r *Real) Fork() (int, bool, error) {
	return 0, false, &ErrUnsupported{Op: "fork (use os/exec-based Exec from a goroutine instead)"}
}

func (r *Real) Exec(path string, argv []string, envp []string) error {
	return syscall.Exec(path, argv, envp)
}

func (r *Real) Wait(pid int, blocking bool) (WaitResult, error) {
	var status unix.WaitStatus
	options := 0
	if !blocking {
		options |= unix.WNOHANG
	}
	wpid, err := unix.Wait4(pid, &status, options, nil)
	if err != nil {
		return WaitResult{}, err
	}
	res := WaitResult{Pid: wpid}
	switch {
	case status.Exited():
		res.Exited = true
		res.ExitCode = status.ExitStatus()
	case status.Signaled():
		res.Signaled = true
		res.Signal = int(status.Signal())
	case status.Stopped():
		res.Stopped = true
		res.StopSig = int(status.StopSignal())
	}
	return res, nil
}

func (r *Real) Getpid() int  { return os.Getpid() }
func (r *Real) Getppid() int { return os.Getppid() }

func (r *Real) Setpgid(pid, pgid int) error { return unix.Setpgid(pid, pgid) }

func (r *Real) Tcgetpgrp(fd int) (int, error) { return unix.IoctlGetInt(fd, unix.TIOCGPGRP) }

func (r *Real) Tcsetpgrp(fd int, pgid int) error {
	return unix.IoctlSetPointerInt(fd, unix.TIOCSPGRP, pgid)
}

func (r *Real) Kill(pid int, sig int) error { return unix.Kill(pid, unix.Signal(sig)) }

func (r *Real) StartProcess(path string, argv []string, envp []string, fds [3]int) (int, error) {
	files := make([]*os.File, 3)
	for i, fd := range fds {
		files[i] = os.NewFile(uintptr(fd), "")
	}
	proc, err := os.StartProcess(path, argv, &os.ProcAttr{Env: envp, Files: files})
	if err != nil {
		return 0, err
	}
	return proc.Pid, nil
}

// --- FileDescriptors ---

func (r *Real) Open(path string, flags OpenFlag, mode uint32) (int, error) {
	osFlags := 0
	switch {
	case flags&OpenWrite != 0 && flags&OpenRead != 0:
		osFlags |= os.O_RDWR
	case flags&OpenWrite != 0:
		osFlags |= os.O_WRONLY
	default:
		osFlags |= os.O_RDONLY
	}
	if flags&OpenCreate != 0 {
		osFlags |= os.O_CREATE
	}
	if flags&OpenTruncate != 0 {
		osFlags |= os.O_TRUNC
	}
	if flags&OpenAppend != 0 {
		osFlags |= os.O_APPEND
	}
	if flags&OpenExclusive != 0 {
		osFlags |= os.O_EXCL
	}
	fd, err := unix.Open(path, osFlags, mode)
	return fd, err
}

func (r *Real) Close(fd int) error { return unix.Close(fd) }

func (r *Real) Dup(fd int) (int, error) { return unix.Dup(fd) }

func (r *Real) Dup2(oldfd, newfd int) error { return unix.Dup2(oldfd, newfd) }

func (r *Real) Pipe() (int, int, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return 0, 0, err
	}
	return fds[0], fds[1], nil
}

func (r *Real) Read(fd int, p []byte) (int, error) { return unix.Read(fd, p) }

func (r *Real) Write(fd int, p []byte) (int, error) { return unix.Write(fd, p) }

func (r *Real) Lseek(fd int, offset int64, whence int) (int64, error) {
	return unix.Seek(fd, offset, whence)
}

func (r *Real) OpenTmpfile(dir string) (int, error) {
	f, err := os.CreateTemp(dir, "posh-heredoc-*")
	if err != nil {
		return 0, err
	}
	unix.Unlink(f.Name())
	return int(f.Fd()), nil
}

// --- Filesystem ---

func (r *Real) Stat(path string) (bool, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, false, nil
		}
		return false, false, err
	}
	return info.IsDir(), true, nil
}

func (r *Real) IsExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0111 != 0
}

func (r *Real) Getcwd() (string, error) { return os.Getwd() }

func (r *Real) Chdir(path string) error { return os.Chdir(path) }

func (r *Real) HomeDir(user string) (string, bool) {
	if user == "" {
		if h, err := os.UserHomeDir(); err == nil {
			return h, true
		}
		return "", false
	}
	u, err := lookupUserHomeDir(user)
	if err != nil {
		return "", false
	}
	return u, true
}

func (r *Real) ReadDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// --- Signals ---

func (r *Real) SigactionCatch(name string) error {
	sig, ok := r.signalNames[name]
	if !ok {
		return &ErrUnsupported{Op: "unknown signal " + name}
	}
	ch := make(chan os.Signal, 1)
	signalNotify(ch, sig)
	go func() {
		for range ch {
			pendingSignals.mark(name)
		}
	}()
	return nil
}

func (r *Real) SigactionIgnore(name string) error {
	sig, ok := r.signalNames[name]
	if !ok {
		return &ErrUnsupported{Op: "unknown signal " + name}
	}
	signalIgnore(sig)
	return nil
}

func (r *Real) SigactionDefault(name string) error {
	sig, ok := r.signalNames[name]
	if !ok {
		return &ErrUnsupported{Op: "unknown signal " + name}
	}
	signalReset(sig)
	return nil
}

func (r *Real) SignalNameFromNumber(n int) (string, bool) {
	name, ok := r.numberToName[n]
	return name, ok
}

func (r *Real) SignalNumberFromName(name string) (int, bool) {
	sig, ok := r.signalNames[name]
	if !ok {
		return 0, false
	}
	return int(sig.(syscall.Signal)), true
}

func (r *Real) ValidateSignal(n int) bool {
	_, ok := r.numberToName[n]
	return ok
}

func (r *Real) CaughtSignals() []string { return pendingSignals.drain() }

// --- TimeResources ---

func (r *Real) Now() time.Time { return time.Now() }

func (r *Real) Times() (time.Duration, time.Duration, time.Duration, time.Duration) {
	var ru unix.Rusage
	unix.Getrusage(unix.RUSAGE_SELF, &ru)
	var ruChild unix.Rusage
	unix.Getrusage(unix.RUSAGE_CHILDREN, &ruChild)
	return timevalToDuration(ru.Utime), timevalToDuration(ru.Stime),
		timevalToDuration(ruChild.Utime), timevalToDuration(ruChild.Stime)
}

func (r *Real) Getrlimit(resource string) (int64, int64, error) {
	res, ok := rlimitTable[resource]
	if !ok {
		return 0, 0, &ErrUnsupported{Op: "rlimit " + resource}
	}
	var lim unix.Rlimit
	if err := unix.Getrlimit(res, &lim); err != nil {
		return 0, 0, err
	}
	return int64(lim.Cur), int64(lim.Max), nil
}

func (r *Real) Setrlimit(resource string, soft, hard int64) error {
	res, ok := rlimitTable[resource]
	if !ok {
		return &ErrUnsupported{Op: "rlimit " + resource}
	}
	lim := unix.Rlimit{Cur: uint64(soft), Max: uint64(hard)}
	return unix.Setrlimit(res, &lim)
}

// --- Terminal ---

func (r *Real) Isatty(fd int) bool { return isatty.IsTerminal(uintptr(fd)) }

// --- Sysconf ---

func (r *Real) ConfstrPath() string {
	if p, err := exec.LookPath("sh"); err == nil {
		return filepath.Dir(p) + ":/usr/bin"
	}
	return "/bin:/usr/bin"
}

func (r *Real) ShellPath() string {
	if p, err := exec.LookPath("sh"); err == nil {
		return p
	}
	return "/bin/sh"
}

var _ System = (*Real)(nil)

func timevalToDuration(tv unix.Timeval) time.Duration {
	return time.Duration(tv.Sec)*time.Second + time.Duration(tv.Usec)*time.Microsecond
}

var rlimitTable = map[string]int{
	"cpu":    unix.RLIMIT_CPU,
	"fsize":  unix.RLIMIT_FSIZE,
	"data":   unix.RLIMIT_DATA,
	"stack":  unix.RLIMIT_STACK,
	"nofile": unix.RLIMIT_NOFILE,
	"as":     unix.RLIMIT_AS,
}
