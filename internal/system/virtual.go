package system

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// Virtual is the deterministic in-memory System spec.md §6.5 calls for
// under testing: an in-memory filesystem, a scripted process table and
// a fixed clock, so that scenario tests (spec.md §8) never depend on
// the host's actual processes, files or wall-clock time.
type Virtual struct {
	mu sync.Mutex

	files   map[string]*virtualFile
	cwd     string
	homes   map[string]string
	procs   map[int]*virtualProc
	nextPid int
	fds     map[int]*virtualFD
	nextFd  int
	now     time.Time
	rlimits map[string][2]int64
	caught  []string
	raised  map[string]bool
	scripts map[string]scriptedExternal
}

// scriptedExternal is a test-programmed outcome for an external
// command launched through StartProcess.
type scriptedExternal struct {
	exitCode int
	stdout   string
	stderr   string
}

type virtualFile struct {
	isDir      bool
	content    []byte
	executable bool
}

type virtualProc struct {
	name     string
	exitCode int
	exited   bool
	signal   int
	signaled bool
}

type virtualFD struct {
	path   string
	pos    int64
	write  bool
	buffer *[]byte
}

// NewVirtual constructs an empty Virtual rooted at "/".
func NewVirtual() *Virtual {
	return &Virtual{
		files:   map[string]*virtualFile{"/": {isDir: true}},
		cwd:     "/",
		homes:   map[string]string{},
		procs:   map[int]*virtualProc{},
		nextPid: 100,
		fds:     map[int]*virtualFD{},
		nextFd:  10,
		now:     time.Unix(0, 0).UTC(),
		rlimits: map[string][2]int64{},
		raised:  map[string]bool{},
		scripts: map[string]scriptedExternal{},
	}
}

// ProgramExternal arranges for a future StartProcess call against path
// to exit with exitCode and produce stdout/stderr, for scenario tests
// that invoke an external command without a real OS process.
func (v *Virtual) ProgramExternal(path string, exitCode int, stdout, stderr string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scripts[path] = scriptedExternal{exitCode: exitCode, stdout: stdout, stderr: stderr}
}

// InstallFd installs fd as an in-memory descriptor and returns its
// backing buffer, so tests can seed a shell's stdin (fd 0) and capture
// its stdout/stderr (fds 1/2) without a real terminal.
func (v *Virtual) InstallFd(fd int) *[]byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	buf := new([]byte)
	v.fds[fd] = &virtualFD{buffer: buf, write: true}
	return buf
}

// WriteFile seeds path with content for a test fixture, creating its
// parent directories.
func (v *Virtual) WriteFile(p string, content []byte, executable bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ap := v.abs(p)
	v.mkdirs(path.Dir(ap))
	v.files[ap] = &virtualFile{content: content, executable: executable}
}

// MkdirAll seeds p (and every parent) as a directory.
func (v *Virtual) MkdirAll(p string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mkdirs(v.abs(p))
}

func (v *Virtual) mkdirs(ap string) {
	for ap != "/" && ap != "." {
		if f, ok := v.files[ap]; !ok || !f.isDir {
			v.files[ap] = &virtualFile{isDir: true}
		}
		ap = path.Dir(ap)
	}
}

// SetHome seeds the home directory reported for user.
func (v *Virtual) SetHome(user, dir string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.homes[user] = dir
}

// SetNow pins the clock Now() reports.
func (v *Virtual) SetNow(t time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.now = t
}

// Raise marks name as a signal the next CaughtSignals poll reports,
// simulating an external delivery for scenario tests.
func (v *Virtual) Raise(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.caught = append(v.caught, name)
}

func (v *Virtual) abs(p string) string {
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Clean(path.Join(v.cwd, p))
}

// --- Processes ---

func (v *Virtual) Fork() (int, bool, error) {
	return 0, false, &ErrUnsupported{Op: "fork not modeled by the virtual system"}
}

func (v *Virtual) Exec(path string, argv []string, envp []string) error {
	return &ErrUnsupported{Op: "exec not modeled by the virtual system"}
}

func (v *Virtual) Wait(pid int, blocking bool) (WaitResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	p, ok := v.procs[pid]
	if !ok {
		return WaitResult{}, fmt.Errorf("system: no such process %d", pid)
	}
	res := WaitResult{Pid: pid}
	if p.signaled {
		res.Signaled = true
		res.Signal = p.signal
	} else {
		res.Exited = true
		res.ExitCode = p.exitCode
	}
	delete(v.procs, pid)
	return res, nil
}

func (v *Virtual) Getpid() int  { return 1 }
func (v *Virtual) Getppid() int { return 0 }

func (v *Virtual) Setpgid(pid, pgid int) error { return nil }

func (v *Virtual) Tcgetpgrp(fd int) (int, error) { return v.Getpid(), nil }

func (v *Virtual) Tcsetpgrp(fd int, pgid int) error { return nil }

// Kill delivers sig to pid. A self-targeted kill (the shell's own pid,
// fixed at 1) never reaches a virtualProc table entry, so it is
// delivered the same way an external signal reaching CaughtSignals
// would be: if a handler is installed for it, it joins the pending
// queue the trap runtime polls; Ignore or Default dispositions (no
// entry in raised) are dropped, since the virtual system models
// neither Default's termination nor a subshell-local signal mask.
func (v *Virtual) Kill(pid int, sig int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if pid == v.Getpid() {
		if name, ok := virtualSignalNumbers[sig]; ok && v.raised[name] {
			v.caught = append(v.caught, name)
		}
		return nil
	}
	p, ok := v.procs[pid]
	if !ok {
		return fmt.Errorf("system: no such process %d", pid)
	}
	p.signaled = true
	p.signal = sig
	return nil
}

func (v *Virtual) StartProcess(path string, argv []string, envp []string, fds [3]int) (int, error) {
	v.mu.Lock()
	sc, ok := v.scripts[path]
	v.mu.Unlock()
	if !ok {
		return 0, &ErrUnsupported{Op: "exec of unprogrammed external command " + path}
	}
	if sc.stdout != "" {
		v.Write(fds[1], []byte(sc.stdout))
	}
	if sc.stderr != "" {
		v.Write(fds[2], []byte(sc.stderr))
	}
	return v.SpawnProcess(path, sc.exitCode), nil
}

// SpawnProcess registers a scripted process a test can later Wait on
// or Kill; it is the Virtual analogue of a forked child.
func (v *Virtual) SpawnProcess(name string, exitCode int) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	pid := v.nextPid
	v.nextPid++
	v.procs[pid] = &virtualProc{name: name, exitCode: exitCode}
	return pid
}

// --- FileDescriptors ---

func (v *Virtual) Open(p string, flags OpenFlag, mode uint32) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ap := v.abs(p)
	f, ok := v.files[ap]
	if !ok {
		if flags&OpenCreate == 0 {
			return 0, fmt.Errorf("system: %s: no such file", p)
		}
		f = &virtualFile{}
		v.files[ap] = f
	} else if flags&OpenExclusive != 0 {
		return 0, fmt.Errorf("system: %s: already exists", p)
	}
	if flags&OpenTruncate != 0 {
		f.content = nil
	}
	fd := v.nextFd
	v.nextFd++
	vfd := &virtualFD{path: ap, write: flags&(OpenWrite|OpenAppend) != 0, buffer: &f.content}
	if flags&OpenAppend != 0 {
		vfd.pos = int64(len(f.content))
	}
	v.fds[fd] = vfd
	return fd, nil
}

func (v *Virtual) Close(fd int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.fds, fd)
	return nil
}

func (v *Virtual) Dup(fd int) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	src, ok := v.fds[fd]
	if !ok {
		return 0, fmt.Errorf("system: bad file descriptor %d", fd)
	}
	nf := v.nextFd
	v.nextFd++
	cp := *src
	v.fds[nf] = &cp
	return nf, nil
}

func (v *Virtual) Dup2(oldfd, newfd int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	src, ok := v.fds[oldfd]
	if !ok {
		return fmt.Errorf("system: bad file descriptor %d", oldfd)
	}
	cp := *src
	v.fds[newfd] = &cp
	return nil
}

func (v *Virtual) Pipe() (int, int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	buf := new([]byte)
	r, w := v.nextFd, v.nextFd+1
	v.nextFd += 2
	v.fds[r] = &virtualFD{buffer: buf}
	v.fds[w] = &virtualFD{buffer: buf, write: true}
	return r, w, nil
}

func (v *Virtual) Read(fd int, p []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	f, ok := v.fds[fd]
	if !ok {
		return 0, fmt.Errorf("system: bad file descriptor %d", fd)
	}
	data := *f.buffer
	if f.pos >= int64(len(data)) {
		return 0, nil
	}
	n := copy(p, data[f.pos:])
	f.pos += int64(n)
	return n, nil
}

func (v *Virtual) Write(fd int, p []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	f, ok := v.fds[fd]
	if !ok {
		return 0, fmt.Errorf("system: bad file descriptor %d", fd)
	}
	*f.buffer = append(*f.buffer, p...)
	f.pos = int64(len(*f.buffer))
	return len(p), nil
}

func (v *Virtual) Lseek(fd int, offset int64, whence int) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	f, ok := v.fds[fd]
	if !ok {
		return 0, fmt.Errorf("system: bad file descriptor %d", fd)
	}
	switch whence {
	case 0:
		f.pos = offset
	case 1:
		f.pos += offset
	case 2:
		f.pos = int64(len(*f.buffer)) + offset
	}
	return f.pos, nil
}

func (v *Virtual) OpenTmpfile(dir string) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	buf := new([]byte)
	fd := v.nextFd
	v.nextFd++
	v.fds[fd] = &virtualFD{buffer: buf, write: true}
	return fd, nil
}

// --- Filesystem ---

func (v *Virtual) Stat(p string) (bool, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	f, ok := v.files[v.abs(p)]
	if !ok {
		return false, false, nil
	}
	return f.isDir, true, nil
}

func (v *Virtual) IsExecutableFile(p string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	f, ok := v.files[v.abs(p)]
	return ok && !f.isDir && f.executable
}

func (v *Virtual) Getcwd() (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cwd, nil
}

func (v *Virtual) Chdir(p string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	ap := v.abs(p)
	f, ok := v.files[ap]
	if !ok || !f.isDir {
		return fmt.Errorf("system: %s: not a directory", p)
	}
	v.cwd = ap
	return nil
}

func (v *Virtual) HomeDir(user string) (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if user == "" {
		d, ok := v.homes[""]
		return d, ok
	}
	d, ok := v.homes[user]
	return d, ok
}

func (v *Virtual) ReadDir(p string) ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ap := v.abs(p)
	prefix := strings.TrimSuffix(ap, "/") + "/"
	seen := map[string]bool{}
	var names []string
	for fp := range v.files {
		if fp == ap || !strings.HasPrefix(fp, prefix) {
			continue
		}
		rest := strings.TrimPrefix(fp, prefix)
		name := strings.SplitN(rest, "/", 2)[0]
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// --- Signals ---

func (v *Virtual) SigactionCatch(name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.raised[name] = true
	return nil
}

func (v *Virtual) SigactionIgnore(name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.raised, name)
	return nil
}

func (v *Virtual) SigactionDefault(name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.raised, name)
	return nil
}

func (v *Virtual) SignalNameFromNumber(n int) (string, bool) {
	name, ok := virtualSignalNumbers[n]
	return name, ok
}

func (v *Virtual) SignalNumberFromName(name string) (int, bool) {
	for n, nm := range virtualSignalNumbers {
		if nm == name {
			return n, true
		}
	}
	return 0, false
}

func (v *Virtual) ValidateSignal(n int) bool {
	_, ok := virtualSignalNumbers[n]
	return ok
}

func (v *Virtual) CaughtSignals() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.caught
	v.caught = nil
	return out
}

var virtualSignalNumbers = map[int]string{
	1: "HUP", 2: "INT", 3: "QUIT", 6: "ABRT", 9: "KILL", 10: "USR1",
	11: "SEGV", 12: "USR2", 13: "PIPE", 14: "ALRM", 15: "TERM",
	17: "CHLD", 18: "CONT", 19: "STOP", 20: "TSTP", 28: "WINCH",
}

// --- TimeResources ---

func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

func (v *Virtual) Times() (time.Duration, time.Duration, time.Duration, time.Duration) {
	return 0, 0, 0, 0
}

func (v *Virtual) Getrlimit(resource string) (int64, int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	lim, ok := v.rlimits[resource]
	if !ok {
		return -1, -1, nil
	}
	return lim[0], lim[1], nil
}

func (v *Virtual) Setrlimit(resource string, soft, hard int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rlimits[resource] = [2]int64{soft, hard}
	return nil
}

// --- Terminal ---

func (v *Virtual) Isatty(fd int) bool { return false }

// --- Sysconf ---

func (v *Virtual) ConfstrPath() string { return "/bin:/usr/bin" }

func (v *Virtual) ShellPath() string { return "/bin/sh" }

var _ System = (*Virtual)(nil)
