package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtualFileRoundTrip(t *testing.T) {
	v := NewVirtual()

	fd, err := v.Open("/f.txt", OpenWrite|OpenCreate, 0644)
	require.NoError(t, err)
	_, err = v.Write(fd, []byte("hello"))
	require.NoError(t, err)
	require.NoError(t, v.Close(fd))

	fd, err = v.Open("/f.txt", OpenRead, 0)
	require.NoError(t, err)
	buf := make([]byte, 16)
	n, err := v.Read(fd, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestVirtualOpenFlags(t *testing.T) {
	v := NewVirtual()

	_, err := v.Open("/missing", OpenRead, 0)
	assert.Error(t, err, "open without create on a missing file")

	fd, err := v.Open("/new", OpenWrite|OpenCreate, 0644)
	require.NoError(t, err)
	v.Write(fd, []byte("data"))
	v.Close(fd)

	_, err = v.Open("/new", OpenWrite|OpenCreate|OpenExclusive, 0644)
	assert.Error(t, err, "exclusive create on an existing file")

	fd, err = v.Open("/new", OpenWrite|OpenCreate|OpenTruncate, 0644)
	require.NoError(t, err)
	rfd, _ := v.Open("/new", OpenRead, 0)
	n, _ := v.Read(rfd, make([]byte, 8))
	assert.Zero(t, n, "truncate did not clear content")
	v.Close(fd)
	v.Close(rfd)
}

func TestVirtualPipe(t *testing.T) {
	v := NewVirtual()
	r, w, err := v.Pipe()
	require.NoError(t, err)

	v.Write(w, []byte("through the pipe"))
	buf := make([]byte, 32)
	n, err := v.Read(r, buf)
	require.NoError(t, err)
	assert.Equal(t, "through the pipe", string(buf[:n]))
}

func TestVirtualDup2SharesBuffer(t *testing.T) {
	v := NewVirtual()
	out := v.InstallFd(1)
	errFd := v.InstallFd(2)

	require.NoError(t, v.Dup2(2, 1))
	v.Write(1, []byte("redirected"))
	assert.Equal(t, "redirected", string(*errFd))
	assert.Empty(t, string(*out))
}

func TestVirtualScriptedExternal(t *testing.T) {
	v := NewVirtual()
	out := v.InstallFd(1)
	v.ProgramExternal("/bin/tool", 3, "tool output\n", "")

	pid, err := v.StartProcess("/bin/tool", []string{"tool"}, nil, [3]int{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, "tool output\n", string(*out))

	res, err := v.Wait(pid, true)
	require.NoError(t, err)
	assert.True(t, res.Exited)
	assert.Equal(t, 3, res.ExitCode)
}

func TestVirtualUnprogrammedExternalFails(t *testing.T) {
	v := NewVirtual()
	_, err := v.StartProcess("/bin/unknown", nil, nil, [3]int{0, 1, 2})
	assert.Error(t, err)
}

func TestVirtualSignalDelivery(t *testing.T) {
	v := NewVirtual()

	// Without a catching disposition, a self-kill is dropped.
	require.NoError(t, v.Kill(v.Getpid(), 2))
	assert.Empty(t, v.CaughtSignals())

	require.NoError(t, v.SigactionCatch("INT"))
	require.NoError(t, v.Kill(v.Getpid(), 2))
	assert.Equal(t, []string{"INT"}, v.CaughtSignals())
	assert.Empty(t, v.CaughtSignals(), "CaughtSignals must drain")
}

func TestVirtualSignalNames(t *testing.T) {
	v := NewVirtual()
	name, ok := v.SignalNameFromNumber(9)
	require.True(t, ok)
	assert.Equal(t, "KILL", name)

	n, ok := v.SignalNumberFromName("TERM")
	require.True(t, ok)
	assert.Equal(t, 15, n)

	assert.True(t, v.ValidateSignal(2))
	assert.False(t, v.ValidateSignal(63))
}

func TestVirtualDirectories(t *testing.T) {
	v := NewVirtual()
	v.WriteFile("/src/a.go", []byte("package a"), false)
	v.WriteFile("/src/b.go", nil, false)
	v.MkdirAll("/src/nested")

	names, err := v.ReadDir("/src")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "b.go", "nested"}, names)

	require.NoError(t, v.Chdir("/src"))
	cwd, _ := v.Getcwd()
	assert.Equal(t, "/src", cwd)
	assert.Error(t, v.Chdir("/src/a.go"), "chdir into a file")
}

func TestVirtualExecutableCheck(t *testing.T) {
	v := NewVirtual()
	v.WriteFile("/bin/x", nil, true)
	v.WriteFile("/bin/y", nil, false)
	assert.True(t, v.IsExecutableFile("/bin/x"))
	assert.False(t, v.IsExecutableFile("/bin/y"))
	assert.False(t, v.IsExecutableFile("/bin"))
}
