package trap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmdshell/posh/internal/ast"
	"github.com/cmdshell/posh/internal/builtin"
	"github.com/cmdshell/posh/internal/expand"
	"github.com/cmdshell/posh/internal/interp"
	"github.com/cmdshell/posh/internal/source"
	"github.com/cmdshell/posh/internal/state"
	"github.com/cmdshell/posh/internal/system"
	"github.com/cmdshell/posh/internal/trap"
)

func newRunner(t *testing.T) (*trap.Runner, *interp.Executor, *system.Virtual, *[]byte) {
	t.Helper()
	sys := system.NewVirtual()
	sys.InstallFd(0)
	out := sys.InstallFd(1)
	sys.InstallFd(2)

	env := state.New("posh", nil)
	env.SetPid(sys.Getpid())
	ex := interp.New(env, sys, builtin.New(), nil)
	ex.Expander = expand.New(env, sys, ex.RunCommandSubstitution, env.ExitStatusPtr())
	ex.RunList = func(list *ast.List) (interp.Divert, error) {
		return ex.ExecList(list), nil
	}
	return trap.New(ex, sys), ex, sys, out
}

func TestRunPendingExecutesCommandAction(t *testing.T) {
	r, ex, sys, out := newRunner(t)
	ex.Env.Traps.Set("INT", state.TrapCommand, "echo trapped", source.Location{})
	r.Sync()
	sys.Raise("INT")

	d := r.RunPending()
	require.True(t, d.IsNone())
	assert.Equal(t, "trapped\n", string(*out))
}

func TestRunPendingRestoresExitStatus(t *testing.T) {
	r, ex, sys, _ := newRunner(t)
	ex.Env.Traps.Set("INT", state.TrapCommand, "true", source.Location{})
	r.Sync()
	ex.Env.SetExitStatus(33)
	sys.Raise("INT")

	r.RunPending()
	assert.Equal(t, 33, ex.Env.ExitStatus(), "trap action must not clobber $?")
}

func TestRunExitRunsExactlyOnce(t *testing.T) {
	r, ex, _, out := newRunner(t)
	ex.Env.Traps.Set("EXIT", state.TrapCommand, "echo bye", source.Location{})

	status := r.RunExit(4)
	assert.Equal(t, 4, status)
	status = r.RunExit(4)
	assert.Equal(t, 4, status)
	assert.Equal(t, "bye\n", string(*out), "EXIT trap ran more than once")
}

func TestRunExitWithoutTrapIsNoOp(t *testing.T) {
	r, _, _, out := newRunner(t)
	assert.Equal(t, 9, r.RunExit(9))
	assert.Empty(t, string(*out))
}

func TestRunExitHonorsExitOverride(t *testing.T) {
	r, ex, _, _ := newRunner(t)
	ex.Env.Traps.Set("EXIT", state.TrapCommand, "exit 7", source.Location{})
	assert.Equal(t, 7, r.RunExit(0))
}

func TestIgnoredSignalNeverRuns(t *testing.T) {
	r, ex, sys, out := newRunner(t)
	ex.Env.Traps.Set("TERM", state.TrapIgnore, "", source.Location{})
	r.Sync()
	sys.Raise("TERM")

	d := r.RunPending()
	assert.True(t, d.IsNone())
	assert.Empty(t, string(*out))
}
