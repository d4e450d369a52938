package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnAndRunToCompletion(t *testing.T) {
	rt := New()
	ran := 0
	rt.SpawnPinned(func() bool {
		ran++
		return true
	})

	require.Equal(t, 1, rt.Pending())
	n := rt.RunUntilStalled()
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, ran)
	assert.Equal(t, 0, rt.Pending())
	assert.True(t, rt.Idle())
}

func TestSuspendedTaskNeedsWake(t *testing.T) {
	rt := New()
	polls := 0
	ready := false
	_, wake := rt.SpawnPinned(func() bool {
		polls++
		return ready
	})

	rt.RunUntilStalled()
	require.Equal(t, 1, polls)
	require.Equal(t, 1, rt.Pending(), "suspended task must stay registered")

	// Not woken: stepping does nothing.
	assert.False(t, rt.Step())

	ready = true
	wake()
	rt.RunUntilStalled()
	assert.Equal(t, 2, polls)
	assert.Equal(t, 0, rt.Pending())
}

func TestWakeAfterCompletionIsNoOp(t *testing.T) {
	rt := New()
	_, wake := rt.SpawnPinned(func() bool { return true })
	rt.RunUntilStalled()

	wake()
	assert.True(t, rt.Idle())
	assert.False(t, rt.Step())
}

func TestDoubleWakeEnqueuesOnce(t *testing.T) {
	rt := New()
	polls := 0
	id, _ := rt.SpawnPinned(func() bool {
		polls++
		return polls >= 2
	})
	rt.RunUntilStalled()
	require.Equal(t, 1, polls)

	rt.Wake(id)
	rt.Wake(id)
	rt.RunUntilStalled()
	assert.Equal(t, 2, polls, "duplicate wakes must collapse into one poll")
}

func TestStepIsFair(t *testing.T) {
	rt := New()
	var order []string
	rt.SpawnPinned(func() bool {
		order = append(order, "a")
		return true
	})
	rt.SpawnPinned(func() bool {
		order = append(order, "b")
		return true
	})

	require.True(t, rt.Step())
	require.True(t, rt.Step())
	assert.Equal(t, []string{"a", "b"}, order)
}
