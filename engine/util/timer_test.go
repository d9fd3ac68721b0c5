package util

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerRecord(t *testing.T) {
	timer := NewTimer()
	timer.Record("cull", 2*time.Millisecond)
	timer.Record("cull", 4*time.Millisecond)
	timer.Record("build", 500*time.Microsecond)

	state, ok := timer.GetState("cull")
	require.True(t, ok)
	require.Equal(t, int64(2), state.ExecutionCount)
	require.InDelta(t, 4.0, state.LastDuration, 1e-9)
	require.InDelta(t, 6.0, state.TotalDuration, 1e-9)
	require.InDelta(t, 3.0, state.AverageDuration(), 1e-9)
	require.InDelta(t, 2.0, state.MinDuration, 1e-9)
	require.InDelta(t, 4.0, state.MaxDuration, 1e-9)

	_, ok = timer.GetState("missing")
	require.False(t, ok)

	states := timer.States()
	require.Len(t, states, 2)
	require.Equal(t, "cull", states[0].Name)
	require.Equal(t, "build", states[1].Name)
	require.Contains(t, timer.String(), "build last: 0.50ms")
}

func TestTimerReset(t *testing.T) {
	timer := NewTimer()
	timer.Record("cull", time.Millisecond)
	timer.Reset()

	state, ok := timer.GetState("cull")
	require.True(t, ok)
	require.Zero(t, state.ExecutionCount)
	require.Zero(t, state.AverageDuration())

	timer.Record("cull", 3*time.Millisecond)
	state, _ = timer.GetState("cull")
	require.InDelta(t, 3.0, state.MinDuration, 1e-9)
	require.InDelta(t, 3.0, state.MaxDuration, 1e-9)
}

func TestTimerConcurrentUse(t *testing.T) {
	timer := NewTimer()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				stop := timer.Start("work")
				stop()
			}
		}()
	}
	wg.Wait()

	state, ok := timer.GetState("work")
	require.True(t, ok)
	require.Equal(t, int64(800), state.ExecutionCount)
}
