package util

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// TimerState accumulates the durations measured under one name, in
// milliseconds.
type TimerState struct {
	Name           string  `json:"name"`
	LastDuration   float64 `json:"last_ms"`
	TotalDuration  float64 `json:"total_ms"`
	ExecutionCount int64   `json:"count"`
	MinDuration    float64 `json:"min_ms"`
	MaxDuration    float64 `json:"max_ms"`
}

func (t TimerState) AverageDuration() float64 {
	if t.ExecutionCount == 0 {
		return 0
	}
	return t.TotalDuration / float64(t.ExecutionCount)
}

func (t TimerState) String() string {
	return fmt.Sprintf("%s last: %.2fms, avg: %.2fms\n> min: %.2fms, max: %.2fms", t.Name, t.LastDuration, t.AverageDuration(), t.MinDuration, t.MaxDuration)
}

// Timer collects named durations. It may be used from several goroutines.
type Timer struct {
	mu         sync.Mutex
	states     map[string]*TimerState
	timerNames []string
}

func NewTimer() *Timer {
	return &Timer{
		states: make(map[string]*TimerState),
	}
}

func (t *Timer) GetState(name string) (TimerState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.states[name]
	if !ok {
		return TimerState{}, false
	}
	return *state, true
}

// States returns a copy of every state in the order the names were first
// started.
func (t *Timer) States() []TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	states := make([]TimerState, 0, len(t.timerNames))
	for _, name := range t.timerNames {
		states = append(states, *t.states[name])
	}
	return states
}

func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, state := range t.states {
		*state = TimerState{
			Name:        state.Name,
			MinDuration: math.MaxInt64,
			MaxDuration: math.MinInt64,
		}
	}
}

func (t *Timer) String() string {
	var str string
	for _, state := range t.States() {
		str += state.String() + "\n"
	}
	return str
}

// Start begins a measurement. Calling the returned function ends it and
// returns the duration in milliseconds.
func (t *Timer) Start(name string) func() float64 {
	start := time.Now()
	return func() float64 {
		return t.Record(name, time.Since(start))
	}
}

// Record adds a duration measured elsewhere.
func (t *Timer) Record(name string, d time.Duration) float64 {
	durationInMS := float64(d.Microseconds()) / 1000.0

	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.states[name]
	if !ok {
		t.timerNames = append(t.timerNames, name)
		state = &TimerState{
			Name:        name,
			MinDuration: math.MaxInt64,
			MaxDuration: math.MinInt64,
		}
		t.states[name] = state
	}
	state.LastDuration = durationInMS
	state.TotalDuration += durationInMS
	state.ExecutionCount++
	state.MinDuration = min(state.MinDuration, durationInMS)
	state.MaxDuration = max(state.MaxDuration, durationInMS)
	return durationInMS
}
