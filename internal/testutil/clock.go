package testutil

import (
	"sync"
	"time"
)

// Epoch is the fixed start time of every StepClock.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// StepClock is a deterministic wall clock for tests.
//
// Each call to Now returns Epoch plus n*Step, so durations and journal
// timestamps are reproducible across runs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu   sync.Mutex
	n    int64
	Step time.Duration
}

// NewStepClock creates a clock that advances by step on every read.
func NewStepClock(step time.Duration) *StepClock {
	return &StepClock{Step: step}
}

// Now returns the next instant. Pass the method value to engine.WithNow.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Epoch.Add(time.Duration(c.n) * c.Step)
	c.n++
	return t
}

// Reset rewinds the clock to Epoch.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}
