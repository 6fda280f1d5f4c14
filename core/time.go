// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"time"
)

// tickEpsilon absorbs float rounding when the residual lands a hair
// below a full tick, in milliseconds.
const tickEpsilon = 1e-9

// NewTimestep creates a fixed timestep accumulator
func NewTimestep(cfg TimeConfiguration) *Timestep {
	fps := cfg.FramesPerSecond
	if fps <= 0 {
		fps = DefaultFramesPerSecond
	}

	return &Timestep{
		fps:         fps,
		frameLength: 1000 / float64(fps),
	}
}

// Timestep converts wall-clock time into a whole number of
// fixed length logical ticks. Time that does not add up to a
// full tick is carried over into the next update.
type Timestep struct {
	fps         int
	frameLength float64 // milliseconds

	last     time.Time
	residual float64 // milliseconds
	tick     uint64
}

// Fps gets the set logical ticks per second
func (t *Timestep) Fps() int {
	return t.fps
}

// FrameLength returns the length of one tick in milliseconds
func (t *Timestep) FrameLength() float64 {
	return t.frameLength
}

// Start sets the timestamp the first Update measures from
func (t *Timestep) Start(now time.Time) {
	t.last = now
}

// Update advances the accumulator by the time passed since the previous
// Update (or Start) and returns the amount of ticks fired.
func (t *Timestep) Update(now time.Time) int {
	if t.last.IsZero() {
		t.last = now
	}
	elapsed := now.Sub(t.last)
	t.last = now
	return t.Advance(elapsed)
}

// Advance adds elapsed to the accumulator and returns the amount of ticks fired.
// Negative durations are ignored.
func (t *Timestep) Advance(elapsed time.Duration) int {
	return t.AdvanceMillis(float64(elapsed) / float64(time.Millisecond))
}

// AdvanceMillis is Advance for a duration given in milliseconds.
func (t *Timestep) AdvanceMillis(elapsed float64) int {
	if elapsed > 0 {
		t.residual += elapsed
	}

	var fired int
	for t.residual+tickEpsilon >= t.frameLength {
		t.residual -= t.frameLength
		if t.residual < 0 {
			t.residual = 0
		}
		t.tick++
		fired++
	}
	return fired
}

// Tick returns the current logical tick counter
func (t *Timestep) Tick() uint64 {
	return t.tick
}

// Residual returns the accumulated milliseconds not yet spent on a tick
func (t *Timestep) Residual() float64 {
	return t.residual
}
