// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devblok/ninjadev/gfx"
	log "github.com/sirupsen/logrus"
)

// Outcome tells how a single frame loop iteration ended
type Outcome int

// Iteration outcomes
const (
	// Presented means a frame was submitted and queued for presentation
	Presented Outcome = iota

	// SkippedUnsupported means the surface couldn't take the new
	// swapchain dimensions yet, recreation is retried next iteration
	SkippedUnsupported

	// SkippedOutOfDate means no image could be acquired because the
	// swapchain went stale, it is recreated next iteration
	SkippedOutOfDate
)

func (o Outcome) String() string {
	switch o {
	case Presented:
		return "presented"
	case SkippedUnsupported:
		return "skipped (unsupported dimensions)"
	case SkippedOutOfDate:
		return "skipped (out of date)"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// UnsupportedWait is how long an iteration that couldn't recreate
// the swapchain waits for window events
const UnsupportedWait = 10 * time.Millisecond

// framebufferState is either absent or built with a set
type framebufferState struct {
	built bool
	set   Framebuffers
}

// NewLoop creates a frame loop presenting to window through renderer.
// The renderer has to be initialised already.
func NewLoop(window Window, renderer Renderer, timestep *Timestep) *Loop {
	return &Loop{
		window:   window,
		renderer: renderer,
		timestep: timestep,
		clock:    time.Now,
		extent:   renderer.Extent(),
	}
}

// Loop is the per-frame render loop. It keeps the swapchain fresh,
// rebuilds framebuffers lazily, advances the fixed timestep and
// submits one frame per iteration.
type Loop struct {
	window   Window
	renderer Renderer
	timestep *Timestep
	clock    func() time.Time

	extent       gfx.Extent2D
	stale        bool
	done         bool
	framebuffers framebufferState
}

// SetClock replaces the wall clock the timestep is driven by
func (l *Loop) SetClock(clock func() time.Time) {
	l.clock = clock
}

// Done reports whether a close request was observed
func (l *Loop) Done() bool {
	return l.done
}

// Stale reports whether the swapchain is due for recreation
func (l *Loop) Stale() bool {
	return l.stale
}

// Extent returns the extent frames are currently drawn with
func (l *Loop) Extent() gfx.Extent2D {
	return l.extent
}

// Run iterates until the window is closed, ctx is cancelled
// or an iteration fails with a fatal error.
func (l *Loop) Run(ctx context.Context) error {
	l.timestep.Start(l.clock())
	for !l.done {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err := l.Step(); err != nil {
			return err
		}
	}
	log.WithField("tick", l.timestep.Tick()).Info("Frame loop exited")
	return nil
}

// Step runs a single iteration of the loop. A returned error is fatal.
func (l *Loop) Step() (Outcome, error) {
	outcome, err := l.frame()
	if err != nil {
		return outcome, err
	}

	/* Event poll */
	if outcome == SkippedUnsupported {
		l.window.WaitEvents(UnsupportedWait)
	}
	for _, event := range l.window.PollEvents() {
		switch event.Kind {
		case ClosedEvent:
			l.done = true
		case ResizedEvent:
			log.WithField("extent", event.Size).Debug("Window resized")
			l.stale = true
		}
	}
	return outcome, nil
}

func (l *Loop) frame() (Outcome, error) {
	/* Reclaim */
	l.renderer.Reclaim()

	/* Swapchain refresh */
	if l.stale {
		want := l.window.DrawableSize()
		extent, err := l.renderer.RecreateSwapchain(want)
		if errors.Is(err, ErrUnsupportedDimensions) {
			log.WithField("extent", want).Debug("Swapchain recreation postponed")
			return SkippedUnsupported, nil
		} else if err != nil {
			return Presented, fmt.Errorf("swapchain recreation: %w", err)
		}
		log.WithField("extent", extent).Debug("Swapchain recreated")

		l.extent = extent
		l.stale = false
		l.releaseFramebuffers()
	}

	/* Framebuffer rebuild */
	if !l.framebuffers.built {
		set, err := l.renderer.BuildFramebuffers()
		if err != nil {
			return Presented, fmt.Errorf("framebuffer creation: %w", err)
		}
		l.framebuffers = framebufferState{built: true, set: set}
	}

	/* Timestep accumulation */
	l.timestep.Update(l.clock())

	/* Per-frame resources */
	frame, err := l.renderer.BeginFrame(l.timestep.Tick())
	if err != nil {
		return Presented, fmt.Errorf("frame resources: %w", err)
	}

	/* Acquire */
	image, err := l.renderer.Acquire(frame)
	if errors.Is(err, ErrOutOfDate) {
		frame.Release()
		l.stale = true
		log.Debug("Acquired swapchain is out of date")
		return SkippedOutOfDate, nil
	} else if err != nil {
		frame.Release()
		return Presented, fmt.Errorf("image acquisition: %w", err)
	}

	/* Record and submit */
	if err := l.renderer.Submit(frame, l.framebuffers.set, image, l.extent); errors.Is(err, ErrOutOfDate) {
		l.stale = true
	} else if err != nil {
		return Presented, fmt.Errorf("frame submission: %w", err)
	}
	return Presented, nil
}

// Close waits for the GPU to finish with submitted frames
// and releases the framebuffers owned by the loop.
func (l *Loop) Close() {
	l.renderer.WaitIdle()
	l.releaseFramebuffers()
}

func (l *Loop) releaseFramebuffers() {
	if l.framebuffers.built {
		l.framebuffers.set.Release()
	}
	l.framebuffers = framebufferState{}
}
