// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/devblok/ninjadev/core"
	"github.com/devblok/ninjadev/gfx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWindow struct {
	size   gfx.Extent2D
	events [][]core.Event
	waits  []time.Duration
}

func (w *fakeWindow) DrawableSize() gfx.Extent2D {
	return w.size
}

func (w *fakeWindow) PollEvents() []core.Event {
	if len(w.events) == 0 {
		return nil
	}
	next := w.events[0]
	w.events = w.events[1:]
	return next
}

func (w *fakeWindow) WaitEvents(timeout time.Duration) {
	w.waits = append(w.waits, timeout)
}

// push queues events returned by the next poll
func (w *fakeWindow) push(events ...core.Event) {
	w.events = append(w.events, events)
}

type fakeFramebuffers struct {
	released bool
	count    int
}

func (f *fakeFramebuffers) Release() {
	f.released = true
}

func (f *fakeFramebuffers) Len() int {
	return f.count
}

type fakeFrame struct {
	renderer *fakeRenderer
	slot     int
	tick     uint64
}

func (f *fakeFrame) Release() {
	f.renderer.ring.Release(f.slot)
	f.renderer.unsubmitted++
}

func (f *fakeFrame) Tick() uint64 {
	return f.tick
}

type submission struct {
	tick   uint64
	image  uint32
	extent gfx.Extent2D
}

// fakeRenderer mimics a surface with fixed limits
// and records what the loop asked of it
type fakeRenderer struct {
	extent   gfx.Extent2D
	min, max gfx.Extent2D
	ring     *core.Ring
	images   uint32

	acquireErrs []error
	presentErrs []error
	recreateErr error
	reclaimAll  bool

	reclaims    int
	recreates   []gfx.Extent2D
	built       []*fakeFramebuffers
	submissions []submission
	pending     []*fakeFrame
	unsubmitted int
	idled       int
	next        uint32
}

func newFakeRenderer(t *testing.T, depth int) *fakeRenderer {
	ring, err := core.NewRing(depth)
	require.NoError(t, err)
	return &fakeRenderer{
		extent:     gfx.Extent2D{Width: 1280, Height: 720},
		min:        gfx.Extent2D{Width: 1, Height: 1},
		max:        gfx.Extent2D{Width: 4096, Height: 4096},
		ring:       ring,
		images:     3,
		reclaimAll: true,
	}
}

func (r *fakeRenderer) Initialise() error { return nil }

func (r *fakeRenderer) Extent() gfx.Extent2D { return r.extent }

func (r *fakeRenderer) Reclaim() {
	r.reclaims++
	if !r.reclaimAll {
		return
	}
	for _, f := range r.pending {
		r.ring.Release(f.slot)
	}
	r.pending = nil
}

func (r *fakeRenderer) RecreateSwapchain(extent gfx.Extent2D) (gfx.Extent2D, error) {
	r.recreates = append(r.recreates, extent)
	if extent.Empty() || !extent.Within(r.min, r.max) {
		return gfx.Extent2D{}, core.ErrUnsupportedDimensions
	}
	if r.recreateErr != nil {
		return gfx.Extent2D{}, r.recreateErr
	}
	r.extent = extent
	return extent, nil
}

func (r *fakeRenderer) BuildFramebuffers() (core.Framebuffers, error) {
	fb := &fakeFramebuffers{count: int(r.images)}
	r.built = append(r.built, fb)
	return fb, nil
}

func (r *fakeRenderer) BeginFrame(tick uint64) (core.Frame, error) {
	slot, err := r.ring.Next()
	if err != nil {
		return nil, err
	}
	return &fakeFrame{renderer: r, slot: slot, tick: tick}, nil
}

func (r *fakeRenderer) Acquire(core.Frame) (uint32, error) {
	if len(r.acquireErrs) > 0 {
		err := r.acquireErrs[0]
		r.acquireErrs = r.acquireErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	image := r.next
	r.next = (r.next + 1) % r.images
	return image, nil
}

func (r *fakeRenderer) Submit(frame core.Frame, fb core.Framebuffers, image uint32, extent gfx.Extent2D) error {
	r.submissions = append(r.submissions, submission{tick: frame.Tick(), image: image, extent: extent})
	r.pending = append(r.pending, frame.(*fakeFrame))
	if len(r.presentErrs) > 0 {
		err := r.presentErrs[0]
		r.presentErrs = r.presentErrs[1:]
		return err
	}
	return nil
}

func (r *fakeRenderer) WaitIdle() { r.idled++ }

func (r *fakeRenderer) Destroy() {}

// steppedClock advances by step on every read
func steppedClock(step time.Duration) func() time.Time {
	now := time.Date(2019, 9, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func newTestLoop(t *testing.T, window *fakeWindow, renderer *fakeRenderer) *core.Loop {
	loop := core.NewLoop(window, renderer, core.NewTimestep(core.DefaultConfiguration.Time))
	loop.SetClock(steppedClock(100 * time.Millisecond))
	return loop
}

func TestLoopPresents(t *testing.T) {
	window := &fakeWindow{size: gfx.Extent2D{Width: 1280, Height: 720}}
	renderer := newFakeRenderer(t, 4)
	loop := newTestLoop(t, window, renderer)

	for i := 0; i < 10; i++ {
		outcome, err := loop.Step()
		require.NoError(t, err)
		assert.Equal(t, core.Presented, outcome)
	}

	assert.Len(t, renderer.built, 1, "framebuffers are built once")
	assert.Len(t, renderer.submissions, 10)
	assert.Equal(t, 10, renderer.reclaims)
	assert.Empty(t, window.waits, "presenting iterations don't wait")
	assert.Empty(t, renderer.recreates)

	var last uint64
	for i, s := range renderer.submissions {
		assert.Equal(t, uint32(i%3), s.image)
		assert.Equal(t, gfx.Extent2D{Width: 1280, Height: 720}, s.extent)
		assert.GreaterOrEqual(t, s.tick, last, "tick is monotonic")
		last = s.tick
	}
	assert.Greater(t, last, uint64(0))
}

func TestLoopClose(t *testing.T) {
	window := &fakeWindow{size: gfx.Extent2D{Width: 1280, Height: 720}}
	renderer := newFakeRenderer(t, 4)
	loop := newTestLoop(t, window, renderer)

	window.push()
	window.push(core.Event{Kind: core.ClosedEvent})

	require.NoError(t, loop.Run(context.Background()))
	assert.True(t, loop.Done())
	assert.Len(t, renderer.submissions, 2)

	loop.Close()
	assert.Equal(t, 1, renderer.idled)
	assert.True(t, renderer.built[0].released)
}

func TestLoopRunCancelled(t *testing.T) {
	window := &fakeWindow{size: gfx.Extent2D{Width: 1280, Height: 720}}
	renderer := newFakeRenderer(t, 4)
	loop := newTestLoop(t, window, renderer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, loop.Run(ctx), context.Canceled)
	assert.Empty(t, renderer.submissions)
}

func TestLoopResizeRebuildsFramebuffers(t *testing.T) {
	window := &fakeWindow{size: gfx.Extent2D{Width: 1280, Height: 720}}
	renderer := newFakeRenderer(t, 4)
	loop := newTestLoop(t, window, renderer)

	window.push(core.Event{Kind: core.ResizedEvent, Size: gfx.Extent2D{Width: 800, Height: 600}})
	outcome, err := loop.Step()
	require.NoError(t, err)
	assert.Equal(t, core.Presented, outcome)
	assert.True(t, loop.Stale())

	window.size = gfx.Extent2D{Width: 800, Height: 600}
	outcome, err = loop.Step()
	require.NoError(t, err)
	assert.Equal(t, core.Presented, outcome)
	assert.False(t, loop.Stale())

	require.Len(t, renderer.recreates, 1)
	assert.Equal(t, gfx.Extent2D{Width: 800, Height: 600}, renderer.recreates[0])
	require.Len(t, renderer.built, 2)
	assert.True(t, renderer.built[0].released)
	assert.False(t, renderer.built[1].released)

	require.Len(t, renderer.submissions, 2)
	assert.Equal(t, gfx.Extent2D{Width: 1280, Height: 720}, renderer.submissions[0].extent)
	assert.Equal(t, gfx.Extent2D{Width: 800, Height: 600}, renderer.submissions[1].extent)
	assert.Equal(t, gfx.Extent2D{Width: 800, Height: 600}, loop.Extent())
}

func TestLoopUnsupportedDimensions(t *testing.T) {
	window := &fakeWindow{size: gfx.Extent2D{Width: 1280, Height: 720}}
	renderer := newFakeRenderer(t, 4)
	loop := newTestLoop(t, window, renderer)

	outcome, err := loop.Step()
	require.NoError(t, err)
	require.Equal(t, core.Presented, outcome)

	window.size = gfx.Extent2D{}
	window.push(core.Event{Kind: core.ResizedEvent})

	// The resize is seen at the end of the first step
	_, err = loop.Step()
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		outcome, err := loop.Step()
		require.NoError(t, err)
		assert.Equal(t, core.SkippedUnsupported, outcome)
		assert.True(t, loop.Stale(), "stale flag is kept")
	}
	assert.Len(t, renderer.submissions, 2)
	assert.Len(t, renderer.built, 1)
	assert.False(t, renderer.built[0].released, "framebuffers survive a skipped recreation")
	assert.Len(t, window.waits, 5, "every skipped iteration waits for events")
	for _, wait := range window.waits {
		assert.Equal(t, core.UnsupportedWait, wait)
	}

	window.size = gfx.Extent2D{Width: 640, Height: 480}
	outcome, err = loop.Step()
	require.NoError(t, err)
	assert.Equal(t, core.Presented, outcome)
	assert.False(t, loop.Stale())
	assert.Len(t, renderer.built, 2)
	assert.Equal(t, gfx.Extent2D{Width: 640, Height: 480}, renderer.submissions[2].extent)
}

func TestLoopCloseWhileUnsupported(t *testing.T) {
	window := &fakeWindow{size: gfx.Extent2D{}}
	renderer := newFakeRenderer(t, 4)
	loop := newTestLoop(t, window, renderer)

	window.push(core.Event{Kind: core.ResizedEvent})
	window.push()
	window.push(core.Event{Kind: core.ClosedEvent})

	require.NoError(t, loop.Run(context.Background()))
	assert.Len(t, renderer.submissions, 1)
}

func TestLoopAcquireOutOfDate(t *testing.T) {
	window := &fakeWindow{size: gfx.Extent2D{Width: 1280, Height: 720}}
	renderer := newFakeRenderer(t, 4)
	renderer.acquireErrs = []error{core.ErrOutOfDate}
	loop := newTestLoop(t, window, renderer)

	outcome, err := loop.Step()
	require.NoError(t, err)
	assert.Equal(t, core.SkippedOutOfDate, outcome)
	assert.True(t, loop.Stale())
	assert.Empty(t, renderer.submissions)
	assert.Equal(t, 1, renderer.unsubmitted)
	assert.Equal(t, 0, renderer.ring.InUse(), "unsubmitted frame gives its slot back")

	outcome, err = loop.Step()
	require.NoError(t, err)
	assert.Equal(t, core.Presented, outcome)
	assert.Len(t, renderer.recreates, 1)
	assert.Len(t, renderer.submissions, 1)
}

func TestLoopPresentOutOfDate(t *testing.T) {
	window := &fakeWindow{size: gfx.Extent2D{Width: 1280, Height: 720}}
	renderer := newFakeRenderer(t, 4)
	renderer.presentErrs = []error{core.ErrOutOfDate}
	loop := newTestLoop(t, window, renderer)

	outcome, err := loop.Step()
	require.NoError(t, err)
	assert.Equal(t, core.Presented, outcome)
	assert.True(t, loop.Stale())

	_, err = loop.Step()
	require.NoError(t, err)
	assert.Len(t, renderer.recreates, 1)
	assert.False(t, loop.Stale())
}

func TestLoopRingExhaustedIsFatal(t *testing.T) {
	window := &fakeWindow{size: gfx.Extent2D{Width: 1280, Height: 720}}
	renderer := newFakeRenderer(t, 2)
	renderer.reclaimAll = false
	loop := newTestLoop(t, window, renderer)

	for i := 0; i < 2; i++ {
		_, err := loop.Step()
		require.NoError(t, err)
	}
	_, err := loop.Step()
	assert.ErrorIs(t, err, core.ErrRingExhausted)

	window.push(core.Event{Kind: core.ClosedEvent})
	assert.ErrorIs(t, loop.Run(context.Background()), core.ErrRingExhausted)
}

func TestLoopRecreateFailureIsFatal(t *testing.T) {
	window := &fakeWindow{size: gfx.Extent2D{Width: 1280, Height: 720}}
	renderer := newFakeRenderer(t, 4)
	renderer.recreateErr = errors.New("device lost")
	loop := newTestLoop(t, window, renderer)

	window.push(core.Event{Kind: core.ResizedEvent, Size: window.size})
	_, err := loop.Step()
	require.NoError(t, err)

	_, err = loop.Step()
	assert.Error(t, err)
	assert.False(t, core.IsTransient(err))
	assert.Contains(t, err.Error(), "device lost")
}

func TestLoopTicksFollowClock(t *testing.T) {
	window := &fakeWindow{size: gfx.Extent2D{Width: 1280, Height: 720}}
	renderer := newFakeRenderer(t, 4)
	loop := core.NewLoop(window, renderer, core.NewTimestep(core.DefaultConfiguration.Time))
	loop.SetClock(steppedClock(0))

	for i := 0; i < 3; i++ {
		_, err := loop.Step()
		require.NoError(t, err)
	}
	for _, s := range renderer.submissions {
		assert.Equal(t, uint64(0), s.tick, "no time passed, no ticks")
	}
}
