// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"time"

	"github.com/devblok/ninjadev/gfx"
)

// EventKind identifies window events the frame loop reacts to
type EventKind int

// Window events
const (
	ClosedEvent EventKind = iota
	ResizedEvent
)

// Event is a window or platform event
type Event struct {
	Kind EventKind

	// Size is set for ResizedEvent
	Size gfx.Extent2D
}

// Window describes the platform window the renderer presents to
type Window interface {
	// DrawableSize returns the current drawable size of the window in pixels
	DrawableSize() gfx.Extent2D

	// PollEvents drains pending events without blocking
	PollEvents() []Event

	// WaitEvents blocks until an event is pending or timeout passes.
	// Events it sees are returned by the next PollEvents.
	WaitEvents(timeout time.Duration)
}

// Framebuffers is a set of framebuffers, one per swapchain image,
// indexed by the image index
type Framebuffers interface {
	gfx.Releasable

	// Len returns the amount of framebuffers in the set
	Len() int
}

// Frame holds the per-frame resources bound before an image is acquired.
// Releasing a Frame returns resources of a frame that was never submitted.
type Frame interface {
	gfx.Releasable

	// Tick returns the logical tick the frame was bound with
	Tick() uint64
}

// Renderer describes the rendering machinery.
// It's created only with internal values set,
// it needs to be initialised with Initialise() before use.
type Renderer interface {
	// Initialise sets up the configured rendering pipeline
	Initialise() error

	// Extent returns the extent of the current swapchain
	Extent() gfx.Extent2D

	// Reclaim releases resources of submitted frames the GPU
	// has finished with. It never blocks.
	Reclaim()

	// RecreateSwapchain replaces the swapchain with one of the given extent
	// and returns the extent actually used. Framebuffers built against the
	// previous swapchain are safe to release once it returns.
	// Returns ErrUnsupportedDimensions when the surface can't take the extent.
	RecreateSwapchain(gfx.Extent2D) (gfx.Extent2D, error)

	// BuildFramebuffers creates one framebuffer per current swapchain image
	BuildFramebuffers() (Framebuffers, error)

	// BeginFrame allocates the uniform for tick and binds it for drawing.
	// Returns ErrRingExhausted when no uniform slot is free.
	BeginFrame(tick uint64) (Frame, error)

	// Acquire waits for the next presentable image and returns its index.
	// Returns ErrOutOfDate when the swapchain has to be recreated first.
	Acquire(Frame) (uint32, error)

	// Submit records the draw for the acquired image, submits it
	// and queues the image for presentation. Returns ErrOutOfDate when
	// presenting found the swapchain stale, the frame is submitted regardless.
	Submit(frame Frame, framebuffers Framebuffers, image uint32, extent gfx.Extent2D) error

	// WaitIdle blocks until every submitted frame has completed
	WaitIdle()

	// Destroy blocks until the GPU is done and destroys internal members
	Destroy()
}

// ShaderType represents the type of shader thats loaded
type ShaderType int

// Identifies shader objects with their types
const (
	VertexShaderType ShaderType = iota
	FragmentShaderType
	UnknownShaderType
)

func (t ShaderType) String() string {
	switch t {
	case VertexShaderType:
		return "vert"
	case FragmentShaderType:
		return "frag"
	default:
		return "unknown"
	}
}

// PhysicalDeviceInfo describes available physical properties of a rendering device
type PhysicalDeviceInfo struct {
	ID            int
	VendorID      int
	DriverVersion int
	Name          string
	Type          string
	Invalid       bool
	Extensions    []string
	Layers        []string
	Memory        uint64
}
