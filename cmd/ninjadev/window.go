// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"time"

	"github.com/devblok/ninjadev/core"
	"github.com/devblok/ninjadev/gfx"
	"github.com/veandco/go-sdl2/sdl"
)

// newWindow opens a vulkan capable window locked to the configured size
func newWindow(cfg core.WindowConfiguration) (*sdl.Window, error) {
	window, err := sdl.CreateWindow(cfg.Title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(cfg.Width),
		int32(cfg.Height),
		sdl.WINDOW_VULKAN)
	if err != nil {
		return nil, err
	}
	window.SetMinimumSize(int32(cfg.Width), int32(cfg.Height))
	window.SetMaximumSize(int32(cfg.Width), int32(cfg.Height))
	return window, nil
}

var _ core.Window = (*sdlWindow)(nil)

// sdlWindow adapts an SDL window to the frame loop
type sdlWindow struct {
	window  *sdl.Window
	pending []core.Event
}

func (w *sdlWindow) DrawableSize() gfx.Extent2D {
	width, height := w.window.VulkanGetDrawableSize()
	return extent(width, height)
}

func (w *sdlWindow) WaitEvents(timeout time.Duration) {
	event := sdl.WaitEventTimeout(int(timeout / time.Millisecond))
	if event == nil {
		return
	}
	if e, ok := translateEvent(event); ok {
		w.pending = append(w.pending, e)
	}
}

func (w *sdlWindow) PollEvents() []core.Event {
	events := w.pending
	w.pending = nil
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if e, ok := translateEvent(event); ok {
			events = append(events, e)
		}
	}
	return events
}

// translateEvent maps the SDL events the loop cares about
func translateEvent(event sdl.Event) (core.Event, bool) {
	switch et := event.(type) {
	case *sdl.QuitEvent:
		return core.Event{Kind: core.ClosedEvent}, true
	case *sdl.KeyboardEvent:
		if et.Type == sdl.KEYDOWN && et.Keysym.Sym == sdl.K_ESCAPE {
			return core.Event{Kind: core.ClosedEvent}, true
		}
	case *sdl.WindowEvent:
		switch et.Event {
		case sdl.WINDOWEVENT_CLOSE:
			return core.Event{Kind: core.ClosedEvent}, true
		case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED:
			return core.Event{Kind: core.ResizedEvent, Size: extent(et.Data1, et.Data2)}, true
		}
	}
	return core.Event{}, false
}

func extent(width, height int32) gfx.Extent2D {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return gfx.Extent2D{Width: uint32(width), Height: uint32(height)}
}
