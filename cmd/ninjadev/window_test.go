// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"testing"

	"github.com/devblok/ninjadev/core"
	"github.com/devblok/ninjadev/gfx"
	"github.com/stretchr/testify/assert"
	"github.com/veandco/go-sdl2/sdl"
)

func TestTranslateEvent(t *testing.T) {
	cases := []struct {
		name  string
		event sdl.Event
		ok    bool
		want  core.Event
	}{
		{"quit", &sdl.QuitEvent{Type: sdl.QUIT}, true, core.Event{Kind: core.ClosedEvent}},
		{"escape", &sdl.KeyboardEvent{Type: sdl.KEYDOWN, Keysym: sdl.Keysym{Sym: sdl.K_ESCAPE}}, true, core.Event{Kind: core.ClosedEvent}},
		{"escape released", &sdl.KeyboardEvent{Type: sdl.KEYUP, Keysym: sdl.Keysym{Sym: sdl.K_ESCAPE}}, false, core.Event{}},
		{"other key", &sdl.KeyboardEvent{Type: sdl.KEYDOWN, Keysym: sdl.Keysym{Sym: sdl.K_a}}, false, core.Event{}},
		{"resized", &sdl.WindowEvent{Type: sdl.WINDOWEVENT, Event: sdl.WINDOWEVENT_RESIZED, Data1: 800, Data2: 600}, true,
			core.Event{Kind: core.ResizedEvent, Size: gfx.Extent2D{Width: 800, Height: 600}}},
		{"size changed", &sdl.WindowEvent{Type: sdl.WINDOWEVENT, Event: sdl.WINDOWEVENT_SIZE_CHANGED, Data1: 1280, Data2: 720}, true,
			core.Event{Kind: core.ResizedEvent, Size: gfx.Extent2D{Width: 1280, Height: 720}}},
		{"window close", &sdl.WindowEvent{Type: sdl.WINDOWEVENT, Event: sdl.WINDOWEVENT_CLOSE}, true, core.Event{Kind: core.ClosedEvent}},
		{"window moved", &sdl.WindowEvent{Type: sdl.WINDOWEVENT, Event: sdl.WINDOWEVENT_MOVED}, false, core.Event{}},
		{"mouse", &sdl.MouseMotionEvent{Type: sdl.MOUSEMOTION}, false, core.Event{}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := translateEvent(c.event)
			assert.Equal(t, c.ok, ok)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestExtentClampsNegative(t *testing.T) {
	assert.Equal(t, gfx.Extent2D{Width: 0, Height: 10}, extent(-5, 10))
	assert.True(t, extent(0, 0).Empty())
}
