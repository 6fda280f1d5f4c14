// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	glm "github.com/go-gl/mathgl/mgl32"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Window   WindowConfiguration
	Time     TimeConfiguration
	Renderer RendererConfiguration
}

// WindowConfiguration describes the window the demo renders into
type WindowConfiguration struct {
	Title string

	// Width and Height are used as initial, minimum and maximum size,
	// so the window can't be resized interactively
	Width  uint32
	Height uint32
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond is the fixed logical update rate.
	// Zero falls back to DefaultFramesPerSecond
	FramesPerSecond int
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	SwapchainSize    uint32
	DeviceExtensions []string

	ScreenWidth  uint32
	ScreenHeight uint32

	// UniformRingSize is the amount of per-frame uniform slots
	// that can be in flight on the GPU at once
	UniformRingSize int

	// ClearColor is the RGBA color the render pass clears to
	ClearColor glm.Vec4
}

// InstanceConfiguration is used to configure the graphics API instance
type InstanceConfiguration struct {
	DebugMode  bool
	Extensions []string
	Layers     []string
}

// DefaultFramesPerSecond is the logical tick rate when none is configured
const DefaultFramesPerSecond = 60

// DefaultConfiguration is the configuration the demo ships with
var DefaultConfiguration = Configuration{
	Window: WindowConfiguration{
		Title:  "NINJADEV",
		Width:  1280,
		Height: 720,
	},
	Time: TimeConfiguration{
		FramesPerSecond: DefaultFramesPerSecond,
	},
	Renderer: RendererConfiguration{
		ScreenWidth:   1280,
		ScreenHeight:  720,
		SwapchainSize: 3,
		DeviceExtensions: []string{
			"VK_KHR_swapchain",
		},
		UniformRingSize: 16,
		ClearColor:      glm.Vec4{0, 0, 1, 1},
	},
}
