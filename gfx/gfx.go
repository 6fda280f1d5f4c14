// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfx defines rendering related primitives that renderers share.
package gfx

import "fmt"

// Releasable defines any memory-occupying item that can be freed.
type Releasable interface {

	// Release releases memory occupied by the implementing structure.
	Release()
}

// Extent2D is a two dimensional size in pixels.
type Extent2D struct {
	Width  uint32
	Height uint32
}

// Empty reports whether either side of the extent is zero.
func (e Extent2D) Empty() bool {
	return e.Width == 0 || e.Height == 0
}

// Within reports whether e fits between min and max, inclusive.
func (e Extent2D) Within(min, max Extent2D) bool {
	return e.Width >= min.Width && e.Width <= max.Width &&
		e.Height >= min.Height && e.Height <= max.Height
}

func (e Extent2D) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}
