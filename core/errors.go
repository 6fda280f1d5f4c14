// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import "errors"

// Transient errors. The frame loop retries on the next iteration
// when a renderer reports one of these, they never terminate it.
var (
	ErrUnsupportedDimensions = errors.New("swapchain dimensions not supported by the surface")
	ErrOutOfDate             = errors.New("swapchain is out of date")
)

// ErrRingExhausted is returned when every uniform slot is still in use by the GPU.
// The host is running further ahead than the ring is deep, which is fatal.
var ErrRingExhausted = errors.New("no more uniform buffers free in the ring")

// IsTransient reports whether err is recovered from by retrying the frame.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnsupportedDimensions) || errors.Is(err, ErrOutOfDate)
}
