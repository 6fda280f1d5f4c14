// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"

	"github.com/devblok/ninjadev/core"
	vk "github.com/devblok/vulkan"
)

// Error converts a vk.Result into an error. Success codes give nil,
// an out of date swapchain gives core.ErrOutOfDate.
func Error(result vk.Result) error {
	switch result {
	case vk.Success, vk.Incomplete, vk.Suboptimal:
		return nil
	case vk.ErrorOutOfDate:
		return core.ErrOutOfDate
	}

	if err := vk.Error(result); err != nil {
		return fmt.Errorf("vulkan error: %w (%d)", err, int32(result))
	}
	return fmt.Errorf("vulkan error: unexpected result (%d)", int32(result))
}
