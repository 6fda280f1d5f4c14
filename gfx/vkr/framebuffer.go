// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"errors"
	"fmt"

	"github.com/devblok/ninjadev/core"
	"github.com/devblok/ninjadev/gfx"
	vk "github.com/devblok/vulkan"
)

// framebufferSet holds one framebuffer per swapchain image
type framebufferSet struct {
	device   vk.Device
	handles  []vk.Framebuffer
	extent   gfx.Extent2D
	released bool
}

// Len returns the amount of framebuffers
func (f *framebufferSet) Len() int {
	return len(f.handles)
}

// target returns the framebuffer of image, which has to be
// of the extent the frame is drawn with.
func (f *framebufferSet) target(image uint32, extent gfx.Extent2D) (vk.Framebuffer, error) {
	if f.released {
		return vk.Framebuffer(vk.NullHandle), errors.New("framebuffers were released")
	}
	if int(image) >= len(f.handles) {
		return vk.Framebuffer(vk.NullHandle), fmt.Errorf("image index %d out of %d framebuffers", image, len(f.handles))
	}
	if f.extent != extent {
		return vk.Framebuffer(vk.NullHandle), fmt.Errorf("framebuffers are %s, frame is drawn at %s", f.extent, extent)
	}
	return f.handles[image], nil
}

// Release destroys the framebuffers. It has to be called
// once the GPU doesn't use them anymore.
func (f *framebufferSet) Release() {
	if f.released {
		return
	}
	for _, fb := range f.handles {
		vk.DestroyFramebuffer(f.device, fb, nil)
	}
	f.handles = nil
	f.released = true
}

// BuildFramebuffers creates one framebuffer per current swapchain image
func (v *VulkanRenderer) BuildFramebuffers() (core.Framebuffers, error) {
	extent := v.swapchain.extent
	set := &framebufferSet{
		device: v.logicalDevice,
		extent: extent,
	}

	for idx, view := range v.swapchain.views {
		fci := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      v.renderPass,
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{view},
			Width:           extent.Width,
			Height:          extent.Height,
			Layers:          1,
		}

		var framebuffer vk.Framebuffer
		if err := Error(vk.CreateFramebuffer(v.logicalDevice, &fci, nil, &framebuffer)); err != nil {
			set.Release()
			return nil, fmt.Errorf("vk.CreateFramebuffer()[%d]: %w", idx, err)
		}
		set.handles = append(set.handles, framebuffer)
	}
	return set, nil
}
