// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"

	"github.com/devblok/ninjadev/core"
	"github.com/devblok/ninjadev/gfx"
	vk "github.com/devblok/vulkan"
)

// undefinedExtent marks a surface whose size is set by the swapchain
const undefinedExtent = 0xFFFFFFFF

// surfaceLimits are the extent related surface capabilities
type surfaceLimits struct {
	current  gfx.Extent2D
	min, max gfx.Extent2D

	minImageCount uint32
	maxImageCount uint32
}

func (l surfaceLimits) currentDefined() bool {
	return l.current.Width != undefinedExtent && l.current.Height != undefinedExtent
}

// resolveExtent picks the extent a swapchain gets created with. The
// surface's current extent wins when it's defined, otherwise the
// requested one is used. Zero or out of limits requests can't be served.
func resolveExtent(limits surfaceLimits, want gfx.Extent2D) (gfx.Extent2D, error) {
	if want.Empty() || !want.Within(limits.min, limits.max) {
		return gfx.Extent2D{}, core.ErrUnsupportedDimensions
	}

	if limits.currentDefined() {
		if limits.current.Empty() {
			return gfx.Extent2D{}, core.ErrUnsupportedDimensions
		}
		return limits.current, nil
	}
	return want, nil
}

// imageCount gives the larger of the surface minimum and the configured
// size, capped by the surface maximum. A zero maximum means no limit.
func imageCount(limits surfaceLimits, configured uint32) uint32 {
	count := limits.minImageCount
	if configured > count {
		count = configured
	}
	if limits.maxImageCount > 0 && count > limits.maxImageCount {
		count = limits.maxImageCount
	}
	return count
}

// pickCompositeAlpha returns the first supported composite alpha mode
func pickCompositeAlpha(supported vk.CompositeAlphaFlags) vk.CompositeAlphaFlagBits {
	for _, flag := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if supported&vk.CompositeAlphaFlags(flag) != 0 {
			return flag
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

func extentFromVulkan(e vk.Extent2D) gfx.Extent2D {
	e.Deref()
	return gfx.Extent2D{Width: e.Width, Height: e.Height}
}

// swapchain holds the presentable images and their views
type swapchain struct {
	device vk.Device

	handle     vk.Swapchain
	format     vk.Format
	colorSpace vk.ColorSpace
	extent     gfx.Extent2D
	images     []vk.Image
	views      []vk.ImageView
}

// querySurface reads the surface limits and supported composite alpha
func (v *VulkanRenderer) querySurface() (surfaceLimits, vk.CompositeAlphaFlags, error) {
	var caps vk.SurfaceCapabilities
	if err := Error(vk.GetPhysicalDeviceSurfaceCapabilities(v.physicalDevice, v.surface, &caps)); err != nil {
		return surfaceLimits{}, 0, fmt.Errorf("vk.GetPhysicalDeviceSurfaceCapabilities(): %w", err)
	}
	caps.Deref()

	return surfaceLimits{
		current:       extentFromVulkan(caps.CurrentExtent),
		min:           extentFromVulkan(caps.MinImageExtent),
		max:           extentFromVulkan(caps.MaxImageExtent),
		minImageCount: caps.MinImageCount,
		maxImageCount: caps.MaxImageCount,
	}, caps.SupportedCompositeAlpha, nil
}

// createSwapchain creates a swapchain of a resolved extent,
// replacing old when it's set.
func (v *VulkanRenderer) createSwapchain(extent gfx.Extent2D, limits surfaceLimits, compositeAlpha vk.CompositeAlphaFlags, old *swapchain) (*swapchain, error) {
	var oldHandle vk.Swapchain
	if old != nil {
		oldHandle = old.handle
	}

	scci := vk.SwapchainCreateInfo{
		SType:           vk.StructureTypeSwapchainCreateInfo,
		Surface:         v.surface,
		MinImageCount:   imageCount(limits, v.configuration.SwapchainSize),
		ImageFormat:     v.imageFormat,
		ImageColorSpace: v.imageColorspace,
		ImageExtent: vk.Extent2D{
			Width:  extent.Width,
			Height: extent.Height,
		},
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     vk.SurfaceTransformIdentityBit,
		CompositeAlpha:   pickCompositeAlpha(compositeAlpha),
		PresentMode:      vk.PresentModeFifo,
		Clipped:          vk.True,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		OldSwapchain:     oldHandle,
	}

	var handle vk.Swapchain
	if err := Error(vk.CreateSwapchain(v.logicalDevice, &scci, nil, &handle)); err != nil {
		return nil, fmt.Errorf("vk.CreateSwapchain(): %w", err)
	}

	sc := &swapchain{
		device:     v.logicalDevice,
		handle:     handle,
		format:     v.imageFormat,
		colorSpace: v.imageColorspace,
		extent:     extent,
	}

	images, err := enumerate(func(count *uint32, out []vk.Image) vk.Result {
		return vk.GetSwapchainImages(v.logicalDevice, handle, count, out)
	})
	if err != nil {
		sc.Release()
		return nil, fmt.Errorf("vk.GetSwapchainImages(): %w", err)
	}
	sc.images = images

	if err := sc.createImageViews(); err != nil {
		sc.Release()
		return nil, err
	}
	return sc, nil
}

func (s *swapchain) createImageViews() error {
	for idx, image := range s.images {
		ivci := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   s.format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}

		var imageView vk.ImageView
		if err := Error(vk.CreateImageView(s.device, &ivci, nil, &imageView)); err != nil {
			return fmt.Errorf("vk.CreateImageView()[%d]: %w", idx, err)
		}
		s.views = append(s.views, imageView)
	}
	return nil
}

// Release destroys the image views and the swapchain.
// The images are owned by the swapchain.
func (s *swapchain) Release() {
	for _, view := range s.views {
		vk.DestroyImageView(s.device, view, nil)
	}
	s.views = nil
	s.images = nil
	vk.DestroySwapchain(s.device, s.handle, nil)
}
