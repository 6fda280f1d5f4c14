// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package vkr implements the vulkan renderer.
package vkr

import (
	"errors"
	"fmt"

	"github.com/devblok/ninjadev/core"
	"github.com/devblok/ninjadev/gfx"
	"github.com/devblok/ninjadev/model"
	vk "github.com/devblok/vulkan"
	log "github.com/sirupsen/logrus"
)

// queuePriority of the single graphics and present queue
const queuePriority = 0.5

// NewVulkanRenderer creates a not yet initialised Vulkan API renderer
// presenting to the surface of instance with the first physical device.
func NewVulkanRenderer(instance *VulkanInstance, cfg core.RendererConfiguration, shaders []ShaderCode) (*VulkanRenderer, error) {
	devices := instance.AvailableDevices()
	if len(devices) == 0 {
		return nil, errors.New("no physical devices available")
	}
	if instance.Surface() == vk.NullSurface {
		return nil, errors.New("instance has no surface to present to")
	}

	return &VulkanRenderer{
		configuration:  cfg,
		shaders:        shaders,
		surface:        instance.Surface(),
		physicalDevice: devices[0],
	}, nil
}

var _ core.Renderer = (*VulkanRenderer)(nil)

// VulkanRenderer is a Vulkan API renderer drawing a
// fullscreen quad through a single graphics pipeline.
type VulkanRenderer struct {
	configuration core.RendererConfiguration
	shaders       []ShaderCode

	surface        vk.Surface
	physicalDevice vk.PhysicalDevice
	logicalDevice  vk.Device
	deviceQueue    vk.Queue

	graphicsQueueIndex uint32

	imageFormat     vk.Format
	imageColorspace vk.ColorSpace
	swapchain       *swapchain

	// suboptimalExtent is the extent a suboptimal present was last acted on
	suboptimalExtent gfx.Extent2D

	renderPass          vk.RenderPass
	descriptorSetLayout vk.DescriptorSetLayout
	pipelineLayout      vk.PipelineLayout
	pipelineCache       vk.PipelineCache
	pipeline            vk.Pipeline

	allocator    *MemoryAllocator
	vertexBuffer Buffer
	vertexCount  uint32

	commandPool    vk.CommandPool
	descriptorPool vk.DescriptorPool

	ring     *core.Ring
	uniforms *uniformRing
	frames   []frameResources
	inFlight []int
}

// queueFamily is what the renderer needs to know about a queue family
type queueFamily struct {
	graphics bool
	present  bool
}

// pickQueueFamily returns the first family that can both draw and present
func pickQueueFamily(families []queueFamily) (uint32, bool) {
	for idx, family := range families {
		if family.graphics && family.present {
			return uint32(idx), true
		}
	}
	return 0, false
}

// pickSurfaceFormat takes the first supported format. A lone
// undefined format means the surface takes any format.
func pickSurfaceFormat(formats []vk.SurfaceFormat) (vk.Format, vk.ColorSpace, error) {
	if len(formats) == 0 {
		return 0, 0, errors.New("surface supports no formats")
	}
	if len(formats) == 1 && formats[0].Format == vk.FormatUndefined {
		return vk.FormatB8g8r8a8Unorm, formats[0].ColorSpace, nil
	}
	return formats[0].Format, formats[0].ColorSpace, nil
}

func (v *VulkanRenderer) findQueueFamily() error {
	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(v.physicalDevice, &queueFamilyCount, nil)
	if queueFamilyCount == 0 {
		return errors.New("vk.GetPhysicalDeviceQueueFamilyProperties(): no queuefamilies on GPU")
	}
	properties := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(v.physicalDevice, &queueFamilyCount, properties)

	families := make([]queueFamily, queueFamilyCount)
	for i := uint32(0); i < queueFamilyCount; i++ {
		properties[i].Deref()

		var supportsPresent vk.Bool32
		if err := Error(vk.GetPhysicalDeviceSurfaceSupport(v.physicalDevice, i, v.surface, &supportsPresent)); err != nil {
			return fmt.Errorf("vk.GetPhysicalDeviceSurfaceSupport(): %w", err)
		}

		families[i] = queueFamily{
			graphics: properties[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0,
			present:  supportsPresent.B(),
		}
	}

	idx, ok := pickQueueFamily(families)
	if !ok {
		return errors.New("vulkan error: could not find a queue family with graphics and present support")
	}
	v.graphicsQueueIndex = idx
	return nil
}

func (v *VulkanRenderer) createDevice() error {
	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: v.graphicsQueueIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{queuePriority},
	}}

	extensions := v.configuration.DeviceExtensions
	if !contains(extensions, vk.KhrSwapchainExtensionName) {
		extensions = append(append([]string(nil), extensions...), vk.KhrSwapchainExtensionName)
	}

	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
	}

	var device vk.Device
	if err := Error(vk.CreateDevice(v.physicalDevice, &dci, nil, &device)); err != nil {
		return fmt.Errorf("vk.CreateDevice(): %w", err)
	}

	var queue vk.Queue
	vk.GetDeviceQueue(device, v.graphicsQueueIndex, 0, &queue)

	v.logicalDevice = device
	v.deviceQueue = queue
	return nil
}

func (v *VulkanRenderer) chooseSurfaceFormat() error {
	surfaceFormats, err := enumerate(func(count *uint32, out []vk.SurfaceFormat) vk.Result {
		return vk.GetPhysicalDeviceSurfaceFormats(v.physicalDevice, v.surface, count, out)
	})
	if err != nil {
		return fmt.Errorf("vk.GetPhysicalDeviceSurfaceFormats(): %w", err)
	}
	for idx := range surfaceFormats {
		surfaceFormats[idx].Deref()
	}

	format, colorSpace, err := pickSurfaceFormat(surfaceFormats)
	if err != nil {
		return err
	}
	v.imageFormat = format
	v.imageColorspace = colorSpace
	return nil
}

func (v *VulkanRenderer) createVertexBuffer() error {
	vertices := model.QuadVertices()
	data := model.VertexBytes(vertices)

	buffer, err := NewBuffer(v.logicalDevice, uint(len(data)), vk.BufferUsageVertexBufferBit, vk.SharingModeExclusive, v.allocator)
	if err != nil {
		return fmt.Errorf("vertex buffer: %w", err)
	}
	if err := buffer.Mem().Write(0, data); err != nil {
		buffer.Release()
		return err
	}
	buffer.Mem().Unmap()

	v.vertexBuffer = buffer
	v.vertexCount = uint32(len(vertices))
	return nil
}

func (v *VulkanRenderer) createShaderPipeline() error {
	modules := make([]shaderModule, 0, len(v.shaders))
	defer func() {
		for _, module := range modules {
			vk.DestroyShaderModule(v.logicalDevice, module.handle, nil)
		}
	}()

	for _, code := range v.shaders {
		module, err := newShaderModule(v.logicalDevice, code)
		if err != nil {
			return err
		}
		modules = append(modules, module)
	}
	return v.createPipeline(modules)
}

// Initialise creates the device and every object needed to draw frames
func (v *VulkanRenderer) Initialise() error {
	props := deviceProperties(v.physicalDevice)
	log.WithFields(log.Fields{
		"name": vk.ToString(props.DeviceName[:]),
		"type": deviceTypeName(props.DeviceType),
	}).Info("Using device")

	if err := v.findQueueFamily(); err != nil {
		return err
	}

	if err := v.createDevice(); err != nil {
		return err
	}
	v.allocator = NewMemoryAllocator(v.logicalDevice, v.physicalDevice)

	if err := v.chooseSurfaceFormat(); err != nil {
		return err
	}

	/* Swapchain */
	limits, compositeAlpha, err := v.querySurface()
	if err != nil {
		return err
	}
	want := gfx.Extent2D{Width: v.configuration.ScreenWidth, Height: v.configuration.ScreenHeight}
	if limits.currentDefined() {
		want = limits.current
	}
	extent, err := resolveExtent(limits, want)
	if err != nil {
		return fmt.Errorf("initial swapchain of %s: %w", want, err)
	}
	sc, err := v.createSwapchain(extent, limits, compositeAlpha, nil)
	if err != nil {
		return err
	}
	v.swapchain = sc
	log.WithFields(log.Fields{
		"extent": sc.extent,
		"images": len(sc.images),
		"format": sc.format,
	}).Info("Swapchain created")

	/* Pipeline */
	if err := v.createRenderPass(); err != nil {
		return err
	}
	if err := v.createPipelineLayout(); err != nil {
		return err
	}
	if err := v.createPipelineCache(); err != nil {
		return err
	}
	if err := v.createShaderPipeline(); err != nil {
		return err
	}

	if err := v.createVertexBuffer(); err != nil {
		return err
	}

	/* Frames in flight */
	ring, err := core.NewRing(v.configuration.UniformRingSize)
	if err != nil {
		return err
	}
	v.ring = ring

	uniforms, err := newUniformRing(v.logicalDevice, v.allocator, ring.Depth(), uint64(props.Limits.MinUniformBufferOffsetAlignment))
	if err != nil {
		return err
	}
	v.uniforms = uniforms

	if err := v.createCommandPool(); err != nil {
		return err
	}
	return v.createFrames()
}

// Extent returns the extent of the current swapchain
func (v *VulkanRenderer) Extent() gfx.Extent2D {
	if v.swapchain == nil {
		return gfx.Extent2D{}
	}
	return v.swapchain.extent
}

// RecreateSwapchain replaces the swapchain with one of the requested
// extent, or the surface's current extent when it dictates one.
// Waits for the device before touching anything.
func (v *VulkanRenderer) RecreateSwapchain(want gfx.Extent2D) (gfx.Extent2D, error) {
	limits, compositeAlpha, err := v.querySurface()
	if err != nil {
		return gfx.Extent2D{}, err
	}

	extent, err := resolveExtent(limits, want)
	if err != nil {
		return gfx.Extent2D{}, err
	}

	v.WaitIdle()

	sc, err := v.createSwapchain(extent, limits, compositeAlpha, v.swapchain)
	if err != nil {
		return gfx.Extent2D{}, err
	}
	v.swapchain.Release()
	v.swapchain = sc
	return sc.extent, nil
}

// Destroy blocks until the GPU is done and destroys internal members
func (v *VulkanRenderer) Destroy() {
	if v.logicalDevice == nil {
		return
	}
	v.WaitIdle()

	v.destroyFrames()
	if v.descriptorPool != vk.DescriptorPool(vk.NullHandle) {
		vk.DestroyDescriptorPool(v.logicalDevice, v.descriptorPool, nil)
	}
	if v.commandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(v.logicalDevice, v.commandPool, nil)
	}
	if v.uniforms != nil {
		v.uniforms.Release()
	}
	if v.vertexBuffer.Get() != vk.NullBuffer {
		v.vertexBuffer.Release()
	}

	vk.DestroyPipeline(v.logicalDevice, v.pipeline, nil)
	vk.DestroyPipelineCache(v.logicalDevice, v.pipelineCache, nil)
	vk.DestroyPipelineLayout(v.logicalDevice, v.pipelineLayout, nil)
	vk.DestroyDescriptorSetLayout(v.logicalDevice, v.descriptorSetLayout, nil)
	vk.DestroyRenderPass(v.logicalDevice, v.renderPass, nil)

	if v.swapchain != nil {
		v.swapchain.Release()
		v.swapchain = nil
	}
	vk.DestroyDevice(v.logicalDevice, nil)
	v.logicalDevice = nil
}
