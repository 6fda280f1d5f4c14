// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"errors"
	"fmt"
	"math"

	"github.com/devblok/ninjadev/core"
	"github.com/devblok/ninjadev/gfx"
	"github.com/devblok/ninjadev/model"
	vk "github.com/devblok/vulkan"
)

// noTimeout makes fence waits and image acquisition block indefinitely
const noTimeout uint = math.MaxUint64

// frameResources are the per ring slot objects of a frame in flight
type frameResources struct {
	commandBuffer  vk.CommandBuffer
	descriptorSet  vk.DescriptorSet
	imageAcquired  vk.Semaphore
	renderFinished vk.Semaphore
	fence          vk.Fence
}

// frame is a ring slot bound to a tick. Until it's submitted
// releasing it gives the slot back, after that Reclaim does.
type frame struct {
	renderer  *VulkanRenderer
	slot      int
	tick      uint64
	submitted bool
	released  bool
}

func (f *frame) Tick() uint64 {
	return f.tick
}

func (f *frame) Release() {
	if f.submitted || f.released {
		return
	}
	f.released = true
	f.renderer.ring.Release(f.slot)
}

func (v *VulkanRenderer) createCommandPool() error {
	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: v.graphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}

	var commandPool vk.CommandPool
	if err := Error(vk.CreateCommandPool(v.logicalDevice, &cpci, nil, &commandPool)); err != nil {
		return fmt.Errorf("vk.CreateCommandPool(): %w", err)
	}
	v.commandPool = commandPool
	return nil
}

func (v *VulkanRenderer) prepareDescriptorPool(depth int) error {
	poolSizes := []vk.DescriptorPoolSize{{
		Type:            vk.DescriptorTypeUniformBuffer,
		DescriptorCount: uint32(depth),
	}}

	dpci := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(depth),
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}

	var descriptorPool vk.DescriptorPool
	if err := Error(vk.CreateDescriptorPool(v.logicalDevice, &dpci, nil, &descriptorPool)); err != nil {
		return fmt.Errorf("vk.CreateDescriptorPool(): %w", err)
	}
	v.descriptorPool = descriptorPool
	return nil
}

// createFrames prepares the resources of every ring slot. Each slot
// gets a descriptor set pointing at its own uniform region.
func (v *VulkanRenderer) createFrames() error {
	depth := v.ring.Depth()

	if err := v.prepareDescriptorPool(depth); err != nil {
		return err
	}

	commandBuffers := make([]vk.CommandBuffer, depth)
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        v.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(depth),
	}
	if err := Error(vk.AllocateCommandBuffers(v.logicalDevice, &cbai, commandBuffers)); err != nil {
		return fmt.Errorf("vk.AllocateCommandBuffers(): %w", err)
	}

	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}

	v.frames = make([]frameResources, depth)
	for slot := range v.frames {
		fr := &v.frames[slot]
		fr.commandBuffer = commandBuffers[slot]

		dsai := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     v.descriptorPool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{v.descriptorSetLayout},
		}
		if err := Error(vk.AllocateDescriptorSets(v.logicalDevice, &dsai, &fr.descriptorSet)); err != nil {
			return fmt.Errorf("vk.AllocateDescriptorSets()[%d]: %w", slot, err)
		}

		wds := []vk.WriteDescriptorSet{{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          fr.descriptorSet,
			DstBinding:      0,
			DstArrayElement: 0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			PBufferInfo:     []vk.DescriptorBufferInfo{v.uniforms.descriptor(slot)},
		}}
		vk.UpdateDescriptorSets(v.logicalDevice, uint32(len(wds)), wds, 0, nil)

		if err := Error(vk.CreateSemaphore(v.logicalDevice, &sci, nil, &fr.imageAcquired)); err != nil {
			return fmt.Errorf("vk.CreateSemaphore(): %w", err)
		}
		if err := Error(vk.CreateSemaphore(v.logicalDevice, &sci, nil, &fr.renderFinished)); err != nil {
			return fmt.Errorf("vk.CreateSemaphore(): %w", err)
		}
		if err := Error(vk.CreateFence(v.logicalDevice, &fci, nil, &fr.fence)); err != nil {
			return fmt.Errorf("vk.CreateFence(): %w", err)
		}
	}
	return nil
}

func (v *VulkanRenderer) destroyFrames() {
	for _, fr := range v.frames {
		if fr.fence != vk.NullFence {
			vk.DestroyFence(v.logicalDevice, fr.fence, nil)
		}
		if fr.imageAcquired != vk.Semaphore(vk.NullHandle) {
			vk.DestroySemaphore(v.logicalDevice, fr.imageAcquired, nil)
		}
		if fr.renderFinished != vk.Semaphore(vk.NullHandle) {
			vk.DestroySemaphore(v.logicalDevice, fr.renderFinished, nil)
		}
	}
	v.frames = nil
}

// Reclaim gives back ring slots of frames whose fence has signalled
func (v *VulkanRenderer) Reclaim() {
	pending := v.inFlight[:0]
	for _, slot := range v.inFlight {
		if vk.GetFenceStatus(v.logicalDevice, v.frames[slot].fence) == vk.Success {
			v.ring.Release(slot)
			continue
		}
		pending = append(pending, slot)
	}
	v.inFlight = pending
}

// WaitIdle blocks until every submitted frame has completed
func (v *VulkanRenderer) WaitIdle() {
	if len(v.inFlight) > 0 {
		fences := make([]vk.Fence, 0, len(v.inFlight))
		for _, slot := range v.inFlight {
			fences = append(fences, v.frames[slot].fence)
		}
		vk.WaitForFences(v.logicalDevice, uint32(len(fences)), fences, vk.True, noTimeout)
	}
	vk.DeviceWaitIdle(v.logicalDevice)
	v.Reclaim()
}

// BeginFrame takes a ring slot and writes the uniform of tick into it
func (v *VulkanRenderer) BeginFrame(tick uint64) (core.Frame, error) {
	slot, err := v.ring.Next()
	if err != nil {
		return nil, err
	}

	if err := v.uniforms.write(slot, model.UniformForTick(tick)); err != nil {
		v.ring.Release(slot)
		return nil, err
	}

	return &frame{
		renderer: v,
		slot:     slot,
		tick:     tick,
	}, nil
}

func (v *VulkanRenderer) asFrame(f core.Frame) (*frame, error) {
	fr, ok := f.(*frame)
	if !ok || fr.renderer != v {
		return nil, errors.New("frame was not begun by this renderer")
	}
	if fr.submitted || fr.released {
		return nil, errors.New("frame was already submitted or released")
	}
	return fr, nil
}

// Acquire waits without a timeout for the next swapchain image
func (v *VulkanRenderer) Acquire(f core.Frame) (uint32, error) {
	fr, err := v.asFrame(f)
	if err != nil {
		return 0, err
	}

	var imageIndex uint32
	result := vk.AcquireNextImage(v.logicalDevice, v.swapchain.handle, noTimeout, v.frames[fr.slot].imageAcquired, vk.NullFence, &imageIndex)
	if err := Error(result); errors.Is(err, core.ErrOutOfDate) {
		return 0, err
	} else if err != nil {
		return 0, fmt.Errorf("vk.AcquireNextImage(): %w", err)
	}
	return imageIndex, nil
}

func (v *VulkanRenderer) recordCommandBuffer(fr *frameResources, framebuffer vk.Framebuffer, extent vk.Extent2D) error {
	cmd := fr.commandBuffer
	if err := Error(vk.ResetCommandBuffer(cmd, 0)); err != nil {
		return fmt.Errorf("vk.ResetCommandBuffer(): %w", err)
	}

	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := Error(vk.BeginCommandBuffer(cmd, &cbbi)); err != nil {
		return fmt.Errorf("vk.BeginCommandBuffer(): %w", err)
	}

	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor(v.configuration.ClearColor[:])

	rpbi := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      v.renderPass,
		Framebuffer:     framebuffer,
		RenderArea:      scissor(extent),
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(cmd, &rpbi, vk.SubpassContentsInline)
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, v.pipeline)
	vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{viewport(extent)})
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{scissor(extent)})
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, v.pipelineLayout, 0, 1, []vk.DescriptorSet{fr.descriptorSet}, 0, nil)
	vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{v.vertexBuffer.Get()}, []vk.DeviceSize{0})
	vk.CmdDraw(cmd, v.vertexCount, 1, 0, 0)
	vk.CmdEndRenderPass(cmd)

	if err := Error(vk.EndCommandBuffer(cmd)); err != nil {
		return fmt.Errorf("vk.EndCommandBuffer(): %w", err)
	}
	return nil
}

// Submit records the quad draw into the acquired image, submits it and
// queues the image for presentation. A suboptimal or out of date present
// returns core.ErrOutOfDate, the frame is in flight regardless.
func (v *VulkanRenderer) Submit(f core.Frame, framebuffers core.Framebuffers, image uint32, extent gfx.Extent2D) error {
	fr, err := v.asFrame(f)
	if err != nil {
		return err
	}

	set, ok := framebuffers.(*framebufferSet)
	if !ok {
		return errors.New("framebuffers were not built by this renderer")
	}
	framebuffer, err := set.target(image, extent)
	if err != nil {
		return err
	}

	res := &v.frames[fr.slot]
	vkExtent := vk.Extent2D{Width: extent.Width, Height: extent.Height}
	if err := v.recordCommandBuffer(res, framebuffer, vkExtent); err != nil {
		return err
	}

	if err := Error(vk.ResetFences(v.logicalDevice, 1, []vk.Fence{res.fence})); err != nil {
		return fmt.Errorf("vk.ResetFences(): %w", err)
	}

	submit := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{res.imageAcquired},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{res.commandBuffer},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{res.renderFinished},
	}}
	if err := Error(vk.QueueSubmit(v.deviceQueue, 1, submit, res.fence)); err != nil {
		return fmt.Errorf("vk.QueueSubmit(): %w", err)
	}
	fr.submitted = true
	v.inFlight = append(v.inFlight, fr.slot)

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{res.renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{v.swapchain.handle},
		PImageIndices:      []uint32{image},
	}

	return presentOutcome(vk.QueuePresent(v.deviceQueue, &presentInfo), v.swapchain.extent, &v.suboptimalExtent)
}

// presentOutcome classifies a present result. Out of date always asks
// for a new swapchain. Suboptimal asks only once per extent, so a surface
// that stays suboptimal after recreation isn't recreated every frame.
func presentOutcome(result vk.Result, extent gfx.Extent2D, handled *gfx.Extent2D) error {
	if result == vk.Suboptimal {
		if *handled == extent {
			return nil
		}
		*handled = extent
		return core.ErrOutOfDate
	}

	if err := Error(result); errors.Is(err, core.ErrOutOfDate) {
		return err
	} else if err != nil {
		return fmt.Errorf("vk.QueuePresent(): %w", err)
	}
	return nil
}
