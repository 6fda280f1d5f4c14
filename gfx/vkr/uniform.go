// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"
	"unsafe"

	"github.com/devblok/ninjadev/model"
	vk "github.com/devblok/vulkan"
)

// uniformRing is a single host visible uniform buffer split into
// depth regions, each aligned to the device's uniform offset alignment.
// Region i belongs to ring slot i.
type uniformRing struct {
	buffer Buffer
	size   uint64
	stride uint64
}

func newUniformRing(device vk.Device, allocator *MemoryAllocator, depth int, alignment uint64) (*uniformRing, error) {
	size := uint64(unsafe.Sizeof(model.Uniform{}))
	stride := alignUp(size, alignment)

	buffer, err := NewBuffer(device, uint(stride*uint64(depth)), vk.BufferUsageUniformBufferBit, vk.SharingModeExclusive, allocator)
	if err != nil {
		return nil, fmt.Errorf("uniform ring buffer: %w", err)
	}

	// Stays mapped for the lifetime of the ring
	if _, err := buffer.Mem().Map(); err != nil {
		buffer.Release()
		return nil, err
	}

	return &uniformRing{
		buffer: buffer,
		size:   size,
		stride: stride,
	}, nil
}

// offset returns where the region of slot starts in the buffer
func (u *uniformRing) offset(slot int) uint64 {
	return uint64(slot) * u.stride
}

// descriptor describes the region of slot for a descriptor write
func (u *uniformRing) descriptor(slot int) vk.DescriptorBufferInfo {
	return vk.DescriptorBufferInfo{
		Buffer: u.buffer.Get(),
		Offset: vk.DeviceSize(u.offset(slot)),
		Range:  vk.DeviceSize(u.size),
	}
}

// slots returns how many regions fit into the buffer
func (u *uniformRing) slots() int {
	return int(uint64(u.buffer.Size()) / u.stride)
}

func (u *uniformRing) write(slot int, uniform model.Uniform) error {
	if slot < 0 || slot >= u.slots() {
		return fmt.Errorf("uniform slot %d out of ring of %d", slot, u.slots())
	}
	return u.buffer.Mem().Write(uint(u.offset(slot)), uniform.Bytes())
}

func (u *uniformRing) Release() {
	u.buffer.Release()
}
