// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package model defines the geometry and uniform data fed to the shaders.
package model

import (
	"unsafe"

	vk "github.com/devblok/vulkan"
	glm "github.com/go-gl/mathgl/mgl32"
)

// Vertex is a 2D vertex position in normalized device coordinates
type Vertex struct {
	Position glm.Vec2
}

// QuadVertices returns two triangles covering the whole viewport
func QuadVertices() []Vertex {
	return []Vertex{
		{Position: glm.Vec2{-1, -1}},
		{Position: glm.Vec2{1, -1}},
		{Position: glm.Vec2{-1, 1}},
		{Position: glm.Vec2{-1, 1}},
		{Position: glm.Vec2{1, -1}},
		{Position: glm.Vec2{1, 1}},
	}
}

// Uniform is the per-frame data read by the fragment shader.
// Frame is the logical tick counter.
type Uniform struct {
	Frame float32
}

// UniformForTick builds the uniform for a logical tick
func UniformForTick(tick uint64) Uniform {
	return Uniform{
		Frame: float32(tick),
	}
}

// Bytes returns the uniform in its host memory layout
func (u *Uniform) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(u)), unsafe.Sizeof(*u))
}

// VertexBytes returns vertices in their host memory layout
func VertexBytes(vertices []Vertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*int(unsafe.Sizeof(Vertex{})))
}

// VertexBindingDescriptions return Vulkan Vertex descriptors
func VertexBindingDescriptions() []vk.VertexInputBindingDescription {
	return []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(Vertex{})),
		InputRate: vk.VertexInputRateVertex,
	}}
}

// VertexAttributeDescriptions return Vulkan attribute descriptors
func VertexAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{{
		Binding:  0,
		Location: 0,
		Format:   vk.FormatR32g32Sfloat,
		Offset:   uint32(unsafe.Offsetof(Vertex{}.Position)),
	}}
}
