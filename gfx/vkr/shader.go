// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"encoding/binary"
	"fmt"

	"github.com/devblok/ninjadev/core"
	vk "github.com/devblok/vulkan"
	"github.com/gogpu/naga"
	log "github.com/sirupsen/logrus"
)

// spirvMagic is the first word of every SPIR-V module
const spirvMagic = 0x07230203

// Entry points shaders are expected to declare
const (
	VertexEntryPoint   = "vs_main"
	FragmentEntryPoint = "fs_main"

	// SPIR-V compiled from GLSL always uses main
	spirvEntryPoint = "main"
)

// ShaderSource lists and reads shader files.
// A packr.Box satisfies it.
type ShaderSource interface {
	List() []string
	Find(name string) ([]byte, error)
}

// ShaderCode is a SPIR-V shader ready for module creation
type ShaderCode struct {
	core.ShaderFile
	Entry string
	Code  []uint32
}

// LoadShaders picks a vertex and a fragment shader out of src and
// turns them into SPIR-V. WGSL sources are compiled with naga.
func LoadShaders(src ShaderSource) ([]ShaderCode, error) {
	files := core.SelectShaderFiles(src.List())
	if len(files) != 2 {
		return nil, fmt.Errorf("need a vertex and a fragment shader, found %d usable shader files", len(files))
	}

	shaders := make([]ShaderCode, 0, len(files))
	for _, file := range files {
		data, err := src.Find(file.Path)
		if err != nil {
			return nil, fmt.Errorf("shader %s: %w", file.Path, err)
		}

		shader, err := CompileShader(file, data)
		if err != nil {
			return nil, err
		}
		log.WithFields(log.Fields{
			"shader": file.Path,
			"entry":  shader.Entry,
			"words":  len(shader.Code),
		}).Debug("Shader loaded")
		shaders = append(shaders, shader)
	}
	return shaders, nil
}

// CompileShader turns the contents of a shader file into SPIR-V words
func CompileShader(file core.ShaderFile, data []byte) (ShaderCode, error) {
	shader := ShaderCode{ShaderFile: file}

	switch file.Format {
	case core.WGSLShaderFormat:
		spirv, err := naga.Compile(string(data))
		if err != nil {
			return ShaderCode{}, fmt.Errorf("naga.Compile(%s): %w", file.Path, err)
		}
		data = spirv
		shader.Entry = wgslEntryPoint(file.Type)
	case core.SPIRVShaderFormat:
		shader.Entry = spirvEntryPoint
	default:
		return ShaderCode{}, fmt.Errorf("shader %s: unknown format", file.Path)
	}

	if err := validateSPIRV(data); err != nil {
		return ShaderCode{}, fmt.Errorf("shader %s: %w", file.Path, err)
	}
	shader.Code = SliceUint32(data)
	return shader, nil
}

func wgslEntryPoint(t core.ShaderType) string {
	if t == core.VertexShaderType {
		return VertexEntryPoint
	}
	return FragmentEntryPoint
}

func validateSPIRV(data []byte) error {
	if len(data) < 4 || len(data)%4 != 0 {
		return fmt.Errorf("SPIR-V size of %d bytes is not a positive multiple of 4", len(data))
	}
	if magic := binary.LittleEndian.Uint32(data); magic != spirvMagic {
		return fmt.Errorf("bad SPIR-V magic %#08x", magic)
	}
	return nil
}

// shaderModule is a created vulkan shader module
type shaderModule struct {
	ShaderCode
	handle vk.ShaderModule
}

func newShaderModule(device vk.Device, code ShaderCode) (shaderModule, error) {
	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code.Code) * 4),
		PCode:    code.Code,
	}

	var handle vk.ShaderModule
	if err := Error(vk.CreateShaderModule(device, &smci, nil, &handle)); err != nil {
		return shaderModule{}, fmt.Errorf("vk.CreateShaderModule(%s): %w", code.Type, err)
	}
	return shaderModule{
		ShaderCode: code,
		handle:     handle,
	}, nil
}
