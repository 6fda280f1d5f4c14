// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"os"
	"testing"

	"github.com/devblok/ninjadev/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapSource is an in-memory ShaderSource
type mapSource map[string][]byte

func (m mapSource) List() []string {
	var names []string
	for name := range m {
		names = append(names, name)
	}
	return names
}

func (m mapSource) Find(name string) ([]byte, error) {
	data, ok := m[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

// spirvStub is a SPIR-V header without instructions
var spirvStub = []byte{
	0x03, 0x02, 0x23, 0x07,
	0x00, 0x00, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

func TestLoadShadersSPIRV(t *testing.T) {
	shaders, err := LoadShaders(mapSource{
		"quad.vert.spv":       spirvStub,
		"mandelbrot.frag.spv": spirvStub,
		"README.md":           []byte("not a shader"),
	})
	require.NoError(t, err)
	require.Len(t, shaders, 2)

	assert.Equal(t, core.VertexShaderType, shaders[0].Type)
	assert.Equal(t, "quad", shaders[0].Name)
	assert.Equal(t, core.FragmentShaderType, shaders[1].Type)
	for _, s := range shaders {
		assert.Equal(t, spirvEntryPoint, s.Entry)
		assert.Len(t, s.Code, 5)
		assert.Equal(t, uint32(spirvMagic), s.Code[0])
	}
}

func TestLoadShadersMissingStage(t *testing.T) {
	_, err := LoadShaders(mapSource{"quad.vert.spv": spirvStub})
	assert.Error(t, err)
}

func TestCompileShaderRejectsBadSPIRV(t *testing.T) {
	file := core.ShaderFile{Path: "quad.vert.spv", Name: "quad", Type: core.VertexShaderType, Format: core.SPIRVShaderFormat}

	_, err := CompileShader(file, []byte{1, 2, 3})
	assert.Error(t, err)

	_, err = CompileShader(file, []byte{0, 0, 0, 0})
	assert.Error(t, err)
}

func TestCompileShaderRejectsBadWGSL(t *testing.T) {
	file := core.ShaderFile{Path: "quad.vert.wgsl", Name: "quad", Type: core.VertexShaderType, Format: core.WGSLShaderFormat}
	_, err := CompileShader(file, []byte("this is not { wgsl"))
	assert.Error(t, err)
}

func TestWGSLEntryPoints(t *testing.T) {
	assert.Equal(t, VertexEntryPoint, wgslEntryPoint(core.VertexShaderType))
	assert.Equal(t, FragmentEntryPoint, wgslEntryPoint(core.FragmentShaderType))
}
