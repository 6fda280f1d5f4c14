// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"testing"

	"github.com/devblok/ninjadev/core"
	"github.com/stretchr/testify/assert"
)

func TestParseShaderFile(t *testing.T) {
	cases := []struct {
		file   string
		ok     bool
		name   string
		typ    core.ShaderType
		format core.ShaderFormat
	}{
		{"quad.vert.wgsl", true, "quad", core.VertexShaderType, core.WGSLShaderFormat},
		{"shaders/mandelbrot.frag.spv", true, "mandelbrot", core.FragmentShaderType, core.SPIRVShaderFormat},
		{"quad.geom.wgsl", false, "", 0, 0},
		{"quad.vert.glsl", false, "", 0, 0},
		{"quad.wgsl", false, "", 0, 0},
		{"a.b.vert.wgsl", false, "", 0, 0},
		{".vert.wgsl", false, "", 0, 0},
		{"README.md", false, "", 0, 0},
	}

	for _, c := range cases {
		sf, ok := core.ParseShaderFile(c.file)
		assert.Equal(t, c.ok, ok, c.file)
		if !c.ok {
			continue
		}
		assert.Equal(t, c.file, sf.Path)
		assert.Equal(t, c.name, sf.Name)
		assert.Equal(t, c.typ, sf.Type)
		assert.Equal(t, c.format, sf.Format)
	}
}

func TestSelectShaderFiles(t *testing.T) {
	shaders := core.SelectShaderFiles([]string{
		"mandelbrot.frag.wgsl",
		"notes.txt",
		"quad.vert.wgsl",
		"quad.vert.spv",
		"zoom.frag.wgsl",
	})

	if assert.Len(t, shaders, 2) {
		assert.Equal(t, "quad.vert.spv", shaders[0].Path)
		assert.Equal(t, core.VertexShaderType, shaders[0].Type)
		assert.Equal(t, "mandelbrot.frag.wgsl", shaders[1].Path)
		assert.Equal(t, core.FragmentShaderType, shaders[1].Type)
	}
}

func TestSelectShaderFilesMissingStage(t *testing.T) {
	shaders := core.SelectShaderFiles([]string{"mandelbrot.frag.wgsl"})
	if assert.Len(t, shaders, 1) {
		assert.Equal(t, core.FragmentShaderType, shaders[0].Type)
	}
	assert.Empty(t, core.SelectShaderFiles(nil))
}

func TestShaderTypeString(t *testing.T) {
	assert.Equal(t, "vert", core.VertexShaderType.String())
	assert.Equal(t, "frag", core.FragmentShaderType.String())
	assert.Equal(t, "unknown", core.UnknownShaderType.String())
}
