// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"path"
	"sort"
	"strings"
)

// ShaderFormat is the encoding a shader file is stored in
type ShaderFormat int

// Supported shader encodings
const (
	SPIRVShaderFormat ShaderFormat = iota
	WGSLShaderFormat
)

// ShaderFile is a shader found in a shader source listing
type ShaderFile struct {
	Path   string
	Name   string
	Type   ShaderType
	Format ShaderFormat
}

// ParseShaderFile classifies a shader file by its name. The name must have
// exactly three dot separated parts: the shader name, its type (vert or frag)
// and the encoding, .spv for compiled SPIR-V or .wgsl for WGSL source.
func ParseShaderFile(file string) (ShaderFile, bool) {
	nodes := strings.Split(path.Base(file), ".")
	if len(nodes) != 3 || nodes[0] == "" {
		return ShaderFile{}, false
	}

	sf := ShaderFile{
		Path: file,
		Name: nodes[0],
	}

	switch nodes[1] {
	case "vert":
		sf.Type = VertexShaderType
	case "frag":
		sf.Type = FragmentShaderType
	default:
		return ShaderFile{}, false
	}

	switch nodes[2] {
	case "spv":
		sf.Format = SPIRVShaderFormat
	case "wgsl":
		sf.Format = WGSLShaderFormat
	default:
		return ShaderFile{}, false
	}
	return sf, true
}

// SelectShaderFiles picks one shader per type out of files. Compiled SPIR-V
// wins over WGSL source of the same name and type, otherwise the first name
// in lexical order is taken. Files that aren't shaders are skipped.
func SelectShaderFiles(files []string) []ShaderFile {
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	picked := make(map[ShaderType]ShaderFile)
	for _, f := range sorted {
		sf, ok := ParseShaderFile(f)
		if !ok {
			continue
		}
		if prev, ok := picked[sf.Type]; ok {
			if prev.Name != sf.Name || prev.Format == SPIRVShaderFormat {
				continue
			}
		}
		picked[sf.Type] = sf
	}

	var shaders []ShaderFile
	for _, t := range []ShaderType{VertexShaderType, FragmentShaderType} {
		if sf, ok := picked[t]; ok {
			shaders = append(shaders, sf)
		}
	}
	return shaders
}
