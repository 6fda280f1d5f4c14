// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"encoding/binary"
	"fmt"

	vk "github.com/devblok/vulkan"
)

// SliceUint32 repacks little-endian bytes into the 32 bit words
// vulkan expects shader code in. Trailing bytes are dropped.
func SliceUint32(data []byte) []uint32 {
	words := make([]uint32, len(data)/4)
	for idx := range words {
		words[idx] = binary.LittleEndian.Uint32(data[idx*4:])
	}
	return words
}

// alignUp rounds size up to a multiple of alignment.
// Zero alignment leaves size as is.
func alignUp(size, alignment uint64) uint64 {
	if alignment == 0 {
		return size
	}
	return (size + alignment - 1) / alignment * alignment
}

func safeString(s string) string {
	return fmt.Sprintf("%s\x00", s)
}

func safeStrings(sgs []string) []string {
	safe := []string{}
	for _, s := range sgs {
		safe = append(safe, fmt.Sprintf("%s\x00", s))
	}
	return safe
}

// enumerate runs the two call count then fill pattern of
// vulkan list queries and returns what was filled in.
func enumerate[T any](query func(count *uint32, out []T) vk.Result) ([]T, error) {
	var count uint32
	if err := Error(query(&count, nil)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	out := make([]T, count)
	if err := Error(query(&count, out)); err != nil {
		return nil, err
	}
	return out[:count], nil
}
