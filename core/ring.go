// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"
	"sync"
)

// NewRing creates a ring allocator with depth slots
func NewRing(depth int) (*Ring, error) {
	if depth <= 0 {
		return nil, fmt.Errorf("ring depth must be positive, got %d", depth)
	}
	return &Ring{
		used: make([]bool, depth),
	}, nil
}

// Ring hands out slot indices of a fixed-depth ring in order,
// skipping slots that are still taken. A slot stays taken until it
// is released; the ring is exhausted once every slot is taken.
type Ring struct {
	mutex sync.Mutex
	used  []bool
	next  int
	taken int
}

// Depth returns the amount of slots in the ring
func (r *Ring) Depth() int {
	return len(r.used)
}

// InUse returns the amount of slots currently taken
func (r *Ring) InUse() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.taken
}

// Next takes the next slot in ring order
func (r *Ring) Next() (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.taken == len(r.used) {
		return 0, ErrRingExhausted
	}

	slot := r.next
	for r.used[slot] {
		slot = (slot + 1) % len(r.used)
	}
	r.used[slot] = true
	r.taken++
	r.next = (slot + 1) % len(r.used)
	return slot, nil
}

// Release returns slot to the ring. Releasing a free slot does nothing.
func (r *Ring) Release(slot int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if slot < 0 || slot >= len(r.used) || !r.used[slot] {
		return
	}
	r.used[slot] = false
	r.taken--
}
