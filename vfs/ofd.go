// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vfs

import "github.com/gokernel/gokernel/iocommon"

// OpenFileDescription is the shared per-open state: a node reference, a
// byte offset, open flags, and a usage count shared across dup and
// fork.
type OpenFileDescription struct {
	Node       Node
	Offset     int64
	Flags      int
	usageCount int
	inUse      bool
}

// OFDHandle indexes into an OFDPool.
type OFDHandle int

// OFDPool is a fixed-size pool: "two page frames of fixed-size entries
// on two lists (available, used)". We model the two page frames as a
// single preallocated slice plus a free-index
// stack, which is the same fixed-capacity-plus-free-list shape as
// fs/fs.go's bounded inode table.
type OFDPool struct {
	entries []OpenFileDescription
	free    []OFDHandle
}

// NewOFDPool preallocates a pool able to hold capacity open file
// descriptions.
func NewOFDPool(capacity int) *OFDPool {
	p := &OFDPool{entries: make([]OpenFileDescription, capacity)}
	p.free = make([]OFDHandle, capacity)
	for i := 0; i < capacity; i++ {
		p.free[i] = OFDHandle(capacity - 1 - i)
	}
	return p
}

// Acquire removes an entry from the available list, zeroes it, and
// returns its handle. Fails with ENFILE if the pool is exhausted.
func (p *OFDPool) Acquire(node Node, flags int) (OFDHandle, iocommon.Errno) {
	if len(p.free) == 0 {
		return -1, iocommon.ENFILE
	}
	h := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.entries[h] = OpenFileDescription{Node: node, Flags: flags, usageCount: 1, inUse: true}
	return h, iocommon.OK
}

// Get returns the entry for h.
func (p *OFDPool) Get(h OFDHandle) (*OpenFileDescription, iocommon.Errno) {
	if h < 0 || int(h) >= len(p.entries) || !p.entries[h].inUse {
		return nil, iocommon.EBADF
	}
	return &p.entries[h], iocommon.OK
}

// Dup increments h's usage count and returns h itself, since dup/dup2
// share the same OpenFileDescription (the "shared across dup").
func (p *OFDPool) Dup(h OFDHandle) (OFDHandle, iocommon.Errno) {
	e, errno := p.Get(h)
	if errno != iocommon.OK {
		return -1, errno
	}
	e.usageCount++
	return h, iocommon.OK
}

// Release decrements h's usage count, returning it to the available list
// and releasing its node reservation once the count reaches zero.
func (p *OFDPool) Release(h OFDHandle) iocommon.Errno {
	e, errno := p.Get(h)
	if errno != iocommon.OK {
		return errno
	}
	e.usageCount--
	if e.usageCount > 0 {
		return iocommon.OK
	}
	node := e.Node
	p.entries[h] = OpenFileDescription{}
	p.free = append(p.free, h)
	if node != nil {
		node.Release()
	}
	return iocommon.OK
}
