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

// Package blockcache pins device blocks in a bounded set of page-frame
// buffers with reservation/dirty bookkeeping: a refcounted, revocable
// buffer pattern (lease.FileLeaser/lease.ReadWriteLease) combined with
// an "available set of evictable, unreferenced entries" idiom for
// choosing what to drop when the cache is full.
package blockcache

import (
	"sync"

	"github.com/gokernel/gokernel/blockdev"
	"github.com/gokernel/gokernel/container"
	"github.com/gokernel/gokernel/iocommon"
)

// key identifies one cached run of blocks by device identity and first
// block ID; two different *blockdev.BlockDevice values are always
// distinct devices even if they happen to wrap the same bytes.
type key struct {
	device       blockdev.BlockDevice
	firstBlockID uint32
}

// entry is one page frame: a buffer holding exactly one contiguous run of
// device blocks, a reservation count, and a dirty flag.
type entry struct {
	key        key
	count      uint32
	data       []byte
	reserved   int
	dirty      bool
	evictElem  *container.Element[*entry]
}

// Cache is the block cache manager: a bounded set of page frames shared
// across every BlockDevice the kernel has mounted.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[key]*entry
	evictable *container.List[*entry]
	stats    Stats
}

// New returns a Cache able to hold at most capacity page frames
// simultaneously.
func New(capacity int) *Cache {
	return &Cache{
		capacity:  capacity,
		entries:   make(map[key]*entry),
		evictable: container.New[*entry](),
	}
}

// Reserve pins a slot for (device, firstBlockID, count) without reading
// from disk — for writers that will fully overwrite the run. The
// returned buffer is zero-filled if the slot was not already cached.
func (c *Cache) Reserve(device blockdev.BlockDevice, firstBlockID, count uint32) ([]byte, iocommon.Errno) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, errno := c.acquireLocked(device, firstBlockID, count)
	if errno != iocommon.OK {
		return nil, errno
	}
	return e.data, iocommon.OK
}

// ReadAndReserve pins a slot and guarantees its contents reflect the
// device, reading from disk on first reservation of a given run.
func (c *Cache) ReadAndReserve(device blockdev.BlockDevice, firstBlockID, count uint32) ([]byte, iocommon.Errno) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key{device, firstBlockID}
	_, alreadyCached := c.entries[k]

	e, errno := c.acquireLocked(device, firstBlockID, count)
	if errno != iocommon.OK {
		return nil, errno
	}
	if !alreadyCached {
		if errno := device.ReadBlocks(firstBlockID, count, e.data); errno != iocommon.OK {
			c.releaseLocked(e, false)
			return nil, errno
		}
	}
	return e.data, iocommon.OK
}

// ReadAndReserveByOffset converts a byte offset into the containing run
// of count blocks starting at the block that offset falls in, then
// behaves as ReadAndReserve.
func (c *Cache) ReadAndReserveByOffset(device blockdev.BlockDevice, byteOffset int64, count uint32) ([]byte, uint32, iocommon.Errno) {
	blockSize := int64(device.BlockSize())
	firstBlockID := uint32(byteOffset / blockSize)
	buf, errno := c.ReadAndReserve(device, firstBlockID, count)
	return buf, firstBlockID, errno
}

// ReadDirectly performs a one-shot read that bypasses the cache
// entirely, for callers (e.g. a large sequential copy) that gain
// nothing from caching the result.
func (c *Cache) ReadDirectly(device blockdev.BlockDevice, firstBlockID, count uint32, dest []byte) iocommon.Errno {
	return device.ReadBlocks(firstBlockID, count, dest)
}

// ReleaseReservation decrements the reservation count for (device,
// blockID); if modified is true the entry is marked dirty. Once the
// count reaches zero the entry becomes an eviction candidate.
func (c *Cache) ReleaseReservation(device blockdev.BlockDevice, blockID uint32, modified bool) iocommon.Errno {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key{device, blockID}]
	if !ok {
		return iocommon.EINVAL
	}
	c.releaseLocked(e, modified)
	return iocommon.OK
}

func (c *Cache) releaseLocked(e *entry, modified bool) {
	if modified {
		e.dirty = true
	}
	if e.reserved <= 0 {
		panic("blockcache: ReleaseReservation called with zero reservation count")
	}
	e.reserved--
	if e.reserved == 0 {
		e.evictElem = c.evictable.PushBack(e)
	}
}

// Flush writes every dirty entry back to its device. The first I/O
// error encountered is returned (and is fatal to filesystem integrity),
// but every entry is still attempted.
func (c *Cache) Flush() iocommon.Errno {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := iocommon.OK
	for _, e := range c.entries {
		if !e.dirty {
			continue
		}
		if errno := e.key.device.WriteBlocks(e.key.firstBlockID, e.count, e.data); errno != iocommon.OK {
			result = iocommon.First(result, errno)
			continue
		}
		e.dirty = false
	}
	return result
}

// Clear evicts every entry with a zero reservation count, discarding any
// dirty content without writing it back. Callers that need dirty data
// preserved must Flush first.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for e := c.evictable.Front(); e != nil; {
		next := e.Next()
		c.evictable.Remove(e)
		delete(c.entries, e.Value.key)
		e = next
	}
}

// acquireLocked finds or creates the entry for (device, firstBlockID,
// count), evicting the least-recently-released zero-reservation entry
// if the cache is at capacity, and increments its reservation count.
func (c *Cache) acquireLocked(device blockdev.BlockDevice, firstBlockID, count uint32) (*entry, iocommon.Errno) {
	k := key{device, firstBlockID}
	if e, ok := c.entries[k]; ok {
		if e.reserved == 0 {
			c.evictable.Remove(e.evictElem)
			e.evictElem = nil
		}
		e.reserved++
		c.stats.hits++
		return e, iocommon.OK
	}

	c.stats.misses++
	if len(c.entries) >= c.capacity {
		if errno := c.evictOneLocked(); errno != iocommon.OK {
			return nil, errno
		}
	}

	e := &entry{
		key:      k,
		count:    count,
		data:     make([]byte, uint64(count)*uint64(device.BlockSize())),
		reserved: 1,
	}
	c.entries[k] = e
	return e, iocommon.OK
}

// evictOneLocked drops the oldest clean, zero-reservation entry. A
// dirty entry is never silently written back here; a caller that wants
// its dirty data preserved must Flush before reservations exhaust the
// cache. Returns ENOSPC if no clean, zero-reservation entry exists.
func (c *Cache) evictOneLocked() iocommon.Errno {
	for elem := c.evictable.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value
		if e.dirty {
			continue
		}
		c.evictable.Remove(elem)
		delete(c.entries, e.key)
		c.stats.evictions++
		return iocommon.OK
	}
	return iocommon.ENOSPC
}
