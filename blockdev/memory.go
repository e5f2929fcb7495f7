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

package blockdev

import (
	"time"

	"github.com/gokernel/gokernel/iocommon"
)

// MemoryDevice is an in-memory BlockDevice test double: a flat byte
// slice standing in for a real storage medium, with an optional
// simulated per-operation latency so callers that care about device
// timing have something non-zero to exercise in tests.
type MemoryDevice struct {
	blockSize  uint32
	blockCount uint32
	data       []byte
	latency    time.Duration
}

// NewMemoryDevice allocates a zero-filled in-memory device of blockCount
// blocks, each blockSize bytes.
func NewMemoryDevice(blockSize, blockCount uint32) *MemoryDevice {
	return &MemoryDevice{
		blockSize:  blockSize,
		blockCount: blockCount,
		data:       make([]byte, uint64(blockSize)*uint64(blockCount)),
	}
}

// SetLatency configures a fixed simulated delay injected before every
// read/write, for tests that exercise timing or scheduler interleaving
// against a slow device.
func (d *MemoryDevice) SetLatency(latency time.Duration) {
	d.latency = latency
}

func (d *MemoryDevice) simulateLatency() {
	if d.latency > 0 {
		time.Sleep(d.latency)
	}
}

func (d *MemoryDevice) ReadBlocks(firstBlockID, count uint32, dst []byte) iocommon.Errno {
	if errno := boundsCheck(d, firstBlockID, count, len(dst)); errno != iocommon.OK {
		return errno
	}
	d.simulateLatency()
	start := uint64(firstBlockID) * uint64(d.blockSize)
	copy(dst, d.data[start:start+uint64(len(dst))])
	return iocommon.OK
}

func (d *MemoryDevice) WriteBlocks(firstBlockID, count uint32, src []byte) iocommon.Errno {
	if errno := boundsCheck(d, firstBlockID, count, len(src)); errno != iocommon.OK {
		return errno
	}
	d.simulateLatency()
	start := uint64(firstBlockID) * uint64(d.blockSize)
	copy(d.data[start:start+uint64(len(src))], src)
	return iocommon.OK
}

func (d *MemoryDevice) BlockSize() uint32  { return d.blockSize }
func (d *MemoryDevice) BlockCount() uint32 { return d.blockCount }

var _ BlockDevice = (*MemoryDevice)(nil)
