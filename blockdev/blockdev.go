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

// Package blockdev defines the fixed-block-size storage abstraction the
// ext2 driver and block cache manager sit on top of: a small interface
// with one in-memory test double and one real backing implementation,
// so the layers above never depend on how bytes actually reach disk.
package blockdev

import "github.com/gokernel/gokernel/iocommon"

// BlockDevice reads and writes fixed-size blocks by block ID.
type BlockDevice interface {
	ReadBlocks(firstBlockID, count uint32, dst []byte) iocommon.Errno
	WriteBlocks(firstBlockID, count uint32, src []byte) iocommon.Errno
	BlockSize() uint32
	BlockCount() uint32
}

// boundsCheck is shared by every implementation: firstBlockID+count must
// stay within the device, and dst/src must be sized to exactly count
// blocks.
func boundsCheck(dev BlockDevice, firstBlockID, count uint32, bufLen int) iocommon.Errno {
	if count == 0 {
		return iocommon.EINVAL
	}
	if firstBlockID+count < firstBlockID || firstBlockID+count > dev.BlockCount() {
		return iocommon.EINVAL
	}
	if uint32(bufLen) != count*dev.BlockSize() {
		return iocommon.EINVAL
	}
	return iocommon.OK
}
