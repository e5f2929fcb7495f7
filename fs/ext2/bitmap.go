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

package ext2

import "github.com/gokernel/gokernel/iocommon"

// acquireBit scans the bitmap block bitmapBlockID for the first zero bit
// among the first validBits bits, flips it, marks the block dirty, and
// returns its index. Per the "acquire scans ... bitmap, finds
// the first zero bit, flips it ... returns the global index".
func (fs *FileSystem) acquireBit(bitmapBlockID uint32, validBits uint32) (uint32, iocommon.Errno) {
	buf, errno := fs.cache.ReadAndReserve(fs.device, bitmapBlockID, 1)
	if errno != iocommon.OK {
		return 0, errno
	}

	for i := uint32(0); i < validBits; i++ {
		byteIdx, bit := i/8, i%8
		if buf[byteIdx]&(1<<bit) == 0 {
			buf[byteIdx] |= 1 << bit
			fs.cache.ReleaseReservation(fs.device, bitmapBlockID, true)
			return i, iocommon.OK
		}
	}
	fs.cache.ReleaseReservation(fs.device, bitmapBlockID, false)
	return 0, iocommon.ENOSPC
}

// releaseBit clears bit localIndex in bitmapBlockID. Failure to read
// the bitmap here is fatal (the caller has no sane recovery: the
// allocation it's trying to free becomes unrecoverable).
func (fs *FileSystem) releaseBit(bitmapBlockID uint32, localIndex uint32) iocommon.Errno {
	buf, errno := fs.cache.ReadAndReserve(fs.device, bitmapBlockID, 1)
	if errno != iocommon.OK {
		panic("ext2: fatal: could not read bitmap block on release")
	}
	byteIdx, bit := localIndex/8, localIndex%8
	buf[byteIdx] &^= 1 << bit
	fs.cache.ReleaseReservation(fs.device, bitmapBlockID, true)
	return iocommon.OK
}

// AllocateInode reserves the first free inode across the group
// descriptors in order, returning its global 1-based index.
func (fs *FileSystem) AllocateInode() (uint32, iocommon.Errno) {
	for gi := range fs.groups {
		g := &fs.groups[gi]
		if g.FreeInodesCount == 0 {
			continue
		}
		localIdx, errno := fs.acquireBit(g.InodeBitmap, fs.sb.InodesPerGroup)
		if errno == iocommon.ENOSPC {
			continue
		}
		if errno != iocommon.OK {
			return 0, errno
		}
		g.FreeInodesCount--
		fs.sb.FreeInodesCount--
		fs.markMetadataDirty()
		return uint32(gi)*fs.sb.InodesPerGroup + localIdx + 1, iocommon.OK
	}
	return 0, iocommon.ENOSPC
}

// FreeInode releases inodeIndex back to its group's bitmap.
func (fs *FileSystem) FreeInode(inodeIndex uint32) iocommon.Errno {
	gi, local := (inodeIndex-1)/fs.sb.InodesPerGroup, (inodeIndex-1)%fs.sb.InodesPerGroup
	if int(gi) >= len(fs.groups) {
		return iocommon.EINVAL
	}
	errno := fs.releaseBit(fs.groups[gi].InodeBitmap, local)
	if errno != iocommon.OK {
		return errno
	}
	fs.groups[gi].FreeInodesCount++
	fs.sb.FreeInodesCount++
	fs.markMetadataDirty()
	return iocommon.OK
}

// AllocateBlock reserves the first free data block across the group
// descriptors in order, returning its global block id.
func (fs *FileSystem) AllocateBlock() (uint32, iocommon.Errno) {
	for gi := range fs.groups {
		g := &fs.groups[gi]
		if g.FreeBlocksCount == 0 {
			continue
		}
		localIdx, errno := fs.acquireBit(g.BlockBitmap, fs.sb.BlocksPerGroup)
		if errno == iocommon.ENOSPC {
			continue
		}
		if errno != iocommon.OK {
			return 0, errno
		}
		g.FreeBlocksCount--
		fs.sb.FreeBlocksCount--
		fs.markMetadataDirty()
		blockID := fs.sb.FirstDataBlock + uint32(gi)*fs.sb.BlocksPerGroup + localIdx
		return blockID, iocommon.OK
	}
	return 0, iocommon.ENOSPC
}

// FreeBlock releases blockID back to its group's bitmap.
func (fs *FileSystem) FreeBlock(blockID uint32) iocommon.Errno {
	rel := blockID - fs.sb.FirstDataBlock
	gi, local := rel/fs.sb.BlocksPerGroup, rel%fs.sb.BlocksPerGroup
	if int(gi) >= len(fs.groups) {
		return iocommon.EINVAL
	}
	errno := fs.releaseBit(fs.groups[gi].BlockBitmap, local)
	if errno != iocommon.OK {
		return errno
	}
	fs.groups[gi].FreeBlocksCount++
	fs.sb.FreeBlocksCount++
	fs.markMetadataDirty()
	return iocommon.OK
}
