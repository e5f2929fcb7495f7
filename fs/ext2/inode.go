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

import (
	"github.com/gokernel/gokernel/iocommon"
	"github.com/gokernel/gokernel/vfs"
)

// Inode is a live, cached view of one on-disk ext2 inode. It implements
// vfs.Node; every mutating method upgrades disk into the authoritative
// copy and marks dirty, the same "dirty once written, flushed once
// released" shape as gcsproxy.MutableContent, except here the object
// itself IS the cache entry rather than a lease wrapping one.
type Inode struct {
	vfs.UnimplementedNode

	fs    *FileSystem
	index uint32
	entry *cachedEntry

	disk  DiskInode
	dirty bool

	rc vfs.ReservationCounter
}

func newInode(fs *FileSystem, index uint32, disk DiskInode, entry *cachedEntry) *Inode {
	n := &Inode{fs: fs, index: index, entry: entry, disk: disk}
	n.rc.Init(n.AfterNodeReservationRelease)
	return n
}

func (n *Inode) Reserve()          { n.rc.Reserve() }
func (n *Inode) Release()          { n.rc.Release() }
func (n *Inode) UsageCount() int   { return n.rc.UsageCount() }
func (n *Inode) GetFileSystem() vfs.FileSystem { return n.fs }

// AfterNodeReservationRelease writes a dirty inode back to the inode
// table and returns it to the bounded cache's available list rather
// than freeing it immediately; eviction happens lazily when the cache
// needs the slot. If the write-back fails the inode stays dirty and
// eviction retries it.
func (n *Inode) AfterNodeReservationRelease() {
	_ = n.flushIfDirty()
	n.fs.releaseToAvailable(n.entry)
}

func (n *Inode) GetMode() vfs.Mode {
	switch n.disk.Mode & ModeFmtMask {
	case ModeFmtDir:
		return vfs.ModeDirectory
	case ModeFmtSymlink:
		return vfs.ModeSymlink
	case ModeFmtChrdev:
		return vfs.ModeCharDevice
	default:
		return vfs.ModeRegular
	}
}

func (n *Inode) GetSize() int64 { return n.disk.Size() }

func (n *Inode) Status() (vfs.Stat, iocommon.Errno) {
	return vfs.Stat{
		Ino:   uint64(n.index),
		Mode:  n.GetMode(),
		Size:  n.disk.Size(),
		Links: uint32(n.disk.LinksCount),
	}, iocommon.OK
}

func (n *Inode) Open(int) iocommon.Errno { return iocommon.OK }

func (n *Inode) GetOpenFileDescriptionOffsetRepositionPolicy() vfs.RepositionPolicy {
	return vfs.RepositionFreely
}

// blockPointerFanout is N, the number of block pointers that fit in
// one indirection block.
func (fs *FileSystem) blockPointerFanout() uint32 { return fs.sb.BlockSize() / 4 }

// maxAddressableBlocks is the largest logical block index one beyond the
// last block representable via direct + single + double + triple
// indirection, which in turn bounds FILE_MAX_SIZE for this filesystem.
func (fs *FileSystem) maxAddressableBlocks() uint64 {
	n := uint64(fs.blockPointerFanout())
	return uint64(DirectBlockCount) + n + n*n + n*n*n
}

func (fs *FileSystem) maxFileSize() int64 {
	max := fs.maxAddressableBlocks() * uint64(fs.sb.BlockSize())
	if max > 1<<62 {
		max = 1 << 62
	}
	return int64(max)
}

// getInodeDataBlockId resolves logical block k to a physical block id, per
// the direct/single/double/triple-indirect walk. allocate
// requests that missing indirection (and leaf) blocks be allocated and
// zeroed along the way; otherwise a hole reports ENOENT.
func (n *Inode) getInodeDataBlockId(k uint64, allocate bool) (uint32, iocommon.Errno) {
	N := uint64(n.fs.blockPointerFanout())

	if k < DirectBlockCount {
		return n.resolveDirect(uint32(k), allocate)
	}
	k -= DirectBlockCount

	if k < N {
		return n.resolveIndirect(IndSingle, 1, k, allocate)
	}
	k -= N

	if k < N*N {
		return n.resolveIndirect(IndDouble, 2, k, allocate)
	}
	k -= N * N

	if k < N*N*N {
		return n.resolveIndirect(IndTriple, 3, k, allocate)
	}
	return 0, iocommon.EFBIG
}

func (n *Inode) resolveDirect(slot uint32, allocate bool) (uint32, iocommon.Errno) {
	id := n.disk.Block[slot]
	if id != 0 {
		return id, iocommon.OK
	}
	if !allocate {
		return 0, iocommon.ENOENT
	}
	newID, errno := n.fs.AllocateBlock()
	if errno != iocommon.OK {
		return 0, errno
	}
	if errno := n.zeroBlock(newID); errno != iocommon.OK {
		n.fs.FreeBlock(newID)
		return 0, errno
	}
	n.disk.Block[slot] = newID
	n.markDirty()
	return newID, iocommon.OK
}

// resolveIndirect walks depth levels of indirection rooted at
// Block[rootSlot] to reach the k-th leaf block (k already relative to
// that root's address space), allocating and zeroing any missing
// indirection or leaf block along the way when allocate is set.
func (n *Inode) resolveIndirect(rootSlot int, depth int, k uint64, allocate bool) (uint32, iocommon.Errno) {
	N := uint64(n.fs.blockPointerFanout())

	rootID := n.disk.Block[rootSlot]
	if rootID == 0 {
		if !allocate {
			return 0, iocommon.ENOENT
		}
		newID, errno := n.fs.AllocateBlock()
		if errno != iocommon.OK {
			return 0, errno
		}
		if errno := n.zeroBlock(newID); errno != iocommon.OK {
			n.fs.FreeBlock(newID)
			return 0, errno
		}
		n.disk.Block[rootSlot] = newID
		n.markDirty()
		rootID = newID
	}

	return n.walkIndirectionLevel(rootID, depth, k, N, allocate)
}

// walkIndirectionLevel descends one indirection block at a time. At
// depth==1 the block holds leaf (data) block ids directly; at higher
// depths it holds ids of further indirection blocks each covering
// N^(depth-1) leaves.
func (n *Inode) walkIndirectionLevel(blockID uint32, depth int, k uint64, N uint64, allocate bool) (uint32, iocommon.Errno) {
	span := uint64(1)
	for i := 1; i < depth; i++ {
		span *= N
	}
	slot := k / span
	rem := k % span

	buf, errno := n.fs.cache.ReadAndReserve(n.fs.device, blockID, 1)
	if errno != iocommon.OK {
		return 0, errno
	}
	childID := readU32(buf, int(slot)*4)

	if depth == 1 {
		if childID != 0 {
			n.fs.cache.ReleaseReservation(n.fs.device, blockID, false)
			return childID, iocommon.OK
		}
		if !allocate {
			n.fs.cache.ReleaseReservation(n.fs.device, blockID, false)
			return 0, iocommon.ENOENT
		}
		newID, errno := n.fs.AllocateBlock()
		if errno != iocommon.OK {
			n.fs.cache.ReleaseReservation(n.fs.device, blockID, false)
			return 0, errno
		}
		if errno := n.zeroBlock(newID); errno != iocommon.OK {
			n.fs.FreeBlock(newID)
			n.fs.cache.ReleaseReservation(n.fs.device, blockID, false)
			return 0, errno
		}
		writeU32(buf, int(slot)*4, newID)
		n.fs.cache.ReleaseReservation(n.fs.device, blockID, true)
		return newID, iocommon.OK
	}

	if childID == 0 {
		if !allocate {
			n.fs.cache.ReleaseReservation(n.fs.device, blockID, false)
			return 0, iocommon.ENOENT
		}
		newID, errno := n.fs.AllocateBlock()
		if errno != iocommon.OK {
			n.fs.cache.ReleaseReservation(n.fs.device, blockID, false)
			return 0, errno
		}
		if errno := n.zeroBlock(newID); errno != iocommon.OK {
			n.fs.FreeBlock(newID)
			n.fs.cache.ReleaseReservation(n.fs.device, blockID, false)
			return 0, errno
		}
		writeU32(buf, int(slot)*4, newID)
		childID = newID
		n.fs.cache.ReleaseReservation(n.fs.device, blockID, true)
	} else {
		n.fs.cache.ReleaseReservation(n.fs.device, blockID, false)
	}

	return n.walkIndirectionLevel(childID, depth-1, rem, N, allocate)
}

func (n *Inode) zeroBlock(blockID uint32) iocommon.Errno {
	buf, errno := n.fs.cache.Reserve(n.fs.device, blockID, 1)
	if errno != iocommon.OK {
		return errno
	}
	for i := range buf {
		buf[i] = 0
	}
	n.fs.cache.ReleaseReservation(n.fs.device, blockID, true)
	return iocommon.OK
}

func readU32(buf []byte, off int) uint32 {
	return uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
}

func writeU32(buf []byte, off int, v uint32) {
	buf[off] = byte(v)
	buf[off+1] = byte(v >> 8)
	buf[off+2] = byte(v >> 16)
	buf[off+3] = byte(v >> 24)
}

// calculateDataBlockCountFromSize returns the total block count needed to
// represent size bytes, including every indirection metadata block the
// addressing scheme requires
func (fs *FileSystem) calculateDataBlockCountFromSize(size int64) uint64 {
	if size <= 0 {
		return 0
	}
	blockSize := uint64(fs.sb.BlockSize())
	dataBlocks := (uint64(size) + blockSize - 1) / blockSize
	N := uint64(fs.blockPointerFanout())

	if dataBlocks <= DirectBlockCount {
		return dataBlocks
	}
	rem := dataBlocks - DirectBlockCount

	if rem <= N {
		return dataBlocks + 1 // + single-indirect root
	}
	rem -= N

	if rem <= N*N {
		leafTables := ceilDiv64(rem, N)
		return dataBlocks + 1 /* double root */ + leafTables
	}
	rem -= N * N

	doubleMeta := N + 1 // N fully-used single-indirect tables, plus the double root
	tripleLeafTables := ceilDiv64(rem, N)
	tripleMidTables := ceilDiv64(tripleLeafTables, N)
	return dataBlocks + 1 /* triple root */ + doubleMeta + tripleLeafTables + tripleMidTables
}

func ceilDiv64(a, b uint64) uint64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

func (n *Inode) markDirty() { n.dirty = true }

// flushIfDirty writes the in-memory DiskInode back to its inode-table slot
// if it has been modified since the last flush.
func (n *Inode) flushIfDirty() iocommon.Errno {
	if !n.dirty {
		return iocommon.OK
	}
	if errno := n.fs.writeDiskInode(n.index, &n.disk); errno != iocommon.OK {
		return errno
	}
	n.dirty = false
	return iocommon.OK
}

// Read copies up to len(buf) bytes starting at offset, reading zeros for
// any range within the current size that has no allocated block (a
// ChangeFileSize extension leaves such holes; Write never does).
func (n *Inode) Read(offset int64, buf []byte) (int, iocommon.Errno) {
	size := n.disk.Size()
	if offset >= size {
		return 0, iocommon.OK
	}
	if int64(len(buf)) > size-offset {
		buf = buf[:size-offset]
	}

	blockSize := int64(n.fs.sb.BlockSize())
	total := 0
	for total < len(buf) {
		k := uint64((offset + int64(total)) / blockSize)
		within := int((offset + int64(total)) % blockSize)
		want := len(buf) - total
		if want > int(blockSize)-within {
			want = int(blockSize) - within
		}

		blockID, errno := n.getInodeDataBlockId(k, false)
		if errno == iocommon.ENOENT {
			for i := 0; i < want; i++ {
				buf[total+i] = 0
			}
			total += want
			continue
		}
		if errno != iocommon.OK {
			return total, errno
		}

		src, errno := n.fs.cache.ReadAndReserve(n.fs.device, blockID, 1)
		if errno != iocommon.OK {
			return total, errno
		}
		copy(buf[total:total+want], src[within:within+want])
		n.fs.cache.ReleaseReservation(n.fs.device, blockID, false)
		total += want
	}
	return total, iocommon.OK
}

// Write copies buf to offset, zero-filling any gap between the current
// size and offset (doWrite with a nil source), so that
// every logical block from the old size up to the new size ends up
// allocated — a write never leaves holes behind it. A write that would push the size past this
// filesystem's FILE_MAX_SIZE fails with EFBIG before any side effect.
func (n *Inode) Write(offset int64, buf []byte) (int, iocommon.Errno) {
	newSize := offset + int64(len(buf))
	if newSize > n.fs.maxFileSize() || (newSize == n.fs.maxFileSize() && len(buf) > 0) {
		return 0, iocommon.EFBIG
	}

	if gap := offset - n.disk.Size(); gap > 0 {
		if _, errno := n.doWrite(n.disk.Size(), nil, int(gap)); errno != iocommon.OK {
			return 0, errno
		}
	}

	total, errno := n.doWrite(offset, buf, len(buf))
	if errno != iocommon.OK {
		return total, errno
	}

	if newSize > n.disk.Size() {
		n.disk.SetSize(newSize)
	}
	n.disk.BlocksLo = uint32(n.fs.calculateDataBlockCountFromSize(n.disk.Size()) * uint64(n.fs.sb.BlockSize()) / 512)
	n.markDirty()
	return total, iocommon.OK
}

// doWrite writes length bytes starting at offset, copying from src when
// non-nil or zero-filling when src is nil, allocating data (and
// indirection) blocks as needed. It does not touch the inode's size or
// dirty bit; callers own that bookkeeping.
func (n *Inode) doWrite(offset int64, src []byte, length int) (int, iocommon.Errno) {
	blockSize := int64(n.fs.sb.BlockSize())
	total := 0
	for total < length {
		k := uint64((offset + int64(total)) / blockSize)
		within := int((offset + int64(total)) % blockSize)
		want := length - total
		if want > int(blockSize)-within {
			want = int(blockSize) - within
		}

		blockID, errno := n.getInodeDataBlockId(k, true)
		if errno != iocommon.OK {
			return total, errno
		}

		dst, errno := n.fs.cache.Reserve(n.fs.device, blockID, 1)
		if errno != iocommon.OK {
			return total, errno
		}
		if src != nil {
			copy(dst[within:within+want], src[total:total+want])
		} else {
			for i := 0; i < want; i++ {
				dst[within+i] = 0
			}
		}
		n.fs.cache.ReleaseReservation(n.fs.device, blockID, true)
		total += want
	}
	return total, iocommon.OK
}

// ChangeFileSize truncates or extends the inode to size bytes. Extension
// is handled the same as a write of zero bytes past the current end (the
// gap is logical, no blocks are allocated until actually written);
// truncation releases any data/indirection blocks beyond the new size.
func (n *Inode) ChangeFileSize(size int64) iocommon.Errno {
	if size > n.fs.maxFileSize() {
		return iocommon.EFBIG
	}
	if size >= n.disk.Size() {
		n.disk.SetSize(size)
		n.markDirty()
		return iocommon.OK
	}

	blockSize := int64(n.fs.sb.BlockSize())
	oldBlocks := (n.disk.Size() + blockSize - 1) / blockSize
	newBlocks := (size + blockSize - 1) / blockSize
	for k := newBlocks; k < oldBlocks; k++ {
		blockID, errno := n.getInodeDataBlockId(uint64(k), false)
		if errno == iocommon.ENOENT {
			continue
		}
		if errno != iocommon.OK {
			return errno
		}
		n.fs.FreeBlock(blockID)
	}
	n.disk.SetSize(size)
	n.disk.BlocksLo = uint32(n.fs.calculateDataBlockCountFromSize(size) * uint64(blockSize) / 512)
	n.markDirty()
	return iocommon.OK
}
