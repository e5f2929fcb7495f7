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
	"github.com/gokernel/gokernel/blockcache"
	"github.com/gokernel/gokernel/blockdev"
	"github.com/gokernel/gokernel/container"
	"github.com/gokernel/gokernel/iocommon"
	"github.com/google/btree"
)

// RootInodeIndex is the well-known index of the root directory, per the
// ext2 on-disk convention (EXT2_ROOT_INO).
const RootInodeIndex = 2

// cachedEntry is one slot in the bounded inode cache: an inode index paired
// with its live *Inode, and the list element that tracks it while its
// usage count is zero.
type cachedEntry struct {
	index uint32
	node  *Inode
	avail *container.Element[*cachedEntry]
}

// FileSystem is the ext2 driver's mount-time state: the block device it
// sits on, the shared block cache, an in-memory mirror of the superblock
// and group descriptor table, and a bounded cache mapping inode index to
// live *Inode Ext2FileSystem.
//
// Grounded on gcsproxy's directory/object caches, which hold a bounded
// in-memory view over a much larger backing store and flush on release;
// the index-to-*Inode map here uses github.com/google/btree the way
// SPEC_FULL.md's DOMAIN STACK commits to, rather than a plain map, so a
// future range-scan (e.g. "dirty inodes below index N") has somewhere to
// live without restructuring the cache.
type FileSystem struct {
	mountName string
	device    blockdev.BlockDevice
	cache     *blockcache.Cache

	sb            Superblock
	groups        []GroupDescriptor
	metadataDirty bool

	maxCachedInodes int
	tree            *btree.BTreeG[*cachedEntry]
	available       *container.List[*cachedEntry]
}

func (fs *FileSystem) Name() string { return fs.mountName }

func lessCachedEntry(a, b *cachedEntry) bool { return a.index < b.index }

// Mount reads and validates the superblock and group descriptor table from
// device, rejecting anything that isn't a rev-1 ext2 image with exactly
// the required/forbidden feature flags this driver supports.
func Mount(name string, device blockdev.BlockDevice, cache *blockcache.Cache, maxCachedInodes int) (*FileSystem, iocommon.Errno) {
	fs := &FileSystem{
		mountName:       name,
		device:          device,
		cache:           cache,
		maxCachedInodes: maxCachedInodes,
		tree:            btree.NewG(32, lessCachedEntry),
		available:       container.New[*cachedEntry](),
	}

	if errno := fs.loadSuperblock(); errno != iocommon.OK {
		return nil, errno
	}
	if errno := fs.validateSuperblock(); errno != iocommon.OK {
		return nil, errno
	}
	if errno := fs.loadGroupDescriptors(); errno != iocommon.OK {
		return nil, errno
	}
	return fs, iocommon.OK
}

// superblockBlockID returns the block holding the superblock: block 1 for
// a 1024-byte block size (the superblock occupies block 0 otherwise not
// possible since offset 1024 would overlap block 0), else block 0 for
// larger block sizes where byte 1024 still falls inside the first block.
func superblockBlockID(blockSize uint32) uint32 {
	if blockSize == 1024 {
		return 1
	}
	return 0
}

func (fs *FileSystem) loadSuperblock() iocommon.Errno {
	// The logical block size isn't known yet, so probe using the
	// device's own block size: the superblock lives in the device block
	// that contains byte offset 1024 (block 1 when the device's block
	// size is exactly 1024, else block 0).
	devBlockSize := fs.device.BlockSize()
	probeBlock := superblockBlockID(devBlockSize)
	probe := make([]byte, devBlockSize)
	if errno := fs.device.ReadBlocks(probeBlock, 1, probe); errno != iocommon.OK {
		return errno
	}
	if devBlockSize == 1024 {
		fs.sb.UnmarshalBinary(probe)
	} else {
		fs.sb.UnmarshalBinary(probe[SuperblockOffsetBytes:])
	}
	return iocommon.OK
}

func (fs *FileSystem) validateSuperblock() iocommon.Errno {
	if fs.sb.Magic != SuperblockMagic {
		return iocommon.EINVAL
	}
	if fs.sb.State != FSStateValid {
		return iocommon.EINVAL
	}
	if fs.sb.RevLevel != RevLevelDynamic {
		return iocommon.EINVAL
	}
	if fs.sb.FeatureIncompat&FeatureIncompatFiletype == 0 {
		return iocommon.EINVAL
	}
	if fs.sb.FeatureROCompat&FeatureROCompatSparseSuper == 0 {
		return iocommon.EINVAL
	}
	if fs.sb.FeatureROCompat&FeatureROCompatLargeFile == 0 {
		return iocommon.EINVAL
	}
	if fs.sb.FeatureCompat&FeatureCompatBTreeDir != 0 {
		return iocommon.EINVAL
	}
	if fs.sb.InodeSize != DiskInodeSize {
		return iocommon.EINVAL
	}
	if fs.sb.BlockSize() > fs.device.BlockSize()*fs.device.BlockCount() {
		return iocommon.EINVAL
	}
	return iocommon.OK
}

// groupDescriptorTableBlock returns the block holding the start of the
// group descriptor table, immediately following the superblock's block.
func (fs *FileSystem) groupDescriptorTableBlock() uint32 {
	return superblockBlockID(fs.sb.BlockSize()) + 1
}

func (fs *FileSystem) loadGroupDescriptors() iocommon.Errno {
	n := fs.sb.GroupCount()
	fs.groups = make([]GroupDescriptor, n)

	const wireSize = groupDescriptorWireSize
	perBlock := fs.sb.BlockSize() / wireSize
	if perBlock == 0 {
		return iocommon.EINVAL
	}
	blocksNeeded := ceilDiv(n, perBlock)

	buf, errno := fs.cache.ReadAndReserve(fs.device, fs.groupDescriptorTableBlock(), blocksNeeded)
	if errno != iocommon.OK {
		return errno
	}
	defer fs.cache.ReleaseReservation(fs.device, fs.groupDescriptorTableBlock(), false)

	for i := uint32(0); i < n; i++ {
		off := i * wireSize
		fs.groups[i].UnmarshalBinary(buf[off : off+wireSize])
	}
	return iocommon.OK
}

// markMetadataDirty flags the superblock/group-descriptor table for
// rewrite at Unmount.
func (fs *FileSystem) markMetadataDirty() { fs.metadataDirty = true }

// Unmount flushes the block cache and, if the superblock or group
// descriptors changed, rewrites them to the primary location plus the
// sparse-super backup groups (0, 1, and powers of 3/5/7), per its
// durability rule.
func (fs *FileSystem) Unmount() iocommon.Errno {
	if fs.metadataDirty {
		if errno := fs.writeMetadataCopies(); errno != iocommon.OK {
			return errno
		}
		fs.metadataDirty = false
	}
	return fs.cache.Flush()
}

func (fs *FileSystem) writeMetadataCopies() iocommon.Errno {
	result := iocommon.OK
	for g := uint32(0); g < fs.sb.GroupCount(); g++ {
		if !hasSuperblockBackup(g) {
			continue
		}
		if errno := fs.writeMetadataCopyForGroup(g); errno != iocommon.OK {
			result = iocommon.First(result, errno)
		}
	}
	return result
}

// hasSuperblockBackup reports whether group g carries a sparse-super
// backup copy of the superblock and group descriptor table: group 0 (the
// primary), group 1, and groups whose index is a power of 3, 5, or 7.
func hasSuperblockBackup(g uint32) bool {
	if g == 0 || g == 1 {
		return true
	}
	return isPowerOf(g, 3) || isPowerOf(g, 5) || isPowerOf(g, 7)
}

func isPowerOf(n, base uint32) bool {
	if n < base {
		return false
	}
	for n%base == 0 {
		n /= base
	}
	return n == 1
}

func (fs *FileSystem) writeMetadataCopyForGroup(g uint32) iocommon.Errno {
	sbBlock := fs.sb.FirstDataBlock + g*fs.sb.BlocksPerGroup
	sbOff := 0
	if g == 0 && fs.sb.BlockSize() != 1024 {
		sbOff = SuperblockOffsetBytes
	}

	sbBuf, errno := fs.cache.ReadAndReserve(fs.device, sbBlock, 1)
	if errno != iocommon.OK {
		return errno
	}
	fs.sb.MarshalBinary(sbBuf[sbOff:min(len(sbBuf), int(fs.sb.BlockSize()))])
	fs.cache.ReleaseReservation(fs.device, sbBlock, true)

	const wireSize = groupDescriptorWireSize
	perBlock := fs.sb.BlockSize() / wireSize
	blocksNeeded := ceilDiv(fs.sb.GroupCount(), perBlock)
	gdBlock := sbBlock + 1
	gdBuf, errno := fs.cache.ReadAndReserve(fs.device, gdBlock, blocksNeeded)
	if errno != iocommon.OK {
		return errno
	}
	for i := range fs.groups {
		off := uint32(i) * wireSize
		fs.groups[i].MarshalBinary(gdBuf[off : off+wireSize])
	}
	fs.cache.ReleaseReservation(fs.device, gdBlock, true)
	return iocommon.OK
}

// getByIndex returns the *Inode for inodeIndex, reserving it, loading it
// from the inode table on a cache miss and evicting the least-recently-
// available entry if the cache is at capacity.
func (fs *FileSystem) getByIndex(index uint32) (*Inode, iocommon.Errno) {
	probe := &cachedEntry{index: index}
	if item, ok := fs.tree.Get(probe); ok {
		if item.node.UsageCount() == 0 {
			fs.available.Remove(item.avail)
			item.avail = nil
		}
		item.node.Reserve()
		return item.node, iocommon.OK
	}

	disk, errno := fs.readDiskInode(index)
	if errno != iocommon.OK {
		return nil, errno
	}

	if fs.tree.Len() >= fs.maxCachedInodes {
		if errno := fs.evictOneInode(); errno != iocommon.OK {
			return nil, errno
		}
	}

	entry := &cachedEntry{index: index}
	node := newInode(fs, index, disk, entry)
	entry.node = node
	fs.tree.ReplaceOrInsert(entry)
	node.Reserve()
	return node, iocommon.OK
}

// releaseToAvailable is called by an *Inode's AfterNodeReservationRelease
// once its usage count returns to zero and its dirty state has been
// written back; it stays cached (and eligible for eviction) rather than
// being dropped immediately.
func (fs *FileSystem) releaseToAvailable(entry *cachedEntry) {
	entry.avail = fs.available.PushBack(entry)
}

func (fs *FileSystem) evictOneInode() iocommon.Errno {
	elem := fs.available.Front()
	if elem == nil {
		return iocommon.ENOSPC
	}
	entry := elem.Value
	if errno := entry.node.flushIfDirty(); errno != iocommon.OK {
		return errno
	}
	fs.available.Remove(elem)
	fs.tree.Delete(entry)
	return iocommon.OK
}

// inodeTableLocation returns the group index and inode-table-relative
// offset for a 1-based inode index.
func (fs *FileSystem) inodeTableLocation(index uint32) (group uint32, offsetInGroup uint32) {
	zero := index - 1
	return zero / fs.sb.InodesPerGroup, zero % fs.sb.InodesPerGroup
}

func (fs *FileSystem) readDiskInode(index uint32) (DiskInode, iocommon.Errno) {
	group, local := fs.inodeTableLocation(index)
	if int(group) >= len(fs.groups) {
		return DiskInode{}, iocommon.EINVAL
	}
	byteOff := int64(local) * int64(fs.sb.InodeSize)
	blockOff := uint32(byteOff) / fs.sb.BlockSize()
	inBlock := uint32(byteOff) % fs.sb.BlockSize()
	blockID := fs.groups[group].InodeTable + blockOff

	buf, errno := fs.cache.ReadAndReserve(fs.device, blockID, 1)
	if errno != iocommon.OK {
		return DiskInode{}, errno
	}
	defer fs.cache.ReleaseReservation(fs.device, blockID, false)

	var disk DiskInode
	disk.UnmarshalBinary(buf[inBlock : inBlock+DiskInodeSize])
	return disk, iocommon.OK
}

func (fs *FileSystem) writeDiskInode(index uint32, disk *DiskInode) iocommon.Errno {
	group, local := fs.inodeTableLocation(index)
	if int(group) >= len(fs.groups) {
		return iocommon.EINVAL
	}
	byteOff := int64(local) * int64(fs.sb.InodeSize)
	blockOff := uint32(byteOff) / fs.sb.BlockSize()
	inBlock := uint32(byteOff) % fs.sb.BlockSize()
	blockID := fs.groups[group].InodeTable + blockOff

	buf, errno := fs.cache.ReadAndReserve(fs.device, blockID, 1)
	if errno != iocommon.OK {
		return errno
	}
	disk.MarshalBinary(buf[inBlock : inBlock+DiskInodeSize])
	fs.cache.ReleaseReservation(fs.device, blockID, true)
	return iocommon.OK
}

// Root returns the filesystem's root directory inode, reserved.
func (fs *FileSystem) Root() (*Inode, iocommon.Errno) {
	return fs.getByIndex(RootInodeIndex)
}

// Format lays a fresh single-block-group ext2 image across the whole of
// device (small devices/test images don't need more than one group) and
// mounts it, pre-populating the root directory with "." and "..", per
// the "freshly formatted image" scenario.
func Format(name string, device blockdev.BlockDevice, cache *blockcache.Cache, maxCachedInodes int, inodesCount uint32) (*FileSystem, iocommon.Errno) {
	blockSize := device.BlockSize()
	totalBlocks := device.BlockCount()

	sbBlock := superblockBlockID(blockSize)
	gdBlock := sbBlock + 1
	const gdWireSize = groupDescriptorWireSize
	gdBlocks := ceilDiv(1, blockSize/gdWireSize)
	if gdBlocks == 0 {
		gdBlocks = 1
	}

	blockBitmapBlock := gdBlock + gdBlocks
	inodeBitmapBlock := blockBitmapBlock + 1
	inodeTableBlock := inodeBitmapBlock + 1
	inodeTableBlocks := ceilDiv(inodesCount*DiskInodeSize, blockSize)
	firstDataBlock := inodeTableBlock + inodeTableBlocks

	if firstDataBlock >= totalBlocks {
		return nil, iocommon.ENOSPC
	}

	sb := Superblock{
		InodesCount:         inodesCount,
		BlocksCount:         totalBlocks,
		FreeBlocksCount:     totalBlocks - firstDataBlock,
		FreeInodesCount:     inodesCount - 1, // root already allocated
		FirstDataBlock:      sbBlock,
		LogBlockSize:        logBlockSize(blockSize),
		BlocksPerGroup:      totalBlocks,
		InodesPerGroup:      inodesCount,
		Magic:               SuperblockMagic,
		State:               FSStateValid,
		RevLevel:            RevLevelDynamic,
		FirstIno:            RootInodeIndex + 1,
		InodeSize:           DiskInodeSize,
		FeatureIncompat:     FeatureIncompatFiletype,
		FeatureROCompat:     FeatureROCompatSparseSuper | FeatureROCompatLargeFile,
	}
	group := GroupDescriptor{
		BlockBitmap:     blockBitmapBlock,
		InodeBitmap:     inodeBitmapBlock,
		InodeTable:      inodeTableBlock,
		FreeBlocksCount: uint16(sb.FreeBlocksCount),
		FreeInodesCount: uint16(sb.FreeInodesCount),
		UsedDirsCount:   1,
	}

	if errno := zeroBlockRange(device, 0, firstDataBlock); errno != iocommon.OK {
		return nil, errno
	}

	sbBuf := make([]byte, blockSize)
	if blockSize == 1024 {
		sb.MarshalBinary(sbBuf)
	} else {
		sb.MarshalBinary(sbBuf[SuperblockOffsetBytes:])
	}
	if errno := device.WriteBlocks(sbBlock, 1, sbBuf); errno != iocommon.OK {
		return nil, errno
	}

	gdBuf := make([]byte, gdBlocks*blockSize)
	group.MarshalBinary(gdBuf[:gdWireSize])
	if errno := device.WriteBlocks(gdBlock, gdBlocks, gdBuf); errno != iocommon.OK {
		return nil, errno
	}

	// Mark inode 1 (reserved) and inode 2 (root) used in the inode bitmap.
	inodeBitmapBuf := make([]byte, blockSize)
	inodeBitmapBuf[0] = 0x03
	if errno := device.WriteBlocks(inodeBitmapBlock, 1, inodeBitmapBuf); errno != iocommon.OK {
		return nil, errno
	}
	// Mark the superblock through the inode table used; bit i of the
	// block bitmap stands for block FirstDataBlock+i.
	blockBitmapBuf := make([]byte, blockSize)
	for b := uint32(0); b < firstDataBlock-sbBlock; b++ {
		blockBitmapBuf[b/8] |= 1 << (b % 8)
	}
	if errno := device.WriteBlocks(blockBitmapBlock, 1, blockBitmapBuf); errno != iocommon.OK {
		return nil, errno
	}

	rootDisk := DiskInode{Mode: ModeFmtDir, LinksCount: 2}
	inodeTableBuf := make([]byte, inodeTableBlocks*blockSize)
	rootDisk.MarshalBinary(inodeTableBuf[(RootInodeIndex-1)*DiskInodeSize:])
	if errno := device.WriteBlocks(inodeTableBlock, inodeTableBlocks, inodeTableBuf); errno != iocommon.OK {
		return nil, errno
	}

	fs, errno := Mount(name, device, cache, maxCachedInodes)
	if errno != iocommon.OK {
		return nil, errno
	}

	root, errno := fs.getByIndex(RootInodeIndex)
	if errno != iocommon.OK {
		return nil, errno
	}
	defer root.Release()
	if errno := root.insertINodeIntoDirectory(".", RootInodeIndex, FTDir); errno != iocommon.OK {
		return nil, errno
	}
	if errno := root.insertINodeIntoDirectory("..", RootInodeIndex, FTDir); errno != iocommon.OK {
		return nil, errno
	}
	return fs, iocommon.OK
}

func logBlockSize(blockSize uint32) uint32 {
	shift := uint32(0)
	for (1024 << shift) < blockSize {
		shift++
	}
	return shift
}

func zeroBlockRange(device blockdev.BlockDevice, first, count uint32) iocommon.Errno {
	if count == 0 {
		return iocommon.OK
	}
	buf := make([]byte, uint64(count)*uint64(device.BlockSize()))
	return device.WriteBlocks(first, count, buf)
}
