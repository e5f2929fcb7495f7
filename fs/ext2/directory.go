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

// readNextLinkedDirectoryEntry scans block-relative byte offset pos within
// a directory's data for the next non-tombstone entry
// It returns the entry, the offset immediately following its rec_len, and
// whether the block (and hence directory, at the caller's discretion) is
// exhausted.
func readNextLinkedDirectoryEntry(block []byte, pos int) (rawDirEntry, int, bool) {
	for pos < len(block) {
		if pos+DirEntryHeaderSize > len(block) {
			return rawDirEntry{}, len(block), true
		}
		e := unmarshalDirEntry(block[pos:])
		if e.RecLen == 0 {
			return rawDirEntry{}, len(block), true
		}
		next := pos + int(e.RecLen)
		if e.Inode == 0 {
			pos = next
			continue
		}
		return e, next, next >= len(block)
	}
	return rawDirEntry{}, pos, true
}

// Walk resolves name against this directory's linked entries, the ONLY
// Node operation every concrete directory must support regardless of
// what else is left unimplemented.
func (n *Inode) Walk(name string, createIfLast bool, mode vfs.Mode) (vfs.Node, bool, iocommon.Errno) {
	if n.GetMode() != vfs.ModeDirectory {
		return nil, false, iocommon.ENOTDIR
	}

	if idx, errno := n.lookup(name); errno == iocommon.OK {
		child, errno := n.fs.getByIndex(idx)
		if errno != iocommon.OK {
			return nil, false, errno
		}
		return child, false, iocommon.OK
	} else if errno != iocommon.ENOENT {
		return nil, false, errno
	}

	if !createIfLast {
		return nil, false, iocommon.ENOENT
	}
	child, errno := n.CreateName(name, mode)
	if errno != iocommon.OK {
		return nil, false, errno
	}
	return child, true, iocommon.OK
}

// lookup returns the inode index bound to name in this directory, or
// ENOENT if absent.
func (n *Inode) lookup(name string) (uint32, iocommon.Errno) {
	blockSize := int64(n.fs.sb.BlockSize())
	numBlocks := (n.disk.Size() + blockSize - 1) / blockSize

	for k := int64(0); k < numBlocks; k++ {
		blockID, errno := n.getInodeDataBlockId(uint64(k), false)
		if errno != iocommon.OK {
			return 0, errno
		}
		buf, errno := n.fs.cache.ReadAndReserve(n.fs.device, blockID, 1)
		if errno != iocommon.OK {
			return 0, errno
		}

		pos := 0
		for pos < len(buf) {
			e, next, done := readNextLinkedDirectoryEntry(buf, pos)
			if e.Inode != 0 && e.Name == name {
				idx := e.Inode
				n.fs.cache.ReleaseReservation(n.fs.device, blockID, false)
				return idx, iocommon.OK
			}
			pos = next
			if done {
				break
			}
		}
		n.fs.cache.ReleaseReservation(n.fs.device, blockID, false)
	}
	return 0, iocommon.ENOENT
}

// insertINodeIntoDirectory links name → childIndex into this directory's
// data: replace a sufficiently large tombstone, split an
// entry whose slack fits the new minimum-aligned record, or extend the
// directory by one block.
func (n *Inode) insertINodeIntoDirectory(name string, childIndex uint32, fileType uint8) iocommon.Errno {
	need := minRecLen(len(name))
	blockSize := int64(n.fs.sb.BlockSize())
	numBlocks := (n.disk.Size() + blockSize - 1) / blockSize

	for k := int64(0); k < numBlocks; k++ {
		blockID, errno := n.getInodeDataBlockId(uint64(k), false)
		if errno != iocommon.OK {
			return errno
		}
		buf, errno := n.fs.cache.Reserve(n.fs.device, blockID, 1)
		if errno != iocommon.OK {
			return errno
		}

		if n.tryInsertIntoBlock(buf, name, childIndex, fileType, need) {
			n.fs.cache.ReleaseReservation(n.fs.device, blockID, true)
			return iocommon.OK
		}
		n.fs.cache.ReleaseReservation(n.fs.device, blockID, false)
	}

	return n.extendWithEntry(name, childIndex, fileType)
}

// tryInsertIntoBlock attempts a tombstone-replace or slack-split insertion
// within one directory data block; it mutates buf in place and returns
// whether it succeeded.
func (n *Inode) tryInsertIntoBlock(buf []byte, name string, childIndex uint32, fileType uint8, need int) bool {
	pos := 0
	for pos+DirEntryHeaderSize <= len(buf) {
		e := unmarshalDirEntry(buf[pos:])
		if e.RecLen == 0 {
			break
		}
		recLen := int(e.RecLen)

		if e.Inode == 0 && recLen >= need {
			entry := rawDirEntry{Inode: childIndex, RecLen: uint16(recLen), NameLen: uint8(len(name)), FileType: fileType, Name: name}
			entry.marshalInto(buf[pos:])
			return true
		}

		used := minRecLen(int(e.NameLen))
		slack := recLen - used
		if e.Inode != 0 && slack >= need {
			shrunk := rawDirEntry{Inode: e.Inode, RecLen: uint16(used), NameLen: e.NameLen, FileType: e.FileType, Name: e.Name}
			shrunk.marshalInto(buf[pos:])
			newEntry := rawDirEntry{Inode: childIndex, RecLen: uint16(slack), NameLen: uint8(len(name)), FileType: fileType, Name: name}
			newEntry.marshalInto(buf[pos+used:])
			return true
		}

		pos += recLen
	}
	return false
}

// extendWithEntry grows the directory by one freshly allocated, zeroed
// block holding a single entry that spans it.
func (n *Inode) extendWithEntry(name string, childIndex uint32, fileType uint8) iocommon.Errno {
	blockSize := n.fs.sb.BlockSize()
	// Directory size is always block-aligned: every block is fully
	// consumed by entries chained to its end via rec_len.
	newK := uint64(n.disk.Size() / int64(blockSize))

	blockID, errno := n.getInodeDataBlockId(newK, true)
	if errno != iocommon.OK {
		return errno
	}
	buf, errno := n.fs.cache.Reserve(n.fs.device, blockID, 1)
	if errno != iocommon.OK {
		return errno
	}
	entry := rawDirEntry{Inode: childIndex, RecLen: uint16(blockSize), NameLen: uint8(len(name)), FileType: fileType, Name: name}
	entry.marshalInto(buf)
	n.fs.cache.ReleaseReservation(n.fs.device, blockID, true)

	newSize := (newK + 1) * uint64(blockSize)
	if int64(newSize) > n.disk.Size() {
		n.disk.SetSize(int64(newSize))
	}
	n.disk.BlocksLo = uint32(n.fs.calculateDataBlockCountFromSize(n.disk.Size()) * uint64(blockSize) / 512)
	n.markDirty()
	return iocommon.OK
}

// removeEntryTombstone zeroes the inode field of name's directory entry,
// turning it into a tombstone eligible for reuse by a later insert.
func (n *Inode) removeEntryTombstone(name string) iocommon.Errno {
	blockSize := int64(n.fs.sb.BlockSize())
	numBlocks := (n.disk.Size() + blockSize - 1) / blockSize

	for k := int64(0); k < numBlocks; k++ {
		blockID, errno := n.getInodeDataBlockId(uint64(k), false)
		if errno != iocommon.OK {
			return errno
		}
		buf, errno := n.fs.cache.Reserve(n.fs.device, blockID, 1)
		if errno != iocommon.OK {
			return errno
		}

		pos := 0
		found := false
		for pos+DirEntryHeaderSize <= len(buf) {
			e := unmarshalDirEntry(buf[pos:])
			if e.RecLen == 0 {
				break
			}
			if e.Inode != 0 && e.Name == name {
				buf[pos] = 0
				buf[pos+1] = 0
				buf[pos+2] = 0
				buf[pos+3] = 0
				found = true
				break
			}
			pos += int(e.RecLen)
		}
		n.fs.cache.ReleaseReservation(n.fs.device, blockID, found)
		if found {
			return iocommon.OK
		}
	}
	return iocommon.ENOENT
}

func modeToFileType(mode vfs.Mode) uint8 {
	switch {
	case mode&vfs.ModeDirectory != 0:
		return FTDir
	case mode&vfs.ModeSymlink != 0:
		return FTSymlink
	case mode&vfs.ModeCharDevice != 0:
		return FTChrdev
	default:
		return FTRegular
	}
}

func fileTypeToMode(ft uint8) vfs.Mode {
	switch ft {
	case FTDir:
		return vfs.ModeDirectory
	case FTSymlink:
		return vfs.ModeSymlink
	case FTChrdev:
		return vfs.ModeCharDevice
	default:
		return vfs.ModeRegular
	}
}

// CreateName creates a new regular (or device/fifo, via mode) inode named
// name in this directory.
func (n *Inode) CreateName(name string, mode vfs.Mode) (vfs.Node, iocommon.Errno) {
	return n.createChild(name, mode, ModeFmtRegular)
}

// CreateDirectory creates a new subdirectory named name, pre-populated
// with "." and ".." and bumping this directory's links_count.
func (n *Inode) CreateDirectory(name string, mode vfs.Mode) (vfs.Node, iocommon.Errno) {
	child, errno := n.createChild(name, mode|vfs.ModeDirectory, ModeFmtDir)
	if errno != iocommon.OK {
		return nil, errno
	}
	childInode := child.(*Inode)

	if errno := childInode.insertINodeIntoDirectory(".", childInode.index, FTDir); errno != iocommon.OK {
		return nil, errno
	}
	if errno := childInode.insertINodeIntoDirectory("..", n.index, FTDir); errno != iocommon.OK {
		return nil, errno
	}
	childInode.disk.LinksCount = 2
	childInode.markDirty()

	n.disk.LinksCount++
	n.markDirty()
	return child, iocommon.OK
}

func (n *Inode) createChild(name string, mode vfs.Mode, diskFmt uint16) (vfs.Node, iocommon.Errno) {
	if n.GetMode() != vfs.ModeDirectory {
		return nil, iocommon.ENOTDIR
	}
	if _, errno := n.lookup(name); errno == iocommon.OK {
		return nil, iocommon.EEXIST
	}

	idx, errno := n.fs.AllocateInode()
	if errno != iocommon.OK {
		return nil, errno
	}

	disk := DiskInode{Mode: diskFmt, LinksCount: 1}
	if errno := n.fs.writeDiskInode(idx, &disk); errno != iocommon.OK {
		n.fs.FreeInode(idx)
		return nil, errno
	}

	if errno := n.insertINodeIntoDirectory(name, idx, modeToFileType(mode)); errno != iocommon.OK {
		n.fs.FreeInode(idx)
		return nil, errno
	}

	return n.fs.getByIndex(idx)
}

// CreateSymbolicLink stores target inline (if it fits in the 60 bytes of
// i_block) or in the first data block
func (n *Inode) CreateSymbolicLink(name, target string) (vfs.Node, iocommon.Errno) {
	child, errno := n.createChild(name, vfs.ModeSymlink, ModeFmtSymlink)
	if errno != iocommon.OK {
		return nil, errno
	}
	childInode := child.(*Inode)

	const inlineCapacity = BlockPointers * 4
	if len(target) <= inlineCapacity {
		raw := make([]byte, inlineCapacity)
		copy(raw, target)
		for i := range childInode.disk.Block {
			childInode.disk.Block[i] = readU32(raw, 4*i)
		}
		childInode.disk.SetSize(int64(len(target)))
		childInode.markDirty()
		return child, iocommon.OK
	}

	if _, errno := childInode.Write(0, []byte(target)); errno != iocommon.OK {
		return nil, errno
	}
	return child, iocommon.OK
}

// MergeWithSymbolicLinkPath reads this symlink's target (inline or from
// its first data block) and composes the merged path the usual
// mergeWithSymbolicLinkPath way.
func (n *Inode) MergeWithSymbolicLinkPath(prefix, suffix string) (string, iocommon.Errno) {
	size := n.disk.Size()
	const inlineCapacity = BlockPointers * 4

	var target string
	if size <= inlineCapacity {
		raw := make([]byte, BlockPointers*4)
		for i, b := range n.disk.Block {
			raw[4*i] = byte(b)
			raw[4*i+1] = byte(b >> 8)
			raw[4*i+2] = byte(b >> 16)
			raw[4*i+3] = byte(b >> 24)
		}
		target = string(raw[:size])
	} else {
		buf := make([]byte, size)
		got, errno := n.Read(0, buf)
		if errno != iocommon.OK {
			return "", errno
		}
		target = string(buf[:got])
	}

	merged := prefix
	if len(target) > 0 && target[0] == '/' {
		merged = target
	} else {
		merged += target
	}
	merged += suffix
	return merged, iocommon.OK
}

// ReleaseName removes a non-directory entry named name, freeing its
// inode's blocks and slot once its link count reaches zero.
func (n *Inode) ReleaseName(name string) iocommon.Errno {
	if n.GetMode() != vfs.ModeDirectory {
		return iocommon.ENOTDIR
	}
	idx, errno := n.lookup(name)
	if errno != iocommon.OK {
		return errno
	}
	child, errno := n.fs.getByIndex(idx)
	if errno != iocommon.OK {
		return errno
	}
	if child.GetMode() == vfs.ModeDirectory {
		child.Release()
		return iocommon.EISDIR
	}

	if errno := n.removeEntryTombstone(name); errno != iocommon.OK {
		child.Release()
		return errno
	}

	child.disk.LinksCount--
	if child.disk.LinksCount == 0 {
		if errno := child.ChangeFileSize(0); errno != iocommon.OK {
			child.Release()
			return errno
		}
		child.markDirty()
		idx := child.index
		child.Release()
		return n.fs.FreeInode(idx)
	}
	child.markDirty()
	child.Release()
	return iocommon.OK
}

// ReleaseDirectory removes an empty subdirectory named name (only "." and
// ".." present)
func (n *Inode) ReleaseDirectory(name string) iocommon.Errno {
	if n.GetMode() != vfs.ModeDirectory {
		return iocommon.ENOTDIR
	}
	idx, errno := n.lookup(name)
	if errno != iocommon.OK {
		return errno
	}
	child, errno := n.fs.getByIndex(idx)
	if errno != iocommon.OK {
		return errno
	}
	if child.GetMode() != vfs.ModeDirectory {
		child.Release()
		return iocommon.ENOTDIR
	}
	if !child.isEmptyDirectory() {
		child.Release()
		return iocommon.ENOTEMPTY
	}

	if errno := n.removeEntryTombstone(name); errno != iocommon.OK {
		child.Release()
		return errno
	}
	n.disk.LinksCount--
	n.markDirty()

	if errno := child.ChangeFileSize(0); errno != iocommon.OK {
		child.Release()
		return errno
	}
	childIdx := child.index
	child.Release()
	return n.fs.FreeInode(childIdx)
}

func (n *Inode) isEmptyDirectory() bool {
	blockSize := int64(n.fs.sb.BlockSize())
	numBlocks := (n.disk.Size() + blockSize - 1) / blockSize

	for k := int64(0); k < numBlocks; k++ {
		blockID, errno := n.getInodeDataBlockId(uint64(k), false)
		if errno != iocommon.OK {
			continue
		}
		buf, errno := n.fs.cache.ReadAndReserve(n.fs.device, blockID, 1)
		if errno != iocommon.OK {
			continue
		}
		pos := 0
		for pos+DirEntryHeaderSize <= len(buf) {
			e := unmarshalDirEntry(buf[pos:])
			if e.RecLen == 0 {
				break
			}
			if e.Inode != 0 && e.Name != "." && e.Name != ".." {
				n.fs.cache.ReleaseReservation(n.fs.device, blockID, false)
				return false
			}
			pos += int(e.RecLen)
		}
		n.fs.cache.ReleaseReservation(n.fs.device, blockID, false)
	}
	return true
}

// GetDirectoryParent returns the ".." target of this directory.
func (n *Inode) GetDirectoryParent() (vfs.Node, iocommon.Errno) {
	idx, errno := n.lookup("..")
	if errno != iocommon.OK {
		return nil, errno
	}
	return n.fs.getByIndex(idx)
}

// ReadDirectoryEntry walks linked entries starting at byte offset.
func (n *Inode) ReadDirectoryEntry(offset int64) (vfs.DirEntry, int64, iocommon.Errno) {
	if n.GetMode() != vfs.ModeDirectory {
		return vfs.DirEntry{}, offset, iocommon.ENOTDIR
	}
	blockSize := int64(n.fs.sb.BlockSize())
	size := n.disk.Size()

	for offset < size {
		k := uint64(offset / blockSize)
		within := int(offset % blockSize)

		blockID, errno := n.getInodeDataBlockId(k, false)
		if errno != iocommon.OK {
			return vfs.DirEntry{}, offset, errno
		}
		buf, errno := n.fs.cache.ReadAndReserve(n.fs.device, blockID, 1)
		if errno != iocommon.OK {
			return vfs.DirEntry{}, offset, errno
		}

		e, next, _ := readNextLinkedDirectoryEntry(buf, within)
		n.fs.cache.ReleaseReservation(n.fs.device, blockID, false)

		nextOffset := k*uint64(blockSize) + uint64(next)
		if e.Inode == 0 {
			offset = int64(nextOffset)
			continue
		}
		return vfs.DirEntry{Name: e.Name, Ino: uint64(e.Inode), Type: fileTypeToMode(e.FileType)}, int64(nextOffset), iocommon.OK
	}
	return vfs.DirEntry{EndOfDirectory: true}, offset, iocommon.OK
}

// Rename moves oldName from this directory to newName under newParent,
// intra-filesystem only: a cross-filesystem request fails EXDEV, and
// moving a directory into its own descendant fails EINVAL after walking
// ".." from newParent to the root
func (n *Inode) Rename(oldName string, newParent vfs.Node, newName string) iocommon.Errno {
	dstDir, ok := newParent.(*Inode)
	if !ok || dstDir.fs != n.fs {
		return iocommon.EXDEV
	}

	idx, errno := n.lookup(oldName)
	if errno != iocommon.OK {
		return errno
	}
	moved, errno := n.fs.getByIndex(idx)
	if errno != iocommon.OK {
		return errno
	}
	defer moved.Release()

	if moved.GetMode() == vfs.ModeDirectory {
		if dstDir.index == moved.index || dstDir.isDescendantOf(moved.index) {
			return iocommon.EINVAL
		}
	}

	existingIdx, lookErrno := dstDir.lookup(newName)
	if lookErrno == iocommon.OK {
		existing, errno := n.fs.getByIndex(existingIdx)
		if errno != iocommon.OK {
			return errno
		}
		if existing.GetMode() == vfs.ModeDirectory {
			if !existing.isEmptyDirectory() {
				existing.Release()
				return iocommon.ENOTEMPTY
			}
			existing.disk.LinksCount = 0
			existing.markDirty()
			existingIdxCopy := existing.index
			existing.Release()
			if errno := dstDir.removeEntryTombstone(newName); errno != iocommon.OK {
				return errno
			}
			if errno := n.fs.FreeInode(existingIdxCopy); errno != iocommon.OK {
				return errno
			}
		} else {
			existing.Release()
			if errno := dstDir.ReleaseName(newName); errno != iocommon.OK {
				return errno
			}
		}
	}

	if errno := n.removeEntryTombstone(oldName); errno != iocommon.OK {
		return errno
	}
	if errno := dstDir.insertINodeIntoDirectory(newName, idx, modeToFileType(moved.GetMode())); errno != iocommon.OK {
		return errno
	}

	if moved.GetMode() == vfs.ModeDirectory && dstDir.index != n.index {
		if errno := moved.removeEntryTombstone(".."); errno != iocommon.OK {
			return errno
		}
		if errno := moved.insertINodeIntoDirectory("..", dstDir.index, FTDir); errno != iocommon.OK {
			return errno
		}
		n.disk.LinksCount--
		n.markDirty()
		dstDir.disk.LinksCount++
		dstDir.markDirty()
	}
	return iocommon.OK
}

// isDescendantOf reports whether n is ancestorIndex or a descendant of it,
// walking ".." up to the root — the cycle check Rename needs before
// moving a directory into what would become its own subtree.
func (n *Inode) isDescendantOf(ancestorIndex uint32) bool {
	cur := n
	reserved := false
	for {
		if cur.index == ancestorIndex {
			if reserved {
				cur.Release()
			}
			return true
		}
		if cur.index == RootInodeIndex {
			if reserved {
				cur.Release()
			}
			return false
		}
		parentIdx, errno := cur.lookup("..")
		if reserved {
			cur.Release()
		}
		if errno != iocommon.OK {
			return false
		}
		next, errno := n.fs.getByIndex(parentIdx)
		if errno != iocommon.OK {
			return false
		}
		cur = next
		reserved = true
	}
}
