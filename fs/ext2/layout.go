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

// Package ext2 implements an ext2-compatible on-disk filesystem driver:
// superblock/block-group-descriptor/inode/directory-entry structures
// mapped 1:1 to their on-disk fields, a bounded inode cache, indirect
// block addressing, bitmap allocation, and linked
// directories.
//
// Grounded on gcsproxy.MutableObject (an in-memory view over remote
// content, synced back on release — here, an in-memory cached.Inode view
// over on-disk blocks, written back when its last reservation is
// released) and
// gcsproxy.ListingProxy (directory-listing cache invalidation — here, the
// linked-entry directory scan). The inode-index-to-object map uses
// github.com/google/btree, same as the DOMAIN STACK commits to.
package ext2

import "encoding/binary"

// SuperblockMagic is the ext2 rev-1 signature at byte offset 1024.
const SuperblockMagic = 0xEF53

// SuperblockOffsetBytes is where the superblock begins on the device.
const SuperblockOffsetBytes = 1024

// Required/forbidden feature flags/§6.
const (
	FeatureIncompatFiletype = 0x2 // required
	FeatureROCompatSparseSuper = 0x1 // required
	FeatureROCompatLargeFile   = 0x2 // required
	FeatureCompatBTreeDir      = 0x4 // forbidden (EXT2_FEATURE_COMPAT_DIR_INDEX)
)

const (
	FSStateValid = 1
	FSStateError = 2
)

const RevLevelDynamic = 1

// DirectBlockCount/indices into Inode.Block
const (
	DirectBlockCount = 12
	IndSingle        = 12
	IndDouble        = 13
	IndTriple        = 14
	BlockPointers    = 15
)

// File types stored in a directory entry's FileType byte.
const (
	FTUnknown = 0
	FTRegular = 1
	FTDir     = 2
	FTChrdev  = 3
	FTFIFO    = 5
	FTSymlink = 7
)

// Inode.Mode type bits (the high nibble of a POSIX st_mode).
const (
	ModeFmtRegular = 0x8000
	ModeFmtDir     = 0x4000
	ModeFmtSymlink = 0xA000
	ModeFmtChrdev  = 0x2000
	ModeFmtFIFO    = 0x1000
	ModeFmtMask    = 0xF000
)

// Superblock is the on-disk ext2 superblock, trimmed to the fields this
// driver actually consults.
type Superblock struct {
	InodesCount        uint32
	BlocksCount         uint32
	ReservedBlocksCount uint32
	FreeBlocksCount     uint32
	FreeInodesCount     uint32
	FirstDataBlock      uint32
	LogBlockSize        uint32
	BlocksPerGroup       uint32
	InodesPerGroup       uint32
	Magic                uint16
	State                uint16
	RevLevel             uint32
	FirstIno             uint32
	InodeSize            uint16
	FeatureCompat        uint32
	FeatureIncompat      uint32
	FeatureROCompat      uint32
}

// BlockSize returns the block size in bytes (1024 << LogBlockSize).
func (sb *Superblock) BlockSize() uint32 { return 1024 << sb.LogBlockSize }

// GroupCount returns the number of block groups the filesystem is divided
// into.
func (sb *Superblock) GroupCount() uint32 {
	return ceilDiv(sb.BlocksCount-sb.FirstDataBlock, sb.BlocksPerGroup)
}

func ceilDiv(a, b uint32) uint32 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// MarshalBinary writes the superblock fields into a block-sized buffer,
// zero-padding the remainder.
func (sb *Superblock) MarshalBinary(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	o := 0
	putU32 := func(v uint32) { binary.LittleEndian.PutUint32(buf[o:], v); o += 4 }
	putU16 := func(v uint16) { binary.LittleEndian.PutUint16(buf[o:], v); o += 2 }
	putU32(sb.InodesCount)
	putU32(sb.BlocksCount)
	putU32(sb.ReservedBlocksCount)
	putU32(sb.FreeBlocksCount)
	putU32(sb.FreeInodesCount)
	putU32(sb.FirstDataBlock)
	putU32(sb.LogBlockSize)
	putU32(sb.BlocksPerGroup)
	putU32(sb.InodesPerGroup)
	putU16(sb.Magic)
	putU16(sb.State)
	putU32(sb.RevLevel)
	putU32(sb.FirstIno)
	putU16(sb.InodeSize)
	putU32(sb.FeatureCompat)
	putU32(sb.FeatureIncompat)
	putU32(sb.FeatureROCompat)
}

// UnmarshalBinary reads the superblock fields back out of buf.
func (sb *Superblock) UnmarshalBinary(buf []byte) {
	o := 0
	getU32 := func() uint32 { v := binary.LittleEndian.Uint32(buf[o:]); o += 4; return v }
	getU16 := func() uint16 { v := binary.LittleEndian.Uint16(buf[o:]); o += 2; return v }
	sb.InodesCount = getU32()
	sb.BlocksCount = getU32()
	sb.ReservedBlocksCount = getU32()
	sb.FreeBlocksCount = getU32()
	sb.FreeInodesCount = getU32()
	sb.FirstDataBlock = getU32()
	sb.LogBlockSize = getU32()
	sb.BlocksPerGroup = getU32()
	sb.InodesPerGroup = getU32()
	sb.Magic = getU16()
	sb.State = getU16()
	sb.RevLevel = getU32()
	sb.FirstIno = getU32()
	sb.InodeSize = getU16()
	sb.FeatureCompat = getU32()
	sb.FeatureIncompat = getU32()
	sb.FeatureROCompat = getU32()
}

// GroupDescriptor is one block-group descriptor table entry.
type GroupDescriptor struct {
	BlockBitmap     uint32
	InodeBitmap     uint32
	InodeTable      uint32
	FreeBlocksCount uint16
	FreeInodesCount uint16
	UsedDirsCount   uint16
}

const groupDescriptorWireSize = 4*3 + 2*3

func (g *GroupDescriptor) MarshalBinary(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:], g.BlockBitmap)
	binary.LittleEndian.PutUint32(buf[4:], g.InodeBitmap)
	binary.LittleEndian.PutUint32(buf[8:], g.InodeTable)
	binary.LittleEndian.PutUint16(buf[12:], g.FreeBlocksCount)
	binary.LittleEndian.PutUint16(buf[14:], g.FreeInodesCount)
	binary.LittleEndian.PutUint16(buf[16:], g.UsedDirsCount)
}

func (g *GroupDescriptor) UnmarshalBinary(buf []byte) {
	g.BlockBitmap = binary.LittleEndian.Uint32(buf[0:])
	g.InodeBitmap = binary.LittleEndian.Uint32(buf[4:])
	g.InodeTable = binary.LittleEndian.Uint32(buf[8:])
	g.FreeBlocksCount = binary.LittleEndian.Uint16(buf[12:])
	g.FreeInodesCount = binary.LittleEndian.Uint16(buf[14:])
	g.UsedDirsCount = binary.LittleEndian.Uint16(buf[16:])
}

// DiskInode is the on-disk inode record, 128 bytes wide (EXT2_GOOD_OLD_INODE_SIZE).
type DiskInode struct {
	Mode       uint16
	LinksCount uint16
	SizeLo     uint32
	SizeHi     uint32 // repurposes i_dir_acl for LARGE_FILE regular files
	BlocksLo   uint32 // in 512-byte units
	Flags      uint32
	Block      [BlockPointers]uint32
	Generation uint32
}

const DiskInodeSize = 128

func (in *DiskInode) MarshalBinary(buf []byte) {
	for i := range buf[:DiskInodeSize] {
		buf[i] = 0
	}
	binary.LittleEndian.PutUint16(buf[0:], in.Mode)
	binary.LittleEndian.PutUint16(buf[2:], in.LinksCount)
	binary.LittleEndian.PutUint32(buf[4:], in.SizeLo)
	binary.LittleEndian.PutUint32(buf[8:], in.BlocksLo)
	binary.LittleEndian.PutUint32(buf[12:], in.Flags)
	for i, b := range in.Block {
		binary.LittleEndian.PutUint32(buf[16+4*i:], b)
	}
	binary.LittleEndian.PutUint32(buf[16+4*BlockPointers:], in.Generation)
	binary.LittleEndian.PutUint32(buf[20+4*BlockPointers:], in.SizeHi)
}

func (in *DiskInode) UnmarshalBinary(buf []byte) {
	in.Mode = binary.LittleEndian.Uint16(buf[0:])
	in.LinksCount = binary.LittleEndian.Uint16(buf[2:])
	in.SizeLo = binary.LittleEndian.Uint32(buf[4:])
	in.BlocksLo = binary.LittleEndian.Uint32(buf[8:])
	in.Flags = binary.LittleEndian.Uint32(buf[12:])
	for i := range in.Block {
		in.Block[i] = binary.LittleEndian.Uint32(buf[16+4*i:])
	}
	in.Generation = binary.LittleEndian.Uint32(buf[16+4*BlockPointers:])
	in.SizeHi = binary.LittleEndian.Uint32(buf[20+4*BlockPointers:])
}

// Size returns the inode's logical byte size as a 64-bit value, combining
// SizeLo/SizeHi the way LARGE_FILE regular files do.
func (in *DiskInode) Size() int64 {
	return int64(in.SizeHi)<<32 | int64(in.SizeLo)
}

// SetSize stores n split across SizeLo/SizeHi.
func (in *DiskInode) SetSize(n int64) {
	in.SizeLo = uint32(n)
	in.SizeHi = uint32(n >> 32)
}

// DirEntryHeaderSize is the fixed portion of a linked directory entry
// before its inline name.
const DirEntryHeaderSize = 8

// rawDirEntry is one linked directory entry as read from a directory's
// data blocks: inode, rec_len, name_len, file_type, inline name.
type rawDirEntry struct {
	Inode    uint32
	RecLen   uint16
	NameLen  uint8
	FileType uint8
	Name     string
}

func (e *rawDirEntry) marshalInto(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:], e.Inode)
	binary.LittleEndian.PutUint16(buf[4:], e.RecLen)
	buf[6] = e.NameLen
	buf[7] = e.FileType
	copy(buf[8:8+int(e.NameLen)], e.Name)
}

func unmarshalDirEntry(buf []byte) rawDirEntry {
	var e rawDirEntry
	e.Inode = binary.LittleEndian.Uint32(buf[0:])
	e.RecLen = binary.LittleEndian.Uint16(buf[4:])
	e.NameLen = buf[6]
	e.FileType = buf[7]
	if int(e.NameLen) <= len(buf)-8 {
		e.Name = string(buf[8 : 8+int(e.NameLen)])
	}
	return e
}

// align4 rounds n up to the next multiple of 4, the rec_len alignment
// rule ext2 requires.
func align4(n int) int {
	return (n + 3) &^ 3
}

// minRecLen is the smallest rec_len that can hold a name of the given
// length: the 8-byte header plus the name, 4-byte aligned.
func minRecLen(nameLen int) int {
	return align4(DirEntryHeaderSize + nameLen)
}
