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

// Package vfs implements the virtual-filesystem resolution layer: the
// mount table, path resolution with bounded symlink recursion, and the
// open-file-description pool. Node is the polymorphic per-filesystem
// vtable, re-expressed the way fuseutil.FileSystem is: a
// Go interface with a default "not implemented" embeddable base
// (UnimplementedNode, grounded on fuseutil.NotImplementedFileSystem) so each
// concrete filesystem only overrides the handful of operations it actually
// supports.
package vfs

import (
	"github.com/gokernel/gokernel/iocommon"
)

// RepositionPolicy constrains how an OpenFileDescription's offset may be
// changed by lseek
type RepositionPolicy int

const (
	RepositionNotAllowed RepositionPolicy = iota
	RepositionAlwaysZero
	RepositionBasedOnSize
	RepositionFreely
)

// Mode is a minimal POSIX-style file mode/type field.
type Mode uint32

const (
	ModeRegular Mode = 1 << iota
	ModeDirectory
	ModeSymlink
	ModeCharDevice
	ModeFIFO
)

// DirEntry is one entry produced by ReadDirectoryEntry.
type DirEntry struct {
	Name  string
	Ino   uint64
	Type  Mode
	EndOfDirectory bool
}

// Node is the VirtualFileSystemNode vtable. Every method is "optional"
// in the sense that a filesystem may leave it unimplemented; it
// expresses that by embedding UnimplementedNode and only overriding
// what it supports. Most operations left at the default return EPERM;
// the exceptions are Open and Start/StopIoEventMonitoring (OK),
// ReadDirectoryEntry and GetDirectoryParent (ENOTDIR),
// ManipulateDeviceParameters (ENOTTY), MergeWithSymbolicLinkPath and
// ManipulateOpenFileDescriptionParameters (EINVAL), and the offset
// reposition policy, which defaults to RepositionFreely.
type Node interface {
	// Walk resolves one path segment starting from this node, returning the
	// next node with its reservation already incremented. createIfLast
	// requests O_CREAT semantics when name is the final segment.
	Walk(name string, createIfLast bool, mode Mode) (Node, bool, iocommon.Errno)

	Open(flags int) iocommon.Errno
	Read(offset int64, buf []byte) (int, iocommon.Errno)
	Write(offset int64, buf []byte) (int, iocommon.Errno)
	ReadDirectoryEntry(offset int64) (DirEntry, int64, iocommon.Errno)
	Status() (Stat, iocommon.Errno)
	ChangeFileSize(size int64) iocommon.Errno
	CreateDirectory(name string, mode Mode) (Node, iocommon.Errno)
	CreateName(name string, mode Mode) (Node, iocommon.Errno)
	ReleaseName(name string) iocommon.Errno
	ReleaseDirectory(name string) iocommon.Errno
	CreateSymbolicLink(name, target string) (Node, iocommon.Errno)
	MergeWithSymbolicLinkPath(prefix, suffix string) (string, iocommon.Errno)
	GetMode() Mode
	GetSize() int64
	GetDirectoryParent() (Node, iocommon.Errno)
	Rename(oldName string, newParent Node, newName string) iocommon.Errno
	ManipulateDeviceParameters(request int, arg any) iocommon.Errno
	ManipulateOpenFileDescriptionParameters(request int, arg any) iocommon.Errno
	GetOpenFileDescriptionOffsetRepositionPolicy() RepositionPolicy
	MonitorIoEvent(mask uint32) (uint32, iocommon.Errno)
	StartIoEventMonitoring(waiter any) iocommon.Errno
	StopIoEventMonitoring(waiter any) iocommon.Errno

	// AfterNodeReservationRelease fires when UsageCount drops to zero and
	// owns final cleanup (e.g. an unlinked ext2 inode's block free).
	AfterNodeReservationRelease()

	GetFileSystem() FileSystem

	// Reserve/Release manage the usage count described in the 	// Ext2VirtualFileSystemNode invariant: every node returned to a caller
	// has UsageCount strictly greater than before the call.
	Reserve()
	Release()
	UsageCount() int
}

// FileSystem identifies the backing filesystem a Node belongs to (used by
// Rename's EXDEV check and by the ext2 driver's back-pointer).
type FileSystem interface {
	Name() string
}

// Stat mirrors the subset of struct stat this kernel's syscalls need.
type Stat struct {
	Ino   uint64
	Mode  Mode
	Size  int64
	Links uint32
}

// UnimplementedNode embeds into a concrete Node type to inherit the
// defaults listed on Node (mostly EPERM) for every operation that type
// doesn't support, the same role
// fuseutil.NotImplementedFileSystem plays for FileSystem.
type UnimplementedNode struct{}

func (UnimplementedNode) Walk(string, bool, Mode) (Node, bool, iocommon.Errno) {
	return nil, false, iocommon.EPERM
}
func (UnimplementedNode) Open(int) iocommon.Errno { return iocommon.OK }
func (UnimplementedNode) Read(int64, []byte) (int, iocommon.Errno) {
	return 0, iocommon.EPERM
}
func (UnimplementedNode) Write(int64, []byte) (int, iocommon.Errno) {
	return 0, iocommon.EPERM
}
func (UnimplementedNode) ReadDirectoryEntry(int64) (DirEntry, int64, iocommon.Errno) {
	return DirEntry{}, 0, iocommon.ENOTDIR
}
func (UnimplementedNode) Status() (Stat, iocommon.Errno) { return Stat{}, iocommon.EPERM }
func (UnimplementedNode) ChangeFileSize(int64) iocommon.Errno { return iocommon.EPERM }
func (UnimplementedNode) CreateDirectory(string, Mode) (Node, iocommon.Errno) {
	return nil, iocommon.EPERM
}
func (UnimplementedNode) CreateName(string, Mode) (Node, iocommon.Errno) {
	return nil, iocommon.EPERM
}
func (UnimplementedNode) ReleaseName(string) iocommon.Errno      { return iocommon.EPERM }
func (UnimplementedNode) ReleaseDirectory(string) iocommon.Errno { return iocommon.EPERM }
func (UnimplementedNode) CreateSymbolicLink(string, string) (Node, iocommon.Errno) {
	return nil, iocommon.EPERM
}
func (UnimplementedNode) MergeWithSymbolicLinkPath(string, string) (string, iocommon.Errno) {
	return "", iocommon.EINVAL
}
func (UnimplementedNode) GetDirectoryParent() (Node, iocommon.Errno) { return nil, iocommon.ENOTDIR }
func (UnimplementedNode) Rename(string, Node, string) iocommon.Errno { return iocommon.EPERM }
func (UnimplementedNode) ManipulateDeviceParameters(int, any) iocommon.Errno {
	return iocommon.ENOTTY
}
func (UnimplementedNode) ManipulateOpenFileDescriptionParameters(int, any) iocommon.Errno {
	return iocommon.EINVAL
}
func (UnimplementedNode) GetOpenFileDescriptionOffsetRepositionPolicy() RepositionPolicy {
	return RepositionFreely
}
func (UnimplementedNode) MonitorIoEvent(uint32) (uint32, iocommon.Errno) { return 0, iocommon.EPERM }
func (UnimplementedNode) StartIoEventMonitoring(any) iocommon.Errno      { return iocommon.OK }
func (UnimplementedNode) StopIoEventMonitoring(any) iocommon.Errno       { return iocommon.OK }
func (UnimplementedNode) AfterNodeReservationRelease()                  {}
