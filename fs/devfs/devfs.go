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

// Package devfs implements the devices filesystem: a flat, in-memory
// filesystem whose root lists a bounded number of device nodes by short
// name. Every registered device is itself a vfs.Node, the same
// minimal-surface, no-dynamic-state shape a one-job stub object takes.
package devfs

import (
	"sort"

	"github.com/gokernel/gokernel/iocommon"
	"github.com/gokernel/gokernel/vfs"
)

// FileSystem is the devfs root: a fixed-capacity, name-addressed set of
// device nodes. It implements vfs.FileSystem so registered devices can
// report a stable back-pointer, and vfs.Node so it can itself be
// mounted.
type FileSystem struct {
	vfs.UnimplementedNode

	name string
	cap  int

	names   []string
	devices map[string]vfs.Node

	rc vfs.ReservationCounter
}

// New returns an empty devices filesystem that refuses registration past
// capacity devices.
func New(capacity int) *FileSystem {
	fs := &FileSystem{
		name:    "devfs",
		cap:     capacity,
		devices: make(map[string]vfs.Node),
	}
	fs.rc.Init(func() {})
	return fs
}

func (fs *FileSystem) Name() string { return fs.name }

// Register adds a device node under name. Returns ENOSPC if the
// filesystem is already at capacity, EEXIST if name is taken.
func (fs *FileSystem) Register(name string, node vfs.Node) iocommon.Errno {
	if _, exists := fs.devices[name]; exists {
		return iocommon.EEXIST
	}
	if len(fs.names) >= fs.cap {
		return iocommon.ENOSPC
	}
	fs.devices[name] = node
	fs.names = append(fs.names, name)
	sort.Strings(fs.names)
	return iocommon.OK
}

// Walk looks name up among the registered devices and reserves the node
// it finds. devfs never creates nodes on the fly, so createIfLast is
// ignored.
func (fs *FileSystem) Walk(name string, createIfLast bool, mode vfs.Mode) (vfs.Node, bool, iocommon.Errno) {
	node, ok := fs.devices[name]
	if !ok {
		return nil, false, iocommon.ENOENT
	}
	node.Reserve()
	return node, false, iocommon.OK
}

func (fs *FileSystem) Open(int) iocommon.Errno { return iocommon.OK }

func (fs *FileSystem) Status() (vfs.Stat, iocommon.Errno) {
	return vfs.Stat{Mode: vfs.ModeDirectory, Links: 2}, iocommon.OK
}

func (fs *FileSystem) GetMode() vfs.Mode { return vfs.ModeDirectory }

func (fs *FileSystem) GetSize() int64 { return int64(len(fs.names)) }

func (fs *FileSystem) GetFileSystem() vfs.FileSystem { return fs }

func (fs *FileSystem) Reserve()        { fs.rc.Reserve() }
func (fs *FileSystem) Release()        { fs.rc.Release() }
func (fs *FileSystem) UsageCount() int { return fs.rc.UsageCount() }

// ReadDirectoryEntry enumerates registered device names in stable
// (sorted) order; offset is the index of the next entry to return.
func (fs *FileSystem) ReadDirectoryEntry(offset int64) (vfs.DirEntry, int64, iocommon.Errno) {
	if offset < 0 || int(offset) >= len(fs.names) {
		return vfs.DirEntry{EndOfDirectory: true}, offset, iocommon.OK
	}
	name := fs.names[offset]
	return vfs.DirEntry{Name: name, Ino: uint64(offset) + 1, Type: fs.devices[name].GetMode()}, offset + 1, iocommon.OK
}
