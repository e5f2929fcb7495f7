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

package syscalls_test

import (
	"sort"

	"github.com/gokernel/gokernel/iocommon"
	"github.com/gokernel/gokernel/vfs"
)

// fakeFileSystem stands in for a mounted driver (ext2, devfs, ...) in
// dispatcher tests: an in-memory tree of directories, regular files,
// and symlinks exercising the same vfs.Node vtable the real drivers
// implement, grounded on vfs's own manager_test.go fakeNode.
type fakeFileSystem struct{}

func (fakeFileSystem) Name() string { return "fakefs" }

var sharedFakeFileSystem = fakeFileSystem{}

type fakeNode struct {
	vfs.UnimplementedNode
	mode     vfs.Mode
	parent   *fakeNode
	children map[string]*fakeNode
	data     []byte
	symlink  string
	rc       vfs.ReservationCounter
}

func newFakeRoot() *fakeNode {
	n := &fakeNode{mode: vfs.ModeDirectory, children: map[string]*fakeNode{}}
	n.rc.Init(n.AfterNodeReservationRelease)
	n.parent = n
	n.Reserve()
	return n
}

func (n *fakeNode) newChild(mode vfs.Mode) *fakeNode {
	c := &fakeNode{mode: mode, parent: n}
	if mode == vfs.ModeDirectory {
		c.children = map[string]*fakeNode{}
	}
	c.rc.Init(c.AfterNodeReservationRelease)
	return c
}

func (n *fakeNode) Walk(name string, createIfLast bool, mode vfs.Mode) (vfs.Node, bool, iocommon.Errno) {
	if n.mode != vfs.ModeDirectory {
		return nil, false, iocommon.ENOTDIR
	}
	if name == "." {
		n.Reserve()
		return n, false, iocommon.OK
	}
	if name == ".." {
		n.parent.Reserve()
		return n.parent, false, iocommon.OK
	}
	if child, ok := n.children[name]; ok {
		child.Reserve()
		return child, false, iocommon.OK
	}
	if !createIfLast {
		return nil, false, iocommon.ENOENT
	}
	child := n.newChild(vfs.ModeRegular)
	n.children[name] = child
	child.Reserve()
	return child, true, iocommon.OK
}

func (n *fakeNode) Open(int) iocommon.Errno { return iocommon.OK }

func (n *fakeNode) Read(offset int64, buf []byte) (int, iocommon.Errno) {
	if offset >= int64(len(n.data)) {
		return 0, iocommon.OK
	}
	return copy(buf, n.data[offset:]), iocommon.OK
}

func (n *fakeNode) Write(offset int64, buf []byte) (int, iocommon.Errno) {
	end := offset + int64(len(buf))
	if end > int64(len(n.data)) {
		grown := make([]byte, end)
		copy(grown, n.data)
		n.data = grown
	}
	copy(n.data[offset:end], buf)
	return len(buf), iocommon.OK
}

func (n *fakeNode) Status() (vfs.Stat, iocommon.Errno) {
	return vfs.Stat{Mode: n.mode, Size: int64(len(n.data)), Links: 1}, iocommon.OK
}

func (n *fakeNode) ChangeFileSize(size int64) iocommon.Errno {
	if size < 0 {
		return iocommon.EINVAL
	}
	grown := make([]byte, size)
	copy(grown, n.data)
	n.data = grown
	return iocommon.OK
}

func (n *fakeNode) CreateDirectory(name string, mode vfs.Mode) (vfs.Node, iocommon.Errno) {
	if _, ok := n.children[name]; ok {
		return nil, iocommon.EEXIST
	}
	child := n.newChild(vfs.ModeDirectory)
	n.children[name] = child
	child.Reserve()
	return child, iocommon.OK
}

func (n *fakeNode) CreateName(name string, mode vfs.Mode) (vfs.Node, iocommon.Errno) {
	if _, ok := n.children[name]; ok {
		return nil, iocommon.EEXIST
	}
	child := n.newChild(vfs.ModeRegular)
	n.children[name] = child
	child.Reserve()
	return child, iocommon.OK
}

func (n *fakeNode) CreateSymbolicLink(name, target string) (vfs.Node, iocommon.Errno) {
	if _, ok := n.children[name]; ok {
		return nil, iocommon.EEXIST
	}
	child := n.newChild(vfs.ModeSymlink)
	child.symlink = target
	n.children[name] = child
	child.Reserve()
	return child, iocommon.OK
}

func (n *fakeNode) MergeWithSymbolicLinkPath(prefix, suffix string) (string, iocommon.Errno) {
	return n.symlink + suffix, iocommon.OK
}

func (n *fakeNode) ReleaseName(name string) iocommon.Errno {
	child, ok := n.children[name]
	if !ok {
		return iocommon.ENOENT
	}
	if child.mode == vfs.ModeDirectory {
		return iocommon.EISDIR
	}
	delete(n.children, name)
	return iocommon.OK
}

func (n *fakeNode) ReleaseDirectory(name string) iocommon.Errno {
	child, ok := n.children[name]
	if !ok {
		return iocommon.ENOENT
	}
	if child.mode != vfs.ModeDirectory {
		return iocommon.ENOTDIR
	}
	if len(child.children) > 0 {
		return iocommon.ENOTEMPTY
	}
	delete(n.children, name)
	return iocommon.OK
}

func (n *fakeNode) GetDirectoryParent() (vfs.Node, iocommon.Errno) {
	n.parent.Reserve()
	return n.parent, iocommon.OK
}

func (n *fakeNode) Rename(oldName string, newParent vfs.Node, newName string) iocommon.Errno {
	child, ok := n.children[oldName]
	if !ok {
		return iocommon.ENOENT
	}
	dst := newParent.(*fakeNode)
	if dst.mode != vfs.ModeDirectory {
		return iocommon.ENOTDIR
	}
	delete(n.children, oldName)
	child.parent = dst
	dst.children[newName] = child
	return iocommon.OK
}

func (n *fakeNode) GetMode() vfs.Mode { return n.mode }
func (n *fakeNode) GetSize() int64    { return int64(len(n.data)) }

func (n *fakeNode) GetFileSystem() vfs.FileSystem { return sharedFakeFileSystem }

func (n *fakeNode) GetOpenFileDescriptionOffsetRepositionPolicy() vfs.RepositionPolicy {
	if n.mode == vfs.ModeDirectory {
		return vfs.RepositionFreely
	}
	return vfs.RepositionFreely
}

func (n *fakeNode) ReadDirectoryEntry(offset int64) (vfs.DirEntry, int64, iocommon.Errno) {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	if int(offset) >= len(names) {
		return vfs.DirEntry{EndOfDirectory: true}, offset, iocommon.OK
	}
	name := names[offset]
	return vfs.DirEntry{Name: name, Type: n.children[name].mode}, offset + 1, iocommon.OK
}

func (n *fakeNode) Reserve()        { n.rc.Reserve() }
func (n *fakeNode) Release()        { n.rc.Release() }
func (n *fakeNode) UsageCount() int { return n.rc.UsageCount() }
func (n *fakeNode) AfterNodeReservationRelease() {}
