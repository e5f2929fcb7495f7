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

package vfs

import (
	"sort"
	"strings"

	"github.com/jacobsa/syncutil"

	"github.com/gokernel/gokernel/iocommon"
	"github.com/gokernel/gokernel/pathutil"
)

// maxSymlinkDepth is the ELOOP cap on nested symlink resolution.
const maxSymlinkDepth = 5

// MountedFileSystem pairs a mount prefix with its root node.
type MountedFileSystem struct {
	Prefix string
	Root   Node
}

// Manager owns the mount table and the open-file-description pool. It
// guards its own kernel-path re-entrancy with a
// jacobsa/syncutil.InvariantMutex, the same "one context inside the
// kernel at a time" discipline fs/fs.go enforces with fs.mu around
// fileSystem's invariant-checked state.
type Manager struct {
	mu     syncutil.InvariantMutex
	mounts []MountedFileSystem
	OFDs   *OFDPool
}

// NewManager returns a Manager with an OFD pool of the given capacity.
func NewManager(ofdCapacity int) *Manager {
	m := &Manager{OFDs: NewOFDPool(ofdCapacity)}
	m.mu = syncutil.NewInvariantMutex(m.checkInvariants)
	return m
}

func (m *Manager) checkInvariants() {
	for i := 1; i < len(m.mounts); i++ {
		if len(m.mounts[i-1].Prefix) < len(m.mounts[i].Prefix) {
			panic("vfs: mount table is not sorted by descending prefix length")
		}
	}
}

// Mount adds a filesystem root at prefix, re-sorting the mount table so
// the longest prefix always precedes shorter ones, with equal lengths
// broken lexicographically for determinism.
func (m *Manager) Mount(prefix string, root Node) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mounts = append(m.mounts, MountedFileSystem{Prefix: prefix, Root: root})
	sort.SliceStable(m.mounts, func(i, j int) bool {
		a, b := m.mounts[i], m.mounts[j]
		if len(a.Prefix) != len(b.Prefix) {
			return len(a.Prefix) > len(b.Prefix)
		}
		return a.Prefix < b.Prefix
	})
}

// Unmount removes the mount whose prefix equals prefix exactly.
func (m *Manager) Unmount(prefix string) iocommon.Errno {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, mfs := range m.mounts {
		if mfs.Prefix == prefix {
			m.mounts = append(m.mounts[:i], m.mounts[i+1:]...)
			return iocommon.OK
		}
	}
	return iocommon.EINVAL
}

// selectMount returns the most specific mount whose prefix matches path,
// and the path with that prefix stripped.
func (m *Manager) selectMount(path string) (MountedFileSystem, string, iocommon.Errno) {
	for _, mfs := range m.mounts {
		if mfs.Prefix == "/" || path == mfs.Prefix || strings.HasPrefix(path, mfs.Prefix+"/") {
			rest := strings.TrimPrefix(path, mfs.Prefix)
			if rest == "" {
				rest = "/"
			}
			return mfs, rest, iocommon.OK
		}
	}
	return MountedFileSystem{}, "", iocommon.ENOENT
}

// ResolveOptions bundles ResolvePath's parameters.
type ResolveOptions struct {
	Cwd              string
	FollowLastSymlink bool
	CreateIfMissing   bool
	Mode              Mode
	FailIfExists      bool
}

// ResolveResult is resolvePath's outcome.
type ResolveResult struct {
	Node    Node
	Created bool
}

// ResolvePath implements the algorithm: select mount, walk
// segments acquiring/releasing reservations one at a time, expand
// symlinks (bounded at maxSymlinkDepth), and honor createIfMissing /
// failIfExists.
func (m *Manager) ResolvePath(path string, opts ResolveOptions) (ResolveResult, iocommon.Errno) {
	return m.resolvePathDepth(path, opts, 0)
}

func (m *Manager) resolvePathDepth(path string, opts ResolveOptions, depth int) (ResolveResult, iocommon.Errno) {
	if depth > maxSymlinkDepth {
		return ResolveResult{}, iocommon.ELOOP
	}

	ctx := pathutil.NewContext()
	if errno := ctx.ParsePath(path, false, true, opts.Cwd); errno != iocommon.OK {
		return ResolveResult{}, errno
	}

	mfs, rest, errno := m.selectMount(ctx.Buffer())
	if errno != iocommon.OK {
		return ResolveResult{}, errno
	}

	segments, errno := pathutil.CalculateSegments(rest)
	if errno != iocommon.OK {
		return ResolveResult{}, errno
	}

	current := mfs.Root
	current.Reserve()

	created := false
	for i, seg := range segments {
		isLast := i == len(segments)-1
		createHere := opts.CreateIfMissing && isLast

		next, wasCreated, errno := current.Walk(seg, createHere, opts.Mode)
		if errno != iocommon.OK {
			current.Release()
			return ResolveResult{}, errno
		}
		current.Release()
		current = next
		if isLast {
			created = wasCreated
		}

		if current.GetMode() == ModeSymlink && (!isLast || opts.FollowLastSymlink) {
			prefix := joinProcessed(mfs.Prefix, segments[:i])
			target, errno := current.MergeWithSymbolicLinkPath(prefix, joinRemaining(segments[i+1:]))
			current.Release()
			if errno != iocommon.OK {
				return ResolveResult{}, errno
			}
			return m.resolvePathDepth(target, opts, depth+1)
		}
	}

	if opts.CreateIfMissing && opts.FailIfExists && !created {
		current.Release()
		return ResolveResult{}, iocommon.EEXIST
	}

	return ResolveResult{Node: current, Created: created}, iocommon.OK
}

// joinProcessed rebuilds the already-processed path in front of a
// symlink segment: the mount's own prefix followed by every segment
// walked before the symlink, with a trailing separator so a relative
// target can simply be appended by MergeWithSymbolicLinkPath.
func joinProcessed(mountPrefix string, processed []string) string {
	prefix := mountPrefix
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if len(processed) > 0 {
		prefix += strings.Join(processed, "/") + "/"
	}
	return prefix
}

func joinRemaining(segments []string) string {
	if len(segments) == 0 {
		return ""
	}
	return "/" + strings.Join(segments, "/")
}
