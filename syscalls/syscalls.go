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

package syscalls

import (
	"sync"

	"github.com/gokernel/gokernel/blockcache"
	"github.com/gokernel/gokernel/clock"
	"github.com/gokernel/gokernel/iocommon"
	"github.com/gokernel/gokernel/proc"
	"github.com/gokernel/gokernel/sched"
	"github.com/gokernel/gokernel/vfs"
)

// Open flags, the subset of POSIX's O_* bits the OPEN entry
// ("POSIX-shaped") needs.
const (
	ORdOnly   = 0
	OWrOnly   = 1 << 0
	ORdWr     = 1 << 1
	OCreat    = 1 << 2
	OExcl     = 1 << 3
	OTrunc    = 1 << 4
	OAppend   = 1 << 5
	ONoCTTY   = 1 << 6
	ODirectory = 1 << 7
)

// Dispatcher is the single point binding proc, vfs, and the wall clock
// together, playing the role the data-flow line ("user
// syscall → syscall dispatcher → I/O or process service → ...")
// assigns the syscall layer. One Dispatcher serves every process;
// each method's first argument is the calling process's pid, standing
// in for "whichever process trapped into the kernel" on real
// hardware.
type Dispatcher struct {
	Procs *proc.Manager
	VFS   *vfs.Manager
	Clock clock.Clock

	// Memory, Cache, and OnReboot are optional collaborators BRK,
	// CACHE_FLUSH(_CLEAR), and REBOOT delegate to. A nil Memory makes
	// BRK a pure bookkeeping move of the data-segment end (no backing
	// page frames change hands); a nil Cache makes the cache-flush
	// syscalls a no-op; a nil OnReboot makes REBOOT report success
	// without doing anything.
	Memory   sched.MemoryManager
	Cache    *blockcache.Cache
	OnReboot func()

	stats   *Stats
	breaksMu sync.Mutex
	breaks   map[proc.ProcessID]int64
}

// NewDispatcher wires a Dispatcher over an already-constructed process
// table and VFS manager.
func NewDispatcher(procs *proc.Manager, vfsMgr *vfs.Manager, clk clock.Clock) *Dispatcher {
	return &Dispatcher{
		Procs:  procs,
		VFS:    vfsMgr,
		Clock:  clk,
		stats:  newStats(),
		breaks: make(map[proc.ProcessID]int64),
	}
}

// process resolves pid or returns ESRCH, the check nearly every
// handler below starts with.
func (d *Dispatcher) process(pid proc.ProcessID) (*proc.Process, iocommon.Errno) {
	p, ok := d.Procs.Process(pid)
	if !ok {
		return nil, iocommon.ESRCH
	}
	return p, iocommon.OK
}

// lookupFD resolves fd within pid's descriptor table into the shared
// OFD pool entry, the building block every file-descriptor-taking
// syscall needs.
func (d *Dispatcher) lookupFD(pid proc.ProcessID, fd int) (*vfs.OpenFileDescription, vfs.OFDHandle, iocommon.Errno) {
	p, errno := d.process(pid)
	if errno != iocommon.OK {
		return nil, 0, errno
	}
	handle, ok := p.LookupFD(fd)
	if !ok {
		return nil, 0, iocommon.EBADF
	}
	ofd, errno := d.VFS.OFDs.Get(handle)
	if errno != iocommon.OK {
		return nil, 0, errno
	}
	return ofd, handle, iocommon.OK
}

// isDirectoryFD reports whether handle's node is a directory, the
// predicate proc.Manager.ResetOnExec needs from its caller since proc
// has no vfs.Node type of its own.
func (d *Dispatcher) isDirectoryFD(handle vfs.OFDHandle) bool {
	ofd, errno := d.VFS.OFDs.Get(handle)
	if errno != iocommon.OK || ofd.Node == nil {
		return false
	}
	return ofd.Node.GetMode() == vfs.ModeDirectory
}

// resolveOptions builds vfs.ResolveOptions against pid's current
// working directory.
func (d *Dispatcher) resolveOptions(pid proc.ProcessID) (vfs.ResolveOptions, iocommon.Errno) {
	cwd, errno := d.Procs.Cwd(pid)
	if errno != iocommon.OK {
		return vfs.ResolveOptions{}, errno
	}
	return vfs.ResolveOptions{Cwd: cwd, FollowLastSymlink: true}, iocommon.OK
}
