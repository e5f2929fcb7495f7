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

// Package proc implements the process table, scheduler, and
// fork/exec/wait/termination semantics, grounded on a bounded
// map-plus-free-list process/inode table idiom and on a
// periodic-background-task shape for the scheduler's own tick-driven
// loop.
package proc

import (
	"github.com/gokernel/gokernel/signal"
	"github.com/gokernel/gokernel/vfs"
)

// ProcessID identifies a process, process group, or session (all three
// share the PID numbering space, per POSIX convention).
type ProcessID uint32

// Address space layout constants.
const (
	CodeBase       uint32 = 0x40000000
	DataBaseOffset uint32 = 4 * 1024 * 1024 // CODE_BASE + 4 MiB
	StackTop       uint32 = 0xFFFFFFFC
	TicksPerIteration = 3
	ScriptDepthCap    = 5
	ArgMax            = 128 * 1024
)

// State is a process's scheduling state.
type State int

const (
	StateRunnable State = iota
	StateRunning
	StateStopped
	StateZombie
	StateSuspendedWaitingIO
	StateSuspendedWaitingChild
)

// NotifyKind is the transition a parent is waiting to hear about,
// matching the "stateToNotifyParentAbout" field.
type NotifyKind int

const (
	NotifyNone NotifyKind = iota
	NotifyExited
	NotifyStopped
	NotifyContinued
)

// MaxFileDescriptors bounds a process's file-descriptor table.
const MaxFileDescriptors = 256

// FDFlags is the per-descriptor flag set; currently only close-on-exec.
type FDFlags uint8

const CloseOnExec FDFlags = 1 << 0

// fdEntry is one slot of a process's file-descriptor table, pointing
// into the shared vfs.OFDPool.
type fdEntry struct {
	handle vfs.OFDHandle
	flags  FDFlags
	inUse  bool
}

// Process is one schedulable unit Process data model.
type Process struct {
	Pid   ProcessID
	Ppid  ProcessID
	Pgid  ProcessID
	Sid   ProcessID
	State State

	Signals *signal.Table

	fds [MaxFileDescriptors]fdEntry

	children []ProcessID

	pendingNotify NotifyKind
	exitStatus    signal.ExitStatus

	// fpuInitialized tracks the "FPU state marked
	// uninitialized" rule across exec.
	fpuInitialized bool

	// cwd and umask are the two pieces of per-process VFS-adjacent state
	// the Process model names but that proc otherwise has no
	// reason to touch directly; the syscalls dispatcher reads/writes
	// them via Manager.Cwd/SetCwd/Umask/SetUmask.
	cwd   string
	umask uint32
}

func newProcess(pid, ppid, pgid, sid ProcessID) *Process {
	return &Process{
		Pid:     pid,
		Ppid:    ppid,
		Pgid:    pgid,
		Sid:     sid,
		State:   StateRunnable,
		Signals: signal.NewTable(),
		cwd:     "/",
		umask:   0022,
	}
}

// AllocateFD installs handle at the lowest free descriptor number.
func (p *Process) AllocateFD(handle vfs.OFDHandle, flags FDFlags) (int, bool) {
	for fd := range p.fds {
		if !p.fds[fd].inUse {
			p.fds[fd] = fdEntry{handle: handle, flags: flags, inUse: true}
			return fd, true
		}
	}
	return -1, false
}

// AllocateFDAt installs handle at exactly fd, the behavior dup2(2)
// needs when the caller names the destination descriptor itself.
func (p *Process) AllocateFDAt(fd int, handle vfs.OFDHandle, flags FDFlags) bool {
	if fd < 0 || fd >= MaxFileDescriptors {
		return false
	}
	p.fds[fd] = fdEntry{handle: handle, flags: flags, inUse: true}
	return true
}

// LookupFD returns the OFD handle for fd.
func (p *Process) LookupFD(fd int) (vfs.OFDHandle, bool) {
	if fd < 0 || fd >= MaxFileDescriptors || !p.fds[fd].inUse {
		return 0, false
	}
	return p.fds[fd].handle, true
}

// CloseFD marks fd free, returning the handle that was released so the
// caller can release its OFD reservation.
func (p *Process) CloseFD(fd int) (vfs.OFDHandle, bool) {
	if fd < 0 || fd >= MaxFileDescriptors || !p.fds[fd].inUse {
		return 0, false
	}
	h := p.fds[fd].handle
	p.fds[fd] = fdEntry{}
	return h, true
}

// SetCloseOnExec sets or clears fd's FD_CLOEXEC bit.
func (p *Process) SetCloseOnExec(fd int, set bool) bool {
	if fd < 0 || fd >= MaxFileDescriptors || !p.fds[fd].inUse {
		return false
	}
	if set {
		p.fds[fd].flags |= CloseOnExec
	} else {
		p.fds[fd].flags &^= CloseOnExec
	}
	return true
}
