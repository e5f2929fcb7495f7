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

package proc

import (
	"github.com/gokernel/gokernel/container"
	"github.com/gokernel/gokernel/iocommon"
	"github.com/gokernel/gokernel/signal"
	"github.com/gokernel/gokernel/vfs"
)

// Manager is the process table, grounded on fs/fs.go's bounded
// map-plus-counter idiom (there: inodes map[fuseops.InodeID]inode.Inode
// plus nextInodeID; here: processes map[ProcessID]*Process plus
// nextPid), combined with a round-robin scheduler.
type Manager struct {
	processes map[ProcessID]*Process
	groups    map[ProcessID]*ProcessGroup
	sessions  map[ProcessID]*Session
	nextPid   ProcessID

	runnable    *container.List[ProcessID]
	runElems    map[ProcessID]*container.Element[ProcessID]
	current     *container.Element[ProcessID]
	quotaUsed   map[ProcessID]int
	iteration   uint64

	ofds *vfs.OFDPool
}

// NewManager returns an empty Manager sharing ofds with the rest of the
// kernel for open-file-description bookkeeping.
func NewManager(ofds *vfs.OFDPool) *Manager {
	return &Manager{
		processes: make(map[ProcessID]*Process),
		groups:    make(map[ProcessID]*ProcessGroup),
		sessions:  make(map[ProcessID]*Session),
		runnable:  container.New[ProcessID](),
		runElems:  make(map[ProcessID]*container.Element[ProcessID]),
		quotaUsed: make(map[ProcessID]int),
		ofds:      ofds,
	}
}

// Init creates process 1 as a new session/group leader with no parent,
// the kernel's init process.
func (m *Manager) Init() *Process {
	return m.newProcessLocked(0, true)
}

func (m *Manager) newProcessLocked(ppid ProcessID, asSessionLeader bool) *Process {
	m.nextPid++
	pid := m.nextPid

	var pgid, sid ProcessID
	if asSessionLeader {
		pgid, sid = pid, pid
		m.sessions[sid] = newSession(sid, pid)
	} else {
		parent := m.processes[ppid]
		pgid, sid = parent.Pgid, parent.Sid
		parent.children = append(parent.children, pid)
	}

	p := newProcess(pid, ppid, pgid, sid)
	m.processes[pid] = p

	g, ok := m.groups[pgid]
	if !ok {
		g = newProcessGroup(pgid, sid)
		m.groups[pgid] = g
	}
	g.add(pid)
	if s, ok := m.sessions[sid]; ok {
		s.groups[pgid] = true
	}

	m.makeRunnable(pid)
	return p
}

// Process returns the process for pid, if it still exists.
func (m *Manager) Process(pid ProcessID) (*Process, bool) {
	p, ok := m.processes[pid]
	return p, ok
}

// Fork duplicates parent into a new process in the same group/session,
//: physical copy (modeled here as sharing OFD handles
// with incremented usage, since this module has no real page frames to
// copy), cloned FD table, forked signal table (pending faults sticky,
// everything else cleared), joined to the parent's process group.
func (m *Manager) Fork(parentPid ProcessID) (ProcessID, iocommon.Errno) {
	parent, ok := m.processes[parentPid]
	if !ok {
		return 0, iocommon.ESRCH
	}

	m.nextPid++
	childPid := m.nextPid
	child := newProcess(childPid, parentPid, parent.Pgid, parent.Sid)
	child.Signals = parent.Signals.Fork()
	child.fpuInitialized = parent.fpuInitialized
	child.cwd = parent.cwd
	child.umask = parent.umask

	for fd, e := range parent.fds {
		if !e.inUse {
			continue
		}
		if _, errno := m.ofds.Dup(e.handle); errno != iocommon.OK {
			continue
		}
		child.fds[fd] = e
	}

	m.processes[childPid] = child
	m.groups[parent.Pgid].add(childPid)
	parent.children = append(parent.children, childPid)
	m.makeRunnable(childPid)

	return childPid, iocommon.OK
}

// ResetOnExec applies the exec-time descriptor/signal
// cleanup to pid: FD_CLOEXEC descriptors and every directory descriptor
// are closed, caught signal handlers reset to default, FPU state marked
// uninitialized. isDirectoryFD reports whether the given handle refers
// to a directory (supplied by the caller, since proc has no VFS
// dependency beyond the OFD pool).
func (m *Manager) ResetOnExec(pid ProcessID, isDirectory func(vfs.OFDHandle) bool) iocommon.Errno {
	p, ok := m.processes[pid]
	if !ok {
		return iocommon.ESRCH
	}
	for fd := 0; fd < MaxFileDescriptors; fd++ {
		e := p.fds[fd]
		if !e.inUse {
			continue
		}
		if e.flags&CloseOnExec != 0 || isDirectory(e.handle) {
			m.ofds.Release(e.handle)
			p.fds[fd] = fdEntry{}
		}
	}
	p.Signals.ResetOnExec()
	p.fpuInitialized = false
	return iocommon.OK
}

// makeRunnable adds pid to the runnable list if it is not already
// there, satisfying the invariant "a process is on the runnable list
// iff state == RUNNABLE".
func (m *Manager) makeRunnable(pid ProcessID) {
	if _, already := m.runElems[pid]; already {
		return
	}
	if p, ok := m.processes[pid]; ok {
		p.State = StateRunnable
	}
	elem := m.runnable.PushBack(pid)
	m.runElems[pid] = elem
	m.quotaUsed[pid] = 0
	if m.current == nil {
		m.current = elem
	}
}

// makeNonRunnable removes pid from the runnable list, transitioning it
// to newState (Stopped, Zombie, or one of the SUSPENDED_WAITING_* states).
func (m *Manager) makeNonRunnable(pid ProcessID, newState State) {
	elem, ok := m.runElems[pid]
	if !ok {
		if p, ok := m.processes[pid]; ok {
			p.State = newState
		}
		return
	}
	advanceCurrent := m.current == elem
	m.runnable.Remove(elem)
	delete(m.runElems, pid)
	delete(m.quotaUsed, pid)
	if p, ok := m.processes[pid]; ok {
		p.State = newState
	}
	if advanceCurrent {
		m.current = m.runnable.Front()
	}
}

// CurrentProcess returns the pid the round-robin scheduler is currently
// running, or false if no process is runnable (the idle task halts).
func (m *Manager) CurrentProcess() (ProcessID, bool) {
	if m.current == nil {
		return 0, false
	}
	return m.current.Value, true
}

// Iteration returns the scheduler's current iteration id.
func (m *Manager) Iteration() uint64 { return m.iteration }

// Tick advances the scheduler by one PIT tick: the
// current process's quota increments; once it reaches
// TicksPerIteration the scheduler round-robins to the next runnable
// process; once every runnable process has exhausted its quota, the
// iteration id increments and all quotas reset.
func (m *Manager) Tick() {
	pid, ok := m.CurrentProcess()
	if !ok {
		return
	}
	m.quotaUsed[pid]++
	if m.quotaUsed[pid] < TicksPerIteration {
		return
	}

	next := m.current.Next()
	if next == nil {
		next = m.runnable.Front()
	}
	m.current = next

	allExhausted := true
	m.runnable.Do(func(p ProcessID) {
		if m.quotaUsed[p] < TicksPerIteration {
			allExhausted = false
		}
	})
	if allExhausted {
		m.iteration++
		for p := range m.quotaUsed {
			m.quotaUsed[p] = 0
		}
	}
}

// Stop transitions pid to Stopped, removing it from the runnable list.
func (m *Manager) Stop(pid ProcessID) {
	m.makeNonRunnable(pid, StateStopped)
	if p, ok := m.processes[pid]; ok {
		p.pendingNotify = NotifyStopped
	}
}

// Continue transitions pid back to Runnable after a stop.
func (m *Manager) Continue(pid ProcessID) {
	if p, ok := m.processes[pid]; ok && p.State == StateStopped {
		p.pendingNotify = NotifyContinued
	}
	m.makeRunnable(pid)
}

// Suspend transitions pid to a SUSPENDED_WAITING_* state, removing it
// from the runnable list (voluntary blocking).
func (m *Manager) Suspend(pid ProcessID, state State) {
	m.makeNonRunnable(pid, state)
}

// Resume wakes pid from a suspended-waiting state back to Runnable.
func (m *Manager) Resume(pid ProcessID) {
	m.makeRunnable(pid)
}
