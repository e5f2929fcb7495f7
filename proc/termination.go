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
	"github.com/gokernel/gokernel/iocommon"
	"github.com/gokernel/gokernel/signal"
)

const initPid ProcessID = 1

// Exit terminates pid with status Termination
// description: every open descriptor is closed (releasing its OFD
// reservation), children reparent to init, a controlling-TTY session
// leader disassociates its TTY and SIGHUPs the foreground group, and
// every process group that may have become orphaned by this exit is
// swept for the SIGHUP+SIGCONT-on-stopped-orphan rule.
func (m *Manager) Exit(pid ProcessID, status signal.ExitStatus) iocommon.Errno {
	p, ok := m.processes[pid]
	if !ok {
		return iocommon.ESRCH
	}

	for fd := 0; fd < MaxFileDescriptors; fd++ {
		if h, released := p.CloseFD(fd); released {
			m.ofds.Release(h)
		}
	}

	for _, childPid := range p.children {
		if child, ok := m.processes[childPid]; ok {
			child.Ppid = initPid
		}
	}

	if s, ok := m.sessions[p.Sid]; ok && s.LeaderPid == pid && s.ControllingTTY != nil {
		s.ControllingTTY.Disassociate()
		if fg, ok := m.groups[s.ForegroundPgid]; ok {
			m.signalGroupLocked(fg, signal.SIGHUP, false)
		}
		s.ControllingTTY = nil
	}

	m.makeNonRunnable(pid, StateZombie)
	p.pendingNotify = NotifyExited
	p.exitStatus = status

	affected := map[ProcessID]bool{p.Pgid: true}
	for _, childPid := range p.children {
		if child, ok := m.processes[childPid]; ok {
			affected[child.Pgid] = true
		}
	}
	for pgid := range affected {
		m.sweepOrphanLocked(pgid)
	}

	return iocommon.OK
}

// isOrphanedLocked reports whether group has no member whose parent is
// in the same session but a different group — the POSIX definition of
// an orphaned process group.
func (m *Manager) isOrphanedLocked(g *ProcessGroup) bool {
	for pid := range g.members {
		p, ok := m.processes[pid]
		if !ok {
			continue
		}
		parent, ok := m.processes[p.Ppid]
		if !ok {
			continue
		}
		if parent.Sid == p.Sid && parent.Pgid != p.Pgid {
			return false
		}
	}
	return true
}

func (m *Manager) sweepOrphanLocked(pgid ProcessID) {
	g, ok := m.groups[pgid]
	if !ok || g.empty() {
		return
	}
	if !m.isOrphanedLocked(g) {
		return
	}
	hasStopped := false
	for pid := range g.members {
		if p, ok := m.processes[pid]; ok && p.State == StateStopped {
			hasStopped = true
			break
		}
	}
	if !hasStopped {
		return
	}
	m.signalGroupLocked(g, signal.SIGHUP, false)
	m.signalGroupLocked(g, signal.SIGCONT, false)
}

// signalGroupLocked delivers sig to every member of g.
func (m *Manager) signalGroupLocked(g *ProcessGroup, sig signal.Signal, fromFault bool) {
	for pid := range g.members {
		if p, ok := m.processes[pid]; ok {
			m.applyGeneratedSignal(p, sig, fromFault)
		}
	}
}

// Reap removes a zombie child's process-table entry after its exit
// status has been reported to the parent via Wait
func (m *Manager) reap(pid ProcessID) {
	p, ok := m.processes[pid]
	if !ok {
		return
	}
	if g, ok := m.groups[p.Pgid]; ok {
		g.remove(pid)
	}
	if parent, ok := m.processes[p.Ppid]; ok {
		for i, c := range parent.children {
			if c == pid {
				parent.children = append(parent.children[:i], parent.children[i+1:]...)
				break
			}
		}
	}
	delete(m.processes, pid)
}
