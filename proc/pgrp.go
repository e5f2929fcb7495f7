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

import "github.com/gokernel/gokernel/iocommon"

// SetSid implements setsid(2): pid becomes the leader of a brand new
// session and of a brand new process group sharing its id, detached
// from any controlling TTY. It fails with EPERM if pid is already a
// process-group leader (pid == its own Pgid), the usual POSIX
// restriction.
func (m *Manager) SetSid(pid ProcessID) (ProcessID, iocommon.Errno) {
	p, ok := m.processes[pid]
	if !ok {
		return 0, iocommon.ESRCH
	}
	if p.Pgid == pid {
		return 0, iocommon.EPERM
	}

	oldGroup := m.groups[p.Pgid]
	oldGroup.remove(pid)
	if oldGroup.empty() {
		delete(m.groups, p.Pgid)
	}

	p.Pgid, p.Sid = pid, pid
	m.sessions[pid] = newSession(pid, pid)
	g := newProcessGroup(pid, pid)
	g.add(pid)
	m.groups[pid] = g
	m.sessions[pid].groups[pid] = true

	return pid, iocommon.OK
}

// SetPgid implements setpgid(2): pid (defaulting targetPgid to pid's
// own id when targetPgid == 0, matching the "pgid == 0 means use pid"
// POSIX convention) moves into process group targetPgid, which is
// created if it does not yet exist. Per the ProcessGroup
// model groups never cross a session boundary, a session leader can
// never change its own group, and a group may only be joined within
// the caller's own session.
func (m *Manager) SetPgid(pid ProcessID, targetPgid ProcessID) iocommon.Errno {
	p, ok := m.processes[pid]
	if !ok {
		return iocommon.ESRCH
	}
	if s, ok := m.sessions[p.Sid]; ok && s.LeaderPid == pid {
		return iocommon.EPERM
	}

	pgid := targetPgid
	if pgid == 0 {
		pgid = pid
	}

	if g, ok := m.groups[pgid]; ok {
		if g.Sid != p.Sid {
			return iocommon.EPERM
		}
	} else if pgid != pid {
		// Joining a not-yet-existent group is only allowed by becoming
		// its own leader (pgid == pid); anything else names a group
		// that does not exist in this session.
		return iocommon.EPERM
	}

	oldGroup := m.groups[p.Pgid]
	oldGroup.remove(pid)
	if oldGroup.empty() {
		delete(m.groups, p.Pgid)
	}

	g, ok := m.groups[pgid]
	if !ok {
		g = newProcessGroup(pgid, p.Sid)
		m.groups[pgid] = g
		if s, ok := m.sessions[p.Sid]; ok {
			s.groups[pgid] = true
		}
	}
	g.add(pid)
	p.Pgid = pgid
	return iocommon.OK
}
