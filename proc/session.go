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

// Session returns the session for sid, if it exists.
func (m *Manager) Session(sid ProcessID) (*Session, bool) {
	s, ok := m.sessions[sid]
	return s, ok
}

// IsSessionLeader reports whether pid is the leader of its own session.
func (m *Manager) IsSessionLeader(pid ProcessID) bool {
	p, ok := m.processes[pid]
	if !ok {
		return false
	}
	s, ok := m.sessions[p.Sid]
	return ok && s.LeaderPid == pid
}

// AcquireControllingTTY implements the controlling-TTY
// acquisition rule: only a session leader that does not already have a
// controlling TTY, and only when tty is not already associated with
// some other session, may associate with it. On success the session's
// foreground process group is set to the caller's own group.
func (m *Manager) AcquireControllingTTY(pid ProcessID, tty ControllingTTY) iocommon.Errno {
	p, ok := m.processes[pid]
	if !ok {
		return iocommon.ESRCH
	}
	s, ok := m.sessions[p.Sid]
	if !ok || s.LeaderPid != pid {
		return iocommon.EPERM
	}
	if s.ControllingTTY != nil {
		return iocommon.EPERM
	}
	for _, other := range m.sessions {
		if other.ControllingTTY == tty {
			return iocommon.EPERM
		}
	}
	s.ControllingTTY = tty
	s.ForegroundPgid = p.Pgid
	return iocommon.OK
}

// SetForegroundGroup changes sid's foreground process group, the
// target of terminal-generated signals (tcsetpgrp(2)).
func (m *Manager) SetForegroundGroup(sid, pgid ProcessID) iocommon.Errno {
	s, ok := m.sessions[sid]
	if !ok {
		return iocommon.ESRCH
	}
	if _, ok := m.groups[pgid]; !ok {
		return iocommon.ESRCH
	}
	s.ForegroundPgid = pgid
	return iocommon.OK
}

// ForegroundGroup returns sid's current foreground process group.
func (m *Manager) ForegroundGroup(sid ProcessID) (ProcessID, bool) {
	s, ok := m.sessions[sid]
	if !ok {
		return 0, false
	}
	return s.ForegroundPgid, true
}

// SessionOf returns pid's session id.
func (m *Manager) SessionOf(pid ProcessID) (ProcessID, bool) {
	p, ok := m.processes[pid]
	if !ok {
		return 0, false
	}
	return p.Sid, true
}
