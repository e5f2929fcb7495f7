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

// ProcessGroup tracks every live member of one process-group id. Per
// the invariant "a process-group id equals the id of some
// current or former member", a group's id is never reassigned even
// after its last member departs — the Manager simply drops the entry.
type ProcessGroup struct {
	Pgid    ProcessID
	Sid     ProcessID
	members map[ProcessID]bool
}

func newProcessGroup(pgid, sid ProcessID) *ProcessGroup {
	return &ProcessGroup{Pgid: pgid, Sid: sid, members: map[ProcessID]bool{}}
}

func (g *ProcessGroup) add(pid ProcessID)    { g.members[pid] = true }
func (g *ProcessGroup) remove(pid ProcessID) { delete(g.members, pid) }
func (g *ProcessGroup) empty() bool          { return len(g.members) == 0 }

// Members returns the current member pids in no particular order.
func (g *ProcessGroup) Members() []ProcessID {
	out := make([]ProcessID, 0, len(g.members))
	for pid := range g.members {
		out = append(out, pid)
	}
	return out
}

// ControllingTTY is implemented by the tty package's Device; kept as a
// narrow interface here so proc does not import tty (tty imports proc
// for ProcessID/process-group lookups instead).
type ControllingTTY interface {
	Disassociate()
}

// Session groups one or more process groups under a leader and,
// optionally, a controlling terminal.
type Session struct {
	Sid            ProcessID
	LeaderPid      ProcessID
	ControllingTTY ControllingTTY
	ForegroundPgid ProcessID
	groups         map[ProcessID]bool
}

func newSession(sid, leaderPid ProcessID) *Session {
	return &Session{Sid: sid, LeaderPid: leaderPid, groups: map[ProcessID]bool{}}
}
