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

// applyGeneratedSignal marks sig pending on p and applies the
// scheduling consequences left to the caller at the Table level:
// SIGKILL/SIGCONT must wake a stopped
// process, and a stop-family signal whose default action applies (no
// handler installed) suspends a runnable process immediately rather
// than waiting for the next dispatch point.
func (m *Manager) applyGeneratedSignal(p *Process, sig signal.Signal, fromFault bool) {
	wake := p.Signals.GenerateSignal(sig, fromFault)
	if wake && p.State == StateStopped {
		m.Continue(p.Pid)
		return
	}

	deliverSig, action := p.Signals.CalculateAction()
	if deliverSig == sig && action == signal.ActionStopProcess && p.State != StateStopped {
		p.Signals.ClearPending(sig)
		m.Stop(p.Pid)
	}
}

// GenerateSignal marks sig pending on pid, applying the scheduling
// consequences from applyGeneratedSignal.
func (m *Manager) GenerateSignal(pid ProcessID, sig signal.Signal, fromFault bool) iocommon.Errno {
	p, ok := m.processes[pid]
	if !ok {
		return iocommon.ESRCH
	}
	m.applyGeneratedSignal(p, sig, fromFault)
	return iocommon.OK
}

// SignalGroup delivers sig to every member of pgid, the primitive the
// TTY line discipline uses for ISIG (VINTR/VQUIT/VSUSP) and its
// background-process SIGTTIN/SIGTTOU/SIGHUP+SIGCONT rules.
func (m *Manager) SignalGroup(pgid ProcessID, sig signal.Signal, fromFault bool) {
	if g, ok := m.groups[pgid]; ok {
		m.signalGroupLocked(g, sig, fromFault)
	}
}

// IsOrphanedGroup reports whether pgid has no member whose parent is in
// the same session but a different group, the POSIX orphaned-group
// test the TTY background-read EIO rule depends on.
func (m *Manager) IsOrphanedGroup(pgid ProcessID) bool {
	g, ok := m.groups[pgid]
	if !ok {
		return true
	}
	return m.isOrphanedLocked(g)
}

// ProcessGroupOf returns pid's current process-group id.
func (m *Manager) ProcessGroupOf(pid ProcessID) (ProcessID, bool) {
	p, ok := m.processes[pid]
	if !ok {
		return 0, false
	}
	return p.Pgid, true
}

// SignalIgnoredOrBlocked reports whether pid would not actually have
// sig delivered right now (handler is SIG_IGN or sig is currently
// blocked) — used by the background-read discipline to decide between
// sending SIGTTIN and returning EIO outright
func (m *Manager) SignalIgnoredOrBlocked(pid ProcessID, sig signal.Signal) bool {
	p, ok := m.processes[pid]
	if !ok {
		return true
	}
	return p.Signals.Disposition(sig) == signal.DispositionIgnore || p.Signals.Blocked().Has(sig)
}
