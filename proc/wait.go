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

// WaitOptions mirrors the WNOHANG/WUNTRACED/WCONTINUED flags of POSIX
// waitpid(2) Wait description.
type WaitOptions struct {
	NoHang      bool
	ReportStop  bool
	ReportCont  bool
}

// WaitResult reports which child changed state and how.
type WaitResult struct {
	Pid    ProcessID
	Notify NotifyKind
	Status signal.ExitStatus
}

// scopeMatches implements waitpid's four pid-scope rules: pid > 0 waits
// for that one child, pid == -1 (encoded here as wildcard) waits for any
// child, pid == 0 waits for any child sharing the caller's process
// group, and pid < -1 waits for any child in group -pid.
func scopeMatches(caller, child *Process, pid int64) bool {
	switch {
	case pid > 0:
		return child.Pid == ProcessID(pid)
	case pid == 0:
		return child.Pgid == caller.Pgid
	case pid == -1:
		return true
	default:
		return child.Pgid == ProcessID(-pid)
	}
}

// Wait implements the Wait operation: the calling process
// blocks (unless WNOHANG) until a child matching pid's scope has
// exited, stopped (if ReportStop), or continued (if ReportCont);
// reported exits reap the zombie's table entry. Since this module has
// no real scheduler-level blocking primitive, callers that need to
// block are expected to Suspend(callerPid, StateSuspendedWaitingChild)
// and retry Wait on each Tick; Wait itself is always non-blocking and
// reports ECHILD-vs-EAGAIN so the caller can tell "no such child"
// apart from "no child has reported yet". With NoHang set, "no child
// has reported yet" is instead OK with a zero WaitResult, as waitpid's
// WNOHANG returns 0.
func (m *Manager) Wait(callerPid ProcessID, pid int64, opts WaitOptions) (WaitResult, iocommon.Errno) {
	caller, ok := m.processes[callerPid]
	if !ok {
		return WaitResult{}, iocommon.ESRCH
	}

	haveMatchingChild := false
	for _, childPid := range caller.children {
		child, ok := m.processes[childPid]
		if !ok {
			continue
		}
		if !scopeMatches(caller, child, pid) {
			continue
		}
		haveMatchingChild = true

		switch child.pendingNotify {
		case NotifyExited:
			res := WaitResult{Pid: child.Pid, Notify: NotifyExited, Status: child.exitStatus}
			m.reap(child.Pid)
			return res, iocommon.OK
		case NotifyStopped:
			if opts.ReportStop {
				child.pendingNotify = NotifyNone
				return WaitResult{Pid: child.Pid, Notify: NotifyStopped, Status: signal.NewStopped(0)}, iocommon.OK
			}
		case NotifyContinued:
			if opts.ReportCont {
				child.pendingNotify = NotifyNone
				return WaitResult{Pid: child.Pid, Notify: NotifyContinued, Status: signal.NewContinued()}, iocommon.OK
			}
		}
	}

	if !haveMatchingChild {
		return WaitResult{}, iocommon.ECHILD
	}
	if opts.NoHang {
		return WaitResult{}, iocommon.OK
	}
	return WaitResult{}, iocommon.EAGAIN
}
