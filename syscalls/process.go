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
	"github.com/gokernel/gokernel/iocommon"
	"github.com/gokernel/gokernel/proc"
	"github.com/gokernel/gokernel/signal"
)

// DoGetpid and DoGetppid implement the GETPID/GETPPID: return
// the id, no failure mode beyond the process having vanished out from
// under the caller (which cannot happen for "self").
func (d *Dispatcher) DoGetpid(pid proc.ProcessID) (proc.ProcessID, iocommon.Errno) {
	defer d.stats.record(Getpid)
	p, errno := d.process(pid)
	if errno != iocommon.OK {
		return 0, errno
	}
	return p.Pid, iocommon.OK
}

func (d *Dispatcher) DoGetppid(pid proc.ProcessID) (proc.ProcessID, iocommon.Errno) {
	defer d.stats.record(Getppid)
	p, errno := d.process(pid)
	if errno != iocommon.OK {
		return 0, errno
	}
	return p.Ppid, iocommon.OK
}

// DoFork implements the FORK: "returns child pid in parent, 0
// in child". Dispatcher has no two physical call frames to give back
// two different answers from one call, so — matching how this
// dispatcher already hands callers Go-native results instead of
// raw register values — it simply returns the child pid; the
// caller-side trampoline that actually duplicates the calling
// context is responsible for zeroing eax in the child's copy.
func (d *Dispatcher) DoFork(pid proc.ProcessID) (proc.ProcessID, iocommon.Errno) {
	defer d.stats.record(Fork)
	return d.Procs.Fork(pid)
}

// DoExit implements the EXIT.
func (d *Dispatcher) DoExit(pid proc.ProcessID, status uint8) iocommon.Errno {
	defer d.stats.record(Exit)
	return d.Procs.Exit(pid, signal.NewExited(status))
}

// DoWait implements the WAIT.
func (d *Dispatcher) DoWait(pid proc.ProcessID, scope int64, opts proc.WaitOptions) (proc.WaitResult, iocommon.Errno) {
	defer d.stats.record(Wait)
	return d.Procs.Wait(pid, scope, opts)
}

// KillScope selects KILL's target ("scope, signal"): a single pid, or
// with Group set a process group. There is no scope for every process
// the caller may signal.
type KillScope struct {
	Pid   proc.ProcessID
	Group bool
}

// DoKill implements the KILL, generating sig against a single
// process or, with Group set, every member of a process group.
func (d *Dispatcher) DoKill(scope KillScope, sig signal.Signal) iocommon.Errno {
	defer d.stats.record(Kill)
	if scope.Group {
		d.Procs.SignalGroup(scope.Pid, sig, false)
		return iocommon.OK
	}
	return d.Procs.GenerateSignal(scope.Pid, sig, false)
}

// DoSigaction implements the SIGACTION: install a new
// handler/sigaction for sig, returning the previous disposition. Only
// the Disposition of the returned Handler is filled in; its Callback
// and the previous Sigaction are not returned.
func (d *Dispatcher) DoSigaction(pid proc.ProcessID, sig signal.Signal, newHandler signal.Handler, newAction signal.Sigaction) (signal.Handler, iocommon.Errno) {
	defer d.stats.record(Sigaction)
	p, errno := d.process(pid)
	if errno != iocommon.OK {
		return signal.Handler{}, errno
	}
	old := p.Signals.Disposition(sig)
	errno = p.Signals.ChangeSignalAction(sig, newHandler, newAction)
	return signal.Handler{Disposition: old}, errno
}

// DoSigprocmask implements the SIGPROCMASK: apply op/arg to
// the caller's blocked-signal mask, returning the mask as it was
// before the change.
func (d *Dispatcher) DoSigprocmask(pid proc.ProcessID, op signal.BlockageOp, arg signal.Set) (signal.Set, iocommon.Errno) {
	defer d.stats.record(Sigprocmask)
	p, errno := d.process(pid)
	if errno != iocommon.OK {
		return 0, errno
	}
	return p.Signals.ChangeSignalsBlockage(op, arg), iocommon.OK
}

// DoSetsid implements the SETSID.
func (d *Dispatcher) DoSetsid(pid proc.ProcessID) (proc.ProcessID, iocommon.Errno) {
	defer d.stats.record(Setsid)
	return d.Procs.SetSid(pid)
}

// DoGetsid implements the GETSID.
func (d *Dispatcher) DoGetsid(pid proc.ProcessID) (proc.ProcessID, iocommon.Errno) {
	defer d.stats.record(Getsid)
	sid, ok := d.Procs.SessionOf(pid)
	if !ok {
		return 0, iocommon.ESRCH
	}
	return sid, iocommon.OK
}

// DoSetpgid implements the SETPGID.
func (d *Dispatcher) DoSetpgid(pid, targetPgid proc.ProcessID) iocommon.Errno {
	defer d.stats.record(Setpgid)
	return d.Procs.SetPgid(pid, targetPgid)
}

// DoGetpgid implements the GETPGID.
func (d *Dispatcher) DoGetpgid(pid proc.ProcessID) (proc.ProcessID, iocommon.Errno) {
	defer d.stats.record(Getpgid)
	pgid, ok := d.Procs.ProcessGroupOf(pid)
	if !ok {
		return 0, iocommon.ESRCH
	}
	return pgid, iocommon.OK
}

// DoSleep implements the SLEEP state transition only: it suspends the
// caller in StateSuspendedWaitingIO, since proc has no separate sleeping
// state. It takes no duration and schedules no wakeup; Dispatcher has no
// command scheduler of its own, so the timer and the later call to
// WakeFromSleep are left to the caller's sched.CommandScheduler.
func (d *Dispatcher) DoSleep(pid proc.ProcessID) iocommon.Errno {
	defer d.stats.record(Sleep)
	p, errno := d.process(pid)
	if errno != iocommon.OK {
		return errno
	}
	d.Procs.Suspend(p.Pid, proc.StateSuspendedWaitingIO)
	return iocommon.OK
}

// WakeFromSleep resumes pid after its sleep timer elapses or a signal
// interrupts it. It does not check why pid is suspended: a process
// suspended on anything else is resumed as well.
func (d *Dispatcher) WakeFromSleep(pid proc.ProcessID) {
	d.Procs.Resume(pid)
}
