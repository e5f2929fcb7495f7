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

package syscalls_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokernel/gokernel/iocommon"
	"github.com/gokernel/gokernel/proc"
	"github.com/gokernel/gokernel/signal"
	"github.com/gokernel/gokernel/syscalls"
)

func TestGetpidGetppidFork(t *testing.T) {
	d, _, pid := newTestDispatcher(t)
	self, errno := d.DoGetpid(pid)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, pid, self)

	child, errno := d.DoFork(pid)
	require.Equal(t, iocommon.OK, errno)
	assert.NotEqual(t, proc.ProcessID(0), child)

	ppid, errno := d.DoGetppid(child)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, pid, ppid)
}

func TestExitThenWaitReportsStatus(t *testing.T) {
	d, _, pid := newTestDispatcher(t)
	child, errno := d.DoFork(pid)
	require.Equal(t, iocommon.OK, errno)

	require.Equal(t, iocommon.OK, d.DoExit(child, 7))

	res, errno := d.DoWait(pid, int64(child), proc.WaitOptions{})
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, child, res.Pid)
}

func TestKillSingleProcess(t *testing.T) {
	d, _, pid := newTestDispatcher(t)
	child, errno := d.DoFork(pid)
	require.Equal(t, iocommon.OK, errno)

	scope := syscalls.KillScope{Pid: child}
	require.Equal(t, iocommon.OK, d.DoKill(scope, signal.SIGTERM))
}

func TestKillUnknownPidReturnsESRCH(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	scope := syscalls.KillScope{Pid: 9999}
	assert.Equal(t, iocommon.ESRCH, d.DoKill(scope, signal.SIGTERM))
}

func TestSigactionRoundTripsOldDisposition(t *testing.T) {
	d, _, pid := newTestDispatcher(t)
	old, errno := d.DoSigaction(pid, signal.SIGTERM, signal.Handler{Disposition: signal.DispositionIgnore}, signal.Sigaction{})
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, signal.DispositionDefault, old.Disposition)

	old, errno = d.DoSigaction(pid, signal.SIGTERM, signal.Handler{Disposition: signal.DispositionHandler}, signal.Sigaction{})
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, signal.DispositionIgnore, old.Disposition)
}

func TestSigprocmaskBlockAndUnblock(t *testing.T) {
	d, _, pid := newTestDispatcher(t)
	mask := signal.Set(0).Add(signal.SIGTERM)

	old, errno := d.DoSigprocmask(pid, signal.SIG_BLOCK, mask)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, signal.Set(0), old)

	old, errno = d.DoSigprocmask(pid, signal.SIG_UNBLOCK, mask)
	require.Equal(t, iocommon.OK, errno)
	assert.True(t, old.Has(signal.SIGTERM))
}

func TestSetsidCreatesNewSessionAndGetsid(t *testing.T) {
	d, _, pid := newTestDispatcher(t)
	child, errno := d.DoFork(pid)
	require.Equal(t, iocommon.OK, errno)

	sid, errno := d.DoSetsid(child)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, child, sid)

	got, errno := d.DoGetsid(child)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, child, got)
}

func TestSetpgidGetpgid(t *testing.T) {
	d, _, pid := newTestDispatcher(t)
	a, errno := d.DoFork(pid)
	require.Equal(t, iocommon.OK, errno)
	b, errno := d.DoFork(pid)
	require.Equal(t, iocommon.OK, errno)

	require.Equal(t, iocommon.OK, d.DoSetpgid(a, a))
	require.Equal(t, iocommon.OK, d.DoSetpgid(b, a))
	pgid, errno := d.DoGetpgid(b)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, a, pgid)
}

func TestSleepSuspendsThenWakeFromSleepResumes(t *testing.T) {
	d, _, pid := newTestDispatcher(t)
	require.Equal(t, iocommon.OK, d.DoSleep(pid))
	d.WakeFromSleep(pid)

	// Still addressable after the round trip.
	self, errno := d.DoGetpid(pid)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, pid, self)
}
