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
	"testing"

	"github.com/gokernel/gokernel/iocommon"
	"github.com/gokernel/gokernel/signal"
	"github.com/gokernel/gokernel/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *Process) {
	t.Helper()
	m := NewManager(vfs.NewOFDPool(64))
	init := m.Init()
	require.Equal(t, ProcessID(1), init.Pid)
	return m, init
}

func isRunnable(m *Manager, pid ProcessID) bool {
	_, ok := m.runElems[pid]
	return ok
}

func TestRunnableListInvariant(t *testing.T) {
	m, init := newTestManager(t)
	assert.True(t, isRunnable(m, init.Pid), "a process is on the runnable list iff state == RUNNABLE")

	m.Stop(init.Pid)
	assert.False(t, isRunnable(m, init.Pid))
	assert.Equal(t, StateStopped, init.State)

	m.Continue(init.Pid)
	assert.True(t, isRunnable(m, init.Pid))
	assert.Equal(t, StateRunnable, init.State)

	m.Suspend(init.Pid, StateSuspendedWaitingIO)
	assert.False(t, isRunnable(m, init.Pid))

	m.Resume(init.Pid)
	assert.True(t, isRunnable(m, init.Pid))
}

func TestForkDuplicatesDescriptorsAndClearsPendingSignals(t *testing.T) {
	m, init := newTestManager(t)

	node := newFakeFile()
	h, errno := m.ofds.Acquire(node, 0)
	require.Equal(t, iocommon.OK, errno)
	fd, ok := init.AllocateFD(h, 0)
	require.True(t, ok)

	init.Signals.ChangeSignalsBlockage(signal.SIG_SETMASK, signal.Set(0).Add(signal.SIGUSR1))
	init.Signals.GenerateSignal(signal.SIGUSR2, false)

	childPid, errno := m.Fork(init.Pid)
	require.Equal(t, iocommon.OK, errno)
	child, ok := m.Process(childPid)
	require.True(t, ok)

	childHandle, ok := child.LookupFD(fd)
	require.True(t, ok)
	assert.Equal(t, h, childHandle, "dup-based fork shares the same OFD handle")

	assert.Equal(t, init.Signals.Blocked(), child.Signals.Blocked(),
		"after fork, the child's blocked mask equals the parent's")

	sig, action := child.Signals.CalculateAction()
	assert.Equal(t, signal.Signal(0), sig)
	assert.Equal(t, signal.ActionNone, action,
		"pending non-fault signals in the child are zero after fork")

	assert.Equal(t, init.Pgid, child.Pgid)
	assert.Equal(t, init.Sid, child.Sid)
	assert.Contains(t, init.children, childPid)
}

func TestTickAdvancesRoundRobinAfterQuotaExhausted(t *testing.T) {
	m, init := newTestManager(t)
	p2 := m.newProcessLocked(init.Pid, false)

	cur, ok := m.CurrentProcess()
	require.True(t, ok)
	assert.Equal(t, init.Pid, cur)

	for i := 0; i < TicksPerIteration; i++ {
		m.Tick()
	}

	cur, ok = m.CurrentProcess()
	require.True(t, ok)
	assert.Equal(t, p2.Pid, cur, "scheduler round-robins once the current process exhausts its quota")
}

func TestTickIncrementsIterationOnceEveryoneExhausted(t *testing.T) {
	m, init := newTestManager(t)
	m.newProcessLocked(init.Pid, false)

	startIteration := m.Iteration()
	for i := 0; i < TicksPerIteration*2; i++ {
		m.Tick()
	}
	assert.Equal(t, startIteration+1, m.Iteration())
}

func TestExitReparentsChildrenToInit(t *testing.T) {
	m, init := newTestManager(t)
	mid := m.newProcessLocked(init.Pid, false)
	leaf := m.newProcessLocked(mid.Pid, false)

	errno := m.Exit(mid.Pid, signal.NewExited(0))
	require.Equal(t, iocommon.OK, errno)

	reparented, ok := m.Process(leaf.Pid)
	require.True(t, ok)
	assert.Equal(t, init.Pid, reparented.Ppid)
}

func TestWaitReapsExitedChild(t *testing.T) {
	m, init := newTestManager(t)
	child := m.newProcessLocked(init.Pid, false)

	_, errno := m.Wait(init.Pid, int64(child.Pid), WaitOptions{NoHang: true})
	assert.Equal(t, iocommon.OK, errno, "WNOHANG with nothing to report returns OK and no child")

	require.Equal(t, iocommon.OK, m.Exit(child.Pid, signal.NewExited(7)))

	res, errno := m.Wait(init.Pid, int64(child.Pid), WaitOptions{})
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, child.Pid, res.Pid)
	assert.Equal(t, NotifyExited, res.Notify)
	assert.Equal(t, uint8(7), res.Status.ExitCode())

	_, stillThere := m.Process(child.Pid)
	assert.False(t, stillThere, "a reported zombie is reaped from the process table")

	_, errno = m.Wait(init.Pid, int64(child.Pid), WaitOptions{})
	assert.Equal(t, iocommon.ECHILD, errno, "no such child once reaped")
}

func TestWaitAnyChildScope(t *testing.T) {
	m, init := newTestManager(t)
	child := m.newProcessLocked(init.Pid, false)
	require.Equal(t, iocommon.OK, m.Exit(child.Pid, signal.NewExited(0)))

	res, errno := m.Wait(init.Pid, -1, WaitOptions{})
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, child.Pid, res.Pid)
}

// fakeFile is a minimal vfs.Node used only to exercise OFDPool.Acquire in
// these tests; it embeds vfs.UnimplementedNode for every method the tests
// don't touch.
type fakeFile struct {
	vfs.UnimplementedNode
	rc vfs.ReservationCounter
}

func newFakeFile() *fakeFile {
	f := &fakeFile{}
	f.rc.Init(func() {})
	return f
}

func (f *fakeFile) Reserve()                       { f.rc.Reserve() }
func (f *fakeFile) Release()                       { f.rc.Release() }
func (f *fakeFile) UsageCount() int                { return f.rc.UsageCount() }
func (f *fakeFile) GetMode() vfs.Mode              { return vfs.ModeRegular }
func (f *fakeFile) GetSize() int64                 { return 0 }
func (f *fakeFile) GetFileSystem() vfs.FileSystem  { return nil }
