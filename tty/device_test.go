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

package tty

import (
	"testing"

	"github.com/gokernel/gokernel/iocommon"
	"github.com/gokernel/gokernel/proc"
	"github.com/gokernel/gokernel/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T) (*proc.Manager, *proc.Process, *Device) {
	t.Helper()
	m := proc.NewManager(vfs.NewOFDPool(64))
	leader := m.Init()
	d := NewDevice(m, 80, 24)
	require.Equal(t, iocommon.OK, d.Open(leader.Pid, false))
	return m, leader, d
}

// TestCanonicalEchoEraseScenario types "a","b",ERASE,"c",ENTER and
// expects the queued line to be "ac\n" with ERASE undone via ECHOE's
// backspace-space-backspace and the surviving characters rendered at
// the cursor.
func TestCanonicalEchoEraseScenario(t *testing.T) {
	_, leader, d := newTestDevice(t)

	for _, b := range []byte{'a', 'b', d.Termios.Cc[VERASE], 'c', '\n'} {
		d.Input(b)
	}

	require.Equal(t, 1, d.input.completeLines)

	buf := make([]byte, 8)
	n, errno := d.Read(leader.Pid, buf)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, "ac\n", string(buf[:n]))

	assert.Equal(t, 'c', d.main.visible[0][1].ch)
}

// TestRawModeReadsWithoutWaitingForLine verifies ICANON off delivers
// whatever bytes are queued, with no line/EOF gating.
func TestRawModeReadsWithoutWaitingForLine(t *testing.T) {
	_, leader, d := newTestDevice(t)
	d.Termios.Local &^= ICANON

	d.Input('x')
	d.Input('y')

	buf := make([]byte, 8)
	n, errno := d.Read(leader.Pid, buf)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, "xy", string(buf[:n]))
}

// TestCanonicalReadBeforeLineCompleteIsEAGAIN documents the
// non-blocking convention: a canonical read with no complete line and
// no pending EOF reports EAGAIN rather than blocking.
func TestCanonicalReadBeforeLineCompleteIsEAGAIN(t *testing.T) {
	_, leader, d := newTestDevice(t)
	d.Input('a')

	buf := make([]byte, 8)
	_, errno := d.Read(leader.Pid, buf)
	assert.Equal(t, iocommon.EAGAIN, errno)
}

// TestEOFMarkerReadsAsZeroWithoutConsumingLine checks VEOF queues a
// zero-byte OK read distinct from EAGAIN.
func TestEOFMarkerReadsAsZeroWithoutConsumingLine(t *testing.T) {
	_, leader, d := newTestDevice(t)
	d.Input(d.Termios.Cc[VEOF])

	buf := make([]byte, 8)
	n, errno := d.Read(leader.Pid, buf)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, 0, n)
}

// TestKillErasesWholeLine verifies KILL drops every byte of the
// current unterminated line and nothing before it.
func TestKillErasesWholeLine(t *testing.T) {
	_, leader, d := newTestDevice(t)
	d.Input('a')
	d.Input('\n')
	d.Input('b')
	d.Input('c')
	d.Input(d.Termios.Cc[VKILL])
	d.Input('d')
	d.Input('\n')

	buf := make([]byte, 8)
	n, errno := d.Read(leader.Pid, buf)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, "a\n", string(buf[:n]))

	n, errno = d.Read(leader.Pid, buf)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, "d\n", string(buf[:n]))
}

// TestOnlySessionLeaderAcquiresControllingTTY exercises the Device.Open
// gate via proc's controlling-TTY rule: a non-leader's Open is a no-op
// (no controlling TTY acquired), so no foreground-group check ever
// blocks it.
func TestOnlySessionLeaderAcquiresControllingTTY(t *testing.T) {
	m := proc.NewManager(vfs.NewOFDPool(64))
	leader := m.Init()
	childPid, errno := m.Fork(leader.Pid)
	require.Equal(t, iocommon.OK, errno)

	d := NewDevice(m, 80, 24)
	require.Equal(t, iocommon.OK, d.Open(childPid, false))
	assert.Equal(t, proc.ProcessID(0), d.sid)

	require.Equal(t, iocommon.OK, d.Open(leader.Pid, false))
	assert.Equal(t, leader.Sid, d.sid)
}

// TestBackgroundReadFromOrphanedGroupIsEIO exercises the EIO leg of the
// background-process discipline: a caller whose process group is
// orphaned relative to the controlling session cannot be made to stop
// via SIGTTIN, so the read fails outright.
func TestBackgroundReadFromOrphanedGroupIsEIO(t *testing.T) {
	m := proc.NewManager(vfs.NewOFDPool(64))
	leader := m.Init()
	other := m.Init() // a second, unrelated session/group leader

	d := NewDevice(m, 80, 24)
	require.Equal(t, iocommon.OK, d.Open(leader.Pid, false))

	buf := make([]byte, 8)
	_, errno := d.Read(other.Pid, buf)
	assert.Equal(t, iocommon.EIO, errno)
}

// TestWriteOutsideForegroundWithoutTOSTOPSucceeds verifies TOSTOP must
// be set for SIGTTOU background-write discipline to apply at all.
func TestWriteOutsideForegroundWithoutTOSTOPSucceeds(t *testing.T) {
	m := proc.NewManager(vfs.NewOFDPool(64))
	leader := m.Init()
	other := m.Init()

	d := NewDevice(m, 80, 24)
	require.Equal(t, iocommon.OK, d.Open(leader.Pid, false))

	n, errno := d.Write(other.Pid, []byte("hi"))
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, 2, n)
}

// TestCSICursorPositionAndSGR exercises the ECMA-48 output subset: CSI
// H moves the cursor and CSI m changes the current SGR color state
// subsequent plain output is rendered with.
func TestCSICursorPositionAndSGR(t *testing.T) {
	_, leader, d := newTestDevice(t)

	_, errno := d.Write(leader.Pid, []byte("\x1b[2;3H\x1b[31mX"))
	require.Equal(t, iocommon.OK, errno)

	assert.Equal(t, 1, d.cursorRow)
	assert.Equal(t, 3, d.cursorCol)
	assert.Equal(t, 'X', d.main.visible[1][2].ch)
	assert.Equal(t, Color(1), d.main.visible[1][2].fg)
}

// TestAltScreenToggleSwapsRenderTarget checks CSI ?1049h/l switches
// subsequent output between the main and alternate screens.
func TestAltScreenToggleSwapsRenderTarget(t *testing.T) {
	_, leader, d := newTestDevice(t)

	_, errno := d.Write(leader.Pid, []byte("\x1b[?1049hA"))
	require.Equal(t, iocommon.OK, errno)
	assert.True(t, d.altActive)
	assert.Equal(t, 'A', d.alt.visible[0][0].ch)

	_, errno = d.Write(leader.Pid, []byte("\x1b[?1049l"))
	require.Equal(t, iocommon.OK, errno)
	assert.False(t, d.altActive)
}
