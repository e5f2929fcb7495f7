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
	"github.com/gokernel/gokernel/syscalls"
	"github.com/gokernel/gokernel/vfs"
)

func TestOpenCreateWriteReadRoundTrips(t *testing.T) {
	d, _, pid := newTestDispatcher(t)

	fd, errno := d.DoOpen(pid, "/greeting.txt", syscalls.OCreat|syscalls.OWrOnly, vfs.ModeRegular)
	require.Equal(t, iocommon.OK, errno)

	n, errno := d.DoWrite(pid, fd, []byte("hello"))
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, 5, n)
	require.Equal(t, iocommon.OK, d.DoClose(pid, fd))

	fd, errno = d.DoOpen(pid, "/greeting.txt", syscalls.ORdOnly, 0)
	require.Equal(t, iocommon.OK, errno)
	buf := make([]byte, 16)
	n, errno = d.DoRead(pid, fd, buf)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestOpenMissingWithoutCreatReturnsENOENT(t *testing.T) {
	d, _, pid := newTestDispatcher(t)
	_, errno := d.DoOpen(pid, "/nope.txt", syscalls.ORdOnly, 0)
	assert.Equal(t, iocommon.ENOENT, errno)
}

func TestLseekSetCurEnd(t *testing.T) {
	d, _, pid := newTestDispatcher(t)
	fd, errno := d.DoOpen(pid, "/f.txt", syscalls.OCreat|syscalls.ORdWr, vfs.ModeRegular)
	require.Equal(t, iocommon.OK, errno)
	_, errno = d.DoWrite(pid, fd, []byte("0123456789"))
	require.Equal(t, iocommon.OK, errno)

	off, errno := d.DoLseek(pid, fd, 0, syscalls.SeekEnd)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, int64(10), off)

	off, errno = d.DoLseek(pid, fd, -5, syscalls.SeekCur)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, int64(5), off)

	off, errno = d.DoLseek(pid, fd, 2, syscalls.SeekSet)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, int64(2), off)
}

func TestMkdirUnlinkRmdir(t *testing.T) {
	d, _, pid := newTestDispatcher(t)
	require.Equal(t, iocommon.OK, d.DoMkdir(pid, "/etc", vfs.ModeDirectory))

	fd, errno := d.DoOpen(pid, "/etc/passwd", syscalls.OCreat|syscalls.OWrOnly, vfs.ModeRegular)
	require.Equal(t, iocommon.OK, errno)
	require.Equal(t, iocommon.OK, d.DoClose(pid, fd))

	assert.Equal(t, iocommon.ENOTEMPTY, d.DoRmdir(pid, "/etc"))
	require.Equal(t, iocommon.OK, d.DoUnlink(pid, "/etc/passwd"))
	assert.Equal(t, iocommon.OK, d.DoRmdir(pid, "/etc"))
}

func TestSymlinkResolves(t *testing.T) {
	d, _, pid := newTestDispatcher(t)
	fd, errno := d.DoOpen(pid, "/real.txt", syscalls.OCreat|syscalls.OWrOnly, vfs.ModeRegular)
	require.Equal(t, iocommon.OK, errno)
	_, errno = d.DoWrite(pid, fd, []byte("x"))
	require.Equal(t, iocommon.OK, errno)
	require.Equal(t, iocommon.OK, d.DoClose(pid, fd))

	require.Equal(t, iocommon.OK, d.DoSymlink(pid, "/real.txt", "/link.txt"))
	fd, errno = d.DoOpen(pid, "/link.txt", syscalls.ORdOnly, 0)
	require.Equal(t, iocommon.OK, errno)
	buf := make([]byte, 4)
	n, errno := d.DoRead(pid, fd, buf)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, "x", string(buf[:n]))
}

func TestRenameMovesEntry(t *testing.T) {
	d, _, pid := newTestDispatcher(t)
	fd, errno := d.DoOpen(pid, "/a.txt", syscalls.OCreat|syscalls.OWrOnly, vfs.ModeRegular)
	require.Equal(t, iocommon.OK, errno)
	require.Equal(t, iocommon.OK, d.DoClose(pid, fd))

	require.Equal(t, iocommon.OK, d.DoRename(pid, "/a.txt", "/b.txt"))
	_, errno = d.DoOpen(pid, "/a.txt", syscalls.ORdOnly, 0)
	assert.Equal(t, iocommon.ENOENT, errno)
	_, errno = d.DoOpen(pid, "/b.txt", syscalls.ORdOnly, 0)
	assert.Equal(t, iocommon.OK, errno)
}

func TestDupAndDup2ShareOffset(t *testing.T) {
	d, _, pid := newTestDispatcher(t)
	fd, errno := d.DoOpen(pid, "/f.txt", syscalls.OCreat|syscalls.ORdWr, vfs.ModeRegular)
	require.Equal(t, iocommon.OK, errno)
	_, errno = d.DoWrite(pid, fd, []byte("abcdef"))
	require.Equal(t, iocommon.OK, errno)
	_, errno = d.DoLseek(pid, fd, 0, syscalls.SeekSet)
	require.Equal(t, iocommon.OK, errno)

	dupFd, errno := d.DoDup(pid, fd)
	require.Equal(t, iocommon.OK, errno)
	assert.NotEqual(t, fd, dupFd)

	buf := make([]byte, 3)
	n, errno := d.DoRead(pid, dupFd, buf)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, "abc", string(buf[:n]))

	// Sharing the same OFD, the original fd's offset also advanced.
	n, errno = d.DoRead(pid, fd, buf)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, "def", string(buf[:n]))

	target := dupFd + 1
	newFd, errno := d.DoDup2(pid, fd, int(target))
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, int(target), newFd)
}

func TestPipeWriteThenRead(t *testing.T) {
	d, _, pid := newTestDispatcher(t)
	r, w, errno := d.DoPipe(pid)
	require.Equal(t, iocommon.OK, errno)

	n, errno := d.DoWrite(pid, w, []byte("ping"))
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, 4, n)

	buf := make([]byte, 16)
	n, errno = d.DoRead(pid, r, buf)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, "ping", string(buf[:n]))
}

func TestGetcwdChdir(t *testing.T) {
	d, _, pid := newTestDispatcher(t)
	cwd, errno := d.DoGetcwd(pid)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, "/", cwd)

	require.Equal(t, iocommon.OK, d.DoMkdir(pid, "/home", vfs.ModeDirectory))
	require.Equal(t, iocommon.OK, d.DoChdir(pid, "/home"))

	cwd, errno = d.DoGetcwd(pid)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, "/home", cwd)
}

func TestUmaskReturnsPrevious(t *testing.T) {
	d, _, pid := newTestDispatcher(t)
	old, errno := d.DoUmask(pid, 0777)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, uint32(0022), old)
}

func TestFtruncateShrinksAndGrows(t *testing.T) {
	d, _, pid := newTestDispatcher(t)
	fd, errno := d.DoOpen(pid, "/f.txt", syscalls.OCreat|syscalls.ORdWr, vfs.ModeRegular)
	require.Equal(t, iocommon.OK, errno)
	_, errno = d.DoWrite(pid, fd, []byte("0123456789"))
	require.Equal(t, iocommon.OK, errno)

	require.Equal(t, iocommon.OK, d.DoFtruncate(pid, fd, 3))
	st, errno := d.DoStat(pid, fd)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, int64(3), st.Size)
}

func TestFcntlSetCloseOnExecRejectsBadFd(t *testing.T) {
	d, _, pid := newTestDispatcher(t)
	assert.Equal(t, iocommon.EBADF, d.DoFcntlSetCloseOnExec(pid, 99, true))
}

func TestReaddirListsEntriesThenReportsEndOfDirectory(t *testing.T) {
	d, _, pid := newTestDispatcher(t)
	require.Equal(t, iocommon.OK, d.DoMkdir(pid, "/dir", vfs.ModeDirectory))
	fd, errno := d.DoOpen(pid, "/dir/one.txt", syscalls.OCreat|syscalls.OWrOnly, vfs.ModeRegular)
	require.Equal(t, iocommon.OK, errno)
	require.Equal(t, iocommon.OK, d.DoClose(pid, fd))

	dirFd, errno := d.DoOpen(pid, "/dir", syscalls.ORdOnly|syscalls.ODirectory, 0)
	require.Equal(t, iocommon.OK, errno)

	entry, errno := d.DoReaddir(pid, dirFd)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, "one.txt", entry.Name)

	entry, errno = d.DoReaddir(pid, dirFd)
	require.Equal(t, iocommon.OK, errno)
	assert.True(t, entry.EndOfDirectory)
}
