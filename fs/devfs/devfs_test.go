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

package devfs

import (
	"testing"

	"github.com/gokernel/gokernel/iocommon"
	"github.com/gokernel/gokernel/vfs"
	"github.com/stretchr/testify/require"
)

func newTestDevFS(t *testing.T) *FileSystem {
	t.Helper()
	fs := New(4)
	require.Equal(t, iocommon.OK, fs.Register("null", NewNull(fs)))
	require.Equal(t, iocommon.OK, fs.Register("zero", NewZero(fs)))
	return fs
}

func TestWalkFindsRegisteredDevices(t *testing.T) {
	fs := newTestDevFS(t)

	node, _, errno := fs.Walk("null", false, 0)
	require.Equal(t, iocommon.OK, errno)
	require.Equal(t, vfs.ModeCharDevice, node.GetMode())

	_, _, errno = fs.Walk("missing", false, 0)
	require.Equal(t, iocommon.ENOENT, errno)
}

func TestRegisterRejectsDuplicateNameAndOverCapacity(t *testing.T) {
	fs := New(1)
	require.Equal(t, iocommon.OK, fs.Register("null", NewNull(fs)))
	require.Equal(t, iocommon.EEXIST, fs.Register("null", NewNull(fs)))
	require.Equal(t, iocommon.ENOSPC, fs.Register("zero", NewZero(fs)))
}

func TestNullReadsZeroBytesAndDiscardsWrites(t *testing.T) {
	fs := newTestDevFS(t)
	node, _, errno := fs.Walk("null", false, 0)
	require.Equal(t, iocommon.OK, errno)

	buf := make([]byte, 16)
	n, errno := node.Read(0, buf)
	require.Equal(t, iocommon.OK, errno)
	require.Equal(t, 0, n)

	n, errno = node.Write(0, []byte("discarded"))
	require.Equal(t, iocommon.OK, errno)
	require.Equal(t, len("discarded"), n)
}

func TestZeroFillsReadBuffer(t *testing.T) {
	fs := newTestDevFS(t)
	node, _, errno := fs.Walk("zero", false, 0)
	require.Equal(t, iocommon.OK, errno)

	buf := []byte{1, 2, 3, 4}
	n, errno := node.Read(0, buf)
	require.Equal(t, iocommon.OK, errno)
	require.Equal(t, len(buf), n)
	for _, b := range buf {
		require.Equal(t, byte(0), b)
	}
}

func TestReadDirectoryEntryListsDevicesInSortedOrder(t *testing.T) {
	fs := newTestDevFS(t)

	entry, next, errno := fs.ReadDirectoryEntry(0)
	require.Equal(t, iocommon.OK, errno)
	require.Equal(t, "null", entry.Name)

	entry, next, errno = fs.ReadDirectoryEntry(next)
	require.Equal(t, iocommon.OK, errno)
	require.Equal(t, "zero", entry.Name)

	entry, _, errno = fs.ReadDirectoryEntry(next)
	require.Equal(t, iocommon.OK, errno)
	require.True(t, entry.EndOfDirectory)
}
