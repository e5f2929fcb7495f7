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
	"github.com/gokernel/gokernel/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeReadWriteRoundTripsThroughCurrentProcess(t *testing.T) {
	m, leader, d := newTestDevice(t)
	n := NewNode(m, d)

	_, errno := n.Write(0, []byte("hi"))
	require.Equal(t, iocommon.OK, errno)

	d.Input('x')
	d.Input('\n')

	buf := make([]byte, 8)
	count, errno := n.Read(0, buf)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, "x\n", string(buf[:count]))
	_ = leader
}

func TestNodeIoctlTermiosRoundTrip(t *testing.T) {
	m, _, d := newTestDevice(t)
	n := NewNode(m, d)

	var got Termios
	require.Equal(t, iocommon.OK, n.ManipulateDeviceParameters(IoctlGetTermios, &got))
	assert.Equal(t, d.Termios, got)

	want := Termios{Local: ECHO}
	require.Equal(t, iocommon.OK, n.ManipulateDeviceParameters(IoctlSetTermios, want))
	assert.Equal(t, want, d.Termios)
}

func TestNodeIoctlForegroundGroupTypeCheckAndSet(t *testing.T) {
	m, leader, d := newTestDevice(t)
	n := NewNode(m, d)

	var fg uint32
	errno := n.ManipulateDeviceParameters(IoctlGetForegroundGroup, &fg)
	assert.Equal(t, iocommon.EFAULT, errno, "wrong pointer type is rejected")

	var pg = leader.Pgid
	errno = n.ManipulateDeviceParameters(IoctlSetForegroundGroup, pg)
	require.Equal(t, iocommon.OK, errno)
}

func TestNodeGetModeAndFileSystem(t *testing.T) {
	m, _, d := newTestDevice(t)
	n := NewNode(m, d)

	assert.Equal(t, vfs.ModeCharDevice, n.GetMode())
	assert.Equal(t, "ttyfs", n.GetFileSystem().Name())
	assert.Equal(t, vfs.RepositionNotAllowed, n.GetOpenFileDescriptionOffsetRepositionPolicy())
	assert.Equal(t, 1, n.UsageCount())
}
