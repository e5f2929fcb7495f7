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

	"github.com/stretchr/testify/require"

	"github.com/gokernel/gokernel/clock"
	"github.com/gokernel/gokernel/proc"
	"github.com/gokernel/gokernel/syscalls"
	"github.com/gokernel/gokernel/vfs"
)

// newTestDispatcher wires a Dispatcher over a fresh in-memory root
// filesystem and a freshly booted init process (pid 1), the shape
// cmd/'s real boot sequence assembles: one vfs.OFDPool shared between
// vfs.Manager and proc.Manager.
func newTestDispatcher(t *testing.T) (*syscalls.Dispatcher, *fakeNode, proc.ProcessID) {
	t.Helper()
	vfsMgr := vfs.NewManager(64)
	root := newFakeRoot()
	vfsMgr.Mount("/", root)

	procMgr := proc.NewManager(vfsMgr.OFDs)
	init := procMgr.Init()
	require.Equal(t, proc.ProcessID(1), init.Pid)

	d := syscalls.NewDispatcher(procMgr, vfsMgr, &clock.FakeClock{})
	return d, root, init.Pid
}
