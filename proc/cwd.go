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

import "github.com/gokernel/gokernel/iocommon"

// Cwd returns pid's current working directory.
func (m *Manager) Cwd(pid ProcessID) (string, iocommon.Errno) {
	p, ok := m.processes[pid]
	if !ok {
		return "", iocommon.ESRCH
	}
	return p.cwd, iocommon.OK
}

// SetCwd replaces pid's current working directory; the caller (the
// syscalls dispatcher's chdir handler) is responsible for first
// resolving dir through the VFS and confirming it is a directory.
func (m *Manager) SetCwd(pid ProcessID, dir string) iocommon.Errno {
	p, ok := m.processes[pid]
	if !ok {
		return iocommon.ESRCH
	}
	p.cwd = dir
	return iocommon.OK
}

// Umask returns pid's current file-creation mask.
func (m *Manager) Umask(pid ProcessID) (uint32, iocommon.Errno) {
	p, ok := m.processes[pid]
	if !ok {
		return 0, iocommon.ESRCH
	}
	return p.umask, iocommon.OK
}

// SetUmask replaces pid's umask, returning the previous value, per
// umask(2)'s "returns the previous mask" contract (the UMASK
// syscall: "new → old").
func (m *Manager) SetUmask(pid ProcessID, mask uint32) (uint32, iocommon.Errno) {
	p, ok := m.processes[pid]
	if !ok {
		return 0, iocommon.ESRCH
	}
	old := p.umask
	p.umask = mask & 0777
	return old, iocommon.OK
}
