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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSidCreatesNewSessionAndGroup(t *testing.T) {
	m, init := newTestManager(t)
	child := m.newProcessLocked(init.Pid, false)

	sid, errno := m.SetSid(child.Pid)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, child.Pid, sid)
	assert.Equal(t, child.Pid, child.Sid)
	assert.Equal(t, child.Pid, child.Pgid)

	_, errno = m.SetSid(init.Pid)
	assert.Equal(t, iocommon.EPERM, errno, "a process-group leader cannot setsid")
}

func TestSetPgidMovesIntoSameSessionGroup(t *testing.T) {
	m, init := newTestManager(t)
	a := m.newProcessLocked(init.Pid, false)
	b := m.newProcessLocked(init.Pid, false)

	require.Equal(t, iocommon.OK, m.SetPgid(a.Pid, a.Pid))
	assert.Equal(t, a.Pid, a.Pgid)

	require.Equal(t, iocommon.OK, m.SetPgid(b.Pid, a.Pid))
	assert.Equal(t, a.Pid, b.Pgid)

	pgid, ok := m.ProcessGroupOf(b.Pid)
	require.True(t, ok)
	assert.Equal(t, a.Pid, pgid)
}

func TestSetPgidRejectsSessionLeaderAndForeignSession(t *testing.T) {
	m, init := newTestManager(t)
	other, errno := m.SetSid(m.newProcessLocked(init.Pid, false).Pid)
	require.Equal(t, iocommon.OK, errno)

	errno = m.SetPgid(init.Pid, init.Pid)
	assert.Equal(t, iocommon.EPERM, errno, "a session leader cannot change its own group")

	child := m.newProcessLocked(init.Pid, false)
	errno = m.SetPgid(child.Pid, other)
	assert.Equal(t, iocommon.EPERM, errno, "cannot join a group in a different session")
}
