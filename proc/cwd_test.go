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

func TestCwdDefaultsToRootAndIsInheritedByFork(t *testing.T) {
	m, init := newTestManager(t)
	cwd, errno := m.Cwd(init.Pid)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, "/", cwd)

	require.Equal(t, iocommon.OK, m.SetCwd(init.Pid, "/usr/bin"))

	childPid, errno := m.Fork(init.Pid)
	require.Equal(t, iocommon.OK, errno)
	cwd, errno = m.Cwd(childPid)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, "/usr/bin", cwd)
}

func TestUmaskReturnsPreviousValue(t *testing.T) {
	m, init := newTestManager(t)
	old, errno := m.SetUmask(init.Pid, 0)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, uint32(0022), old)

	old, errno = m.SetUmask(init.Pid, 0077)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, uint32(0), old)
}
