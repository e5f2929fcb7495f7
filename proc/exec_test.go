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
	"strings"
	"testing"

	"github.com/gokernel/gokernel/iocommon"
	"github.com/gokernel/gokernel/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noDirectory(vfs.OFDHandle) bool { return false }

func TestExecFlatBinary(t *testing.T) {
	m, init := newTestManager(t)

	files := map[string][]byte{"/bin/hello": {0x7f, 'c', 'o', 'd', 'e'}}
	read := func(path string) ([]byte, iocommon.Errno) {
		data, ok := files[path]
		if !ok {
			return nil, iocommon.ENOENT
		}
		return data, iocommon.OK
	}

	image, errno := m.Exec(init.Pid, read, noDirectory, "/bin/hello", []string{"hello"}, []string{"HOME=/"})
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, files["/bin/hello"], image.Code)
	assert.Equal(t, []string{"hello"}, image.Argv)
}

func TestExecScriptPrependsInterpreter(t *testing.T) {
	m, init := newTestManager(t)

	files := map[string][]byte{
		"/bin/run.sh": []byte("#!/bin/sh -e\necho hi\n"),
		"/bin/sh":     {0x7f, 's', 'h'},
	}
	read := func(path string) ([]byte, iocommon.Errno) {
		data, ok := files[path]
		if !ok {
			return nil, iocommon.ENOENT
		}
		return data, iocommon.OK
	}

	image, errno := m.Exec(init.Pid, read, noDirectory, "/bin/run.sh", []string{"run.sh", "arg1"}, nil)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, files["/bin/sh"], image.Code)
	assert.Equal(t, []string{"/bin/sh", "-e", "/bin/run.sh", "arg1"}, image.Argv)
}

func TestExecScriptInterpreterArgIsNotReTokenized(t *testing.T) {
	m, init := newTestManager(t)

	files := map[string][]byte{
		"/bin/run.sh": []byte("#!/bin/interp -a -b\necho hi\n"),
		"/bin/interp": {0x7f, 'i'},
	}
	read := func(path string) ([]byte, iocommon.Errno) {
		data, ok := files[path]
		if !ok {
			return nil, iocommon.ENOENT
		}
		return data, iocommon.OK
	}

	image, errno := m.Exec(init.Pid, read, noDirectory, "/bin/run.sh", []string{"run.sh"}, nil)
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, files["/bin/interp"], image.Code)
	assert.Equal(t, []string{"/bin/interp", "-a -b", "/bin/run.sh"}, image.Argv)
}

func TestExecScriptDepthCapIsENOEXEC(t *testing.T) {
	m, init := newTestManager(t)

	read := func(path string) ([]byte, iocommon.Errno) {
		return []byte("#!" + path + "\n"), iocommon.OK
	}

	_, errno := m.Exec(init.Pid, read, noDirectory, "/a", []string{"/a"}, nil)
	assert.Equal(t, iocommon.ENOEXEC, errno)
}

func TestExecArgMaxExceededIsE2BIG(t *testing.T) {
	m, init := newTestManager(t)

	read := func(path string) ([]byte, iocommon.Errno) { return []byte{0}, iocommon.OK }
	huge := strings.Repeat("x", ArgMax)

	_, errno := m.Exec(init.Pid, read, noDirectory, "/bin/hello", []string{huge}, nil)
	assert.Equal(t, iocommon.E2BIG, errno)
}

func TestExecResetsSignalHandlersAndClosesCloexecFDs(t *testing.T) {
	m, init := newTestManager(t)

	node := newFakeFile()
	h, errno := m.ofds.Acquire(node, 0)
	require.Equal(t, iocommon.OK, errno)
	fd, ok := init.AllocateFD(h, CloseOnExec)
	require.True(t, ok)

	read := func(path string) ([]byte, iocommon.Errno) { return []byte{0}, iocommon.OK }
	_, errno = m.Exec(init.Pid, read, noDirectory, "/bin/hello", []string{"hello"}, nil)
	require.Equal(t, iocommon.OK, errno)

	_, stillOpen := init.LookupFD(fd)
	assert.False(t, stillOpen, "FD_CLOEXEC descriptors are closed across exec")
}
