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
	"bytes"
	"strings"

	"github.com/gokernel/gokernel/iocommon"
	"github.com/gokernel/gokernel/vfs"
)

// ReadFileFunc reads the whole contents of path, the way the syscalls
// layer's exec(2) implementation would after resolving it through the
// VFS. Kept as a callback so proc never needs a vfs.Manager dependency
// beyond the OFD pool it already has.
type ReadFileFunc func(path string) ([]byte, iocommon.Errno)

// ExecImage is the load image Exec hands back to the caller: the raw
// program bytes to map into the code segment starting at CodeBase, and
// the final argv/envp the caller lays out on the new stack. proc has
// no MMU or stack of its own, so actually mapping Code and writing the
// argv/envp layout to user memory is the caller's job; Exec only
// resolves the `#!`/flat-binary program format and validates ARG_MAX.
type ExecImage struct {
	Code []byte
	Argv []string
	Envp []string
}

// resolveExecutable implements the Exec file-header parsing:
// a `#!` prefix triggers script interpretation (first line split into
// interpreter plus one optional argument, prepended to argv), capped at
// ScriptDepthCap levels of indirection; anything else is treated as a
// flat binary mapped bytewise into the code segment.
func resolveExecutable(read ReadFileFunc, path string, argv []string, depth int) ([]byte, []string, iocommon.Errno) {
	if depth > ScriptDepthCap {
		return nil, nil, iocommon.ENOEXEC
	}

	data, errno := read(path)
	if errno != iocommon.OK {
		return nil, nil, errno
	}

	if !bytes.HasPrefix(data, []byte("#!")) {
		return data, argv, iocommon.OK
	}

	line := data[2:]
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	trimmed := strings.TrimSpace(string(line))
	if trimmed == "" {
		return nil, nil, iocommon.ENOEXEC
	}

	// Only the interpreter token is split off; everything else on the
	// line is passed through as a single argument, not re-tokenized.
	interpreter, rest := trimmed, ""
	if i := strings.IndexAny(trimmed, " \t"); i >= 0 {
		interpreter = trimmed[:i]
		rest = strings.TrimSpace(trimmed[i:])
	}

	newArgv := make([]string, 0, 2+len(argv))
	newArgv = append(newArgv, interpreter)
	if rest != "" {
		newArgv = append(newArgv, rest)
	}
	newArgv = append(newArgv, path)
	if len(argv) > 1 {
		newArgv = append(newArgv, argv[1:]...)
	}

	return resolveExecutable(read, interpreter, newArgv, depth+1)
}

// argvEnvpSize sums the on-the-wire size argv/envp would occupy on the
// new stack (each string plus its NUL terminator), the quantity capped
// at ARG_MAX.
func argvEnvpSize(argv, envp []string) int {
	total := 0
	for _, s := range argv {
		total += len(s) + 1
	}
	for _, s := range envp {
		total += len(s) + 1
	}
	return total
}

// Exec replaces pid's program image: the executable
// at path is parsed (script or flat binary), argv/envp are validated
// against ARG_MAX, and on success the exec-time descriptor/signal
// reset from ResetOnExec is applied. isDirectory reports whether an
// open handle refers to a directory, forwarded to ResetOnExec.
func (m *Manager) Exec(pid ProcessID, read ReadFileFunc, isDirectory func(vfs.OFDHandle) bool, path string, argv, envp []string) (ExecImage, iocommon.Errno) {
	if _, ok := m.processes[pid]; !ok {
		return ExecImage{}, iocommon.ESRCH
	}

	code, finalArgv, errno := resolveExecutable(read, path, argv, 0)
	if errno != iocommon.OK {
		return ExecImage{}, errno
	}

	if argvEnvpSize(finalArgv, envp) > ArgMax {
		return ExecImage{}, iocommon.E2BIG
	}

	if errno := m.ResetOnExec(pid, isDirectory); errno != iocommon.OK {
		return ExecImage{}, errno
	}

	return ExecImage{Code: code, Argv: finalArgv, Envp: envp}, iocommon.OK
}
