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

// Package syscalls implements the syscall dispatcher: the single entry
// point binding proc, vfs, signal, and tty together, grounded on
// fuseutil.FileSystem's one-method-per-operation vtable (there:
// LookUpInode/OpenFile/ReadFile/...; here: Open/Read/Write/...)
// dispatched by Dispatcher rather than a generated RPC server. Since
// paging and the user address space are out of this kernel's scope,
// Dispatcher's methods take already-copied-in Go values (a path
// string, a byte slice) in place of the real eax/ebx/ecx/edx register
// convention documented at the wire level; Number and Name below exist
// so that convention is still named precisely, even though no
// interrupt vector or register file backs it here.
package syscalls

// Number is one of the syscall numbers from the table,
// dispatched on eax behind interrupt vector 200 on real hardware.
type Number int

const (
	Sleep               Number = 0x01
	Exit                Number = 0x02
	Getpid              Number = 0x03
	Getppid             Number = 0x04
	Fork                Number = 0x05
	Poll                Number = 0x06
	Open                Number = 0x07
	Read                Number = 0x08
	Write               Number = 0x09
	Close               Number = 0x0A
	Wait                Number = 0x0B
	Brk                 Number = 0x0C
	Time                Number = 0x0D
	Stat                Number = 0x0E
	Readdir             Number = 0x0F
	Exec                Number = 0x10
	Lseek               Number = 0x11
	Sigaction           Number = 0x12
	Kill                Number = 0x13
	Sigprocmask         Number = 0x14
	Getcwd              Number = 0x15
	Chdir               Number = 0x16
	CacheFlushClear     Number = 0x17
	CacheFlush          Number = 0x18
	Reboot              Number = 0x19
	Ftruncate           Number = 0x1A
	Mkdir               Number = 0x1B
	Unlink              Number = 0x1C
	Link                Number = 0x1D
	Rmdir               Number = 0x1E
	Symlink             Number = 0x1F
	Ioctl               Number = 0x20
	Fcntl               Number = 0x21
	Dup                 Number = 0x22
	Setsid              Number = 0x23
	Getsid              Number = 0x24
	Setpgid             Number = 0x25
	Getpgid             Number = 0x26
	Pipe                Number = 0x27
	Umask               Number = 0x28
	Rename              Number = 0x29
	FcntlSetCloseOnExec Number = 0x30
)

var names = map[Number]string{
	Sleep: "SLEEP", Exit: "EXIT", Getpid: "GETPID", Getppid: "GETPPID",
	Fork: "FORK", Poll: "POLL", Open: "OPEN", Read: "READ", Write: "WRITE",
	Close: "CLOSE", Wait: "WAIT", Brk: "BRK", Time: "TIME", Stat: "STAT",
	Readdir: "READDIR", Exec: "EXEC", Lseek: "LSEEK", Sigaction: "SIGACTION",
	Kill: "KILL", Sigprocmask: "SIGPROCMASK", Getcwd: "GETCWD", Chdir: "CHDIR",
	CacheFlushClear: "CACHE_FLUSH_CLEAR", CacheFlush: "CACHE_FLUSH",
	Reboot: "REBOOT", Ftruncate: "FTRUNCATE", Mkdir: "MKDIR", Unlink: "UNLINK",
	Link: "LINK", Rmdir: "RMDIR", Symlink: "SYMLINK", Ioctl: "IOCTL",
	Fcntl: "FCNTL", Dup: "DUP", Setsid: "SETSID", Getsid: "GETSID",
	Setpgid: "SETPGID", Getpgid: "GETPGID", Pipe: "PIPE", Umask: "UMASK",
	Rename: "RENAME", FcntlSetCloseOnExec: "FCNTL_FD_CLOEXEC",
}

// Name returns n's mnemonic from the syscall table, or
// "UNKNOWN" for a number the table does not define.
func (n Number) Name() string {
	if s, ok := names[n]; ok {
		return s
	}
	return "UNKNOWN"
}
