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

// Package iocommon holds the POSIX-shaped error vocabulary shared by every
// kernel service (vfs, ext2, proc, tty, ...), the same way fuseutil/errors.go
// holds errors "corresponding to kernel error numbers" that callers treat
// specially. Every kernel operation returns an Errno (0 meaning success),
// matching the eax-holds-the-errno syscall convention.
package iocommon

// Errno is a POSIX-shaped kernel error code. The zero value means success.
type Errno int

// The error kinds this kernel's syscalls report.
const (
	OK Errno = iota
	ENOENT
	ENOTDIR
	EISDIR
	EEXIST
	EPERM
	EACCES
	ENOMEM
	ENOSPC
	EBUSY
	EBADF
	EMFILE
	ENFILE
	EINVAL
	EFAULT
	EINTR
	EAGAIN
	EIO
	ENAMETOOLONG
	ELOOP
	EFBIG
	ENOTEMPTY
	EXDEV
	ENOEXEC
	E2BIG
	EOVERFLOW
	EMLINK
	ERANGE
	ESRCH
	ECHILD
	ENOTTY
	ESPIPE
	EPIPE
)

var names = map[Errno]string{
	OK:           "success",
	ENOENT:       "no such file or directory",
	ENOTDIR:      "not a directory",
	EISDIR:       "is a directory",
	EEXIST:       "file exists",
	EPERM:        "operation not permitted",
	EACCES:       "permission denied",
	ENOMEM:       "out of memory",
	ENOSPC:       "no space left on device",
	EBUSY:        "device or resource busy",
	EBADF:        "bad file descriptor",
	EMFILE:       "too many open files",
	ENFILE:       "too many open files in system",
	EINVAL:       "invalid argument",
	EFAULT:       "bad address",
	EINTR:        "interrupted system call",
	EAGAIN:       "resource temporarily unavailable",
	EIO:          "input/output error",
	ENAMETOOLONG: "file name too long",
	ELOOP:        "too many levels of symbolic links",
	EFBIG:        "file too large",
	ENOTEMPTY:    "directory not empty",
	EXDEV:        "cross-device link",
	ENOEXEC:      "exec format error",
	E2BIG:        "argument list too long",
	EOVERFLOW:    "value too large for defined data type",
	EMLINK:       "too many links",
	ERANGE:       "result too large",
	ESRCH:        "no such process",
	ECHILD:       "no child processes",
	ENOTTY:       "not a typewriter",
	ESPIPE:       "illegal seek",
	EPIPE:        "broken pipe",
}

// Error implements the error interface so an Errno can be returned anywhere
// Go code expects an error; OK.Error() is never called in practice since
// OK-valued Errnos are treated as a nil error by AsError.
func (e Errno) Error() string {
	if s, ok := names[e]; ok {
		return s
	}
	return "unknown error"
}

// AsError converts e to a nil error when e == OK, and to e itself
// otherwise, so kernel code can use normal Go "if err != nil" checks while
// still returning the concrete Errno to callers that want the numeric code.
func AsError(e Errno) error {
	if e == OK {
		return nil
	}
	return e
}

// FromError recovers the Errno carried by err, defaulting to EIO for any
// error that did not originate as an Errno (an unexpected collaborator
// failure is treated as an I/O error "irrecoverable
// kernel faults" framing).
func FromError(err error) Errno {
	if err == nil {
		return OK
	}
	if e, ok := err.(Errno); ok {
		return e
	}
	return EIO
}

// First implements the "retainFirstFailure" idiom: it returns the
// first non-OK errno among errs, or OK if every call
// succeeded. Composing fallible operations with First means a later
// cleanup step's own failure never masks the original error.
func First(errs ...Errno) Errno {
	for _, e := range errs {
		if e != OK {
			return e
		}
	}
	return OK
}
