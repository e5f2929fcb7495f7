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

// Package pipefs implements the anonymous pipe node: a bounded one-page
// ring buffer shared by a read end and a write end,
// each its own vfs.Node so they can be released independently. The ring
// is built on container.List the same way tty's input ring is
// (tty/ringbuffer.go), adapted from a line-oriented discipline to a
// plain byte FIFO with PIPE_BUF atomicity.
package pipefs

import (
	"github.com/gokernel/gokernel/container"
	"github.com/gokernel/gokernel/iocommon"
	"github.com/gokernel/gokernel/proc"
	"github.com/gokernel/gokernel/signal"
	"github.com/gokernel/gokernel/vfs"
)

// PipeBufBytes is PIPE_BUF: the capacity of the ring and the largest
// write size guaranteed to be atomic.
const PipeBufBytes = 4096

// fileSystem is the shared, nameless vfs.FileSystem identity every pipe
// end reports; pipes never participate in Rename so only identity
// (for the EXDEV check) matters.
type fileSystem struct{}

func (fileSystem) Name() string { return "pipefs" }

var sharedFileSystem fileSystem

// Buffer is the pipe's shared state: the byte ring plus the two
// half-close flags
// (releasedReaderOpenFileDescription / releasedWriterOpenFileDescription).
type Buffer struct {
	mgr *proc.Manager

	ring *container.List[byte]

	readerReleased bool
	writerReleased bool
}

// New creates a pipe and returns its read end and write end. mgr is
// used to look up the calling process for SIGPIPE delivery; it may be
// nil in tests that never exercise the reader-released write path.
func New(mgr *proc.Manager) (*ReadEnd, *WriteEnd) {
	b := &Buffer{mgr: mgr, ring: container.New[byte]()}

	r := &ReadEnd{buf: b}
	r.rc.Init(func() {
		b.readerReleased = true
	})

	w := &WriteEnd{buf: b}
	w.rc.Init(func() {
		b.writerReleased = true
	})

	// Matches every other Node-returning entry point (Walk, CreateName,
	// FileSystem.getByIndex): the handle handed back already carries one
	// reservation.
	r.Reserve()
	w.Reserve()

	return r, w
}

func (b *Buffer) available() int { return PipeBufBytes - b.ring.Len() }

// ReadEnd is the read side of a pipe.
type ReadEnd struct {
	vfs.UnimplementedNode
	buf *Buffer
	rc  vfs.ReservationCounter
}

func (r *ReadEnd) Open(int) iocommon.Errno { return iocommon.OK }

// Read implements the read semantics: EOF (0, OK) once the
// ring is empty and the writer end is released, EAGAIN ("suspend on
// SUSPENDED_WAITING_READ and retry") while empty with the writer still
// open, otherwise whatever is available.
func (r *ReadEnd) Read(_ int64, buf []byte) (int, iocommon.Errno) {
	if r.buf.ring.Len() == 0 {
		if r.buf.writerReleased {
			return 0, iocommon.OK
		}
		return 0, iocommon.EAGAIN
	}
	n := 0
	for n < len(buf) && r.buf.ring.Len() > 0 {
		buf[n] = r.buf.ring.RemoveFront()
		n++
	}
	return n, iocommon.OK
}

func (r *ReadEnd) Status() (vfs.Stat, iocommon.Errno) {
	return vfs.Stat{Mode: vfs.ModeFIFO, Links: 1, Size: int64(r.buf.ring.Len())}, iocommon.OK
}

func (r *ReadEnd) GetMode() vfs.Mode { return vfs.ModeFIFO }

func (r *ReadEnd) GetSize() int64 { return int64(r.buf.ring.Len()) }

func (r *ReadEnd) GetFileSystem() vfs.FileSystem { return sharedFileSystem }

func (r *ReadEnd) GetOpenFileDescriptionOffsetRepositionPolicy() vfs.RepositionPolicy {
	return vfs.RepositionNotAllowed
}

func (r *ReadEnd) Reserve()        { r.rc.Reserve() }
func (r *ReadEnd) Release()        { r.rc.Release() }
func (r *ReadEnd) UsageCount() int { return r.rc.UsageCount() }

// WriteEnd is the write side of a pipe.
type WriteEnd struct {
	vfs.UnimplementedNode
	buf *Buffer
	rc  vfs.ReservationCounter
}

func (w *WriteEnd) Open(int) iocommon.Errno { return iocommon.OK }

// Write implements the write semantics. A reader-released
// pipe raises SIGPIPE on the caller and fails with EPIPE. A write that
// both fits entirely and is no larger than PIPE_BUF is atomic: it
// either completes in full or (if there isn't room right now) not at
// all, signalled by EAGAIN so the caller suspends and retries rather
// than observing a torn write. A write larger than PIPE_BUF is not
// required to be atomic, so it writes whatever fits now and leaves the
// remainder to a subsequent call.
func (w *WriteEnd) Write(_ int64, buf []byte) (int, iocommon.Errno) {
	if w.buf.readerReleased {
		if w.buf.mgr != nil {
			if pid, ok := w.buf.mgr.CurrentProcess(); ok {
				w.buf.mgr.GenerateSignal(pid, signal.SIGPIPE, false)
			}
		}
		return 0, iocommon.EPIPE
	}

	avail := w.buf.available()
	if len(buf) <= PipeBufBytes {
		if len(buf) > avail {
			return 0, iocommon.EAGAIN
		}
		for _, b := range buf {
			w.buf.ring.PushBack(b)
		}
		return len(buf), iocommon.OK
	}

	n := 0
	for n < len(buf) && w.buf.available() > 0 {
		w.buf.ring.PushBack(buf[n])
		n++
	}
	return n, iocommon.OK
}

func (w *WriteEnd) Status() (vfs.Stat, iocommon.Errno) {
	return vfs.Stat{Mode: vfs.ModeFIFO, Links: 1, Size: int64(w.buf.ring.Len())}, iocommon.OK
}

func (w *WriteEnd) GetMode() vfs.Mode { return vfs.ModeFIFO }

func (w *WriteEnd) GetSize() int64 { return int64(w.buf.ring.Len()) }

func (w *WriteEnd) GetFileSystem() vfs.FileSystem { return sharedFileSystem }

func (w *WriteEnd) GetOpenFileDescriptionOffsetRepositionPolicy() vfs.RepositionPolicy {
	return vfs.RepositionNotAllowed
}

func (w *WriteEnd) Reserve()        { w.rc.Reserve() }
func (w *WriteEnd) Release()        { w.rc.Release() }
func (w *WriteEnd) UsageCount() int { return w.rc.UsageCount() }
