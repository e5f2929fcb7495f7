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

package logger

import (
	"fmt"
	"io"
	"os"
)

// AsyncLogger decouples a caller from the latency of the underlying
// writer (typically a rotating file) by handing each write off to a
// single consumer goroutine over a buffered channel. A full buffer
// drops the message with a stderr warning rather than blocking the
// caller, since a stalled log sink must never stall kernel-side work
// that merely wants to report something.
type AsyncLogger struct {
	w    io.WriteCloser
	ch   chan []byte
	done chan struct{}
}

// NewAsyncLogger starts the consumer goroutine and returns a ready-to-use
// AsyncLogger writing to w, buffering up to bufferSize pending messages.
func NewAsyncLogger(w io.WriteCloser, bufferSize int) *AsyncLogger {
	l := &AsyncLogger{
		w:    w,
		ch:   make(chan []byte, bufferSize),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *AsyncLogger) run() {
	defer close(l.done)
	for b := range l.ch {
		l.w.Write(b)
	}
}

// Write enqueues p for the consumer goroutine, copying it since the
// caller may reuse its buffer. It never blocks: a full channel drops the
// message.
func (l *AsyncLogger) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	copy(buf, p)
	select {
	case l.ch <- buf:
	default:
		fmt.Fprintln(os.Stderr, "asynclogger: log buffer is full, dropping message.")
	}
	return len(p), nil
}

// Close stops accepting writes, waits for every already-queued message
// to drain, and closes the underlying writer.
func (l *AsyncLogger) Close() error {
	close(l.ch)
	<-l.done
	return l.w.Close()
}
