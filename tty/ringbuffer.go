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

package tty

import "github.com/gokernel/gokernel/container"

// byteRing is the TTY's input ring buffer, built on container.List so
// editing operations (ERASE popping the last byte, KILL dropping a
// whole line) are simple list-tail operations rather than fixed-size
// index arithmetic.
type byteRing struct {
	bytes *container.List[byte]

	// completeLines counts '\n'/VEOL-terminated lines currently queued,
	// the "count of complete input lines" field: canonical reads return
	// data only once this is nonzero. VEOF presses are counted in
	// pendingEOFs instead.
	completeLines int

	// pendingEOFs counts VEOF presses not yet consumed by a read.
	pendingEOFs int
}

func newByteRing() *byteRing {
	return &byteRing{bytes: container.New[byte]()}
}

func (r *byteRing) push(b byte) { r.bytes.PushBack(b) }

// popLast removes and returns the most recently pushed byte, used by
// ERASE. ok is false if the ring is empty.
func (r *byteRing) popLast() (b byte, ok bool) {
	back := r.bytes.Back()
	if back == nil {
		return 0, false
	}
	return r.bytes.Remove(back), true
}

// dropCurrentLine removes every byte back to (but not past) the
// previous line terminator, used by KILL. It returns the number of
// bytes removed so the caller can echo that many backspace sequences.
func (r *byteRing) dropCurrentLine() int {
	n := 0
	for {
		back := r.bytes.Back()
		if back == nil || back.Value == '\n' {
			break
		}
		r.bytes.Remove(back)
		n++
	}
	return n
}

func (r *byteRing) len() int { return r.bytes.Len() }

// popFront removes and returns the oldest byte. Panics if empty; callers
// must check len() first.
func (r *byteRing) popFront() byte {
	return r.bytes.RemoveFront()
}

func (r *byteRing) peekFront() (byte, bool) {
	front := r.bytes.Front()
	if front == nil {
		return 0, false
	}
	return front.Value, true
}

// peekLast returns the most recently pushed byte without removing it.
func (r *byteRing) peekLast() (byte, bool) {
	back := r.bytes.Back()
	if back == nil {
		return 0, false
	}
	return back.Value, true
}

// reset discards all queued input and pending markers, used when ISIG
// generates a signal without NOFLSH set.
func (r *byteRing) reset() {
	for r.bytes.Len() > 0 {
		r.bytes.RemoveFront()
	}
	r.completeLines = 0
	r.pendingEOFs = 0
}
