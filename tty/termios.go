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

// Package tty implements the line discipline: canonical/raw input
// processing, echo, ISIG signal generation, background-process
// SIGTTIN/SIGTTOU discipline, an ECMA-48 output subset, and scrollback.
// The input ring buffer reuses container.List (a linked-queue shape;
// output goes to a fixed row/column screen grid), and the
// control-sequence parser's {foundEscape,
// foundSquareBracket, ...} fields follow the same small
// explicit-transition-table shape signal.Table already uses for each
// signal's pending/handler/sigaction state.
package tty

// LocalFlags is the termios c_lflag subset.
type LocalFlags uint32

const (
	ICANON LocalFlags = 1 << iota
	ECHO
	ECHOE
	ECHOCTL
	ECHONL
	ISIG
	NOFLSH
	TOSTOP
)

func (f LocalFlags) has(bit LocalFlags) bool { return f&bit != 0 }

// ControlChar indexes Termios.Cc.
type ControlChar int

const (
	VINTR ControlChar = iota
	VQUIT
	VSUSP
	VEOF
	VEOL
	VERASE
	VKILL
	numControlChars
)

// Termios holds the subset of struct termios this discipline honors.
type Termios struct {
	Local LocalFlags
	Cc    [numControlChars]byte
}

// DefaultTermios returns canonical mode with echo, ECHOE, ISIG on and
// the conventional control characters, the same defaults a freshly
// opened TTY has before any program calls tcsetattr.
func DefaultTermios() Termios {
	t := Termios{Local: ICANON | ECHO | ECHOE | ECHOCTL | ISIG}
	t.Cc[VINTR] = 0x03  // ^C
	t.Cc[VQUIT] = 0x1C  // ^\
	t.Cc[VSUSP] = 0x1A  // ^Z
	t.Cc[VEOF] = 0x04   // ^D
	t.Cc[VEOL] = 0
	t.Cc[VERASE] = 0x7F // DEL
	t.Cc[VKILL] = 0x15  // ^U
	return t
}
