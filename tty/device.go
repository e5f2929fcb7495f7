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

import (
	"fmt"

	"github.com/gokernel/gokernel/iocommon"
	"github.com/gokernel/gokernel/proc"
	"github.com/gokernel/gokernel/signal"
)

// Device is one TTY, combining the input ring, the main/alternate
// output screens, termios-driven line discipline, and the ECMA-48
// output parser
type Device struct {
	mgr *proc.Manager

	Termios Termios
	input   *byteRing

	main, alt *screen
	altActive bool

	cursorRow, cursorCol int
	savedRow, savedCol   int
	cursorVisible        bool

	fg, bg  Color
	inverse bool

	parser csiState

	// sid is the session currently holding this TTY as its controlling
	// terminal, or 0 if none.
	sid proc.ProcessID
}

// NewDevice returns a TTY of the given screen dimensions, not yet
// associated with any session.
func NewDevice(mgr *proc.Manager, width, height int) *Device {
	return &Device{
		mgr:           mgr,
		Termios:       DefaultTermios(),
		input:         newByteRing(),
		main:          newScreen(width, height, true),
		alt:           newScreen(width, height, false),
		fg:            ColorDefault,
		bg:            ColorDefault,
		cursorVisible: true,
	}
}

// Disassociate implements proc.ControllingTTY, called by Manager.Exit
// when the session leader holding this TTY terminates.
func (d *Device) Disassociate() { d.sid = 0 }

// Open implements the controlling-TTY acquisition rule: the
// first open by a session leader with O_NOCTTY unset, where neither the
// session nor the TTY already has an association, acquires it. Failing
// to acquire is not itself an open error — the open just proceeds
// without a controlling terminal.
func (d *Device) Open(pid proc.ProcessID, noCTTY bool) iocommon.Errno {
	if noCTTY || d.sid != 0 {
		return iocommon.OK
	}
	if d.mgr.AcquireControllingTTY(pid, d) == iocommon.OK {
		if sid, ok := d.mgr.SessionOf(pid); ok {
			d.sid = sid
		}
	}
	return iocommon.OK
}

func (d *Device) currentScreen() *screen {
	if d.altActive {
		return d.alt
	}
	return d.main
}

// foregroundCheck implements the background-process discipline,
// checking callerPid against the requested signal (SIGTTIN for reads,
// SIGTTOU for writes): it returns OK if callerPid is in the
// foreground group (or the TTY has no controlling session at all), and
// otherwise signals the background group and returns EINTR, or EIO if
// the group is orphaned or the caller has the signal ignored/blocked.
func (d *Device) foregroundCheck(callerPid proc.ProcessID, sig signal.Signal) iocommon.Errno {
	if d.sid == 0 {
		return iocommon.OK
	}
	pgid, ok := d.mgr.ProcessGroupOf(callerPid)
	if !ok {
		return iocommon.ESRCH
	}
	fg, ok := d.mgr.ForegroundGroup(d.sid)
	if !ok || pgid == fg {
		return iocommon.OK
	}
	if d.mgr.IsOrphanedGroup(pgid) || d.mgr.SignalIgnoredOrBlocked(callerPid, sig) {
		return iocommon.EIO
	}
	d.mgr.SignalGroup(pgid, sig, false)
	return iocommon.EINTR
}

// Input delivers one keystroke byte from the hardware, applying ISIG
// signal generation, canonical-mode editing (ERASE/KILL/EOF), and echo,
//
func (d *Device) Input(b byte) {
	if d.Termios.Local.has(ISIG) {
		switch b {
		case d.Termios.Cc[VINTR]:
			d.signalForegroundAndMaybeFlush(signal.SIGINT)
			return
		case d.Termios.Cc[VQUIT]:
			d.signalForegroundAndMaybeFlush(signal.SIGQUIT)
			return
		case d.Termios.Cc[VSUSP]:
			d.signalForegroundAndMaybeFlush(signal.SIGTSTP)
			return
		}
	}

	if d.Termios.Local.has(ICANON) {
		switch b {
		case d.Termios.Cc[VERASE]:
			d.erase()
			return
		case d.Termios.Cc[VKILL]:
			d.kill()
			return
		case d.Termios.Cc[VEOF]:
			d.input.pendingEOFs++
			return
		}
	}

	d.echo(b)
	d.input.push(b)
	if d.Termios.Local.has(ICANON) && (b == '\n' || b == d.Termios.Cc[VEOL]) {
		d.input.completeLines++
	}
}

func (d *Device) signalForegroundAndMaybeFlush(sig signal.Signal) {
	if d.sid == 0 {
		return
	}
	fg, ok := d.mgr.ForegroundGroup(d.sid)
	if !ok {
		return
	}
	if !d.Termios.Local.has(NOFLSH) {
		d.input.reset()
	}
	d.mgr.SignalGroup(fg, sig, false)
}

// erase implements ERASE: delete one character, never crossing a
// line already terminated by '\n'.
func (d *Device) erase() {
	b, ok := d.input.peekLast()
	if !ok || b == '\n' {
		return
	}
	d.input.popLast()
	if d.Termios.Local.has(ECHOE) {
		d.echoRaw([]byte("\b \b"))
	}
}

// kill implements KILL: erase the entire current (unterminated) line.
func (d *Device) kill() {
	n := d.input.dropCurrentLine()
	if d.Termios.Local.has(ECHOE) {
		for i := 0; i < n; i++ {
			d.echoRaw([]byte("\b \b"))
		}
	}
}

func (d *Device) echo(b byte) {
	if b == '\n' {
		if d.Termios.Local.has(ECHO) || d.Termios.Local.has(ECHONL) {
			d.echoRaw([]byte{'\n'})
		}
		return
	}
	if !d.Termios.Local.has(ECHO) {
		return
	}
	if b < 0x20 && b != '\t' && d.Termios.Local.has(ECHOCTL) {
		d.echoRaw([]byte{'^', b + 0x40})
		return
	}
	d.echoRaw([]byte{b})
}

func (d *Device) echoRaw(data []byte) {
	for _, b := range data {
		d.putChar(b)
	}
	d.currentScreen().ResetScroll()
}

func (d *Device) putChar(ch byte) {
	scr := d.currentScreen()
	switch ch {
	case '\n':
		d.cursorCol = 0
		d.cursorRow++
	case '\b':
		if d.cursorCol > 0 {
			d.cursorCol--
		}
		return
	default:
		scr.set(d.cursorRow, d.cursorCol, cell{ch: rune(ch), fg: d.fg, bg: d.bg, inverse: d.inverse})
		d.cursorCol++
	}
	if d.cursorCol >= scr.width {
		d.cursorCol = 0
		d.cursorRow++
	}
	if d.cursorRow >= scr.height {
		scr.scrollUp()
		d.cursorRow = scr.height - 1
	}
}

// Read implements the read-side line discipline: background-
// process discipline first, then canonical (only once a full line or a
// VEOF marker is queued) or raw (whatever bytes are available) delivery.
// EAGAIN signals "nothing available yet, not an error" to a caller that
// is expected to suspend and retry, matching the Wait/GenerateSignal
// convention used elsewhere in this module.
func (d *Device) Read(callerPid proc.ProcessID, buf []byte) (int, iocommon.Errno) {
	if errno := d.foregroundCheck(callerPid, signal.SIGTTIN); errno != iocommon.OK {
		return 0, errno
	}

	if d.Termios.Local.has(ICANON) {
		if d.input.completeLines == 0 {
			if d.input.pendingEOFs > 0 {
				d.input.pendingEOFs--
				return 0, iocommon.OK
			}
			return 0, iocommon.EAGAIN
		}
		n := 0
		for n < len(buf) {
			b, ok := d.input.peekFront()
			if !ok {
				break
			}
			d.input.popFront()
			buf[n] = b
			n++
			if b == '\n' || b == d.Termios.Cc[VEOL] {
				d.input.completeLines--
				break
			}
		}
		return n, iocommon.OK
	}

	n := 0
	for n < len(buf) {
		b, ok := d.input.peekFront()
		if !ok {
			break
		}
		d.input.popFront()
		buf[n] = b
		n++
	}
	if n == 0 {
		return 0, iocommon.EAGAIN
	}
	return n, iocommon.OK
}

// Write implements the write-side background-process
// discipline (SIGTTOU when TOSTOP is set) and dispatches every byte
// through the ECMA-48 output parser.
func (d *Device) Write(callerPid proc.ProcessID, data []byte) (int, iocommon.Errno) {
	if d.Termios.Local.has(TOSTOP) {
		if errno := d.foregroundCheck(callerPid, signal.SIGTTOU); errno != iocommon.OK {
			return 0, errno
		}
	}
	for _, b := range data {
		d.processOutputByte(b)
	}
	return len(data), iocommon.OK
}

func (d *Device) processOutputByte(b byte) {
	seq, complete, consumed := d.parser.feed(b)
	if consumed {
		if complete {
			d.applyControlSequence(seq)
		}
		return
	}
	d.putChar(b)
	d.currentScreen().ResetScroll()
}

func (d *Device) applyControlSequence(seq controlSequence) {
	switch seq.final {
	case 'm':
		d.applySGR(seq.params)
	case 'H', 'f':
		row := param(seq.params, 0, 1) - 1
		col := param(seq.params, 1, 1) - 1
		d.cursorRow, d.cursorCol = clampNonNegative(row), clampNonNegative(col)
	case 'J':
		d.currentScreen().eraseInDisplay(d.cursorRow, d.cursorCol, param(seq.params, 0, 0))
	case 'K':
		d.currentScreen().eraseInLine(d.cursorRow, d.cursorCol, param(seq.params, 0, 0))
	case 'A':
		d.cursorRow = clampNonNegative(d.cursorRow - param(seq.params, 0, 1))
	case 'B':
		d.cursorRow += param(seq.params, 0, 1)
	case 'C':
		d.cursorCol += param(seq.params, 0, 1)
	case 'D':
		d.cursorCol = clampNonNegative(d.cursorCol - param(seq.params, 0, 1))
	case 'n':
		if param(seq.params, 0, 0) == 6 {
			report := fmt.Sprintf("\x1b[%d;%dR", d.cursorRow+1, d.cursorCol+1)
			for i := 0; i < len(report); i++ {
				d.input.push(report[i])
			}
		}
	case 's':
		if !seq.private {
			d.savedRow, d.savedCol = d.cursorRow, d.cursorCol
		}
	case 'u':
		if !seq.private {
			d.cursorRow, d.cursorCol = d.savedRow, d.savedCol
		}
	case '7':
		d.savedRow, d.savedCol = d.cursorRow, d.cursorCol
	case '8':
		d.cursorRow, d.cursorCol = d.savedRow, d.savedCol
	case 'h':
		if seq.private {
			d.setPrivateModes(seq.params, true)
		}
	case 'l':
		if seq.private {
			d.setPrivateModes(seq.params, false)
		}
	}
}

func (d *Device) setPrivateModes(params []int, set bool) {
	for _, p := range params {
		switch p {
		case 25:
			d.cursorVisible = set
		case 1049:
			d.altActive = set
		}
	}
}

func (d *Device) applySGR(params []int) {
	if len(params) == 0 {
		params = []int{0}
	}
	for _, p := range params {
		switch {
		case p == 0:
			d.fg, d.bg, d.inverse = ColorDefault, ColorDefault, false
		case p == 7:
			d.inverse = true
		case p == 27:
			d.inverse = false
		case p >= 30 && p <= 37:
			d.fg = Color(p - 30)
		case p == 39:
			d.fg = ColorDefault
		case p >= 40 && p <= 47:
			d.bg = Color(p - 40)
		case p == 49:
			d.bg = ColorDefault
		}
	}
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
