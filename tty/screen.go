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

// Color is an ECMA-48 SGR color index (0-7), or -1 for "default".
type Color int

const ColorDefault Color = -1

// cell is one (character, color) slot of the output buffer, per
// the "ring of (character,color) cells" description.
type cell struct {
	ch      rune
	fg, bg  Color
	inverse bool
}

// screen is one of the TTY's two output buffers (main with scrollback,
// or the non-scrollable alternate screen), a fixed-size row/column grid
// rather than a true ring since cursor-addressed output (CSI H/f)
// needs direct indexing, not append-only growth. Scrollback is modeled
// as extra history rows above row 0, addressed by scrollDelta.
type screen struct {
	width, height int
	history       [][]cell // history[0] is the oldest scrolled-off row
	visible       [][]cell // visible[0] is the current top row
	scrollDelta   int      // rows scrolled back from the live view
	scrollable    bool
}

func newScreen(width, height int, scrollable bool) *screen {
	s := &screen{width: width, height: height, scrollable: scrollable}
	s.visible = make([][]cell, height)
	for i := range s.visible {
		s.visible[i] = make([]cell, width)
	}
	return s
}

// scrollUp pushes the top visible row into history and appends a blank
// row at the bottom, the effect of a newline on the last row.
func (s *screen) scrollUp() {
	if s.scrollable {
		s.history = append(s.history, s.visible[0])
	}
	copy(s.visible, s.visible[1:])
	s.visible[s.height-1] = make([]cell, s.width)
}

// ScrollBack increases scrollDelta by n rows, capped at the available
// history; a no-op on the non-scrollable alternate
// screen.
func (s *screen) ScrollBack(n int) {
	if !s.scrollable {
		return
	}
	s.scrollDelta += n
	if s.scrollDelta > len(s.history) {
		s.scrollDelta = len(s.history)
	}
}

// ScrollForward decreases scrollDelta by n rows, floored at 0.
func (s *screen) ScrollForward(n int) {
	s.scrollDelta -= n
	if s.scrollDelta < 0 {
		s.scrollDelta = 0
	}
}

// ResetScroll implements the "on output with resetScroll, scrollDelta
// resets to 0" rule: ordinary output snaps the view back to live.
func (s *screen) ResetScroll() { s.scrollDelta = 0 }

func (s *screen) set(row, col int, c cell) {
	if row < 0 || row >= s.height || col < 0 || col >= s.width {
		return
	}
	s.visible[row][col] = c
}

// eraseInLine implements CSI K: mode 0 clears cursor-to-end, 1
// start-to-cursor, 2 the whole line.
func (s *screen) eraseInLine(row, col, mode int) {
	if row < 0 || row >= s.height {
		return
	}
	start, end := 0, s.width
	switch mode {
	case 0:
		start = col
	case 1:
		end = col + 1
	}
	for c := start; c < end && c < s.width; c++ {
		s.visible[row][c] = cell{ch: ' '}
	}
}

// eraseInDisplay implements CSI J: mode 0 cursor-to-end-of-screen, 1
// start-of-screen-to-cursor, 2/3 the whole screen.
func (s *screen) eraseInDisplay(row, col, mode int) {
	switch mode {
	case 0:
		s.eraseInLine(row, col, 0)
		for r := row + 1; r < s.height; r++ {
			s.eraseInLine(r, 0, 2)
		}
	case 1:
		s.eraseInLine(row, col, 1)
		for r := 0; r < row; r++ {
			s.eraseInLine(r, 0, 2)
		}
	default:
		for r := 0; r < s.height; r++ {
			s.eraseInLine(r, 0, 2)
		}
	}
}
