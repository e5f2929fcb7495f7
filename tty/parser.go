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

import "strconv"

// csiState is the ECMA-48 control-sequence parser state: {foundEscape,
// foundSquareBracket, foundQuestionMark, partialSequenceBuffer}.
type csiState struct {
	foundEscape        bool
	foundSquareBracket bool
	foundQuestionMark  bool
	partial            []byte
}

func (s *csiState) reset() {
	s.foundEscape = false
	s.foundSquareBracket = false
	s.foundQuestionMark = false
	s.partial = s.partial[:0]
}

// controlSequence is a fully parsed CSI (or the two ESC-7/ESC-8
// no-bracket save/restore forms).
type controlSequence struct {
	final   byte
	params  []int
	private bool // true for "?"-prefixed sequences (?25h, ?1049h, ...)
}

// feed consumes one byte of output, returning a completed
// controlSequence once a final byte closes it. consumed is always true
// while inside an escape sequence (the byte must not reach the screen
// directly); when consumed is false the byte is ordinary printable/
// control output for the caller to render itself.
func (s *csiState) feed(b byte) (seq controlSequence, complete bool, consumed bool) {
	switch {
	case !s.foundEscape:
		if b == 0x1B {
			s.foundEscape = true
			return controlSequence{}, false, true
		}
		return controlSequence{}, false, false

	case s.foundEscape && !s.foundSquareBracket:
		switch b {
		case '[':
			s.foundSquareBracket = true
			return controlSequence{}, false, true
		case '7', '8':
			final := b
			s.reset()
			return controlSequence{final: final}, true, true
		default:
			// Unrecognized escape, abandon the sequence.
			s.reset()
			return controlSequence{}, false, true
		}

	default:
		if b == '?' && len(s.partial) == 0 {
			s.foundQuestionMark = true
			return controlSequence{}, false, true
		}
		if (b >= '0' && b <= '9') || b == ';' {
			s.partial = append(s.partial, b)
			return controlSequence{}, false, true
		}
		// Any other byte terminates the sequence (the CSI final byte).
		seq = controlSequence{final: b, params: parseParams(s.partial), private: s.foundQuestionMark}
		s.reset()
		return seq, true, true
	}
}

// parseParams splits a CSI parameter buffer like "1;2" into ints,
// per the usual CSI convention.
func parseParams(buf []byte) []int {
	if len(buf) == 0 {
		return nil
	}
	var out []int
	start := 0
	for i := 0; i <= len(buf); i++ {
		if i == len(buf) || buf[i] == ';' {
			field := string(buf[start:i])
			if field == "" {
				out = append(out, 0)
			} else if n, err := strconv.Atoi(field); err == nil {
				out = append(out, n)
			}
			start = i + 1
		}
	}
	return out
}

// param returns params[i] if present, else def.
func param(params []int, i, def int) int {
	if i < len(params) {
		return params[i]
	}
	return def
}
