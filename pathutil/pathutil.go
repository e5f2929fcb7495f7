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

// Package pathutil tokenizes, normalizes, and recombines filesystem paths
// for the VFS resolver, bounding every buffer so a hostile or buggy
// path can't exhaust kernel memory. The
// length checks here mirror the REQUIRES-style name validation in
// fs/inode/dir.go ("name == '' || name[len(name)-1] == '/'"), generalized
// from a single invariant assertion to a full tokenizer.
package pathutil

import (
	"strings"

	"github.com/gokernel/gokernel/iocommon"
)

const (
	// PathMax bounds the combined-path buffer.
	PathMax = 4096
	// MaxSegments bounds the number of path segments
	MaxSegments = 446
	// FileNameMax bounds a single path segment (one less than the buffer,
	// since Context.lastSegment reserves a slot for a implicit terminator
	// the way POSIX's NAME_MAX traditionally excludes it).
	FileNameMax = 256
)

// Dot and DotDot are the canonical singleton tokens produced by
// CalculateSegments for "." and ".." segments.
const (
	Dot    = "."
	DotDot = ".."
)

// Context holds the bounded scratch buffers a path resolution reuses
// across calls: a path buffer, a segment vector, and a last-segment
// buffer, plus whether the last segment has been split out of the
// segment vector.
type Context struct {
	buf              string
	segments         []string
	lastSegment      string
	lastExtracted    bool
}

// NewContext returns an empty path Context.
func NewContext() *Context {
	return &Context{}
}

// Buffer returns the current combined path buffer.
func (c *Context) Buffer() string { return c.buf }

// Segments returns the current segment vector.
func (c *Context) Segments() []string { return append([]string(nil), c.segments...) }

// LastSegment returns the segment moved aside by CombineSegments(false),
// and whether one has been extracted.
func (c *Context) LastSegment() (string, bool) { return c.lastSegment, c.lastExtracted }

// Concatenate joins p1 and p2 with exactly one separator, collapsing a
// trailing separator on p1 and a leading separator on p2. It fails with
// ENAMETOOLONG if the result would exceed PathMax.
func Concatenate(p1, p2 string) (string, iocommon.Errno) {
	p1 = strings.TrimSuffix(p1, "/")
	p2 = strings.TrimPrefix(p2, "/")

	var joined string
	switch {
	case p1 == "" && p2 == "":
		joined = "/"
	case p2 == "":
		joined = p1
	case p1 == "":
		joined = "/" + p2
	default:
		joined = p1 + "/" + p2
	}

	if len(joined) > PathMax {
		return "", iocommon.ENAMETOOLONG
	}
	return joined, iocommon.OK
}

// CalculateSegments tokenizes path at '/', treating empty tokens (from
// repeated or trailing slashes) as absent. "." and ".." tokens become the
// canonical Dot/DotDot singletons. Every other token must fit within
// FileNameMax-1 bytes, and at most MaxSegments segments are allowed.
func CalculateSegments(path string) ([]string, iocommon.Errno) {
	raw := strings.Split(path, "/")
	segments := make([]string, 0, len(raw))
	for _, tok := range raw {
		if tok == "" {
			continue
		}
		switch tok {
		case Dot:
			segments = append(segments, Dot)
		case DotDot:
			segments = append(segments, DotDot)
		default:
			if len(tok) > FileNameMax-1 {
				return nil, iocommon.ENAMETOOLONG
			}
			segments = append(segments, tok)
		}
		if len(segments) > MaxSegments {
			return nil, iocommon.ENOMEM
		}
	}
	return segments, iocommon.OK
}

// Normalize applies a stack-based "." / ".." reduction: "." is dropped,
// ".." pops the top non-empty entry (root is its own parent, so ".." at
// the root is simply dropped too).
func Normalize(segments []string) []string {
	stack := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case Dot:
			// dropped
		case DotDot:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, seg)
		}
	}
	return stack
}

// CombineSegments rewrites c's buffer as "/s1/s2/..." from segments. If
// includeLast is false, the final segment is moved into c.lastSegment and
// c.lastExtracted is set, matching the combinePathSegments.
func (c *Context) CombineSegments(segments []string, includeLast bool) iocommon.Errno {
	use := segments
	c.lastExtracted = false
	c.lastSegment = ""

	if !includeLast && len(segments) > 0 {
		use = segments[:len(segments)-1]
		c.lastSegment = segments[len(segments)-1]
		c.lastExtracted = true
	}

	var b strings.Builder
	for _, seg := range use {
		b.WriteByte('/')
		b.WriteString(seg)
	}
	if b.Len() == 0 {
		b.WriteByte('/')
	}

	if b.Len() > PathMax {
		return iocommon.ENAMETOOLONG
	}

	c.buf = b.String()
	c.segments = use
	return iocommon.OK
}

// ParsePath runs the full pipeline described in the parsePath:
// if isNormalized, path is taken as already absolute and is never
// prefixed with cwd; otherwise a relative path is prefixed with cwd.
// Either way the result is then tokenized, normalized and recombined.
func (c *Context) ParsePath(path string, isNormalized bool, includeLast bool, cwd string) iocommon.Errno {
	if path == "" {
		// pathUtilsIsAbsolute("") is undefined in the original; treat an
		// empty path as invalid at resolve time.
		return iocommon.ENOENT
	}

	full := path
	if !isNormalized {
		if !strings.HasPrefix(path, "/") {
			joined, errno := Concatenate(cwd, path)
			if errno != iocommon.OK {
				return errno
			}
			full = joined
		}
	}

	segments, errno := CalculateSegments(full)
	if errno != iocommon.OK {
		return errno
	}

	segments = Normalize(segments)
	return c.CombineSegments(segments, includeLast)
}

// IsAbsolute reports whether path begins with a '/'. An empty path is
// never absolute (see the comment on ParsePath's empty-path check).
func IsAbsolute(path string) bool {
	return path != "" && path[0] == '/'
}
