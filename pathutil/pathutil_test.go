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

package pathutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokernel/gokernel/iocommon"
	"github.com/gokernel/gokernel/pathutil"
)

func TestParsePathScenarios(t *testing.T) {
	cases := []struct {
		name        string
		path        string
		cwd         string
		includeLast bool
		wantBuf     string
		wantLast    string
		wantHasLast bool
	}{
		{
			name:        "dot and dotdot collapsing",
			path:        "/opt/./../tools/.././/////bin",
			includeLast: true,
			wantBuf:     "/bin",
		},
		{
			name:        "several dotdots then back down",
			path:        "/usr/lib/firefox/distribution/extensions/../../defaults/../../../games/flare",
			includeLast: true,
			wantBuf:     "/usr/games/flare",
		},
		{
			name:        "dotdot above root is absorbed",
			path:        "/../../tmp/../../../tmp/output",
			includeLast: true,
			wantBuf:     "/tmp/output",
		},
		{
			name:        "split last segment",
			path:        "/tmp/../abc/my_file.txt",
			includeLast: false,
			wantBuf:     "/abc",
			wantLast:    "my_file.txt",
			wantHasLast: true,
		},
		{
			name:        "relative path against root cwd",
			path:        "abc/def",
			cwd:         "/",
			includeLast: false,
			wantBuf:     "/abc",
			wantLast:    "def",
			wantHasLast: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := pathutil.NewContext()
			errno := c.ParsePath(tc.path, false, tc.includeLast, tc.cwd)
			require.Equal(t, iocommon.OK, errno)
			assert.Equal(t, tc.wantBuf, c.Buffer())

			last, has := c.LastSegment()
			assert.Equal(t, tc.wantHasLast, has)
			if tc.wantHasLast {
				assert.Equal(t, tc.wantLast, last)
			}
		})
	}
}

func TestParsePathEmptyIsENOENT(t *testing.T) {
	c := pathutil.NewContext()
	errno := c.ParsePath("", false, true, "/")
	assert.Equal(t, iocommon.ENOENT, errno)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	paths := []string{
		"/opt/./../tools/.././/////bin",
		"/usr/lib/firefox/distribution/extensions/../../defaults/../../../games/flare",
		"/../../tmp/../../../tmp/output",
	}
	for _, p := range paths {
		c1 := pathutil.NewContext()
		require.Equal(t, iocommon.OK, c1.ParsePath(p, false, true, "/"))

		c2 := pathutil.NewContext()
		require.Equal(t, iocommon.OK, c2.ParsePath(c1.Buffer(), false, true, "/"))

		assert.Equal(t, c1.Buffer(), c2.Buffer())
	}
}

func TestCalculateSegmentsNameTooLong(t *testing.T) {
	long := make([]byte, pathutil.FileNameMax)
	for i := range long {
		long[i] = 'a'
	}
	_, errno := pathutil.CalculateSegments("/" + string(long))
	assert.Equal(t, iocommon.ENAMETOOLONG, errno)
}

func TestCalculateSegmentsTooManySegments(t *testing.T) {
	path := ""
	for i := 0; i < pathutil.MaxSegments+1; i++ {
		path += "/a"
	}
	_, errno := pathutil.CalculateSegments(path)
	assert.Equal(t, iocommon.ENOMEM, errno)
}

func TestConcatenate(t *testing.T) {
	got, errno := pathutil.Concatenate("/foo/", "/bar")
	require.Equal(t, iocommon.OK, errno)
	assert.Equal(t, "/foo/bar", got)
}
