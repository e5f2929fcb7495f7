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
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestAsyncLoggerWriteAndClose(t *testing.T) {
	dir := t.TempDir()
	logPath := dir + "/test.log"
	lj := &lumberjack.Logger{Filename: logPath}
	asyncLogger := NewAsyncLogger(lj, 10)

	fmt.Fprintln(asyncLogger, "message 1")
	fmt.Fprintln(asyncLogger, "message 2")
	fmt.Fprintln(asyncLogger, "message 3")
	err := asyncLogger.Close()

	require.NoError(t, err)
	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "message 1\nmessage 2\nmessage 3\n", string(content))
}

func TestAsyncLoggerDropsWhenBufferFull(t *testing.T) {
	dir := t.TempDir()
	logPath := dir + "/test.log"
	lj := &lumberjack.Logger{Filename: logPath}
	asyncLogger := NewAsyncLogger(lj, 0)

	// A zero-capacity channel's send only succeeds if the consumer
	// goroutine happens to be ready at that exact instant, so most (or
	// all) of these writes should report as dropped rather than block.
	for i := 0; i < 20; i++ {
		n, err := fmt.Fprintf(asyncLogger, "message %d\n", i)
		require.NoError(t, err)
		require.Greater(t, n, 0)
	}

	require.NoError(t, asyncLogger.Close())
}
