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

package blockdev_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokernel/gokernel/blockdev"
	"github.com/gokernel/gokernel/iocommon"
)

func TestMemoryDeviceRoundTrip(t *testing.T) {
	dev := blockdev.NewMemoryDevice(512, 16)

	write := make([]byte, 512*2)
	for i := range write {
		write[i] = byte(i)
	}
	require.Equal(t, iocommon.OK, dev.WriteBlocks(3, 2, write))

	read := make([]byte, 512*2)
	require.Equal(t, iocommon.OK, dev.ReadBlocks(3, 2, read))
	assert.Equal(t, write, read)
}

func TestMemoryDeviceOutOfRangeIsEINVAL(t *testing.T) {
	dev := blockdev.NewMemoryDevice(512, 4)
	buf := make([]byte, 512*2)
	errno := dev.ReadBlocks(3, 2, buf)
	assert.Equal(t, iocommon.EINVAL, errno)
}

func TestMemoryDeviceWrongBufferSizeIsEINVAL(t *testing.T) {
	dev := blockdev.NewMemoryDevice(512, 4)
	buf := make([]byte, 100)
	errno := dev.ReadBlocks(0, 1, buf)
	assert.Equal(t, iocommon.EINVAL, errno)
}

func TestFileDeviceRoundTrip(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "blockdev")
	require.NoError(t, err)
	require.NoError(t, f.Truncate(512*8))
	path := f.Name()
	require.NoError(t, f.Close())

	dev, err := blockdev.OpenFileDevice(path, 512, 8)
	require.NoError(t, err)
	defer dev.Close()

	write := make([]byte, 512)
	for i := range write {
		write[i] = byte(i % 256)
	}
	require.Equal(t, iocommon.OK, dev.WriteBlocks(1, 1, write))

	read := make([]byte, 512)
	require.Equal(t, iocommon.OK, dev.ReadBlocks(1, 1, read))
	assert.Equal(t, write, read)
}
