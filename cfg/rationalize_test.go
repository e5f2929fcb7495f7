// Copyright 2024 Google Inc. All Rights Reserved.
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

package cfg_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokernel/gokernel/cfg"
)

func TestRationalizeFillsInDefaults(t *testing.T) {
	c := &cfg.Config{Root: "/dev/disk0"}
	require.NoError(t, cfg.Rationalize(c))

	assert.Equal(t, cfg.DefaultForegroundTty, c.ForegroundTty)
	assert.Equal(t, cfg.DefaultBlockCacheCapacityBlocks, c.Cache.CapacityBlocks)
	assert.Equal(t, int64(cfg.DefaultReadAheadBlocks), c.Cache.ReadAheadBlocks)
	assert.Equal(t, cfg.DefaultTimesliceMs, c.Scheduler.TimesliceMs)
}

func TestRationalizeEscalatesSeverityWhenLogMutexSet(t *testing.T) {
	c := &cfg.Config{Root: "/dev/disk0"}
	c.Debug.LogMutex = true
	require.NoError(t, cfg.Rationalize(c))
	assert.Equal(t, cfg.TraceLogSeverity, c.Logging.Severity)
}

func TestRationalizeAppliesMemoryDeviceClassDefaults(t *testing.T) {
	c := &cfg.Config{Root: "/dev/disk0"}
	c.Cache.DeviceClass = cfg.DeviceClassMemory
	require.NoError(t, cfg.Rationalize(c))

	assert.Equal(t, cfg.MinBlockCacheCapacityBlocks, c.Cache.CapacityBlocks)
	assert.Equal(t, int64(1), c.Cache.ReadAheadBlocks)
}

func TestRationalizeAppliesHddDeviceClassDefaults(t *testing.T) {
	c := &cfg.Config{Root: "/dev/disk0"}
	c.Cache.DeviceClass = cfg.DeviceClassHDD
	require.NoError(t, cfg.Rationalize(c))

	assert.Equal(t, int64(cfg.DefaultReadAheadBlocks*4), c.Cache.ReadAheadBlocks)
}

func TestRationalizeDoesNotOverrideExplicitCacheCapacity(t *testing.T) {
	c := &cfg.Config{Root: "/dev/disk0"}
	c.Cache.CapacityBlocks = 9001
	require.NoError(t, cfg.Rationalize(c))
	assert.Equal(t, int64(9001), c.Cache.CapacityBlocks)
}
