// Copyright 2023 Google LLC
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

package cfg

// ApplyDeviceClassDefaults nudges the block-cache defaults based on the
// declared performance class of the root device, when the operator hasn't
// set cache.capacity-blocks/cache.read-ahead-blocks explicitly. A ramdisk
// root can afford a much smaller cache and flat readahead; a spinning disk
// wants aggressive readahead to amortize seek cost.
func ApplyDeviceClassDefaults(c *Config) {
	switch c.Cache.DeviceClass {
	case DeviceClassMemory:
		if c.Cache.CapacityBlocks == DefaultBlockCacheCapacityBlocks {
			c.Cache.CapacityBlocks = MinBlockCacheCapacityBlocks
		}
		if c.Cache.ReadAheadBlocks == DefaultReadAheadBlocks {
			c.Cache.ReadAheadBlocks = 1
		}
	case DeviceClassHDD:
		if c.Cache.ReadAheadBlocks == DefaultReadAheadBlocks {
			c.Cache.ReadAheadBlocks = DefaultReadAheadBlocks * 4
		}
	case DeviceClassSSD, "":
		// Package defaults already suit flash-backed storage.
	}
}
