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

package cfg

// Rationalize updates config fields based on the values of other fields,
// after flags/file/defaults have all been merged but before the config is
// handed to the boot sequence.
func Rationalize(c *Config) error {
	if c.Debug.LogMutex {
		c.Logging.Severity = TraceLogSeverity
	}

	if c.Logging.LogRotate.MaxFileSizeMb == 0 {
		c.Logging.LogRotate.MaxFileSizeMb = GetDefaultLoggingConfig().LogRotate.MaxFileSizeMb
	}

	if c.ForegroundTty == "" {
		c.ForegroundTty = DefaultForegroundTty
	}

	if c.Cache.CapacityBlocks == 0 {
		c.Cache.CapacityBlocks = DefaultBlockCacheCapacityBlocks
	}
	if c.Cache.ReadAheadBlocks == 0 {
		c.Cache.ReadAheadBlocks = DefaultReadAheadBlocks
	}

	if c.Scheduler.TimesliceMs == 0 {
		c.Scheduler.TimesliceMs = DefaultTimesliceMs
	}

	ApplyDeviceClassDefaults(c)

	return nil
}
