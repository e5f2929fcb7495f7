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

import "fmt"

const (
	RootPathRequiredError    = "root must name a disk image or block device to mount"
	CacheCapacityTooLowError = "cache.capacity-blocks must be at least 16 when the cache is enabled"
	TimesliceTooLowError     = "scheduler.timeslice-ms must be at least 1"
	InvalidDeviceClassError  = "cache.device-class must be one of: ssd, hdd, memory"
)

func isValidLogRotateConfig(config *LogRotateLoggingConfig) error {
	if config.MaxFileSizeMb <= 0 {
		return fmt.Errorf("max-file-size-mb should be atleast 1")
	}
	if config.BackupFileCount < 0 {
		return fmt.Errorf("backup-file-count should be 0 (to retain all backup files) or a positive value")
	}
	return nil
}

// ValidateConfig returns a non-nil error if the config is invalid.
func ValidateConfig(config *Config) error {
	if config.Root == "" {
		return fmt.Errorf(RootPathRequiredError)
	}

	if err := isValidLogRotateConfig(&config.Logging.LogRotate); err != nil {
		return fmt.Errorf("error parsing log-rotate config: %w", err)
	}

	if IsBlockCacheEnabled(config) && config.Cache.CapacityBlocks < MinBlockCacheCapacityBlocks {
		return fmt.Errorf(CacheCapacityTooLowError)
	}

	if config.Cache.DeviceClass != "" && !config.Cache.DeviceClass.IsValid() {
		return fmt.Errorf(InvalidDeviceClassError)
	}

	if config.Scheduler.TimesliceMs < MinTimesliceMs {
		return fmt.Errorf(TimesliceTooLowError)
	}

	return nil
}
