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

	"github.com/gokernel/gokernel/cfg"
)

func validConfig() *cfg.Config {
	c := &cfg.Config{Root: "/dev/disk0"}
	c.Logging.LogRotate = cfg.LogRotateLoggingConfig{MaxFileSizeMb: 512, BackupFileCount: 10}
	c.Cache.CapacityBlocks = cfg.DefaultBlockCacheCapacityBlocks
	c.Scheduler.TimesliceMs = cfg.DefaultTimesliceMs
	return c
}

func TestValidateConfigAcceptsWellFormedConfig(t *testing.T) {
	assert.NoError(t, cfg.ValidateConfig(validConfig()))
}

func TestValidateConfigRejectsMissingRoot(t *testing.T) {
	c := validConfig()
	c.Root = ""
	assert.EqualError(t, cfg.ValidateConfig(c), cfg.RootPathRequiredError)
}

func TestValidateConfigRejectsLowCacheCapacity(t *testing.T) {
	c := validConfig()
	c.Cache.CapacityBlocks = 1
	assert.EqualError(t, cfg.ValidateConfig(c), cfg.CacheCapacityTooLowError)
}

func TestValidateConfigAllowsZeroCacheCapacityToDisableCache(t *testing.T) {
	c := validConfig()
	c.Cache.CapacityBlocks = 0
	assert.NoError(t, cfg.ValidateConfig(c))
}

func TestValidateConfigRejectsLowTimeslice(t *testing.T) {
	c := validConfig()
	c.Scheduler.TimesliceMs = 0
	assert.EqualError(t, cfg.ValidateConfig(c), cfg.TimesliceTooLowError)
}

func TestValidateConfigRejectsBadLogRotateConfig(t *testing.T) {
	c := validConfig()
	c.Logging.LogRotate.MaxFileSizeMb = 0
	assert.Error(t, cfg.ValidateConfig(c))
}
