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

package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokernel/gokernel/cfg"
)

// runRoot builds a fresh root command around a boot func that captures
// the Config it was handed instead of booting a real kernel, mirroring
// how NewRootCmd lets callers substitute the boot action.
func runRoot(t *testing.T, args []string) (*cfg.Config, error) {
	t.Helper()
	viper.Reset()

	var captured *cfg.Config
	cmd, err := NewRootCmd(func(c *cfg.Config) error {
		captured = c
		return nil
	})
	require.NoError(t, err)

	cmd.SetArgs(args)
	err = cmd.Execute()
	return captured, err
}

func TestRootRequiresExactlyOnePositionalArg(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		expectError bool
	}{
		{name: "no args", args: nil, expectError: true},
		{name: "one arg", args: []string{"image.img"}, expectError: false},
		{name: "too many args", args: []string{"image.img", "extra"}, expectError: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runRoot(t, tc.args)
			if tc.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRootResolvesImagePathAndRationalizes(t *testing.T) {
	captured, err := runRoot(t, []string{"image.img"})
	require.NoError(t, err)
	require.NotNil(t, captured)

	abs, err := filepath.Abs("image.img")
	require.NoError(t, err)
	assert.Equal(t, cfg.ResolvedPath(abs), captured.Root)
	// Rationalize should have filled in the defaults.
	assert.Equal(t, cfg.DefaultForegroundTty, captured.ForegroundTty)
	assert.Equal(t, cfg.DefaultBlockCacheCapacityBlocks, captured.Cache.CapacityBlocks)
	assert.Equal(t, cfg.DefaultTimesliceMs, captured.Scheduler.TimesliceMs)
}

func TestRootRejectsInvalidFlagCombination(t *testing.T) {
	_, err := runRoot(t, []string{"--cache-capacity-blocks=1", "image.img"})
	assert.Error(t, err)
}

func TestRootPrintConfigSkipsBoot(t *testing.T) {
	viper.Reset()
	booted := false
	cmd, err := NewRootCmd(func(*cfg.Config) error {
		booted = true
		return nil
	})
	require.NoError(t, err)

	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--print-config", "image.img"})

	require.NoError(t, cmd.Execute())
	assert.False(t, booted)
	assert.Contains(t, stdout.String(), "root:")
	assert.Contains(t, stdout.String(), "timeslice-ms:")
}
