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

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully rationalized boot configuration, populated from
// command-line flags, a YAML config file, or the built-in defaults, in that
// order of precedence.
type Config struct {
	// Root is the path to the disk image or block device ext2 is mounted
	// from to build the root filesystem.
	Root ResolvedPath `yaml:"root"`

	// ForegroundTty names the devfs node (e.g. "tty0") that owns the
	// foreground process group of the first session at boot.
	ForegroundTty string `yaml:"foreground-tty"`

	Logging LoggingConfig `yaml:"logging"`

	Debug DebugConfig `yaml:"debug"`

	FileSystem FileSystemConfig `yaml:"file-system"`

	Cache BlockCacheConfig `yaml:"cache"`

	Scheduler SchedulerConfig `yaml:"scheduler"`
}

type LoggingConfig struct {
	Severity LogSeverity `yaml:"severity"`

	FilePath ResolvedPath `yaml:"file-path"`

	Format string `yaml:"format"`

	LogRotate LogRotateLoggingConfig `yaml:"log-rotate"`
}

type LogRotateLoggingConfig struct {
	MaxFileSizeMb int64 `yaml:"max-file-size-mb"`

	BackupFileCount int `yaml:"backup-file-count"`

	Compress bool `yaml:"compress"`
}

type DebugConfig struct {
	ExitOnInvariantViolation bool `yaml:"exit-on-invariant-violation"`

	LogMutex bool `yaml:"log-mutex"`
}

type FileSystemConfig struct {
	FileMode Octal `yaml:"file-mode"`

	DirMode Octal `yaml:"dir-mode"`

	Uid int `yaml:"uid"`

	Gid int `yaml:"gid"`

	Umask Octal `yaml:"umask"`
}

type BlockCacheConfig struct {
	// CapacityBlocks is the maximum number of 4 KiB blocks held in the
	// in-memory block cache.
	CapacityBlocks int64 `yaml:"capacity-blocks"`

	// ReadAheadBlocks is a readahead depth in blocks, defaulted by
	// Rationalize and tuned by ApplyDeviceClassDefaults. The block cache
	// does not read ahead, and boot does not pass this value to it.
	ReadAheadBlocks int64 `yaml:"read-ahead-blocks"`

	// DeviceClass hints at the root device's performance characteristics;
	// see ApplyDeviceClassDefaults.
	DeviceClass DeviceClass `yaml:"device-class"`
}

type SchedulerConfig struct {
	// TimesliceMs is the length, in milliseconds, of the round-robin
	// quantum the scheduler grants a running process before preempting it.
	TimesliceMs int64 `yaml:"timeslice-ms"`
}

func BindFlags(flagSet *pflag.FlagSet) error {
	var err error

	flagSet.StringP("root", "", "", "Path to the disk image or block device to mount as the root filesystem.")

	err = viper.BindPFlag("root", flagSet.Lookup("root"))
	if err != nil {
		return err
	}

	flagSet.StringP("initial-foreground-tty", "", DefaultForegroundTty, "devfs node that owns the foreground process group of the first session.")

	err = viper.BindPFlag("foreground-tty", flagSet.Lookup("initial-foreground-tty"))
	if err != nil {
		return err
	}

	flagSet.StringP("log-level", "", INFO, "Logging severity: TRACE, DEBUG, INFO, WARNING, ERROR, or OFF.")

	err = viper.BindPFlag("logging.severity", flagSet.Lookup("log-level"))
	if err != nil {
		return err
	}

	flagSet.StringP("log-file", "", "", "Path to write logs to. Empty means stderr.")

	err = viper.BindPFlag("logging.file-path", flagSet.Lookup("log-file"))
	if err != nil {
		return err
	}

	flagSet.StringP("log-format", "", "text", "Log line format: text or json.")

	err = viper.BindPFlag("logging.format", flagSet.Lookup("log-format"))
	if err != nil {
		return err
	}

	flagSet.BoolP("debug-invariants", "", false, "Exit when internal invariants are violated instead of attempting to continue.")

	err = viper.BindPFlag("debug.exit-on-invariant-violation", flagSet.Lookup("debug-invariants"))
	if err != nil {
		return err
	}

	flagSet.BoolP("debug-mutex", "", false, "Log when a mutex is held too long.")

	err = viper.BindPFlag("debug.log-mutex", flagSet.Lookup("debug-mutex"))
	if err != nil {
		return err
	}

	flagSet.IntP("file-mode", "", 0644, "Permission bits for regular files, in octal.")

	err = viper.BindPFlag("file-system.file-mode", flagSet.Lookup("file-mode"))
	if err != nil {
		return err
	}

	flagSet.IntP("dir-mode", "", 0755, "Permission bits for directories, in octal.")

	err = viper.BindPFlag("file-system.dir-mode", flagSet.Lookup("dir-mode"))
	if err != nil {
		return err
	}

	flagSet.IntP("uid", "", 0, "UID assigned to the initial process and new inodes that don't otherwise specify one.")

	err = viper.BindPFlag("file-system.uid", flagSet.Lookup("uid"))
	if err != nil {
		return err
	}

	flagSet.IntP("gid", "", 0, "GID assigned to the initial process and new inodes that don't otherwise specify one.")

	err = viper.BindPFlag("file-system.gid", flagSet.Lookup("gid"))
	if err != nil {
		return err
	}

	flagSet.IntP("umask", "", 0022, "Default umask applied to the initial process, in octal.")

	err = viper.BindPFlag("file-system.umask", flagSet.Lookup("umask"))
	if err != nil {
		return err
	}

	flagSet.Int64P("cache-capacity-blocks", "", DefaultBlockCacheCapacityBlocks, "Maximum number of 4 KiB blocks held in the block cache.")

	err = viper.BindPFlag("cache.capacity-blocks", flagSet.Lookup("cache-capacity-blocks"))
	if err != nil {
		return err
	}

	flagSet.Int64P("cache-read-ahead-blocks", "", DefaultReadAheadBlocks, "Readahead depth in blocks; recorded in the config, not used by the block cache.")

	err = viper.BindPFlag("cache.read-ahead-blocks", flagSet.Lookup("cache-read-ahead-blocks"))
	if err != nil {
		return err
	}

	flagSet.StringP("device-class", "", "", "Performance hint for the root device: ssd, hdd, or memory. Adjusts cache defaults.")

	err = viper.BindPFlag("cache.device-class", flagSet.Lookup("device-class"))
	if err != nil {
		return err
	}

	flagSet.Int64P("timeslice-ms", "", DefaultTimesliceMs, "Round-robin scheduling quantum, in milliseconds.")

	err = viper.BindPFlag("scheduler.timeslice-ms", flagSet.Lookup("timeslice-ms"))
	if err != nil {
		return err
	}

	return nil
}
