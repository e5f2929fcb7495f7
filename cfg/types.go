// Copyright 2024 Google LLC
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
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Octal is the datatype for params such as file-mode and dir-mode which accept a base-8 value.
type Octal int

func (o *Octal) UnmarshalText(text []byte) error {
	v, err := strconv.ParseInt(string(text) /*base=*/, 8 /*bitSize=*/, 32)
	if err != nil {
		return err
	}
	*o = Octal(v)
	return nil
}

func (o Octal) MarshalText() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(o), 8)), nil
}

func (o Octal) String() string {
	return fmt.Sprintf("%o", int(o))
}

// LogSeverity represents the logging severity and can accept the following values
// "TRACE", "DEBUG", "INFO", "WARNING", "ERROR", "OFF"
type LogSeverity string

// Constants for all supported log severities.
const (
	TraceLogSeverity   LogSeverity = "TRACE"
	DebugLogSeverity   LogSeverity = "DEBUG"
	InfoLogSeverity    LogSeverity = "INFO"
	WarningLogSeverity LogSeverity = "WARNING"
	ErrorLogSeverity   LogSeverity = "ERROR"
	OffLogSeverity     LogSeverity = "OFF"
)

// severityRanking maps each level to an integer for validation and comparison.
var severityRanking = map[LogSeverity]int{
	TraceLogSeverity:   0,
	DebugLogSeverity:   1,
	InfoLogSeverity:    2,
	WarningLogSeverity: 3,
	ErrorLogSeverity:   4,
	OffLogSeverity:     5,
}

func (l *LogSeverity) UnmarshalText(text []byte) error {
	level := LogSeverity(strings.ToUpper(string(text)))
	if _, ok := severityRanking[level]; !ok {
		return fmt.Errorf("invalid log severity level: %s. Must be one of [TRACE, DEBUG, INFO, WARNING, ERROR, OFF]", text)
	}
	*l = level
	return nil
}

// Rank returns the integer representation of the severity rank.
// Returns -1 if the severity is unknown.
func (l LogSeverity) Rank() int {
	if rank, ok := severityRanking[l]; ok {
		return rank
	}
	return -1
}

// ResolvedPath represents a file-path that is resolved to an absolute path
// relative to the working directory the boot process was launched from.
type ResolvedPath string

func (p *ResolvedPath) UnmarshalText(text []byte) error {
	path, err := resolvePath(string(text))
	if err != nil {
		return err
	}
	*p = ResolvedPath(path)
	return nil
}

func resolvePath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	return filepath.Abs(path)
}

// DeviceClass hints at the kind of storage backing the root filesystem image,
// used to pick sane block-cache defaults at boot.
type DeviceClass string

const (
	// DeviceClassSSD is a flash-backed device: the package cache defaults
	// apply unchanged.
	DeviceClassSSD DeviceClass = "ssd"
	// DeviceClassHDD is a spinning-disk device: readahead matters more than
	// cache size, since the cost is mostly seek latency.
	DeviceClassHDD DeviceClass = "hdd"
	// DeviceClassMemory is a ramdisk-backed device: caching is close to free.
	DeviceClassMemory DeviceClass = "memory"
)

// IsValid returns true if the DeviceClass is one of the defined valid classes.
func (c DeviceClass) IsValid() bool {
	return c == DeviceClassSSD || c == DeviceClassHDD || c == DeviceClassMemory
}

func (c *DeviceClass) UnmarshalText(text []byte) error {
	class := DeviceClass(strings.ToLower(string(text)))
	if class == "" {
		return nil
	}
	if !class.IsValid() {
		return fmt.Errorf("invalid device class: %s. It can only accept values in the list: %v", text, []string{"ssd", "hdd", "memory"})
	}
	*c = class
	return nil
}
