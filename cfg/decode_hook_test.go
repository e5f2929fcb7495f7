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
	"reflect"
	"testing"

	"github.com/mitchellh/mapstructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokernel/gokernel/cfg"
)

func decodeString(t *testing.T, s string, target interface{}) error {
	t.Helper()
	var result mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: cfg.DecodeHook(),
		Result:     target,
		Metadata:   &result,
	})
	require.NoError(t, err)
	return decoder.Decode(s)
}

func TestDecodeHookParsesOctal(t *testing.T) {
	var o cfg.Octal
	require.NoError(t, decodeString(t, "755", &o))
	assert.Equal(t, cfg.Octal(0755), o)
}

func TestDecodeHookParsesLogSeverityCaseInsensitively(t *testing.T) {
	var l cfg.LogSeverity
	require.NoError(t, decodeString(t, "warning", &l))
	assert.Equal(t, cfg.WarningLogSeverity, l)
}

func TestDecodeHookRejectsUnknownLogSeverity(t *testing.T) {
	var l cfg.LogSeverity
	assert.Error(t, decodeString(t, "CRITICAL", &l))
}

func TestDecodeHookRejectsUnknownDeviceClass(t *testing.T) {
	var c cfg.DeviceClass
	assert.Error(t, decodeString(t, "tape", &c))
}

func TestDecodeHookLeavesNonSpecialTypesAlone(t *testing.T) {
	var s string
	require.NoError(t, decodeString(t, "hello", &s))
	assert.Equal(t, "hello", s)
}

func TestDecodeHookReturnsAFunc(t *testing.T) {
	hook := cfg.DecodeHook()
	assert.NotNil(t, hook)
	assert.Equal(t, reflect.Func, reflect.TypeOf(hook).Kind())
}
