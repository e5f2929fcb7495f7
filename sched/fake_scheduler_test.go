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

package sched_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokernel/gokernel/clock"
	"github.com/gokernel/gokernel/sched"
)

func TestFakeSchedulerSingleShotFiresOnce(t *testing.T) {
	clk := clock.NewSimulatedClock(time.Unix(0, 0))
	s := sched.NewFakeScheduler(clk)

	fired := 0
	s.After(10*time.Millisecond, func() { fired++ })

	s.Tick()
	assert.Equal(t, 0, fired)

	clk.AdvanceTime(10 * time.Millisecond)
	s.Tick()
	assert.Equal(t, 1, fired)

	clk.AdvanceTime(10 * time.Millisecond)
	s.Tick()
	assert.Equal(t, 1, fired, "single-shot must not fire twice")
}

func TestFakeSchedulerEveryRepeats(t *testing.T) {
	clk := clock.NewSimulatedClock(time.Unix(0, 0))
	s := sched.NewFakeScheduler(clk)

	ticks := 0
	s.Every(5*time.Millisecond, func() { ticks++ })

	for i := 0; i < 3; i++ {
		clk.AdvanceTime(5 * time.Millisecond)
		s.Tick()
	}
	require.Equal(t, 3, ticks)
}

func TestFakeSchedulerCancel(t *testing.T) {
	clk := clock.NewSimulatedClock(time.Unix(0, 0))
	s := sched.NewFakeScheduler(clk)

	fired := false
	id := s.After(5*time.Millisecond, func() { fired = true })
	s.Cancel(id)

	clk.AdvanceTime(5 * time.Millisecond)
	s.Tick()
	assert.False(t, fired)
}
