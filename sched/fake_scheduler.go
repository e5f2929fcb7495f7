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

package sched

import (
	"sync"
	"time"

	"github.com/gokernel/gokernel/clock"
)

// command is one pending or repeating callback.
type command struct {
	id       CommandID
	next     time.Time
	period   time.Duration // zero for single-shot
	fn       func()
	canceled bool
}

// FakeScheduler implements CommandScheduler entirely in terms of a
// clock.Clock, grounded on clock/simulated_clock.go's pending-request
// bookkeeping: commands are held in a slice and fired by an explicit
// Tick call rather than a real timer interrupt, so scheduler tests can
// advance time deterministically.
type FakeScheduler struct {
	mu       sync.Mutex
	clock    clock.Clock
	commands []*command
	nextID   CommandID
}

// NewFakeScheduler returns a FakeScheduler driven by clk.
func NewFakeScheduler(clk clock.Clock) *FakeScheduler {
	return &FakeScheduler{clock: clk}
}

func (s *FakeScheduler) After(d time.Duration, fn func()) CommandID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c := &command{id: s.nextID, next: s.clock.Now().Add(d), fn: fn}
	s.commands = append(s.commands, c)
	return c.id
}

func (s *FakeScheduler) Every(d time.Duration, fn func()) CommandID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c := &command{id: s.nextID, next: s.clock.Now().Add(d), period: d, fn: fn}
	s.commands = append(s.commands, c)
	return c.id
}

func (s *FakeScheduler) Cancel(id CommandID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.commands {
		if c.id == id {
			c.canceled = true
		}
	}
}

// Tick fires every command whose target time has been reached as of the
// clock's current time, rescheduling repeating commands for their next
// period. It is the test-driven substitute for a real timer interrupt.
func (s *FakeScheduler) Tick() {
	now := s.clock.Now()

	s.mu.Lock()
	var due []*command
	var remaining []*command
	for _, c := range s.commands {
		if c.canceled {
			continue
		}
		if !now.Before(c.next) {
			due = append(due, c)
			if c.period > 0 {
				c.next = now.Add(c.period)
				remaining = append(remaining, c)
			}
		} else {
			remaining = append(remaining, c)
		}
	}
	s.commands = remaining
	s.mu.Unlock()

	for _, c := range due {
		c.fn()
	}
}

var _ CommandScheduler = (*FakeScheduler)(nil)
