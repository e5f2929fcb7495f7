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

package cmd

import (
	"sync"
	"time"

	"github.com/gokernel/gokernel/sched"
)

// realtimeScheduler implements sched.CommandScheduler against the
// system's wall clock, standing in for the timer-interrupt source
// sched.go describes as deliberately left abstract: production boot
// needs a concrete CommandScheduler, while tests use sched.FakeScheduler
// or call proc.Manager.Tick directly.
type realtimeScheduler struct {
	mu      sync.Mutex
	nextID  sched.CommandID
	timers  map[sched.CommandID]*time.Timer
	tickers map[sched.CommandID]*time.Ticker
}

func newRealtimeScheduler() *realtimeScheduler {
	return &realtimeScheduler{
		timers:  make(map[sched.CommandID]*time.Timer),
		tickers: make(map[sched.CommandID]*time.Ticker),
	}
}

func (s *realtimeScheduler) After(d time.Duration, fn func()) sched.CommandID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.timers[id] = time.AfterFunc(d, fn)
	return id
}

func (s *realtimeScheduler) Every(d time.Duration, fn func()) sched.CommandID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	ticker := time.NewTicker(d)
	s.tickers[id] = ticker
	go func() {
		for range ticker.C {
			fn()
		}
	}()
	return id
}

func (s *realtimeScheduler) Cancel(id sched.CommandID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	if t, ok := s.tickers[id]; ok {
		t.Stop()
		delete(s.tickers, id)
	}
}

var _ sched.CommandScheduler = (*realtimeScheduler)(nil)
