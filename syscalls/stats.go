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

package syscalls

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats tracks per-syscall invocation counts, the same injectable-but-
// optional bookkeeping role blockcache.Stats plays for cache hits.
type Stats struct {
	mu     sync.Mutex
	counts map[Number]uint64
}

func newStats() *Stats {
	return &Stats{counts: make(map[Number]uint64)}
}

func (s *Stats) record(n Number) {
	s.mu.Lock()
	s.counts[n]++
	s.mu.Unlock()
}

func (s *Stats) snapshot() map[Number]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Number]uint64, len(s.counts))
	for n, c := range s.counts {
		out[n] = c
	}
	return out
}

// Count returns how many times n has been dispatched.
func (d *Dispatcher) Count(n Number) uint64 {
	d.stats.mu.Lock()
	defer d.stats.mu.Unlock()
	return d.stats.counts[n]
}

var callsDesc = prometheus.NewDesc(
	"syscalls_dispatched_total",
	"Syscalls dispatched, labeled by mnemonic.",
	[]string{"syscall"}, nil,
)

// Collector exposes a Dispatcher's per-syscall counts as a
// prometheus.Collector; like blockcache.Collector it is not wired to an
// exporter and boot does not register one; a caller that wants it
// builds it with NewCollector.
type Collector struct {
	dispatcher *Dispatcher
}

// NewCollector wraps d's stats for collection.
func NewCollector(d *Dispatcher) *Collector {
	return &Collector{dispatcher: d}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- callsDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for n, count := range c.dispatcher.stats.snapshot() {
		ch <- prometheus.MustNewConstMetric(callsDesc, prometheus.CounterValue, float64(count), n.Name())
	}
}

var _ prometheus.Collector = (*Collector)(nil)
