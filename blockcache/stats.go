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

package blockcache

import "github.com/prometheus/client_golang/prometheus"

// Stats tracks hit/miss/eviction counts. It is plain bookkeeping, never
// required for correctness, an injectable-but-optional observability
// handle.
type Stats struct {
	hits      uint64
	misses    uint64
	evictions uint64
}

var (
	hitsDesc      = prometheus.NewDesc("blockcache_hits_total", "Block cache reservations served from an already-cached entry.", nil, nil)
	missesDesc    = prometheus.NewDesc("blockcache_misses_total", "Block cache reservations that required allocating a new entry.", nil, nil)
	evictionsDesc = prometheus.NewDesc("blockcache_evictions_total", "Block cache entries evicted to make room for a new reservation.", nil, nil)
)

// Collector exposes a Cache's Stats as a prometheus.Collector. It is
// never wired to an HTTP exporter (networking is out of scope), and boot
// does not register one; a caller that wants the counters builds one
// with NewCollector and collects it directly.
type Collector struct {
	cache *Cache
}

// NewCollector wraps cache's stats for collection.
func NewCollector(cache *Cache) *Collector {
	return &Collector{cache: cache}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- hitsDesc
	ch <- missesDesc
	ch <- evictionsDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.cache.mu.Lock()
	hits, misses, evictions := c.cache.stats.hits, c.cache.stats.misses, c.cache.stats.evictions
	c.cache.mu.Unlock()

	ch <- prometheus.MustNewConstMetric(hitsDesc, prometheus.CounterValue, float64(hits))
	ch <- prometheus.MustNewConstMetric(missesDesc, prometheus.CounterValue, float64(misses))
	ch <- prometheus.MustNewConstMetric(evictionsDesc, prometheus.CounterValue, float64(evictions))
}

var _ prometheus.Collector = (*Collector)(nil)
