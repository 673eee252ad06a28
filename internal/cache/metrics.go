// Copyright (c) 2025 SciGo HDF5 Library Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package cache

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Process-wide counters; every Cache contributes to them.
var (
	metricRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "amr",
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Block cache lookups by entry kind and whether they were served from cache or source.",
	}, []string{"kind", "served"})

	metricEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "amr",
		Subsystem: "cache",
		Name:      "evictions_total",
		Help:      "Entries evicted from bounded block caches.",
	})
)

const (
	kindBlock = "block"
	kindField = "field"
)

// collector tracks per-cache traffic with atomic counters.
type collector struct {
	blocksFromCache  atomic.Int64
	blocksFromSource atomic.Int64
	fieldsFromCache  atomic.Int64
	fieldsFromSource atomic.Int64
	evictions        atomic.Int64
	startTime        time.Time
}

func newCollector() *collector {
	return &collector{startTime: time.Now()}
}

func (c *collector) servedFromCache(kind string) {
	if kind == kindBlock {
		c.blocksFromCache.Add(1)
	} else {
		c.fieldsFromCache.Add(1)
	}
	metricRequests.WithLabelValues(kind, "cache").Inc()
}

func (c *collector) servedFromSource(kind string) {
	if kind == kindBlock {
		c.blocksFromSource.Add(1)
	} else {
		c.fieldsFromSource.Add(1)
	}
	metricRequests.WithLabelValues(kind, "source").Inc()
}

func (c *collector) evicted() {
	c.evictions.Add(1)
	metricEvictions.Inc()
}

// Stats is an immutable snapshot of cache traffic. It is observational and
// never affects what the cache returns.
type Stats struct {
	BlocksFromCache  int64         `json:"blocks_from_cache"`
	BlocksFromSource int64         `json:"blocks_from_source"`
	FieldsFromCache  int64         `json:"fields_from_cache"`
	FieldsFromSource int64         `json:"fields_from_source"`
	Evictions        int64         `json:"evictions"`
	Entries          int           `json:"entries"`
	Uptime           time.Duration `json:"uptime"`
}

func (c *collector) snapshot(entries int) Stats {
	return Stats{
		BlocksFromCache:  c.blocksFromCache.Load(),
		BlocksFromSource: c.blocksFromSource.Load(),
		FieldsFromCache:  c.fieldsFromCache.Load(),
		FieldsFromSource: c.fieldsFromSource.Load(),
		Evictions:        c.evictions.Load(),
		Entries:          entries,
		Uptime:           time.Since(c.startTime),
	}
}

// HitRate returns the fraction of field requests served from cache.
func (s Stats) HitRate() float64 {
	total := s.FieldsFromCache + s.FieldsFromSource
	if total == 0 {
		return 0
	}
	return float64(s.FieldsFromCache) / float64(total)
}

// String returns a one-line summary suitable for logs.
func (s Stats) String() string {
	return fmt.Sprintf("blocks cache/source=%d/%d fields cache/source=%d/%d hit=%.1f%% entries=%d evictions=%d",
		s.BlocksFromCache, s.BlocksFromSource, s.FieldsFromCache, s.FieldsFromSource,
		s.HitRate()*100, s.Entries, s.Evictions)
}
