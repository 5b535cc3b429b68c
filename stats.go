package server

import "sync/atomic"

// statsCounters aggregates lifetime counters for the stats snapshot. Gauge
// values (live connections, participants) are read from the registries
// instead.
type statsCounters struct {
	totalConnections atomic.Uint64
	peakConnections  atomic.Uint64
	broadcasts       atomic.Uint64
	messagesIn       atomic.Uint64
}

func newStatsCounters() *statsCounters {
	return &statsCounters{}
}

// recordConnection bumps the lifetime total and raises the peak gauge.
func (c *statsCounters) recordConnection(current int) {
	c.totalConnections.Add(1)
	for {
		peak := c.peakConnections.Load()
		if uint64(current) <= peak {
			return
		}
		if c.peakConnections.CompareAndSwap(peak, uint64(current)) {
			return
		}
	}
}
