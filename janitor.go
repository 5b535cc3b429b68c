package server

import (
	"context"
	"sort"
	"time"

	presencelog "pixelplaza/server/logging/presence"
)

// RunJanitor drives the periodic sweep until the stop channel closes. The
// sweep is the only mutation path not triggered by an inbound event; it
// bounds memory growth from connections that vanished without a clean
// disconnect.
func (h *Hub) RunJanitor(stop <-chan struct{}) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			report := h.sweep(now)
			presencelog.SweepCompleted(context.Background(), h.publisher, report)
		}
	}
}

// sweep reconciles every registry in a fixed order: empty viewer sets and
// their throttle entries, stale orphaned throttle entries, the throttle
// hard cap, and dedup entries whose connection is gone. Running it against
// an already-consistent state deletes nothing and emits nothing to clients.
func (h *Hub) sweep(now time.Time) presencelog.SweepPayload {
	var report presencelog.SweepPayload

	h.mu.Lock()
	defer h.mu.Unlock()

	for resourceID, set := range h.viewers {
		if len(set) == 0 {
			delete(h.viewers, resourceID)
			delete(h.lastCount, resourceID)
			report.EmptyViewerSets++
		}
	}

	for resourceID, touched := range h.lastCount {
		if _, live := h.viewers[resourceID]; live {
			continue
		}
		if now.Sub(touched) > throttleStaleAfter {
			delete(h.lastCount, resourceID)
			report.StaleThrottles++
		}
	}

	if len(h.lastCount) > throttleHardCap {
		type entry struct {
			resourceID string
			touched    time.Time
		}
		entries := make([]entry, 0, len(h.lastCount))
		for resourceID, touched := range h.lastCount {
			entries = append(entries, entry{resourceID, touched})
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].touched.After(entries[j].touched)
		})
		for _, stale := range entries[throttleKeepOnTrim:] {
			delete(h.lastCount, stale.resourceID)
			report.TrimmedThrottles++
		}
	}

	for userID, connID := range h.worldSessions {
		if _, live := h.conns[connID]; !live {
			delete(h.worldSessions, userID)
			report.DeadSessions++
		}
	}

	return report
}
