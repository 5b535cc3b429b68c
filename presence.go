package server

import (
	"time"

	"pixelplaza/server/internal/net/proto"
)

// JoinResource adds the connection to the resource's viewer set, creating it
// lazily, and attempts a throttled viewer-count broadcast.
func (h *Hub) JoinResource(connID, resourceID string) {
	now := h.clock()

	h.mu.Lock()
	if _, ok := h.conns[connID]; !ok {
		h.mu.Unlock()
		return
	}
	set := h.viewers[resourceID]
	if set == nil {
		set = make(map[string]struct{})
		h.viewers[resourceID] = set
	}
	set[connID] = struct{}{}
	msgs := h.viewerCountOutboundLocked(resourceID, now)
	h.mu.Unlock()

	h.deliver(msgs)
}

// LeaveResource removes the connection from the resource's viewer set.
// A set that becomes empty is deleted rather than kept as a placeholder.
func (h *Hub) LeaveResource(connID, resourceID string) {
	now := h.clock()

	h.mu.Lock()
	set, ok := h.viewers[resourceID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, member := set[connID]; !member {
		h.mu.Unlock()
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(h.viewers, resourceID)
	}
	msgs := h.viewerCountOutboundLocked(resourceID, now)
	h.mu.Unlock()

	h.deliver(msgs)
}

// ResourceViewerCount returns the live viewer cardinality for one resource.
func (h *Hub) ResourceViewerCount(resourceID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers[resourceID])
}

// AllResourceViewerCounts returns the live cardinality of every tracked
// resource.
func (h *Hub) AllResourceViewerCounts() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	counts := make(map[string]int, len(h.viewers))
	for resourceID, set := range h.viewers {
		counts[resourceID] = len(set)
	}
	return counts
}

// viewerCountOutboundLocked attempts a count broadcast for the resource,
// suppressed while the throttle window is open. Counts are eventually
// consistent: once churn settles, the next unsuppressed mutation reports
// the true cardinality, so no trailing broadcast is forced.
func (h *Hub) viewerCountOutboundLocked(resourceID string, now time.Time) []outbound {
	if last, ok := h.lastCount[resourceID]; ok && now.Sub(last) < countBroadcastInterval {
		return nil
	}

	set := h.viewers[resourceID]
	if len(set) == 0 {
		return nil
	}
	h.lastCount[resourceID] = now

	payload := proto.ResourceViewerCountPayload{ResourceID: resourceID, Count: len(set)}
	msgs := make([]outbound, 0, len(set))
	for connID := range set {
		conn, ok := h.conns[connID]
		if !ok {
			continue
		}
		msgs = append(msgs, outbound{connID: connID, session: conn.session,
			event: proto.EventResourceViewerCount, payload: payload})
	}
	return msgs
}

// leaveAllResourcesLocked removes a departing connection from every viewer
// set it belongs to; its interest may have drifted from what it declared.
func (h *Hub) leaveAllResourcesLocked(connID string, now time.Time) []outbound {
	var msgs []outbound
	for resourceID, set := range h.viewers {
		if _, member := set[connID]; !member {
			continue
		}
		delete(set, connID)
		if len(set) == 0 {
			delete(h.viewers, resourceID)
			continue
		}
		msgs = append(msgs, h.viewerCountOutboundLocked(resourceID, now)...)
	}
	return msgs
}
