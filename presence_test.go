package server

import (
	"testing"
	"time"

	"pixelplaza/server/internal/net/proto"
)

func lastViewerCount(t *testing.T, sess *fakeSession) proto.ResourceViewerCountPayload {
	t.Helper()
	got := sess.eventsOf(proto.EventResourceViewerCount)
	if len(got) == 0 {
		t.Fatalf("no resourceViewerCount received")
	}
	return got[len(got)-1].payload.(proto.ResourceViewerCountPayload)
}

func TestJoinResourceBroadcastsCount(t *testing.T) {
	hub, _ := newTestHub(t)

	conn1, sess1 := register(t, hub, "")
	hub.JoinResource(conn1, "game-1")

	payload := lastViewerCount(t, sess1)
	if payload.ResourceID != "game-1" || payload.Count != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestViewerCountThrottleSuppressesBursts(t *testing.T) {
	hub, clock := newTestHub(t)

	conn1, sess1 := register(t, hub, "")
	hub.JoinResource(conn1, "game-1")
	if got := len(sess1.eventsOf(proto.EventResourceViewerCount)); got != 1 {
		t.Fatalf("expected one broadcast, got %d", got)
	}

	// Inside the throttle window every attempt is suppressed.
	conn2, sess2 := register(t, hub, "")
	clock.Advance(50 * time.Millisecond)
	hub.JoinResource(conn2, "game-1")
	if got := len(sess1.eventsOf(proto.EventResourceViewerCount)); got != 1 {
		t.Fatalf("throttled join still broadcast, got %d", got)
	}
	if got := len(sess2.eventsOf(proto.EventResourceViewerCount)); got != 0 {
		t.Fatalf("throttled join still broadcast to joiner")
	}

	// Once the window elapses, the next mutation reports the true cardinality.
	clock.Advance(countBroadcastInterval)
	conn3, _ := register(t, hub, "")
	hub.JoinResource(conn3, "game-1")

	if payload := lastViewerCount(t, sess1); payload.Count != 3 {
		t.Fatalf("expected settled count 3, got %d", payload.Count)
	}
	if hub.ResourceViewerCount("game-1") != 3 {
		t.Fatalf("cardinality mismatch")
	}
}

func TestLeaveResourceDeletesEmptySet(t *testing.T) {
	hub, _ := newTestHub(t)

	conn1, _ := register(t, hub, "")
	hub.JoinResource(conn1, "game-1")
	hub.LeaveResource(conn1, "game-1")

	hub.mu.Lock()
	_, exists := hub.viewers["game-1"]
	hub.mu.Unlock()
	if exists {
		t.Fatalf("empty viewer set must be deleted, not kept as a placeholder")
	}
	if hub.ResourceViewerCount("game-1") != 0 {
		t.Fatalf("expected zero viewers")
	}
}

func TestLeaveResourceIgnoresNonMembers(t *testing.T) {
	hub, _ := newTestHub(t)

	conn1, _ := register(t, hub, "")
	conn2, _ := register(t, hub, "")
	hub.JoinResource(conn1, "game-1")
	hub.LeaveResource(conn2, "game-1")

	if hub.ResourceViewerCount("game-1") != 1 {
		t.Fatalf("non-member leave mutated the set")
	}
}

func TestDisconnectLeavesEveryResource(t *testing.T) {
	hub, clock := newTestHub(t)

	conn1, _ := register(t, hub, "")
	conn2, sess2 := register(t, hub, "")
	hub.JoinResource(conn1, "game-1")
	hub.JoinResource(conn1, "game-2")
	clock.Advance(countBroadcastInterval + time.Millisecond)
	hub.JoinResource(conn2, "game-1")

	clock.Advance(countBroadcastInterval + time.Millisecond)
	hub.Unregister(conn1)

	if hub.ResourceViewerCount("game-1") != 1 {
		t.Fatalf("departing connection must leave game-1")
	}
	if hub.ResourceViewerCount("game-2") != 0 {
		t.Fatalf("departing connection must leave game-2")
	}
	if payload := lastViewerCount(t, sess2); payload.Count != 1 {
		t.Fatalf("remaining viewer expected settled count 1, got %d", payload.Count)
	}

	counts := hub.AllResourceViewerCounts()
	if len(counts) != 1 || counts["game-1"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}
