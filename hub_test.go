package server

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"pixelplaza/server/internal/identity"
	"pixelplaza/server/internal/net/proto"
)

type sentEvent struct {
	event   string
	payload any
}

type fakeSession struct {
	mu       sync.Mutex
	events   []sentEvent
	closed   bool
	failSend bool
}

func (s *fakeSession) Send(event string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSend {
		return errors.New("send failed")
	}
	s.events = append(s.events, sentEvent{event: event, payload: payload})
	return nil
}

func (s *fakeSession) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSession) eventsOf(event string) []sentEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []sentEvent
	for _, e := range s.events {
		if e.event == event {
			matched = append(matched, e)
		}
	}
	return matched
}

func (s *fakeSession) eventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// testVerifier accepts tokens of the form "tok-<userID>".
func testVerifier() identity.TokenVerifier {
	return identity.VerifierFunc(func(token string) (string, error) {
		if userID, ok := strings.CutPrefix(token, "tok-"); ok {
			return userID, nil
		}
		return "", identity.ErrInvalidToken
	})
}

func testAccounts() identity.Lookup {
	return identity.NewStaticLookup(
		identity.Account{ID: "alice", DisplayName: "Alice", CharType: "queen", Level: 12, RankTitle: "Grandmaster", ExpPoints: 3400, Status: "active"},
		identity.Account{ID: "bob", DisplayName: "Bob", CharType: "rook", Level: 3, RankTitle: "Novice", ExpPoints: 120, Status: "active"},
		identity.Account{ID: "mallory", DisplayName: "Mallory", Level: 1, Status: "suspended"},
	)
}

func newTestHub(t *testing.T) (*Hub, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	hub := NewHub(Config{
		Identity: testAccounts(),
		Verifier: testVerifier(),
		Clock:    clock.Now,
		Seed:     1,
	})
	return hub, clock
}

func register(t *testing.T, hub *Hub, token string) (string, *fakeSession) {
	t.Helper()
	sess := &fakeSession{}
	creds := Credentials{Token: token}
	connID, _ := hub.Register(context.Background(), sess, creds)
	return connID, sess
}

func joinWorld(t *testing.T, hub *Hub, connID, name string) {
	t.Helper()
	if !hub.JoinWorld(context.Background(), connID, proto.JoinCommand{Name: name, CharType: "pawn"}) {
		t.Fatalf("join failed for %s", connID)
	}
}

// TestScenarioSecondSessionSupersedesFirst walks the full two-user flow:
// authenticated join, movement delta, and eviction of the first session when
// the same user joins again from a second connection.
func TestScenarioSecondSessionSupersedesFirst(t *testing.T) {
	hub, _ := newTestHub(t)

	connA1, sessA1 := register(t, hub, "tok-alice")
	joinWorld(t, hub, connA1, "ignored")

	snapshots := sessA1.eventsOf(proto.EventCurrentPlayers)
	if len(snapshots) != 1 {
		t.Fatalf("expected one currentPlayers snapshot, got %d", len(snapshots))
	}
	snapshot := snapshots[0].payload.(proto.CurrentPlayersPayload)
	if snapshot.You.Name != "Alice" {
		t.Fatalf("expected account display name, got %q", snapshot.You.Name)
	}
	if collides(hub.obstacles, snapshot.You.X, snapshot.You.Z, participantRadius) {
		t.Fatalf("spawn (%f, %f) violates the collision predicate", snapshot.You.X, snapshot.You.Z)
	}
	if dist := (snapshot.You.X*snapshot.You.X + snapshot.You.Z*snapshot.You.Z); dist > planeRadius*planeRadius {
		t.Fatalf("spawn outside plane radius: %f", dist)
	}

	connB, sessB := register(t, hub, "tok-bob")
	joinWorld(t, hub, connB, "ignored")

	if got := sessA1.eventsOf(proto.EventNewPlayer); len(got) != 1 {
		t.Fatalf("expected A to see B join, got %d newPlayer events", len(got))
	}

	if !hub.Move(connA1, proto.MoveCommand{X: 5, Z: 5}) {
		t.Fatalf("move rejected")
	}
	moved := sessB.eventsOf(proto.EventPlayerMoved)
	if len(moved) != 1 {
		t.Fatalf("expected B to receive one playerMoved, got %d", len(moved))
	}
	delta := moved[0].payload.(proto.PlayerMovedPayload)
	if delta.ID != connA1 || delta.X != 5 || delta.Z != 5 {
		t.Fatalf("unexpected move delta: %+v", delta)
	}

	connA2, sessA2 := register(t, hub, "tok-alice")
	joinWorld(t, hub, connA2, "ignored")

	if got := sessA1.eventsOf(proto.EventSessionSuperseded); len(got) != 1 {
		t.Fatalf("expected first session to be superseded, got %d events", len(got))
	}
	if !sessA1.isClosed() {
		t.Fatalf("expected first session to be closed")
	}
	disconnected := sessB.eventsOf(proto.EventPlayerDisconnected)
	if len(disconnected) != 1 {
		t.Fatalf("expected B to see one playerDisconnected, got %d", len(disconnected))
	}
	if payload := disconnected[0].payload.(proto.PlayerDisconnectedPayload); payload.ID != connA1 {
		t.Fatalf("expected disconnect for %s, got %s", connA1, payload.ID)
	}
	newPlayers := sessB.eventsOf(proto.EventNewPlayer)
	if len(newPlayers) != 2 {
		t.Fatalf("expected B to see two newPlayer events, got %d", len(newPlayers))
	}
	if payload := newPlayers[1].payload.(proto.Player); payload.ID != connA2 {
		t.Fatalf("expected rejoin as %s, got %s", connA2, payload.ID)
	}
	if sessA2.eventCount() == 0 {
		t.Fatalf("expected second session to receive events")
	}
}

func TestSendToUserReachesEveryConnection(t *testing.T) {
	hub, _ := newTestHub(t)

	_, sess1 := register(t, hub, "tok-alice")
	_, sess2 := register(t, hub, "tok-alice")
	_, other := register(t, hub, "tok-bob")

	hub.SendToUser("alice", proto.EventGameStarted, map[string]string{"gameId": "g1"})

	for i, sess := range []*fakeSession{sess1, sess2} {
		if got := sess.eventsOf(proto.EventGameStarted); len(got) != 1 {
			t.Fatalf("connection %d expected one gameStarted, got %d", i, len(got))
		}
	}
	if got := other.eventsOf(proto.EventGameStarted); len(got) != 0 {
		t.Fatalf("bob should not receive alice's personal event")
	}
}

func TestBroadcastExcludesUsers(t *testing.T) {
	hub, _ := newTestHub(t)

	_, sessAlice := register(t, hub, "tok-alice")
	_, sessBob := register(t, hub, "tok-bob")
	_, sessAnon := register(t, hub, "")

	hub.Broadcast(proto.EventServerStats, hub.StatsSnapshot(), "alice")

	if got := sessAlice.eventsOf(proto.EventServerStats); len(got) != 0 {
		t.Fatalf("excluded user received broadcast")
	}
	if got := sessBob.eventsOf(proto.EventServerStats); len(got) != 1 {
		t.Fatalf("expected bob to receive broadcast, got %d", len(got))
	}
	if got := sessAnon.eventsOf(proto.EventServerStats); len(got) != 1 {
		t.Fatalf("expected anonymous connection to receive broadcast, got %d", len(got))
	}
}

func TestOnlineListings(t *testing.T) {
	hub, _ := newTestHub(t)

	connAlice, _ := register(t, hub, "tok-alice")
	register(t, hub, "tok-bob")
	register(t, hub, "")

	if !hub.IsUserOnline("alice") {
		t.Fatalf("alice should be online")
	}
	if hub.IsUserOnline("carol") {
		t.Fatalf("carol should not be online")
	}
	if got := hub.ListOnlineUsers(); len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Fatalf("unexpected online users: %v", got)
	}

	joinWorld(t, hub, connAlice, "Alice")
	if got := hub.ListWorldOnlineUsers(); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("unexpected world users: %v", got)
	}
}

func TestFailedSendUnregistersConnection(t *testing.T) {
	hub, _ := newTestHub(t)

	connA, _ := register(t, hub, "tok-alice")
	joinWorld(t, hub, connA, "Alice")

	connB, sessB := register(t, hub, "tok-bob")
	joinWorld(t, hub, connB, "Bob")
	sessB.mu.Lock()
	sessB.failSend = true
	sessB.mu.Unlock()

	hub.Move(connA, proto.MoveCommand{X: 1, Z: 1})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := hub.Lookup(connB); !ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %s to be unregistered after write failure", connB)
}

func TestStatsSnapshotCountsRegistries(t *testing.T) {
	hub, clock := newTestHub(t)

	connA, _ := register(t, hub, "tok-alice")
	register(t, hub, "")
	joinWorld(t, hub, connA, "Alice")
	hub.JoinResource(connA, "game-9")

	clock.Advance(90 * time.Second)
	stats := hub.StatsSnapshot()

	if stats.Connections != 2 {
		t.Fatalf("expected 2 connections, got %d", stats.Connections)
	}
	if stats.AuthenticatedUsers != 1 {
		t.Fatalf("expected 1 authenticated user, got %d", stats.AuthenticatedUsers)
	}
	if stats.WorldParticipants != 1 {
		t.Fatalf("expected 1 participant, got %d", stats.WorldParticipants)
	}
	if stats.TrackedResources != 1 {
		t.Fatalf("expected 1 tracked resource, got %d", stats.TrackedResources)
	}
	if stats.TotalConnections != 2 {
		t.Fatalf("expected lifetime total 2, got %d", stats.TotalConnections)
	}
	if stats.UptimeSeconds != 90 {
		t.Fatalf("expected uptime 90s, got %d", stats.UptimeSeconds)
	}
}
