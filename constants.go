package server

import "time"

const (
	// writeWait bounds a single outbound websocket write.
	writeWait = 10 * time.Second

	// planeRadius is the radius of the circular shared plaza. The outer
	// boundary is itself a collision surface.
	planeRadius = 45.0

	// participantRadius is the collision radius of every avatar.
	participantRadius = 0.9

	// Spawn sampling annuli. Most joiners land in the central plaza ring,
	// the rest on the outer promenade.
	plazaRingInner     = 8.0
	plazaRingOuter     = 15.0
	promenadeRingInner = 20.0
	promenadeRingOuter = 35.0
	plazaSpawnBias     = 0.7
	spawnAttempts      = 24

	// moveBound is the anti-cheat clamp on client-reported coordinates.
	moveBound = 100.0

	// maxChatRunes caps a single chat message after sanitization.
	maxChatRunes = 280

	// chatHistoryLimit and chatHistoryTTL bound the shared-world chat replay
	// buffer.
	chatHistoryLimit = 15
	chatHistoryTTL   = 24 * time.Hour

	// countBroadcastInterval throttles per-resource viewer-count broadcasts.
	countBroadcastInterval = 200 * time.Millisecond

	// Janitor tuning. The sweep is a backstop for connections that vanished
	// without a clean disconnect.
	janitorInterval    = 15 * time.Minute
	throttleStaleAfter = 30 * time.Minute
	throttleHardCap    = 1000
	throttleKeepOnTrim = 500
)

// defaultCharType is assigned when a joiner submits an unknown character.
const defaultCharType = "pawn"

// allowedCharTypes is the closed set accepted by changeCharacter.
var allowedCharTypes = map[string]struct{}{
	"pawn":   {},
	"knight": {},
	"bishop": {},
	"rook":   {},
	"queen":  {},
	"king":   {},
}

// ChatHistoryLimit is exported for store implementations that trim remotely.
const ChatHistoryLimit = chatHistoryLimit

// ChatHistoryTTL is exported alongside ChatHistoryLimit.
const ChatHistoryTTL = chatHistoryTTL
