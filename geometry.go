package server

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// Obstacle is a static circular collision surface on the plaza plane.
type Obstacle struct {
	Name   string
	Center mgl64.Vec2
	Radius float64
}

// fallbackSpawn is the known-safe coordinate used when every sampled
// candidate collides.
var fallbackSpawn = mgl64.Vec2{12, 6}

// defaultObstacles returns the fixed plaza layout: the central fountain,
// four lamp posts between the rings, an oak ring on the promenade, and the
// notice board inside the plaza ring.
func defaultObstacles() []Obstacle {
	obstacles := []Obstacle{
		{Name: "fountain", Center: mgl64.Vec2{0, 0}, Radius: 5},
		{Name: "notice-board", Center: mgl64.Vec2{-10, 3}, Radius: 1.2},
		{Name: "lamp-ne", Center: mgl64.Vec2{17.5, 17.5}, Radius: 0.6},
		{Name: "lamp-nw", Center: mgl64.Vec2{-17.5, 17.5}, Radius: 0.6},
		{Name: "lamp-se", Center: mgl64.Vec2{17.5, -17.5}, Radius: 0.6},
		{Name: "lamp-sw", Center: mgl64.Vec2{-17.5, -17.5}, Radius: 0.6},
	}
	const oaks = 6
	for i := 0; i < oaks; i++ {
		angle := 2 * math.Pi * float64(i) / oaks
		center := mgl64.Vec2{28 * math.Cos(angle), 28 * math.Sin(angle)}
		obstacles = append(obstacles, Obstacle{Name: "oak", Center: center, Radius: 1.8})
	}
	return obstacles
}

// collides reports whether a circle of the given radius at (x, z) crosses the
// plane boundary or overlaps any obstacle.
func collides(obstacles []Obstacle, x, z, radius float64) bool {
	point := mgl64.Vec2{x, z}
	if point.Len()+radius > planeRadius {
		return true
	}
	for _, obs := range obstacles {
		if point.Sub(obs.Center).Len() < obs.Radius+radius {
			return true
		}
	}
	return false
}

// spawnPosition picks a collision-free coordinate. A saved coordinate is
// honored when it passes the collision predicate; otherwise candidates are
// sampled from the plaza ring (with probability plazaSpawnBias) or the
// promenade ring, with a bounded retry count and a hard fallback so the
// search always terminates.
func spawnPosition(rng *rand.Rand, obstacles []Obstacle, saved *mgl64.Vec2) mgl64.Vec2 {
	if saved != nil && isFinite(saved.X()) && isFinite(saved.Y()) &&
		!collides(obstacles, saved.X(), saved.Y(), participantRadius) {
		return *saved
	}

	for attempt := 0; attempt < spawnAttempts; attempt++ {
		inner, outer := plazaRingInner, plazaRingOuter
		if rng.Float64() >= plazaSpawnBias {
			inner, outer = promenadeRingInner, promenadeRingOuter
		}
		distance := inner + rng.Float64()*(outer-inner)
		angle := rng.Float64() * 2 * math.Pi
		x := distance * math.Cos(angle)
		z := distance * math.Sin(angle)
		if !collides(obstacles, x, z, participantRadius) {
			return mgl64.Vec2{x, z}
		}
	}

	return fallbackSpawn
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
