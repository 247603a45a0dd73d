package server

import (
	"math/rand"
	"time"
)

const (
	// maxPlacementAttempts bounds the respawn avoidance search. After the
	// last failed attempt the pick is accepted anyway so a crowded arena can
	// never stall obstacle recycling.
	maxPlacementAttempts = 10

	respawnYMin     = 20.0
	respawnYPadding = 50.0
)

// stepPlayers applies each living player's sticky intent as one fixed step.
// The authoritative loop runs at a fixed rate, so the step is per tick, not
// scaled by the wall-clock delta. Movement is denied past the arena margins.
func stepPlayers(players map[string]*Player, cfg Config, arenaWidth, arenaHeight float64, now time.Time) {
	for _, p := range players {
		if p.State != LifeAlive {
			continue
		}
		intent := p.Intent()
		if intent.Up {
			p.Y -= cfg.PlayerStep
		}
		if intent.Down {
			p.Y += cfg.PlayerStep
		}
		if intent.Left {
			p.X -= cfg.PlayerStep
		}
		if intent.Right {
			p.X += cfg.PlayerStep
		}
		p.X = clamp(p.X, cfg.EdgeMargin, arenaWidth-p.Width-cfg.EdgeMargin)
		p.Y = clamp(p.Y, cfg.EdgeMargin, arenaHeight-p.Height-cfg.EdgeMargin)
		p.lastUpdate = now
	}
}

// eliminateOutOfBounds kills every living player whose hitbox extends past
// the in-bounds rectangle. A hitbox exactly on the edge survives. Returns the
// players eliminated this call.
func eliminateOutOfBounds(players map[string]*Player, bounds Rect, insetFraction float64) []*Player {
	var eliminated []*Player
	for _, p := range players {
		if p.State != LifeAlive {
			continue
		}
		if bounds.contains(p.Hitbox(insetFraction)) {
			continue
		}
		if p.MarkDead() {
			eliminated = append(eliminated, p)
		}
	}
	return eliminated
}

// collidePlayers kills every living player whose inset hitbox overlaps an
// active obstacle's inset hitbox. Obstacles are unaffected by the hit and
// keep moving. Returns the players eliminated this call.
func collidePlayers(players map[string]*Player, obstacles []*Obstacle, insetFraction float64) []*Player {
	var eliminated []*Player
	for _, p := range players {
		if p.State != LifeAlive {
			continue
		}
		hitbox := p.Hitbox(insetFraction)
		for _, o := range obstacles {
			if !o.Active {
				continue
			}
			if rectsOverlap(o.Hitbox(insetFraction), hitbox) {
				if p.MarkDead() {
					eliminated = append(eliminated, p)
				}
				break
			}
		}
	}
	return eliminated
}

// obstacleSpeedFor samples the horizontal speed for a spawn: a base constant
// plus a per-living-player bonus. Speed does not ramp mid-flight.
func obstacleSpeedFor(cfg Config, aliveCount int) float64 {
	return cfg.BaseObstacleSpeed + cfg.ObstacleSpeedPerAlive*float64(aliveCount)
}

// safeZone returns the placement exclusion rectangle centered on a player.
func safeZone(p *Player, cfg Config) Rect {
	centerX := p.X + p.Width/2
	centerY := p.Y + p.Height/2
	return Rect{
		X:      centerX - cfg.SafeZoneWidth/2,
		Y:      centerY - cfg.SafeZoneHeight/2,
		Width:  cfg.SafeZoneWidth,
		Height: cfg.SafeZoneHeight,
	}
}

// placementClear reports whether a candidate box avoids every living
// player's safe zone and every active obstacle other than self.
func placementClear(candidate Rect, players map[string]*Player, obstacles []*Obstacle, self *Obstacle, cfg Config) bool {
	for _, p := range players {
		if p.State != LifeAlive {
			continue
		}
		if rectsOverlap(candidate, safeZone(p, cfg)) {
			return false
		}
	}
	for _, other := range obstacles {
		if other == self || !other.Active {
			continue
		}
		if rectsOverlap(candidate, other.Bounds()) {
			return false
		}
	}
	return true
}

// pickRespawnY searches for a vertical slot that avoids every living
// player's safe zone and every other active obstacle. Two recycled
// obstacles share the same off-screen x, so the obstacle check is what
// keeps them from respawning on top of each other. Up to
// maxPlacementAttempts picks are tried; the last pick is accepted even
// when it still intersects something, trading a perfect guarantee for
// bounded work.
func pickRespawnY(rng *rand.Rand, o *Obstacle, players map[string]*Player, obstacles []*Obstacle, cfg Config, arenaHeight float64) float64 {
	span := arenaHeight - respawnYPadding - respawnYMin
	if span <= 0 {
		return respawnYMin
	}

	var y float64
	for attempt := 0; attempt < maxPlacementAttempts; attempt++ {
		y = respawnYMin + rng.Float64()*span
		candidate := Rect{X: o.X, Y: y, Width: o.Width, Height: o.Height}
		if placementClear(candidate, players, obstacles, o, cfg) {
			return y
		}
	}
	return y
}

// respawnObstacle recycles an obstacle that left the arena: back to just off
// the left edge, a fresh avoidance-checked row, a re-rolled size and cosmetic
// variant, and a speed re-sampled from the current field size.
func respawnObstacle(o *Obstacle, rng *rand.Rand, cfg Config, arenaHeight float64, players map[string]*Player, obstacles []*Obstacle, aliveCount int) {
	o.Width = cfg.ObstacleMinWidth + rng.Float64()*(cfg.ObstacleMaxWidth-cfg.ObstacleMinWidth)
	o.Height = cfg.ObstacleHeight
	o.X = -o.Width
	o.Y = pickRespawnY(rng, o, players, obstacles, cfg, arenaHeight)
	o.Speed = obstacleSpeedFor(cfg, aliveCount)
	o.Variant = rng.Intn(obstacleVariants)
	o.Active = true
}

// spawnObstacle places a brand-new obstacle somewhere across the arena at
// match start. Placement rejects picks overlapping living players' safe
// zones or already-placed obstacles, with the same bounded-attempt policy as
// respawning.
func spawnObstacle(id int, rng *rand.Rand, cfg Config, arenaWidth, arenaHeight float64, players map[string]*Player, existing []*Obstacle, aliveCount int) *Obstacle {
	o := &Obstacle{
		ID:      id,
		Height:  cfg.ObstacleHeight,
		Speed:   obstacleSpeedFor(cfg, aliveCount),
		Variant: rng.Intn(obstacleVariants),
		Active:  true,
	}

	ySpan := arenaHeight - respawnYPadding - respawnYMin
	if ySpan <= 0 {
		ySpan = 0
	}

	for attempt := 0; attempt < maxPlacementAttempts; attempt++ {
		o.Width = cfg.ObstacleMinWidth + rng.Float64()*(cfg.ObstacleMaxWidth-cfg.ObstacleMinWidth)
		o.X = rng.Float64() * (arenaWidth - o.Width)
		o.Y = respawnYMin + rng.Float64()*ySpan

		if placementClear(o.Bounds(), players, existing, o, cfg) {
			break
		}
	}
	return o
}

// advanceObstacles moves every active obstacle and recycles the ones that
// crossed the right edge.
func advanceObstacles(obstacles []*Obstacle, dt float64, rng *rand.Rand, cfg Config, arenaWidth, arenaHeight float64, players map[string]*Player, aliveCount int) {
	for _, o := range obstacles {
		if !o.Active {
			continue
		}
		o.X += o.Speed * dt
		if o.X > arenaWidth {
			respawnObstacle(o, rng, cfg, arenaHeight, players, obstacles, aliveCount)
		}
	}
}
