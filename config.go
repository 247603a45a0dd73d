package server

import "time"

// Config carries every tunable a room consumes. Each room receives its own
// copy at creation time; nothing in this package reads process-wide state.
type Config struct {
	MaxPlayers   int
	TickInterval time.Duration
	Countdown    time.Duration

	ArenaWidth  float64
	ArenaHeight float64

	PlayerWidth  float64
	PlayerHeight float64
	PlayerStep   float64 // distance covered per held direction per tick
	EdgeMargin   float64

	BaseObstacleCount     int
	ObstacleMinWidth      float64
	ObstacleMaxWidth      float64
	ObstacleHeight        float64
	BaseObstacleSpeed     float64 // px per second
	ObstacleSpeedPerAlive float64 // added to base per living player at spawn

	HitboxInset    float64 // fraction shaved off each side for collision tests
	SafeZoneWidth  float64
	SafeZoneHeight float64

	ShrinkInterval    time.Duration
	ShrinkStep        float64
	MinAreaPercentage float64

	HeartbeatTimeout time.Duration
	SendQueueSize    int
	CommandQueueSize int
}

// DefaultConfig returns the standard multiplayer tuning.
func DefaultConfig() Config {
	return Config{
		MaxPlayers:   30,
		TickInterval: 33 * time.Millisecond,
		Countdown:    3 * time.Second,

		ArenaWidth:  800,
		ArenaHeight: 600,

		PlayerWidth:  40,
		PlayerHeight: 40,
		PlayerStep:   6,
		EdgeMargin:   10,

		BaseObstacleCount:     5,
		ObstacleMinWidth:      40,
		ObstacleMaxWidth:      120,
		ObstacleHeight:        20,
		BaseObstacleSpeed:     120,
		ObstacleSpeedPerAlive: 6,

		HitboxInset:    0.2,
		SafeZoneWidth:  100,
		SafeZoneHeight: 100,

		ShrinkInterval:    10 * time.Second,
		ShrinkStep:        10,
		MinAreaPercentage: 40,

		HeartbeatTimeout: 6 * time.Second,
		SendQueueSize:    64,
		CommandQueueSize: 256,
	}
}

// normalized clamps values that would stall or break a room.
func (c Config) normalized() Config {
	if c.MaxPlayers < 1 {
		c.MaxPlayers = 1
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 33 * time.Millisecond
	}
	if c.ArenaWidth <= 0 {
		c.ArenaWidth = 800
	}
	if c.ArenaHeight <= 0 {
		c.ArenaHeight = 600
	}
	if c.HitboxInset < 0 || c.HitboxInset >= 0.5 {
		c.HitboxInset = 0.2
	}
	if c.MinAreaPercentage < 1 {
		c.MinAreaPercentage = 1
	}
	if c.MinAreaPercentage > 100 {
		c.MinAreaPercentage = 100
	}
	if c.SendQueueSize < 1 {
		c.SendQueueSize = 64
	}
	if c.CommandQueueSize < 1 {
		c.CommandQueueSize = 256
	}
	return c
}
