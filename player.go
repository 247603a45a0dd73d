package server

import (
	"fmt"
	"time"
)

// maxNameLength bounds display names on the wire and in logs.
const maxNameLength = 20

// spawnBottomMargin keeps freshly placed players off the bottom edge.
const spawnBottomMargin = 20.0

// LifeState tracks a player's standing within the current match.
type LifeState string

const (
	LifeAlive      LifeState = "alive"
	LifeDead       LifeState = "dead"
	LifeSpectating LifeState = "spectating"
)

// InputIntent is the sticky movement intent reported by a client. Each input
// message replaces the previous intent wholesale.
type InputIntent struct {
	Up    bool `json:"up"`
	Down  bool `json:"down"`
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

// Player is the authoritative record for one connected session. Life-state
// transitions and intent updates go through the mutators below so that the
// one-way alive→dead/spectating rule holds at a single choke point.
type Player struct {
	SessionID string
	Index     int
	Name      string
	X         float64
	Y         float64
	Width     float64
	Height    float64
	State     LifeState
	Score     int

	pending    InputIntent
	lastUpdate time.Time
}

func newPlayer(sessionID string, index int, name string, state LifeState, cfg Config) *Player {
	p := &Player{
		SessionID: sessionID,
		Index:     index,
		Width:     cfg.PlayerWidth,
		Height:    cfg.PlayerHeight,
		State:     state,
	}
	p.SetName(name)
	p.ResetPosition(cfg.ArenaWidth, cfg.ArenaHeight)
	return p
}

// SetName applies a display name, truncated to the wire limit. An empty name
// falls back to the positional default.
func (p *Player) SetName(name string) {
	if name == "" {
		name = fmt.Sprintf("Player %d", p.Index+1)
	}
	runes := []rune(name)
	if len(runes) > maxNameLength {
		runes = runes[:maxNameLength]
	}
	p.Name = string(runes)
}

// SetIntent replaces the pending movement intent. Last write wins.
func (p *Player) SetIntent(intent InputIntent) {
	p.pending = intent
}

// Intent returns the current pending movement intent.
func (p *Player) Intent() InputIntent {
	return p.pending
}

// ResetPosition centers the player horizontally near the bottom of the arena.
func (p *Player) ResetPosition(arenaWidth, arenaHeight float64) {
	p.X = arenaWidth/2 - p.Width/2
	p.Y = arenaHeight - p.Height - spawnBottomMargin
}

// MarkDead transitions alive→dead. It reports whether the transition fired;
// dead and spectating players never come back within a match.
func (p *Player) MarkDead() bool {
	if p.State != LifeAlive {
		return false
	}
	p.State = LifeDead
	return true
}

// MarkSpectator transitions alive→spectating. One-way, like MarkDead.
func (p *Player) MarkSpectator() bool {
	if p.State != LifeAlive {
		return false
	}
	p.State = LifeSpectating
	return true
}

// revive re-arms the player for a fresh match. Only a full match reset may
// call this; it is the single exception to the one-way life-state rule.
func (p *Player) revive(arenaWidth, arenaHeight float64) {
	p.State = LifeAlive
	p.pending = InputIntent{}
	p.ResetPosition(arenaWidth, arenaHeight)
}

// Bounds returns the player's visual bounding box.
func (p *Player) Bounds() Rect {
	return Rect{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
}

// Hitbox returns the collision box, inset by the configured fraction.
func (p *Player) Hitbox(insetFraction float64) Rect {
	return p.Bounds().inset(insetFraction)
}
