package server

import (
	"fmt"
	"math/rand"
	"sort"
	"time"
)

// Phase is the coarse state of one match.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseStarting Phase = "starting"
	PhasePlaying  Phase = "playing"
	PhaseGameOver Phase = "gameover"
)

// NoWinnerName is reported when every remaining player dies in the same tick.
const NoWinnerName = "No one"

// Match is the aggregate root for one arena. All mutation happens on the
// owning room's goroutine; Match itself is not safe for concurrent use.
type Match struct {
	cfg Config
	rng *rand.Rand

	phase     Phase
	players   map[string]*Player
	obstacles []*Obstacle

	arenaWidth  float64
	arenaHeight float64

	areaPercentage float64
	winnerName     string

	startTime         time.Time
	elapsed           time.Duration
	countdownDeadline time.Time
	countdownLeft     time.Duration
	nextShrink        time.Time

	aliveCount   int
	totalPlayers int

	nextIndex      int
	nextObstacleID int
}

// NewMatch builds an idle match in the Waiting phase. The rng drives obstacle
// placement; tests pass a seeded source for reproducible layouts.
func NewMatch(cfg Config, rng *rand.Rand) *Match {
	cfg = cfg.normalized()
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Match{
		cfg:            cfg,
		rng:            rng,
		phase:          PhaseWaiting,
		players:        make(map[string]*Player),
		arenaWidth:     cfg.ArenaWidth,
		arenaHeight:    cfg.ArenaHeight,
		areaPercentage: 100,
	}
}

// Phase returns the current phase.
func (m *Match) Phase() Phase { return m.phase }

// WinnerName returns the winner label, set only on entry to GameOver.
func (m *Match) WinnerName() string { return m.winnerName }

// AliveCount returns the incrementally maintained living-player count.
func (m *Match) AliveCount() int { return m.aliveCount }

// TotalPlayers returns the number of players that have joined this match.
// It never decreases until a full reset.
func (m *Match) TotalPlayers() int { return m.totalPlayers }

// PlayerCount returns the number of live session records.
func (m *Match) PlayerCount() int { return len(m.players) }

// Player looks up a player by session id.
func (m *Match) Player(sessionID string) (*Player, bool) {
	p, ok := m.players[sessionID]
	return p, ok
}

// AddPlayer creates the player record for a session. Joins during the lobby
// phases enter alive; joins during a running or finished match spectate until
// the next reset, so a late join can never re-arm the win condition.
func (m *Match) AddPlayer(sessionID, name string, now time.Time) (*Player, error) {
	if _, ok := m.players[sessionID]; ok {
		return nil, fmt.Errorf("session %s already joined", sessionID)
	}

	state := LifeAlive
	if m.phase == PhasePlaying || m.phase == PhaseGameOver {
		state = LifeSpectating
	}

	p := newPlayer(sessionID, m.nextIndex, name, state, m.cfg)
	m.nextIndex++
	m.players[sessionID] = p
	m.totalPlayers++
	if state == LifeAlive {
		m.aliveCount++
	}

	if m.phase == PhaseWaiting && m.totalPlayers >= 2 {
		m.beginCountdown(now)
	}
	return p, nil
}

// RemovePlayer drops a session's record. A leave can end the match, so the
// win condition is re-evaluated immediately rather than waiting for the next
// tick. totalPlayers is deliberately left untouched.
func (m *Match) RemovePlayer(sessionID string, now time.Time) (*Player, bool) {
	p, ok := m.players[sessionID]
	if !ok {
		return nil, false
	}
	delete(m.players, sessionID)
	if p.State == LifeAlive {
		m.aliveCount--
	}
	m.checkWin()
	return p, true
}

// SetIntent replaces a player's pending input. Unknown sessions are a no-op.
func (m *Match) SetIntent(sessionID string, intent InputIntent) bool {
	p, ok := m.players[sessionID]
	if !ok {
		return false
	}
	p.SetIntent(intent)
	return true
}

// RequestRestart resets the match, honored only in GameOver.
func (m *Match) RequestRestart(now time.Time) bool {
	if m.phase != PhaseGameOver {
		return false
	}
	m.Reset(now)
	return true
}

// Reset returns the match to the Waiting phase: every present player is
// re-placed alive, obstacles are cleared back into the pool, and all timers
// and the shrink percentage start over.
func (m *Match) Reset(now time.Time) {
	m.phase = PhaseWaiting
	m.winnerName = ""
	m.areaPercentage = 100
	m.elapsed = 0
	m.startTime = time.Time{}
	m.countdownDeadline = time.Time{}
	m.countdownLeft = 0
	m.nextShrink = time.Time{}

	for _, o := range m.obstacles {
		o.Active = false
	}
	m.obstacles = m.obstacles[:0]

	for _, p := range m.players {
		p.revive(m.arenaWidth, m.arenaHeight)
	}
	m.totalPlayers = len(m.players)
	m.aliveCount = len(m.players)

	if m.totalPlayers >= 2 {
		m.beginCountdown(now)
	}
}

func (m *Match) beginCountdown(now time.Time) {
	m.phase = PhaseStarting
	m.countdownDeadline = now.Add(m.cfg.Countdown)
	m.countdownLeft = m.cfg.Countdown
}

// startPlaying enters the Playing phase and seeds the obstacle field scaled
// to the lobby size.
func (m *Match) startPlaying(now time.Time) {
	m.phase = PhasePlaying
	m.startTime = now
	m.elapsed = 0
	m.nextShrink = now.Add(m.cfg.ShrinkInterval)

	count := m.cfg.BaseObstacleCount + m.totalPlayers/5
	for i := 0; i < count; i++ {
		m.nextObstacleID++
		o := spawnObstacle(m.nextObstacleID, m.rng, m.cfg, m.arenaWidth, m.arenaHeight, m.players, m.obstacles, m.aliveCount)
		m.obstacles = append(m.obstacles, o)
	}
}

// Tick advances the match by one fixed step. The pipeline order inside
// Playing is a correctness requirement: timers, shrink, movement, boundary
// elimination, obstacles, then exactly one win check.
func (m *Match) Tick(now time.Time, dt float64) error {
	switch m.phase {
	case PhaseWaiting, PhaseGameOver:
		// Idle.
	case PhaseStarting:
		m.countdownLeft = m.countdownDeadline.Sub(now)
		if m.countdownLeft <= 0 {
			m.countdownLeft = 0
			m.startPlaying(now)
		}
	case PhasePlaying:
		m.elapsed = now.Sub(m.startTime)

		if !m.nextShrink.IsZero() && !now.Before(m.nextShrink) {
			m.areaPercentage -= m.cfg.ShrinkStep
			if m.areaPercentage < m.cfg.MinAreaPercentage {
				m.areaPercentage = m.cfg.MinAreaPercentage
			}
			m.nextShrink = now.Add(m.cfg.ShrinkInterval)
		}

		stepPlayers(m.players, m.cfg, m.arenaWidth, m.arenaHeight, now)

		if m.areaPercentage < 100 {
			bounds := shrunkArena(m.arenaWidth, m.arenaHeight, m.areaPercentage)
			m.aliveCount -= len(eliminateOutOfBounds(m.players, bounds, m.cfg.HitboxInset))
		}

		advanceObstacles(m.obstacles, dt, m.rng, m.cfg, m.arenaWidth, m.arenaHeight, m.players, m.aliveCount)
		m.aliveCount -= len(collidePlayers(m.players, m.obstacles, m.cfg.HitboxInset))

		m.checkWin()
	}

	if m.aliveCount < 0 {
		return fmt.Errorf("match invariant violated: aliveCount=%d with %d players", m.aliveCount, len(m.players))
	}
	return nil
}

// checkWin ends the match once a single combatant remains, or with no winner
// when a tick eliminates everyone at once.
func (m *Match) checkWin() {
	if m.phase != PhasePlaying {
		return
	}
	if m.aliveCount == 1 && m.totalPlayers > 1 {
		for _, p := range m.players {
			if p.State == LifeAlive {
				m.winnerName = p.Name
				break
			}
		}
		m.phase = PhaseGameOver
		return
	}
	if m.aliveCount == 0 {
		m.winnerName = NoWinnerName
		m.phase = PhaseGameOver
	}
}

// Snapshot renders a value copy of the match for broadcasting. Players are
// ordered by join index so the wire output is deterministic.
func (m *Match) Snapshot() MatchSnapshot {
	players := make([]PlayerSnapshot, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, PlayerSnapshot{
			ID:     p.SessionID,
			Index:  p.Index,
			Name:   p.Name,
			X:      p.X,
			Y:      p.Y,
			Width:  p.Width,
			Height: p.Height,
			State:  p.State,
			Score:  p.Score,
		})
	}
	sort.Slice(players, func(i, j int) bool { return players[i].Index < players[j].Index })

	obstacles := make([]ObstacleSnapshot, 0, len(m.obstacles))
	for _, o := range m.obstacles {
		obstacles = append(obstacles, ObstacleSnapshot{
			ID:      o.ID,
			X:       o.X,
			Y:       o.Y,
			Width:   o.Width,
			Height:  o.Height,
			Speed:   o.Speed,
			Variant: o.Variant,
			Active:  o.Active,
		})
	}

	return MatchSnapshot{
		Phase:          m.phase,
		ArenaWidth:     m.arenaWidth,
		ArenaHeight:    m.arenaHeight,
		AreaPercentage: m.areaPercentage,
		Countdown:      m.countdownLeft.Seconds(),
		Elapsed:        m.elapsed.Seconds(),
		Players:        players,
		Obstacles:      obstacles,
		AliveCount:     m.aliveCount,
		TotalPlayers:   m.totalPlayers,
		WinnerName:     m.winnerName,
	}
}
