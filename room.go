package server

import (
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrRoomFull is surfaced to a joining client when the room is at capacity.
var ErrRoomFull = errors.New("room full")

// ErrRoomClosed rejects operations against a disposed room.
var ErrRoomClosed = errors.New("room closed")

// maxCatchupTicks caps how much wall-clock drift a single tick may absorb.
const maxCatchupTicks = 4

// Client is the outbound half of a connection attached to a room. Send must
// never block; it reports false when the payload was dropped.
type Client interface {
	Send(data []byte) bool
	Close()
}

type commandKind int

const (
	cmdJoin commandKind = iota
	cmdLeave
	cmdInput
	cmdRename
	cmdRestart
	cmdHeartbeat
)

// command is an intent staged for the room goroutine. Mirrors the
// one-writer model: every room mutation flows through this channel or the
// tick itself.
type command struct {
	kind      commandKind
	sessionID string
	name      string
	intent    InputIntent
	client    Client
	reply     chan error
}

// Room owns one match: its connections, its fixed-rate tick loop, and the
// translation of inbound messages into simulation inputs. Exactly one
// goroutine runs the loop; handlers never touch match state directly.
type Room struct {
	id      string
	cfg     Config
	match   *Match
	clients map[string]Client

	lastSeen map[string]time.Time

	commands chan command
	stop     chan struct{}
	stopOnce sync.Once

	tickSeq atomic.Uint64
	metrics *RoomMetrics
	logger  *zap.SugaredLogger

	// onFatal is invoked when a tick reports an invariant violation. The
	// owner is expected to dispose the room; other rooms are unaffected.
	onFatal func(roomID string, err error)
}

// NewRoom builds a room around a fresh match. Call Start to begin ticking.
func NewRoom(id string, cfg Config, logger *zap.SugaredLogger, onFatal func(string, error)) *Room {
	cfg = cfg.normalized()
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Room{
		id:       id,
		cfg:      cfg,
		match:    NewMatch(cfg, rand.New(rand.NewSource(time.Now().UnixNano()))),
		clients:  make(map[string]Client),
		lastSeen: make(map[string]time.Time),
		commands: make(chan command, cfg.CommandQueueSize),
		stop:     make(chan struct{}),
		metrics:  &RoomMetrics{},
		logger:   logger,
		onFatal:  onFatal,
	}
}

// ID returns the room identifier.
func (r *Room) ID() string { return r.id }

// Config returns a copy of the room's configuration.
func (r *Room) Config() Config { return r.cfg }

// Metrics exposes the room's counters.
func (r *Room) Metrics() *RoomMetrics { return r.metrics }

// Start launches the room's single goroutine.
func (r *Room) Start() {
	go r.run()
}

// Stop cancels the tick loop exactly once. Safe to call from any goroutine.
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Join registers a connection and blocks until the room goroutine accepts or
// rejects it. A full room yields ErrRoomFull without mutating match state.
func (r *Room) Join(sessionID, name string, client Client) error {
	reply := make(chan error, 1)
	if !r.enqueue(command{kind: cmdJoin, sessionID: sessionID, name: name, client: client, reply: reply}) {
		return ErrRoomClosed
	}
	select {
	case err := <-reply:
		return err
	case <-r.stop:
		return ErrRoomClosed
	}
}

// Leave removes a session. Guaranteed delivery: a leave must never be lost
// or the player record would outlive its connection.
func (r *Room) Leave(sessionID string) {
	r.enqueue(command{kind: cmdLeave, sessionID: sessionID})
}

// Input replaces a player's pending intent. Dropped (not queued) when the
// room is congested; a fresher intent is always right behind it.
func (r *Room) Input(sessionID string, intent InputIntent) {
	r.tryEnqueue(command{kind: cmdInput, sessionID: sessionID, intent: intent})
}

// Rename updates a player's display name.
func (r *Room) Rename(sessionID, name string) {
	r.tryEnqueue(command{kind: cmdRename, sessionID: sessionID, name: name})
}

// RequestRestart asks for a match reset; honored only in GameOver.
func (r *Room) RequestRestart(sessionID string) {
	r.tryEnqueue(command{kind: cmdRestart, sessionID: sessionID})
}

// Heartbeat refreshes a session's liveness deadline.
func (r *Room) Heartbeat(sessionID string) {
	r.tryEnqueue(command{kind: cmdHeartbeat, sessionID: sessionID})
}

// Diagnostics returns a read-only view for the HTTP diagnostics endpoint.
func (r *Room) Diagnostics() map[string]any {
	return map[string]any{
		"room":    r.id,
		"tick":    r.tickSeq.Load(),
		"metrics": r.metrics.Snapshot(),
	}
}

func (r *Room) enqueue(cmd command) bool {
	select {
	case r.commands <- cmd:
		return true
	case <-r.stop:
		return false
	}
}

func (r *Room) tryEnqueue(cmd command) bool {
	select {
	case r.commands <- cmd:
		return true
	case <-r.stop:
		return false
	default:
		r.metrics.IncCommandDropped()
		return false
	}
}

// run is the room's only execution context. All match mutation happens here,
// either in a command handler or inside step.
func (r *Room) run() {
	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()
	defer r.closeClients()

	budget := r.cfg.TickInterval.Seconds()
	last := time.Now()

	for {
		select {
		case <-r.stop:
			return
		case cmd := <-r.commands:
			r.handleCommand(cmd, time.Now())
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = budget
			} else if dt > budget*maxCatchupTicks {
				dt = budget * maxCatchupTicks
			}
			last = now
			if !r.step(now, dt) {
				return
			}
		}
	}
}

func (r *Room) handleCommand(cmd command, now time.Time) {
	switch cmd.kind {
	case cmdJoin:
		r.handleJoin(cmd, now)
	case cmdLeave:
		r.removeSession(cmd.sessionID, "left")
	case cmdInput:
		if r.match.SetIntent(cmd.sessionID, cmd.intent) {
			r.metrics.IncInputApplied()
		} else {
			r.metrics.IncStaleDropped()
		}
	case cmdRename:
		if p, ok := r.match.Player(cmd.sessionID); ok {
			p.SetName(cmd.name)
		} else {
			r.metrics.IncStaleDropped()
		}
	case cmdRestart:
		if _, ok := r.match.Player(cmd.sessionID); !ok {
			r.metrics.IncStaleDropped()
			return
		}
		if r.match.RequestRestart(now) {
			r.logger.Infof("room %s: match restarted by %s", r.id, cmd.sessionID)
		}
	case cmdHeartbeat:
		if _, ok := r.lastSeen[cmd.sessionID]; ok {
			r.lastSeen[cmd.sessionID] = now
		}
	}
}

func (r *Room) handleJoin(cmd command, now time.Time) {
	if r.match.PlayerCount() >= r.cfg.MaxPlayers {
		r.metrics.IncJoinRejected()
		cmd.reply <- ErrRoomFull
		return
	}

	p, err := r.match.AddPlayer(cmd.sessionID, cmd.name, now)
	if err != nil {
		cmd.reply <- err
		return
	}

	r.clients[cmd.sessionID] = cmd.client
	r.lastSeen[cmd.sessionID] = now
	cmd.reply <- nil

	r.sendTo(cmd.client, JoinedMessage{
		Ver:   ProtocolVersion,
		Type:  TypeJoined,
		ID:    cmd.sessionID,
		State: r.match.Snapshot(),
	})
	r.broadcast(PlayerJoinedMessage{
		Ver:  ProtocolVersion,
		Type: TypePlayerJoined,
		ID:   cmd.sessionID,
		Name: p.Name,
	})
	r.logger.Infof("room %s: %s joined as %q (%s)", r.id, cmd.sessionID, p.Name, p.State)
}

// removeSession drops the player record and its connection, announces the
// departure, and lets the match re-evaluate the win condition.
func (r *Room) removeSession(sessionID, reason string) {
	client, hadClient := r.clients[sessionID]
	delete(r.clients, sessionID)
	delete(r.lastSeen, sessionID)
	if hadClient {
		client.Close()
	}

	if _, ok := r.match.RemovePlayer(sessionID, time.Now()); !ok {
		return
	}
	r.broadcast(PlayerLeftMessage{Ver: ProtocolVersion, Type: TypePlayerLeft, ID: sessionID})
	r.logger.Infof("room %s: %s removed (%s)", r.id, sessionID, reason)
}

// step advances the match one tick and broadcasts the result. Returns false
// when the room must shut down.
func (r *Room) step(now time.Time, dt float64) bool {
	start := time.Now()

	r.sweepTimeouts(now)

	if err := r.match.Tick(now, dt); err != nil {
		r.logger.Errorf("room %s: %v; disposing room", r.id, err)
		if r.onFatal != nil {
			r.onFatal(r.id, err)
		}
		r.Stop()
		return false
	}

	r.broadcastState(now)
	r.tickSeq.Add(1)
	r.metrics.AddTick(time.Since(start).Nanoseconds())
	return true
}

// sweepTimeouts drops sessions whose heartbeats went quiet. The websocket
// read deadline catches most of these first; this is the room's own
// authority over liveness.
func (r *Room) sweepTimeouts(now time.Time) {
	if r.cfg.HeartbeatTimeout <= 0 {
		return
	}
	for sessionID, seen := range r.lastSeen {
		if now.Sub(seen) > r.cfg.HeartbeatTimeout {
			r.removeSession(sessionID, "heartbeat timeout")
		}
	}
}

func (r *Room) broadcastState(now time.Time) {
	r.broadcast(StateMessage{
		Ver:           ProtocolVersion,
		Type:          TypeState,
		ServerTime:    now.UnixMilli(),
		MatchSnapshot: r.match.Snapshot(),
	})
}

func (r *Room) broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Errorf("room %s: failed to marshal broadcast: %v", r.id, err)
		return
	}
	for _, client := range r.clients {
		if !client.Send(data) {
			r.metrics.IncSendDropped()
		}
	}
}

func (r *Room) sendTo(client Client, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Errorf("room %s: failed to marshal message: %v", r.id, err)
		return
	}
	if !client.Send(data) {
		r.metrics.IncSendDropped()
	}
}

func (r *Room) closeClients() {
	for sessionID, client := range r.clients {
		client.Close()
		delete(r.clients, sessionID)
	}
}
