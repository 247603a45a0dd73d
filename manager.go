package server

import (
	"sync"

	"go.uber.org/zap"
)

// RoomOptions carries per-room overrides supplied by the creating join.
// Zero values keep the manager defaults.
type RoomOptions struct {
	ArenaWidth  float64
	ArenaHeight float64
}

// RoomManager owns the lifecycle of every room in the process. Rooms share
// no mutable state with each other; the manager only guards its own map.
// Idle rooms persist until explicitly disposed.
type RoomManager struct {
	mu     sync.RWMutex
	cfg    Config
	logger *zap.SugaredLogger
	rooms  map[string]*Room
}

// NewRoomManager builds a manager whose rooms default to cfg.
func NewRoomManager(cfg Config, logger *zap.SugaredLogger) *RoomManager {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &RoomManager{
		cfg:    cfg.normalized(),
		logger: logger,
		rooms:  make(map[string]*Room),
	}
}

// GetOrCreateRoom returns the room with the given id, creating and starting
// it if absent. Options apply only when this call creates the room.
func (m *RoomManager) GetOrCreateRoom(id string, opts RoomOptions) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room, ok := m.rooms[id]; ok {
		return room
	}

	cfg := m.cfg
	if opts.ArenaWidth > 0 {
		cfg.ArenaWidth = opts.ArenaWidth
	}
	if opts.ArenaHeight > 0 {
		cfg.ArenaHeight = opts.ArenaHeight
	}

	room := NewRoom(id, cfg, m.logger, m.disposeOnFatal)
	m.rooms[id] = room
	room.Start()
	m.logger.Infof("room %s created (arena %.0fx%.0f)", id, cfg.ArenaWidth, cfg.ArenaHeight)
	return room
}

// Room returns an existing room without creating one.
func (m *RoomManager) Room(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[id]
	return room, ok
}

// DisposeRoom stops a room and forgets it.
func (m *RoomManager) DisposeRoom(id string) {
	m.mu.Lock()
	room, ok := m.rooms[id]
	if ok {
		delete(m.rooms, id)
	}
	m.mu.Unlock()

	if ok {
		room.Stop()
		m.logger.Infof("room %s disposed", id)
	}
}

// Shutdown stops every room.
func (m *RoomManager) Shutdown() {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for id, room := range m.rooms {
		rooms = append(rooms, room)
		delete(m.rooms, id)
	}
	m.mu.Unlock()

	for _, room := range rooms {
		room.Stop()
	}
}

// disposeOnFatal is the room's escalation path for invariant violations: the
// broken room is torn down, everything else keeps serving.
func (m *RoomManager) disposeOnFatal(id string, err error) {
	m.logger.Errorf("room %s reported fatal simulation error: %v", id, err)
	m.DisposeRoom(id)
}
