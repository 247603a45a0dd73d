package ws

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	server "dodge-royale/server"
)

const defaultRoomID = "arena-1"

// Handler upgrades connections and runs one read loop per session.
type Handler struct {
	manager  *server.RoomManager
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader
}

// NewHandler builds the websocket entry point for the given room manager.
func NewHandler(manager *server.RoomManager, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{
		manager: manager,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Clients are served from arbitrary origins in development;
				// tighten before exposing publicly.
				return true
			},
		},
	}
}

// ServeHTTP accepts /ws?room=<id>&name=<display>&width=<w>&height=<h>.
// Arena overrides apply only when this join creates the room.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		roomID = defaultRoomID
	}
	name := r.URL.Query().Get("name")

	var opts server.RoomOptions
	if v, err := strconv.ParseFloat(r.URL.Query().Get("width"), 64); err == nil {
		opts.ArenaWidth = v
	}
	if v, err := strconv.ParseFloat(r.URL.Query().Get("height"), 64); err == nil {
		opts.ArenaHeight = v
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnf("upgrade failed: %v", err)
		return
	}

	sessionID := uuid.NewString()
	room := h.manager.GetOrCreateRoom(roomID, opts)

	sess := newSession(conn, room.Config().SendQueueSize)
	go sess.writePump()

	if err := room.Join(sessionID, name, sess); err != nil {
		reason := "join rejected"
		if err == server.ErrRoomFull {
			reason = "room full"
		}
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		sess.Close()
		return
	}

	h.readLoop(room, sess, sessionID)
}

// readLoop decodes inbound messages until the connection drops, then
// surfaces the disconnect to the room as a leave.
func (h *Handler) readLoop(room *server.Room, sess *session, sessionID string) {
	defer room.Leave(sessionID)
	defer sess.Close()

	conn := sess.conn
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg server.ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Debugf("discarding malformed message from %s: %v", sessionID, err)
			continue
		}

		switch msg.Type {
		case server.TypeInput:
			room.Input(sessionID, server.InputIntent{
				Up:    msg.Up,
				Down:  msg.Down,
				Left:  msg.Left,
				Right: msg.Right,
			})
		case server.TypeUpdateName:
			room.Rename(sessionID, msg.Name)
		case server.TypeRestart:
			room.RequestRestart(sessionID)
		case server.TypeHeartbeat:
			room.Heartbeat(sessionID)
			h.ackHeartbeat(sess, msg.SentAt, room.Config().HeartbeatTimeout)
		default:
			// Unknown tags are protocol noise; drop without touching state.
			h.logger.Debugf("unknown message type %q from %s", msg.Type, sessionID)
		}
	}
}

// ackHeartbeat echoes server time plus the measured round trip straight from
// the session; no room state is involved. A timestamp from the future or
// older than maxAge is an unusable sample, so the RTT stays zero.
func (h *Handler) ackHeartbeat(sess *session, sentAt int64, maxAge time.Duration) {
	now := time.Now()
	if maxAge <= 0 {
		maxAge = pongWait
	}
	var rtt time.Duration
	if sentAt > 0 {
		if age := now.Sub(time.UnixMilli(sentAt)); age >= 0 && age <= maxAge {
			rtt = age
		}
	}

	ack := server.HeartbeatMessage{
		Ver:        server.ProtocolVersion,
		Type:       server.TypeHeartbeat,
		ServerTime: now.UnixMilli(),
		ClientTime: sentAt,
		RTTMillis:  rtt.Milliseconds(),
	}
	data, err := json.Marshal(ack)
	if err != nil {
		return
	}
	sess.Send(data)
}
