package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 1 << 16 // 64KB, inputs are tiny
)

// session wraps one websocket connection with a bounded outbound queue.
// Send never blocks: when the queue is full the payload is dropped, so a
// slow client can never stall the room's tick loop.
type session struct {
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newSession(conn *websocket.Conn, queueSize int) *session {
	return &session{
		conn: conn,
		send: make(chan []byte, queueSize),
	}
}

// Send enqueues a payload for the write pump. Reports false when dropped.
func (s *session) Send(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// Close tears down the connection and ends the write pump. Idempotent.
func (s *session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.send)
	s.mu.Unlock()

	_ = s.conn.Close()
}

// writePump drains the send queue onto the wire. Runs on its own goroutine;
// exits when the queue closes or a write fails.
func (s *session) writePump() {
	defer s.conn.Close()
	for data := range s.send {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
