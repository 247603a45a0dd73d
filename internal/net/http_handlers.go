package net

import (
	"encoding/json"
	nethttp "net/http"

	"go.uber.org/zap"

	server "dodge-royale/server"
	"dodge-royale/server/internal/net/ws"
)

// NewHTTPHandler wires the public HTTP surface: websocket joins, a health
// probe, and per-room diagnostics.
func NewHTTPHandler(manager *server.RoomManager, logger *zap.SugaredLogger) nethttp.Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	mux := nethttp.NewServeMux()
	mux.Handle("/ws", ws.NewHandler(manager, logger))

	mux.HandleFunc("/healthz", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		roomID := r.URL.Query().Get("room")
		if roomID == "" {
			nethttp.Error(w, "missing room query", nethttp.StatusBadRequest)
			return
		}
		room, ok := manager.Room(roomID)
		if !ok {
			nethttp.Error(w, "unknown room", nethttp.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(room.Diagnostics()); err != nil {
			logger.Warnf("failed to encode diagnostics for %s: %v", roomID, err)
		}
	})

	return mux
}
