package server

import "sync/atomic"

// RoomMetrics tracks a room's runtime counters for the diagnostics endpoint.
// All fields are updated atomically; readers may snapshot at any time.
type RoomMetrics struct {
	TickCount       int64
	TotalTickNs     int64
	InputsApplied   int64
	StaleDropped    int64
	JoinsRejected   int64
	CommandsDropped int64
	SendsDropped    int64
}

func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

func (m *RoomMetrics) IncInputApplied()   { atomic.AddInt64(&m.InputsApplied, 1) }
func (m *RoomMetrics) IncStaleDropped()   { atomic.AddInt64(&m.StaleDropped, 1) }
func (m *RoomMetrics) IncJoinRejected()   { atomic.AddInt64(&m.JoinsRejected, 1) }
func (m *RoomMetrics) IncCommandDropped() { atomic.AddInt64(&m.CommandsDropped, 1) }
func (m *RoomMetrics) IncSendDropped()    { atomic.AddInt64(&m.SendsDropped, 1) }

// Snapshot returns a read-only copy for HTTP output.
func (m *RoomMetrics) Snapshot() map[string]any {
	ticks := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if ticks > 0 {
		avgMs = float64(total) / float64(ticks) / 1e6
	}
	return map[string]any{
		"tick_count":       ticks,
		"avg_tick_ms":      avgMs,
		"inputs_applied":   atomic.LoadInt64(&m.InputsApplied),
		"stale_dropped":    atomic.LoadInt64(&m.StaleDropped),
		"joins_rejected":   atomic.LoadInt64(&m.JoinsRejected),
		"commands_dropped": atomic.LoadInt64(&m.CommandsDropped),
		"sends_dropped":    atomic.LoadInt64(&m.SendsDropped),
	}
}
