package ws

import (
	"encoding/json"
	"testing"
	"time"

	server "dodge-royale/server"
)

func ackFrom(t *testing.T, sess *session) server.HeartbeatMessage {
	t.Helper()
	var ack server.HeartbeatMessage
	select {
	case data := <-sess.send:
		if err := json.Unmarshal(data, &ack); err != nil {
			t.Fatalf("decode ack: %v", err)
		}
	default:
		t.Fatalf("no ack queued")
	}
	return ack
}

func TestAckHeartbeatIgnoresStaleClientTime(t *testing.T) {
	h := NewHandler(nil, nil)
	sess := newSession(nil, 4)

	stale := time.Now().Add(-time.Hour).UnixMilli()
	h.ackHeartbeat(sess, stale, 6*time.Second)

	ack := ackFrom(t, sess)
	if ack.RTTMillis != 0 {
		t.Fatalf("an hour-old timestamp must not produce an RTT sample, got %d", ack.RTTMillis)
	}
	if ack.ClientTime != stale {
		t.Fatalf("ack must echo the client timestamp, got %d", ack.ClientTime)
	}
}

func TestAckHeartbeatIgnoresFutureClientTime(t *testing.T) {
	h := NewHandler(nil, nil)
	sess := newSession(nil, 4)

	h.ackHeartbeat(sess, time.Now().Add(time.Minute).UnixMilli(), 6*time.Second)

	if ack := ackFrom(t, sess); ack.RTTMillis != 0 {
		t.Fatalf("a future timestamp must not produce an RTT sample, got %d", ack.RTTMillis)
	}
}

func TestAckHeartbeatMeasuresRecentRoundTrip(t *testing.T) {
	h := NewHandler(nil, nil)
	sess := newSession(nil, 4)

	h.ackHeartbeat(sess, time.Now().Add(-50*time.Millisecond).UnixMilli(), 6*time.Second)

	ack := ackFrom(t, sess)
	if ack.RTTMillis < 40 || ack.RTTMillis > 5000 {
		t.Fatalf("expected a plausible RTT for a 50ms-old timestamp, got %d", ack.RTTMillis)
	}
}
