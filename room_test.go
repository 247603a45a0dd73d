package server

import (
	"encoding/json"
	"reflect"
	"sync"
	"testing"
	"time"
)

// fakeClient records everything a room sends it.
type fakeClient struct {
	mu     sync.Mutex
	msgs   [][]byte
	closed bool
}

func (c *fakeClient) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.msgs = append(c.msgs, data)
	return true
}

func (c *fakeClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeClient) typesSeen(t *testing.T) []string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var types []string
	for _, raw := range c.msgs {
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			t.Fatalf("malformed outbound message: %v", err)
		}
		types = append(types, probe.Type)
	}
	return types
}

func (c *fakeClient) lastOfType(t *testing.T, msgType string) []byte {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.msgs) - 1; i >= 0; i-- {
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(c.msgs[i], &probe); err != nil {
			t.Fatalf("malformed outbound message: %v", err)
		}
		if probe.Type == msgType {
			return c.msgs[i]
		}
	}
	t.Fatalf("no %q message received", msgType)
	return nil
}

// joinRoom drives the join command synchronously on the test goroutine; the
// room loop is deliberately not started so every step is deterministic.
func joinRoom(t *testing.T, r *Room, sessionID, name string, client Client, now time.Time) error {
	t.Helper()
	reply := make(chan error, 1)
	r.handleCommand(command{kind: cmdJoin, sessionID: sessionID, name: name, client: client, reply: reply}, now)
	select {
	case err := <-reply:
		return err
	default:
		t.Fatalf("join produced no reply")
		return nil
	}
}

func TestRoomRejectsJoinAtCapacity(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPlayers = 2
	r := NewRoom("cap", cfg, nil, nil)
	now := time.Now()

	if err := joinRoom(t, r, "a", "", &fakeClient{}, now); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if err := joinRoom(t, r, "b", "", &fakeClient{}, now); err != nil {
		t.Fatalf("second join: %v", err)
	}
	if err := joinRoom(t, r, "c", "", &fakeClient{}, now); err != ErrRoomFull {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
	if r.match.PlayerCount() != 2 {
		t.Fatalf("a rejected join must not mutate the match, got %d players", r.match.PlayerCount())
	}
	if r.metrics.Snapshot()["joins_rejected"].(int64) != 1 {
		t.Fatalf("expected the rejection to be counted")
	}
}

func TestRoomJoinSendsResponseAndAnnouncement(t *testing.T) {
	r := NewRoom("announce", testConfig(), nil, nil)
	now := time.Now()

	first := &fakeClient{}
	second := &fakeClient{}
	joinRoom(t, r, "a", "alice", first, now)
	joinRoom(t, r, "b", "bob", second, now)

	var joined JoinedMessage
	if err := json.Unmarshal(second.lastOfType(t, TypeJoined), &joined); err != nil {
		t.Fatalf("decode joined: %v", err)
	}
	if joined.ID != "b" || joined.State.TotalPlayers != 2 {
		t.Fatalf("unexpected join response: %+v", joined)
	}

	var announced PlayerJoinedMessage
	if err := json.Unmarshal(first.lastOfType(t, TypePlayerJoined), &announced); err != nil {
		t.Fatalf("decode playerJoined: %v", err)
	}
	if announced.ID != "b" || announced.Name != "bob" {
		t.Fatalf("unexpected announcement: %+v", announced)
	}
}

func TestRoomInputLastWriteWins(t *testing.T) {
	r := NewRoom("input", testConfig(), nil, nil)
	now := time.Now()
	joinRoom(t, r, "a", "", &fakeClient{}, now)
	joinRoom(t, r, "b", "", &fakeClient{}, now)

	if !r.step(now.Add(time.Millisecond), 0.033) {
		t.Fatalf("step failed")
	}
	if r.match.Phase() != PhasePlaying {
		t.Fatalf("expected Playing, got %s", r.match.Phase())
	}

	r.handleCommand(command{kind: cmdInput, sessionID: "a", intent: InputIntent{Left: true}}, now)
	r.handleCommand(command{kind: cmdInput, sessionID: "a", intent: InputIntent{Right: true}}, now)

	p, _ := r.match.Player("a")
	startX := p.X
	if !r.step(now.Add(40*time.Millisecond), 0.033) {
		t.Fatalf("step failed")
	}
	if p.X != startX+r.cfg.PlayerStep {
		t.Fatalf("expected the last intent to win, got x=%f want %f", p.X, startX+r.cfg.PlayerStep)
	}
}

func TestRoomIgnoresStaleSessions(t *testing.T) {
	r := NewRoom("stale", testConfig(), nil, nil)
	now := time.Now()

	// None of these may panic or mutate anything.
	r.handleCommand(command{kind: cmdInput, sessionID: "ghost", intent: InputIntent{Up: true}}, now)
	r.handleCommand(command{kind: cmdRename, sessionID: "ghost", name: "boo"}, now)
	r.handleCommand(command{kind: cmdRestart, sessionID: "ghost"}, now)
	r.handleCommand(command{kind: cmdLeave, sessionID: "ghost"}, now)

	if r.match.PlayerCount() != 0 {
		t.Fatalf("stale commands must not create state")
	}
	if r.metrics.Snapshot()["stale_dropped"].(int64) != 3 {
		t.Fatalf("expected stale drops to be counted")
	}
}

func TestRoomRestartIgnoredOutsideGameOver(t *testing.T) {
	r := NewRoom("restart", testConfig(), nil, nil)
	now := time.Now()
	joinRoom(t, r, "a", "", &fakeClient{}, now)
	joinRoom(t, r, "b", "", &fakeClient{}, now)
	r.step(now.Add(time.Millisecond), 0.033)

	r.handleCommand(command{kind: cmdRestart, sessionID: "a"}, now)
	if r.match.Phase() != PhasePlaying {
		t.Fatalf("restart during Playing must be a no-op, got %s", r.match.Phase())
	}
}

func TestRoomHeartbeatTimeoutDropsSession(t *testing.T) {
	cfg := testConfig()
	cfg.Countdown = time.Minute // stay in Starting for the whole test
	cfg.HeartbeatTimeout = 50 * time.Millisecond
	r := NewRoom("timeout", cfg, nil, nil)
	now := time.Now()

	quiet := &fakeClient{}
	alive := &fakeClient{}
	joinRoom(t, r, "quiet", "", quiet, now)
	joinRoom(t, r, "alive", "", alive, now)

	r.lastSeen["quiet"] = now.Add(-time.Second)
	if !r.step(now, 0.033) {
		t.Fatalf("step failed")
	}

	if _, ok := r.match.Player("quiet"); ok {
		t.Fatalf("timed-out session must be removed")
	}
	if !quiet.closed {
		t.Fatalf("timed-out client must be closed")
	}
	var left PlayerLeftMessage
	if err := json.Unmarshal(alive.lastOfType(t, TypePlayerLeft), &left); err != nil {
		t.Fatalf("decode playerLeft: %v", err)
	}
	if left.ID != "quiet" {
		t.Fatalf("unexpected playerLeft payload: %+v", left)
	}
}

func TestRoomInvariantViolationIsFatal(t *testing.T) {
	var gotRoom string
	var gotErr error
	r := NewRoom("broken", testConfig(), nil, func(id string, err error) {
		gotRoom, gotErr = id, err
	})
	now := time.Now()
	joinRoom(t, r, "a", "", &fakeClient{}, now)
	joinRoom(t, r, "b", "", &fakeClient{}, now)

	r.match.aliveCount = -1
	if r.step(now.Add(time.Millisecond), 0.033) {
		t.Fatalf("a broken invariant must stop the room")
	}
	if gotRoom != "broken" || gotErr == nil {
		t.Fatalf("expected the fatal escalation, got room=%q err=%v", gotRoom, gotErr)
	}

	select {
	case <-r.stop:
	default:
		t.Fatalf("fatal step must stop the room")
	}
}

func TestRoomBroadcastStateRoundTrip(t *testing.T) {
	r := NewRoom("sync", testConfig(), nil, nil)
	now := time.Now()

	client := &fakeClient{}
	joinRoom(t, r, "a", "alice", client, now)
	joinRoom(t, r, "b", "bob", &fakeClient{}, now)

	r.step(now.Add(time.Millisecond), 0.033)    // countdown elapses
	r.step(now.Add(40*time.Millisecond), 0.033) // first Playing broadcast

	var decoded StateMessage
	if err := json.Unmarshal(client.lastOfType(t, TypeState), &decoded); err != nil {
		t.Fatalf("decode state: %v", err)
	}

	want := r.match.Snapshot()
	if decoded.Phase != want.Phase {
		t.Fatalf("phase mismatch: %s vs %s", decoded.Phase, want.Phase)
	}
	if !reflect.DeepEqual(decoded.Players, want.Players) {
		t.Fatalf("players did not survive the round trip:\n got %+v\nwant %+v", decoded.Players, want.Players)
	}
	if !reflect.DeepEqual(decoded.Obstacles, want.Obstacles) {
		t.Fatalf("obstacles did not survive the round trip:\n got %+v\nwant %+v", decoded.Obstacles, want.Obstacles)
	}
	if decoded.AliveCount != want.AliveCount || decoded.TotalPlayers != want.TotalPlayers {
		t.Fatalf("counts mismatch: %+v vs %+v", decoded, want)
	}
}

func TestRoomStateTypesInOrder(t *testing.T) {
	r := NewRoom("order", testConfig(), nil, nil)
	now := time.Now()

	client := &fakeClient{}
	joinRoom(t, r, "a", "", client, now)
	r.step(now.Add(time.Millisecond), 0.033)

	types := client.typesSeen(t)
	if len(types) < 2 || types[0] != TypeJoined {
		t.Fatalf("expected the join response first, got %v", types)
	}
	if types[len(types)-1] != TypeState {
		t.Fatalf("expected a state broadcast after the tick, got %v", types)
	}
}
