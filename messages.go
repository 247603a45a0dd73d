package server

// ProtocolVersion tracks the wire-protocol revision expected by clients.
const ProtocolVersion = 1

// Client message type identifiers.
const (
	TypeInput      = "input"
	TypeUpdateName = "updateName"
	TypeRestart    = "restartGame"
	TypeHeartbeat  = "heartbeat"
)

// Server message type identifiers.
const (
	TypeState        = "state"
	TypeJoined       = "joined"
	TypePlayerJoined = "playerJoined"
	TypePlayerLeft   = "playerLeft"
)

// ClientMessage captures an inbound websocket message. The type tag selects
// which fields are meaningful; anything not matching a known tag is dropped.
type ClientMessage struct {
	Ver    int    `json:"ver,omitempty"`
	Type   string `json:"type"`
	Up     bool   `json:"up,omitempty"`
	Down   bool   `json:"down,omitempty"`
	Left   bool   `json:"left,omitempty"`
	Right  bool   `json:"right,omitempty"`
	Name   string `json:"name,omitempty"`
	SentAt int64  `json:"sentAt,omitempty"`
}

// PlayerSnapshot is the wire copy of one player.
type PlayerSnapshot struct {
	ID     string    `json:"id"`
	Index  int       `json:"index"`
	Name   string    `json:"name"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
	State  LifeState `json:"state"`
	Score  int       `json:"score"`
}

// ObstacleSnapshot is the wire copy of one obstacle.
type ObstacleSnapshot struct {
	ID      int     `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Speed   float64 `json:"speed"`
	Variant int     `json:"variant"`
	Active  bool    `json:"active"`
}

// MatchSnapshot is the full match shape broadcast at tick rate. It is a value
// copy; the next tick's mutations never reach an in-flight snapshot.
type MatchSnapshot struct {
	Phase          Phase              `json:"phase"`
	ArenaWidth     float64            `json:"arenaWidth"`
	ArenaHeight    float64            `json:"arenaHeight"`
	AreaPercentage float64            `json:"areaPercentage"`
	Countdown      float64            `json:"countdown"`
	Elapsed        float64            `json:"elapsed"`
	Players        []PlayerSnapshot   `json:"players"`
	Obstacles      []ObstacleSnapshot `json:"obstacles"`
	AliveCount     int                `json:"aliveCount"`
	TotalPlayers   int                `json:"totalPlayers"`
	WinnerName     string             `json:"winnerName,omitempty"`
}

// StateMessage is the periodic sync payload.
type StateMessage struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	MatchSnapshot
}

// JoinedMessage is the join response: the connection-scoped id plus an
// initial full snapshot.
type JoinedMessage struct {
	Ver   int           `json:"ver"`
	Type  string        `json:"type"`
	ID    string        `json:"id"`
	State MatchSnapshot `json:"state"`
}

// PlayerJoinedMessage announces a new player to every connection.
type PlayerJoinedMessage struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PlayerLeftMessage announces a departed player to every connection.
type PlayerLeftMessage struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	ID   string `json:"id"`
}

// HeartbeatMessage acknowledges a client heartbeat with server time and the
// measured round trip.
type HeartbeatMessage struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
	RTTMillis  int64  `json:"rtt"`
}
