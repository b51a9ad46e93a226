package main

import "encoding/json"

// Viewer -> Server message types
const (
	MsgHello       = "hello"
	MsgLeaderboard = "leaderboard" // request (in) and push (out)
	MsgRestart     = "restart"     // admin force-restart, token-bearing
)

// Server -> Viewer message types
const (
	MsgWelcome = "welcome"
	MsgWinner  = "winner"
	MsgError   = "error"
)

// Envelope wraps all outgoing JSON messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages — json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// FlagPose is one row of the per-frame pose table. Sent for every flag that
// is still visible (winner and exiting included, eliminated omitted).
type FlagPose struct {
	Code string  `json:"c" msgpack:"c"`
	X    float64 `json:"x" msgpack:"x"`
	Y    float64 `json:"y" msgpack:"y"`
	R    float64 `json:"r" msgpack:"r"` // heading radians
	S    float64 `json:"s" msgpack:"s"` // scale
	O    float64 `json:"o" msgpack:"o"` // opacity
	St   int     `json:"st" msgpack:"st"`
}

// FrameState is the full pose-table broadcast, msgpack-encoded as a binary
// WebSocket message at the broadcast rate
type FrameState struct {
	Flags     []FlagPose `json:"f" msgpack:"f"`
	RingAngle float64    `json:"ra" msgpack:"ra"` // degrees
	ArcFrac   float64    `json:"af" msgpack:"af"` // drawn fraction of the ring, 1 - gap/360
	Phase     int        `json:"ph" msgpack:"ph"`
	Running   bool       `json:"run" msgpack:"run"`
	Winner    string     `json:"w,omitempty" msgpack:"w,omitempty"`
	Tick      uint64     `json:"tick" msgpack:"tick"`
}

// WelcomeMsg gives a new viewer the static geometry and roster once
type WelcomeMsg struct {
	BoundaryRadius float64       `json:"br"`
	FlagRadius     float64       `json:"fr"`
	Roster         []RosterEntry `json:"roster"`
}

// WinnerMsg announces the round winner for the overlay
type WinnerMsg struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// LeaderboardMsg carries the ranked win table
type LeaderboardMsg struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// RestartMsg forces a new round; only honored with a valid admin token
type RestartMsg struct {
	Token string `json:"token"`
}

// LoginMsg exchanges the admin password for a token
type LoginMsg struct {
	Password string `json:"password"`
}

// TokenMsg is the login response
type TokenMsg struct {
	Token string `json:"token"`
}

// ErrorMsg sends an error to the viewer
type ErrorMsg struct {
	Msg string `json:"msg"`
}
