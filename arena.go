package main

import (
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	TickRate       = 60 // physics ticks per second
	BroadcastRate  = 30 // pose-frame broadcasts per second
	TickDuration   = time.Second / TickRate
	BroadcastEvery = TickRate / BroadcastRate
)

const (
	GapDegrees     = 45.0 // gap width, fixed for the whole round
	GapTolerance   = 4.0  // degrees added to each live gap endpoint
	RingSpinSpeed  = 30.0 // ring rotation, degrees/s
	FormationSpin  = 0.35 // rigid intro rotation, radians/s
	FormationDelay = 2.0  // seconds in formation before scatter
	RestartDelay   = 5.0  // seconds between a win and the next round
	LeaderboardTop = 5
)

// Phase of one round
type Phase int

const (
	PhaseFormation Phase = iota
	PhaseScatter
)

// Round is per-round state, reinitialized by startRound and mutated only by
// the frame loop. The gap interval is in the ring's unrotated frame; its
// world position comes from RingAngle at test time.
type Round struct {
	GapStart  float64 // degrees, local frame, inclusive
	GapEnd    float64 // degrees, local frame, exclusive
	RingAngle float64 // degrees, [0,360)
	Phase     Phase
	Running   bool
}

// Broadcaster interface for sending messages to viewers
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// Arena owns the full simulation: the flag set, the round state and the
// viewer fan-out. The frame loop is the only mutator; everything external
// goes through the mutex.
type Arena struct {
	mu      sync.RWMutex
	flags   []*Flag
	round   Round
	viewers map[string]Broadcaster
	rng     *rand.Rand

	tick    uint64
	elapsed float64 // simulation seconds since the loop started
	active  int     // flags with StatusActive
	winner  *Flag   // winner of the finished round, nil while running

	// Deadlines in elapsed seconds, <0 when unscheduled. They are checked and
	// fired inside step, never by ambient timers, so cancelling is clearing
	// the field under the lock. A stale timer cannot hit a fresh round.
	scatterAt float64
	restartAt float64

	db        *DB
	analytics *Analytics
	roundSeq  int64

	running bool
	stop    chan struct{}
}

// NewArena creates an arena with its first round already seeded. db and
// analytics may be nil (tests run the core without them). All randomness
// flows through the given seed.
func NewArena(db *DB, analytics *Analytics, seed int64) *Arena {
	a := &Arena{
		viewers:   make(map[string]Broadcaster),
		rng:       rand.New(rand.NewSource(seed)),
		scatterAt: -1,
		restartAt: -1,
		db:        db,
		analytics: analytics,
		stop:      make(chan struct{}),
	}
	a.startRound()
	return a
}

// Run starts the frame loop
func (a *Arena) Run() {
	a.mu.Lock()
	a.running = true
	a.mu.Unlock()

	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.Step(TickDuration.Seconds())
		case <-a.stop:
			return
		}
	}
}

// Stop terminates the frame loop
func (a *Arena) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		a.running = false
		close(a.stop)
	}
}

// ForceRestart abandons the current round and starts a fresh one. Any
// pending auto-restart deadline is cancelled inside startRound.
func (a *Arena) ForceRestart() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.startRound()
}

// AddViewer registers a broadcaster and sends it the static welcome payload
// plus the current leaderboard
func (a *Arena) AddViewer(id string, b Broadcaster) {
	a.mu.Lock()
	a.viewers[id] = b
	a.mu.Unlock()

	b.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{
		BoundaryRadius: BoundaryRadius,
		FlagRadius:     FlagRadius,
		Roster:         Roster,
	}})
	if a.db != nil {
		if entries, err := a.Leaderboard(); err == nil {
			b.SendJSON(Envelope{T: MsgLeaderboard, Data: LeaderboardMsg{Entries: entries}})
		}
	}
}

// RemoveViewer unregisters a broadcaster
func (a *Arena) RemoveViewer(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.viewers, id)
}

// ViewerCount returns the number of registered viewers
func (a *Arena) ViewerCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.viewers)
}

// Leaderboard returns the top win-count entries, descending
func (a *Arena) Leaderboard() ([]LeaderboardEntry, error) {
	if a.db == nil {
		return nil, nil
	}
	return a.db.TopWins(LeaderboardTop)
}

// startRound seeds a fresh round: cancel any pending restart, shuffle the
// roster onto the formation circle, pick scatter headings and spins, reset
// the ring. Caller must hold the mutex.
func (a *Arena) startRound() {
	a.restartAt = -1
	a.roundSeq++
	a.round = Round{
		GapStart: 360 - GapDegrees, // topmost slice of the local frame
		GapEnd:   360,
		Phase:    PhaseFormation,
		Running:  true,
	}
	a.winner = nil

	perm := a.rng.Perm(len(Roster))
	n := len(perm)
	a.flags = a.flags[:0]
	for i, ri := range perm {
		entry := Roster[ri]
		f := NewFlag(entry.Code, entry.Name)
		slot := 2 * math.Pi * float64(i) / float64(n)
		f.X = FormationRadius * math.Cos(slot)
		f.Y = FormationRadius * math.Sin(slot)
		// Scatter velocity is assigned now but only takes effect once the
		// phase flips; formation moves flags rigidly.
		heading := a.rng.Float64() * 2 * math.Pi
		f.VX = BaseSpeed * math.Cos(heading)
		f.VY = BaseSpeed * math.Sin(heading)
		f.AngularVel = (a.rng.Float64()*2 - 1) * SpinMax
		a.flags = append(a.flags, f)
	}
	a.active = n
	a.scatterAt = a.elapsed + FormationDelay

	if a.analytics != nil {
		a.analytics.Track(EvtRoundStart, "", a.roundSeq)
	}

	// A degenerate population cannot scatter; settle the round outright
	// instead of spinning forever with nothing to eliminate.
	if n < 2 {
		a.round.Phase = PhaseScatter
		a.scatterAt = -1
		if n == 1 {
			a.declareWinner(a.flags[0])
		} else {
			a.round.Running = false
		}
	}
}

// declareWinner ends the round for the sole survivor. The running flag makes
// it idempotent: the survivor check firing again for the same round is a
// no-op. Caller must hold the mutex.
func (a *Arena) declareWinner(f *Flag) {
	if !a.round.Running {
		return
	}
	a.round.Running = false
	f.Status = StatusWinner
	f.Scale = 1
	f.Opacity = 1
	a.winner = f
	a.restartAt = a.elapsed + RestartDelay

	if a.db != nil {
		if err := a.db.RecordWin(f.Code, f.Name); err != nil {
			log.Printf("record win: %v", err)
		}
	}
	if a.analytics != nil {
		a.analytics.Track(EvtRoundEnd, f.Code, a.roundSeq)
	}

	a.broadcastMsg(Envelope{T: MsgWinner, Data: WinnerMsg{Code: f.Code, Name: f.Name}})
	a.broadcastLeaderboard()
}

// maybeBroadcast fans the pose frame out at the broadcast rate. Caller must
// hold the mutex.
func (a *Arena) maybeBroadcast() {
	if a.tick%BroadcastEvery != 0 || len(a.viewers) == 0 {
		return
	}
	data, err := msgpack.Marshal(a.buildFrame())
	if err != nil {
		log.Printf("frame marshal: %v", err)
		return
	}
	for _, v := range a.viewers {
		v.SendBinary(data)
	}
}

// buildFrame projects the simulation into the read-only pose table viewers
// render from. Eliminated flags are omitted. Caller must hold the mutex.
func (a *Arena) buildFrame() FrameState {
	frame := FrameState{
		Flags:     make([]FlagPose, 0, len(a.flags)),
		RingAngle: a.round.RingAngle,
		ArcFrac:   1 - GapDegrees/360,
		Phase:     int(a.round.Phase),
		Running:   a.round.Running,
		Tick:      a.tick,
	}
	if a.winner != nil {
		frame.Winner = a.winner.Name
	}
	for _, f := range a.flags {
		if f.Status == StatusEliminated {
			continue
		}
		frame.Flags = append(frame.Flags, f.ToPose())
	}
	return frame
}

// broadcastLeaderboard pushes the ranked table to every viewer. Caller must
// hold the mutex.
func (a *Arena) broadcastLeaderboard() {
	if a.db == nil {
		return
	}
	entries, err := a.db.TopWins(LeaderboardTop)
	if err != nil {
		log.Printf("leaderboard query: %v", err)
		return
	}
	a.broadcastMsg(Envelope{T: MsgLeaderboard, Data: LeaderboardMsg{Entries: entries}})
}

// broadcastMsg sends a JSON message to every viewer. Caller must hold the mutex.
func (a *Arena) broadcastMsg(msg Envelope) {
	for _, v := range a.viewers {
		v.SendJSON(msg)
	}
}
