package bot

import "sync"

// Conversation flow tags.
const (
	FlowIdle              = "idle"
	FlowScanningCode      = "scanning_code"
	FlowInspection        = "running_inspection"
	FlowAwaitStartReading = "awaiting_start_reading"
	FlowAwaitEndReading   = "awaiting_end_reading"
	FlowManualReading     = "manual_reading_entry"
)

// Session is the ephemeral per-conversation state. It lives only in memory;
// an in-progress flow does not survive a restart, sealed shifts do.
type Session struct {
	ChatID   int64
	DriverID string
	Flow     string

	// Gen is bumped on every reset. In-flight recognition calls capture it
	// and drop their result if the session was cancelled or reused meanwhile.
	Gen uint64

	// Accumulator for the flow in progress.
	VehicleID   string
	VehicleName string
	Hint        string
	Step        int
	Answers     map[string]string
	ShiftID     string // shift being closed, empty during the start flow
	Suggested   *int64 // gauge reading awaiting confirmation
}

func (s *Session) reset() {
	s.Gen++
	s.Flow = FlowIdle
	s.VehicleID = ""
	s.VehicleName = ""
	s.Hint = ""
	s.Step = 0
	s.Answers = nil
	s.ShiftID = ""
	s.Suggested = nil
}

// conversation pairs a session with its serialization locks. busy is held for
// the duration of event handling (including slow recognition calls) and is
// try-locked so overlapping events are rejected instead of interleaved; mu
// guards the session fields so cancel can cut in without waiting on busy.
type conversation struct {
	busy sync.Mutex
	mu   sync.Mutex
	sess Session
}

func (c *conversation) snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

func (c *conversation) update(fn func(*Session)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.sess)
}

// updateIfGen applies fn only if the session generation still matches,
// reporting whether it did. Stale recognition results fail the check.
func (c *conversation) updateIfGen(gen uint64, fn func(*Session)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess.Gen != gen {
		return false
	}
	fn(&c.sess)
	return true
}
