// Package status provides a thread-safe status tracker for the envclock daemon.
// It is read by HTTP handlers, the websocket feed and lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/envclock/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Broker      string // empty when MQTT is disabled
	TopicPrefix string
	HTTPAddr    string
	SerialPort  string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         logic.State
	Session       string
	StartTime     time.Time
	Now           time.Time
	Frames        int // redraws since start
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time, boot session id
// and config.
func NewTracker(startTime time.Time, session string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Session:   session,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// SetClock replaces the time source used for Snapshot.Now.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// Update stores the state drawn by the latest redraw.
func (t *Tracker) Update(s logic.State) {
	t.mu.Lock()
	t.snap.State = s
	t.snap.Frames++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	now := t.now
	t.mu.RUnlock()
	s.Now = now()
	return s
}
