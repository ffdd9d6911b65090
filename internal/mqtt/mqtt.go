// Package mqtt publishes clock telemetry with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/chewxy/math32"

	"github.com/sweeney/envclock/internal/logic"
)

// DefaultTopicPrefix is the topic root when none is configured.
const DefaultTopicPrefix = "home/envclock"

// Topics names the state and system topics under one prefix.
type Topics struct {
	State  string
	System string
}

// NewTopics returns prefix/state and prefix/system.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{
		State:  prefix + "/state",
		System: prefix + "/system",
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishState sends a state snapshot to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishState(event StateEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// StateEvent is a point-in-time copy of the clock state.
type StateEvent struct {
	Timestamp time.Time
	Session   string
	State     logic.State
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Clock ClockPayload `json:"clock"`
}

// ClockPayload contains the state details. Readings are null when the
// sensor failed.
type ClockPayload struct {
	Timestamp   string   `json:"timestamp"`
	Session     string   `json:"session,omitempty"`
	Menu        string   `json:"menu"`
	Time        string   `json:"time"`
	Contrast    int      `json:"contrast"`
	Temperature *float32 `json:"temperature"`
	Humidity    *float32 `json:"humidity"`
}

// FormatPayload creates the JSON payload for a state event.
func FormatPayload(event StateEvent) ([]byte, error) {
	s := event.State
	payload := Payload{
		Clock: ClockPayload{
			Timestamp:   event.Timestamp.UTC().Format(time.RFC3339),
			Session:     event.Session,
			Menu:        s.Menu.String(),
			Time:        s.Time.String(),
			Contrast:    s.Contrast,
			Temperature: Reading(s.Temperature),
			Humidity:    Reading(s.Humidity),
		},
	}
	return json.Marshal(payload)
}

// Reading returns nil for NaN and infinities, which JSON cannot carry.
func Reading(v float32) *float32 {
	if math32.IsNaN(v) || math32.IsInf(v, 0) {
		return nil
	}
	return &v
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
