// Package mqtt publishes device events to an MQTT broker, with a fake
// publisher for tests.
package mqtt

import (
	"crypto/rand"
	"encoding/json"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sweeney/ces-device/internal/logic"
	"github.com/sweeney/ces-device/internal/status"
)

// Topic is the MQTT topic for device events.
const Topic = "ces/device/events"

// TopicSystem is the MQTT topic for daemon lifecycle events.
const TopicSystem = "ces/device/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a device event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a daemon lifecycle event (startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewMessageID returns a ULID stamped with t. IDs are monotonic within a
// process, so consumers can order and dedupe replayed messages.
func NewMessageID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Payload is the MQTT message payload for a device event.
type Payload struct {
	Device DevicePayload `json:"device"`
}

// DevicePayload contains the device event details.
type DevicePayload struct {
	ID               string             `json:"id"`
	Timestamp        string             `json:"timestamp"`
	Event            string             `json:"event"`
	Reason           string             `json:"reason,omitempty"`
	Remaining        string             `json:"remaining"`
	RemainingSeconds int                `json:"remaining_seconds"`
	Battery          int                `json:"battery"`
	Record           *status.RecordJSON `json:"record,omitempty"`
}

// FormatPayload creates the JSON payload for a device event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Device: DevicePayload{
			ID:               NewMessageID(event.Timestamp),
			Timestamp:        event.Timestamp.UTC().Format(time.RFC3339),
			Event:            string(event.Type),
			Reason:           event.Reason,
			Remaining:        logic.FormatCountdown(event.Remaining),
			RemainingSeconds: event.Remaining,
			Battery:          event.Battery,
		},
	}
	if event.Record != nil {
		rj := status.NewRecordJSON(*event.Record)
		payload.Device.Record = &rj
	}
	return json.Marshal(payload)
}

// SystemPayload is the payload for system events that don't carry a full
// status snapshot (OFFLINE will, RECONNECTED).
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			ID:        NewMessageID(event.Timestamp),
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
