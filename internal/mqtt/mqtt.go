// Package mqtt publishes dashboard wake-cycle and lifecycle events.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/inkdash/internal/errcode"
	"github.com/sweeney/inkdash/internal/logic"
)

// TopicCycle is the MQTT topic for wake-cycle reports.
const TopicCycle = "home/dashboard/cycle"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/dashboard/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishCycle sends a wake-cycle report to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishCycle(event CycleEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Disconnect drops the broker connection ahead of the network going
	// down. The next publish reconnects.
	Disconnect()

	// Close disconnects from the broker.
	Close() error
}

// Spool is implemented by publishers that queue messages while offline. The
// queue can be carried to a later process and handed back with Resume.
type Spool interface {
	// Queued returns a copy of the messages waiting for the broker.
	Queued() []Message

	// Resume queues messages left by an earlier process ahead of anything
	// queued since. Only the first call has an effect.
	Resume(msgs []Message)
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// CycleEvent summarises one wake.
type CycleEvent struct {
	Timestamp         time.Time
	ID                string
	Reason            logic.WakeReason
	RefreshCount      int
	Action            logic.Action
	Fetched           bool
	NetworkConnected  bool
	BatteryVoltage    float64
	InsideTemperature int8
	Errors            []errcode.Code
}

// SystemEvent represents a system lifecycle event (e.g., boot, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "BOOT", "SHUTDOWN", "OFFLINE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for a wake cycle.
type Payload struct {
	Dashboard CyclePayload `json:"dashboard"`
}

// CyclePayload contains the wake-cycle details.
type CyclePayload struct {
	Timestamp         string   `json:"timestamp"`
	ID                string   `json:"id"`
	Wake              string   `json:"wake"`
	RefreshCount      int      `json:"refresh_count"`
	Action            string   `json:"action"`
	Fetched           bool     `json:"fetched"`
	NetworkConnected  bool     `json:"network_connected"`
	BatteryVoltage    float64  `json:"battery_voltage"`
	InsideTemperature int8     `json:"inside_temperature"`
	Errors            []string `json:"errors,omitempty"`
}

// FormatCyclePayload creates the JSON payload for a wake cycle.
func FormatCyclePayload(event CycleEvent) ([]byte, error) {
	var errs []string
	for _, c := range event.Errors {
		errs = append(errs, string(c))
	}
	payload := Payload{
		Dashboard: CyclePayload{
			Timestamp:         event.Timestamp.UTC().Format(time.RFC3339),
			ID:                event.ID,
			Wake:              event.Reason.String(),
			RefreshCount:      event.RefreshCount,
			Action:            event.Action.String(),
			Fetched:           event.Fetched,
			NetworkConnected:  event.NetworkConnected,
			BatteryVoltage:    event.BatteryVoltage,
			InsideTemperature: event.InsideTemperature,
			Errors:            errs,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (OFFLINE, SHUTDOWN) that don't carry a full status snapshot.
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
