// Package store persists the retained block that crosses the sleep boundary.
//
// The block is wrapped in an envelope carrying a magic string, a format
// version and a CRC-32 of the body. Anything that fails validation is reported
// as storage_unavailable together with a zero block, which the caller treats
// as a first boot.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/sweeney/inkdash/internal/errcode"
	"github.com/sweeney/inkdash/internal/mqtt"
	"github.com/sweeney/inkdash/internal/state"
)

const (
	magic   = "inkdash"
	version = 1
)

// CycleState is the scheduler bookkeeping kept across sleeps.
type CycleState struct {
	Booted            bool    `json:"booted"`
	RefreshCount      int     `json:"refresh_count"`
	SDCardOK          bool    `json:"sd_card_ok"`
	WiFiConnected     bool    `json:"wifi_connected"`
	InsideTemperature int8    `json:"inside_temperature"`
	BatteryVoltage    float64 `json:"battery_voltage"`
	CurrentTimeText   string  `json:"current_time_text"`

	// SleepUntil is when the alarm armed by the last wake is due. It lets a
	// fresh process tell an alarm from a button press or a restart.
	SleepUntil time.Time `json:"sleep_until"`
}

// Retained is everything that survives a sleep.
type Retained struct {
	Cycle CycleState  `json:"cycle"`
	State state.State `json:"state"`

	// Outbox holds MQTT messages still waiting for the broker.
	Outbox []mqtt.Message `json:"outbox,omitempty"`
}

// Store loads and saves the retained block.
type Store interface {
	Load(ctx context.Context) (Retained, error)
	Save(ctx context.Context, r Retained) error
}

type envelope struct {
	Magic    string          `json:"magic"`
	Version  int             `json:"version"`
	Checksum uint32          `json:"crc32"`
	Body     json.RawMessage `json:"body"`
}

// Encode wraps r in a checksummed envelope.
func Encode(r Retained) ([]byte, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal retained: %w", err)
	}
	return json.Marshal(envelope{
		Magic:    magic,
		Version:  version,
		Checksum: crc32.ChecksumIEEE(body),
		Body:     body,
	})
}

// Decode validates an envelope and returns its block. period bounds the
// refresh counter. A block whose booted flag is clear is rejected.
func Decode(data []byte, period int) (Retained, error) {
	if period < 1 {
		period = 1
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Retained{}, invalid("unreadable envelope", err)
	}
	if env.Magic != magic {
		return Retained{}, invalid(fmt.Sprintf("bad magic %q", env.Magic), nil)
	}
	if env.Version != version {
		return Retained{}, invalid(fmt.Sprintf("unsupported version %d", env.Version), nil)
	}
	if crc32.ChecksumIEEE(env.Body) != env.Checksum {
		return Retained{}, invalid("checksum mismatch", nil)
	}

	var r Retained
	if err := json.Unmarshal(env.Body, &r); err != nil {
		return Retained{}, invalid("unreadable body", err)
	}
	if !r.Cycle.Booted {
		return Retained{}, invalid("booted flag clear", nil)
	}
	if r.Cycle.RefreshCount < 0 || r.Cycle.RefreshCount >= period {
		return Retained{}, invalid(fmt.Sprintf("refresh count %d out of range", r.Cycle.RefreshCount), nil)
	}
	if !r.State.Valid() || len(r.Cycle.CurrentTimeText) > state.TimeTextCap {
		return Retained{}, invalid("field exceeds capacity", nil)
	}
	return r, nil
}

func invalid(msg string, err error) error {
	return &errcode.E{C: errcode.StorageUnavailable, Op: "store", Msg: msg, Err: err}
}
