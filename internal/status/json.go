package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"cycle_counts"`
	LastCycle     *CycleJSON   `json:"last_cycle,omitempty"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Queued    int    `json:"queued"`
}

// CountsJSON is the JSON representation of cycle counts.
type CountsJSON struct {
	Full          int `json:"full"`
	Partial       int `json:"partial"`
	Fetched       int `json:"fetched"`
	FetchFailures int `json:"fetch_failures"`
	Button        int `json:"button"`
}

// CycleJSON is the JSON representation of the last wake.
type CycleJSON struct {
	ID                string   `json:"id"`
	Start             string   `json:"start"`
	DurationMs        int64    `json:"duration_ms"`
	Booted            bool     `json:"booted"`
	Wake              string   `json:"wake"`
	RefreshCount      int      `json:"refresh_count"`
	Action            string   `json:"action"`
	Fetched           bool     `json:"fetched"`
	TimeText          string   `json:"time_text"`
	SleepSeconds      uint16   `json:"sleep_seconds"`
	BatteryVoltage    float64  `json:"battery_voltage"`
	InsideTemperature int8     `json:"inside_temperature"`
	Errors            []string `json:"errors,omitempty"`
	Phases            []string `json:"phases"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Interface string `json:"interface"`
	Connected bool   `json:"connected"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	ServerURL     string `json:"server_url"`
	Broker        string `json:"broker"`
	HTTPAddr      string `json:"http_addr"`
	Store         string `json:"store"`
	RefreshPeriod int    `json:"refresh_period"`
	Panel         string `json:"panel"`
}

// FormatCycle converts a wake summary to its JSON form.
func FormatCycle(c Cycle) CycleJSON {
	cj := CycleJSON{
		ID:                c.ID,
		Start:             c.Start.UTC().Format(time.RFC3339),
		DurationMs:        c.Duration.Milliseconds(),
		Booted:            c.Booted,
		Wake:              c.Reason.String(),
		RefreshCount:      c.RefreshCount,
		Action:            c.Action.String(),
		Fetched:           c.Fetched,
		TimeText:          c.TimeText,
		SleepSeconds:      c.SleepSeconds,
		BatteryVoltage:    c.BatteryVoltage,
		InsideTemperature: c.InsideTemperature,
		Phases:            []string{},
	}
	for _, e := range c.Errors {
		cj.Errors = append(cj.Errors, string(e))
	}
	for _, p := range c.Phases {
		cj.Phases = append(cj.Phases, p.String())
	}
	return cj
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker, Queued: len(snap.Retained.Outbox)},
		Counts: CountsJSON{
			Full:          snap.Counts.Full,
			Partial:       snap.Counts.Partial,
			Fetched:       snap.Counts.Fetched,
			FetchFailures: snap.Counts.FetchFailures,
			Button:        snap.Counts.Button,
		},
		Config: ConfigJSON{
			ServerURL:     snap.Config.ServerURL,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
			Store:         snap.Config.Store,
			RefreshPeriod: snap.Config.RefreshPeriod,
			Panel:         snap.Config.Panel,
		},
	}
	if snap.Last != nil {
		cj := FormatCycle(*snap.Last)
		inner.LastCycle = &cj
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Interface: snap.Network.Interface,
			Connected: snap.Network.Connected,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
