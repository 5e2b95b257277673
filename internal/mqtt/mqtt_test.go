package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/inkdash/internal/errcode"
	"github.com/sweeney/inkdash/internal/logic"
)

var (
	_ Spool = (*RealPublisher)(nil)
	_ Spool = (*FakePublisher)(nil)
)

func sampleCycle() CycleEvent {
	return CycleEvent{
		Timestamp:         time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		ID:                "4f1d2c8e-6c52-4b8a-9a57-0d7c1b0fd3a1",
		Reason:            logic.WakeAlarm,
		RefreshCount:      0,
		Action:            logic.ActionFull,
		Fetched:           true,
		NetworkConnected:  true,
		BatteryVoltage:    3.74,
		InsideTemperature: 21,
	}
}

func TestFormatCyclePayload(t *testing.T) {
	payload, err := FormatCyclePayload(sampleCycle())
	require.NoError(t, err)

	var parsed Payload
	require.NoError(t, json.Unmarshal(payload, &parsed))

	assert.Equal(t, "2026-02-02T22:18:12Z", parsed.Dashboard.Timestamp)
	assert.Equal(t, "ALARM", parsed.Dashboard.Wake)
	assert.Equal(t, "FULL", parsed.Dashboard.Action)
	assert.True(t, parsed.Dashboard.Fetched)
	assert.Equal(t, 3.74, parsed.Dashboard.BatteryVoltage)
}

func TestFormatCyclePayloadExactJSON(t *testing.T) {
	event := sampleCycle()
	event.Reason = logic.WakeButton
	event.Fetched = false
	event.Errors = []errcode.Code{errcode.FetchFailed}

	payload, err := FormatCyclePayload(event)
	require.NoError(t, err)

	expected := `{"dashboard":{"timestamp":"2026-02-02T22:18:12Z","id":"4f1d2c8e-6c52-4b8a-9a57-0d7c1b0fd3a1","wake":"BUTTON","refresh_count":0,"action":"FULL","fetched":false,"network_connected":true,"battery_voltage":3.74,"inside_temperature":21,"errors":["fetch_failed"]}}`
	assert.Equal(t, expected, string(payload))
}

func TestFormatCyclePayloadOmitsEmptyErrors(t *testing.T) {
	payload, err := FormatCyclePayload(sampleCycle())
	require.NoError(t, err)

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(payload, &raw))
	assert.NotContains(t, raw["dashboard"], "errors")
}

func TestFormatCyclePayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("BST", 3600)
	event := sampleCycle()
	event.Timestamp = time.Date(2026, 6, 1, 9, 0, 0, 0, loc)

	payload, err := FormatCyclePayload(event)
	require.NoError(t, err)

	var parsed Payload
	require.NoError(t, json.Unmarshal(payload, &parsed))
	assert.Equal(t, "2026-06-01T08:00:00Z", parsed.Dashboard.Timestamp)
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "home/dashboard/cycle", TopicCycle)
	assert.Equal(t, "home/dashboard/system", TopicSystem)
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	require.NoError(t, err)

	expected := `{"system":{"timestamp":"2026-02-03T10:30:45Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	assert.Equal(t, expected, string(payload))
}

func TestFormatSystemPayloadOmitsReason(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:     "OFFLINE",
	}

	payload, err := FormatSystemPayload(event)
	require.NoError(t, err)

	expected := `{"system":{"timestamp":"2026-02-03T10:30:45Z","event":"OFFLINE"}}`
	assert.Equal(t, expected, string(payload))
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"event":"BOOT"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "BOOT", RawPayload: raw})
	require.NoError(t, err)
	assert.Equal(t, string(raw), string(payload))
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	require.NoError(t, f.PublishCycle(sampleCycle()))
	require.NoError(t, f.PublishSystem(SystemEvent{Event: "BOOT", Retained: true}))
	f.Disconnect()

	assert.Len(t, f.CycleEvents, 1)
	assert.Len(t, f.Payloads, 1)
	require.Len(t, f.SystemEvents, 1)
	assert.True(t, f.SystemEvents[0].Retained)
	assert.Equal(t, 1, f.Disconnects)
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker down")
	f.PublishSystemError = errors.New("broker down")

	assert.Error(t, f.PublishCycle(sampleCycle()))
	assert.Error(t, f.PublishSystem(SystemEvent{Event: "BOOT"}))
	assert.Empty(t, f.CycleEvents, "failed publishes are not recorded")
	assert.Empty(t, f.SystemEvents)
}

func TestFakePublisherOfflineQueues(t *testing.T) {
	f := NewFakePublisher()
	f.Offline = true

	require.NoError(t, f.PublishCycle(sampleCycle()))
	require.NoError(t, f.PublishSystem(SystemEvent{Event: "SHUTDOWN", Retained: true}))
	assert.Empty(t, f.CycleEvents)
	assert.Empty(t, f.SystemEvents)

	queued := f.Queued()
	require.Len(t, queued, 2)
	assert.Equal(t, TopicCycle, queued[0].Topic)
	assert.Equal(t, Message{Topic: TopicSystem, Payload: queued[1].Payload, QoS: 1, Retained: true}, queued[1])

	f.Resume([]Message{{Topic: TopicSystem, Payload: []byte("old")}})
	f.Resume([]Message{{Topic: TopicSystem, Payload: []byte("again")}})
	require.Len(t, f.Queue, 3, "only the first resume applies")
	assert.Equal(t, "old", string(f.Queue[0].Payload))
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.PublishCycle(sampleCycle())
	f.PublishSystem(SystemEvent{Event: "BOOT"})
	f.Disconnect()
	f.Close()
	f.Connected = true
	f.Offline = true
	f.PublishCycle(sampleCycle())

	f.Reset()

	assert.Empty(t, f.CycleEvents)
	assert.Empty(t, f.SystemEvents)
	assert.Empty(t, f.Queue)
	assert.Zero(t, f.Disconnects)
	assert.False(t, f.Closed)
	assert.False(t, f.Connected)
	assert.False(t, f.Offline)
}
