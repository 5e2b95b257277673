package web

import (
	"encoding/json"
	"time"

	"github.com/sweeney/inkdash/internal/state"
	"github.com/sweeney/inkdash/internal/store"
)

// StateJSON is the JSON representation of the retained block.
type StateJSON struct {
	Cycle CycleStateJSON `json:"cycle"`
	State SnapshotJSON   `json:"state"`
}

// CycleStateJSON mirrors the scheduler bookkeeping.
type CycleStateJSON struct {
	Booted            bool    `json:"booted"`
	RefreshCount      int     `json:"refresh_count"`
	SDCardOK          bool    `json:"sd_card_ok"`
	WiFiConnected     bool    `json:"wifi_connected"`
	InsideTemperature int8    `json:"inside_temperature"`
	BatteryVoltage    float64 `json:"battery_voltage"`
	CurrentTimeText   string  `json:"current_time_text"`
	SleepUntil        string  `json:"sleep_until,omitempty"`
}

// SnapshotJSON is the last fetched dashboard state.
type SnapshotJSON struct {
	Date      string        `json:"date"`
	Weather   WeatherJSON   `json:"weather"`
	Recycling RecyclingJSON `json:"recycling"`
	BusStops  []BusStopJSON `json:"bus_stops"`
	AtHome    []PersonJSON  `json:"at_home"`
}

// WeatherJSON is the outside conditions block.
type WeatherJSON struct {
	Temperature string `json:"temperature"`
	Rain        string `json:"rain"`
	SunEvent    string `json:"sun_event"`
	SunTime     string `json:"sun_time"`
}

// RecyclingJSON is the next bin collection.
type RecyclingJSON struct {
	Date string `json:"date"`
	Type string `json:"type"`
}

// BusStopJSON is one stop with only its meaningful departures.
type BusStopJSON struct {
	Name  string        `json:"name"`
	Buses []BusTimeJSON `json:"buses"`
}

// BusTimeJSON is one departure.
type BusTimeJSON struct {
	Route       string `json:"route"`
	Destination string `json:"destination"`
	Due         string `json:"due"`
}

// PersonJSON is one tracked phone.
type PersonJSON struct {
	Name   string `json:"name"`
	AtHome bool   `json:"at_home"`
}

// formatState renders r with empty slots left out.
func formatState(r store.Retained) []byte {
	st := r.State
	sj := StateJSON{
		Cycle: CycleStateJSON{
			Booted:            r.Cycle.Booted,
			RefreshCount:      r.Cycle.RefreshCount,
			SDCardOK:          r.Cycle.SDCardOK,
			WiFiConnected:     r.Cycle.WiFiConnected,
			InsideTemperature: r.Cycle.InsideTemperature,
			BatteryVoltage:    r.Cycle.BatteryVoltage,
			CurrentTimeText:   r.Cycle.CurrentTimeText,
		},
		State: SnapshotJSON{
			Date: st.CurrentDate,
			Weather: WeatherJSON{
				Temperature: st.Weather.OutsideTemperature,
				Rain:        st.Weather.RainChance,
				SunEvent:    st.Weather.SunEvent,
				SunTime:     st.Weather.SunTime,
			},
			Recycling: RecyclingJSON{
				Date: st.Recycling.Date,
				Type: st.Recycling.Type.String(),
			},
			BusStops: []BusStopJSON{},
			AtHome:   []PersonJSON{},
		},
	}
	if !r.Cycle.SleepUntil.IsZero() {
		sj.Cycle.SleepUntil = r.Cycle.SleepUntil.UTC().Format(time.RFC3339)
	}

	for _, stop := range st.BusStops {
		if stop.Name == "" {
			continue
		}
		bj := BusStopJSON{Name: stop.Name, Buses: []BusTimeJSON{}}
		for _, bt := range stop.Times[:clamp(stop.TimeCount, state.MaxBusTimes)] {
			bj.Buses = append(bj.Buses, BusTimeJSON{Route: bt.Route, Destination: bt.Destination, Due: bt.Due})
		}
		sj.State.BusStops = append(sj.State.BusStops, bj)
	}
	for _, p := range st.People {
		if p.Name == "" {
			continue
		}
		sj.State.AtHome = append(sj.State.AtHome, PersonJSON{Name: p.Name, AtHome: p.AtHome})
	}

	data, _ := json.MarshalIndent(sj, "", "  ")
	return data
}

func clamp(n, limit int) int {
	if n < 0 {
		return 0
	}
	if n > limit {
		return limit
	}
	return n
}
