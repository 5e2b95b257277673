package render

import (
	"fmt"

	"github.com/sweeney/inkdash/internal/state"
	"github.com/sweeney/inkdash/internal/telemetry"
)

// Line is one "label: value" row of the dashboard.
type Line struct {
	Label string
	Value string
}

func (l Line) String() string {
	return l.Label + ": " + l.Value
}

// Lines selects and formats the rows shown for a snapshot and reading.
// Bus stops and people without a name are skipped.
func Lines(st state.State, r telemetry.Reading) []Line {
	lines := []Line{
		{"SD card available", yesNo(r.StorageOK)},
		{"Battery", fmt.Sprintf("%.2fV", r.BatteryVoltage)},
		{"Network connected", yesNo(r.NetworkConnected)},
		{"Inside Temperature", fmt.Sprintf("%dC", r.InsideTemperature)},
		{"Outside Temperature", outside(st.Weather.OutsideTemperature)},
		{"Chance of Rain", st.Weather.RainChance},
		{sunLabel(st.Weather.SunEvent), st.Weather.SunTime},
		{"Next Bin Collection", st.Recycling.Date},
		{"Next Bin Type", st.Recycling.Type.String()},
	}

	for _, stop := range st.BusStops {
		if stop.Name == "" {
			continue
		}
		lines = append(lines, Line{stop.Name, busValue(stop)})
	}

	for _, p := range st.People {
		if p.Name == "" {
			continue
		}
		lines = append(lines, Line{p.Name + "'s Phone", connected(p.AtHome)})
	}

	return lines
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func connected(b bool) string {
	if b {
		return "Connected"
	}
	return "Not Connected"
}

// outside shows "NC" until the server has reported a temperature.
func outside(t string) string {
	if t == "" {
		return "NC"
	}
	return t + "C"
}

func sunLabel(event string) string {
	if event == "" {
		return "Sun"
	}
	return event
}

func busValue(stop state.BusStop) string {
	bt, ok := stop.Next()
	if !ok {
		return "No buses"
	}
	return bt.Route + " " + bt.Destination + " " + bt.Due
}
