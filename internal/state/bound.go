package state

import "unicode/utf8"

// Bound truncates s to at most capacity bytes. It never splits a UTF-8
// sequence: a rune that does not fit is dropped whole.
func Bound(s string, capacity int) string {
	if capacity <= 0 {
		return ""
	}
	if len(s) <= capacity {
		return s
	}
	cut := capacity
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

type field struct {
	s   string
	cap int
}

// Valid reports whether every text field of st is within its capacity and
// every counter is within its slot range.
func (st *State) Valid() bool {
	fields := []field{
		{st.CurrentDate, DateCap},
		{st.Weather.OutsideTemperature, OutsideTemperatureCap},
		{st.Weather.RainChance, RainChanceCap},
		{st.Weather.SunEvent, SunEventCap},
		{st.Weather.SunTime, SunTimeCap},
		{st.Recycling.Date, RecyclingDateCap},
	}
	for _, stop := range st.BusStops {
		if stop.TimeCount < 0 || stop.TimeCount > MaxBusTimes {
			return false
		}
		fields = append(fields, field{stop.Name, BusStopNameCap})
		for _, bt := range stop.Times {
			fields = append(fields,
				field{bt.Route, RouteCap},
				field{bt.Destination, DestinationCap},
				field{bt.Due, DueCap},
			)
		}
	}
	for _, p := range st.People {
		fields = append(fields, field{p.Name, PersonNameCap})
	}
	for _, f := range fields {
		if len(f.s) > f.cap {
			return false
		}
	}
	return true
}
