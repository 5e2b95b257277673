package fetch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/inkdash/internal/errcode"
	"github.com/sweeney/inkdash/internal/state"
)

const samplePayload = `{
  "date": "Monday 02 March",
  "weather": {"temperature": "7", "rain": "40%", "sun": {"event": "Sunset", "time": "17:48"}},
  "recycling": {"date": "Thursday 05 March", "type": "General Waste"},
  "bus_stops": [
    {"name": "High Street", "buses": [
      {"route": "5", "destination": "City Centre", "due": "3 mins"},
      {"route": "5", "destination": "City Centre", "due": "18 mins"}
    ]},
    {"name": "Station Road", "buses": [["X3", "Abingdon", "due"]]}
  ],
  "at_home": {"Zed": true, "Amy": false, "Sam": true}
}`

func TestDecodeSample(t *testing.T) {
	st, err := Decode([]byte(samplePayload))
	require.NoError(t, err)

	assert.Equal(t, "Monday 02 March", st.CurrentDate)
	assert.Equal(t, state.Weather{OutsideTemperature: "7", RainChance: "40%", SunEvent: "Sunset", SunTime: "17:48"}, st.Weather)
	assert.Equal(t, "Thursday 05 March", st.Recycling.Date)
	assert.Equal(t, state.GeneralWaste, st.Recycling.Type)

	assert.Equal(t, "High Street", st.BusStops[0].Name)
	assert.Equal(t, 2, st.BusStops[0].TimeCount)
	assert.Equal(t, state.BusTime{Route: "5", Destination: "City Centre", Due: "3 mins"}, st.BusStops[0].Times[0])

	assert.Equal(t, "Station Road", st.BusStops[1].Name)
	assert.Equal(t, 1, st.BusStops[1].TimeCount)
	assert.Equal(t, state.BusTime{Route: "X3", Destination: "Abingdon", Due: "due"}, st.BusStops[1].Times[0])

	// Document order is kept, not sorted.
	assert.Equal(t, state.Person{Name: "Zed", AtHome: true}, st.People[0])
	assert.Equal(t, state.Person{Name: "Amy", AtHome: false}, st.People[1])
	assert.Equal(t, state.Person{Name: "Sam", AtHome: true}, st.People[2])
	assert.Equal(t, state.Person{}, st.People[3])
}

func TestDecodeRecyclingType(t *testing.T) {
	tests := []struct {
		value string
		want  state.CollectionType
	}{
		{`"General Waste"`, state.GeneralWaste},
		{`"Recycling"`, state.Recycling},
		{`""`, state.Recycling},
		{`"Garden Waste"`, state.Recycling},
		{`"GENERAL WASTE"`, state.Recycling},
	}
	for _, tt := range tests {
		doc := strings.Replace(samplePayload, `"type": "General Waste"`, `"type": `+tt.value, 1)
		st, err := Decode([]byte(doc))
		require.NoError(t, err, tt.value)
		assert.Equal(t, tt.want, st.Recycling.Type, tt.value)
	}
}

func TestDecodeTruncatesBusTimes(t *testing.T) {
	var buses []string
	for i := 0; i < 8; i++ {
		buses = append(buses, `{"route": "1234", "destination": "`+strings.Repeat("D", 40)+`", "due": "59 mins!"}`)
	}
	doc := `{
	  "date": "d", "weather": {"temperature": "1", "rain": "0%", "sun": {"event": "Sunrise", "time": "7:01"}},
	  "recycling": {"date": "d", "type": "Recycling"},
	  "bus_stops": [{"name": "A", "buses": [` + strings.Join(buses, ",") + `]}, {"name": "B", "buses": []}, {"name": "C"}],
	  "at_home": {}
	}`

	st, err := Decode([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, state.MaxBusTimes, st.BusStops[0].TimeCount)
	for _, bt := range st.BusStops[0].Times {
		assert.Equal(t, "123", bt.Route)
		assert.Len(t, bt.Destination, state.DestinationCap)
		assert.Equal(t, "59 mins", bt.Due)
	}
	// The neighbouring stop is untouched by the overflow.
	assert.Equal(t, state.BusStop{Name: "B"}, st.BusStops[1])
	assert.True(t, st.Valid())
}

func TestDecodeBoundsStrings(t *testing.T) {
	doc := strings.NewReplacer(
		`"temperature": "7"`, `"temperature": "-105"`,
		`"Sunset"`, `"Sunset at dusk"`,
		`"Zed"`, `"Alexandra"`,
	).Replace(samplePayload)

	st, err := Decode([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "-10", st.Weather.OutsideTemperature)
	assert.Equal(t, "Sunset a", st.Weather.SunEvent)
	assert.Equal(t, "Alexa", st.People[0].Name)
	assert.True(t, st.Valid())
}

func TestDecodeNumbersAsText(t *testing.T) {
	doc := strings.Replace(samplePayload, `"temperature": "7"`, `"temperature": 12`, 1)
	st, err := Decode([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "12", st.Weather.OutsideTemperature)
}

func TestDecodePeopleCapped(t *testing.T) {
	doc := strings.Replace(samplePayload,
		`{"Zed": true, "Amy": false, "Sam": true}`,
		`{"A": true, "B": true, "C": false, "D": true, "E": false, "F": true, "G": "yes"}`, 1)
	st, err := Decode([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "E", st.People[4].Name)
	assert.False(t, st.People[4].AtHome)
}

func TestDecodeMissingFields(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
	}{
		{"date", `"date": "Monday 02 March",`, ``},
		{"temperature", `"temperature": "7", `, ``},
		{"sun", `, "sun": {"event": "Sunset", "time": "17:48"}`, ``},
		{"recycling type", `, "type": "General Waste"`, ``},
		{"recycling type null", `"type": "General Waste"`, `"type": null`},
		{"bus stop name", `"name": "Station Road", `, ``},
		{"bus route", `{"route": "5", "destination": "City Centre", "due": "3 mins"},`, `{"destination": "City Centre", "due": "3 mins"},`},
		{"short tuple", `["X3", "Abingdon", "due"]`, `["X3", "Abingdon"]`},
		{"at_home", `,
  "at_home": {"Zed": true, "Amy": false, "Sam": true}`, ``},
		{"at_home array", `{"Zed": true, "Amy": false, "Sam": true}`, `["Zed"]`},
		{"wrong type", `"rain": "40%"`, `"rain": {"value": 40}`},
		{"not json", samplePayload, `<html>oops</html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := strings.Replace(samplePayload, tt.from, tt.to, 1)
			require.NotEqual(t, samplePayload, doc, "replacement did not apply")
			_, err := Decode([]byte(doc))
			require.Error(t, err)
			assert.Equal(t, errcode.FetchFailed, errcode.Of(err))
		})
	}
}
