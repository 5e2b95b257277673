// Package state holds the dashboard snapshot rendered on every wake.
//
// Every text field has a fixed byte capacity. Values coming from outside the
// process must pass through Bound before they are stored, so a snapshot never
// holds more than its declared capacity. The snapshot is made of arrays and
// strings only, which keeps it comparable with == and copyable by value.
package state

// Slot counts.
const (
	BusStopCount = 2
	MaxBusTimes  = 5
	PeopleCount  = 5
)

// Field capacities in bytes.
const (
	DateCap               = 21
	OutsideTemperatureCap = 3
	RainChanceCap         = 3
	SunEventCap           = 8
	SunTimeCap            = 5
	RecyclingDateCap      = 21
	BusStopNameCap        = 31
	RouteCap              = 3
	DestinationCap        = 31
	DueCap                = 7
	PersonNameCap         = 5
	TimeTextCap           = 5
)

// GeneralWasteLabel is the exact recycling type text that selects GeneralWaste.
const GeneralWasteLabel = "General Waste"

// CollectionType is the kind of bin collected next.
type CollectionType int

const (
	GeneralWaste CollectionType = iota
	Recycling
)

// ParseCollectionType maps the server text to a CollectionType. Only an exact
// match on "General Waste" selects GeneralWaste; anything else, including the
// empty string, is Recycling.
func ParseCollectionType(s string) CollectionType {
	if s == GeneralWasteLabel {
		return GeneralWaste
	}
	return Recycling
}

func (c CollectionType) String() string {
	if c == GeneralWaste {
		return GeneralWasteLabel
	}
	return "Recycling"
}

// Weather is the outside conditions block.
type Weather struct {
	OutsideTemperature string `json:"outside_temperature"`
	RainChance         string `json:"rain_chance"`
	SunEvent           string `json:"sun_event"`
	SunTime            string `json:"sun_time"`
}

// RecyclingInfo is the next bin collection.
type RecyclingInfo struct {
	Date string         `json:"date"`
	Type CollectionType `json:"type"`
}

// BusTime is one departure.
type BusTime struct {
	Route       string `json:"route"`
	Destination string `json:"destination"`
	Due         string `json:"due"`
}

// BusStop holds up to MaxBusTimes departures, soonest first. Only the first
// TimeCount entries are meaningful.
type BusStop struct {
	Name      string               `json:"name"`
	TimeCount int                  `json:"time_count"`
	Times     [MaxBusTimes]BusTime `json:"times"`
}

// Next returns the soonest departure, if any.
func (b BusStop) Next() (BusTime, bool) {
	if b.TimeCount < 1 {
		return BusTime{}, false
	}
	return b.Times[0], true
}

// Person is one tracked phone.
type Person struct {
	Name   string `json:"name"`
	AtHome bool   `json:"at_home"`
}

// State is the snapshot fetched from the dashboard server.
type State struct {
	CurrentDate string                `json:"current_date"`
	Weather     Weather               `json:"weather"`
	Recycling   RecyclingInfo         `json:"recycling"`
	BusStops    [BusStopCount]BusStop `json:"bus_stops"`
	People      [PeopleCount]Person   `json:"people"`
}
