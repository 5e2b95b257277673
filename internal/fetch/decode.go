package fetch

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/sweeney/inkdash/internal/errcode"
	"github.com/sweeney/inkdash/internal/state"
)

// text accepts a JSON string or number. Numbers keep their literal form so a
// temperature sent as 7 renders the same as "7".
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*t = text(n.String())
		return nil
	}
	return fmt.Errorf("expected string or number, got %s", b)
}

type payload struct {
	Date    *text `json:"date"`
	Weather *struct {
		Temperature *text `json:"temperature"`
		Rain        *text `json:"rain"`
		Sun         *struct {
			Event *text `json:"event"`
			Time  *text `json:"time"`
		} `json:"sun"`
	} `json:"weather"`
	Recycling *struct {
		Date *text `json:"date"`
		Type *text `json:"type"`
	} `json:"recycling"`
	BusStops *[]busStopPayload `json:"bus_stops"`
	AtHome   json.RawMessage   `json:"at_home"`
}

type busStopPayload struct {
	Name  *text             `json:"name"`
	Buses []json.RawMessage `json:"buses"`
}

type busTimePayload struct {
	Route       *text `json:"route"`
	Destination *text `json:"destination"`
	Due         *text `json:"due"`
}

func missing(path string) error {
	return &errcode.E{C: errcode.FetchFailed, Op: "decode", Msg: "missing " + path}
}

func malformed(path string, err error) error {
	return &errcode.E{C: errcode.FetchFailed, Op: "decode", Msg: "malformed " + path, Err: err}
}

// Decode parses a status document into a fresh snapshot. Every text value is
// bounded to its field capacity. Bus stops beyond state.BusStopCount, bus
// times beyond state.MaxBusTimes and people beyond state.PeopleCount are
// dropped; slots the document does not fill stay zero. Any missing or
// mistyped required key fails the whole decode.
func Decode(data []byte) (state.State, error) {
	var st state.State
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return st, malformed("document", err)
	}

	if p.Date == nil {
		return st, missing("date")
	}
	st.CurrentDate = state.Bound(string(*p.Date), state.DateCap)

	if p.Weather == nil {
		return st, missing("weather")
	}
	if p.Weather.Temperature == nil {
		return st, missing("weather.temperature")
	}
	if p.Weather.Rain == nil {
		return st, missing("weather.rain")
	}
	if p.Weather.Sun == nil || p.Weather.Sun.Event == nil {
		return st, missing("weather.sun.event")
	}
	if p.Weather.Sun.Time == nil {
		return st, missing("weather.sun.time")
	}
	st.Weather = state.Weather{
		OutsideTemperature: state.Bound(string(*p.Weather.Temperature), state.OutsideTemperatureCap),
		RainChance:         state.Bound(string(*p.Weather.Rain), state.RainChanceCap),
		SunEvent:           state.Bound(string(*p.Weather.Sun.Event), state.SunEventCap),
		SunTime:            state.Bound(string(*p.Weather.Sun.Time), state.SunTimeCap),
	}

	if p.Recycling == nil || p.Recycling.Date == nil {
		return st, missing("recycling.date")
	}
	if p.Recycling.Type == nil {
		return st, missing("recycling.type")
	}
	st.Recycling = state.RecyclingInfo{
		Date: state.Bound(string(*p.Recycling.Date), state.RecyclingDateCap),
		Type: state.ParseCollectionType(string(*p.Recycling.Type)),
	}

	if p.BusStops == nil {
		return st, missing("bus_stops")
	}
	for i, stop := range *p.BusStops {
		if i >= state.BusStopCount {
			break
		}
		decoded, err := decodeBusStop(i, stop)
		if err != nil {
			return st, err
		}
		st.BusStops[i] = decoded
	}

	if len(p.AtHome) == 0 || bytes.Equal(p.AtHome, []byte("null")) {
		return st, missing("at_home")
	}
	people, err := decodePeople(p.AtHome)
	if err != nil {
		return st, err
	}
	st.People = people

	return st, nil
}

func decodeBusStop(i int, p busStopPayload) (state.BusStop, error) {
	var stop state.BusStop
	if p.Name == nil {
		return stop, missing(fmt.Sprintf("bus_stops[%d].name", i))
	}
	stop.Name = state.Bound(string(*p.Name), state.BusStopNameCap)

	for j, raw := range p.Buses {
		if j >= state.MaxBusTimes {
			break
		}
		bt, err := decodeBusTime(raw)
		if err != nil {
			return stop, malformed(fmt.Sprintf("bus_stops[%d].buses[%d]", i, j), err)
		}
		stop.Times[j] = bt
		stop.TimeCount = j + 1
	}
	return stop, nil
}

// decodeBusTime accepts {"route","destination","due"} objects as well as the
// [route, destination, due] arrays the dashboard server emits.
func decodeBusTime(raw json.RawMessage) (state.BusTime, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var tuple []text
		if err := json.Unmarshal(raw, &tuple); err != nil {
			return state.BusTime{}, err
		}
		if len(tuple) < 3 {
			return state.BusTime{}, fmt.Errorf("expected 3 values, got %d", len(tuple))
		}
		return busTime(tuple[0], tuple[1], tuple[2]), nil
	}

	var obj busTimePayload
	if err := json.Unmarshal(raw, &obj); err != nil {
		return state.BusTime{}, err
	}
	if obj.Route == nil || obj.Destination == nil || obj.Due == nil {
		return state.BusTime{}, fmt.Errorf("route, destination and due are required")
	}
	return busTime(*obj.Route, *obj.Destination, *obj.Due), nil
}

func busTime(route, destination, due text) state.BusTime {
	return state.BusTime{
		Route:       state.Bound(string(route), state.RouteCap),
		Destination: state.Bound(string(destination), state.DestinationCap),
		Due:         state.Bound(string(due), state.DueCap),
	}
}

// decodePeople walks the at_home object with a token stream so people keep
// the order the server wrote them in. A value counts as at home only when it
// is the JSON literal true.
func decodePeople(raw json.RawMessage) ([state.PeopleCount]state.Person, error) {
	var people [state.PeopleCount]state.Person

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return people, malformed("at_home", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return people, malformed("at_home", fmt.Errorf("expected object, got %v", tok))
	}

	n := 0
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return people, malformed("at_home", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return people, malformed("at_home", fmt.Errorf("unexpected key %v", keyTok))
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return people, malformed("at_home."+name, err)
		}
		if n < state.PeopleCount {
			people[n] = state.Person{
				Name:   state.Bound(name, state.PersonNameCap),
				AtHome: bytes.Equal(bytes.TrimSpace(value), []byte("true")),
			}
			n++
		}
	}
	if _, err := dec.Token(); err != nil {
		return people, malformed("at_home", err)
	}
	return people, nil
}
