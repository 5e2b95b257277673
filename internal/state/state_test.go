package state

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestBound(t *testing.T) {
	tests := []struct {
		in   string
		cap  int
		want string
	}{
		{"12", 3, "12"},
		{"-12", 3, "-12"},
		{"-123", 3, "-12"},
		{"", 5, ""},
		{"anything", 0, ""},
		{"Sunrise", 8, "Sunrise"},
		{"Sunrise!!", 8, "Sunrise!"},
		// "é" is two bytes; it must not be split at the boundary.
		{"Zoé", 3, "Zo"},
		{"Zoé", 4, "Zoé"},
	}
	for _, tt := range tests {
		got := Bound(tt.in, tt.cap)
		assert.Equal(t, tt.want, got, "Bound(%q, %d)", tt.in, tt.cap)
		assert.True(t, utf8.ValidString(got))
		assert.LessOrEqual(t, len(got), max(tt.cap, 0))
	}
}

func TestParseCollectionType(t *testing.T) {
	assert.Equal(t, GeneralWaste, ParseCollectionType("General Waste"))
	assert.Equal(t, Recycling, ParseCollectionType("Recycling"))
	assert.Equal(t, Recycling, ParseCollectionType(""))
	assert.Equal(t, Recycling, ParseCollectionType("general waste"))
	assert.Equal(t, Recycling, ParseCollectionType("General Waste "))
	assert.Equal(t, "General Waste", GeneralWaste.String())
	assert.Equal(t, "Recycling", Recycling.String())
}

func TestValid(t *testing.T) {
	var st State
	assert.True(t, st.Valid(), "zero snapshot is valid")

	st.Weather.OutsideTemperature = "-12"
	st.BusStops[0] = BusStop{Name: "High Street", TimeCount: 1}
	st.BusStops[0].Times[0] = BusTime{Route: "5", Destination: "City Centre", Due: "3 mins"}
	assert.True(t, st.Valid())

	over := st
	over.People[4].Name = "Alexandra"
	assert.False(t, over.Valid())

	over = st
	over.BusStops[1].TimeCount = MaxBusTimes + 1
	assert.False(t, over.Valid())

	over = st
	over.CurrentDate = strings.Repeat("x", DateCap+1)
	assert.False(t, over.Valid())
}

func TestBusStopNext(t *testing.T) {
	var stop BusStop
	_, ok := stop.Next()
	assert.False(t, ok)

	stop.TimeCount = 2
	stop.Times[0] = BusTime{Route: "4A", Destination: "Abingdon", Due: "due"}
	next, ok := stop.Next()
	assert.True(t, ok)
	assert.Equal(t, "4A", next.Route)
}

func TestSnapshotComparable(t *testing.T) {
	var a, b State
	a.People[0] = Person{Name: "Sam", AtHome: true}
	b = a
	assert.True(t, a == b)
	b.People[0].AtHome = false
	assert.False(t, a == b)
}
