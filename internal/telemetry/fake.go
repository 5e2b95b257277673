package telemetry

import (
	"context"
	"time"
)

// FakeSensors is a test double that returns fixed readings.
type FakeSensors struct {
	Voltage     float64
	Temperature int8
	Storage     bool

	// VoltageError and TemperatureError, if set, are returned instead of
	// the readings.
	VoltageError     error
	TemperatureError error
}

// BatteryVoltage implements Sensors.
func (f *FakeSensors) BatteryVoltage() (float64, error) {
	return f.Voltage, f.VoltageError
}

// InsideTemperature implements Sensors.
func (f *FakeSensors) InsideTemperature() (int8, error) {
	return f.Temperature, f.TemperatureError
}

// StorageOK implements Sensors.
func (f *FakeSensors) StorageOK() bool {
	return f.Storage
}

// FakeSink records every reading it is given.
type FakeSink struct {
	Readings []Reading
	Times    []time.Time

	// RecordError, if set, will be returned by Record()
	RecordError error
}

// Name implements Sink.
func (f *FakeSink) Name() string { return "fake" }

// Record implements Sink.
func (f *FakeSink) Record(_ context.Context, at time.Time, r Reading) error {
	if f.RecordError != nil {
		return f.RecordError
	}
	f.Readings = append(f.Readings, r)
	f.Times = append(f.Times, at)
	return nil
}
