// Package telemetry reads the device's own sensors and records battery
// history.
package telemetry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/inkdash/internal/errcode"
)

// Reading is the device telemetry shown on the dashboard.
type Reading struct {
	StorageOK         bool
	NetworkConnected  bool
	InsideTemperature int8
	BatteryVoltage    float64
}

// Sensors reads device telemetry.
type Sensors interface {
	BatteryVoltage() (float64, error)
	InsideTemperature() (int8, error)
	StorageOK() bool
}

// Read samples every sensor. A failed sensor is logged and reads as zero.
func Read(s Sensors, connected bool, log *zap.Logger) Reading {
	r := Reading{
		StorageOK:        s.StorageOK(),
		NetworkConnected: connected,
	}

	v, err := s.BatteryVoltage()
	if err != nil {
		log.Warn("Failed to read battery voltage",
			zap.String("code", string(errcode.Of(err))),
			zap.Error(err),
		)
	} else {
		r.BatteryVoltage = v
	}

	temp, err := s.InsideTemperature()
	if err != nil {
		log.Debug("Inside temperature not available", zap.Error(err))
	} else {
		r.InsideTemperature = temp
	}

	return r
}

// Sink records a reading.
type Sink interface {
	Name() string
	Record(ctx context.Context, at time.Time, r Reading) error
}

// RecordAll hands r to every sink. Failures are warned and skipped; their
// codes are returned in sink order.
func RecordAll(ctx context.Context, sinks []Sink, at time.Time, r Reading, log *zap.Logger) []errcode.Code {
	var codes []errcode.Code
	for _, s := range sinks {
		if err := s.Record(ctx, at, r); err != nil {
			code := errcode.Of(err)
			log.Warn("Failed to record telemetry",
				zap.String("sink", s.Name()),
				zap.String("code", string(code)),
				zap.Error(err),
			)
			codes = append(codes, code)
		}
	}
	return codes
}
