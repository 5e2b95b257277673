package scheduler

import (
	"context"

	"go.uber.org/zap"

	"github.com/sweeney/inkdash/internal/errcode"
	"github.com/sweeney/inkdash/internal/logic"
	"github.com/sweeney/inkdash/internal/mqtt"
	"github.com/sweeney/inkdash/internal/render"
	"github.com/sweeney/inkdash/internal/status"
	"github.com/sweeney/inkdash/internal/telemetry"
)

// boot runs the one-time setup and sets the booted flag. Each step label is
// pushed to the panel before the step runs; its result shows with the next
// update.
func (s *Scheduler) boot(ctx context.Context, w *wake) {
	w.coldBoot = true
	r := s.opts.Renderer
	canvas := r.NewCanvas()

	var steps []render.BootStep
	r.BootScreen(canvas, steps)
	s.show(w, "full", func() error { return s.opts.Panel.Full(canvas) })

	step := func(label string, run func() bool) {
		steps = append(steps, render.BootStep{Label: label})
		r.BootScreen(canvas, steps)
		s.show(w, "partial", func() error { return s.opts.Panel.Partial(canvas, canvas.Bounds()) })

		ok := run()
		steps[len(steps)-1].Result = render.StepResult(ok)
		r.BootScreen(canvas, steps)
	}

	connected := false
	step(StepConnect, func() bool {
		connected = s.linkUp(ctx, w)
		return connected
	})
	step(StepTime, func() bool {
		if !connected {
			return false
		}
		return s.syncClock(ctx, w)
	})
	if connected {
		s.publishBoot(w)
	}
	step(StepDisconnect, func() bool {
		s.linkDown()
		return true
	})
	s.show(w, "partial", func() error { return s.opts.Panel.Partial(canvas, canvas.Bounds()) })

	w.retained.Cycle.Booted = true
	w.frame = canvas
	w.log.Info("Boot complete", zap.Bool("network", connected))
}

// fullRefresh reads telemetry, fetches a new snapshot when the network is
// up and redraws the whole panel. A failed fetch keeps the previous
// snapshot.
func (s *Scheduler) fullRefresh(ctx context.Context, w *wake) {
	cs := &w.retained.Cycle

	connected := s.linkUp(ctx, w)
	reading := telemetry.Read(s.opts.Sensors, connected, w.log)
	cs.SDCardOK = reading.StorageOK
	cs.WiFiConnected = reading.NetworkConnected
	cs.BatteryVoltage = reading.BatteryVoltage
	cs.InsideTemperature = reading.InsideTemperature
	w.rep.Reading = reading

	for _, code := range telemetry.RecordAll(ctx, s.opts.Sinks, s.opts.Clock.Now(), reading, w.log) {
		w.fail(code)
	}

	if connected {
		w.rep.Fetched = s.opts.Fetcher.Fetch(ctx, &w.retained.State)
		if !w.rep.Fetched {
			w.fail(errcode.FetchFailed)
		}
	}

	s.publishCycle(w)
	s.linkDown()

	text := logic.ClockText(s.opts.Clock.Now())
	cs.CurrentTimeText = text
	w.rep.TimeText = text

	r := s.opts.Renderer
	canvas := r.NewCanvas()
	r.Render(canvas, w.retained.State, reading)
	r.RenderTime(canvas, text, false)
	s.show(w, "full", func() error { return s.opts.Panel.Full(canvas) })
	w.frame = canvas
}

// partialRefresh redraws the stale snapshot, swaps the old time text for the
// new one and updates only the time region.
func (s *Scheduler) partialRefresh(w *wake) {
	cs := &w.retained.Cycle
	reading := telemetry.Reading{
		StorageOK:         cs.SDCardOK,
		NetworkConnected:  cs.WiFiConnected,
		InsideTemperature: cs.InsideTemperature,
		BatteryVoltage:    cs.BatteryVoltage,
	}
	w.rep.Reading = reading

	r := s.opts.Renderer
	canvas := r.NewCanvas()
	r.Render(canvas, w.retained.State, reading)
	r.RenderTime(canvas, cs.CurrentTimeText, false)
	r.RenderTime(canvas, cs.CurrentTimeText, true)

	text := logic.ClockText(s.opts.Clock.Now())
	r.RenderTime(canvas, text, false)
	s.show(w, "partial", func() error { return s.opts.Panel.Partial(canvas, r.TimeRegion()) })

	cs.CurrentTimeText = text
	w.rep.TimeText = text
	w.frame = canvas

	s.publishCycle(w)
}

func (s *Scheduler) linkUp(ctx context.Context, w *wake) bool {
	ctx, cancel := context.WithTimeout(ctx, s.opts.NetTimeout)
	defer cancel()
	if !s.opts.Link.Up(ctx) {
		w.fail(errcode.NetworkUnavailable)
		return false
	}
	return true
}

// linkDown closes the broker connection before the radio goes off.
func (s *Scheduler) linkDown() {
	if s.opts.Publisher != nil {
		s.opts.Publisher.Disconnect()
	}
	s.opts.Link.Down()
}

func (s *Scheduler) syncClock(ctx context.Context, w *wake) bool {
	ctx, cancel := context.WithTimeout(ctx, s.opts.NetTimeout)
	defer cancel()
	if err := s.opts.Clock.Sync(ctx); err != nil {
		code := errcode.Of(err)
		w.log.Warn("Failed to set time",
			zap.String("code", string(code)),
			zap.Error(err),
		)
		w.fail(code)
		return false
	}
	return true
}

func (s *Scheduler) show(w *wake, mode string, update func() error) {
	if err := update(); err != nil {
		code := errcode.Of(err)
		w.log.Warn("Display update failed",
			zap.String("mode", mode),
			zap.String("code", string(code)),
			zap.Error(err),
		)
		w.fail(code)
	}
}

func (s *Scheduler) publishBoot(w *wake) {
	if s.opts.Publisher == nil {
		return
	}
	event := mqtt.SystemEvent{
		Timestamp: s.opts.Clock.Now(),
		Event:     "BOOT",
		Retained:  true,
	}
	if s.opts.Tracker != nil {
		event.RawPayload = status.FormatStatusEvent(s.opts.Tracker.Snapshot(), "BOOT", "")
	}
	if err := s.opts.Publisher.PublishSystem(event); err != nil {
		w.log.Warn("Failed to publish boot event", zap.Error(err))
	}
}

func (s *Scheduler) publishCycle(w *wake) {
	if s.opts.Publisher == nil {
		return
	}
	rep := w.rep
	err := s.opts.Publisher.PublishCycle(mqtt.CycleEvent{
		Timestamp:         rep.Start,
		ID:                rep.ID,
		Reason:            rep.Reason,
		RefreshCount:      rep.RefreshCount,
		Action:            rep.Action,
		Fetched:           rep.Fetched,
		NetworkConnected:  rep.Reading.NetworkConnected,
		BatteryVoltage:    rep.Reading.BatteryVoltage,
		InsideTemperature: rep.Reading.InsideTemperature,
		Errors:            append([]errcode.Code(nil), rep.Errors...),
	})
	if err != nil {
		w.log.Warn("Failed to publish cycle event", zap.Error(err))
	}
}
