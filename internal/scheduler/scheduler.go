// Package scheduler runs the per-wake state machine: load the retained block,
// walk the phases from Booting or Deciding through a full or partial refresh
// to Sleeping, save the block and suspend.
//
// Every failure inside a wake is absorbed. It is logged, its code is added to
// the Report, and the wake carries on with whatever data it already has.
package scheduler

import (
	"context"
	"image"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sweeney/inkdash/internal/display"
	"github.com/sweeney/inkdash/internal/errcode"
	"github.com/sweeney/inkdash/internal/fetch"
	"github.com/sweeney/inkdash/internal/logic"
	"github.com/sweeney/inkdash/internal/mqtt"
	"github.com/sweeney/inkdash/internal/network"
	"github.com/sweeney/inkdash/internal/power"
	"github.com/sweeney/inkdash/internal/render"
	"github.com/sweeney/inkdash/internal/status"
	"github.com/sweeney/inkdash/internal/store"
	"github.com/sweeney/inkdash/internal/telemetry"
)

// DefaultNetTimeout bounds bringing the link up and syncing the clock.
const DefaultNetTimeout = 30 * time.Second

// Boot screen step labels.
const (
	StepConnect    = "Connecting to WiFi"
	StepTime       = "Setting time"
	StepDisconnect = "Disconnecting WiFi"
)

// Options wires a Scheduler to its collaborators. Publisher, Tracker and
// Sinks are optional.
type Options struct {
	Store     store.Store
	Device    power.Device
	Link      network.Link
	Clock     network.Clock
	Sensors   telemetry.Sensors
	Sinks     []telemetry.Sink
	Fetcher   fetch.Fetcher
	Panel     display.Panel
	Renderer  *render.Renderer
	Publisher mqtt.Publisher
	Tracker   *status.Tracker

	// Period is the number of wakes per full refresh.
	Period int
	// NetTimeout bounds Link.Up and Clock.Sync.
	NetTimeout time.Duration

	Log   *zap.Logger
	NewID func() string
}

// Report describes one completed wake.
type Report struct {
	ID           string
	Start        time.Time
	End          time.Time
	Booted       bool
	Reason       logic.WakeReason
	RefreshCount int
	Action       logic.Action
	Fetched      bool
	TimeText     string
	SleepSeconds uint16
	Reading      telemetry.Reading
	Errors       []errcode.Code
	Phases       []logic.Phase
}

// Scheduler owns one device's wake cycle.
type Scheduler struct {
	opts Options
	log  *zap.Logger
}

// New creates a Scheduler. Zero Period, NetTimeout, Log and NewID fall back to
// their defaults.
func New(opts Options) *Scheduler {
	if opts.Period < 1 {
		opts.Period = logic.DefaultRefreshPeriod
	}
	if opts.NetTimeout <= 0 {
		opts.NetTimeout = DefaultNetTimeout
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Scheduler{opts: opts, log: opts.Log}
}

// wake is the per-cycle context handed to each phase.
type wake struct {
	rep      *Report
	retained *store.Retained
	log      *zap.Logger
	frame    *image.Gray
	coldBoot bool
}

func (w *wake) fail(code errcode.Code) {
	w.rep.Errors = append(w.rep.Errors, code)
}

// RunCycle performs one wake up to, but not including, the sleep itself. The
// retained block is saved before it returns.
func (s *Scheduler) RunCycle(ctx context.Context) Report {
	rep := Report{ID: s.opts.NewID(), Start: s.opts.Clock.Now()}
	w := &wake{rep: &rep, log: s.log.With(zap.String("cycle", rep.ID))}

	retained, err := s.opts.Store.Load(ctx)
	if err != nil {
		w.log.Warn("Retained store unavailable, starting cold",
			zap.String("code", string(errcode.Of(err))),
			zap.Error(err),
		)
		w.fail(errcode.Of(err))
		retained = store.Retained{}
	}
	w.retained = &retained
	if sp, ok := s.opts.Publisher.(mqtt.Spool); ok {
		sp.Resume(retained.Outbox)
	}

	phase := logic.Start(retained.Cycle.Booted)
	for {
		rep.Phases = append(rep.Phases, phase)
		w.log.Debug("Entering phase", zap.Stringer("phase", phase))

		switch phase {
		case logic.PhaseBooting:
			s.boot(ctx, w)
		case logic.PhaseDeciding:
			s.decide(w)
		case logic.PhaseFullRefresh:
			s.fullRefresh(ctx, w)
		case logic.PhasePartialRefresh:
			s.partialRefresh(w)
		}

		if phase == logic.PhaseSleeping {
			break
		}
		phase = logic.Next(phase, retained.Cycle.RefreshCount)
	}

	now := s.opts.Clock.Now()
	rep.SleepSeconds = logic.SleepSeconds(now.Second())
	rep.Booted = retained.Cycle.Booted
	retained.Cycle.SleepUntil = now.Truncate(time.Second).Add(time.Duration(rep.SleepSeconds) * time.Second)
	if sp, ok := s.opts.Publisher.(mqtt.Spool); ok {
		retained.Outbox = sp.Queued()
	}

	if err := s.opts.Store.Save(ctx, retained); err != nil {
		w.log.Warn("Failed to save retained store",
			zap.String("code", string(errcode.Of(err))),
			zap.Error(err),
		)
		w.fail(errcode.Of(err))
	}

	rep.End = s.opts.Clock.Now()
	s.track(rep, retained, w.frame)

	w.log.Info("Wake complete",
		zap.Stringer("wake", rep.Reason),
		zap.Stringer("action", rep.Action),
		zap.Int("refresh_count", rep.RefreshCount),
		zap.Bool("fetched", rep.Fetched),
		zap.Uint16("sleep_seconds", rep.SleepSeconds),
		zap.Int("errors", len(rep.Errors)),
	)
	return rep
}

// Sleep suspends the device for the report's sleep time.
func (s *Scheduler) Sleep(ctx context.Context, rep Report) error {
	s.log.Debug("Sleeping", zap.Uint16("seconds", rep.SleepSeconds))
	return s.opts.Device.DeepSleep(ctx, rep.SleepSeconds)
}

// Run alternates RunCycle and Sleep until ctx is cancelled. A failed sleep is
// logged and the next wake starts straight away.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		rep := s.RunCycle(ctx)
		if err := s.Sleep(ctx, rep); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn("Sleep failed", zap.Error(err))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// decide classifies the wake and advances the refresh counter. A wake that
// had to boot is a cold start whatever the hardware reports, since the
// counter it would advance was just lost.
func (s *Scheduler) decide(w *wake) {
	reason, code := power.Classify(s.opts.Device, w.retained.Cycle.SleepUntil, s.opts.Clock.Now(), w.log)
	if code != errcode.OK {
		w.fail(code)
	}
	if w.coldBoot && reason != logic.WakeNotSleeping {
		w.log.Debug("Ignoring wake cause after boot", zap.Stringer("wake", reason))
		reason = logic.WakeNotSleeping
	}

	count := logic.NextRefreshCount(w.retained.Cycle.RefreshCount, reason, s.opts.Period)
	w.retained.Cycle.RefreshCount = count

	w.rep.Reason = reason
	w.rep.RefreshCount = count
	w.rep.Action = logic.ActionFor(count)
}

// Shutdown publishes a retained SHUTDOWN event carrying reason. Messages that
// cannot reach the broker are saved with the retained block for the next
// process to send.
func (s *Scheduler) Shutdown(reason string) {
	if s.opts.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.NetTimeout)
	defer cancel()

	if !s.opts.Link.Up(ctx) {
		s.log.Warn("Network unavailable, queueing shutdown event")
	}
	event := mqtt.SystemEvent{
		Timestamp: s.opts.Clock.Now(),
		Event:     "SHUTDOWN",
		Reason:    reason,
		Retained:  true,
	}
	if s.opts.Tracker != nil {
		event.RawPayload = status.FormatStatusEvent(s.opts.Tracker.Snapshot(), "SHUTDOWN", reason)
	}
	if err := s.opts.Publisher.PublishSystem(event); err != nil {
		s.log.Warn("Failed to publish shutdown event", zap.Error(err))
	}
	s.linkDown()
	s.saveOutbox(ctx)
}

// saveOutbox writes the publisher's queue into the retained block.
func (s *Scheduler) saveOutbox(ctx context.Context) {
	sp, ok := s.opts.Publisher.(mqtt.Spool)
	if !ok {
		return
	}
	retained, err := s.opts.Store.Load(ctx)
	if err != nil {
		s.log.Warn("Retained store unavailable, outbox not saved", zap.Error(err))
		return
	}
	retained.Outbox = sp.Queued()
	if err := s.opts.Store.Save(ctx, retained); err != nil {
		s.log.Warn("Failed to save outbox", zap.Error(err))
	}
}

func (s *Scheduler) track(rep Report, retained store.Retained, frame *image.Gray) {
	if s.opts.Tracker == nil {
		return
	}
	s.opts.Tracker.Record(status.Cycle{
		ID:                rep.ID,
		Start:             rep.Start,
		Duration:          rep.End.Sub(rep.Start),
		Booted:            rep.Booted,
		Reason:            rep.Reason,
		RefreshCount:      rep.RefreshCount,
		Action:            rep.Action,
		Fetched:           rep.Fetched,
		TimeText:          rep.TimeText,
		SleepSeconds:      rep.SleepSeconds,
		BatteryVoltage:    rep.Reading.BatteryVoltage,
		InsideTemperature: rep.Reading.InsideTemperature,
		Errors:            rep.Errors,
		Phases:            rep.Phases,
	}, retained, frame)
	if cs, ok := s.opts.Publisher.(mqtt.ConnectionStatus); ok {
		s.opts.Tracker.SetMQTTConnected(cs.IsConnected())
	}
	s.opts.Tracker.SetNetwork(&status.NetworkInfo{
		Interface: s.opts.Link.Name(),
		Connected: s.opts.Link.Connected(),
	})
}
