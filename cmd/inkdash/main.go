// Command inkdash drives a battery-powered e-paper dashboard: it wakes once a
// minute, refreshes the clock, pulls fresh data every few wakes and sleeps.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/inkdash/internal/config"
	"github.com/sweeney/inkdash/internal/display"
	"github.com/sweeney/inkdash/internal/fetch"
	"github.com/sweeney/inkdash/internal/logging"
	"github.com/sweeney/inkdash/internal/mqtt"
	"github.com/sweeney/inkdash/internal/network"
	"github.com/sweeney/inkdash/internal/power"
	"github.com/sweeney/inkdash/internal/render"
	"github.com/sweeney/inkdash/internal/scheduler"
	"github.com/sweeney/inkdash/internal/status"
	"github.com/sweeney/inkdash/internal/store"
	"github.com/sweeney/inkdash/internal/telemetry"
	"github.com/sweeney/inkdash/internal/web"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "inkdash: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "inkdash")
	if err != nil {
		fmt.Fprintf(os.Stderr, "inkdash: init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := watchSignals(context.Background(), sigCh)
	defer cancel()

	if err := run(ctx, cfg, logger, os.Stdout); err != nil {
		logger.Fatal("Fatal error", zap.Error(err))
	}
}

// run opens the hardware and services named by cfg and hands them to serve.
func run(ctx context.Context, cfg config.Config, log *zap.Logger, out io.Writer) error {
	st, closeStore := openStore(cfg)
	defer closeStore()

	if cfg.PrintState {
		return printState(ctx, st, out)
	}

	device := openDevice(cfg, log)
	defer device.Close()

	panel := openPanel(cfg, log)
	defer panel.Close()

	sinks, closeSinks := openSinks(ctx, cfg, log)
	defer closeSinks()

	link := network.NewSysfsLink(cfg.NetIface, log)

	var publisher mqtt.Publisher
	if cfg.Broker != "" {
		p := mqtt.NewRealPublisher(cfg.Broker, link.Connected, log)
		defer p.Close()
		publisher = p
	}

	return serve(ctx, cfg, scheduler.Options{
		Store:     st,
		Device:    device,
		Link:      link,
		Clock:     network.NewSystemClock(),
		Sensors:   telemetry.NewSysfsSensors(cfg.BatterySupply, storageDir(cfg)),
		Sinks:     sinks,
		Fetcher:   fetch.NewHTTPFetcher(cfg.ServerURL, cfg.FetchTimeout, log),
		Panel:     panel,
		Publisher: publisher,
		Log:       log,
	})
}

// serve runs the wake loop, or a single wake with cfg.Once, over opts. When
// ctx is cancelled a SHUTDOWN event is published before it returns.
func serve(ctx context.Context, cfg config.Config, opts scheduler.Options) error {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
		opts.Log = log
	}

	opts.Period = cfg.RefreshPeriod
	opts.Renderer = render.New(opts.Panel.Bounds())
	opts.Tracker = status.NewTracker(time.Now(), status.Config{
		ServerURL:     cfg.ServerURL,
		Broker:        cfg.Broker,
		HTTPAddr:      cfg.HTTPAddr,
		Store:         storeName(cfg),
		RefreshPeriod: cfg.RefreshPeriod,
		Panel:         cfg.Panel,
	})

	if cfg.HTTPAddr != "" && !cfg.Once {
		srv := web.New(cfg.HTTPAddr, opts.Tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("HTTP server error", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("HTTP status server listening", zap.String("addr", cfg.HTTPAddr))
	}

	sched := scheduler.New(opts)

	log.Info("Started",
		zap.String("server", cfg.ServerURL),
		zap.Int("refresh_period", cfg.RefreshPeriod),
		zap.String("store", storeName(cfg)),
		zap.String("panel", cfg.Panel),
		zap.Bool("once", cfg.Once),
	)

	var err error
	if cfg.Once {
		rep := sched.RunCycle(ctx)
		if serr := sched.Sleep(ctx, rep); serr != nil && ctx.Err() == nil {
			err = fmt.Errorf("sleep: %w", serr)
		}
	} else {
		err = sched.Run(ctx)
	}

	if ctx.Err() != nil {
		reason := shutdownReason(ctx)
		log.Info("Shutting down", zap.String("reason", reason))
		sched.Shutdown(reason)
	}
	return err
}

// shutdownSignal is the cancel cause recorded by watchSignals.
type shutdownSignal struct {
	name string
}

func (s *shutdownSignal) Error() string {
	return "received " + s.name
}

// watchSignals returns a context cancelled by the first signal on sig. The
// signal's name can be read back with shutdownReason.
func watchSignals(parent context.Context, sig <-chan os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	go func() {
		select {
		case s := <-sig:
			cancel(&shutdownSignal{name: signalName(s)})
		case <-ctx.Done():
		}
	}()
	return ctx, func() { cancel(nil) }
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

// shutdownReason names the signal that cancelled ctx, or UNKNOWN.
func shutdownReason(ctx context.Context) string {
	var sig *shutdownSignal
	if errors.As(context.Cause(ctx), &sig) {
		return sig.name
	}
	return "UNKNOWN"
}

// openStore picks Redis when an address is configured and the file store
// otherwise.
func openStore(cfg config.Config) (store.Store, func()) {
	if cfg.RedisAddr != "" {
		client := store.NewRedisClient(cfg.RedisAddr)
		return store.NewRedisStore(client, store.DefaultRedisKey, cfg.RefreshPeriod), func() { client.Close() }
	}
	return store.NewFileStore(cfg.StorePath, cfg.RefreshPeriod), func() {}
}

func storeName(cfg config.Config) string {
	if cfg.RedisAddr != "" {
		return "redis://" + cfg.RedisAddr
	}
	return cfg.StorePath
}

// openDevice falls back to a plain timer when the button line cannot be
// claimed. The first wake of each process then reads as NotSleeping and is
// classified from the sleep deadline the previous wake saved.
func openDevice(cfg config.Config, log *zap.Logger) power.Device {
	dev, err := power.NewRealDevice(cfg.ButtonPin, log)
	if err != nil {
		log.Warn("Wake button not available, using timer",
			zap.Int("pin", cfg.ButtonPin),
			zap.Error(err),
		)
		return power.NewTimerDevice()
	}
	return dev
}

// openPanel falls back to an in-memory panel when the hardware cannot be
// opened, so the frame is still served over HTTP.
func openPanel(cfg config.Config, log *zap.Logger) display.Panel {
	if cfg.Panel == "none" {
		return display.NewMemoryPanel(display.DefaultMemoryBounds)
	}
	panel, err := display.NewRealPanel(log)
	if err != nil {
		log.Warn("Display not available, rendering to memory", zap.Error(err))
		return display.NewMemoryPanel(display.DefaultMemoryBounds)
	}
	return panel
}

func openSinks(ctx context.Context, cfg config.Config, log *zap.Logger) ([]telemetry.Sink, func()) {
	var sinks []telemetry.Sink
	closers := []func(){}

	if cfg.BatteryLog != "" {
		sinks = append(sinks, telemetry.NewBatteryLog(cfg.BatteryLog))
	}
	if cfg.PostgresURL != "" {
		pg, err := telemetry.NewPGSink(ctx, cfg.PostgresURL)
		if err != nil {
			log.Warn("Postgres telemetry disabled", zap.Error(err))
		} else {
			sinks = append(sinks, pg)
			closers = append(closers, pg.Close)
		}
	}

	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}
}

// storageDir is checked for the "SD card available" row.
func storageDir(cfg config.Config) string {
	if cfg.BatteryLog != "" {
		return filepath.Dir(cfg.BatteryLog)
	}
	return ""
}

func printState(ctx context.Context, st store.Store, out io.Writer) error {
	r, err := st.Load(ctx)
	if err != nil {
		fmt.Fprintf(out, "No retained block: %v\n", err)
		return nil
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal retained block: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}
