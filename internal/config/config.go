// Package config merges .env, environment variables and command-line flags.
// Flags win over the environment, which wins over the defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sweeney/inkdash/internal/logic"
)

const (
	defaultServerURL     = "http://192.168.1.17"
	defaultFetchTimeout  = 10 * time.Second
	defaultStorePath     = "/var/lib/inkdash/retained.json"
	defaultButtonPin     = 5
	defaultNetIface      = "wlan0"
	defaultBatterySupply = "BAT0"
	defaultPanel         = "waveshare"
)

// Config holds runtime configuration for the dashboard.
type Config struct {
	ServerURL     string
	RefreshPeriod int
	FetchTimeout  time.Duration
	StorePath     string
	RedisAddr     string
	BatteryLog    string
	PostgresURL   string
	Broker        string
	HTTPAddr      string
	ButtonPin     int
	NetIface      string
	BatterySupply string
	Panel         string
	LogLevel      string
	LogFormat     string
	Once          bool
	PrintState    bool
}

// Load reads configuration from .env (optional), the environment and args
// (without the program name). Usage goes to stderr; for -h the returned
// error matches flag.ErrHelp.
func Load(args []string) (Config, error) {
	return load(args, os.Stderr)
}

func load(args []string, out io.Writer) (Config, error) {
	_ = godotenv.Load(".env")

	cfg, err := fromEnv()
	if err != nil {
		return cfg, err
	}

	fs := flag.NewFlagSet("inkdash", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Dashboard server URL")
	fs.IntVar(&cfg.RefreshPeriod, "refresh-period", cfg.RefreshPeriod, "Wakes per full refresh")
	fs.DurationVar(&cfg.FetchTimeout, "fetch-timeout", cfg.FetchTimeout, "Timeout for the status fetch")
	fs.StringVar(&cfg.StorePath, "store", cfg.StorePath, "Retained store file")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address for the retained store (empty uses the file store)")
	fs.StringVar(&cfg.BatteryLog, "battery-log", cfg.BatteryLog, "Battery log file (empty to disable)")
	fs.StringVar(&cfg.PostgresURL, "postgres", cfg.PostgresURL, "Postgres URL for telemetry history (empty to disable)")
	fs.StringVar(&cfg.Broker, "broker", cfg.Broker, "MQTT broker address (empty to disable)")
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP status address (empty to disable)")
	fs.IntVar(&cfg.ButtonPin, "pin-button", cfg.ButtonPin, "BCM pin number for the wake button")
	fs.StringVar(&cfg.NetIface, "iface", cfg.NetIface, "Network interface to wait for")
	fs.StringVar(&cfg.BatterySupply, "battery", cfg.BatterySupply, "power_supply name of the battery")
	fs.StringVar(&cfg.Panel, "panel", cfg.Panel, `Display panel ("waveshare" or "none")`)
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format ("json" or "console")`)
	fs.BoolVar(&cfg.Once, "once", false, "Run a single wake cycle and exit")
	fs.BoolVar(&cfg.PrintState, "print-state", false, "Print the retained store and exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return cfg, err
		}
		return cfg, fmt.Errorf("parse flags: %w", err)
	}

	return cfg, cfg.validate()
}

func fromEnv() (Config, error) {
	cfg := Config{
		ServerURL:     envOr("INKDASH_SERVER_URL", defaultServerURL),
		RefreshPeriod: logic.DefaultRefreshPeriod,
		FetchTimeout:  defaultFetchTimeout,
		StorePath:     envOr("INKDASH_STORE", defaultStorePath),
		RedisAddr:     env("INKDASH_REDIS_ADDR"),
		BatteryLog:    env("INKDASH_BATTERY_LOG"),
		PostgresURL:   env("INKDASH_POSTGRES_URL"),
		Broker:        env("INKDASH_MQTT_BROKER"),
		HTTPAddr:      env("INKDASH_HTTP_ADDR"),
		ButtonPin:     defaultButtonPin,
		NetIface:      envOr("INKDASH_NET_IFACE", defaultNetIface),
		BatterySupply: envOr("INKDASH_BATTERY_SUPPLY", defaultBatterySupply),
		Panel:         envOr("INKDASH_PANEL", defaultPanel),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		LogFormat:     envOr("LOG_FORMAT", "json"),
	}

	if v := env("INKDASH_REFRESH_PERIOD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid INKDASH_REFRESH_PERIOD: %w", err)
		}
		cfg.RefreshPeriod = n
	}

	if v := env("INKDASH_FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid INKDASH_FETCH_TIMEOUT: %w", err)
		}
		cfg.FetchTimeout = d
	}

	if v := env("INKDASH_BUTTON_PIN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid INKDASH_BUTTON_PIN: %w", err)
		}
		cfg.ButtonPin = n
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.RefreshPeriod < 1 {
		return fmt.Errorf("invalid refresh period %d: must be at least 1", c.RefreshPeriod)
	}
	if c.ServerURL == "" {
		return errors.New("server URL is required")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("invalid fetch timeout %v", c.FetchTimeout)
	}
	switch c.Panel {
	case "waveshare", "none":
	default:
		return fmt.Errorf("unknown panel %q", c.Panel)
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envOr(key, def string) string {
	if v := env(key); v != "" {
		return v
	}
	return def
}
