package telemetry

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sweeney/inkdash/internal/errcode"
)

// Default sysfs locations.
const (
	DefaultSupplyRoot  = "/sys/class/power_supply"
	DefaultThermalPath = "/sys/class/thermal/thermal_zone0/temp"
)

// SysfsSensors reads the battery from a power_supply node and the board
// temperature from a thermal zone. Storage is the directory the battery log
// lives in.
type SysfsSensors struct {
	SupplyRoot  string
	Supply      string
	ThermalPath string
	StorageDir  string
}

// NewSysfsSensors creates sensors for the named battery supply. storageDir
// may be empty when no battery log is configured.
func NewSysfsSensors(supply, storageDir string) *SysfsSensors {
	return &SysfsSensors{
		SupplyRoot:  DefaultSupplyRoot,
		Supply:      supply,
		ThermalPath: DefaultThermalPath,
		StorageDir:  storageDir,
	}
}

// BatteryVoltage implements Sensors. voltage_now is in microvolts.
func (s *SysfsSensors) BatteryVoltage() (float64, error) {
	uv, err := readInt(filepath.Join(s.SupplyRoot, s.Supply, "voltage_now"))
	if err != nil {
		return 0, err
	}
	return float64(uv) / 1e6, nil
}

// InsideTemperature implements Sensors. The thermal zone reports
// millidegrees; the result is rounded and clamped to int8.
func (s *SysfsSensors) InsideTemperature() (int8, error) {
	mc, err := readInt(s.ThermalPath)
	if err != nil {
		return 0, err
	}
	c := math.Round(float64(mc) / 1000)
	return int8(max(math.MinInt8, min(math.MaxInt8, c))), nil
}

// StorageOK implements Sensors by creating and removing a file in the
// storage directory.
func (s *SysfsSensors) StorageOK() bool {
	if s.StorageDir == "" {
		return false
	}
	f, err := os.CreateTemp(s.StorageDir, ".inkdash-*")
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(f.Name())
	return true
}

func readInt(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errcode.New(errcode.HardwareQueryFailure, "telemetry", err)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, errcode.New(errcode.HardwareQueryFailure, "telemetry", fmt.Errorf("parse %s: %w", path, err))
	}
	return n, nil
}
