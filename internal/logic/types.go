// Package logic contains the pure wake and refresh policy for the dashboard.
// This package has NO external dependencies (no GPIO, display, network, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// DefaultRefreshPeriod is how many wakes make up one refresh cycle: one full
// refresh followed by DefaultRefreshPeriod-1 partial refreshes.
const DefaultRefreshPeriod = 10

// WakeReason is why execution resumed.
type WakeReason int

const (
	WakeNotSleeping WakeReason = iota // first boot or reset
	WakeAlarm                         // RTC timer
	WakeButton                        // manual button press
)

func (r WakeReason) String() string {
	switch r {
	case WakeAlarm:
		return "ALARM"
	case WakeButton:
		return "BUTTON"
	default:
		return "NOT_SLEEPING"
	}
}

// Action is the kind of display refresh a wake performs.
type Action int

const (
	ActionFull Action = iota
	ActionPartial
)

func (a Action) String() string {
	if a == ActionPartial {
		return "PARTIAL"
	}
	return "FULL"
}

// Phase is a step of the per-wake state machine.
type Phase int

const (
	PhaseBooting Phase = iota
	PhaseDeciding
	PhaseFullRefresh
	PhasePartialRefresh
	PhaseSleeping
)

func (p Phase) String() string {
	switch p {
	case PhaseBooting:
		return "BOOTING"
	case PhaseDeciding:
		return "DECIDING"
	case PhaseFullRefresh:
		return "FULL_REFRESH"
	case PhasePartialRefresh:
		return "PARTIAL_REFRESH"
	default:
		return "SLEEPING"
	}
}

// ClockText formats t as the "HH:MM" text shown in the time region.
func ClockText(t time.Time) string {
	return t.Format("15:04")
}
