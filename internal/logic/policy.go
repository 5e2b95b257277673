package logic

// NextRefreshCount applies the wake policy to the retained refresh counter.
// Alarm wakes advance the counter and wrap at period; button presses and cold
// starts reset it so the wake performs a full refresh. A counter outside
// [0, period) is treated as wrapped. Periods below 1 behave as 1, which makes
// every wake a full refresh.
func NextRefreshCount(count int, reason WakeReason, period int) int {
	if period < 1 {
		period = 1
	}
	switch reason {
	case WakeAlarm:
		count = (count%period + period) % period
		count++
		if count == period {
			count = 0
		}
		return count
	default:
		return 0
	}
}

// ActionFor returns the refresh action for a counter value. Only a zero
// counter triggers a full refresh.
func ActionFor(count int) Action {
	if count == 0 {
		return ActionFull
	}
	return ActionPartial
}

// Start returns the phase a wake enters. Booting only runs until the
// retained booted flag is set.
func Start(booted bool) Phase {
	if booted {
		return PhaseDeciding
	}
	return PhaseBooting
}

// Next returns the phase following p. count is the refresh counter as
// updated by the Deciding phase. Every path ends in Sleeping, and Sleeping
// has no successor within a wake.
func Next(p Phase, count int) Phase {
	switch p {
	case PhaseBooting:
		return PhaseDeciding
	case PhaseDeciding:
		if ActionFor(count) == ActionFull {
			return PhaseFullRefresh
		}
		return PhasePartialRefresh
	default:
		return PhaseSleeping
	}
}

// SleepSeconds returns how long to sleep so the next wake lands on the top of
// the next minute. A wake at second 0 sleeps a whole minute rather than zero.
// Seconds outside [0, 59] are clamped.
func SleepSeconds(second int) uint16 {
	if second < 0 {
		second = 0
	}
	if second > 59 {
		second = 59
	}
	return uint16(60 - second)
}
