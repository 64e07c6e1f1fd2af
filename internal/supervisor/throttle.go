package supervisor

import (
	"fmt"
	"time"
)

// RestartState tracks restart attempts for one agent within the rolling
// window. It is created when the agent is first supervised and reset,
// never destroyed, on window rollover.
type RestartState struct {
	RestartCount int       `json:"restart_count"`
	WindowStart  time.Time `json:"window_start"`
	LastRestart  time.Time `json:"last_restart"`
}

// Throttle is the double restart guard: a burst guard (minimum interval
// between consecutive restarts) and a budget guard (maximum restarts
// inside a rolling window). The two are independent checks.
type Throttle struct {
	Limit       int
	Window      time.Duration
	MinInterval time.Duration
}

// Rollover resets the restart budget if the window has elapsed.
// Returns true if a reset happened.
func (t Throttle) Rollover(rs *RestartState, now time.Time) bool {
	if rs.WindowStart.IsZero() || now.Sub(rs.WindowStart) <= t.Window {
		return false
	}
	rs.RestartCount = 0
	rs.WindowStart = now
	return true
}

// Allow reports whether a restart may proceed now. It applies window
// rollover first, then the burst guard, then the budget guard. The
// returned reason is empty when allowed.
func (t Throttle) Allow(rs *RestartState, now time.Time) (bool, string) {
	t.Rollover(rs, now)

	if !rs.LastRestart.IsZero() {
		if since := now.Sub(rs.LastRestart); since < t.MinInterval {
			return false, fmt.Sprintf("only %s since last restart (minimum %s)",
				since.Round(time.Second), t.MinInterval)
		}
	}

	if rs.RestartCount >= t.Limit {
		return false, fmt.Sprintf("restart budget exhausted: %d restarts inside %s window",
			rs.RestartCount, t.Window)
	}

	return true, ""
}

// Record counts a granted restart against the budget.
func (rs *RestartState) Record(now time.Time) {
	if rs.WindowStart.IsZero() {
		rs.WindowStart = now
	}
	rs.RestartCount++
	rs.LastRestart = now
}

// Reset clears the restart history. Used by manual intervention.
func (rs *RestartState) Reset() {
	rs.RestartCount = 0
	rs.WindowStart = time.Time{}
	rs.LastRestart = time.Time{}
}
