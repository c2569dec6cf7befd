package scoring

import "time"

// Warning bands for the attempt countdown. The controller forwards the band to
// the client so it can change the timer colour without redoing the math.
const (
	BandNormal   = "normal"
	BandWarning  = "warning"  // remaining <= 30% of the limit
	BandCritical = "critical" // remaining <= 10% of the limit
)

// TimerState is a snapshot of an attempt's countdown at a given instant.
type TimerState struct {
	ElapsedSeconds   int    `json:"elapsed_seconds"`
	RemainingSeconds int    `json:"remaining_seconds"`
	TimeLimitSeconds int    `json:"time_limit_seconds"`
	Band             string `json:"band"`
	Expired          bool   `json:"expired"`
}

// Countdown computes the timer state for an attempt started at start with the
// given limit. Pure function of its inputs; callers poll it on a cadence or at
// submission time. If now precedes start (clock skew between instances) the
// remaining time is clamped to the full limit, never negative.
func Countdown(now, start time.Time, timeLimitSeconds int) TimerState {
	if timeLimitSeconds < 0 {
		timeLimitSeconds = 0
	}

	elapsed := 0
	if now.After(start) {
		elapsed = int(now.Sub(start) / time.Second)
	}

	remaining := timeLimitSeconds - elapsed
	if remaining < 0 {
		remaining = 0
	}
	if remaining > timeLimitSeconds {
		remaining = timeLimitSeconds
	}

	return TimerState{
		ElapsedSeconds:   elapsed,
		RemainingSeconds: remaining,
		TimeLimitSeconds: timeLimitSeconds,
		Band:             band(remaining, timeLimitSeconds),
		Expired:          remaining == 0,
	}
}

func band(remaining, limit int) string {
	r := float64(remaining)
	l := float64(limit)
	switch {
	case r <= 0.1*l:
		return BandCritical
	case r <= 0.3*l:
		return BandWarning
	default:
		return BandNormal
	}
}
