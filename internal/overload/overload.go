package overload

import (
	"time"

	"github.com/kjstillabower/sensor-dashboard/internal/traffic"
)

// RecordDenial records a rate-limit denial (429). Call from middleware when returning 429.
func RecordDenial() {
	traffic.RecordDenied()
}

// RequestCount returns the number of outcomes (success + error + denied) within the window.
func RequestCount(window time.Duration) int {
	return traffic.RequestCount(window)
}

// DenialCount returns the number of denials within the window.
func DenialCount(window time.Duration) int {
	return traffic.DenialCount(window)
}

// IsOverloaded reports whether traffic in window exceeds thresholdPct percent
// of what the limiter admits (rps * window).
func IsOverloaded(window time.Duration, rps float64, thresholdPct int) bool {
	if window <= 0 || rps <= 0 || thresholdPct <= 0 {
		return false
	}
	limit := rps * window.Seconds() * float64(thresholdPct) / 100
	return float64(RequestCount(window)) > limit
}

// Reset clears all recorded data. For tests only.
func Reset() {
	traffic.Reset()
}
