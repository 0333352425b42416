package degraded

import (
	"time"

	"github.com/kjstillabower/sensor-dashboard/internal/traffic"
)

// RecordSuccess records a chart callback that produced its figure.
func RecordSuccess() {
	traffic.RecordSuccess()
}

// RecordError records a chart callback that failed or was short-circuited.
func RecordError() {
	traffic.RecordError()
}

// ErrorRate returns (errorCount, totalCount) within the window. totalCount = successes + errors.
func ErrorRate(window time.Duration) (errors, total int) {
	return traffic.ErrorRate(window)
}

// IsDegraded reports whether the callback error share in window reached errorPct.
// No callbacks in the window means not degraded.
func IsDegraded(window time.Duration, errorPct int) bool {
	if window <= 0 || errorPct <= 0 {
		return false
	}
	errs, total := ErrorRate(window)
	if total == 0 {
		return false
	}
	return float64(errs)*100/float64(total) >= float64(errorPct)
}

// Reset clears all recorded data. For tests only.
func Reset() {
	traffic.Reset()
}
