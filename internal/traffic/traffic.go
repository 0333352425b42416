package traffic

import (
	"sync"
	"time"
)

// retention bounds how far back any window can look.
const retention = 5 * time.Minute

var defaultTracker = NewTracker(time.Now)

// RecordSuccess records a chart callback that produced a figure.
func RecordSuccess() { defaultTracker.RecordSuccess() }

// RecordError records a chart callback that failed, panicked or was rejected by its breaker.
func RecordError() { defaultTracker.RecordError() }

// RecordDenied records a rate-limit denial (429).
func RecordDenied() { defaultTracker.RecordDenied() }

// RequestCount returns outcomes (success + error + denied) within the window.
func RequestCount(window time.Duration) int { return defaultTracker.RequestCount(window) }

// DenialCount returns denials within the window.
func DenialCount(window time.Duration) int { return defaultTracker.DenialCount(window) }

// ErrorRate returns (errorCount, totalCount) within the window. Denials are excluded from total.
func ErrorRate(window time.Duration) (errors, total int) { return defaultTracker.ErrorRate(window) }

// Reset clears all recorded outcomes. For tests only.
func Reset() { defaultTracker.Reset() }

type outcome uint8

const (
	success outcome = iota
	failure
	denied
)

type event struct {
	at   time.Time
	kind outcome
}

// Tracker keeps a time-ordered log of outcomes. It is the single source for
// the overload (request and denial counts) and degraded (error rate) checks.
type Tracker struct {
	mu     sync.Mutex
	now    func() time.Time
	events []event
}

// NewTracker returns a Tracker reading time from now.
func NewTracker(now func() time.Time) *Tracker {
	return &Tracker{now: now}
}

func (t *Tracker) RecordSuccess() { t.record(success) }
func (t *Tracker) RecordError()   { t.record(failure) }
func (t *Tracker) RecordDenied()  { t.record(denied) }

func (t *Tracker) record(kind outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.events = append(t.events, event{at: now, kind: kind})
	t.pruneLocked(now)
}

// counts returns per-outcome counts for events not older than window.
func (t *Tracker) counts(window time.Duration) [3]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var c [3]int
	cutoff := t.now().Add(-window)
	for i := len(t.events) - 1; i >= 0 && !t.events[i].at.Before(cutoff); i-- {
		c[t.events[i].kind]++
	}
	return c
}

func (t *Tracker) RequestCount(window time.Duration) int {
	c := t.counts(window)
	return c[success] + c[failure] + c[denied]
}

func (t *Tracker) DenialCount(window time.Duration) int {
	return t.counts(window)[denied]
}

func (t *Tracker) ErrorRate(window time.Duration) (errors, total int) {
	c := t.counts(window)
	return c[failure], c[success] + c[failure]
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
}

// pruneLocked drops events older than retention. Must be called with mu held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	i := 0
	for ; i < len(t.events) && t.events[i].at.Before(cutoff); i++ {
	}
	if i > 0 {
		t.events = append(t.events[:0], t.events[i:]...)
	}
}
