package models

import "time"

// FilterState is the set of control selections a browser session currently holds.
// It is sent with every dispatch request and never stored server-side.
type FilterState struct {
	Locations   []string    `json:"locations"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Measurement Measurement `json:"measurement"`
}

// InRange reports whether day d lies in [Start, End], comparing calendar dates only.
// A range whose start is after its end contains nothing.
func (f FilterState) InRange(d time.Time) bool {
	day := truncateDay(d)
	return !day.Before(truncateDay(f.Start)) && !day.After(truncateDay(f.End))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
