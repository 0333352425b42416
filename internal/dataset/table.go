package dataset

import (
	"sort"
	"time"

	"github.com/kjstillabower/sensor-dashboard/internal/models"
)

// Table is the immutable, in-memory reading set. It is built once by Parse
// and shared by reference with every chart handler.
type Table struct {
	readings  []models.Reading
	locations []string
	minDate   time.Time
	maxDate   time.Time
}

func newTable(readings []models.Reading) *Table {
	t := &Table{readings: readings}
	seen := make(map[string]struct{})
	for i, r := range readings {
		if _, ok := seen[r.Location]; !ok {
			seen[r.Location] = struct{}{}
			t.locations = append(t.locations, r.Location)
		}
		if i == 0 || r.Date.Before(t.minDate) {
			t.minDate = r.Date
		}
		if i == 0 || r.Date.After(t.maxDate) {
			t.maxDate = r.Date
		}
	}
	sort.Strings(t.locations)
	return t
}

// NewTable builds a Table from already-parsed readings. The slice is copied.
func NewTable(readings []models.Reading) *Table {
	return newTable(append([]models.Reading(nil), readings...))
}

// Len returns the number of readings.
func (t *Table) Len() int { return len(t.readings) }

// Readings returns a copy of all readings in file order.
func (t *Table) Readings() []models.Reading {
	return append([]models.Reading(nil), t.readings...)
}

// Locations returns the distinct location labels in string order.
func (t *Table) Locations() []string {
	return append([]string(nil), t.locations...)
}

// DateBounds returns the earliest and latest calendar dates in the table.
func (t *Table) DateBounds() (min, max time.Time) {
	return t.minDate, t.maxDate
}

// Filter returns the readings whose date lies in [start, end] and whose location
// is in locs. An empty locs selects nothing.
func (t *Table) Filter(locs []string, start, end time.Time) []models.Reading {
	if len(locs) == 0 {
		return nil
	}
	want := make(map[string]struct{}, len(locs))
	for _, l := range locs {
		want[l] = struct{}{}
	}
	f := models.FilterState{Start: start, End: end}
	var out []models.Reading
	for _, r := range t.readings {
		if _, ok := want[r.Location]; !ok {
			continue
		}
		if f.InRange(r.Date) {
			out = append(out, r)
		}
	}
	return out
}

// Values returns measurement m for every reading, in file order.
func (t *Table) Values(m models.Measurement) []float64 {
	out := make([]float64, len(t.readings))
	for i, r := range t.readings {
		out[i] = r.Value(m)
	}
	return out
}

// GroupBy partitions the readings by key, preserving file order inside each group.
// The returned keys are sorted.
func (t *Table) GroupBy(key func(models.Reading) string) ([]string, map[string][]models.Reading) {
	groups := make(map[string][]models.Reading)
	for _, r := range t.readings {
		k := key(r)
		groups[k] = append(groups[k], r)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, groups
}
