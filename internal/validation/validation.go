package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kjstillabower/sensor-dashboard/internal/models"
)

// ErrLocationEmpty is returned when a selected location label is empty after trim.
var ErrLocationEmpty = errors.New("location label is empty")

// ErrUnknownLocation is returned when a selected label is not a known location.
var ErrUnknownLocation = errors.New("unknown location")

// ErrInvalidDate is returned when a date control value is not a calendar date.
var ErrInvalidDate = errors.New("invalid date")

// ErrUnknownMeasurement is returned when the y-axis value names no known measurement.
var ErrUnknownMeasurement = errors.New("unknown measurement")

// ValidateLocations trims each checklist value and drops duplicates while keeping
// order. Every label must be one of known; labels are otherwise free-form, so
// "room.1" or "Büro 2" pass when the data has them.
// An empty selection is valid and returns an empty, non-nil slice.
func ValidateLocations(values, known []string) ([]string, error) {
	allowed := make(map[string]struct{}, len(known))
	for _, k := range known {
		allowed[k] = struct{}{}
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, ErrLocationEmpty
		}
		if _, ok := allowed[s]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLocation, s)
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// ParseDate parses a date-picker value. Both "2006-01-02" and a full
// "2006-01-02T15:04:05" timestamp are accepted; only the calendar date is kept.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len("2006-01-02") {
		if s[10] != 'T' && s[10] != ' ' {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		s = s[:10]
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// ValidateMeasurement maps a radio value onto a known measurement.
func ValidateMeasurement(s string) (models.Measurement, error) {
	m, err := models.ParseMeasurement(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownMeasurement, s)
	}
	return m, nil
}
