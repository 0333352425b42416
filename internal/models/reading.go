package models

import (
	"fmt"
	"strings"
	"time"
)

// Reading is one sensor observation row from the input file.
type Reading struct {
	Time            time.Time `json:"time"`
	Date            time.Time `json:"date"`
	Location        string    `json:"location"` // opaque label; never compared numerically
	TempF           float64   `json:"tempf"`
	Humidity        float64   `json:"humidityi"`
	Ventilator      string    `json:"ventilator"`
	OutsideHumidity string    `json:"outsideHumidity"`
}

// Measurement names a numeric Reading column that a chart can plot.
type Measurement string

const (
	MeasurementTemperature Measurement = "tempf"
	MeasurementHumidity    Measurement = "humidityi"
)

// Measurements lists the selectable measurements in display order.
var Measurements = []Measurement{MeasurementHumidity, MeasurementTemperature}

// Label returns the human-readable name of the measurement.
func (m Measurement) Label() string {
	switch m {
	case MeasurementTemperature:
		return "temperature"
	case MeasurementHumidity:
		return "humidity"
	default:
		return string(m)
	}
}

// Value returns the reading's value for m. Unknown measurements return 0.
func (r Reading) Value(m Measurement) float64 {
	switch m {
	case MeasurementHumidity:
		return r.Humidity
	case MeasurementTemperature:
		return r.TempF
	default:
		return 0
	}
}

// ParseMeasurement accepts a column name (tempf, humidityi) or a label (temperature, humidity).
func ParseMeasurement(s string) (Measurement, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tempf", "temperature":
		return MeasurementTemperature, nil
	case "humidityi", "humidity":
		return MeasurementHumidity, nil
	}
	return "", fmt.Errorf("unknown measurement %q", s)
}
