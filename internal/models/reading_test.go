package models

import (
	"testing"
	"time"
)

func TestParseMeasurement(t *testing.T) {
	tests := []struct {
		in      string
		want    Measurement
		wantErr bool
	}{
		{"tempf", MeasurementTemperature, false},
		{"Temperature", MeasurementTemperature, false},
		{" humidityi ", MeasurementHumidity, false},
		{"humidity", MeasurementHumidity, false},
		{"pressure", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMeasurement(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMeasurement(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMeasurement(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReading_Value(t *testing.T) {
	r := Reading{TempF: 71.5, Humidity: 40}
	if got := r.Value(MeasurementTemperature); got != 71.5 {
		t.Errorf("Value(tempf) = %v, want 71.5", got)
	}
	if got := r.Value(MeasurementHumidity); got != 40 {
		t.Errorf("Value(humidityi) = %v, want 40", got)
	}
}

func TestFilterState_InRange(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2023, 1, d, 0, 0, 0, 0, time.UTC) }
	f := FilterState{Start: day(2), End: day(3)}

	tests := []struct {
		d    time.Time
		want bool
	}{
		{day(1), false},
		{day(2), true},
		{day(3).Add(23 * time.Hour), true},
		{day(4), false},
	}
	for _, tt := range tests {
		if got := f.InRange(tt.d); got != tt.want {
			t.Errorf("InRange(%v) = %v, want %v", tt.d, got, tt.want)
		}
	}

	inverted := FilterState{Start: day(3), End: day(2)}
	if inverted.InRange(day(2)) || inverted.InRange(day(3)) {
		t.Error("InRange() = true for inverted range, want false")
	}
}
