package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/kjstillabower/sensor-dashboard/internal/models"
)

// TestValidateLocations verifies trimming, de-duplication and membership in the known labels.
func TestValidateLocations(t *testing.T) {
	known := []string{"1", "2", "3", "4", "room.1", "Büro 2", "<b>"}
	tests := []struct {
		name    string
		in      []string
		want    []string
		wantErr error
	}{
		{"all four", []string{"1", "2", "3", "4"}, []string{"1", "2", "3", "4"}, nil},
		{"trimmed", []string{" 2 "}, []string{"2"}, nil},
		{"duplicates dropped", []string{"2", "1", "2"}, []string{"2", "1"}, nil},
		{"punctuated labels", []string{"room.1", "Büro 2"}, []string{"room.1", "Büro 2"}, nil},
		{"markup that is a real label", []string{"<b>"}, []string{"<b>"}, nil},
		{"empty selection", nil, []string{}, nil},
		{"blank label", []string{"1", "  "}, nil, ErrLocationEmpty},
		{"not loaded", []string{"9"}, nil, ErrUnknownLocation},
		{"comma joined", []string{"1,2"}, nil, ErrUnknownLocation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateLocations(tt.in, known)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ValidateLocations() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateLocations() error = %v", err)
			}
			if got == nil || len(got) != len(tt.want) {
				t.Fatalf("ValidateLocations() = %#v, want %#v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ValidateLocations()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2023-01-02", " 2023-01-02 ", "2023-01-02T00:00:00", "2023-01-02T13:45:00", "2023-01-02 09:00:00"} {
		got, err := ParseDate(in)
		if err != nil {
			t.Errorf("ParseDate(%q) error = %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v, want %v", in, got, want)
		}
	}
	for _, in := range []string{"", "01/02/2023", "2023-13-01", "2023-01-02X00", "yesterday"} {
		if _, err := ParseDate(in); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ParseDate(%q) error = %v, want ErrInvalidDate", in, err)
		}
	}
}

func TestValidateMeasurement(t *testing.T) {
	m, err := ValidateMeasurement("humidity")
	if err != nil || m != models.MeasurementHumidity {
		t.Errorf("ValidateMeasurement(humidity) = %q, %v", m, err)
	}
	if _, err := ValidateMeasurement("pressure"); !errors.Is(err, ErrUnknownMeasurement) {
		t.Errorf("ValidateMeasurement(pressure) error = %v, want ErrUnknownMeasurement", err)
	}
}
