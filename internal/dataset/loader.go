package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/sensor-dashboard/internal/models"
)

// Column names the input file must carry.
const (
	ColTime            = "_time"
	ColDate            = "date"
	ColLocation        = "location"
	ColTempF           = "tempf"
	ColHumidity        = "humidityi"
	ColVentilator      = "ventilator"
	ColOutsideHumidity = "Outside-humidity"
)

// DateLayout is the calendar-date format of the date column.
const DateLayout = "2006-01-02"

var requiredColumns = []string{
	ColTime, ColDate, ColLocation, ColTempF, ColHumidity, ColVentilator, ColOutsideHumidity,
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// ErrNoRows is returned when the file has a header but no data rows.
var ErrNoRows = errors.New("no data rows")

// ErrNotFinite is returned for a NaN or infinite measurement.
var ErrNotFinite = errors.New("value is not finite")

// Load opens path and parses it with Parse.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}

// Parse reads CSV readings from r. Any malformed row fails the whole load;
// there is no partial recovery.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read header: %w", ErrNoRows)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, name)
		}
	}

	var readings []models.Reading
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := cr.FieldPos(0)
		rd, err := parseRow(row, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		readings = append(readings, rd)
	}
	if len(readings) == 0 {
		return nil, ErrNoRows
	}
	return newTable(readings), nil
}

func parseRow(row []string, idx map[string]int) (models.Reading, error) {
	field := func(name string) string { return strings.TrimSpace(row[idx[name]]) }

	ts, err := parseTime(field(ColTime))
	if err != nil {
		return models.Reading{}, err
	}
	date, err := time.Parse(DateLayout, field(ColDate))
	if err != nil {
		return models.Reading{}, fmt.Errorf("parse %s: %w", ColDate, err)
	}
	tempF, err := parseFinite(ColTempF, field(ColTempF))
	if err != nil {
		return models.Reading{}, err
	}
	humidity, err := parseFinite(ColHumidity, field(ColHumidity))
	if err != nil {
		return models.Reading{}, err
	}
	loc := field(ColLocation)
	if loc == "" {
		return models.Reading{}, fmt.Errorf("empty %s", ColLocation)
	}
	return models.Reading{
		Time:            ts,
		Date:            date,
		Location:        loc,
		TempF:           tempF,
		Humidity:        humidity,
		Ventilator:      field(ColVentilator),
		OutsideHumidity: field(ColOutsideHumidity),
	}, nil
}

// parseFinite parses a measurement, rejecting NaN and the infinities that
// strconv accepts.
func parseFinite(col, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", col, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("parse %s: %w: %q", col, ErrNotFinite, s)
	}
	return v, nil
}

// parseTime accepts the timestamp shapes the sensor exporter has produced.
// Values without an offset are taken as UTC.
func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse %s: unrecognised timestamp %q", ColTime, s)
}
