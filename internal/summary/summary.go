// Package summary computes per-location descriptive statistics of temperature.
package summary

import (
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kjstillabower/sensor-dashboard/internal/dataset"
	"github.com/kjstillabower/sensor-dashboard/internal/models"
)

// Columns is the header of the rendered summary table.
var Columns = []string{"location", "count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// Build groups the table by location and describes the temperature column of each group.
// Rows are ordered by location label.
func Build(t *dataset.Table) []models.SummaryRow {
	keys, groups := t.GroupBy(func(r models.Reading) string { return r.Location })
	rows := make([]models.SummaryRow, 0, len(keys))
	for _, loc := range keys {
		vals := make([]float64, len(groups[loc]))
		for i, r := range groups[loc] {
			vals[i] = r.TempF
		}
		rows = append(rows, describe(loc, vals))
	}
	return rows
}

func describe(loc string, vals []float64) models.SummaryRow {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) < 2 {
		std = math.NaN()
	}
	row := models.SummaryRow{
		Location: loc,
		Count:    len(sorted),
		Mean:     mean,
		Std:      std,
		Min:      floats.Min(sorted),
		P25:      Quantile(sorted, 0.25),
		P50:      Quantile(sorted, 0.50),
		P75:      Quantile(sorted, 0.75),
		Max:      floats.Max(sorted),
	}
	row.MeanText = FormatOneDecimal(row.Mean)
	row.StdText = FormatOneDecimal(row.Std)
	row.MedianText = FormatOneDecimal(row.P50)
	return row
}

// Quantile returns the p-quantile of sorted data, interpolating linearly between
// the closest ranks. sorted must be ascending and non-empty.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// FormatOneDecimal renders v with exactly one digit after the decimal point.
// NaN, which is the std of a single reading, renders as "nan".
func FormatOneDecimal(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	s := strconv.FormatFloat(v, 'f', 1, 64)
	if s == "-0.0" {
		return "0.0"
	}
	return s
}

// FormatRaw renders v in its shortest exact form, used for the unformatted columns.
func FormatRaw(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Cells returns the display strings of one row in Columns order.
func Cells(r models.SummaryRow) []string {
	return []string{
		r.Location,
		strconv.Itoa(r.Count),
		r.MeanText,
		r.StdText,
		FormatRaw(r.Min),
		FormatRaw(r.P25),
		r.MedianText,
		FormatRaw(r.P75),
		FormatRaw(r.Max),
	}
}
