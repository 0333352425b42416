package figure

import (
	"sort"

	"github.com/kjstillabower/sensor-dashboard/internal/models"
	"github.com/kjstillabower/sensor-dashboard/internal/summary"
)

// GroupKey extracts the sub-colour category of a reading.
type GroupKey func(models.Reading) string

// BoxFigure plots measurement m grouped by location on x, with one trace per distinct
// value of group. locations fixes the x category order.
func BoxFigure(rows []models.Reading, m models.Measurement, group GroupKey, groupTitle string, locations []string) Figure {
	layout := baseLayout()
	layout.XAxis = Axis{
		Title:         &Text{Text: "location"},
		Type:          "category",
		CategoryOrder: "array",
		CategoryArray: locations,
	}
	layout.YAxis = Axis{Title: &Text{Text: string(m)}}
	layout.Legend = &Legend{Title: &Text{Text: groupTitle}}
	layout.BoxMode = "group"

	byGroup := make(map[string][]models.Reading)
	for _, r := range rows {
		k := group(r)
		byGroup[k] = append(byGroup[k], r)
	}
	keys := make([]string, 0, len(byGroup))
	for k := range byGroup {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	traces := make([]Trace, 0, len(keys))
	for i, k := range keys {
		pts := byGroup[k]
		xs := make([]string, len(pts))
		ys := make([]float64, len(pts))
		for j, p := range pts {
			xs[j] = p.Location
			ys[j] = p.Value(m)
		}
		color := Palette[i%len(Palette)]
		traces = append(traces, Trace{
			Type:        TypeBox,
			Name:        k,
			LegendGroup: k,
			OffsetGroup: k,
			BoxPoints:   "outliers",
			X:           Values{Strings: xs},
			Y:           ys,
			Marker:      &Marker{Color: color},
		})
	}
	return Figure{Data: traces, Layout: layout}
}

// BoxStats summarises one box: quartiles, whiskers at the furthest points within
// 1.5 IQR of the box, and the points beyond them.
type BoxStats struct {
	Q1, Median, Q3 float64
	Low, High      float64
	Outliers       []float64
}

// ComputeBoxStats returns the box summary of values. values must be non-empty.
func ComputeBoxStats(values []float64) BoxStats {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	s := BoxStats{
		Q1:     summary.Quantile(sorted, 0.25),
		Median: summary.Quantile(sorted, 0.5),
		Q3:     summary.Quantile(sorted, 0.75),
	}
	iqr := s.Q3 - s.Q1
	lowFence, highFence := s.Q1-1.5*iqr, s.Q3+1.5*iqr
	s.Low, s.High = s.Median, s.Median
	first := true
	for _, v := range sorted {
		if v < lowFence || v > highFence {
			s.Outliers = append(s.Outliers, v)
			continue
		}
		if first {
			s.Low = v
			first = false
		}
		s.High = v
	}
	return s
}
