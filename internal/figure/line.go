package figure

import (
	"sort"
	"time"

	"github.com/kjstillabower/sensor-dashboard/internal/models"
)

// TimeLayout is how line-chart x values are encoded.
const TimeLayout = time.RFC3339

// LineFigure plots temperature over time with one trace per location present in rows.
// Traces are ordered by location label; colours follow the label's position in colorDomain.
func LineFigure(rows []models.Reading, colorDomain []string) Figure {
	layout := baseLayout()
	layout.XAxis = Axis{Title: &Text{Text: "_time"}, Type: "date"}
	layout.YAxis = Axis{Title: &Text{Text: string(models.MeasurementTemperature)}}
	layout.Legend = &Legend{Title: &Text{Text: "location"}}

	byLoc := make(map[string][]models.Reading)
	for _, r := range rows {
		byLoc[r.Location] = append(byLoc[r.Location], r)
	}
	locs := make([]string, 0, len(byLoc))
	for l := range byLoc {
		locs = append(locs, l)
	}
	sort.Strings(locs)

	traces := make([]Trace, 0, len(locs))
	for _, loc := range locs {
		pts := byLoc[loc]
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].Time.Before(pts[j].Time) })
		xs := make([]string, len(pts))
		ys := make([]float64, len(pts))
		for i, p := range pts {
			xs[i] = p.Time.Format(TimeLayout)
			ys[i] = p.TempF
		}
		color := ColorFor(loc, colorDomain)
		traces = append(traces, Trace{
			Type:        TypeScatter,
			Mode:        "lines",
			Name:        loc,
			LegendGroup: loc,
			X:           Values{Strings: xs},
			Y:           ys,
			Line:        &Line{Color: color, Width: 2},
		})
	}
	return Figure{Data: traces, Layout: layout}
}
