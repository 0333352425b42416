package figure

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultBins is the bin count of the static temperature histogram.
const DefaultBins = 30

// Histogram holds equal-width bins: len(Edges) == len(Counts)+1.
type Histogram struct {
	Edges  []float64
	Counts []int
}

// Width returns the bin width, or 0 for an empty histogram.
func (h Histogram) Width() float64 {
	if len(h.Edges) < 2 {
		return 0
	}
	return h.Edges[1] - h.Edges[0]
}

// Centers returns the midpoint of each bin.
func (h Histogram) Centers() []float64 {
	out := make([]float64, len(h.Counts))
	for i := range h.Counts {
		out[i] = (h.Edges[i] + h.Edges[i+1]) / 2
	}
	return out
}

// Bin buckets values into bins equal-width bins spanning [min, max]. The last bin is
// closed on the right. When every value is equal the span is widened to [v-0.5, v+0.5].
func Bin(values []float64, bins int) Histogram {
	if len(values) == 0 || bins <= 0 {
		return Histogram{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	edges := floats.Span(make([]float64, bins+1), lo, hi)
	edges[bins] = hi
	// stat.Histogram bins are half-open; nudge the top divider so max lands in the last bin.
	dividers := append([]float64(nil), edges...)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	weights := stat.Histogram(nil, dividers, sorted, nil)

	h := Histogram{Edges: edges, Counts: make([]int, bins)}
	for i, w := range weights {
		h.Counts[i] = int(w)
	}
	return h
}

// HistogramFigure renders values as a bar chart of bin counts.
func HistogramFigure(values []float64, bins int, xTitle string) Figure {
	layout := baseLayout()
	layout.XAxis = Axis{Title: &Text{Text: xTitle}}
	layout.YAxis = Axis{Title: &Text{Text: "count"}}

	h := Bin(values, bins)
	if len(h.Counts) == 0 {
		return Figure{Data: []Trace{}, Layout: layout}
	}
	counts := make([]float64, len(h.Counts))
	for i, c := range h.Counts {
		counts[i] = float64(c)
	}
	return Figure{
		Data: []Trace{{
			Type:   TypeBar,
			Name:   "count",
			X:      Values{Numbers: h.Centers()},
			Y:      counts,
			Width:  h.Width(),
			Marker: &Marker{Color: Palette[0]},
		}},
		Layout: layout,
	}
}
