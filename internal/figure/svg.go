package figure

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	svgWidth  = 960
	svgHeight = 480
	// boxSlot is the share of one x category the grouped boxes occupy.
	boxSlot = 0.8
)

// RenderSVG draws fig as SVG into w. Scatter traces become time series, a bar trace
// becomes a filled step outline, and box traces become box-and-whisker outlines per
// category. Outlier points are not drawn.
func RenderSVG(w io.Writer, fig Figure) error {
	if fig.Points() == 0 {
		return ErrNoData
	}
	var (
		ch  chart.Chart
		err error
	)
	switch fig.Data[0].Type {
	case TypeScatter:
		ch, err = timeSeriesChart(fig)
	case TypeBar:
		ch, err = stepChart(fig)
	case TypeBox:
		ch, err = boxChart(fig)
	default:
		err = fmt.Errorf("unsupported trace type %q", fig.Data[0].Type)
	}
	if err != nil {
		return fmt.Errorf("render svg: %w", err)
	}
	ch.Width = svgWidth
	ch.Height = svgHeight
	ch.Background = chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16}}
	if len(ch.Series) > 1 {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}
	if err := ch.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render svg: %w", err)
	}
	return nil
}

func timeSeriesChart(fig Figure) (chart.Chart, error) {
	var (
		series     []chart.Series
		all        []float64
		minT, maxT time.Time
	)
	for _, tr := range fig.Data {
		if len(tr.Y) == 0 {
			continue
		}
		if len(tr.X.Strings) != len(tr.Y) {
			return chart.Chart{}, fmt.Errorf("trace %q: %d x values for %d y values", tr.Name, len(tr.X.Strings), len(tr.Y))
		}
		xs := make([]time.Time, len(tr.Y))
		for i, s := range tr.X.Strings {
			t, err := time.Parse(TimeLayout, s)
			if err != nil {
				return chart.Chart{}, fmt.Errorf("trace %q: %w", tr.Name, err)
			}
			xs[i] = t
			if minT.IsZero() || t.Before(minT) {
				minT = t
			}
			if t.After(maxT) {
				maxT = t
			}
		}
		all = append(all, tr.Y...)
		series = append(series, chart.TimeSeries{
			Name:    tr.Name,
			XValues: xs,
			YValues: tr.Y,
			Style:   chart.Style{StrokeColor: traceColor(tr), StrokeWidth: 2},
		})
	}
	if !maxT.After(minT) {
		minT, maxT = minT.Add(-time.Hour), maxT.Add(time.Hour)
	}
	lo, hi := paddedRange(all, 0.05)
	return chart.Chart{
		XAxis: chart.XAxis{
			Name:           axisTitle(fig.Layout.XAxis),
			ValueFormatter: chart.TimeValueFormatterWithFormat("01-02 15:04"),
			Range:          &chart.ContinuousRange{Min: float64(chart.TimeToFloat64(minT)), Max: float64(chart.TimeToFloat64(maxT))},
		},
		YAxis:  chart.YAxis{Name: axisTitle(fig.Layout.YAxis), Range: &chart.ContinuousRange{Min: lo, Max: hi}},
		Series: series,
	}, nil
}

func stepChart(fig Figure) (chart.Chart, error) {
	tr := fig.Data[0]
	if len(tr.X.Numbers) != len(tr.Y) {
		return chart.Chart{}, fmt.Errorf("trace %q: %d x values for %d y values", tr.Name, len(tr.X.Numbers), len(tr.Y))
	}
	half := tr.Width / 2
	if half <= 0 {
		half = 0.5
	}
	xs := make([]float64, 0, 4*len(tr.Y))
	ys := make([]float64, 0, 4*len(tr.Y))
	top := 0.0
	for i, c := range tr.X.Numbers {
		xs = append(xs, c-half, c-half, c+half, c+half)
		ys = append(ys, 0, tr.Y[i], tr.Y[i], 0)
		top = math.Max(top, tr.Y[i])
	}
	if top == 0 {
		top = 1
	}
	color := traceColor(tr)
	return chart.Chart{
		XAxis: chart.XAxis{
			Name:  axisTitle(fig.Layout.XAxis),
			Range: &chart.ContinuousRange{Min: xs[0], Max: xs[len(xs)-1]},
		},
		YAxis: chart.YAxis{Name: axisTitle(fig.Layout.YAxis), Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1}},
		Series: []chart.Series{chart.ContinuousSeries{
			Name:    tr.Name,
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: color, StrokeWidth: 1, FillColor: color.WithAlpha(160)},
		}},
	}, nil
}

func boxChart(fig Figure) (chart.Chart, error) {
	cats := fig.Layout.XAxis.CategoryArray
	if len(cats) == 0 {
		cats = traceCategories(fig.Data)
	}
	groupWidth := boxSlot / float64(len(fig.Data))
	var (
		series []chart.Series
		all    []float64
	)
	for gi, tr := range fig.Data {
		if len(tr.X.Strings) != len(tr.Y) {
			return chart.Chart{}, fmt.Errorf("trace %q: %d x values for %d y values", tr.Name, len(tr.X.Strings), len(tr.Y))
		}
		byCat := make(map[string][]float64)
		for i, c := range tr.X.Strings {
			byCat[c] = append(byCat[c], tr.Y[i])
		}
		for ci, cat := range cats {
			vals := byCat[cat]
			if len(vals) == 0 {
				continue
			}
			s := ComputeBoxStats(vals)
			x := float64(ci) - boxSlot/2 + (float64(gi)+0.5)*groupWidth
			xs, ys := boxOutline(x, groupWidth*0.4, s)
			all = append(all, s.Low, s.High)
			series = append(series, chart.ContinuousSeries{
				Name:    tr.Name + " @ " + cat,
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: traceColor(tr), StrokeWidth: 1.5},
			})
		}
	}
	if len(series) == 0 {
		return chart.Chart{}, ErrNoData
	}
	ticks := make([]chart.Tick, len(cats))
	for i, c := range cats {
		ticks[i] = chart.Tick{Value: float64(i), Label: c}
	}
	lo, hi := paddedRange(all, 0.1)
	return chart.Chart{
		XAxis: chart.XAxis{
			Name:  axisTitle(fig.Layout.XAxis),
			Range: &chart.ContinuousRange{Min: -0.5, Max: float64(len(cats)) - 0.5},
			Ticks: ticks,
		},
		YAxis:  chart.YAxis{Name: axisTitle(fig.Layout.YAxis), Range: &chart.ContinuousRange{Min: lo, Max: hi}},
		Series: series,
	}, nil
}

// boxOutline traces one box, its median and both whiskers as a single polyline.
func boxOutline(x, half float64, s BoxStats) ([]float64, []float64) {
	xs := []float64{x, x, x - half, x - half, x, x, x, x + half, x + half, x - half, x + half, x + half, x}
	ys := []float64{s.Low, s.Q1, s.Q1, s.Q3, s.Q3, s.High, s.Q3, s.Q3, s.Median, s.Median, s.Median, s.Q1, s.Q1}
	return xs, ys
}

func traceCategories(traces []Trace) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tr := range traces {
		for _, c := range tr.X.Strings {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				out = append(out, c)
			}
		}
	}
	sort.Strings(out)
	return out
}

func traceColor(tr Trace) drawing.Color {
	hex := Palette[0]
	switch {
	case tr.Line != nil && tr.Line.Color != "":
		hex = tr.Line.Color
	case tr.Marker != nil && tr.Marker.Color != "":
		hex = tr.Marker.Color
	}
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

func axisTitle(a Axis) string {
	if a.Title == nil {
		return ""
	}
	return a.Title.Text
}

// paddedRange returns [min, max] of values widened by frac of the span on each side.
// A zero span is widened by one unit.
func paddedRange(values []float64, frac float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 0) {
		return 0, 1
	}
	span := hi - lo
	if span == 0 {
		return lo - 1, hi + 1
	}
	return lo - span*frac, hi + span*frac
}
