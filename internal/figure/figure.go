// Package figure builds Plotly-compatible chart documents from readings and renders
// them to SVG for export.
package figure

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Trace types emitted by the builders.
const (
	TypeScatter = "scatter"
	TypeBar     = "bar"
	TypeBox     = "box"
)

// ErrNoData is returned when a figure has nothing to draw.
var ErrNoData = errors.New("figure has no data")

// Palette is the qualitative colour sequence used for series, in Plotly's default order.
var Palette = []string{
	"#636EFA", "#EF553B", "#00CC96", "#AB63FA", "#FFA15A",
	"#19D3F3", "#FF6692", "#B6E880", "#FF97FF", "#FECB52",
}

// Figure is a chart document: traces plus layout. A Figure with no traces is a valid,
// empty chart.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Blank returns a figure with no traces and the dashboard colours, the
// stand-in for a chart that has nothing to show.
func Blank() Figure {
	return Figure{Data: []Trace{}, Layout: baseLayout()}
}

// Empty reports whether the figure has no traces.
func (f Figure) Empty() bool { return len(f.Data) == 0 }

// Points returns the total number of y values across all traces.
func (f Figure) Points() int {
	n := 0
	for _, tr := range f.Data {
		n += len(tr.Y)
	}
	return n
}

// Trace is one data series.
type Trace struct {
	Type        string    `json:"type"`
	Name        string    `json:"name,omitempty"`
	Mode        string    `json:"mode,omitempty"`
	X           Values    `json:"x"`
	Y           []float64 `json:"y"`
	Width       float64   `json:"width,omitempty"`
	LegendGroup string    `json:"legendgroup,omitempty"`
	OffsetGroup string    `json:"offsetgroup,omitempty"`
	BoxPoints   string    `json:"boxpoints,omitempty"`
	Line        *Line     `json:"line,omitempty"`
	Marker      *Marker   `json:"marker,omitempty"`
}

type Line struct {
	Color string  `json:"color,omitempty"`
	Width float64 `json:"width,omitempty"`
}

type Marker struct {
	Color string `json:"color,omitempty"`
}

// Layout carries the subset of Plotly layout attributes the dashboard uses.
type Layout struct {
	Title        *Text   `json:"title,omitempty"`
	XAxis        Axis    `json:"xaxis"`
	YAxis        Axis    `json:"yaxis"`
	Legend       *Legend `json:"legend,omitempty"`
	BoxMode      string  `json:"boxmode,omitempty"`
	BarGap       float64 `json:"bargap"`
	PaperBGColor string  `json:"paper_bgcolor,omitempty"`
	PlotBGColor  string  `json:"plot_bgcolor,omitempty"`
	Font         *Font   `json:"font,omitempty"`
}

type Text struct {
	Text string `json:"text"`
}

type Axis struct {
	Title         *Text    `json:"title,omitempty"`
	Type          string   `json:"type,omitempty"`
	CategoryOrder string   `json:"categoryorder,omitempty"`
	CategoryArray []string `json:"categoryarray,omitempty"`
}

type Legend struct {
	Title *Text `json:"title,omitempty"`
}

type Font struct {
	Color string `json:"color,omitempty"`
}

// Values is an x column that is either numeric or textual (timestamps, categories).
// It encodes as a plain JSON array of whichever kind is set.
type Values struct {
	Numbers []float64
	Strings []string
}

// Len returns the number of values.
func (v Values) Len() int {
	if v.Strings != nil {
		return len(v.Strings)
	}
	return len(v.Numbers)
}

func (v Values) MarshalJSON() ([]byte, error) {
	if v.Strings != nil {
		return json.Marshal(v.Strings)
	}
	if v.Numbers == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v.Numbers)
}

func (v *Values) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*v = Values{}
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		*v = Values{}
		return nil
	}
	if first := bytes.TrimSpace(raw[0]); len(first) > 0 && first[0] == '"' {
		var s []string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Values{Strings: s}
		return nil
	}
	var n []float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*v = Values{Numbers: n}
	return nil
}

// ColorFor returns the palette colour of key's position in domain, so a series keeps
// its colour when other series are filtered out. Keys outside domain are placed after it.
func ColorFor(key string, domain []string) string {
	for i, d := range domain {
		if d == key {
			return Palette[i%len(Palette)]
		}
	}
	return Palette[len(domain)%len(Palette)]
}

// baseLayout applies the dashboard's dark (solarized) colours.
func baseLayout() Layout {
	return Layout{
		PaperBGColor: "#002b36",
		PlotBGColor:  "#073642",
		Font:         &Font{Color: "#839496"},
	}
}
