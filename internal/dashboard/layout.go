// Package dashboard composes the page layout and wires the reactive chart
// callbacks to the controls they subscribe to.
package dashboard

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/kjstillabower/sensor-dashboard/internal/dataset"
	"github.com/kjstillabower/sensor-dashboard/internal/figure"
	"github.com/kjstillabower/sensor-dashboard/internal/models"
	"github.com/kjstillabower/sensor-dashboard/internal/summary"
)

// Control ids.
const (
	ControlDateRange = "date-range"
	ControlChecklist = "checklist"
	ControlYAxis     = "y-axis"
)

// Input property ids, "control.prop".
const (
	PropStartDate   = ControlDateRange + ".start_date"
	PropEndDate     = ControlDateRange + ".end_date"
	PropLocations   = ControlChecklist + ".value"
	PropMeasurement = ControlYAxis + ".value"
)

// Output (graph) ids.
const (
	OutputLine          = "linechart1"
	OutputHistogram     = "hist1"
	OutputBoxVentilator = "box-plot1"
	OutputBoxOutside    = "box-plot2"
)

// DefaultLocationDomain is the checklist domain when none is configured.
var DefaultLocationDomain = []string{"1", "2", "3", "4"}

// DefaultLocationLabels names the sensors in the checklist caption.
var DefaultLocationLabels = map[string]string{
	"1": "IndoorA",
	"2": "Basement",
	"3": "IndoorB",
	"4": "Outdoors",
}

// LayoutOptions configures NewLayout. Zero values fall back to the defaults above.
type LayoutOptions struct {
	Title          string
	LocationDomain []string
	LocationLabels map[string]string
	HistogramBins  int
}

// Layout is the full page tree, built once at startup.
type Layout struct {
	Title     string       `json:"title"`
	Summary   SummaryTable `json:"summary"`
	DateRange DateRange    `json:"dateRange"`
	Caption   string       `json:"caption"`
	Checklist Checklist    `json:"checklist"`
	YAxis     Radio        `json:"yAxis"`
	Graphs    []Graph      `json:"graphs"`
}

// SummaryTable is the pre-rendered per-location statistics table.
type SummaryTable struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// DateRange holds the picker's bounds and initial selection, as yyyy-mm-dd.
type DateRange struct {
	ID        string `json:"id"`
	MinDate   string `json:"minDate"`
	MaxDate   string `json:"maxDate"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type Checklist struct {
	ID      string   `json:"id"`
	Options []Option `json:"options"`
	Value   []string `json:"value"`
}

type Radio struct {
	ID      string   `json:"id"`
	Label   string   `json:"label"`
	Options []Option `json:"options"`
	Value   string   `json:"value"`
}

// Graph is a chart slot. Static graphs carry their figure; reactive ones start
// empty and are filled by the first dispatch.
type Graph struct {
	ID     string         `json:"id"`
	Figure *figure.Figure `json:"figure,omitempty"`
}

// NewLayout composes the page from the loaded table. The summary and histogram
// are computed here, once.
func NewLayout(t *dataset.Table, opts LayoutOptions) Layout {
	if opts.Title == "" {
		opts.Title = "Home Temp Data from DHT11 (units are F)"
	}
	if len(opts.LocationDomain) == 0 {
		opts.LocationDomain = DefaultLocationDomain
	}
	if opts.LocationLabels == nil {
		opts.LocationLabels = DefaultLocationLabels
	}
	if opts.HistogramBins <= 0 {
		opts.HistogramBins = figure.DefaultBins
	}

	rows := summary.Build(t)
	table := SummaryTable{Columns: summary.Columns, Rows: make([][]string, len(rows))}
	for i, r := range rows {
		table.Rows[i] = summary.Cells(r)
	}

	minDate, maxDate := t.DateBounds()
	start, end := minDate.Format(dataset.DateLayout), maxDate.Format(dataset.DateLayout)

	options := make([]Option, len(opts.LocationDomain))
	for i, loc := range opts.LocationDomain {
		options[i] = Option{Value: loc, Label: loc}
	}

	measures := make([]Option, len(models.Measurements))
	for i, m := range models.Measurements {
		measures[i] = Option{Value: string(m), Label: string(m)}
	}

	hist := figure.HistogramFigure(t.Values(models.MeasurementTemperature), opts.HistogramBins, string(models.MeasurementTemperature))

	return Layout{
		Title:   opts.Title,
		Summary: table,
		DateRange: DateRange{
			ID:        ControlDateRange,
			MinDate:   start,
			MaxDate:   end,
			StartDate: start,
			EndDate:   end,
		},
		Caption: caption(opts.LocationDomain, opts.LocationLabels),
		Checklist: Checklist{
			ID:      ControlChecklist,
			Options: options,
			Value:   append([]string(nil), opts.LocationDomain...),
		},
		YAxis: Radio{
			ID:      ControlYAxis,
			Label:   "y-axis:",
			Options: measures,
			Value:   string(models.MeasurementTemperature),
		},
		Graphs: []Graph{
			{ID: OutputLine},
			{ID: OutputHistogram, Figure: &hist},
			{ID: OutputBoxVentilator},
			{ID: OutputBoxOutside},
		},
	}
}

func caption(domain []string, labels map[string]string) string {
	var b strings.Builder
	b.WriteString("Sensor location")
	for _, loc := range domain {
		b.WriteString(" ")
		b.WriteString(loc)
		if l, ok := labels[loc]; ok {
			b.WriteString(":")
			b.WriteString(l)
		}
	}
	return b.String()
}

// DefaultInputs returns the initial value of every input property.
func (l Layout) DefaultInputs() Inputs {
	in := Inputs{}
	in.set(PropLocations, l.Checklist.Value)
	in.set(PropStartDate, l.DateRange.StartDate)
	in.set(PropEndDate, l.DateRange.EndDate)
	in.set(PropMeasurement, l.YAxis.Value)
	return in
}

// DefaultState returns the filter state the page starts with.
func (l Layout) DefaultState() models.FilterState {
	start, _ := time.Parse(dataset.DateLayout, l.DateRange.StartDate)
	end, _ := time.Parse(dataset.DateLayout, l.DateRange.EndDate)
	return models.FilterState{
		Locations:   append([]string(nil), l.Checklist.Value...),
		Start:       start,
		End:         end,
		Measurement: models.Measurement(l.YAxis.Value),
	}
}

// Graph returns the slot with id, if present.
func (l Layout) Graph(id string) (Graph, bool) {
	for _, g := range l.Graphs {
		if g.ID == id {
			return g, true
		}
	}
	return Graph{}, false
}

// Inputs maps input property ids to their raw JSON values, as sent by the page.
type Inputs map[string]json.RawMessage

func (in Inputs) set(prop string, v interface{}) {
	raw, _ := json.Marshal(v)
	in[prop] = raw
}

// String decodes a string property. A missing or null value is "".
func (in Inputs) String(prop string) (string, error) {
	raw, ok := in[prop]
	if !ok || isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &InputError{Prop: prop, Err: err}
	}
	return s, nil
}

// Strings decodes a list property. A missing or null value is an empty list.
func (in Inputs) Strings(prop string) ([]string, error) {
	raw, ok := in[prop]
	if !ok || isNull(raw) {
		return []string{}, nil
	}
	var ss []string
	if err := json.Unmarshal(raw, &ss); err != nil {
		return nil, &InputError{Prop: prop, Err: err}
	}
	return ss, nil
}

// Merge returns a copy of base overlaid with in.
func (in Inputs) Merge(base Inputs) Inputs {
	out := make(Inputs, len(base)+len(in))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range in {
		out[k] = v
	}
	return out
}

func isNull(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

// StateInputs encodes the set fields of a filter state as input properties.
// A nil Locations is left out; an empty non-nil one selects nothing.
func StateInputs(s models.FilterState) Inputs {
	in := Inputs{}
	if s.Locations != nil {
		in.set(PropLocations, s.Locations)
	}
	if !s.Start.IsZero() {
		in.set(PropStartDate, s.Start.Format(dataset.DateLayout))
	}
	if !s.End.IsZero() {
		in.set(PropEndDate, s.End.Format(dataset.DateLayout))
	}
	if s.Measurement != "" {
		in.set(PropMeasurement, string(s.Measurement))
	}
	return in
}
