package dashboard

import (
	"context"
	"time"

	"github.com/kjstillabower/sensor-dashboard/internal/dataset"
	"github.com/kjstillabower/sensor-dashboard/internal/figure"
	"github.com/kjstillabower/sensor-dashboard/internal/models"
	"github.com/kjstillabower/sensor-dashboard/internal/validation"
)

const (
	columnVentilator      = "ventilator"
	columnOutsideHumidity = "Outside-humidity"
)

// Charts holds the reactive chart handlers. They read the table and never
// modify it, so one Charts serves all requests.
type Charts struct {
	table       *dataset.Table
	colorDomain []string
}

// NewCharts binds the handlers to t. colorDomain fixes each location's line colour;
// it and the table's own labels are the locations the checklist may select.
func NewCharts(t *dataset.Table, colorDomain []string) *Charts {
	domain := append([]string(nil), colorDomain...)
	for _, loc := range t.Locations() {
		if !contains(domain, loc) {
			domain = append(domain, loc)
		}
	}
	return &Charts{table: t, colorDomain: domain}
}

// Bindings returns the subscription of every reactive output.
func (c *Charts) Bindings() []Binding {
	return []Binding{
		{Output: OutputLine, Inputs: []string{PropLocations, PropStartDate, PropEndDate}, Handler: c.Line},
		{Output: OutputBoxVentilator, Inputs: []string{PropMeasurement}, Handler: c.BoxByVentilator},
		{Output: OutputBoxOutside, Inputs: []string{PropMeasurement}, Handler: c.BoxByOutsideHumidity},
	}
}

// Register adds every binding to r.
func (c *Charts) Register(r *Registry) error {
	for _, b := range c.Bindings() {
		if err := r.Register(b); err != nil {
			return err
		}
	}
	return nil
}

// Line plots temperature over time for the selected locations and date range.
// An empty selection, a cleared date, or start after end yields a blank chart.
func (c *Charts) Line(ctx context.Context, in Inputs) (figure.Figure, error) {
	raw, err := in.Strings(PropLocations)
	if err != nil {
		return figure.Figure{}, err
	}
	locs, err := validation.ValidateLocations(raw, c.colorDomain)
	if err != nil {
		return figure.Figure{}, &InputError{Prop: PropLocations, Err: err}
	}
	start, ok, err := dateInput(in, PropStartDate)
	if err != nil || !ok {
		return c.emptyLine(), err
	}
	end, ok, err := dateInput(in, PropEndDate)
	if err != nil || !ok {
		return c.emptyLine(), err
	}
	if len(locs) == 0 || start.After(end) {
		return c.emptyLine(), nil
	}
	return figure.LineFigure(c.table.Filter(locs, start, end), c.colorDomain), nil
}

func (c *Charts) emptyLine() figure.Figure {
	return figure.LineFigure(nil, c.colorDomain)
}

// BoxByVentilator plots the selected measurement per location, split by ventilator state.
func (c *Charts) BoxByVentilator(ctx context.Context, in Inputs) (figure.Figure, error) {
	return c.box(in, columnVentilator, func(r models.Reading) string { return r.Ventilator })
}

// BoxByOutsideHumidity plots the selected measurement per location, split by the outside-humidity flag.
func (c *Charts) BoxByOutsideHumidity(ctx context.Context, in Inputs) (figure.Figure, error) {
	return c.box(in, columnOutsideHumidity, func(r models.Reading) string { return r.OutsideHumidity })
}

func (c *Charts) box(in Inputs, groupTitle string, group figure.GroupKey) (figure.Figure, error) {
	s, err := in.String(PropMeasurement)
	if err != nil {
		return figure.Figure{}, err
	}
	m, err := validation.ValidateMeasurement(s)
	if err != nil {
		return figure.Figure{}, &InputError{Prop: PropMeasurement, Err: err}
	}
	return figure.BoxFigure(c.table.Readings(), m, group, groupTitle, c.table.Locations()), nil
}

// dateInput reads a date property. ok is false when the picker is cleared.
func dateInput(in Inputs, prop string) (t time.Time, ok bool, err error) {
	s, err := in.String(prop)
	if err != nil || s == "" {
		return time.Time{}, false, err
	}
	t, err = validation.ParseDate(s)
	if err != nil {
		return time.Time{}, false, &InputError{Prop: prop, Err: err}
	}
	return t, true, nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
