package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/kjstillabower/sensor-dashboard/internal/dataset"
	"github.com/kjstillabower/sensor-dashboard/internal/figure"
	"github.com/kjstillabower/sensor-dashboard/internal/validation"
)

// fixturePath is the six-reading table shared with the dataset tests.
const fixturePath = "../dataset/testdata/fixture.csv"

func loadFixture(t *testing.T) *dataset.Table {
	t.Helper()
	tbl, err := dataset.Load(fixturePath)
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return tbl
}

func inputs(kv map[string]interface{}) Inputs {
	in := Inputs{}
	for k, v := range kv {
		in.set(k, v)
	}
	return in
}

func decode(t *testing.T, raw json.RawMessage) figure.Figure {
	t.Helper()
	var fig figure.Figure
	if err := json.Unmarshal(raw, &fig); err != nil {
		t.Fatalf("decode figure: %v", err)
	}
	return fig
}

func TestNewLayout_Defaults(t *testing.T) {
	l := NewLayout(loadFixture(t), LayoutOptions{})

	if l.DateRange.MinDate != "2023-01-01" || l.DateRange.MaxDate != "2023-01-03" {
		t.Errorf("date bounds = %s..%s, want 2023-01-01..2023-01-03", l.DateRange.MinDate, l.DateRange.MaxDate)
	}
	if l.DateRange.StartDate != l.DateRange.MinDate || l.DateRange.EndDate != l.DateRange.MaxDate {
		t.Error("initial date selection should be the full range")
	}
	if got := strings.Join(l.Checklist.Value, ","); got != "1,2,3,4" {
		t.Errorf("checklist value = %s, want 1,2,3,4", got)
	}
	if l.YAxis.Value != "tempf" {
		t.Errorf("y-axis value = %s, want tempf", l.YAxis.Value)
	}
	if l.Caption != "Sensor location 1:IndoorA 2:Basement 3:IndoorB 4:Outdoors" {
		t.Errorf("caption = %q", l.Caption)
	}
	if len(l.Summary.Rows) != 2 {
		t.Errorf("summary rows = %d, want one per location (2)", len(l.Summary.Rows))
	}
	if l.Summary.Rows[0][2] != "71.0" {
		t.Errorf("summary mean for location 1 = %s, want 71.0", l.Summary.Rows[0][2])
	}

	hist, ok := l.Graph(OutputHistogram)
	if !ok || hist.Figure == nil {
		t.Fatal("hist1 slot should carry the static histogram")
	}
	total := 0.0
	for _, y := range hist.Figure.Data[0].Y {
		total += y
	}
	if total != 6 {
		t.Errorf("histogram counts sum = %v, want 6", total)
	}
	for _, id := range []string{OutputLine, OutputBoxVentilator, OutputBoxOutside} {
		g, ok := l.Graph(id)
		if !ok || g.Figure != nil {
			t.Errorf("%s should be an empty placeholder", id)
		}
	}
}

func TestLayout_DefaultState(t *testing.T) {
	l := NewLayout(loadFixture(t), LayoutOptions{LocationDomain: []string{"1", "2"}})
	s := l.DefaultState()
	if len(s.Locations) != 2 || s.Start.Format(dataset.DateLayout) != "2023-01-01" || s.End.Format(dataset.DateLayout) != "2023-01-03" {
		t.Errorf("DefaultState() = %+v", s)
	}
	if s.Measurement != "tempf" {
		t.Errorf("measurement = %s, want tempf", s.Measurement)
	}
}

func TestLine_FiltersByLocationAndDate(t *testing.T) {
	c := NewCharts(loadFixture(t), DefaultLocationDomain)
	ctx := context.Background()

	tests := []struct {
		name       string
		locs       []string
		start, end string
		wantTraces int
		wantPoints int
	}{
		{"all", []string{"1", "2"}, "2023-01-01", "2023-01-03", 2, 6},
		{"only 2", []string{"2"}, "2023-01-01", "2023-01-03", 1, 3},
		{"narrow range", []string{"1", "2"}, "2023-01-02", "2023-01-02", 2, 2},
		{"empty selection", []string{}, "2023-01-01", "2023-01-03", 0, 0},
		{"start after end", []string{"1"}, "2023-01-03", "2023-01-01", 0, 0},
		{"domain location without readings", []string{"4"}, "2023-01-01", "2023-01-03", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fig, err := c.Line(ctx, inputs(map[string]interface{}{
				PropLocations: tt.locs,
				PropStartDate: tt.start,
				PropEndDate:   tt.end,
			}))
			if err != nil {
				t.Fatalf("Line() error = %v", err)
			}
			if len(fig.Data) != tt.wantTraces {
				t.Errorf("traces = %d, want %d", len(fig.Data), tt.wantTraces)
			}
			if fig.Points() != tt.wantPoints {
				t.Errorf("points = %d, want %d", fig.Points(), tt.wantPoints)
			}
		})
	}
}

func TestLine_PointsStayInsideFilter(t *testing.T) {
	c := NewCharts(loadFixture(t), DefaultLocationDomain)
	fig, err := c.Line(context.Background(), inputs(map[string]interface{}{
		PropLocations: []string{"1"},
		PropStartDate: "2023-01-02",
		PropEndDate:   "2023-01-03",
	}))
	if err != nil {
		t.Fatalf("Line() error = %v", err)
	}
	for _, tr := range fig.Data {
		if tr.Name != "1" {
			t.Errorf("unexpected trace %q", tr.Name)
		}
		for _, x := range tr.X.Strings {
			if x < "2023-01-02" || x >= "2023-01-04" {
				t.Errorf("point at %s outside selected range", x)
			}
		}
	}
}

func TestLine_InvalidInputs(t *testing.T) {
	c := NewCharts(loadFixture(t), DefaultLocationDomain)
	ctx := context.Background()

	_, err := c.Line(ctx, inputs(map[string]interface{}{PropLocations: []string{"1"}, PropStartDate: "01/02/2023", PropEndDate: "2023-01-03"}))
	var ie *InputError
	if err == nil || !asInputError(err, &ie) || ie.Prop != PropStartDate {
		t.Errorf("bad date error = %v, want InputError for %s", err, PropStartDate)
	}

	_, err = c.Line(ctx, Inputs{PropLocations: json.RawMessage(`"1"`)})
	if err == nil || !asInputError(err, &ie) || ie.Prop != PropLocations {
		t.Errorf("non-list checklist error = %v, want InputError for %s", err, PropLocations)
	}

	_, err = c.Line(ctx, inputs(map[string]interface{}{PropLocations: []string{"1", "9"}, PropStartDate: "2023-01-01", PropEndDate: "2023-01-03"}))
	if err == nil || !asInputError(err, &ie) || ie.Prop != PropLocations || !errors.Is(err, validation.ErrUnknownLocation) {
		t.Errorf("unknown location error = %v, want InputError wrapping ErrUnknownLocation", err)
	}

	fig, err := c.Line(ctx, inputs(map[string]interface{}{PropLocations: []string{"1"}, PropEndDate: "2023-01-03"}))
	if err != nil || !fig.Empty() {
		t.Errorf("cleared start date: fig traces = %d, err = %v; want blank, nil", len(fig.Data), err)
	}
}

func TestLine_PunctuatedLabels(t *testing.T) {
	const csv = `_time,date,location,tempf,humidityi,ventilator,Outside-humidity
2023-01-01 08:00:00+00:00,2023-01-01,room.1,70,40,off,low
2023-01-01 08:00:00+00:00,2023-01-01,Büro (Nord),60,55,on,high
2023-01-02 08:00:00+00:00,2023-01-02,room.1,71,42,on,low
`
	tbl, err := dataset.Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	c := NewCharts(tbl, DefaultLocationDomain)
	fig, err := c.Line(context.Background(), inputs(map[string]interface{}{
		PropLocations: tbl.Locations(),
		PropStartDate: "2023-01-01",
		PropEndDate:   "2023-01-02",
	}))
	if err != nil {
		t.Fatalf("Line() error = %v", err)
	}
	if len(fig.Data) != 2 || fig.Points() != 3 {
		t.Errorf("traces = %d points = %d, want 2 and 3", len(fig.Data), fig.Points())
	}
}

func TestBox_DependsOnlyOnMeasurement(t *testing.T) {
	c := NewCharts(loadFixture(t), DefaultLocationDomain)
	ctx := context.Background()
	base := inputs(map[string]interface{}{PropMeasurement: "humidityi"})
	narrowed := inputs(map[string]interface{}{
		PropMeasurement: "humidityi",
		PropLocations:   []string{"2"},
		PropStartDate:   "2023-01-02",
		PropEndDate:     "2023-01-02",
	})

	for _, h := range []HandlerFunc{c.BoxByVentilator, c.BoxByOutsideHumidity} {
		a, err := h(ctx, base)
		if err != nil {
			t.Fatalf("box error = %v", err)
		}
		b, _ := h(ctx, narrowed)
		ja, _ := json.Marshal(a)
		jb, _ := json.Marshal(b)
		if string(ja) != string(jb) {
			t.Error("box figure changed with date/location inputs")
		}
		if a.Points() != 6 {
			t.Errorf("box points = %d, want all 6 readings", a.Points())
		}
	}
}

func TestBox_GroupsByColumn(t *testing.T) {
	c := NewCharts(loadFixture(t), DefaultLocationDomain)
	in := inputs(map[string]interface{}{PropMeasurement: "tempf"})

	vent, _ := c.BoxByVentilator(context.Background(), in)
	outside, _ := c.BoxByOutsideHumidity(context.Background(), in)
	if names(vent) != "off,on" {
		t.Errorf("ventilator traces = %s, want off,on", names(vent))
	}
	if names(outside) != "high,low" {
		t.Errorf("outside-humidity traces = %s, want high,low", names(outside))
	}
	if vent.Layout.BoxMode != "group" {
		t.Errorf("boxmode = %q, want group", vent.Layout.BoxMode)
	}
}

func TestBox_UnknownMeasurement(t *testing.T) {
	c := NewCharts(loadFixture(t), DefaultLocationDomain)
	_, err := c.BoxByVentilator(context.Background(), inputs(map[string]interface{}{PropMeasurement: "pressure"}))
	var ie *InputError
	if !asInputError(err, &ie) || ie.Prop != PropMeasurement {
		t.Errorf("error = %v, want InputError for %s", err, PropMeasurement)
	}
}

func names(f figure.Figure) string {
	ns := make([]string, len(f.Data))
	for i, tr := range f.Data {
		ns[i] = tr.Name
	}
	return strings.Join(ns, ",")
}
