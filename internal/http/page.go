package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/kjstillabower/sensor-dashboard/internal/dashboard"
	"github.com/kjstillabower/sensor-dashboard/internal/figure"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// pageData is what index.html renders. Static holds the figures known at
// startup; the reactive graphs are filled by the page's first dispatch.
type pageData struct {
	Layout dashboard.Layout
	Static map[string]*figure.Figure
	Props  map[string]string
}

func renderPage(l dashboard.Layout) ([]byte, error) {
	data := pageData{
		Layout: l,
		Static: make(map[string]*figure.Figure),
		Props: map[string]string{
			"start":       dashboard.PropStartDate,
			"end":         dashboard.PropEndDate,
			"locations":   dashboard.PropLocations,
			"measurement": dashboard.PropMeasurement,
		},
	}
	for _, g := range l.Graphs {
		if g.Figure != nil {
			data.Static[g.ID] = g.Figure
		}
	}
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}
