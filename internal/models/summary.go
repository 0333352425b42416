package models

// SummaryRow holds descriptive statistics of temperature for one location.
// Mean, Std and Median carry one-decimal display strings; the other columns are shown as-is.
type SummaryRow struct {
	Location string  `json:"location"`
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Std      float64 `json:"std"`
	Min      float64 `json:"min"`
	P25      float64 `json:"p25"`
	P50      float64 `json:"p50"`
	P75      float64 `json:"p75"`
	Max      float64 `json:"max"`

	MeanText   string `json:"meanText"`
	StdText    string `json:"stdText"`
	MedianText string `json:"medianText"`
}
