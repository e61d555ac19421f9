package types

import "time"

// Sample is a single averaged measurement for a parameter.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// WriteRequest carries samples to ingest for one (element, parameter) series.
type WriteRequest struct {
	Element   string   `json:"element"`
	Parameter string   `json:"parameter"`
	Samples   []Sample `json:"samples"`
}

// TrendRequest selects a series and how to bucket it.
// RangeName and IntervalName resolve with forgiving defaults
// ("All time" and "Day" respectively).
type TrendRequest struct {
	Element      string
	Parameter    string
	RangeName    string
	IntervalName string
}

// TrendRow summarizes one calendar-aligned interval: the value observed
// just before the interval start, the value observed just before the
// interval end, and their difference.
type TrendRow struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	StartValue float64   `json:"start_value"`
	EndValue   float64   `json:"end_value"`
	Delta      float64   `json:"delta"`
}

// TrendResult is a complete, single-page trend query result.
type TrendResult struct {
	Rows []TrendRow `json:"rows"`
}

// SeriesInfo describes one stored series.
type SeriesInfo struct {
	Element   string `json:"element"`
	Parameter string `json:"parameter"`
}
