// Package models holds the plain data types shared by the fetcher and
// processor binaries.
package models

import "time"

// Location is a static catalog entry: a city name and its coordinates.
type Location struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Cycle identifies one 60-second enqueue-and-drain iteration. ID is int64,
// not the unbounded int spec.md leaves undecided, so overflow is not a
// practical operational concern (see SPEC_FULL.md Open Questions).
type Cycle struct {
	ID      int64
	StartMS int64
}

// Observation is a single upstream weather reading for one location.
type Observation struct {
	City        string
	Lat         float64
	Lon         float64
	Temperature float64
	Condition   string
	RecordedAt  time.Time
}

// StreamFields returns the observation encoded as the string->string field
// map the broker's append-only stream stores (spec.md "Stream entry field
// map"). Numeric fields are formatted with enough precision to round-trip.
func (o Observation) StreamFields() map[string]interface{} {
	return map[string]interface{}{
		"city_name":         o.City,
		"latitude":          o.Lat,
		"longitude":         o.Lon,
		"temperature":       o.Temperature,
		"weather_condition": o.Condition,
		"recorded_at":       o.RecordedAt.UTC().Format(time.RFC3339),
	}
}
