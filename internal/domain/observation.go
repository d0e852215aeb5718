package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// StationReading represents the flat JSON payload produced by rain-gauge
// collectors. Rainfall is required; elevation may be absent when the station
// has no survey data, in which case coordinates allow a terrain lookup.
type StationReading struct {
	StationID  string    `json:"station_id,omitempty"`
	District   string    `json:"district,omitempty"`
	RainfallMM *float64  `json:"rainfall_mm"`
	ElevationM *float64  `json:"elevation_m,omitempty"`
	Lat        *float64  `json:"lat,omitempty"`
	Lon        *float64  `json:"lon,omitempty"`
	ObservedAt time.Time `json:"observed_at,omitzero"`

	// Elevation provenance set during enrichment: "provided", "lookup",
	// "failed", or "missing".
	ElevationSource string `json:"elevation_source,omitempty"`
}

// Observation is a validated model input: monthly rainfall and elevation in
// raw units. Station metadata rides along for reporting and is never seen
// by the model.
type Observation struct {
	RainfallMM float64 `json:"rainfall_mm"`
	ElevationM float64 `json:"elevation_m"`

	StationID  string    `json:"station_id,omitempty"`
	District   string    `json:"district,omitempty"`
	ObservedAt time.Time `json:"observed_at,omitzero"`

	// ElevationSource carries the enrichment provenance into results. Only
	// "provided" and "lookup" ever reach a result; readings whose elevation
	// stays unknown are rejected before classification.
	ElevationSource string `json:"elevation_source,omitempty"`
}

// ParseStationReading deserializes a raw message's value into a reading.
func ParseStationReading(raw RawMessage) (StationReading, error) {
	var reading StationReading
	if err := json.Unmarshal(raw.Value, &reading); err != nil {
		return StationReading{}, fmt.Errorf("parse station reading: %w", err)
	}
	return reading, nil
}

// Observation converts the reading into a model input. It fails when a
// feature is absent; finiteness is checked at classification time.
func (r StationReading) Observation() (Observation, error) {
	if r.RainfallMM == nil {
		return Observation{}, fmt.Errorf("rainfall_mm missing: %w", ErrInvalidObservation)
	}
	if r.ElevationM == nil {
		return Observation{}, fmt.Errorf("elevation_m missing: %w", ErrInvalidObservation)
	}
	return Observation{
		RainfallMM:      *r.RainfallMM,
		ElevationM:      *r.ElevationM,
		StationID:       r.StationID,
		District:        r.District,
		ObservedAt:      r.ObservedAt,
		ElevationSource: r.ElevationSource,
	}, nil
}

// RawMessage represents an unprocessed message from the source topic.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputMessage is the serialized form destined for the sink topic.
type OutputMessage struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
