package domain

import "context"

// ElevationResolver looks up terrain elevation for a coordinate pair.
// Implementations live in the adapter layer; the domain only consumes the
// lookup during enrichment.
type ElevationResolver interface {
	Elevation(ctx context.Context, lat, lon float64) (float64, error)
}
