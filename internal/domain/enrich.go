package domain

import (
	"context"
	"log/slog"
)

// Elevation provenance values recorded on enriched readings.
const (
	// ElevationProvided means the reading arrived with its own elevation.
	ElevationProvided = "provided"
	// ElevationLookup means the elevation was resolved from coordinates.
	ElevationLookup = "lookup"
	// ElevationFailed means a lookup was attempted and did not succeed.
	ElevationFailed = "failed"
	// ElevationMissing means no elevation and no way to resolve one.
	ElevationMissing = "missing"
)

// EnrichWithElevation fills in a reading's elevation from its coordinates
// when the station did not report one. Lookup failures degrade gracefully:
// the reading keeps flowing with its provenance marked, and the caller
// decides whether a missing elevation is fatal for its use case.
func EnrichWithElevation(ctx context.Context, reading StationReading, resolver ElevationResolver, logger *slog.Logger) StationReading {
	if reading.ElevationM != nil {
		reading.ElevationSource = ElevationProvided
		return reading
	}

	if resolver == nil || reading.Lat == nil || reading.Lon == nil {
		reading.ElevationSource = ElevationMissing
		return reading
	}

	elevation, err := resolver.Elevation(ctx, *reading.Lat, *reading.Lon)
	if err != nil {
		logger.Warn("elevation lookup failed",
			"station_id", reading.StationID,
			"lat", *reading.Lat,
			"lon", *reading.Lon,
			"error", err)
		reading.ElevationSource = ElevationFailed
		return reading
	}

	reading.ElevationM = &elevation
	reading.ElevationSource = ElevationLookup
	return reading
}
