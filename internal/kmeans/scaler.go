package kmeans

import (
	"fmt"

	"github.com/banjirlab/flood-risk-service/internal/domain"
)

// FeatureCount is the width of every feature vector the service handles:
// (rainfall_mm, elevation_m).
const FeatureCount = 2

// StandardScaler standardizes features the same way the training pipeline
// did: (x - mean) / scale per feature. It satisfies [domain.FeatureScaler].
type StandardScaler struct {
	mean  []float64
	scale []float64
}

// NewStandardScaler builds a scaler from per-feature mean and scale. Both
// slices are copied so later mutation by the caller cannot skew results.
func NewStandardScaler(mean, scale []float64) (*StandardScaler, error) {
	if len(mean) != FeatureCount {
		return nil, fmt.Errorf("mean has %d entries, want %d: %w", len(mean), FeatureCount, domain.ErrModelUnavailable)
	}
	if len(scale) != FeatureCount {
		return nil, fmt.Errorf("scale has %d entries, want %d: %w", len(scale), FeatureCount, domain.ErrModelUnavailable)
	}
	for i, v := range scale {
		if v == 0 {
			return nil, fmt.Errorf("scale[%d] is zero: %w", i, domain.ErrModelUnavailable)
		}
	}

	s := &StandardScaler{
		mean:  make([]float64, FeatureCount),
		scale: make([]float64, FeatureCount),
	}
	copy(s.mean, mean)
	copy(s.scale, scale)
	return s, nil
}

// Transform maps raw features into normalized model space.
func (s *StandardScaler) Transform(features []float64) ([]float64, error) {
	if len(features) != FeatureCount {
		return nil, fmt.Errorf("expected %d features, got %d: %w", FeatureCount, len(features), domain.ErrInvalidObservation)
	}
	scaled := make([]float64, FeatureCount)
	for i, v := range features {
		scaled[i] = (v - s.mean[i]) / s.scale[i]
	}
	return scaled, nil
}

// InverseTransform maps normalized features back to raw units. Used to
// recover center positions in millimeters and meters for risk ordering.
func (s *StandardScaler) InverseTransform(scaled []float64) ([]float64, error) {
	if len(scaled) != FeatureCount {
		return nil, fmt.Errorf("expected %d features, got %d", FeatureCount, len(scaled))
	}
	features := make([]float64, FeatureCount)
	for i, v := range scaled {
		features[i] = v*s.scale[i] + s.mean[i]
	}
	return features, nil
}
