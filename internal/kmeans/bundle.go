// Package kmeans loads trained clustering model bundles and evaluates them.
//
// A bundle is a single JSON document exported at training time. It carries
// the standardization parameters and the cluster centers in normalized
// space, in feature order (rainfall_mm, elevation_m). Cluster IDs are the
// center indices, so centers[3] is cluster 3. Every shape problem in a
// bundle surfaces as [domain.ErrModelUnavailable]: a malformed model is an
// operational fault, never a per-request one.
package kmeans

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/banjirlab/flood-risk-service/internal/domain"
)

// expectedFeatureNames is the feature order every bundle must use. Bundles
// that omit feature_names are accepted for backward compatibility with
// early exports.
var expectedFeatureNames = []string{"rainfall_mm", "elevation_m"}

// ScalerParams holds per-feature standardization parameters.
type ScalerParams struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Bundle is the on-disk model artifact.
type Bundle struct {
	FeatureNames []string     `json:"feature_names"`
	Scaler       ScalerParams `json:"scaler"`
	Centers      [][]float64  `json:"centers"`
	TrainedAt    time.Time    `json:"trained_at,omitzero"`
	Source       string       `json:"source,omitempty"`
}

// Load reads and validates a bundle from disk.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model bundle %s: %w: %w", path, err, domain.ErrModelUnavailable)
	}

	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("parse model bundle %s: %w: %w", path, err, domain.ErrModelUnavailable)
	}

	if err := bundle.Validate(); err != nil {
		return nil, fmt.Errorf("validate model bundle %s: %w", path, err)
	}
	return &bundle, nil
}

// Validate checks the bundle's internal consistency. All failures wrap
// [domain.ErrModelUnavailable].
func (b *Bundle) Validate() error {
	if len(b.FeatureNames) > 0 {
		if len(b.FeatureNames) != FeatureCount {
			return fmt.Errorf("expected %d feature names, got %d: %w", FeatureCount, len(b.FeatureNames), domain.ErrModelUnavailable)
		}
		for i, name := range b.FeatureNames {
			if name != expectedFeatureNames[i] {
				return fmt.Errorf("feature %d is %q, want %q: %w", i, name, expectedFeatureNames[i], domain.ErrModelUnavailable)
			}
		}
	}

	if len(b.Scaler.Mean) != FeatureCount {
		return fmt.Errorf("scaler mean has %d entries, want %d: %w", len(b.Scaler.Mean), FeatureCount, domain.ErrModelUnavailable)
	}
	if len(b.Scaler.Scale) != FeatureCount {
		return fmt.Errorf("scaler scale has %d entries, want %d: %w", len(b.Scaler.Scale), FeatureCount, domain.ErrModelUnavailable)
	}
	for i, v := range b.Scaler.Mean {
		if !isFinite(v) {
			return fmt.Errorf("scaler mean[%d] is %g: %w", i, v, domain.ErrModelUnavailable)
		}
	}
	for i, v := range b.Scaler.Scale {
		if !isFinite(v) {
			return fmt.Errorf("scaler scale[%d] is %g: %w", i, v, domain.ErrModelUnavailable)
		}
		if v == 0 {
			return fmt.Errorf("scaler scale[%d] is zero: %w", i, domain.ErrModelUnavailable)
		}
	}

	if len(b.Centers) == 0 {
		return fmt.Errorf("bundle has no cluster centers: %w", domain.ErrModelUnavailable)
	}
	for i, center := range b.Centers {
		if len(center) != FeatureCount {
			return fmt.Errorf("center %d has %d features, want %d: %w", i, len(center), FeatureCount, domain.ErrModelUnavailable)
		}
		for j, v := range center {
			if !isFinite(v) {
				return fmt.Errorf("center %d feature %d is %g: %w", i, j, v, domain.ErrModelUnavailable)
			}
		}
	}
	return nil
}

// NewFromBundle builds the scaler and model a validated bundle describes.
func NewFromBundle(b *Bundle) (*StandardScaler, *Model, error) {
	scaler, err := NewStandardScaler(b.Scaler.Mean, b.Scaler.Scale)
	if err != nil {
		return nil, nil, fmt.Errorf("build scaler: %w", err)
	}
	model, err := NewModel(b.Centers)
	if err != nil {
		return nil, nil, fmt.Errorf("build model: %w", err)
	}
	return scaler, model, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
