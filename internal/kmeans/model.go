package kmeans

import (
	"fmt"
	"math"

	"github.com/banjirlab/flood-risk-service/internal/domain"
)

// Model holds cluster centers in normalized space. Cluster IDs are center
// indices. It satisfies [domain.ClusterModel] and is immutable after
// construction, so a single instance serves all goroutines.
type Model struct {
	centers [][]float64
}

// NewModel builds a model from normalized centers, deep-copying them.
func NewModel(centers [][]float64) (*Model, error) {
	if len(centers) == 0 {
		return nil, fmt.Errorf("no cluster centers: %w", domain.ErrModelUnavailable)
	}
	owned := make([][]float64, len(centers))
	for i, center := range centers {
		if len(center) != FeatureCount {
			return nil, fmt.Errorf("center %d has %d features, want %d: %w", i, len(center), FeatureCount, domain.ErrModelUnavailable)
		}
		owned[i] = make([]float64, FeatureCount)
		copy(owned[i], center)
	}
	return &Model{centers: owned}, nil
}

// Predict returns the cluster whose center is nearest to the point by
// Euclidean distance. Comparison uses squared distances; the ranking is
// identical and the square root is not worth paying per center. A strict
// less-than keeps ties on the lowest cluster ID.
func (m *Model) Predict(scaled []float64) (int, error) {
	if len(scaled) != FeatureCount {
		return 0, fmt.Errorf("expected %d features, got %d", FeatureCount, len(scaled))
	}
	best := 0
	bestDist := squaredDistance(scaled, m.centers[0])
	for i := 1; i < len(m.centers); i++ {
		if d := squaredDistance(scaled, m.centers[i]); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, nil
}

// Distances returns the Euclidean distance from the point to every center,
// keyed by cluster ID.
func (m *Model) Distances(scaled []float64) map[int]float64 {
	distances := make(map[int]float64, len(m.centers))
	for i, center := range m.centers {
		distances[i] = math.Sqrt(squaredDistance(scaled, center))
	}
	return distances
}

// ClusterCount returns the number of clusters in the model.
func (m *Model) ClusterCount() int {
	return len(m.centers)
}

// RawCenters converts the normalized centers back to raw units through the
// scaler's inverse transform. The result feeds risk assignment, which
// orders centers by their raw elevation.
func (m *Model) RawCenters(scaler domain.FeatureScaler) ([]domain.ClusterCenter, error) {
	centers := make([]domain.ClusterCenter, len(m.centers))
	for i, center := range m.centers {
		raw, err := scaler.InverseTransform(center)
		if err != nil {
			return nil, fmt.Errorf("invert center %d: %w", i, err)
		}
		centers[i] = domain.ClusterCenter{
			ClusterID:  i,
			RainfallMM: raw[0],
			ElevationM: raw[1],
		}
	}
	return centers, nil
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
