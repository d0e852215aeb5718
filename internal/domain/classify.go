package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// FeatureScaler normalizes raw feature vectors into the space the model was
// trained in, and back. The feature order is (rainfall_mm, elevation_m).
type FeatureScaler interface {
	Transform(features []float64) ([]float64, error)
	InverseTransform(scaled []float64) ([]float64, error)
}

// ClusterModel assigns normalized feature vectors to clusters.
type ClusterModel interface {
	// Predict returns the ID of the cluster whose center is nearest.
	// Equidistant centers resolve to the lowest cluster ID.
	Predict(scaled []float64) (int, error)

	// Distances returns the distance from the point to every center,
	// keyed by cluster ID, measured in normalized space.
	Distances(scaled []float64) map[int]float64
}

// CenterDistance is a labeled center annotated with its distance from the
// classified observation, in normalized model space. Raw-unit distances
// would mix millimeters with meters; the model's own metric is the only one
// that ranks centers consistently.
type CenterDistance struct {
	LabeledCenter
	Distance float64 `json:"distance"`
}

// ClassificationResult is the full outcome of classifying one observation:
// the winning cluster and category plus every labeled center with its
// distance, ordered most severe first.
type ClassificationResult struct {
	Observation  Observation      `json:"observation"`
	ClusterID    int              `json:"cluster_id"`
	Category     RiskCategory     `json:"category"`
	Centers      []CenterDistance `json:"centers"`
	ClassifiedAt time.Time        `json:"classified_at"`
}

// Classifier runs the scaler, model, and assignment chain for single
// observations. It holds only immutable collaborators and is safe for
// unlimited concurrent use.
type Classifier struct {
	scaler     FeatureScaler
	model      ClusterModel
	assignment *RiskAssignment
}

// NewClassifier assembles a classifier from a scaler, a model, and the risk
// assignment derived from that same model.
func NewClassifier(scaler FeatureScaler, model ClusterModel, assignment *RiskAssignment) *Classifier {
	return &Classifier{
		scaler:     scaler,
		model:      model,
		assignment: assignment,
	}
}

// Classify validates and classifies a single observation. Given the same
// observation and a fixed clock the result is fully deterministic.
func (c *Classifier) Classify(obs Observation) (ClassificationResult, error) {
	if err := validateObservation(obs); err != nil {
		return ClassificationResult{}, err
	}

	scaled, err := c.scaler.Transform([]float64{obs.RainfallMM, obs.ElevationM})
	if err != nil {
		return ClassificationResult{}, fmt.Errorf("scale observation: %w", err)
	}

	clusterID, err := c.model.Predict(scaled)
	if err != nil {
		return ClassificationResult{}, fmt.Errorf("predict cluster: %w", err)
	}

	category, ok := c.assignment.Category(clusterID)
	if !ok {
		return ClassificationResult{}, fmt.Errorf("cluster %d has no risk category: %w", clusterID, ErrAssignmentInconsistent)
	}

	distances := c.model.Distances(scaled)
	centers := c.assignment.Centers()
	ranked := make([]CenterDistance, len(centers))
	for i, center := range centers {
		ranked[i] = CenterDistance{
			LabeledCenter: center,
			Distance:      distances[center.ClusterID],
		}
	}

	return ClassificationResult{
		Observation:  obs,
		ClusterID:    clusterID,
		Category:     category,
		Centers:      ranked,
		ClassifiedAt: clock.Now(),
	}, nil
}

// validateObservation rejects non-finite features. Out-of-range but finite
// values are legitimate model inputs: the model answers with whatever
// cluster is nearest, never by clamping.
func validateObservation(obs Observation) error {
	features := []struct {
		name  string
		value float64
	}{
		{"rainfall_mm", obs.RainfallMM},
		{"elevation_m", obs.ElevationM},
	}
	for _, f := range features {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%s is %g: %w", f.name, f.value, ErrInvalidObservation)
		}
	}
	return nil
}

// SerializeResult marshals a result into an output message for the sink
// topic. The key is the station ID when present, otherwise a fresh UUID so
// downstream consumers always have a non-empty key to partition on.
func SerializeResult(result ClassificationResult) (OutputMessage, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return OutputMessage{}, fmt.Errorf("serialize classification result: %w", err)
	}

	key := result.Observation.StationID
	if key == "" {
		key = uuid.NewString()
	}

	return OutputMessage{
		Key:   []byte(key),
		Value: data,
		Headers: map[string]string{
			"risk_category": result.Category.Name,
			"classified_at": result.ClassifiedAt.UTC().Format(time.RFC3339),
		},
	}, nil
}
