package pipeline

import (
	"context"
	"log/slog"

	"github.com/banjirlab/flood-risk-service/internal/domain"
)

// Classifier is the single-observation surface the transformer needs.
type Classifier interface {
	Classify(obs domain.Observation) (domain.ClassificationResult, error)
}

// ClassifyTransformer implements Transformer by parsing station readings
// and running them through the classifier, with optional elevation
// enrichment.
type ClassifyTransformer struct {
	classifier Classifier
	resolver   domain.ElevationResolver
	logger     *slog.Logger
}

// NewTransformer creates a ClassifyTransformer. Pass a nil resolver to
// disable elevation enrichment.
func NewTransformer(classifier Classifier, resolver domain.ElevationResolver, logger *slog.Logger) *ClassifyTransformer {
	return &ClassifyTransformer{
		classifier: classifier,
		resolver:   resolver,
		logger:     logger,
	}
}

func (t *ClassifyTransformer) Transform(ctx context.Context, raw domain.RawMessage) (domain.OutputMessage, error) {
	reading, err := domain.ParseStationReading(raw)
	if err != nil {
		return domain.OutputMessage{}, err
	}

	reading = domain.EnrichWithElevation(ctx, reading, t.resolver, t.logger)

	obs, err := reading.Observation()
	if err != nil {
		return domain.OutputMessage{}, err
	}

	result, err := t.classifier.Classify(obs)
	if err != nil {
		return domain.OutputMessage{}, err
	}

	return domain.SerializeResult(result)
}
