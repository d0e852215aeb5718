// Package classifier owns the model lifecycle: lazy loading, outcome
// caching, and explicit reload. It wraps the pure domain classifier with
// the locking and metrics the service layer needs.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/banjirlab/flood-risk-service/internal/domain"
	"github.com/banjirlab/flood-risk-service/internal/kmeans"
	"github.com/banjirlab/flood-risk-service/internal/observability"
)

// engine bundles the immutable collaborators produced by one successful
// load. Swapping the whole engine under the write lock means readers never
// observe a scaler from one bundle paired with centers from another.
type engine struct {
	scaler     *kmeans.StandardScaler
	model      *kmeans.Model
	assignment *domain.RiskAssignment
	classifier *domain.Classifier
}

// Provider serves classifications from a model bundle on disk. The bundle
// is loaded once on first use and the outcome, success or failure, is
// cached: a broken bundle keeps failing fast instead of hammering the
// filesystem per request, until Reload is called.
type Provider struct {
	bundlePath string
	scale      domain.SeverityScale
	logger     *slog.Logger
	metrics    *observability.Metrics

	mu      sync.RWMutex
	engine  *engine
	loadErr error
	loaded  bool
}

// NewProvider creates a provider for the bundle at path. No I/O happens
// until the first classification, Assignment call, or Reload.
func NewProvider(bundlePath string, scale domain.SeverityScale, logger *slog.Logger, metrics *observability.Metrics) *Provider {
	return &Provider{
		bundlePath: bundlePath,
		scale:      scale,
		logger:     logger,
		metrics:    metrics,
	}
}

// get returns the cached engine, loading it on first use. The read lock
// covers the common path; the write lock re-checks before loading so
// concurrent first callers trigger exactly one load.
func (p *Provider) get() (*engine, error) {
	p.mu.RLock()
	if p.loaded {
		eng, err := p.engine, p.loadErr
		p.mu.RUnlock()
		return eng, err
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return p.engine, p.loadErr
	}
	p.engine, p.loadErr = p.load()
	p.loaded = true
	return p.engine, p.loadErr
}

// load reads the bundle and assembles an engine from it. Called with no
// locks held beyond what the caller arranges.
func (p *Provider) load() (*engine, error) {
	start := time.Now()

	bundle, err := kmeans.Load(p.bundlePath)
	if err != nil {
		return nil, p.loadFailed(err)
	}

	scaler, model, err := kmeans.NewFromBundle(bundle)
	if err != nil {
		return nil, p.loadFailed(err)
	}

	centers, err := model.RawCenters(scaler)
	if err != nil {
		return nil, p.loadFailed(fmt.Errorf("recover raw centers: %w: %w", err, domain.ErrModelUnavailable))
	}

	assignment, err := domain.BuildAssignment(centers, p.scale)
	if err != nil {
		return nil, p.loadFailed(err)
	}

	p.metrics.ModelLoads.WithLabelValues("success").Inc()
	p.metrics.ModelClusters.Set(float64(assignment.Size()))
	p.metrics.ModelLoaded.Set(1)
	p.logger.Info("model bundle loaded",
		"path", p.bundlePath,
		"clusters", assignment.Size(),
		"duration", time.Since(start))

	return &engine{
		scaler:     scaler,
		model:      model,
		assignment: assignment,
		classifier: domain.NewClassifier(scaler, model, assignment),
	}, nil
}

func (p *Provider) loadFailed(err error) error {
	p.metrics.ModelLoads.WithLabelValues("error").Inc()
	p.metrics.ModelLoaded.Set(0)
	p.logger.Error("model bundle load failed", "path", p.bundlePath, "error", err)
	return err
}

// Reload loads the bundle fresh and replaces the cached state with the new
// outcome, failure included, so the provider always reflects the bundle
// currently on disk. The load runs outside the lock; readers keep serving
// the previous engine until the swap.
func (p *Provider) Reload() (*domain.RiskAssignment, error) {
	eng, err := p.load()

	p.mu.Lock()
	p.engine, p.loadErr = eng, err
	p.loaded = true
	p.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return eng.assignment, nil
}

// Classify runs one observation through the cached engine.
func (p *Provider) Classify(obs domain.Observation) (domain.ClassificationResult, error) {
	eng, err := p.get()
	if err != nil {
		p.metrics.ClassificationsTotal.WithLabelValues("model_unavailable").Inc()
		return domain.ClassificationResult{}, err
	}

	start := time.Now()
	result, err := eng.classifier.Classify(obs)
	if err != nil {
		p.metrics.ClassificationsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		if errors.Is(err, domain.ErrAssignmentInconsistent) {
			p.logger.Error("risk assignment out of sync with model",
				"clusters", eng.assignment.Size(),
				"error", err)
		}
		return domain.ClassificationResult{}, err
	}

	p.metrics.ClassificationsTotal.WithLabelValues("success").Inc()
	p.metrics.ClassificationsByCategory.WithLabelValues(result.Category.Name).Inc()
	p.metrics.ClassifyDuration.Observe(time.Since(start).Seconds())
	return result, nil
}

// Assignment returns the current cluster-to-risk assignment, loading the
// model on first use.
func (p *Provider) Assignment() (*domain.RiskAssignment, error) {
	eng, err := p.get()
	if err != nil {
		return nil, err
	}
	return eng.assignment, nil
}

// CheckReadiness reports whether the provider can serve classifications.
// An unloaded model counts as not ready; a cached load failure surfaces
// its cause.
func (p *Provider) CheckReadiness(_ context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.loaded {
		return errors.New("model not loaded yet")
	}
	if p.loadErr != nil {
		return fmt.Errorf("model unavailable: %v", p.loadErr)
	}
	return nil
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidObservation):
		return "invalid_observation"
	case errors.Is(err, domain.ErrAssignmentInconsistent):
		return "assignment_inconsistent"
	case errors.Is(err, domain.ErrModelUnavailable):
		return "model_unavailable"
	default:
		return "error"
	}
}
