package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banjirlab/flood-risk-service/internal/domain"
	"github.com/banjirlab/flood-risk-service/internal/observability"
	"github.com/banjirlab/flood-risk-service/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawMessage
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawMessage, error) {
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	err      error            // fails every message when set
	failKeys map[string]error // per-message failures by key
	calls    int
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawMessage) (domain.OutputMessage, error) {
	m.calls++
	if m.err != nil {
		return domain.OutputMessage{}, m.err
	}
	if err, ok := m.failKeys[string(raw.Key)]; ok {
		return domain.OutputMessage{}, err
	}
	return domain.OutputMessage{Key: raw.Key, Value: raw.Value}, nil
}

type mockLoader struct {
	err     error
	batches [][]domain.OutputMessage
}

func (m *mockLoader) LoadBatch(_ context.Context, results []domain.OutputMessage) error {
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, results)
	return nil
}

func (m *mockLoader) loaded() []domain.OutputMessage {
	var all []domain.OutputMessage
	for _, batch := range m.batches {
		all = append(all, batch...)
	}
	return all
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- helpers ---

func makeReading(t *testing.T, stationID string, rainfall, elevation float64) domain.RawMessage {
	t.Helper()
	data, err := json.Marshal(domain.StationReading{
		StationID:  stationID,
		RainfallMM: &rainfall,
		ElevationM: &elevation,
	})
	require.NoError(t, err)
	return domain.RawMessage{
		Key:   []byte(stationID),
		Value: data,
		Topic: "station-readings",
	}
}

// trackCommits wires every message's Commit callback to record its key.
func trackCommits(msgs []domain.RawMessage) map[string]bool {
	committed := make(map[string]bool)
	for i := range msgs {
		key := string(msgs[i].Key)
		msgs[i].Commit = func(_ context.Context) error {
			committed[key] = true
			return nil
		}
	}
	return committed
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	batch := []domain.RawMessage{
		makeReading(t, "LSM-001", 400, 1),
		makeReading(t, "LSM-002", 0, 99),
		makeReading(t, "LSM-003", 300, 10),
	}

	ext := &mockExtractor{batches: [][]domain.RawMessage{batch}}
	tfm := &mockTransformer{}
	ldr := &mockLoader{}

	p := pipeline.New(ext, tfm, ldr, discardLogger(), newTestMetrics(), 50)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	require.Len(t, ldr.batches, 1)
	assert.Len(t, ldr.batches[0], 3)
	assert.Equal(t, []byte("LSM-001"), ldr.batches[0][0].Key)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no batches, will block
	tfm := &mockTransformer{}
	ldr := &mockLoader{}

	p := pipeline.New(ext, tfm, ldr, discardLogger(), newTestMetrics(), 50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, ldr.loaded())
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	batch := []domain.RawMessage{
		makeReading(t, "LSM-001", 400, 1),
		makeReading(t, "LSM-002", 0, 99),
	}
	committed := trackCommits(batch)

	ext := &mockExtractor{batches: [][]domain.RawMessage{batch}}
	p := pipeline.New(ext, &mockTransformer{}, &mockLoader{}, discardLogger(), newTestMetrics(), 50)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.True(t, committed["LSM-001"])
	assert.True(t, committed["LSM-002"])
}

func TestPipeline_Run_PoisonMessageSkipped(t *testing.T) {
	batch := []domain.RawMessage{
		makeReading(t, "LSM-001", 400, 1),
		makeReading(t, "LSM-005", 0, 0),
		makeReading(t, "LSM-006", 200, 30),
	}
	committed := trackCommits(batch)

	ext := &mockExtractor{batches: [][]domain.RawMessage{batch}}
	tfm := &mockTransformer{failKeys: map[string]error{
		"LSM-005": fmt.Errorf("rainfall_mm missing: %w", domain.ErrInvalidObservation),
	}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, tfm, ldr, discardLogger(), newTestMetrics(), 50)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))

	// The poison message is committed and skipped; the rest flow through.
	loaded := ldr.loaded()
	require.Len(t, loaded, 2)
	assert.Equal(t, []byte("LSM-001"), loaded[0].Key)
	assert.Equal(t, []byte("LSM-006"), loaded[1].Key)
	assert.True(t, committed["LSM-005"])
	assert.True(t, committed["LSM-001"])
	assert.True(t, committed["LSM-006"])
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ModelUnavailableAbortsBatch(t *testing.T) {
	batch := []domain.RawMessage{
		makeReading(t, "LSM-001", 400, 1),
		makeReading(t, "LSM-002", 0, 99),
	}
	committed := trackCommits(batch)

	ext := &mockExtractor{batches: [][]domain.RawMessage{batch}}
	tfm := &mockTransformer{err: fmt.Errorf("read model bundle: %w", domain.ErrModelUnavailable)}
	ldr := &mockLoader{}

	p := pipeline.New(ext, tfm, ldr, discardLogger(), newTestMetrics(), 50)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))

	// Nothing is loaded and nothing is committed: the readings are valid
	// and must be redelivered once the model is back.
	assert.Empty(t, ldr.loaded())
	assert.False(t, committed["LSM-001"])
	assert.False(t, committed["LSM-002"])
	assert.Equal(t, 1, tfm.calls, "batch aborts on the first failure")
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	batch := []domain.RawMessage{makeReading(t, "LSM-001", 400, 1)}
	committed := trackCommits(batch)

	ext := &mockExtractor{batches: [][]domain.RawMessage{batch}}
	ldr := &mockLoader{err: errors.New("broker unreachable")}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), newTestMetrics(), 50)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.False(t, committed["LSM-001"])
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_CheckReadiness_NotReadyBeforeFirstBatch(t *testing.T) {
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, &mockLoader{}, discardLogger(), newTestMetrics(), 50)

	err := p.CheckReadiness(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not processed any messages")
}
