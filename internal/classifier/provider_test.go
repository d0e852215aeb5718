package classifier

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banjirlab/flood-risk-service/internal/domain"
	"github.com/banjirlab/flood-risk-service/internal/observability"
)

const (
	mockBundleK3 = "../../data/mock/flood_model_k3.json"
	mockBundleK5 = "../../data/mock/flood_model_k5.json"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProvider(path string) *Provider {
	return NewProvider(path, domain.DefaultSeverityScale(), discardLogger(), observability.NewMetricsForTesting())
}

// copyBundle stages a mock bundle at a writable path so tests can replace
// it between loads.
func copyBundle(t *testing.T, src, dst string) {
	t.Helper()
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dst, data, 0o600))
}

// --- tests ---

func TestProviderClassify(t *testing.T) {
	provider := newTestProvider(mockBundleK3)

	tests := []struct {
		name         string
		obs          domain.Observation
		wantCluster  int
		wantCategory string
	}{
		{
			name:         "heavy rain on low ground",
			obs:          domain.Observation{RainfallMM: 400, ElevationM: 1, StationID: "LSM-001"},
			wantCluster:  1,
			wantCategory: "Severe",
		},
		{
			name:         "dry highland",
			obs:          domain.Observation{RainfallMM: 0, ElevationM: 99, StationID: "LSM-002"},
			wantCluster:  0,
			wantCategory: "Safe",
		},
		{
			name:         "moderate mid-elevation",
			obs:          domain.Observation{RainfallMM: 300, ElevationM: 10, StationID: "LSM-003"},
			wantCluster:  2,
			wantCategory: "Caution",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := provider.Classify(tt.obs)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCluster, result.ClusterID)
			assert.Equal(t, tt.wantCategory, result.Category.Name)
			assert.Len(t, result.Centers, 3)
		})
	}

	t.Run("invalid observation", func(t *testing.T) {
		_, err := provider.Classify(domain.Observation{RainfallMM: math.NaN(), ElevationM: 1})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidObservation)
	})
}

func TestProviderClassify_MissingBundle(t *testing.T) {
	provider := newTestProvider(filepath.Join(t.TempDir(), "absent.json"))

	_, err := provider.Classify(domain.Observation{RainfallMM: 100, ElevationM: 5})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestProviderLoadsOnce(t *testing.T) {
	provider := newTestProvider(mockBundleK3)

	const callers = 20
	assignments := make([]*domain.RiskAssignment, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assignment, err := provider.Assignment()
			assert.NoError(t, err)
			assignments[i] = assignment
		}()
	}
	wg.Wait()

	// One load means one engine: every caller must see the same pointer.
	for i := 1; i < callers; i++ {
		assert.Same(t, assignments[0], assignments[i])
	}
}

func TestProviderCachesLoadFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flood_model.json")
	provider := newTestProvider(path)

	_, err := provider.Classify(domain.Observation{RainfallMM: 100, ElevationM: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)

	// Fixing the file on disk is not enough: the failure stays cached
	// until an explicit reload.
	copyBundle(t, mockBundleK3, path)

	_, err = provider.Classify(domain.Observation{RainfallMM: 100, ElevationM: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)

	readyErr := provider.CheckReadiness(context.Background())
	require.Error(t, readyErr)
	assert.Contains(t, readyErr.Error(), "model unavailable")

	assignment, err := provider.Reload()
	require.NoError(t, err)
	assert.Equal(t, 3, assignment.Size())

	result, err := provider.Classify(domain.Observation{RainfallMM: 400, ElevationM: 1})
	require.NoError(t, err)
	assert.Equal(t, "Severe", result.Category.Name)
	assert.NoError(t, provider.CheckReadiness(context.Background()))
}

func TestProviderReload_SwapsModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flood_model.json")
	copyBundle(t, mockBundleK3, path)
	provider := newTestProvider(path)

	assignment, err := provider.Assignment()
	require.NoError(t, err)
	assert.Equal(t, 3, assignment.Size())

	copyBundle(t, mockBundleK5, path)

	reloaded, err := provider.Reload()
	require.NoError(t, err)
	assert.Equal(t, 5, reloaded.Size())

	// Five clusters against a three-level scale: the extra ones carry
	// generated filler categories.
	centers := reloaded.Centers()
	assert.Equal(t, "Severe", centers[0].Category.Name)
	assert.Equal(t, "Level 3", centers[3].Category.Name)
	assert.Equal(t, "Level 4", centers[4].Category.Name)
}

func TestProviderReload_BrokenBundleReplacesEngine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flood_model.json")
	copyBundle(t, mockBundleK3, path)
	provider := newTestProvider(path)

	_, err := provider.Classify(domain.Observation{RainfallMM: 400, ElevationM: 1})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{corrupt"), 0o600))

	_, err = provider.Reload()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)

	// The provider reflects the bundle on disk, so the good engine is gone.
	_, err = provider.Classify(domain.Observation{RainfallMM: 400, ElevationM: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestProviderCheckReadiness_NotLoadedYet(t *testing.T) {
	provider := newTestProvider(mockBundleK3)

	err := provider.CheckReadiness(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not loaded yet")
}

func TestOutcomeLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "invalid observation", err: domain.ErrInvalidObservation, want: "invalid_observation"},
		{name: "assignment inconsistent", err: domain.ErrAssignmentInconsistent, want: "assignment_inconsistent"},
		{name: "model unavailable", err: domain.ErrModelUnavailable, want: "model_unavailable"},
		{name: "anything else", err: context.Canceled, want: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outcomeLabel(tt.err))
		})
	}
}
