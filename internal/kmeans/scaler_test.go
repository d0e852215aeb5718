package kmeans

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banjirlab/flood-risk-service/internal/domain"
)

func TestNewStandardScaler(t *testing.T) {
	tests := []struct {
		name    string
		mean    []float64
		scale   []float64
		wantErr string
	}{
		{
			name:  "valid parameters",
			mean:  []float64{250, 18},
			scale: []float64{100, 16},
		},
		{
			name:    "mean too short",
			mean:    []float64{250},
			scale:   []float64{100, 16},
			wantErr: "mean has 1 entries",
		},
		{
			name:    "scale too long",
			mean:    []float64{250, 18},
			scale:   []float64{100, 16, 4},
			wantErr: "scale has 3 entries",
		},
		{
			name:    "zero scale",
			mean:    []float64{250, 18},
			scale:   []float64{100, 0},
			wantErr: "scale[1] is zero",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scaler, err := NewStandardScaler(tt.mean, tt.scale)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrModelUnavailable)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, scaler)
		})
	}
}

func TestStandardScalerTransform(t *testing.T) {
	scaler, err := NewStandardScaler([]float64{250, 18}, []float64{100, 16})
	require.NoError(t, err)

	t.Run("centers the mean at zero", func(t *testing.T) {
		scaled, err := scaler.Transform([]float64{250, 18})
		require.NoError(t, err)
		assert.InDelta(t, 0, scaled[0], 1e-12)
		assert.InDelta(t, 0, scaled[1], 1e-12)
	})

	t.Run("scales by per-feature spread", func(t *testing.T) {
		scaled, err := scaler.Transform([]float64{400, 1})
		require.NoError(t, err)
		assert.InDelta(t, 1.5, scaled[0], 1e-12)
		assert.InDelta(t, -1.0625, scaled[1], 1e-12)
	})

	t.Run("rejects wrong width", func(t *testing.T) {
		_, err := scaler.Transform([]float64{400})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidObservation)
	})
}

func TestStandardScalerInverseTransform(t *testing.T) {
	scaler, err := NewStandardScaler([]float64{250, 18}, []float64{100, 16})
	require.NoError(t, err)

	t.Run("round trip recovers raw features", func(t *testing.T) {
		raw := []float64{312.5, 4.25}
		scaled, err := scaler.Transform(raw)
		require.NoError(t, err)
		back, err := scaler.InverseTransform(scaled)
		require.NoError(t, err)
		assert.InDelta(t, raw[0], back[0], 1e-9)
		assert.InDelta(t, raw[1], back[1], 1e-9)
	})

	t.Run("rejects wrong width", func(t *testing.T) {
		_, err := scaler.InverseTransform([]float64{0, 0, 0})
		require.Error(t, err)
	})
}

func TestNewStandardScalerCopiesParameters(t *testing.T) {
	mean := []float64{250, 18}
	scale := []float64{100, 16}
	scaler, err := NewStandardScaler(mean, scale)
	require.NoError(t, err)

	mean[0] = 9999
	scale[1] = 9999

	scaled, err := scaler.Transform([]float64{250, 18})
	require.NoError(t, err)
	assert.InDelta(t, 0, scaled[0], 1e-12)
	assert.InDelta(t, 0, scaled[1], 1e-12)
}
