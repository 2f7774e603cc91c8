package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trade-engine/tick-viewer/internal/domain"
)

func prfSeries(values ...float64) []domain.NormalizedRecord {
	out := make([]domain.NormalizedRecord, len(values))
	for i, v := range values {
		out[i] = domain.NormalizedRecord{PRF: v}
	}
	return out
}

func TestAveragePRFHoldsLastValue(t *testing.T) {
	avg, err := AveragePRF([][]domain.NormalizedRecord{
		prfSeries(1, 2, 3, 4),
		prfSeries(3, 6),
	})
	require.NoError(t, err)

	assert.Equal(t, []float64{2, 4, 4.5, 5}, avg.Points)
	assert.Equal(t, 5.0, avg.Max)
	assert.Equal(t, 3, avg.MaxIndex)
	assert.Equal(t, 2, avg.Series)
}

func TestAveragePRFFirstMaxWins(t *testing.T) {
	avg, err := AveragePRF([][]domain.NormalizedRecord{prfSeries(1, 5, 5, 2)})
	require.NoError(t, err)
	assert.Equal(t, 1, avg.MaxIndex)
}

func TestAveragePRFNegativeValues(t *testing.T) {
	avg, err := AveragePRF([][]domain.NormalizedRecord{prfSeries(-3, -1, -2)})
	require.NoError(t, err)
	assert.Equal(t, -1.0, avg.Max)
	assert.Equal(t, 1, avg.MaxIndex)
}

func TestAveragePRFIgnoresEmptySeries(t *testing.T) {
	avg, err := AveragePRF([][]domain.NormalizedRecord{nil, prfSeries(2, 4)})
	require.NoError(t, err)
	assert.Equal(t, 1, avg.Series)
	assert.Equal(t, []float64{2, 4}, avg.Points)

	_, err = AveragePRF([][]domain.NormalizedRecord{nil, {}})
	assert.ErrorIs(t, err, domain.ErrNoData)
}
