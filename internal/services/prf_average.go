package services

import (
	"github.com/trade-engine/tick-viewer/internal/domain"
)

// PRFAverage is the index-aligned mean prf line across several files.
type PRFAverage struct {
	Points   []float64 `json:"points"`
	Max      float64   `json:"max"`
	MaxIndex int       `json:"max_index"`
	Series   int       `json:"series"`
	Skipped  []string  `json:"skipped,omitempty"` // file ids left out of the average
}

// AveragePRF aligns the prf series by row index and averages them. A series
// shorter than the longest one holds its last value to the end. Empty series
// are ignored; if every series is empty domain.ErrNoData is returned.
func AveragePRF(series [][]domain.NormalizedRecord) (*PRFAverage, error) {
	var (
		used   [][]domain.NormalizedRecord
		maxLen int
	)
	for _, s := range series {
		if len(s) == 0 {
			continue
		}
		used = append(used, s)
		if len(s) > maxLen {
			maxLen = len(s)
		}
	}
	if len(used) == 0 {
		return nil, domain.ErrNoData
	}

	avg := &PRFAverage{
		Points: make([]float64, maxLen),
		Series: len(used),
	}
	for i := 0; i < maxLen; i++ {
		var sum float64
		for _, s := range used {
			j := i
			if j >= len(s) {
				j = len(s) - 1
			}
			sum += s[j].PRF
		}
		avg.Points[i] = sum / float64(len(used))

		// first occurrence wins on ties
		if i == 0 || avg.Points[i] > avg.Max {
			avg.Max = avg.Points[i]
			avg.MaxIndex = i
		}
	}

	return avg, nil
}
