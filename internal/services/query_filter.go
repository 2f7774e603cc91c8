package services

import (
	"strconv"
	"time"

	"github.com/trade-engine/tick-viewer/internal/domain"
)

// FileQuery holds optional listing constraints. Zero values mean "no constraint".
type FileQuery struct {
	Strategy domain.Strategy // StrategyUnknown or "" = any
	Start    time.Time       // inclusive, date part only
	End      time.Time       // inclusive, date part only
}

func (q FileQuery) hasDateRange() bool {
	return !q.Start.IsZero() || !q.End.IsZero()
}

func (q FileQuery) hasStrategy() bool {
	return q.Strategy != "" && q.Strategy != domain.StrategyUnknown
}

// FilterFiles returns the entries matching q, preserving order. Date tags are
// projected onto refYear before comparing with the query bounds.
func FilterFiles(entries []domain.ClassifiedFile, q FileQuery, refYear int) []domain.ClassifiedFile {
	startKey, endKey := -1, -1
	if !q.Start.IsZero() {
		startKey = dateKey(q.Start.Year(), int(q.Start.Month()), q.Start.Day())
	}
	if !q.End.IsZero() {
		endKey = dateKey(q.End.Year(), int(q.End.Month()), q.End.Day())
	}

	filtered := make([]domain.ClassifiedFile, 0, len(entries))
	for _, entry := range entries {
		if q.hasStrategy() && entry.StrategyTag != q.Strategy {
			continue
		}

		if q.hasDateRange() {
			md, ok := parseDateTag(entry.DateTag)
			if !ok {
				continue
			}
			key := dateKey(refYear, md.Month, md.Day)
			if startKey >= 0 && key < startKey {
				continue
			}
			if endKey >= 0 && key > endKey {
				continue
			}
		}

		filtered = append(filtered, entry)
	}

	return filtered
}

// dateKey orders dates as YYYYMMDD without normalizing Feb 29 in common years.
func dateKey(year, month, day int) int {
	return year*10000 + month*100 + day
}

func parseDateTag(tag string) (MonthDay, bool) {
	if len(tag) != 5 || tag[2] != '-' {
		return MonthDay{}, false
	}
	m, err := strconv.Atoi(tag[:2])
	if err != nil {
		return MonthDay{}, false
	}
	d, err := strconv.Atoi(tag[3:])
	if err != nil {
		return MonthDay{}, false
	}
	md := MonthDay{Month: m, Day: d}
	return md, md.valid()
}
