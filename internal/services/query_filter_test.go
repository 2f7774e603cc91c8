package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trade-engine/tick-viewer/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func classified(id, date string, s domain.Strategy) domain.ClassifiedFile {
	return domain.ClassifiedFile{
		RemoteFileRef: domain.RemoteFileRef{ID: id, Name: id},
		DateTag:       date,
		StrategyTag:   s,
	}
}

func ids(files []domain.ClassifiedFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.ID)
	}
	return out
}

var filterFixture = []domain.ClassifiedFile{
	classified("a", "08-09", domain.StrategyBear),
	classified("b", "08-09", domain.StrategyBull),
	classified("c", domain.UnknownDate, domain.StrategyBull),
	classified("d", "08-15", domain.StrategyBear),
	classified("e", "12-31", domain.StrategyUnknown),
}

func TestFilterNoConstraints(t *testing.T) {
	got := FilterFiles(filterFixture, FileQuery{}, 2024)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(got))
}

func TestFilterByStrategy(t *testing.T) {
	assert.Equal(t, []string{"b", "c"}, ids(FilterFiles(filterFixture, FileQuery{Strategy: domain.StrategyBull}, 2024)))
	assert.Equal(t, []string{"a", "d"}, ids(FilterFiles(filterFixture, FileQuery{Strategy: domain.StrategyBear}, 2024)))
}

func TestFilterInclusiveBounds(t *testing.T) {
	q := FileQuery{Start: day(2024, 8, 9), End: day(2024, 8, 9)}
	assert.Equal(t, []string{"a", "b"}, ids(FilterFiles(filterFixture, q, 2024)))

	q = FileQuery{Start: day(2024, 8, 10), End: day(2024, 8, 20)}
	assert.Equal(t, []string{"d"}, ids(FilterFiles(filterFixture, q, 2024)))
}

func TestFilterExcludesUnknownDatesWhenRanged(t *testing.T) {
	q := FileQuery{Start: day(2024, 1, 1), End: day(2024, 12, 31)}
	got := FilterFiles(filterFixture, q, 2024)
	assert.NotContains(t, ids(got), "c")
	assert.Equal(t, []string{"a", "b", "d", "e"}, ids(got))
}

func TestFilterOpenEndedBounds(t *testing.T) {
	assert.Equal(t, []string{"d", "e"}, ids(FilterFiles(filterFixture, FileQuery{Start: day(2024, 8, 10)}, 2024)))
	assert.Equal(t, []string{"a", "b"}, ids(FilterFiles(filterFixture, FileQuery{End: day(2024, 8, 9)}, 2024)))
}

func TestFilterProjectsOntoReferenceYear(t *testing.T) {
	q := FileQuery{Start: day(2024, 8, 9), End: day(2024, 8, 9)}
	assert.Empty(t, FilterFiles(filterFixture, q, 2025))
}

func TestFilterComposesConstraints(t *testing.T) {
	q := FileQuery{Strategy: domain.StrategyBull, Start: day(2024, 8, 1), End: day(2024, 8, 31)}
	assert.Equal(t, []string{"b"}, ids(FilterFiles(filterFixture, q, 2024)))
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	in := append([]domain.ClassifiedFile(nil), filterFixture...)
	_ = FilterFiles(in, FileQuery{Strategy: domain.StrategyBear, Start: day(2024, 8, 9)}, 2024)
	assert.Equal(t, filterFixture, in)
}

func TestFilterIgnoresTimeOfDayInBounds(t *testing.T) {
	q := FileQuery{
		Start: time.Date(2024, 8, 9, 23, 59, 0, 0, time.UTC),
		End:   time.Date(2024, 8, 9, 0, 1, 0, 0, time.UTC),
	}
	assert.Equal(t, []string{"a", "b"}, ids(FilterFiles(filterFixture, q, 2024)))
}
