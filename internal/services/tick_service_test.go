package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trade-engine/tick-viewer/internal/domain"
	"github.com/trade-engine/tick-viewer/internal/metadata"
	"github.com/trade-engine/tick-viewer/internal/remote"
	"github.com/trade-engine/tick-viewer/internal/sink/arrow"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func newTestService(t *testing.T, lister *fakeLister, clock Clock) *TickService {
	t.Helper()
	state := metadata.NewRefreshState()
	cache := newTestCache(lister, ListingCacheOptions{Source: "test", State: state})
	return NewTickService(zap.NewNop(), TickServiceDeps{
		Cache:        cache,
		Lister:       lister,
		Normalizer:   NewRowNormalizer("now_prc"),
		Exporter:     arrow.NewWriter(zap.NewNop(), t.TempDir()),
		State:        state,
		Clock:        clock,
		FetchTimeout: time.Second,
	})
}

func serviceLister() *fakeLister {
	return &fakeLister{
		pages: []remote.Page{{Files: []domain.RemoteFileRef{
			{ID: "bear", Name: "(e)df_npp_m_08-09-15-29.csv"},
			{ID: "bull", Name: "(e)df_npp_m_fut_08-09-15-29.csv"},
			{ID: "late", Name: "(e)df_npp_m_08-20-15-29.csv"},
			{ID: "bad", Name: "(e)df_npp_m_08-21-15-29.csv"},
		}}},
		contents: map[string]string{
			"bear": "time,now_prc,np1,np2,prf\n91530,1,0,0,1\n91531,1,0,0,3\n999999,1,0,0,9\n",
			"bull": "time,now_prc,np1,np2,prf\n91530,2,0,0,5\n",
			"bad":  "time,np1\n1,2\n",
		},
	}
}

func TestTickServiceListFiles(t *testing.T) {
	svc := newTestService(t, serviceLister(), &fixedClock{now: t0})
	ctx := context.Background()

	all, err := svc.ListFiles(ctx, FileQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	got, err := svc.ListFiles(ctx, FileQuery{Strategy: domain.StrategyBear, Start: day(2024, 8, 9), End: day(2024, 8, 9)})
	require.NoError(t, err)
	assert.Equal(t, []string{"bear"}, ids(got))
	assert.Equal(t, "K 08-09", got[0].Label())
}

func TestTickServiceLoadRecords(t *testing.T) {
	svc := newTestService(t, serviceLister(), &fixedClock{now: t0})
	ctx := context.Background()

	result, err := svc.LoadRecords(ctx, "bear")
	require.NoError(t, err)
	assert.Len(t, result.Records, 2)
	assert.Equal(t, 1, result.DroppedCount())

	_, err = svc.LoadRecords(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.LoadRecords(ctx, "bad")
	assert.ErrorIs(t, err, domain.ErrMalformedInput)
}

func TestTickServiceAverageFiles(t *testing.T) {
	svc := newTestService(t, serviceLister(), &fixedClock{now: t0})

	avg, err := svc.AverageFiles(context.Background(), []string{"bear", "bull", "bad", "missing"})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, avg.Points)
	assert.Equal(t, 2, avg.Series)
	assert.Equal(t, []string{"bad", "missing"}, avg.Skipped)

	_, err = svc.AverageFiles(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestTickServiceAverageFailsOnRemoteOutage(t *testing.T) {
	lister := serviceLister()
	lister.contentErr = map[string]error{"bull": domain.ErrRemoteUnavailable}
	svc := newTestService(t, lister, &fixedClock{now: t0})

	avg, err := svc.AverageFiles(context.Background(), []string{"bear", "bull"})
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
	assert.Nil(t, avg)
}

func TestTickServiceWrapsTransportErrors(t *testing.T) {
	lister := serviceLister()
	lister.contentErr = map[string]error{"bear": errors.New("connection reset")}
	svc := newTestService(t, lister, &fixedClock{now: t0})

	_, err := svc.LoadRecords(context.Background(), "bear")
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
	assert.ErrorContains(t, err, "connection reset")
}

func TestTickServiceFetchTimeout(t *testing.T) {
	lister := serviceLister()
	lister.contentDelay = time.Second
	svc := NewTickService(zap.NewNop(), TickServiceDeps{
		Cache:        newTestCache(lister, ListingCacheOptions{}),
		Lister:       lister,
		Normalizer:   NewRowNormalizer("now_prc"),
		Clock:        &fixedClock{now: t0},
		FetchTimeout: 20 * time.Millisecond,
	})

	start := time.Now()
	_, err := svc.LoadRecords(context.Background(), "bear")
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestTickServiceExport(t *testing.T) {
	svc := newTestService(t, serviceLister(), &fixedClock{now: t0})
	ctx := context.Background()

	_, err := svc.ListFiles(ctx, FileQuery{})
	require.NoError(t, err)

	path, err := svc.Export(ctx, "bear")
	require.NoError(t, err)

	records, meta, err := arrow.ReadRecords(path)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, "(e)df_npp_m_08-09-15-29.csv", meta.FileName)
	assert.Equal(t, 1, meta.Dropped)
}

func TestTickServiceExportDoesNotRefreshListing(t *testing.T) {
	lister := serviceLister()
	svc := newTestService(t, lister, &fixedClock{now: t0})

	path, err := svc.Export(context.Background(), "bear")
	require.NoError(t, err)
	assert.Zero(t, lister.calls())

	_, meta, err := arrow.ReadRecords(path)
	require.NoError(t, err)
	assert.Equal(t, "bear", meta.FileName)
}

func TestTickServiceStatus(t *testing.T) {
	clock := &fixedClock{now: t0}
	svc := newTestService(t, serviceLister(), clock)

	status := svc.Status()
	assert.False(t, status.Listing.Loaded)
	assert.Empty(t, status.Refreshes)

	_, err := svc.ListFiles(context.Background(), FileQuery{})
	require.NoError(t, err)

	clock.now = t0.Add(10 * time.Minute)
	status = svc.Status()
	assert.True(t, status.Listing.Loaded)
	assert.True(t, status.Listing.Stale)
	assert.Contains(t, status.Refreshes, "test")
}
