package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ListingRefresher keeps the listing cache warm in the background so request
// handlers rarely pay for a full pagination run. It only refreshes when the
// cache itself considers the snapshot expired.
type ListingRefresher struct {
	logger   *zap.Logger
	cache    *ListingCache
	clock    Clock
	interval time.Duration
}

func NewListingRefresher(logger *zap.Logger, cache *ListingCache, clock Clock, interval time.Duration) *ListingRefresher {
	if clock == nil {
		clock = SystemClock{}
	}
	return &ListingRefresher{
		logger:   logger,
		cache:    cache,
		clock:    clock,
		interval: interval,
	}
}

// EnsureFreshness refreshes the listing if it expired and returns the
// resulting snapshot description.
func (r *ListingRefresher) EnsureFreshness(ctx context.Context) (SnapshotInfo, error) {
	now := r.clock.Now()
	_, err := r.cache.GetListing(ctx, now)
	return r.cache.Info(now), err
}

// Run checks freshness immediately and then every interval until ctx is done.
// A non-positive interval disables the loop.
func (r *ListingRefresher) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		info, err := r.EnsureFreshness(ctx)
		if err != nil {
			r.logger.Warn("Background listing refresh failed", zap.Error(err))
		} else {
			r.logger.Debug(SummarizeSnapshot(info))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SummarizeSnapshot renders a one-line description of info.
func SummarizeSnapshot(info SnapshotInfo) string {
	if !info.Loaded {
		return "listing not loaded"
	}
	state := "fresh"
	if info.Stale {
		state = "stale"
	}
	return fmt.Sprintf("listing %s: %d entries over %d pages fetched %s (refresh %s)",
		state, info.Entries, info.Pages, info.FetchedAt.UTC().Format(time.RFC3339), info.RefreshID)
}
