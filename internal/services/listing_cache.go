package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trade-engine/tick-viewer/internal/domain"
	"github.com/trade-engine/tick-viewer/internal/metadata"
	"github.com/trade-engine/tick-viewer/internal/metrics"
	"github.com/trade-engine/tick-viewer/internal/remote"
)

// Clock supplies the current time to components that need one.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// DefaultMaxPages bounds a refresh against a store that never stops returning page tokens.
const DefaultMaxPages = 100

// ListingCacheOptions configures a ListingCache
type ListingCacheOptions struct {
	Source    string        // name used in refresh state, e.g. "drive"
	TTL       time.Duration // zero means DefaultTTL
	MaxPages  int
	Timeout   time.Duration // per refresh; zero disables
	State     *metadata.RefreshState
	StatePath string // persists State after each refresh when set
}

// ListingSnapshot is an immutable full listing. It is replaced wholesale on refresh.
type ListingSnapshot struct {
	Entries   []domain.ClassifiedFile
	FetchedAt time.Time
	Pages     int
	RefreshID string
}

// SnapshotInfo summarizes the current snapshot for status reporting.
type SnapshotInfo struct {
	Loaded    bool      `json:"loaded"`
	Stale     bool      `json:"stale"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
	Entries   int       `json:"entries"`
	Pages     int       `json:"pages"`
	RefreshID string    `json:"refresh_id,omitempty"`
	TTL       string    `json:"ttl"`
}

// ListingCache serves the classified remote listing, re-fetching every page
// once the snapshot is older than the TTL.
type ListingCache struct {
	logger     *zap.Logger
	lister     remote.Lister
	classifier *FileClassifier
	opts       ListingCacheOptions

	// mu serializes check -> refresh -> replace
	mu          sync.Mutex
	invalidated bool
	snapshot    atomic.Pointer[ListingSnapshot]
}

// DefaultTTL is the listing cache lifetime when none is configured.
const DefaultTTL = 300 * time.Second

func NewListingCache(logger *zap.Logger, lister remote.Lister, classifier *FileClassifier, opts ListingCacheOptions) *ListingCache {
	if opts.TTL == 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Source == "" {
		opts.Source = "remote"
	}
	return &ListingCache{
		logger:     logger,
		lister:     lister,
		classifier: classifier,
		opts:       opts,
	}
}

// GetListing returns the classified listing as of now, refreshing it when the
// snapshot is missing or older than the TTL. A failed refresh returns
// domain.ErrRemoteUnavailable and keeps the previous snapshot unserved.
func (lc *ListingCache) GetListing(ctx context.Context, now time.Time) ([]domain.ClassifiedFile, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	snap := lc.snapshot.Load()
	if snap != nil && !lc.invalidated && now.Sub(snap.FetchedAt) <= lc.opts.TTL {
		return slices.Clone(snap.Entries), nil
	}

	start := time.Now()
	fresh, err := lc.refresh(ctx, now)
	if err != nil {
		metrics.RecordListingRefresh(lc.opts.Source, false, time.Since(start), 0)
		return nil, err
	}
	metrics.RecordListingRefresh(lc.opts.Source, true, time.Since(start), len(fresh.Entries))

	lc.snapshot.Store(fresh)
	lc.invalidated = false
	return slices.Clone(fresh.Entries), nil
}

// Invalidate forces the next GetListing call to refresh.
func (lc *ListingCache) Invalidate() {
	lc.mu.Lock()
	lc.invalidated = true
	lc.mu.Unlock()
}

// Lookup finds id in the current snapshot without refreshing it.
func (lc *ListingCache) Lookup(id string) (domain.ClassifiedFile, bool) {
	snap := lc.snapshot.Load()
	if snap == nil {
		return domain.ClassifiedFile{}, false
	}
	for _, e := range snap.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return domain.ClassifiedFile{}, false
}

// Info describes the current snapshot without waiting on an in-flight refresh.
func (lc *ListingCache) Info(now time.Time) SnapshotInfo {
	info := SnapshotInfo{TTL: lc.opts.TTL.String()}
	snap := lc.snapshot.Load()
	if snap == nil {
		info.Stale = true
		return info
	}
	info.Loaded = true
	info.Stale = now.Sub(snap.FetchedAt) > lc.opts.TTL
	info.FetchedAt = snap.FetchedAt
	info.Entries = len(snap.Entries)
	info.Pages = snap.Pages
	info.RefreshID = snap.RefreshID
	return info
}

func (lc *ListingCache) refresh(ctx context.Context, now time.Time) (*ListingSnapshot, error) {
	if lc.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, lc.opts.Timeout)
		defer cancel()
	}

	var (
		refs  []domain.RemoteFileRef
		token string
		pages int
	)
	for {
		if pages == lc.opts.MaxPages {
			lc.logger.Error("Listing refresh exceeded page limit",
				zap.String("source", lc.opts.Source),
				zap.Int("max_pages", lc.opts.MaxPages))
			return nil, fmt.Errorf("%w: listing exceeded %d pages", domain.ErrRemoteUnavailable, lc.opts.MaxPages)
		}

		page, err := lc.lister.List(ctx, token)
		if err != nil {
			metrics.RecordRemoteError("list")
			lc.logger.Error("Listing refresh failed",
				zap.String("source", lc.opts.Source),
				zap.Int("page", pages+1),
				zap.Error(err))
			if errors.Is(err, domain.ErrRemoteUnavailable) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
		}
		pages++
		refs = append(refs, page.Files...)

		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}

	entries := make([]domain.ClassifiedFile, 0, len(refs))
	for _, ref := range refs {
		if !lc.classifier.Matches(ref.Name) {
			continue
		}
		entries = append(entries, lc.classifier.ClassifyRef(ref))
	}

	snap := &ListingSnapshot{
		Entries:   entries,
		FetchedAt: now,
		Pages:     pages,
		RefreshID: uuid.New().String(),
	}

	lc.logger.Info("Listing refreshed",
		zap.String("source", lc.opts.Source),
		zap.String("refresh_id", snap.RefreshID),
		zap.Int("pages", pages),
		zap.Int("remote_files", len(refs)),
		zap.Int("entries", len(entries)))

	if lc.opts.State != nil {
		lc.opts.State.Update(lc.opts.Source, metadata.RefreshRecord{
			RefreshID: snap.RefreshID,
			FetchedAt: now,
			Entries:   len(entries),
			Pages:     pages,
		})
		if lc.opts.StatePath != "" {
			if err := lc.opts.State.Save(lc.opts.StatePath); err != nil {
				lc.logger.Warn("Failed to persist refresh state",
					zap.String("path", lc.opts.StatePath),
					zap.Error(err))
			}
		}
	}

	return snap, nil
}
