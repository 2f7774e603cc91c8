package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/trade-engine/tick-viewer/internal/domain"
	"github.com/trade-engine/tick-viewer/internal/metadata"
	"github.com/trade-engine/tick-viewer/internal/metrics"
	"github.com/trade-engine/tick-viewer/internal/remote"
	"github.com/trade-engine/tick-viewer/internal/sink"
)

// TickService answers listing, data, average and export requests.
type TickService struct {
	logger       *zap.Logger
	cache        *ListingCache
	lister       remote.Lister
	normalizer   *RowNormalizer
	exporter     sink.Exporter
	state        *metadata.RefreshState
	clock        Clock
	fetchTimeout time.Duration
}

// TickServiceDeps bundles the collaborators of a TickService
type TickServiceDeps struct {
	Cache        *ListingCache
	Lister       remote.Lister
	Normalizer   *RowNormalizer
	Exporter     sink.Exporter // optional
	State        *metadata.RefreshState
	Clock        Clock
	FetchTimeout time.Duration
}

// StatusReport describes the listing cache and recorded refreshes.
type StatusReport struct {
	Listing   SnapshotInfo                      `json:"listing"`
	Refreshes map[string]metadata.RefreshRecord `json:"refreshes"`
	Now       time.Time                         `json:"now"`
}

func NewTickService(logger *zap.Logger, deps TickServiceDeps) *TickService {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.State == nil {
		deps.State = metadata.NewRefreshState()
	}
	return &TickService{
		logger:       logger,
		cache:        deps.Cache,
		lister:       deps.Lister,
		normalizer:   deps.Normalizer,
		exporter:     deps.Exporter,
		state:        deps.State,
		clock:        deps.Clock,
		fetchTimeout: deps.FetchTimeout,
	}
}

// ListFiles returns the cached listing filtered by q; date bounds are compared
// against date tags projected onto the current year.
func (s *TickService) ListFiles(ctx context.Context, q FileQuery) ([]domain.ClassifiedFile, error) {
	now := s.clock.Now()
	entries, err := s.cache.GetListing(ctx, now)
	if err != nil {
		return nil, err
	}

	filtered := FilterFiles(entries, q, now.Year())
	s.logger.Debug("Filtered files",
		zap.Int("total", len(entries)),
		zap.Int("filtered", len(filtered)),
		zap.String("strategy", string(q.Strategy)))

	return filtered, nil
}

// LoadRecords downloads one file and normalizes it.
func (s *TickService) LoadRecords(ctx context.Context, fileID string) (*NormalizeResult, error) {
	data, err := s.fetch(ctx, fileID)
	if err != nil {
		return nil, err
	}

	result, err := s.normalizer.NormalizeBytes(data)
	if err != nil {
		s.logger.Warn("Failed to normalize file",
			zap.String("file_id", fileID),
			zap.Error(err))
		return nil, err
	}

	metrics.RecordNormalized(len(result.Records), result.DroppedCount())
	if result.DroppedCount() > 0 {
		s.logger.Debug("Dropped malformed rows",
			zap.String("file_id", fileID),
			zap.Int("dropped", result.DroppedCount()),
			zap.Int("kept", len(result.Records)))
	}
	return result, nil
}

// AverageFiles averages the prf series of the given files. Files that are
// missing or malformed are skipped and reported; a remote outage fails the request.
func (s *TickService) AverageFiles(ctx context.Context, fileIDs []string) (*PRFAverage, error) {
	if len(fileIDs) == 0 {
		return nil, fmt.Errorf("%w: no file ids", domain.ErrNoData)
	}

	var (
		series  [][]domain.NormalizedRecord
		skipped []string
	)
	for _, id := range fileIDs {
		result, err := s.LoadRecords(ctx, id)
		switch {
		case err == nil:
			series = append(series, result.Records)
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrMalformedInput):
			s.logger.Warn("Skipping file in average", zap.String("file_id", id), zap.Error(err))
			skipped = append(skipped, id)
		default:
			return nil, err
		}
	}

	avg, err := AveragePRF(series)
	if err != nil {
		return nil, err
	}
	avg.Skipped = skipped
	return avg, nil
}

// Export normalizes a file and writes it with the configured exporter,
// returning the written path.
func (s *TickService) Export(ctx context.Context, fileID string) (string, error) {
	if s.exporter == nil {
		return "", errors.New("export is not configured")
	}

	result, err := s.LoadRecords(ctx, fileID)
	if err != nil {
		return "", err
	}

	meta := sink.FileMetadata{
		FileID:    fileID,
		FileName:  s.fileName(fileID),
		CreatedAt: s.clock.Now(),
		Dropped:   result.DroppedCount(),
	}
	return s.exporter.WriteRecords(meta, result.Records)
}

// Status reports the listing snapshot and recorded refreshes.
func (s *TickService) Status() StatusReport {
	now := s.clock.Now()
	return StatusReport{
		Listing:   s.cache.Info(now),
		Refreshes: s.state.Snapshot(),
		Now:       now,
	}
}

// Invalidate forces the next listing request to refresh.
func (s *TickService) Invalidate() {
	s.cache.Invalidate()
}

func (s *TickService) fetch(ctx context.Context, fileID string) ([]byte, error) {
	if fileID == "" {
		return nil, fmt.Errorf("%w: empty file id", domain.ErrNotFound)
	}
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	data, err := s.lister.GetContent(ctx, fileID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		metrics.RecordRemoteError("content")
	}
	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrRemoteUnavailable):
		s.logger.Error("Failed to fetch file", zap.String("file_id", fileID), zap.Error(err))
		return nil, err
	default:
		s.logger.Error("Failed to fetch file", zap.String("file_id", fileID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
}

// fileName looks the id up in the loaded listing; the id stands in when unknown.
func (s *TickService) fileName(fileID string) string {
	if e, ok := s.cache.Lookup(fileID); ok {
		return e.Name
	}
	return fileID
}
