package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/trade-engine/tick-viewer/internal/domain"
)

// LocalStore serves a flat directory as a paginated remote store.
// File names double as ids; page tokens are offsets into the sorted listing.
type LocalStore struct {
	logger   *zap.Logger
	basePath string
	pageSize int
}

func NewLocalStore(logger *zap.Logger, basePath string, pageSize int) *LocalStore {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &LocalStore{
		logger:   logger,
		basePath: basePath,
		pageSize: pageSize,
	}
}

// List returns one page of regular files in the base path
func (ls *LocalStore) List(ctx context.Context, pageToken string) (Page, error) {
	select {
	case <-ctx.Done():
		return Page{}, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, ctx.Err())
	default:
	}

	offset := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n < 0 {
			return Page{}, fmt.Errorf("%w: invalid page token %q", domain.ErrRemoteUnavailable, pageToken)
		}
		offset = n
	}

	entries, err := os.ReadDir(ls.basePath)
	if err != nil {
		ls.logger.Error("Failed to read data directory", zap.String("path", ls.basePath), zap.Error(err))
		return Page{}, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}

	var files []os.DirEntry
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, entry)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

	if offset > len(files) {
		offset = len(files)
	}
	end := offset + ls.pageSize
	if end > len(files) {
		end = len(files)
	}

	page := Page{Files: make([]domain.RemoteFileRef, 0, end-offset)}
	for _, entry := range files[offset:end] {
		ref := domain.RemoteFileRef{ID: entry.Name(), Name: entry.Name()}
		if info, err := entry.Info(); err == nil {
			mod := info.ModTime().UTC()
			ref.CreatedTime = &mod
		} else {
			ls.logger.Warn("Failed to stat file", zap.String("file", entry.Name()), zap.Error(err))
		}
		page.Files = append(page.Files, ref)
	}
	if end < len(files) {
		page.NextPageToken = strconv.Itoa(end)
	}

	return page, nil
}

// GetContent reads one file from the base path
func (ls *LocalStore) GetContent(ctx context.Context, id string) ([]byte, error) {
	if id == "" || id != filepath.Base(id) || id == "." || id == ".." {
		return nil, fmt.Errorf("%w: %q", domain.ErrNotFound, id)
	}
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, ctx.Err())
	default:
	}

	data, err := os.ReadFile(filepath.Join(ls.basePath, id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	return data, nil
}
