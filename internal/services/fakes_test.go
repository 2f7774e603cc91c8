package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trade-engine/tick-viewer/internal/domain"
	"github.com/trade-engine/tick-viewer/internal/remote"
)

// fakeLister serves fixed pages and file contents and counts calls.
type fakeLister struct {
	mu        sync.Mutex
	pages     []remote.Page // page i is requested with token fmt.Sprint(i); first page with ""
	contents  map[string]string
	listErrAt int // 1-based page index that fails; 0 = never
	listErr   error
	listCalls int
	endless   bool
	delay     time.Duration

	contentErr   map[string]error
	contentDelay time.Duration
}

func (f *fakeLister) List(ctx context.Context, pageToken string) (remote.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return remote.Page{}, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return remote.Page{}, err
	}

	idx := 0
	if pageToken != "" {
		if _, err := fmt.Sscan(pageToken, &idx); err != nil {
			return remote.Page{}, err
		}
	}
	if f.listErrAt > 0 && idx+1 == f.listErrAt {
		return remote.Page{}, f.listErr
	}
	if f.endless {
		return remote.Page{NextPageToken: fmt.Sprint(idx + 1)}, nil
	}

	page := f.pages[idx]
	if idx+1 < len(f.pages) {
		page.NextPageToken = fmt.Sprint(idx + 1)
	}
	return page, nil
}

func (f *fakeLister) GetContent(ctx context.Context, id string) ([]byte, error) {
	if f.contentDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.contentDelay):
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.contentErr[id]; ok {
		return nil, err
	}
	c, ok := f.contents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return []byte(c), nil
}

func (f *fakeLister) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func refs(names ...string) []domain.RemoteFileRef {
	out := make([]domain.RemoteFileRef, len(names))
	for i, n := range names {
		out[i] = domain.RemoteFileRef{ID: fmt.Sprintf("id-%s", n), Name: n}
	}
	return out
}
