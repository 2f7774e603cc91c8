// Package remote provides access to the object store that holds the tick files.
package remote

import (
	"context"

	"github.com/trade-engine/tick-viewer/internal/domain"
)

// Page is one page of a paginated listing.
type Page struct {
	Files         []domain.RemoteFileRef
	NextPageToken string // empty when the listing is complete
}

// Lister is the remote store contract consumed by the listing cache and the tick service.
type Lister interface {
	// List returns the page identified by pageToken; an empty token requests the first page.
	List(ctx context.Context, pageToken string) (Page, error)
	// GetContent returns the full raw content of one file.
	GetContent(ctx context.Context, id string) ([]byte, error)
}
