package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/trade-engine/tick-viewer/internal/domain"
)

// DriveClient lists and downloads files through the Google Drive v3 REST API.
// Credential acquisition happens elsewhere; the client only carries a bearer token.
type DriveClient struct {
	baseURL     string
	accessToken string
	query       string
	pageSize    int
	client      *http.Client
	limiter     *SafeRateLimiter
	logger      *zap.Logger
}

// DriveOptions configures a DriveClient
type DriveOptions struct {
	BaseURL           string
	AccessToken       string
	Query             string // optional Drive "q" expression
	PageSize          int
	Timeout           time.Duration
	RequestsPerMinute int
}

type driveFile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CreatedTime string `json:"createdTime"`
}

type driveListResponse struct {
	NextPageToken string      `json:"nextPageToken"`
	Files         []driveFile `json:"files"`
}

// NewDriveClient creates a new Drive client
func NewDriveClient(opts DriveOptions, logger *zap.Logger) *DriveClient {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &DriveClient{
		baseURL:     opts.BaseURL,
		accessToken: opts.AccessToken,
		query:       opts.Query,
		pageSize:    opts.PageSize,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter: NewSafeRateLimiter(opts.RequestsPerMinute),
		logger:  logger,
	}
}

// List fetches one page of the file listing
func (c *DriveClient) List(ctx context.Context, pageToken string) (Page, error) {
	if err := c.acquire(ctx, EndpointList); err != nil {
		return Page{}, err
	}

	params := url.Values{}
	params.Set("pageSize", strconv.Itoa(c.pageSize))
	params.Set("fields", "nextPageToken, files(id, name, createdTime)")
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}
	if c.query != "" {
		params.Set("q", c.query)
	}

	body, err := c.get(ctx, c.baseURL+"/files?"+params.Encode())
	if err != nil {
		return Page{}, err
	}

	var resp driveListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Page{}, fmt.Errorf("%w: decode listing: %v", domain.ErrRemoteUnavailable, err)
	}

	page := Page{
		Files:         make([]domain.RemoteFileRef, 0, len(resp.Files)),
		NextPageToken: resp.NextPageToken,
	}
	for _, f := range resp.Files {
		ref := domain.RemoteFileRef{ID: f.ID, Name: f.Name}
		if f.CreatedTime != "" {
			if ts, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
				ref.CreatedTime = &ts
			} else {
				c.logger.Debug("Ignoring unparsable createdTime",
					zap.String("file_id", f.ID),
					zap.String("created_time", f.CreatedTime))
			}
		}
		page.Files = append(page.Files, ref)
	}

	c.logger.Debug("Fetched listing page",
		zap.Int("files", len(page.Files)),
		zap.Bool("has_next", page.NextPageToken != ""))

	return page, nil
}

// GetContent downloads the raw bytes of one file
func (c *DriveClient) GetContent(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty file id", domain.ErrNotFound)
	}
	if err := c.acquire(ctx, EndpointContent); err != nil {
		return nil, err
	}

	return c.get(ctx, c.baseURL+"/files/"+url.PathEscape(id)+"?alt=media")
}

// acquire takes a token for endpoint, waiting only when none is free.
func (c *DriveClient) acquire(ctx context.Context, endpoint EndpointType) error {
	if c.limiter.Allow(endpoint) {
		return nil
	}
	c.logger.Debug("Rate limited, waiting", zap.String("endpoint", string(endpoint)))
	if err := c.limiter.Wait(ctx, endpoint); err != nil {
		return fmt.Errorf("%w: rate limit wait failed: %v", domain.ErrRemoteUnavailable, err)
	}
	return nil
}

func (c *DriveClient) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", "trade-engine-tick-viewer/1.0")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrRemoteUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: HTTP %d: %s", domain.ErrRemoteUnavailable, resp.StatusCode, truncate(body, 200))
	}

	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
