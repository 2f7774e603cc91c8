// Package sink holds what the export formats have in common.
package sink

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/trade-engine/tick-viewer/internal/domain"
)

// Metadata keys attached to exported files
const (
	MetaFileID    = "file_id"
	MetaFileName  = "file_name"
	MetaIngestID  = "ingest_id"
	MetaCreatedAt = "created_at"
	MetaDropped   = "dropped_rows"
)

// Exporter writes the normalized records of one remote file to disk.
type Exporter interface {
	PathFor(fileID string) string
	WriteRecords(meta FileMetadata, records []domain.NormalizedRecord) (string, error)
}

// FileMetadata describes the origin of an exported file
type FileMetadata struct {
	FileID    string    `json:"file_id"`
	FileName  string    `json:"file_name"`
	IngestID  string    `json:"ingest_id"`
	CreatedAt time.Time `json:"created_at"`
	Dropped   int       `json:"dropped"`
}

// WithDefaults fills a missing ingest id and creation time.
func (m FileMetadata) WithDefaults() FileMetadata {
	if m.IngestID == "" {
		m.IngestID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	return m
}

// KeyValues renders the metadata as parallel key/value slices.
func (m FileMetadata) KeyValues() (keys, values []string) {
	keys = []string{MetaFileID, MetaFileName, MetaIngestID, MetaCreatedAt, MetaDropped}
	values = []string{
		m.FileID,
		m.FileName,
		m.IngestID,
		m.CreatedAt.UTC().Format(time.RFC3339),
		strconv.Itoa(m.Dropped),
	}
	return keys, values
}

// ParseMetadata rebuilds FileMetadata from a key lookup. Missing or
// unparsable values are left zero.
func ParseMetadata(get func(key string) string) FileMetadata {
	meta := FileMetadata{
		FileID:   get(MetaFileID),
		FileName: get(MetaFileName),
		IngestID: get(MetaIngestID),
	}
	if ts, err := time.Parse(time.RFC3339, get(MetaCreatedAt)); err == nil {
		meta.CreatedAt = ts
	}
	if n, err := strconv.Atoi(get(MetaDropped)); err == nil {
		meta.Dropped = n
	}
	return meta
}
