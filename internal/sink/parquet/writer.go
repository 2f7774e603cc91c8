package parquet

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"github.com/trade-engine/tick-viewer/internal/domain"
	"github.com/trade-engine/tick-viewer/internal/sink"
)

// tickRow is the on-disk row layout
type tickRow struct {
	Time  string  `parquet:"time"`
	Price float64 `parquet:"price"`
	NP1   float64 `parquet:"np1"`
	NP2   float64 `parquet:"np2"`
	PRF   float64 `parquet:"prf"`
}

// Writer exports normalized records as Parquet files
type Writer struct {
	logger   *zap.Logger
	basePath string
}

var _ sink.Exporter = (*Writer)(nil)

func NewWriter(logger *zap.Logger, basePath string) *Writer {
	return &Writer{
		logger:   logger,
		basePath: basePath,
	}
}

// PathFor returns the export path of a remote file id.
func (w *Writer) PathFor(fileID string) string {
	return filepath.Join(w.basePath, filepath.Base(fileID)+".parquet")
}

// WriteRecords writes records into PathFor(meta.FileID) with the metadata
// stored as file key/value pairs.
func (w *Writer) WriteRecords(meta sink.FileMetadata, records []domain.NormalizedRecord) (string, error) {
	meta = meta.WithDefaults()

	if err := os.MkdirAll(w.basePath, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	filePath := w.PathFor(meta.FileID)
	tempFilePath := filePath + ".tmp"

	file, err := os.Create(tempFilePath)
	if err != nil {
		return "", fmt.Errorf("failed to create parquet file: %w", err)
	}

	keys, values := meta.KeyValues()
	opts := make([]parquet.WriterOption, 0, len(keys))
	for i := range keys {
		opts = append(opts, parquet.KeyValueMetadata(keys[i], values[i]))
	}

	rows := make([]tickRow, len(records))
	for i, r := range records {
		rows[i] = tickRow{Time: r.Time, Price: r.Price, NP1: r.NP1, NP2: r.NP2, PRF: r.PRF}
	}

	pw := parquet.NewGenericWriter[tickRow](file, opts...)
	if _, err := pw.Write(rows); err != nil {
		pw.Close()
		file.Close()
		os.Remove(tempFilePath)
		return "", fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		file.Close()
		os.Remove(tempFilePath)
		return "", fmt.Errorf("failed to close parquet writer: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempFilePath)
		return "", fmt.Errorf("failed to close parquet file: %w", err)
	}
	if err := os.Rename(tempFilePath, filePath); err != nil {
		os.Remove(tempFilePath)
		return "", fmt.Errorf("failed to finalize parquet file: %w", err)
	}

	w.logger.Info("Exported records to Parquet file",
		zap.String("file", filePath),
		zap.String("file_id", meta.FileID),
		zap.String("ingest_id", meta.IngestID),
		zap.Int("rows", len(records)))

	return filePath, nil
}
