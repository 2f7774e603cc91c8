package arrow

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"go.uber.org/zap"

	"github.com/trade-engine/tick-viewer/internal/domain"
	"github.com/trade-engine/tick-viewer/internal/sink"
)

// FileMetadata stores metadata attached to exported Arrow files
type FileMetadata = sink.FileMetadata

func metadataToArrow(m FileMetadata) arrow.Metadata {
	return arrow.NewMetadata(m.KeyValues())
}

// Writer exports normalized records as Arrow IPC files
type Writer struct {
	logger   *zap.Logger
	basePath string
	pool     memory.Allocator
}

func NewWriter(logger *zap.Logger, basePath string) *Writer {
	return &Writer{
		logger:   logger,
		basePath: basePath,
		pool:     memory.NewGoAllocator(),
	}
}

// PathFor returns the export path of a remote file id.
func (w *Writer) PathFor(fileID string) string {
	return filepath.Join(w.basePath, filepath.Base(fileID)+".arrow")
}

var _ sink.Exporter = (*Writer)(nil)

// WriteRecords writes records into a single-batch Arrow file at PathFor(meta.FileID).
// The file is written to a temp path first and renamed on success.
func (w *Writer) WriteRecords(meta FileMetadata, records []domain.NormalizedRecord) (string, error) {
	meta = meta.WithDefaults()

	if err := os.MkdirAll(w.basePath, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	filePath := w.PathFor(meta.FileID)
	tempFilePath := filePath + ".tmp"

	file, err := os.Create(tempFilePath)
	if err != nil {
		return "", fmt.Errorf("failed to create arrow file: %w", err)
	}

	md := metadataToArrow(meta)
	arrowSchema := arrow.NewSchema(GetTickRecordSchema().Fields(), &md)

	if err := w.write(file, arrowSchema, records); err != nil {
		file.Close()
		os.Remove(tempFilePath)
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(tempFilePath)
		return "", fmt.Errorf("failed to close arrow file: %w", err)
	}
	if err := os.Rename(tempFilePath, filePath); err != nil {
		os.Remove(tempFilePath)
		return "", fmt.Errorf("failed to finalize arrow file: %w", err)
	}

	w.logger.Info("Exported records to Arrow file",
		zap.String("file", filePath),
		zap.String("file_id", meta.FileID),
		zap.String("ingest_id", meta.IngestID),
		zap.Int("rows", len(records)))

	return filePath, nil
}

func (w *Writer) write(file *os.File, arrowSchema *arrow.Schema, records []domain.NormalizedRecord) error {
	fileWriter, err := ipc.NewFileWriter(file, ipc.WithSchema(arrowSchema), ipc.WithAllocator(w.pool))
	if err != nil {
		return fmt.Errorf("failed to create arrow file writer: %w", err)
	}

	builder := array.NewRecordBuilder(w.pool, arrowSchema)
	defer builder.Release()

	timeB := builder.Field(TimeIdx).(*array.StringBuilder)
	priceB := builder.Field(PriceIdx).(*array.Float64Builder)
	np1B := builder.Field(NP1Idx).(*array.Float64Builder)
	np2B := builder.Field(NP2Idx).(*array.Float64Builder)
	prfB := builder.Field(PRFIdx).(*array.Float64Builder)

	for _, r := range records {
		timeB.Append(r.Time)
		priceB.Append(r.Price)
		np1B.Append(r.NP1)
		np2B.Append(r.NP2)
		prfB.Append(r.PRF)
	}

	record := builder.NewRecord()
	defer record.Release()

	if err := fileWriter.Write(record); err != nil {
		fileWriter.Close()
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	if err := fileWriter.Close(); err != nil {
		return fmt.Errorf("failed to close arrow file writer: %w", err)
	}
	return nil
}
