package parquet

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/trade-engine/tick-viewer/internal/domain"
	"github.com/trade-engine/tick-viewer/internal/sink"
)

// ReadRecords loads an exported Parquet file back into normalized records.
func ReadRecords(filePath string) ([]domain.NormalizedRecord, sink.FileMetadata, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, sink.FileMetadata{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, sink.FileMetadata{}, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		return nil, sink.FileMetadata{}, fmt.Errorf("%w: open parquet file: %v", domain.ErrMalformedInput, err)
	}
	meta := sink.ParseMetadata(func(key string) string {
		v, _ := pf.Lookup(key)
		return v
	})

	rows, err := parquet.Read[tickRow](file, stat.Size())
	if err != nil {
		return nil, sink.FileMetadata{}, fmt.Errorf("failed to read parquet rows: %w", err)
	}

	records := make([]domain.NormalizedRecord, len(rows))
	for i, r := range rows {
		records[i] = domain.NormalizedRecord{Time: r.Time, Price: r.Price, NP1: r.NP1, NP2: r.NP2, PRF: r.PRF}
	}
	return records, meta, nil
}
