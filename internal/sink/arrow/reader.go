package arrow

import (
	"fmt"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/trade-engine/tick-viewer/internal/domain"
	"github.com/trade-engine/tick-viewer/internal/sink"
)

// ReadRecords loads an exported Arrow file back into normalized records.
func ReadRecords(filePath string) ([]domain.NormalizedRecord, FileMetadata, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, FileMetadata{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader, err := ipc.NewFileReader(file, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, FileMetadata{}, fmt.Errorf("failed to create arrow file reader: %w", err)
	}
	defer reader.Close()

	if !reader.Schema().Equal(GetTickRecordSchema()) {
		return nil, FileMetadata{}, fmt.Errorf("%w: unexpected schema %s", domain.ErrMalformedInput, reader.Schema())
	}

	meta := metadataFrom(reader.Schema().Metadata())

	var records []domain.NormalizedRecord
	for i := 0; i < reader.NumRecords(); i++ {
		rec, err := reader.Record(i)
		if err != nil {
			return nil, FileMetadata{}, fmt.Errorf("failed to read record batch %d: %w", i, err)
		}

		times := rec.Column(TimeIdx).(*array.String)
		prices := rec.Column(PriceIdx).(*array.Float64)
		np1s := rec.Column(NP1Idx).(*array.Float64)
		np2s := rec.Column(NP2Idx).(*array.Float64)
		prfs := rec.Column(PRFIdx).(*array.Float64)

		for row := 0; row < int(rec.NumRows()); row++ {
			records = append(records, domain.NormalizedRecord{
				Time:  times.Value(row),
				Price: prices.Value(row),
				NP1:   np1s.Value(row),
				NP2:   np2s.Value(row),
				PRF:   prfs.Value(row),
			})
		}
	}

	return records, meta, nil
}

func metadataFrom(md arrow.Metadata) FileMetadata {
	return sink.ParseMetadata(func(key string) string {
		if idx := md.FindKey(key); idx >= 0 {
			return md.Values()[idx]
		}
		return ""
	})
}
