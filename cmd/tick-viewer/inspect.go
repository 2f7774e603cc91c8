package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/trade-engine/tick-viewer/internal/domain"
	"github.com/trade-engine/tick-viewer/internal/sink"
	"github.com/trade-engine/tick-viewer/internal/sink/arrow"
	"github.com/trade-engine/tick-viewer/internal/sink/parquet"
)

const (
	outputJSON = "json"
	outputCSV  = "csv"
)

type exportReport struct {
	Metadata sink.FileMetadata         `json:"metadata"`
	Records  []domain.NormalizedRecord `json:"records"`
}

// readExport loads an exported file, picking the reader from its extension.
func readExport(path string) ([]domain.NormalizedRecord, sink.FileMetadata, error) {
	if filepath.Ext(path) == ".parquet" {
		return parquet.ReadRecords(path)
	}
	return arrow.ReadRecords(path)
}

// inspectExport prints an exported file as JSON (metadata and records) or as CSV.
func inspectExport(w io.Writer, path, output string) error {
	if path == "" {
		return fmt.Errorf("-path is required")
	}
	records, meta, err := readExport(path)
	if err != nil {
		return err
	}
	if output == outputCSV {
		return writeRecordsCSV(w, records)
	}
	return writeJSON(w, exportReport{Metadata: meta, Records: records})
}

func writeRecords(w io.Writer, records []domain.NormalizedRecord, output string) error {
	switch output {
	case outputCSV:
		return writeRecordsCSV(w, records)
	case outputJSON, "":
		return writeJSON(w, records)
	default:
		return fmt.Errorf("unknown output %q", output)
	}
}

// writeRecordsCSV writes records under the projected column header, which the
// normalizer reads back as input.
func writeRecordsCSV(w io.Writer, records []domain.NormalizedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.RecordColumns); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{r.Time, formatFloat(r.Price), formatFloat(r.NP1), formatFloat(r.NP2), formatFloat(r.PRF)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
