package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trade-engine/tick-viewer/internal/domain"
	"github.com/trade-engine/tick-viewer/internal/services"
	"github.com/trade-engine/tick-viewer/internal/sink"
	"github.com/trade-engine/tick-viewer/internal/sink/arrow"
	"github.com/trade-engine/tick-viewer/internal/sink/parquet"
)

var inspectRecords = []domain.NormalizedRecord{
	{Time: "09:15:30", Price: 351.25, NP1: 10, NP2: -4, PRF: 0.5},
	{Time: "15:30:00", Price: 351.4, NP1: 13, NP2: -1, PRF: 1.25},
}

func inspectMeta() sink.FileMetadata {
	return sink.FileMetadata{
		FileID:    "f1",
		FileName:  "(e)df_npp_m_08-09-15-29.csv",
		IngestID:  "ingest-1",
		CreatedAt: time.Date(2024, 8, 9, 15, 30, 0, 0, time.UTC),
		Dropped:   2,
	}
}

func TestInspectArrowExportAsJSON(t *testing.T) {
	path, err := arrow.NewWriter(zap.NewNop(), t.TempDir()).WriteRecords(inspectMeta(), inspectRecords)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, inspectExport(&buf, path, outputJSON))

	var report exportReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, inspectRecords, report.Records)
	assert.Equal(t, "f1", report.Metadata.FileID)
	assert.Equal(t, 2, report.Metadata.Dropped)
	assert.Contains(t, buf.String(), `"file_name": "(e)df_npp_m_08-09-15-29.csv"`)
}

func TestInspectParquetExportAsCSVNormalizesBack(t *testing.T) {
	path, err := parquet.NewWriter(zap.NewNop(), t.TempDir()).WriteRecords(inspectMeta(), inspectRecords)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, inspectExport(&buf, path, outputCSV))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("time,price,np1,np2,prf\n")))

	result, err := services.NewRowNormalizer("now_prc").NormalizeBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, inspectRecords, result.Records)
	assert.Zero(t, result.DroppedCount())
}

func TestInspectExportErrors(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, inspectExport(&buf, "", outputJSON))
	assert.Error(t, inspectExport(&buf, t.TempDir()+"/missing.arrow", outputJSON))
	assert.Error(t, writeRecords(&buf, inspectRecords, "xml"))
}
