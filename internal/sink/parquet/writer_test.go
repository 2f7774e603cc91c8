package parquet

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trade-engine/tick-viewer/internal/domain"
	"github.com/trade-engine/tick-viewer/internal/sink"
)

func TestWriteAndReadRecords(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(zap.NewNop(), dir)

	records := []domain.NormalizedRecord{
		{Time: "09:15:30", Price: 351.25, NP1: 1, NP2: -2, PRF: 0.5},
		{Time: "09:15:31", Price: 351.3, NP1: 3, NP2: 4, PRF: -1.25},
	}
	created := time.Date(2024, 8, 9, 15, 29, 0, 0, time.UTC)

	path, err := w.WriteRecords(sink.FileMetadata{
		FileID:    "abc123",
		FileName:  "(e)df_npp_m_fut_08-09-15-29.csv",
		CreatedAt: created,
		Dropped:   1,
	}, records)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "abc123.parquet"), path)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	got, meta, err := ReadRecords(path)
	require.NoError(t, err)
	assert.Equal(t, records, got)
	assert.Equal(t, "abc123", meta.FileID)
	assert.Equal(t, "(e)df_npp_m_fut_08-09-15-29.csv", meta.FileName)
	assert.NotEmpty(t, meta.IngestID)
	assert.True(t, created.Equal(meta.CreatedAt))
	assert.Equal(t, 1, meta.Dropped)
}

func TestReadRecordsRejectsNonParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.parquet")
	require.NoError(t, os.WriteFile(path, []byte("time,price\n"), 0o644))

	_, _, err := ReadRecords(path)
	assert.ErrorIs(t, err, domain.ErrMalformedInput)
}

func TestPathForStripsDirectories(t *testing.T) {
	w := NewWriter(zap.NewNop(), "/exports")
	assert.Equal(t, filepath.Join("/exports", "x.csv.parquet"), w.PathFor("../../x.csv"))
}
