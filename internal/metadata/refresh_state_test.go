package metadata

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "listing.yml")

	rs := NewRefreshState()
	fetched := time.Date(2024, 8, 9, 6, 30, 0, 0, time.UTC)
	rs.Update("drive", RefreshRecord{RefreshID: "r-1", FetchedAt: fetched, Entries: 12, Pages: 2})
	require.NoError(t, rs.Save(path))

	loaded, err := LoadRefreshState(path)
	require.NoError(t, err)

	rec, ok := loaded.LastRefresh("drive")
	require.True(t, ok)
	assert.Equal(t, "r-1", rec.RefreshID)
	assert.True(t, fetched.Equal(rec.FetchedAt))
	assert.Equal(t, 12, rec.Entries)
	assert.Equal(t, 2, rec.Pages)

	_, ok = loaded.LastRefresh("local")
	assert.False(t, ok)
}

func TestLoadRefreshStateMissingFile(t *testing.T) {
	rs, err := LoadRefreshState(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Empty(t, rs.Snapshot())

	rs, err = LoadRefreshState("")
	require.NoError(t, err)
	assert.Empty(t, rs.Snapshot())
}

func TestSaveRequiresPath(t *testing.T) {
	assert.Error(t, NewRefreshState().Save(""))
}
