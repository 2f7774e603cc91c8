package remote

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trade-engine/tick-viewer/internal/domain"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("content of "+name), 0o644))
	}
}

func TestLocalStorePaginates(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "c.csv", "a.csv", "b.csv", "d.csv", "e.csv")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	store := NewLocalStore(zap.NewNop(), dir, 2)
	ctx := context.Background()

	var names []string
	token := ""
	pages := 0
	for {
		page, err := store.List(ctx, token)
		require.NoError(t, err)
		pages++
		for _, f := range page.Files {
			names = append(names, f.Name)
			assert.Equal(t, f.Name, f.ID)
			assert.NotNil(t, f.CreatedTime)
		}
		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}

	assert.Equal(t, 3, pages)
	assert.Equal(t, []string{"a.csv", "b.csv", "c.csv", "d.csv", "e.csv"}, names)
}

func TestLocalStoreGetContent(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.csv")
	store := NewLocalStore(zap.NewNop(), dir, 10)
	ctx := context.Background()

	data, err := store.GetContent(ctx, "a.csv")
	require.NoError(t, err)
	assert.Equal(t, "content of a.csv", string(data))

	_, err = store.GetContent(ctx, "missing.csv")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.GetContent(ctx, "../a.csv")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLocalStoreMissingDirectory(t *testing.T) {
	store := NewLocalStore(zap.NewNop(), filepath.Join(t.TempDir(), "absent"), 10)

	_, err := store.List(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
}

func TestLocalStoreRejectsBadToken(t *testing.T) {
	store := NewLocalStore(zap.NewNop(), t.TempDir(), 10)

	_, err := store.List(context.Background(), "not-a-number")
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
}
