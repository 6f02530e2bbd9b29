package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/questweaver/internal/storage/sqlite"
	"github.com/cory-johannsen/questweaver/internal/storage/storagetest"
)

func openStore(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Contract(t *testing.T) {
	storagetest.Run(t, openStore(t, filepath.Join(t.TempDir(), "qw.db")))
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "qw.db")

	first, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, "save", []byte(`{"status":"defeat"}`)))
	require.NoError(t, first.Close())

	second := openStore(t, path)
	got, err := second.Get(ctx, "save")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"defeat"}`, string(got))
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := sqlite.Open(context.Background(), "  ")
	assert.Error(t, err)
}
