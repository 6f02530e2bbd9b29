// Package storagetest holds the behavioural checks every BlobStore must pass.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/questweaver/internal/storage"
)

// Run exercises store's Get/Put/Delete contract. Keys are prefixed with the
// test name so a shared backend can be reused across tests.
func Run(t *testing.T, store storage.BlobStore) {
	t.Helper()
	ctx := context.Background()
	prefix := t.Name() + ":"

	t.Run("missing key", func(t *testing.T) {
		_, err := store.Get(ctx, prefix+"missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("put then get", func(t *testing.T) {
		key := prefix + "roundtrip"
		require.NoError(t, store.Put(ctx, key, []byte(`{"status":"active"}`)))
		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.JSONEq(t, `{"status":"active"}`, string(got))
	})

	t.Run("put overwrites", func(t *testing.T) {
		key := prefix + "overwrite"
		require.NoError(t, store.Put(ctx, key, []byte(`{"v":1}`)))
		require.NoError(t, store.Put(ctx, key, []byte(`{"v":2}`)))
		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":2}`, string(got))
	})

	t.Run("delete", func(t *testing.T) {
		key := prefix + "delete"
		require.NoError(t, store.Put(ctx, key, []byte(`{}`)))
		require.NoError(t, store.Delete(ctx, key))
		_, err := store.Get(ctx, key)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.NoError(t, store.Delete(ctx, key), "deleting a missing key")
	})

	t.Run("keys are independent", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, prefix+"a", []byte(`{"k":"a"}`)))
		require.NoError(t, store.Put(ctx, prefix+"b", []byte(`{"k":"b"}`)))
		got, err := store.Get(ctx, prefix+"a")
		require.NoError(t, err)
		assert.JSONEq(t, `{"k":"a"}`, string(got))
	})

	t.Run("concurrent writers", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				key := fmt.Sprintf("%sconcurrent-%d", prefix, i)
				assert.NoError(t, store.Put(ctx, key, []byte(fmt.Sprintf(`{"i":%d}`, i))))
			}(i)
		}
		wg.Wait()
		for i := 0; i < 8; i++ {
			got, err := store.Get(ctx, fmt.Sprintf("%sconcurrent-%d", prefix, i))
			require.NoError(t, err)
			assert.JSONEq(t, fmt.Sprintf(`{"i":%d}`, i), string(got))
		}
	})
}
