package pgx

import (
	"context"
	"sync"
	"testing"

	"github.com/edgeflare/fluentrest/internal/testutil/pgtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolManager(t *testing.T) {
	ctx := context.Background()
	connString := pgtest.ConnString(t)

	t.Run("NewPoolManager", func(t *testing.T) {
		pm := NewPoolManager()
		require.NotNil(t, pm)
		assert.Empty(t, pm.List())
	})

	t.Run("Add", func(t *testing.T) {
		pm := NewPoolManager()
		t.Cleanup(pm.Close)

		require.NoError(t, pm.Add(ctx, "primary", connString))
		require.NoError(t, pm.Add(ctx, "secondary", connString))
		assert.Equal(t, []string{"primary", "secondary"}, pm.List())

		err := pm.Add(ctx, "primary", connString)
		assert.ErrorIs(t, err, ErrPoolAlreadyExists)
	})

	t.Run("DB", func(t *testing.T) {
		pm := NewPoolManager()
		t.Cleanup(pm.Close)
		require.NoError(t, pm.Add(ctx, DefaultPool, connString))

		db, err := pm.DB("")
		require.NoError(t, err)

		rows, err := db.Rows(ctx, Select("n").From("generate_series(1, 3) AS n"))
		require.NoError(t, err)
		assert.Len(t, rows, 3)

		_, err = pm.DB("nonexistent")
		assert.ErrorIs(t, err, ErrPoolNotFound)
	})

	t.Run("Close", func(t *testing.T) {
		pm := NewPoolManager()
		require.NoError(t, pm.Add(ctx, "pool1", connString))

		pm.Close()
		assert.Empty(t, pm.List())

		_, err := pm.Get("pool1")
		assert.ErrorIs(t, err, ErrPoolNotFound)
	})

	t.Run("Concurrent Access", func(t *testing.T) {
		pm := NewPoolManager()
		t.Cleanup(pm.Close)
		require.NoError(t, pm.Add(ctx, "concurrent", connString))

		var wg sync.WaitGroup
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 50 {
					pool, err := pm.Get("concurrent")
					if err == nil {
						_ = pool.Ping(ctx)
					}
				}
			}()
		}
		wg.Wait()
	})
}
