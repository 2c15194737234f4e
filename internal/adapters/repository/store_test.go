package repository_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/hush/internal/adapters/repository"
	"github.com/okian/hush/internal/domain/attribution"
	"github.com/okian/hush/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStores returns every Store implementation backed by fresh state.
func testStores(t *testing.T) map[string]repository.Store {
	t.Helper()

	sqliteStore, err := repository.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "journal", "hush.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })

	return map[string]repository.Store{
		"memory": repository.NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func entryAt(id string, at time.Time) model.Entry {
	return model.Entry{ID: id, Prompt: "How was today?", Content: "entry " + id, CreatedAt: at.UTC()}
}

func TestStore_SaveAndGet(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			at := time.Date(2026, 3, 1, 9, 30, 0, 123, time.UTC)

			require.NoError(t, store.Save(ctx, entryAt("e-1", at)))

			got, err := store.Get(ctx, "e-1")
			require.NoError(t, err)
			assert.Equal(t, "e-1", got.ID)
			assert.Equal(t, "How was today?", got.Prompt)
			assert.Equal(t, "entry e-1", got.Content)
			assert.True(t, at.Equal(got.CreatedAt))
			assert.Nil(t, got.Attribution)
			assert.Equal(t, 1, store.Count(ctx))
		})
	}
}

func TestStore_Duplicate(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, entryAt("dup", time.Now())))

			err := store.Save(ctx, entryAt("dup", time.Now()))
			assert.ErrorIs(t, err, repository.ErrDuplicate)
			assert.Equal(t, 1, store.Count(ctx))
		})
	}
}

func TestStore_InvalidEntry(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Save(context.Background(), model.Entry{Content: "no id"})
			assert.ErrorIs(t, err, repository.ErrInvalidEntry)
		})
	}
}

func TestStore_Attribution(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, entryAt("e-1", time.Now())))

			p := attribution.NewPayload(0.4, 0.25, 0)
			require.NoError(t, store.SetAttribution(ctx, "e-1", p))

			got, err := store.Get(ctx, "e-1")
			require.NoError(t, err)
			require.NotNil(t, got.Attribution)
			assert.Equal(t, p, *got.Attribution)

			err = store.SetAttribution(ctx, "missing", p)
			assert.ErrorIs(t, err, repository.ErrNotFound)
		})
	}
}

func TestStore_SaveWithAttribution(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := entryAt("e-1", time.Now())
			p := attribution.NewPayload(1, 0, 0.5)
			e.Attribution = &p
			require.NoError(t, store.Save(ctx, e))

			got, err := store.Get(ctx, "e-1")
			require.NoError(t, err)
			require.NotNil(t, got.Attribution)
			assert.Equal(t, 0.5, got.Attribution.Voice)
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(context.Background(), "nope")
			assert.ErrorIs(t, err, repository.ErrNotFound)
		})
	}
}

func TestStore_Recent(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

			for i := 0; i < 5; i++ {
				require.NoError(t, store.Save(ctx, entryAt(fmt.Sprintf("e-%d", i), base.Add(time.Duration(i)*time.Hour))))
			}
			// same timestamp as e-4, saved later
			require.NoError(t, store.Save(ctx, entryAt("e-5", base.Add(4*time.Hour))))

			got, err := store.Recent(ctx, 3)
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, "e-5", got[0].ID)
			assert.Equal(t, "e-4", got[1].ID)
			assert.Equal(t, "e-3", got[2].ID)

			all, err := store.Recent(ctx, 100)
			require.NoError(t, err)
			assert.Len(t, all, 6)
			assert.Equal(t, "e-0", all[5].ID)

			_, err = store.Recent(ctx, 0)
			assert.ErrorIs(t, err, repository.ErrInvalidLimit)
		})
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hush.db")

	store, err := repository.OpenSQLite(ctx, path, repository.WithBusyTimeout(time.Second))
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, entryAt("persisted", time.Now())))
	require.NoError(t, store.Close())

	reopened, err := repository.OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Get(ctx, "persisted")
	require.NoError(t, err)
	assert.Equal(t, "entry persisted", got.Content)
	assert.Equal(t, 1, reopened.Count(ctx))
}
