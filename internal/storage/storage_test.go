package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdnbench/internal/runner"
	"cdnbench/internal/stats"
)

func openStore(t *testing.T) *Store {
	store, err := NewStore(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func item(label string, at time.Time) HistoryItem {
	it := NewHistoryItem("releases", "Date", runner.Config{MaxAttempts: 20, MaxSamples: 5},
		[]runner.ReportRow{{Label: label, EdgeAKBps: 1, EdgeBKBps: 2, OriginKBps: 3}}, stats.Summary{Attempts: 1, Samples: 1})
	it.Timestamp = at
	return it
}

func TestStore_SaveListGet(t *testing.T) {
	assert := assert.New(t)
	store := openStore(t)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	older := item("2024-02-01", base)
	newer := item("2024-03-01", base.Add(time.Hour))
	require.NoError(t, store.Save(newer))
	require.NoError(t, store.Save(older))

	items, err := store.List()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(newer.ID, items[0].ID)
	assert.Equal(older.ID, items[1].ID)
	assert.Equal("2024-03-01", items[0].Rows[0].Label)
	assert.Equal(5, items[0].Config.MaxSamples)

	got, err := store.Get(older.ID)
	require.NoError(t, err)
	assert.Equal(older.Rows, got.Rows)
	assert.Equal(uint64(1), got.Summary.Samples)

	got, err = store.Get(newer.ID[:8])
	require.NoError(t, err)
	assert.Equal(newer.ID, got.ID)
}

func TestStore_GetMissing(t *testing.T) {
	store := openStore(t)

	_, err := store.Get("does-not-exist")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = store.Get("")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_PrunesOldest(t *testing.T) {
	store := openStore(t)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	first := item("first", base)
	require.NoError(t, store.Save(first))
	for i := 1; i <= MaxItems; i++ {
		require.NoError(t, store.Save(item("later", base.Add(time.Duration(i)*time.Minute))))
	}

	items, err := store.List()
	require.NoError(t, err)
	assert.Len(t, items, MaxItems)

	_, err = store.Get(first.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := NewStore(path)
	require.NoError(t, err)
	saved := item("2024-03-01", time.Now())
	require.NoError(t, store.Save(saved))
	require.NoError(t, store.Close())

	store, err = NewStore(path)
	require.NoError(t, err)
	defer store.Close()

	items, err := store.List()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, saved.ID, items[0].ID)
	assert.Equal(t, path, store.Path())
}
