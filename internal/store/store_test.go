package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, ttlDays int) *Store {
	t.Helper()
	s, err := Open(":memory:", ttlDays)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_GetCount_Empty(t *testing.T) {
	s := openTestStore(t, 7)

	_, ok, err := s.GetCount(t.Context(), "jazz", 1959)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SetAndGetCount(t *testing.T) {
	s := openTestStore(t, 7)

	require.NoError(t, s.SetCount(t.Context(), "jazz", 1959, 1234))
	require.NoError(t, s.SetCount(t.Context(), "jazz", 1959, 1300))

	count, ok, err := s.GetCount(t.Context(), "jazz", 1959)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1300, count)

	_, ok, err = s.GetCount(t.Context(), "jazz", 1960)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ZeroCountIsCached(t *testing.T) {
	s := openTestStore(t, 7)

	require.NoError(t, s.SetCount(t.Context(), "grunge", 1955, 0))

	count, ok, err := s.GetCount(t.Context(), "grunge", 1955)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, count)
}

func TestStore_Expiry(t *testing.T) {
	s := openTestStore(t, 7)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	require.NoError(t, s.SetCounts(t.Context(), []Count{
		{Genre: "jazz", Year: 1959, Count: 10},
		{Genre: "rock", Year: 1959, Count: 20},
	}))

	s.now = func() time.Time { return base.AddDate(0, 0, 6) }
	_, ok, err := s.GetCount(t.Context(), "jazz", 1959)
	require.NoError(t, err)
	assert.True(t, ok, "entry should still be fresh after 6 days")

	s.now = func() time.Time { return base.AddDate(0, 0, 8) }
	_, ok, err = s.GetCount(t.Context(), "jazz", 1959)
	require.NoError(t, err)
	assert.False(t, ok, "entry should be expired after 8 days")

	require.NoError(t, s.SetCount(t.Context(), "blues", 1959, 5))
	n, err := s.Purge(t.Context(), true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, ok, err := s.GetCount(t.Context(), "blues", 1959)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5, count)
}

func TestStore_PurgeAll(t *testing.T) {
	s := openTestStore(t, 7)
	require.NoError(t, s.SetCount(t.Context(), "jazz", 1959, 1))

	n, err := s.Purge(t.Context(), false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")

	s, err := Open(path, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTLDays, s.ttlDays)
	require.NoError(t, s.SetCount(t.Context(), "jazz", 1959, 42))
	require.NoError(t, s.Close())

	s, err = Open(path, 0)
	require.NoError(t, err)
	defer s.Close()

	count, ok, err := s.GetCount(t.Context(), "jazz", 1959)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 42, count)
}
