package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelosub/pelosub/pkg/storage"
)

func newTestStorage(t *testing.T) storage.Storage {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "pelosub.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_ContentIDLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	added, err := s.AddContentIDs(ctx, []string{"aaa", "bbb"}, old)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	// re-adding keeps the original first-seen time
	added, err = s.AddContentIDs(ctx, []string{"aaa", "ccc"}, recent)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	tracked, err := s.TrackedIDs(ctx)
	require.NoError(t, err)
	require.Len(t, tracked, 3)
	assert.True(t, tracked["aaa"].Equal(old))
	assert.True(t, tracked["ccc"].Equal(recent))

	stale, err := s.StaleIDs(ctx, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{"aaa", "bbb"}, stale)

	removed, err := s.RemoveContentIDs(ctx, []string{"aaa", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	tracked, err = s.TrackedIDs(ctx)
	require.NoError(t, err)
	assert.NotContains(t, tracked, "aaa")
	assert.Contains(t, tracked, "bbb")
}

func TestSQLite_Snapshots(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	first := storage.Snapshot{
		RunID:              "run-1",
		RunAt:              time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		MediaEpisodes:      10,
		Subscriptions:      4,
		IssuesFound:        2,
		Repaired:           2,
		Added:              3,
		Removed:            1,
		Converged:          true,
		EpisodesByActivity: map[string]int{"Cycling": 7, "Yoga": 3},
	}
	second := storage.Snapshot{
		RunID:              "run-2",
		RunAt:              time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC),
		MediaEpisodes:      12,
		Converged:          false,
		EpisodesByActivity: map[string]int{"Cycling": 9, "Yoga": 3},
	}

	require.NoError(t, s.RecordSnapshot(ctx, first))
	require.NoError(t, s.RecordSnapshot(ctx, second))

	snaps, err := s.Snapshots(ctx, 10)
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	// newest first
	assert.Equal(t, "run-2", snaps[0].RunID)
	assert.Equal(t, "run-1", snaps[1].RunID)
	assert.Equal(t, first.EpisodesByActivity, snaps[1].EpisodesByActivity)
	assert.True(t, snaps[1].Converged)
	assert.False(t, snaps[0].Converged)

	limited, err := s.Snapshots(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "run-2", limited[0].RunID)
}

func TestSQLite_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pelosub.sqlite")

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// reopening an already-migrated database is a no-op
	s, err = New(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}
