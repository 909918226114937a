package validator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	fileio "github.com/pelosub/pelosub/pkg/io"
	"github.com/pelosub/pelosub/pkg/io/mocks"
	"github.com/pelosub/pelosub/pkg/strategy/peloton"
	"github.com/pelosub/pelosub/pkg/subscriptions"
)

func newValidator(t *testing.T, root string, opts ...Option) *Validator {
	t.Helper()
	return New(root, &fileio.MediaFileSystem{}, peloton.NewParser(), peloton.NewPathStrategy(), peloton.NewNormalizer(), opts...)
}

func mkdirs(t *testing.T, root string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(d)), 0o755))
	}
}

func listTree(t *testing.T, root string) []string {
	t.Helper()
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		require.NoError(t, err)
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		require.NoError(t, err)
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	require.NoError(t, err)
	sort.Strings(paths)
	return paths
}

func TestValidator_CleanLibraryConverges(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root,
		"Cycling/Alex Toussaint/S020E001 - 2024-02-01 - 20 min Climb Ride",
		"Yoga/Aditi Shah/S030E007 - 2024-01-15 - 30 min Focus Flow",
	)

	res, err := newValidator(t, root).Run(context.Background(), nil)
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.Equal(t, 1, res.Passes)
	assert.Zero(t, res.IssuesFound)
	assert.Zero(t, res.Repaired)
}

func TestValidator_MissingRootConverges(t *testing.T) {
	res, err := newValidator(t, filepath.Join(t.TempDir(), "missing")).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Zero(t, res.Passes)
}

func TestValidator_RepairsMalformedName(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "Cycling/Alex Toussaint/20 min Climb Ride s20e1 2024-02-01")

	res, err := newValidator(t, root).Run(context.Background(), nil)
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.Equal(t, 1, res.IssuesFound)
	assert.Equal(t, 1, res.Repaired)
	assert.Zero(t, res.Failed)

	assert.Contains(t, listTree(t, root), "Cycling/Alex Toussaint/S020E001 - 2024-02-01 - 20 min Climb Ride")
}

func TestValidator_FlagsUnsalvageableName(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "Cycling/Alex Toussaint/Some Random Notes")

	res, err := newValidator(t, root).Run(context.Background(), nil)
	require.NoError(t, err)

	// nothing to repair, but the issue is reported
	assert.True(t, res.Converged)
	assert.Equal(t, 1, res.IssuesFound)
	assert.Zero(t, res.Repaired)
	require.Len(t, res.Remaining, 1)
	assert.Equal(t, IssueMalformedName, res.Remaining[0].Kind)

	assert.Contains(t, listTree(t, root), "Cycling/Alex Toussaint/Some Random Notes")
}

func TestValidator_DuplicateKeepsOldest(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root,
		"Cycling/Alex Toussaint/S020E001 - 2024-01-15 - Morning Ride",
		"Cycling/Alex Toussaint/S020E001 - 2024-01-16 - Evening Ride",
	)

	res, err := newValidator(t, root).Run(context.Background(), nil)
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.Equal(t, 1, res.Repaired)

	tree := listTree(t, root)
	assert.Contains(t, tree, "Cycling/Alex Toussaint/S020E001 - 2024-01-15 - Morning Ride")
	assert.Contains(t, tree, "Cycling/Alex Toussaint/S020E002 - 2024-01-16 - Evening Ride")
}

func TestValidator_DuplicateRespectsQueuedNumbers(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root,
		"Cycling/Alex Toussaint/S020E001 - 2024-01-15 - Morning Ride",
		"Cycling/Alex Toussaint/S020E001 - 2024-01-16 - Evening Ride",
	)

	subs := []subscriptions.Entry{
		{ContentID: "q1", Activity: "Cycling", Instructor: "Alex Toussaint", Season: 20, Episode: 2},
	}

	res, err := newValidator(t, root).Run(context.Background(), subs)
	require.NoError(t, err)
	assert.True(t, res.Converged)

	// episode 2 is reserved by the queued subscription
	assert.Contains(t, listTree(t, root), "Cycling/Alex Toussaint/S020E003 - 2024-01-16 - Evening Ride")
}

func TestValidator_SeasonFollowsMetadataDuration(t *testing.T) {
	root := t.TempDir()
	dir := "Cycling/Alex Toussaint/S020E001 - 2024-02-01 - 30 min Climb Ride"
	mkdirs(t, root, dir)
	sidecar := filepath.Join(root, filepath.FromSlash(dir), "ride.info.json")
	require.NoError(t, os.WriteFile(sidecar, []byte(`{"id":"abc","duration":1800}`), 0o644))

	res, err := newValidator(t, root).Run(context.Background(), nil)
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.Equal(t, 1, res.Repaired)
	assert.Contains(t, listTree(t, root), "Cycling/Alex Toussaint/S030E001 - 2024-02-01 - 30 min Climb Ride")
}

func TestValidator_RemovesEmptyParentsBottomUp(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root,
		"Cycling/Alex Toussaint/S020E001 - 2024-02-01 - Ride",
		"Yoga/Aditi Shah",
		"Strength",
		"Peloton Exports", // not a recognized activity, never touched
	)

	res, err := newValidator(t, root).Run(context.Background(), nil)
	require.NoError(t, err)

	assert.True(t, res.Converged)
	// the emptied activity becomes removable only after its instructor is gone
	assert.GreaterOrEqual(t, res.Passes, 3)
	assert.Equal(t, 3, res.Repaired)

	tree := listTree(t, root)
	assert.NotContains(t, tree, "Yoga")
	assert.NotContains(t, tree, "Strength")
	assert.Contains(t, tree, "Peloton Exports")
	assert.Contains(t, tree, "Cycling/Alex Toussaint/S020E001 - 2024-02-01 - Ride")
}

func TestValidator_DryRunLeavesDiskUntouched(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root,
		"Cycling/Alex Toussaint/20 min Climb Ride s20e1 2024-02-01",
		"Yoga/Aditi Shah",
	)
	before := listTree(t, root)

	res, err := newValidator(t, root, WithDryRun(true)).Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Passes)
	assert.False(t, res.Converged)
	assert.Len(t, res.Planned, 2)
	assert.Zero(t, res.Repaired)

	assert.Equal(t, before, listTree(t, root))
}

func TestValidator_ApplyCountsFailuresAndContinues(t *testing.T) {
	ctrl := gomock.NewController(t)
	fs := mocks.NewMockFileIO(ctrl)

	root := filepath.FromSlash("/lib")
	v := New(root, fs, peloton.NewParser(), peloton.NewPathStrategy(), peloton.NewNormalizer())

	actions := []Action{
		{Kind: ActionRename, Source: "Cycling/A/bad", Target: "Cycling/A/good", Issue: IssueMalformedName},
		{Kind: ActionRename, Source: "Cycling/A/dup", Target: "Cycling/A/renumbered", Issue: IssueDuplicateEpisode},
	}

	abs := func(rel string) string { return filepath.Join(root, filepath.FromSlash(rel)) }

	fs.EXPECT().FileExists(abs("Cycling/A/bad")).Return(true)
	fs.EXPECT().Rename(abs("Cycling/A/bad"), abs("Cycling/A/good")).Return(errors.New("permission denied"))
	fs.EXPECT().FileExists(abs("Cycling/A/dup")).Return(true)
	fs.EXPECT().Rename(abs("Cycling/A/dup"), abs("Cycling/A/renumbered")).Return(nil)

	applied, failed := v.apply(context.Background(), actions)
	assert.Equal(t, 1, applied)
	assert.Equal(t, 1, failed)
}

func TestValidator_ApplyTreatsCompletedRenameAsDone(t *testing.T) {
	ctrl := gomock.NewController(t)
	fs := mocks.NewMockFileIO(ctrl)

	root := filepath.FromSlash("/lib")
	v := New(root, fs, peloton.NewParser(), peloton.NewPathStrategy(), peloton.NewNormalizer())

	abs := func(rel string) string { return filepath.Join(root, filepath.FromSlash(rel)) }
	fs.EXPECT().FileExists(abs("Cycling/A/bad")).Return(false)
	fs.EXPECT().FileExists(abs("Cycling/A/good")).Return(true)

	applied, failed := v.apply(context.Background(), []Action{
		{Kind: ActionRename, Source: "Cycling/A/bad", Target: "Cycling/A/good", Issue: IssueMalformedName},
	})
	assert.Equal(t, 1, applied)
	assert.Zero(t, failed)
}
