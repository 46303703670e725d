package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestStore_RecordAndFinish(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := NewRun("home", "backup", []string{"restic", "backup", "/home/user"})
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, StatusRunning, run.Status)
	require.NoError(t, store.Record(ctx, run))

	summary := &Summary{FilesNew: 12, DataAdded: 4096, SnapshotID: "abc123"}
	require.NoError(t, store.Finish(ctx, run.ID, StatusSuccess, 0, "", summary))

	got, err := store.LastRun(ctx, "home", "")
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, StatusSuccess, got.Status)
	assert.Equal(t, []string{"restic", "backup", "/home/user"}, got.Argv,
		"argv should round trip through storage")
	assert.Equal(t, uint64(12), got.Summary.FilesNew)
	assert.Equal(t, "abc123", got.Summary.SnapshotID)
	assert.False(t, got.FinishedAt.IsZero())
	assert.Greater(t, got.Duration(), time.Duration(0))
}

func TestStore_FinishFailed(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := NewRun("home", "backup", []string{"restic", "backup"})
	require.NoError(t, store.Record(ctx, run))
	require.NoError(t, store.Finish(ctx, run.ID, StatusFailed, 1, "repository locked", nil))

	got, err := store.LastRun(ctx, "home", "backup")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, 1, got.ExitCode)
	assert.Equal(t, "repository locked", got.Stderr)
}

func TestStore_FinishUnknownRun(t *testing.T) {
	store := openTestStore(t)

	err := store.Finish(context.Background(), "no-such-id", StatusSuccess, 0, "", nil)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestStore_List(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i, profile := range []string{"home", "home", "media"} {
		run := NewRun(profile, "backup", []string{"restic", "backup"})
		run.StartedAt = time.Now().Add(time.Duration(i) * time.Second)
		require.NoError(t, store.Record(ctx, run))
	}

	all, err := store.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "media", all[0].Profile, "runs should list newest first")

	home, err := store.List(ctx, "home", 0)
	require.NoError(t, err)
	assert.Len(t, home, 2)

	limited, err := store.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_LastRunFilters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	backup := NewRun("home", "backup", []string{"restic", "backup"})
	require.NoError(t, store.Record(ctx, backup))

	forget := NewRun("home", "forget", []string{"restic", "forget"})
	forget.StartedAt = backup.StartedAt.Add(time.Minute)
	require.NoError(t, store.Record(ctx, forget))

	last, err := store.LastRun(ctx, "home", "")
	require.NoError(t, err)
	assert.Equal(t, "forget", last.Command)

	last, err = store.LastRun(ctx, "home", "backup")
	require.NoError(t, err)
	assert.Equal(t, "backup", last.Command)

	_, err = store.LastRun(ctx, "unknown", "")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRun_DurationWhileRunning(t *testing.T) {
	run := NewRun("home", "backup", nil)
	assert.Zero(t, run.Duration(), "an unfinished run has no duration yet")
}
