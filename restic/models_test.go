package restic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshotsJSON = `[
  {
    "time": "2024-03-01T01:02:03.123456789+01:00",
    "parent": "2cd5f7b1f4a0b1c3964d8d2b87e4b9a905f4bd6a3f8b3ed18c2f5f57d2d8a111",
    "tree": "8b223f32c6b4f1b6a2e7f9a905f4bd6a3f8b3ed18c2f5f57d2d8a1112cd5f7b1",
    "paths": ["/home/user"],
    "hostname": "ariel",
    "username": "user",
    "tags": ["nightly", "home"],
    "id": "d3f01a62b1c3964d8d2b87e4b9a905f4bd6a3f8b3ed18c2f5f57d2d8a1118b22",
    "short_id": "d3f01a62"
  },
  {
    "time": "2024-02-29T23:00:00Z",
    "tree": "5f57d2d8a1118b228b223f32c6b4f1b6a2e7f9a905f4bd6a3f8b3ed18c2f5f57",
    "paths": ["/etc"],
    "hostname": "ariel",
    "username": "root",
    "id": "0a905f4bd6a3f8b3ed18c2f5f57d2d8a1118b228b223f32c6b4f1b6a2e7f9a9"
  }
]`

func TestParseSnapshots(t *testing.T) {
	snapshots, err := ParseSnapshots([]byte(snapshotsJSON))
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	first := snapshots[0]
	assert.Equal(t, "d3f01a62", first.ShortID)
	assert.Equal(t, "d3f01a62", first.Name())
	assert.Equal(t, []string{"/home/user"}, first.Paths)
	assert.Equal(t, "ariel", first.Hostname)
	assert.Equal(t, []string{"nightly", "home"}, first.Tags)

	wantTime := time.Date(2024, time.March, 1, 0, 2, 3, 123456789, time.UTC)
	assert.True(t, first.Time.UTC().Equal(wantTime), "offset timestamps should parse, got %v", first.Time)

	second := snapshots[1]
	assert.Empty(t, second.ShortID)
	assert.Equal(t, "0a905f4b", second.Name(), "Name should fall back to a truncated ID")
	assert.True(t, second.Time.Equal(time.Date(2024, time.February, 29, 23, 0, 0, 0, time.UTC)))
}

func TestParseSnapshots_BadPayload(t *testing.T) {
	_, err := ParseSnapshots([]byte(`{"not":"a list"}`))
	assert.Error(t, err)
}

func TestParseSnapshots_EmptyOutput(t *testing.T) {
	snapshots, err := ParseSnapshots([]byte(" \n"))
	require.NoError(t, err, "empty output is an empty repository, not a parse failure")
	assert.Empty(t, snapshots)
}

const backupOutput = `{"message_type":"status","percent_done":0.25,"total_files":120}
{"message_type":"status","percent_done":0.99,"total_files":120}
not json at all
{"message_type":"verbose_status","action":"new","item":"/home/user/notes.txt"}
{"message_type":"summary","files_new":12,"files_changed":3,"files_unmodified":105,"dirs_new":1,"dirs_changed":2,"dirs_unmodified":40,"data_added":1048576,"total_files_processed":120,"total_bytes_processed":52428800,"total_duration":4.25,"snapshot_id":"d3f01a62"}`

func TestParseBackupOutput(t *testing.T) {
	summary, err := ParseBackupOutput(backupOutput)
	require.NoError(t, err)

	assert.Equal(t, uint64(12), summary.FilesNew)
	assert.Equal(t, uint64(3), summary.FilesChanged)
	assert.Equal(t, uint64(1048576), summary.DataAdded)
	assert.Equal(t, uint64(120), summary.TotalFilesProcessed)
	assert.Equal(t, 4.25, summary.TotalDuration)
	assert.Equal(t, "d3f01a62", summary.SnapshotID)
}

func TestParseBackupOutput_NoSummary(t *testing.T) {
	out := `{"message_type":"status","percent_done":0.5}` + "\n"
	_, err := ParseBackupOutput(out)
	assert.ErrorIs(t, err, ErrNoSummary, "a run that dies early produces no summary")
}

func TestParseBackupOutput_EmptyOutput(t *testing.T) {
	summary, err := ParseBackupOutput("")
	require.NoError(t, err, "no output means nothing to parse, not a truncated run")
	assert.Nil(t, summary)
}

const forgetJSON = `[
  {
    "tags": null,
    "host": "ariel",
    "paths": ["/home/user"],
    "keep": [
      {"time": "2024-03-01T00:00:00Z", "id": "aaaa1111", "short_id": "aaaa", "hostname": "ariel", "paths": ["/home/user"]}
    ],
    "remove": [
      {"time": "2024-01-01T00:00:00Z", "id": "bbbb2222", "short_id": "bbbb", "hostname": "ariel", "paths": ["/home/user"]}
    ],
    "reasons": [
      {
        "snapshot": {"time": "2024-03-01T00:00:00Z", "id": "aaaa1111", "short_id": "aaaa", "hostname": "ariel", "paths": ["/home/user"]},
        "matches": ["daily snapshot", "last snapshot"]
      }
    ]
  }
]`

func TestParseForgetGroups(t *testing.T) {
	groups, err := ParseForgetGroups([]byte(forgetJSON))
	require.NoError(t, err)
	require.Len(t, groups, 1)

	group := groups[0]
	assert.Equal(t, "ariel", group.Host)
	require.Len(t, group.Keep, 1)
	require.Len(t, group.Remove, 1)
	assert.Equal(t, "aaaa", group.Keep[0].ShortID)
	assert.Equal(t, "bbbb", group.Remove[0].ShortID)
	require.Len(t, group.Reasons, 1)
	assert.Equal(t, []string{"daily snapshot", "last snapshot"}, group.Reasons[0].Matches)
}

func TestParseForgetGroups_EmptyOutput(t *testing.T) {
	groups, err := ParseForgetGroups([]byte(""))
	require.NoError(t, err, "forget with nothing to remove may print nothing")
	assert.Empty(t, groups)
}

func TestParseStats(t *testing.T) {
	stats, err := ParseStats([]byte(`{"total_size":52428800,"total_file_count":1204,"snapshots_count":15}`))
	require.NoError(t, err)

	assert.Equal(t, uint64(52428800), stats.TotalSize)
	assert.Equal(t, uint64(1204), stats.TotalFileCount)
	assert.Equal(t, 15, stats.SnapshotsCount)
}
