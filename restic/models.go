package restic

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/napalu/restix/util"
)

// ErrNoSummary is returned when backup output contains no summary message,
// which happens when the tool dies before finishing the snapshot.
var ErrNoSummary = errors.New("no summary message in backup output")

// Snapshot is one entry of `snapshots --json`.
type Snapshot struct {
	ID       string    `json:"id"`
	ShortID  string    `json:"short_id"`
	Time     time.Time `json:"time"`
	Tree     string    `json:"tree"`
	Parent   string    `json:"parent,omitempty"`
	Paths    []string  `json:"paths"`
	Hostname string    `json:"hostname"`
	Username string    `json:"username"`
	Tags     []string  `json:"tags,omitempty"`
}

// UnmarshalJSON parses the timestamp tolerantly; tool versions disagree on
// sub-second precision and zone rendering.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	type alias Snapshot
	aux := struct {
		Time string `json:"time"`
		*alias
	}{alias: (*alias)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Time != "" {
		t, err := util.ParseTime(aux.Time)
		if err != nil {
			return err
		}
		s.Time = t
	}

	return nil
}

// Name returns the identifier humans use: the short ID when present.
func (s Snapshot) Name() string {
	if s.ShortID != "" {
		return s.ShortID
	}
	if len(s.ID) > 8 {
		return s.ID[:8]
	}

	return s.ID
}

// ParseSnapshots decodes `snapshots --json` output. Empty output decodes to
// an empty list.
func ParseSnapshots(data []byte) ([]Snapshot, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var snapshots []Snapshot
	if err := json.Unmarshal(data, &snapshots); err != nil {
		return nil, fmt.Errorf("cannot parse snapshot list: %w", err)
	}

	return snapshots, nil
}

// BackupSummary is the final message of `backup --json`.
type BackupSummary struct {
	FilesNew            uint64  `json:"files_new"`
	FilesChanged        uint64  `json:"files_changed"`
	FilesUnmodified     uint64  `json:"files_unmodified"`
	DirsNew             uint64  `json:"dirs_new"`
	DirsChanged         uint64  `json:"dirs_changed"`
	DirsUnmodified      uint64  `json:"dirs_unmodified"`
	DataAdded           uint64  `json:"data_added"`
	TotalFilesProcessed uint64  `json:"total_files_processed"`
	TotalBytesProcessed uint64  `json:"total_bytes_processed"`
	TotalDuration       float64 `json:"total_duration"`
	SnapshotID          string  `json:"snapshot_id"`
}

// ParseBackupOutput scans the line-delimited JSON a `backup --json` run
// prints and returns its summary message. Status and verbose messages are
// skipped; lines that are not JSON are ignored. Empty output yields no
// summary and no error; output without a summary message is ErrNoSummary.
func ParseBackupOutput(out string) (*BackupSummary, error) {
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}

	var summary *BackupSummary

	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] != '{' {
			continue
		}

		var envelope struct {
			MessageType string `json:"message_type"`
		}
		if err := json.Unmarshal([]byte(line), &envelope); err != nil {
			continue
		}
		if envelope.MessageType != "summary" {
			continue
		}

		var s BackupSummary
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			return nil, fmt.Errorf("cannot parse backup summary: %w", err)
		}
		summary = &s
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, ErrNoSummary
	}

	return summary, nil
}

// ForgetGroup is one entry of `forget --json`: the snapshots kept and
// removed for one host/path/tag group.
type ForgetGroup struct {
	Tags    []string     `json:"tags"`
	Host    string       `json:"host"`
	Paths   []string     `json:"paths"`
	Keep    []Snapshot   `json:"keep"`
	Remove  []Snapshot   `json:"remove"`
	Reasons []KeepReason `json:"reasons"`
}

// KeepReason explains which policy rules matched a kept snapshot.
type KeepReason struct {
	Snapshot Snapshot `json:"snapshot"`
	Matches  []string `json:"matches"`
}

// ParseForgetGroups decodes `forget --json` output. Empty output decodes to
// an empty list.
func ParseForgetGroups(data []byte) ([]ForgetGroup, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var groups []ForgetGroup
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("cannot parse forget output: %w", err)
	}

	return groups, nil
}

// Stats is the output of `stats --json`.
type Stats struct {
	TotalSize      uint64 `json:"total_size"`
	TotalFileCount uint64 `json:"total_file_count"`
	TotalBlobCount uint64 `json:"total_blob_count,omitempty"`
	SnapshotsCount int    `json:"snapshots_count"`
}

// ParseStats decodes `stats --json` output.
func ParseStats(data []byte) (*Stats, error) {
	var stats Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("cannot parse stats output: %w", err)
	}

	return &stats, nil
}
