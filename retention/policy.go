// Package retention implements the snapshot selection the backup tool's
// forget command applies. A Policy can be evaluated locally over a parsed
// snapshot list, or rendered into forget flags so the tool does the
// selection itself.
package retention

import (
	"fmt"
	"strconv"
	"time"

	"github.com/napalu/restix"
	"github.com/napalu/restix/parse"
	"github.com/napalu/restix/restic"
	"github.com/tidwall/btree"
)

// Policy mirrors the keep flags of the forget command. The zero value
// keeps nothing; callers should treat an Empty policy as a configuration
// mistake rather than apply it.
type Policy struct {
	Last    int            `json:"last,omitempty"`
	Hourly  int            `json:"hourly,omitempty"`
	Daily   int            `json:"daily,omitempty"`
	Weekly  int            `json:"weekly,omitempty"`
	Monthly int            `json:"monthly,omitempty"`
	Yearly  int            `json:"yearly,omitempty"`
	Within  parse.Duration `json:"within,omitempty"`
	Tags    []string       `json:"tags,omitempty"`
}

// Empty reports whether the policy would keep nothing.
func (p Policy) Empty() bool {
	return p.Last == 0 && p.Hourly == 0 && p.Daily == 0 && p.Weekly == 0 &&
		p.Monthly == 0 && p.Yearly == 0 && p.Within.Zero() && len(p.Tags) == 0
}

// Args binds the policy onto a builder positioned on the forget command.
func (p Policy) Args(b *restix.CommandBuilder) error {
	counted := []struct {
		name  string
		value int
	}{
		{"keep-last", p.Last},
		{"keep-hourly", p.Hourly},
		{"keep-daily", p.Daily},
		{"keep-weekly", p.Weekly},
		{"keep-monthly", p.Monthly},
		{"keep-yearly", p.Yearly},
	}
	for _, keep := range counted {
		if keep.value == 0 {
			continue
		}
		if err := b.ParamValue(keep.name, strconv.Itoa(keep.value)); err != nil {
			return err
		}
	}

	if !p.Within.Zero() {
		if err := b.ParamValue("keep-within", p.Within.String()); err != nil {
			return err
		}
	}
	for _, tag := range p.Tags {
		if err := b.ParamValue("keep-tag", tag); err != nil {
			return err
		}
	}

	return nil
}

// Result lists which snapshots a policy keeps and why. Keep and Remove are
// ordered newest first; Reasons maps snapshot IDs to the rules that
// matched them.
type Result struct {
	Keep    []restic.Snapshot
	Remove  []restic.Snapshot
	Reasons map[string][]string
}

type bucketRule struct {
	name   string
	budget int
	bucket func(t time.Time) string
}

// Apply evaluates the policy against snapshots at the reference time now,
// the way forget does: every counted rule walks newest to oldest and keeps
// the newest snapshot of each period bucket until its budget is spent,
// keep-within keeps everything after the cutoff, and keep-tag keeps
// snapshots carrying one of the tags. Snapshots no rule claims land in
// Remove.
func (p Policy) Apply(snapshots []restic.Snapshot, now time.Time) Result {
	index := btree.NewMap[string, restic.Snapshot](0)
	for _, snap := range snapshots {
		index.Set(indexKey(snap), snap)
	}

	rules := []bucketRule{
		{"last snapshot", p.Last, func(t time.Time) string { return t.Format("2006-01-02 15:04:05.999999999") }},
		{"hourly snapshot", p.Hourly, func(t time.Time) string { return t.Format("2006-01-02 15") }},
		{"daily snapshot", p.Daily, func(t time.Time) string { return t.Format("2006-01-02") }},
		{"weekly snapshot", p.Weekly, isoWeek},
		{"monthly snapshot", p.Monthly, func(t time.Time) string { return t.Format("2006-01") }},
		{"yearly snapshot", p.Yearly, func(t time.Time) string { return t.Format("2006") }},
	}

	reasons := make(map[string][]string)
	for _, rule := range rules {
		if rule.budget <= 0 {
			continue
		}
		kept := 0
		lastBucket := ""
		index.Reverse(func(_ string, snap restic.Snapshot) bool {
			bucket := rule.bucket(snap.Time)
			if bucket == lastBucket {
				return true
			}
			lastBucket = bucket
			reasons[snap.ID] = append(reasons[snap.ID], rule.name)
			kept++
			return kept < rule.budget
		})
	}

	if !p.Within.Zero() {
		cutoff := p.Within.SubtractFrom(now)
		within := fmt.Sprintf("within %s", p.Within)
		index.Reverse(func(_ string, snap restic.Snapshot) bool {
			if snap.Time.Before(cutoff) {
				return false
			}
			reasons[snap.ID] = append(reasons[snap.ID], within)
			return true
		})
	}

	if len(p.Tags) > 0 {
		index.Reverse(func(_ string, snap restic.Snapshot) bool {
			if tagged(snap, p.Tags) {
				reasons[snap.ID] = append(reasons[snap.ID], "tagged snapshot")
			}
			return true
		})
	}

	result := Result{Reasons: reasons}
	index.Reverse(func(_ string, snap restic.Snapshot) bool {
		if _, keep := reasons[snap.ID]; keep {
			result.Keep = append(result.Keep, snap)
		} else {
			result.Remove = append(result.Remove, snap)
		}
		return true
	})

	return result
}

// indexKey orders snapshots by time with the ID as a tie breaker.
func indexKey(snap restic.Snapshot) string {
	return fmt.Sprintf("%020d:%s", snap.Time.UnixNano(), snap.ID)
}

func isoWeek(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-%02d", year, week)
}

func tagged(snap restic.Snapshot, tags []string) bool {
	for _, want := range tags {
		for _, have := range snap.Tags {
			if want == have {
				return true
			}
		}
	}

	return false
}
