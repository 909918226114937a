package storage

import (
	"context"
	"time"
)

// Snapshot captures the outcome of one reconciliation run.
type Snapshot struct {
	RunID              string         `json:"runId"`
	RunAt              time.Time      `json:"runAt"`
	MediaEpisodes      int            `json:"mediaEpisodes"`
	Subscriptions      int            `json:"subscriptions"`
	IssuesFound        int            `json:"issuesFound"`
	Repaired           int            `json:"repaired"`
	Added              int            `json:"added"`
	Removed            int            `json:"removed"`
	Converged          bool           `json:"converged"`
	EpisodesByActivity map[string]int `json:"episodesByActivity"`
}

// Storage persists subscription history and run snapshots. History keeps a
// class from being re-queued after its store entry is removed; snapshots feed
// the history command.
type Storage interface {
	// AddContentIDs records ids first seen at the given time, ignoring ids
	// already tracked. It returns how many were new.
	AddContentIDs(ctx context.Context, ids []string, seen time.Time) (int, error)
	// TrackedIDs returns every tracked id with its first-seen time.
	TrackedIDs(ctx context.Context) (map[string]time.Time, error)
	// StaleIDs returns ids first seen before the cutoff.
	StaleIDs(ctx context.Context, cutoff time.Time) ([]string, error)
	// RemoveContentIDs forgets the given ids.
	RemoveContentIDs(ctx context.Context, ids []string) (int, error)
	// RecordSnapshot stores one run snapshot.
	RecordSnapshot(ctx context.Context, snap Snapshot) error
	// Snapshots returns up to limit snapshots, newest first.
	Snapshots(ctx context.Context, limit int) ([]Snapshot, error)
	Close() error
}
