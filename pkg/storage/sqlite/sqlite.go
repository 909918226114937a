package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pelosub/pelosub/pkg/logger"
	"github.com/pelosub/pelosub/pkg/storage"
)

type SQLite struct {
	db *sql.DB
}

// New opens the database at the given path, creating and migrating it as
// needed.
func New(filePath string) (storage.Storage, error) {
	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) AddContentIDs(ctx context.Context, ids []string, seen time.Time) (int, error) {
	log := logger.FromCtx(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO subscription_history (content_id, first_seen) VALUES (?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	added := 0
	for _, id := range ids {
		res, err := stmt.ExecContext(ctx, id, seen.UTC())
		if err != nil {
			log.Errorw("failed to record content id", "id", id, "error", err)
			return added, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return added, err
		}
		added += int(n)
	}

	return added, tx.Commit()
}

func (s *SQLite) TrackedIDs(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT content_id, first_seen FROM subscription_history`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]time.Time)
	for rows.Next() {
		var id string
		var seen time.Time
		if err := rows.Scan(&id, &seen); err != nil {
			return nil, err
		}
		ids[id] = seen
	}

	return ids, rows.Err()
}

func (s *SQLite) StaleIDs(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT content_id FROM subscription_history WHERE first_seen < ? ORDER BY first_seen`, cutoff.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (s *SQLite) RemoveContentIDs(ctx context.Context, ids []string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	removed := 0
	for _, id := range ids {
		res, err := tx.ExecContext(ctx, `DELETE FROM subscription_history WHERE content_id = ?`, id)
		if err != nil {
			return removed, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return removed, err
		}
		removed += int(n)
	}

	return removed, tx.Commit()
}

func (s *SQLite) RecordSnapshot(ctx context.Context, snap storage.Snapshot) error {
	byActivity, err := json.Marshal(snap.EpisodesByActivity)
	if err != nil {
		return fmt.Errorf("encoding activity counts: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO run_snapshot
		(run_id, run_at, media_episodes, subscriptions, issues_found, repaired, added, removed, converged, episodes_by_activity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.RunID, snap.RunAt.UTC(), snap.MediaEpisodes, snap.Subscriptions, snap.IssuesFound,
		snap.Repaired, snap.Added, snap.Removed, snap.Converged, string(byActivity))
	if err != nil {
		logger.FromCtx(ctx).Errorw("failed to record snapshot", "runId", snap.RunID, "error", err)
		return err
	}

	return nil
}

func (s *SQLite) Snapshots(ctx context.Context, limit int) ([]storage.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, run_at, media_episodes, subscriptions, issues_found, repaired, added, removed, converged, episodes_by_activity
		FROM run_snapshot ORDER BY run_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []storage.Snapshot
	for rows.Next() {
		var snap storage.Snapshot
		var byActivity string
		err := rows.Scan(&snap.RunID, &snap.RunAt, &snap.MediaEpisodes, &snap.Subscriptions,
			&snap.IssuesFound, &snap.Repaired, &snap.Added, &snap.Removed, &snap.Converged, &byActivity)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(byActivity), &snap.EpisodesByActivity); err != nil {
			return nil, fmt.Errorf("decoding activity counts for run %s: %w", snap.RunID, err)
		}
		snaps = append(snaps, snap)
	}

	return snaps, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
