package manager

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/pelosub/pelosub/pkg/episodes"
	"github.com/pelosub/pelosub/pkg/library"
	"github.com/pelosub/pelosub/pkg/logger"
	"github.com/pelosub/pelosub/pkg/scraper"
	"github.com/pelosub/pelosub/pkg/storage"
	"github.com/pelosub/pelosub/pkg/strategy"
	"github.com/pelosub/pelosub/pkg/subscriptions"
	"github.com/pelosub/pelosub/pkg/validator"
)

// RunSummary is the machine-readable outcome of one reconciliation run. The
// sync command prints it to stdout as JSON.
type RunSummary struct {
	RunID              string           `json:"runId"`
	StartedAt          time.Time        `json:"startedAt"`
	DurationSeconds    float64          `json:"durationSeconds"`
	Validation         validator.Result `json:"validation"`
	MediaEpisodes      int              `json:"mediaEpisodes"`
	SkippedDirectories int              `json:"skippedDirectories"`
	Subscriptions      int              `json:"subscriptions"`
	Removed            int              `json:"removed"`
	Pruned             int              `json:"pruned"`
	Added              int              `json:"added"`
	EpisodesByActivity map[string]int   `json:"episodesByActivity"`
	// NumberingGaps lists shows whose episode numbering has holes, usually a
	// sign the library and the store drifted apart.
	NumberingGaps []string `json:"numberingGaps,omitempty"`
}

// Options tunes a reconciliation run.
type Options struct {
	MediaDir   string
	StorePath  string
	Activities []string
	ClassLimit int
	StaleAfter time.Duration
	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// Manager runs the reconciliation pipeline: validate the library, scan it,
// drop downloaded and stale subscriptions, queue new classes, save the store,
// record history. It never publishes anywhere; callers decide what to do with
// the rewritten store file.
type Manager struct {
	store   *subscriptions.Store
	history storage.Storage
	val     *validator.Validator
	scraper scraper.Scraper
	parser  strategy.NameParser
	norm    strategy.Normalizer
	opts    Options
}

// New wires a manager. scr may be nil; the run then reconciles disk and store
// without queueing anything new.
func New(store *subscriptions.Store, history storage.Storage, val *validator.Validator, scr scraper.Scraper, parser strategy.NameParser, norm strategy.Normalizer, opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		store:   store,
		history: history,
		val:     val,
		scraper: scr,
		parser:  parser,
		norm:    norm,
		opts:    opts,
	}
}

// Sync runs one full reconciliation. A malformed store aborts before any
// mutation; per-entry and per-directory problems are skipped and counted.
func (m *Manager) Sync(ctx context.Context) (RunSummary, error) {
	log := logger.FromCtx(ctx)
	now := m.opts.Now()

	summary := RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: now,
	}
	log = log.With("runId", summary.RunID)
	ctx = logger.WithCtx(ctx, log)

	entries, err := m.store.Load(ctx, m.opts.StorePath)
	if err != nil {
		return summary, fmt.Errorf("loading store: %w", err)
	}

	vres, err := m.val.Run(ctx, entries)
	if err != nil {
		return summary, fmt.Errorf("validating library: %w", err)
	}
	summary.Validation = vres

	scanner := library.NewScanner(os.DirFS(m.opts.MediaDir), m.parser, m.norm)
	media, stats, err := scanner.Scan(ctx)
	if err != nil {
		return summary, fmt.Errorf("scanning library: %w", err)
	}
	summary.MediaEpisodes = stats.Scanned
	summary.SkippedDirectories = stats.Skipped
	summary.EpisodesByActivity = countByActivity(media)

	diskIDs, err := scanner.ContentIDs(ctx)
	if err != nil {
		return summary, fmt.Errorf("collecting downloaded ids: %w", err)
	}

	entries, removed := subscriptions.Remove(entries, diskIDs)
	summary.Removed = removed
	if removed > 0 {
		log.Infow("removed downloaded subscriptions", "count", removed)
	}

	tracked, err := m.history.TrackedIDs(ctx)
	if err != nil {
		return summary, fmt.Errorf("reading history: %w", err)
	}

	if m.opts.StaleAfter > 0 {
		stale, err := m.history.StaleIDs(ctx, now.Add(-m.opts.StaleAfter))
		if err != nil {
			return summary, fmt.Errorf("reading stale history: %w", err)
		}
		staleSet := make(map[string]struct{}, len(stale))
		for _, id := range stale {
			staleSet[id] = struct{}{}
		}
		// history keeps the ids, so a pruned class is not queued again
		entries, summary.Pruned = subscriptions.Remove(entries, staleSet)
		if summary.Pruned > 0 {
			log.Infow("pruned stale subscriptions", "count", summary.Pruned)
		}
	}

	idx := episodes.Build(media, entries)
	summary.NumberingGaps = numberingGaps(idx)
	if len(summary.NumberingGaps) > 0 {
		log.Warnw("episode numbering has holes", "shows", summary.NumberingGaps)
	}

	entries, added := m.queueNewClasses(ctx, entries, idx, diskIDs, tracked)
	summary.Added = added

	if err := m.store.Save(ctx, m.opts.StorePath, entries); err != nil {
		return summary, fmt.Errorf("saving store: %w", err)
	}
	summary.Subscriptions = len(entries)

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ContentID)
	}
	if _, err := m.history.AddContentIDs(ctx, ids, now); err != nil {
		return summary, fmt.Errorf("recording history: %w", err)
	}

	summary.DurationSeconds = time.Since(now).Seconds()
	if err := m.history.RecordSnapshot(ctx, summary.snapshot()); err != nil {
		return summary, fmt.Errorf("recording snapshot: %w", err)
	}

	log.Infow("sync complete",
		"mediaEpisodes", summary.MediaEpisodes,
		"subscriptions", summary.Subscriptions,
		"added", summary.Added,
		"removed", summary.Removed,
		"pruned", summary.Pruned,
		"converged", summary.Validation.Converged,
	)
	return summary, nil
}

// queueNewClasses asks the scraper for candidates per activity and numbers
// the new ones. Classes already on disk, already queued, or seen on a prior
// run are skipped.
func (m *Manager) queueNewClasses(ctx context.Context, entries []subscriptions.Entry, idx *episodes.Index, diskIDs map[string]struct{}, tracked map[string]time.Time) ([]subscriptions.Entry, int) {
	if m.scraper == nil {
		return entries, 0
	}

	log := logger.FromCtx(ctx)

	queued := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		queued[e.ContentID] = struct{}{}
	}

	activities := m.opts.Activities
	if len(activities) == 0 {
		activities = m.norm.Activities()
	}

	added := 0
	for _, activity := range activities {
		classes, err := m.scraper.FindClasses(ctx, activity, m.opts.ClassLimit)
		if err != nil {
			// one failed activity should not sink the rest of the run
			log.Warnw("scrape failed", "activity", activity, "error", err)
			continue
		}

		for _, c := range classes {
			if c.ContentID == "" {
				continue
			}
			if _, ok := diskIDs[c.ContentID]; ok {
				continue
			}
			if _, ok := queued[c.ContentID]; ok {
				continue
			}
			if _, ok := tracked[c.ContentID]; ok {
				continue
			}

			canonical, ok := m.norm.Canonical(c.Activity)
			if !ok {
				log.Debugw("skipping class with unknown activity", "id", c.ContentID, "activity", c.Activity)
				continue
			}

			key := episodes.Key{Activity: canonical, Instructor: c.Instructor, Season: c.DurationMinutes}
			entry := subscriptions.Entry{
				ContentID:   c.ContentID,
				Activity:    canonical,
				Instructor:  c.Instructor,
				Season:      c.DurationMinutes,
				Episode:     idx.Next(key),
				Title:       fmt.Sprintf("%s with %s", c.Title, c.Instructor),
				DownloadURL: c.DownloadURL(),
			}
			idx.Observe(key, entry.Episode)
			queued[entry.ContentID] = struct{}{}
			entries = append(entries, entry)
			added++
		}
	}

	return entries, added
}

func (s RunSummary) snapshot() storage.Snapshot {
	return storage.Snapshot{
		RunID:              s.RunID,
		RunAt:              s.StartedAt,
		MediaEpisodes:      s.MediaEpisodes,
		Subscriptions:      s.Subscriptions,
		IssuesFound:        s.Validation.IssuesFound,
		Repaired:           s.Validation.Repaired,
		Added:              s.Added,
		Removed:            s.Removed,
		Converged:          s.Validation.Converged,
		EpisodesByActivity: s.EpisodesByActivity,
	}
}

// numberingGaps reports keys with fewer entries than their highest episode
// number.
func numberingGaps(idx *episodes.Index) []string {
	var gaps []string
	for _, k := range idx.Keys() {
		if idx.Count(k) < idx.Max(k) {
			gaps = append(gaps, fmt.Sprintf("%s/%s (%d min)", k.Activity, k.Instructor, k.Season))
		}
	}
	return gaps
}

func countByActivity(media []library.Entry) map[string]int {
	counts := make(map[string]int)
	for _, e := range media {
		counts[e.Activity]++
	}
	return counts
}
