package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelosub/pelosub/pkg/episodes"
	fileio "github.com/pelosub/pelosub/pkg/io"
	"github.com/pelosub/pelosub/pkg/library"
	"github.com/pelosub/pelosub/pkg/logger"
	"github.com/pelosub/pelosub/pkg/strategy"
	"github.com/pelosub/pelosub/pkg/subscriptions"
)

const defaultMaxPasses = 5

// Validator detects and repairs anomalies in the media library layout. Each
// pass rescans from scratch, so a repair never has to update in-memory state;
// it only has to leave the tree closer to convention than it found it.
type Validator struct {
	root      string
	fs        fileio.FileIO
	parser    strategy.NameParser
	path      strategy.PathStrategy
	norm      strategy.Normalizer
	maxPasses int
	dryRun    bool
}

type Option func(*Validator)

// WithMaxPasses bounds the repair loop. Repairs can reveal new issues, e.g. a
// renumbered duplicate colliding with a later rename, so the loop runs until a
// pass plans nothing or the bound is hit.
func WithMaxPasses(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.maxPasses = n
		}
	}
}

// WithDryRun makes Run report planned repairs without touching the
// filesystem. A dry run performs a single pass; without applying repairs
// there is nothing for further passes to discover.
func WithDryRun(dry bool) Option {
	return func(v *Validator) {
		v.dryRun = dry
	}
}

func New(root string, fsys fileio.FileIO, parser strategy.NameParser, path strategy.PathStrategy, norm strategy.Normalizer, opts ...Option) *Validator {
	v := &Validator{
		root:      root,
		fs:        fsys,
		parser:    parser,
		path:      path,
		norm:      norm,
		maxPasses: defaultMaxPasses,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Run validates the library and repairs what it can. Subscription entries
// seed the episode index so renumbered directories never collide with numbers
// already promised to queued downloads.
//
// Individual repair failures are logged and skipped; only scan errors abort
// the run.
func (v *Validator) Run(ctx context.Context, subs []subscriptions.Entry) (Result, error) {
	log := logger.FromCtx(ctx)

	var res Result
	if !v.fs.FileExists(v.root) {
		log.Infow("media root does not exist, nothing to validate", "root", v.root)
		res.Converged = true
		return res, nil
	}

	for pass := 1; pass <= v.maxPasses; pass++ {
		res.Passes = pass

		issues, actions, err := v.pass(ctx, subs)
		if err != nil {
			return res, fmt.Errorf("validation pass %d: %w", pass, err)
		}
		if pass == 1 {
			res.IssuesFound = len(issues)
		}
		log.Infow("validation pass complete", "pass", pass, "issues", len(issues), "planned", len(actions))

		if v.dryRun {
			res.Planned = actions
			res.Remaining = issues
			res.Converged = len(actions) == 0
			return res, nil
		}

		if len(actions) == 0 {
			res.Converged = true
			res.Remaining = issues
			return res, nil
		}

		applied, failed := v.apply(ctx, actions)
		res.Repaired += applied
		res.Failed += failed
	}

	// bound hit with repairs still pending; report what the next pass would see
	issues, actions, err := v.pass(ctx, subs)
	if err != nil {
		return res, fmt.Errorf("final validation scan: %w", err)
	}
	res.Remaining = issues
	res.Converged = len(actions) == 0
	if !res.Converged {
		log.Warnw("validation did not converge", "passes", res.Passes, "remaining", len(issues))
	}
	return res, nil
}

// pass runs one detect-and-plan cycle without mutating anything.
func (v *Validator) pass(ctx context.Context, subs []subscriptions.Entry) ([]Issue, []Action, error) {
	scanner := library.NewScanner(os.DirFS(v.root), v.parser, v.norm)
	entries, _, err := scanner.Scan(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("scanning library: %w", err)
	}

	idx := episodes.Build(entries, subs)

	var issues []Issue
	var actions []Action
	// targets already claimed this pass, so two repairs never race for a path
	claimed := make(map[string]struct{})

	malformed, err := v.detectMalformed(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, m := range malformed {
		issue, action, ok := v.planMalformed(ctx, m, idx, claimed)
		issues = append(issues, issue)
		if ok {
			actions = append(actions, action)
		}
	}

	for _, mm := range v.detectSeasonMismatches(ctx, entries) {
		issue, action := v.planSeasonMismatch(mm, idx, claimed)
		issues = append(issues, issue)
		actions = append(actions, action)
	}

	for _, group := range detectDuplicates(entries) {
		issue, acts := v.planDuplicates(group, idx, claimed)
		issues = append(issues, issue)
		actions = append(actions, acts...)
	}

	orphans, err := v.detectOrphans(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, dir := range orphans {
		issues = append(issues, Issue{Kind: IssueOrphanedParent, Path: dir, Detail: "empty directory"})
		actions = append(actions, Action{
			Kind:   ActionRemoveDir,
			Source: dir,
			Issue:  IssueOrphanedParent,
			Reason: "remove empty directory",
		})
	}

	return issues, actions, nil
}

// malformedDir is an episode-level directory whose name fails the strict
// naming convention.
type malformedDir struct {
	path       string // relative, slash separated
	activity   string
	instructor string
	name       string
}

func (v *Validator) detectMalformed(ctx context.Context) ([]malformedDir, error) {
	var found []malformedDir

	err := v.fs.WalkDir(os.DirFS(v.root), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fs.SkipDir
		}
		if !d.IsDir() || path == "." {
			return nil
		}

		parts := strings.Split(path, "/")
		switch len(parts) {
		case 1:
			// foreign top-level directories are not ours to repair
			if _, ok := v.norm.Canonical(parts[0]); !ok {
				return fs.SkipDir
			}
			return nil
		case 2:
			return nil
		case 3:
			if _, ok := v.parser.Parse(d.Name()); !ok {
				activity, _ := v.norm.Canonical(parts[0])
				found = append(found, malformedDir{
					path:       path,
					activity:   activity,
					instructor: parts[1],
					name:       d.Name(),
				})
			}
			return fs.SkipDir
		default:
			return fs.SkipDir
		}
	})
	if err != nil {
		return nil, fmt.Errorf("walking for malformed directories: %w", err)
	}

	return found, nil
}

// planMalformed tries to salvage season and episode markers from a malformed
// name. Names with no recoverable marker are flagged and left untouched.
func (v *Validator) planMalformed(ctx context.Context, m malformedDir, idx *episodes.Index, claimed map[string]struct{}) (Issue, Action, bool) {
	issue := Issue{Kind: IssueMalformedName, Path: m.path, Detail: fmt.Sprintf("name %q does not match convention", m.name)}

	parsed, ok := v.parser.ParseLoose(m.name)
	if !ok {
		issue.Detail += "; no recoverable season/episode marker"
		return issue, Action{}, false
	}

	if parsed.Date.IsZero() {
		if info, err := v.fs.Stat(v.abs(m.path)); err == nil {
			parsed.Date = info.ModTime()
		}
	}
	if parsed.Date.IsZero() {
		issue.Detail += "; no recoverable date"
		return issue, Action{}, false
	}
	if parsed.Title == "" {
		parsed.Title = "Unknown Class"
	}

	key := episodes.Key{Activity: m.activity, Instructor: m.instructor, Season: parsed.Season}
	target := v.relEpisodePath(m.activity, m.instructor, parsed)
	if v.taken(target, claimed) {
		parsed.Episode = idx.Next(key)
		target = v.relEpisodePath(m.activity, m.instructor, parsed)
	}
	idx.Observe(key, parsed.Episode)
	claimed[target] = struct{}{}

	return issue, Action{
		Kind:   ActionRename,
		Source: m.path,
		Target: target,
		Issue:  IssueMalformedName,
		Reason: fmt.Sprintf("normalize %q", m.name),
	}, true
}

// seasonMismatch is an entry whose directory season disagrees with the class
// duration recorded in its metadata sidecar.
type seasonMismatch struct {
	entry    library.Entry
	expected int
}

func (v *Validator) detectSeasonMismatches(ctx context.Context, entries []library.Entry) []seasonMismatch {
	var found []seasonMismatch
	for _, e := range entries {
		minutes := v.sidecarDurationMinutes(ctx, e.Path)
		if minutes > 0 && minutes != e.Season {
			found = append(found, seasonMismatch{entry: e, expected: minutes})
		}
	}
	return found
}

// sidecarDurationMinutes reads the class duration from the first metadata
// sidecar inside an episode directory, zero when there is none.
func (v *Validator) sidecarDurationMinutes(ctx context.Context, rel string) int {
	ents, err := v.fs.ReadDir(v.abs(rel))
	if err != nil {
		return 0
	}

	for _, ent := range ents {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".info.json") {
			continue
		}

		raw, err := v.fs.ReadFile(filepath.Join(v.abs(rel), ent.Name()))
		if err != nil {
			logger.FromCtx(ctx).Debugw("could not read sidecar", "path", rel, "error", err)
			return 0
		}

		var sidecar struct {
			Duration float64 `json:"duration"`
		}
		if err := json.Unmarshal(raw, &sidecar); err != nil {
			return 0
		}
		return int(sidecar.Duration) / 60
	}

	return 0
}

func (v *Validator) planSeasonMismatch(mm seasonMismatch, idx *episodes.Index, claimed map[string]struct{}) (Issue, Action) {
	e := mm.entry
	issue := Issue{
		Kind:    IssueSeasonMismatch,
		Path:    e.Path,
		Related: []library.Entry{e},
		Detail:  fmt.Sprintf("directory says season %d, metadata says %d", e.Season, mm.expected),
	}

	key := episodes.Key{Activity: e.Activity, Instructor: e.Instructor, Season: mm.expected}
	parsed := strategy.ParsedName{
		Season:  mm.expected,
		Episode: idx.Next(key),
		Date:    e.Date,
		Title:   e.Title,
	}
	target := v.relEpisodePath(e.Activity, e.Instructor, parsed)
	for v.taken(target, claimed) {
		parsed.Episode++
		target = v.relEpisodePath(e.Activity, e.Instructor, parsed)
	}
	idx.Observe(key, parsed.Episode)
	claimed[target] = struct{}{}

	return issue, Action{
		Kind:   ActionRename,
		Source: e.Path,
		Target: target,
		Issue:  IssueSeasonMismatch,
		Reason: fmt.Sprintf("move to season %d", mm.expected),
	}
}

// detectDuplicates groups entries that share a season and episode number
// within the same show.
func detectDuplicates(entries []library.Entry) [][]library.Entry {
	type slot struct {
		episodes.Key
		episode int
	}

	bySlot := make(map[slot][]library.Entry)
	for _, e := range entries {
		s := slot{
			Key:     episodes.Key{Activity: e.Activity, Instructor: e.Instructor, Season: e.Season},
			episode: e.Episode,
		}
		bySlot[s] = append(bySlot[s], e)
	}

	var groups [][]library.Entry
	for _, group := range bySlot {
		if len(group) > 1 {
			groups = append(groups, group)
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i][0].Path < groups[j][0].Path
	})
	return groups
}

// planDuplicates keeps the oldest entry in place and renumbers the rest. Age
// is decided by the embedded date, then directory mtime, then path for a
// stable order.
func (v *Validator) planDuplicates(group []library.Entry, idx *episodes.Index, claimed map[string]struct{}) (Issue, []Action) {
	sort.SliceStable(group, func(i, j int) bool {
		if !group[i].Date.Equal(group[j].Date) {
			return group[i].Date.Before(group[j].Date)
		}
		if !group[i].ModTime.Equal(group[j].ModTime) {
			return group[i].ModTime.Before(group[j].ModTime)
		}
		return group[i].Path < group[j].Path
	})

	keeper := group[0]
	issue := Issue{
		Kind:    IssueDuplicateEpisode,
		Path:    keeper.Path,
		Related: group,
		Detail:  fmt.Sprintf("%d directories share S%dE%d", len(group), keeper.Season, keeper.Episode),
	}

	var actions []Action
	for _, e := range group[1:] {
		key := episodes.Key{Activity: e.Activity, Instructor: e.Instructor, Season: e.Season}
		parsed := strategy.ParsedName{
			Season:  e.Season,
			Episode: idx.Next(key),
			Date:    e.Date,
			Title:   e.Title,
		}
		target := v.relEpisodePath(e.Activity, e.Instructor, parsed)
		for v.taken(target, claimed) {
			parsed.Episode++
			target = v.relEpisodePath(e.Activity, e.Instructor, parsed)
		}
		idx.Observe(key, parsed.Episode)
		claimed[target] = struct{}{}

		actions = append(actions, Action{
			Kind:   ActionRename,
			Source: e.Path,
			Target: target,
			Issue:  IssueDuplicateEpisode,
			Reason: fmt.Sprintf("renumber duplicate of episode %d", e.Episode),
		})
	}

	return issue, actions
}

// detectOrphans finds empty activity and instructor directories. Removal is
// bottom-up across passes: clearing an instructor directory makes its
// activity directory eligible on the next pass.
func (v *Validator) detectOrphans(ctx context.Context) ([]string, error) {
	top, err := v.fs.ReadDir(v.root)
	if err != nil {
		return nil, fmt.Errorf("reading media root: %w", err)
	}

	var orphans []string
	for _, activity := range top {
		if !activity.IsDir() {
			continue
		}
		if _, ok := v.norm.Canonical(activity.Name()); !ok {
			continue
		}

		children, err := v.fs.ReadDir(filepath.Join(v.root, activity.Name()))
		if err != nil {
			continue
		}
		if len(children) == 0 {
			orphans = append(orphans, activity.Name())
			continue
		}

		for _, instructor := range children {
			if !instructor.IsDir() {
				continue
			}
			grandchildren, err := v.fs.ReadDir(filepath.Join(v.root, activity.Name(), instructor.Name()))
			if err != nil {
				continue
			}
			if len(grandchildren) == 0 {
				orphans = append(orphans, activity.Name()+"/"+instructor.Name())
			}
		}
	}

	sort.Strings(orphans)
	return orphans, nil
}

// apply executes planned actions. Failures are counted and skipped so one bad
// directory cannot block the rest of the pass.
func (v *Validator) apply(ctx context.Context, actions []Action) (applied, failed int) {
	log := logger.FromCtx(ctx)

	for _, a := range actions {
		switch a.Kind {
		case ActionRename:
			src, dst := v.abs(a.Source), v.abs(a.Target)
			if !v.fs.FileExists(src) && v.fs.FileExists(dst) {
				// a previous interrupted run already moved it
				applied++
				continue
			}
			if err := v.fs.Rename(src, dst); err != nil {
				log.Warnw("rename failed", "source", a.Source, "target", a.Target, "error", err)
				failed++
				continue
			}
			log.Infow("repaired directory", "issue", a.Issue, "source", a.Source, "target", a.Target)
			applied++

		case ActionRemoveDir:
			dir := v.abs(a.Source)
			ents, err := v.fs.ReadDir(dir)
			if err != nil {
				// already gone
				applied++
				continue
			}
			if len(ents) > 0 {
				// something appeared since planning; leave it alone
				continue
			}
			if err := v.fs.Remove(dir); err != nil {
				log.Warnw("remove failed", "path", a.Source, "error", err)
				failed++
				continue
			}
			log.Infow("removed empty directory", "path", a.Source)
			applied++
		}
	}

	return applied, failed
}

func (v *Validator) abs(rel string) string {
	return filepath.Join(v.root, filepath.FromSlash(rel))
}

func (v *Validator) relEpisodePath(activity, instructor string, n strategy.ParsedName) string {
	abs := v.path.EpisodePath(v.root, activity, instructor, n)
	rel, err := filepath.Rel(v.root, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

func (v *Validator) taken(rel string, claimed map[string]struct{}) bool {
	if _, ok := claimed[rel]; ok {
		return true
	}
	return v.fs.FileExists(v.abs(rel))
}
