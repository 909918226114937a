package library

import (
	"context"
	"encoding/json"
	"io/fs"
	"strings"

	"github.com/pelosub/pelosub/pkg/logger"
	"github.com/pelosub/pelosub/pkg/strategy"
)

// ScanStats counts what a scan saw. Skips are not errors; directories that do
// not follow the naming convention are excluded, never defaulted.
type ScanStats struct {
	Scanned int `json:"scanned"`
	Skipped int `json:"skipped"`
}

// Scanner walks a media root and extracts entries from directory names. The
// walk is read-only and restartable; re-scanning is always safe.
type Scanner struct {
	fs     fs.FS
	parser strategy.NameParser
	norm   strategy.Normalizer
}

func NewScanner(fsys fs.FS, parser strategy.NameParser, norm strategy.Normalizer) *Scanner {
	return &Scanner{
		fs:     fsys,
		parser: parser,
		norm:   norm,
	}
}

// Scan walks exactly two levels below the root per the layout convention
// (activity/instructor/episode directory) and parses each leaf name.
func (s *Scanner) Scan(ctx context.Context) ([]Entry, ScanStats, error) {
	log := logger.FromCtx(ctx)

	var entries []Entry
	var stats ScanStats

	err := fs.WalkDir(s.fs, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable subtree; skip it rather than fail the scan
			log.Debugw("skipping unreadable path", "path", path, "error", err)
			return fs.SkipDir
		}

		if !d.IsDir() || path == "." {
			return nil
		}

		switch levelsOfNesting(path) {
		case 0, 1:
			// activity and instructor levels, keep walking
			return nil
		case 2:
			entry, ok := s.parseEpisodeDir(path, d)
			if ok {
				stats.Scanned++
				entries = append(entries, entry)
			} else {
				stats.Skipped++
				log.Debugw("skipping unparsable directory", "path", path)
			}
			return fs.SkipDir
		default:
			return fs.SkipDir
		}
	})
	if err != nil {
		return nil, stats, err
	}

	return entries, stats, nil
}

func (s *Scanner) parseEpisodeDir(path string, d fs.DirEntry) (Entry, bool) {
	parts := strings.Split(path, "/")
	if len(parts) != 3 {
		return Entry{}, false
	}

	activity, ok := s.norm.Canonical(parts[0])
	if !ok {
		return Entry{}, false
	}

	parsed, ok := s.parser.Parse(d.Name())
	if !ok {
		return Entry{}, false
	}

	entry := Entry{
		Activity:   activity,
		Instructor: parts[1],
		Season:     parsed.Season,
		Episode:    parsed.Episode,
		Title:      parsed.Title,
		Date:       parsed.Date,
		Path:       path,
	}

	if info, err := d.Info(); err == nil {
		entry.ModTime = info.ModTime()
	}

	return entry, true
}

// ContentIDs collects the download identifiers of everything already on disk
// from the *.info.json sidecars the downloader leaves next to each video.
func (s *Scanner) ContentIDs(ctx context.Context) (map[string]struct{}, error) {
	log := logger.FromCtx(ctx)

	ids := make(map[string]struct{})
	err := fs.WalkDir(s.fs, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fs.SkipDir
		}

		if d.IsDir() || !strings.HasSuffix(d.Name(), ".info.json") {
			return nil
		}

		raw, err := fs.ReadFile(s.fs, path)
		if err != nil {
			log.Warnw("could not read sidecar", "path", path, "error", err)
			return nil
		}

		var sidecar struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &sidecar); err != nil {
			log.Warnw("could not decode sidecar", "path", path, "error", err)
			return nil
		}
		if sidecar.ID != "" {
			ids[sidecar.ID] = struct{}{}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func levelsOfNesting(path string) int {
	return strings.Count(path, "/")
}
