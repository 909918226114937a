package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	fileio "github.com/pelosub/pelosub/pkg/io"
	"github.com/pelosub/pelosub/pkg/logger"
	"github.com/pelosub/pelosub/pkg/strategy"
	"gopkg.in/yaml.v3"
)

// topLevelKey is the single recognized section of the store file.
const topLevelKey = "Plex TV Show by Date"

var (
	ErrMalformedStore = errors.New("malformed subscription store")

	contentIDPattern = regexp.MustCompile(`/classes/player/([0-9a-f]+)`)
)

// Store reads and writes the subscription file. Loading is tolerant of
// individual bad entries; saving always rewrites the whole file atomically.
type Store struct {
	fs   fileio.FileIO
	norm strategy.Normalizer
	path strategy.PathStrategy
	// showRoot is the root the tv_show_directory overrides point at,
	// e.g. /media/peloton. It names the downloader's view of the library,
	// not a path on this host.
	showRoot string
}

func NewStore(fs fileio.FileIO, norm strategy.Normalizer, path strategy.PathStrategy, showRoot string) *Store {
	return &Store{
		fs:       fs,
		norm:     norm,
		path:     path,
		showRoot: showRoot,
	}
}

type rawEntry struct {
	Download  string       `yaml:"download"`
	Overrides rawOverrides `yaml:"overrides"`
}

type rawOverrides struct {
	TVShowDirectory string `yaml:"tv_show_directory"`
	SeasonNumber    *int   `yaml:"season_number"`
	EpisodeNumber   *int   `yaml:"episode_number"`
}

// Load reads every entry from the store file in file order. A missing file is
// an empty store; a file whose top-level section is absent or not a mapping is
// malformed and aborts the run before anything is written.
func (s *Store) Load(ctx context.Context, path string) ([]Entry, error) {
	log := logger.FromCtx(ctx)

	raw, err := s.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Infow("subscription store does not exist yet", "path", path)
			return nil, nil
		}
		return nil, fmt.Errorf("reading store: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStore, err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedStore)
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: document is not a mapping", ErrMalformedStore)
	}

	shows := mappingValue(root, topLevelKey)
	if shows == nil {
		return nil, fmt.Errorf("%w: missing %q section", ErrMalformedStore, topLevelKey)
	}
	if shows.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %q is not a mapping", ErrMalformedStore, topLevelKey)
	}

	var entries []Entry
	seen := make(map[string]struct{})

	forEachPair(shows, func(groupKey string, group *yaml.Node) {
		if group.Kind != yaml.MappingNode {
			log.Warnw("skipping non-mapping group", "group", groupKey)
			return
		}

		forEachPair(group, func(title string, value *yaml.Node) {
			entry, ok := s.parseEntry(ctx, title, value)
			if !ok {
				return
			}
			if _, dup := seen[entry.ContentID]; dup {
				log.Warnw("skipping duplicate content id", "id", entry.ContentID, "title", title)
				return
			}
			seen[entry.ContentID] = struct{}{}
			entries = append(entries, entry)
		})
	})

	return entries, nil
}

func (s *Store) parseEntry(ctx context.Context, title string, value *yaml.Node) (Entry, bool) {
	log := logger.FromCtx(ctx)

	var raw rawEntry
	if err := value.Decode(&raw); err != nil {
		log.Warnw("skipping undecodable entry", "title", title, "error", err)
		return Entry{}, false
	}

	m := contentIDPattern.FindStringSubmatch(raw.Download)
	if m == nil {
		log.Warnw("skipping entry without content id", "title", title)
		return Entry{}, false
	}

	if raw.Overrides.SeasonNumber == nil || raw.Overrides.EpisodeNumber == nil {
		log.Warnw("skipping entry without season/episode overrides", "title", title)
		return Entry{}, false
	}

	activity, instructor, ok := s.splitShowDirectory(raw.Overrides.TVShowDirectory)
	if !ok {
		log.Warnw("skipping entry with unrecognized show directory", "title", title, "directory", raw.Overrides.TVShowDirectory)
		return Entry{}, false
	}

	return Entry{
		ContentID:   m[1],
		Activity:    activity,
		Instructor:  instructor,
		Season:      *raw.Overrides.SeasonNumber,
		Episode:     *raw.Overrides.EpisodeNumber,
		Title:       title,
		DownloadURL: raw.Download,
	}, true
}

// splitShowDirectory extracts the activity and instructor from an override of
// the form {root}/{Activity}/{Instructor}.
func (s *Store) splitShowDirectory(dir string) (activity, instructor string, ok bool) {
	parts := strings.Split(strings.TrimRight(dir, "/"), "/")
	if len(parts) < 2 {
		return "", "", false
	}

	activity, ok = s.norm.Canonical(parts[len(parts)-2])
	if !ok {
		return "", "", false
	}
	instructor = parts[len(parts)-1]
	if instructor == "" {
		return "", "", false
	}

	return activity, instructor, true
}

// Save rewrites the whole store. Groups and titles are sorted so repeated
// saves of the same entries produce identical bytes; duplicate titles within
// a group are disambiguated with an incrementing parenthetical suffix.
func (s *Store) Save(ctx context.Context, path string, entries []Entry) error {
	grouped := make(map[string][]Entry)
	for _, e := range entries {
		key := e.GroupKey()
		grouped[key] = append(grouped[key], e)
	}

	groupKeys := make([]string, 0, len(grouped))
	for key := range grouped {
		groupKeys = append(groupKeys, key)
	}
	sort.Strings(groupKeys)

	showsNode := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range groupKeys {
		group := grouped[key]
		sort.SliceStable(group, func(i, j int) bool {
			ti, tj := escapeTitle(group[i].Title), escapeTitle(group[j].Title)
			if ti != tj {
				return ti < tj
			}
			// identical titles sort by content id so output never depends on
			// input order
			return group[i].ContentID < group[j].ContentID
		})

		groupNode := &yaml.Node{Kind: yaml.MappingNode}
		used := make(map[string]struct{})
		next := make(map[string]int)
		for _, e := range group {
			title := escapeTitle(e.Title)
			if _, taken := used[title]; taken {
				// a literal "X (1)" may already sit in the group, so the
				// suffixed key must be re-checked too
				n := next[title]
				if n == 0 {
					n = 1
				}
				suffixed := fmt.Sprintf("%s (%d)", title, n)
				for {
					if _, taken := used[suffixed]; !taken {
						break
					}
					n++
					suffixed = fmt.Sprintf("%s (%d)", title, n)
				}
				next[title] = n + 1
				title = suffixed
			}
			used[title] = struct{}{}
			appendPair(groupNode, title, s.entryNode(e))
		}

		appendPair(showsNode, key, groupNode)
	}

	rootNode := &yaml.Node{Kind: yaml.MappingNode}
	appendPair(rootNode, topLevelKey, showsNode)

	out, err := yaml.Marshal(rootNode)
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}

	if err := s.fs.WriteFileAtomic(path, out, 0o644); err != nil {
		return fmt.Errorf("writing store: %w", err)
	}

	logger.FromCtx(ctx).Infow("saved subscription store", "path", path, "entries", len(entries), "groups", len(groupKeys))
	return nil
}

func (s *Store) entryNode(e Entry) *yaml.Node {
	overrides := &yaml.Node{Kind: yaml.MappingNode}
	appendPair(overrides, "tv_show_directory", scalarNode(s.path.ShowDirectory(s.showRoot, e.Activity, e.Instructor)))
	appendPair(overrides, "season_number", intNode(e.Season))
	appendPair(overrides, "episode_number", intNode(e.Episode))

	entry := &yaml.Node{Kind: yaml.MappingNode}
	appendPair(entry, "download", scalarNode(e.DownloadURL))
	appendPair(entry, "overrides", overrides)
	return entry
}

// escapeTitle replaces path-unsafe characters; titles become directory names
// downstream.
func escapeTitle(title string) string {
	return strings.ReplaceAll(title, "/", "-")
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func forEachPair(node *yaml.Node, fn func(key string, value *yaml.Node)) {
	for i := 0; i+1 < len(node.Content); i += 2 {
		fn(node.Content[i].Value, node.Content[i+1])
	}
}

func appendPair(node *yaml.Node, key string, value *yaml.Node) {
	node.Content = append(node.Content, scalarNode(key), value)
}

func scalarNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: value}
}

func intNode(value int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprintf("%d", value)}
}
