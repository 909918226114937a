package peloton

import (
	"path"
	"path/filepath"

	"github.com/pelosub/pelosub/pkg/strategy"
)

// PathStrategy lays episodes out as {root}/{Activity}/{Instructor}/{episode dir}.
type PathStrategy struct {
	parser *Parser
}

var _ strategy.PathStrategy = (*PathStrategy)(nil)

func NewPathStrategy() *PathStrategy {
	return &PathStrategy{parser: NewParser()}
}

func (s *PathStrategy) EpisodePath(root, activity, instructor string, n strategy.ParsedName) string {
	return filepath.Join(root, activity, instructor, s.parser.Format(n))
}

func (s *PathStrategy) ShowDirectory(root, activity, instructor string) string {
	return path.Join(root, activity, instructor)
}
