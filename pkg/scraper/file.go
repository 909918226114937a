package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	fileio "github.com/pelosub/pelosub/pkg/io"
	"github.com/pelosub/pelosub/pkg/logger"
)

// FileSource serves classes from a JSON file produced by an external class
// scraper. The file is a flat array of classes; filtering happens here so the
// producer does not need to know which activities are enabled.
type FileSource struct {
	fs   fileio.FileIO
	path string
}

var _ Scraper = (*FileSource)(nil)

func NewFileSource(fs fileio.FileIO, path string) *FileSource {
	return &FileSource{fs: fs, path: path}
}

func (f *FileSource) FindClasses(ctx context.Context, activity string, limit int) ([]Class, error) {
	raw, err := f.fs.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.FromCtx(ctx).Debugw("no class file", "path", f.path)
			return nil, nil
		}
		return nil, fmt.Errorf("reading class file: %w", err)
	}

	var all []Class
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("decoding class file %s: %w", f.path, err)
	}

	var matched []Class
	for _, c := range all {
		if !strings.EqualFold(c.Activity, activity) {
			continue
		}
		matched = append(matched, c)
		if limit > 0 && len(matched) >= limit {
			break
		}
	}

	return matched, nil
}
