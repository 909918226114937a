package scraper

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fileio "github.com/pelosub/pelosub/pkg/io"
)

func TestClass_DownloadURL(t *testing.T) {
	c := Class{ContentID: "abc123"}
	assert.Equal(t, "https://members.onepeloton.com/classes/player/abc123", c.DownloadURL())

	c.PlayerURL = "https://members.onepeloton.com/classes/player/other"
	assert.Equal(t, c.PlayerURL, c.DownloadURL())
}

func TestFileSource_FindClasses(t *testing.T) {
	body := `[
		{"contentId":"a1","title":"Climb Ride","instructor":"Alex Toussaint","activity":"Cycling","durationMinutes":20},
		{"contentId":"a2","title":"Pop Ride","instructor":"Alex Toussaint","activity":"cycling","durationMinutes":30},
		{"contentId":"y1","title":"Focus Flow","instructor":"Aditi Shah","activity":"Yoga","durationMinutes":30}
	]`
	path := filepath.Join(t.TempDir(), "classes.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	src := NewFileSource(&fileio.MediaFileSystem{}, path)

	cycling, err := src.FindClasses(context.Background(), "Cycling", 0)
	require.NoError(t, err)
	require.Len(t, cycling, 2)
	assert.Equal(t, "a1", cycling[0].ContentID)
	assert.Equal(t, "a2", cycling[1].ContentID)

	limited, err := src.FindClasses(context.Background(), "Cycling", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	yoga, err := src.FindClasses(context.Background(), "Yoga", 0)
	require.NoError(t, err)
	require.Len(t, yoga, 1)
	assert.Equal(t, "y1", yoga[0].ContentID)
}

func TestFileSource_MissingFile(t *testing.T) {
	src := NewFileSource(&fileio.MediaFileSystem{}, filepath.Join(t.TempDir(), "classes.json"))

	classes, err := src.FindClasses(context.Background(), "Cycling", 0)
	require.NoError(t, err)
	assert.Nil(t, classes)
}

func TestFileSource_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	src := NewFileSource(&fileio.MediaFileSystem{}, path)
	_, err := src.FindClasses(context.Background(), "Cycling", 0)
	assert.Error(t, err)
}
