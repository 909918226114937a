package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, body string) *viper.Viper {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	return v
}

func TestNew(t *testing.T) {
	v := newViper(t, `
library:
  mediaDir: /media/peloton
store:
  path: /data/subscriptions.yaml
  showRoot: /media/peloton
history:
  path: /data/pelosub.sqlite
  staleAfterDays: 15
validator:
  maxPasses: 5
scraper:
  activities: [Cycling, Yoga]
  classLimit: 10
strategies:
  parser: peloton
  path: peloton
  normalizer: peloton
`)

	cfg, err := New(v)
	require.NoError(t, err)

	assert.Equal(t, "/media/peloton", cfg.Library.MediaDir)
	assert.Equal(t, "/data/subscriptions.yaml", cfg.Store.Path)
	assert.Equal(t, 15, cfg.History.StaleAfter)
	assert.Equal(t, 15*24*time.Hour, cfg.History.StaleAfterDuration())
	assert.Equal(t, 5, cfg.Validator.MaxPasses)
	assert.Equal(t, []string{"Cycling", "Yoga"}, cfg.Scraper.Activities)
	assert.Equal(t, "peloton", cfg.Strategies.Parser)
}

func TestNew_MediaDirIsOptional(t *testing.T) {
	// validate takes its media root as an argument, so an unset library
	// section must not fail configuration loading
	v := newViper(t, `
store:
  path: /data/subscriptions.yaml
  showRoot: /media/peloton
history:
  path: /data/pelosub.sqlite
validator:
  maxPasses: 5
strategies:
  parser: peloton
  path: peloton
  normalizer: peloton
`)

	cfg, err := New(v)
	require.NoError(t, err)
	assert.Empty(t, cfg.Library.MediaDir)
}

func TestNew_MissingRequired(t *testing.T) {
	v := newViper(t, `
store:
  path: /data/subscriptions.yaml
`)

	_, err := New(v)
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestNew_UnreadableFile(t *testing.T) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := New(v)
	assert.Error(t, err)
}
