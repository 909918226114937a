package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Library    Library    `json:"library" yaml:"library" mapstructure:"library"`
	Store      Store      `json:"store" yaml:"store" mapstructure:"store"`
	History    History    `json:"history" yaml:"history" mapstructure:"history"`
	Validator  Validator  `json:"validator" yaml:"validator" mapstructure:"validator"`
	Scraper    Scraper    `json:"scraper" yaml:"scraper" mapstructure:"scraper"`
	Publish    Publish    `json:"publish" yaml:"publish" mapstructure:"publish"`
	Strategies Strategies `json:"strategies" yaml:"strategies" mapstructure:"strategies"`
}

// Library holds the media root. It is not required here: validate takes the
// root as a positional argument, so commands enforce it themselves.
type Library struct {
	MediaDir string `json:"mediaDir" yaml:"mediaDir" mapstructure:"mediaDir"`
}

type Store struct {
	// Path is the subscription file on this host.
	Path string `json:"path" yaml:"path" mapstructure:"path" validate:"required"`
	// ShowRoot is the library root the downloader writes to; it prefixes every
	// tv_show_directory override.
	ShowRoot string `json:"showRoot" yaml:"showRoot" mapstructure:"showRoot" validate:"required"`
}

type History struct {
	Path       string `json:"path" yaml:"path" mapstructure:"path" validate:"required"`
	StaleAfter int    `json:"staleAfterDays" yaml:"staleAfterDays" mapstructure:"staleAfterDays" validate:"min=0"`
}

type Validator struct {
	MaxPasses int  `json:"maxPasses" yaml:"maxPasses" mapstructure:"maxPasses" validate:"min=1"`
	DryRun    bool `json:"dryRun" yaml:"dryRun" mapstructure:"dryRun"`
}

type Scraper struct {
	Activities []string `json:"activities" yaml:"activities" mapstructure:"activities"`
	ClassLimit int      `json:"classLimit" yaml:"classLimit" mapstructure:"classLimit" validate:"min=0"`
	// ClassesFile is a JSON file of scraped class candidates; empty disables
	// queueing new classes.
	ClassesFile string `json:"classesFile" yaml:"classesFile" mapstructure:"classesFile"`
}

type Publish struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	RepoDir string `json:"repoDir" yaml:"repoDir" mapstructure:"repoDir" validate:"required_if=Enabled true"`
	Remote  string `json:"remote" yaml:"remote" mapstructure:"remote"`
	// Repo is owner/name on GitHub; leave empty to push without opening a
	// pull request.
	Repo   string `json:"repo" yaml:"repo" mapstructure:"repo"`
	Branch string `json:"branch" yaml:"branch" mapstructure:"branch"`
	Token  string `json:"token" yaml:"token" mapstructure:"token"`
}

type Strategies struct {
	Parser     string `json:"parser" yaml:"parser" mapstructure:"parser" validate:"required"`
	Path       string `json:"path" yaml:"path" mapstructure:"path" validate:"required"`
	Normalizer string `json:"normalizer" yaml:"normalizer" mapstructure:"normalizer" validate:"required"`
}

// StaleAfterDuration converts the configured day count to a duration; zero
// disables pruning.
func (h History) StaleAfterDuration() time.Duration {
	return time.Duration(h.StaleAfter) * 24 * time.Hour
}

type ConfigUnmarshaler interface {
	ReadInConfig() error
	Unmarshal(any, ...viper.DecoderConfigOption) error
	ConfigFileUsed() string
}

// New reads and validates a configuration
func New(cu ConfigUnmarshaler) (Config, error) {
	var c Config

	if cu.ConfigFileUsed() != "" {
		err := cu.ReadInConfig()
		if err != nil {
			return c, err
		}
	}

	if err := cu.Unmarshal(&c); err != nil {
		return c, err
	}

	if err := validator.New().Struct(c); err != nil {
		return c, fmt.Errorf("invalid configuration: %w", err)
	}

	return c, nil
}
