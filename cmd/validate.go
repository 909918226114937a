package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	fileio "github.com/pelosub/pelosub/pkg/io"
	"github.com/pelosub/pelosub/pkg/logger"
	"github.com/pelosub/pelosub/pkg/subscriptions"
	"github.com/pelosub/pelosub/pkg/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate [media-root]",
	Short: "Validate and repair the media library layout",
	Long: `Validate scans the media library for directories that break the naming
convention, episodes whose season disagrees with their metadata, duplicate
episode numbers, and empty parent directories, then repairs what it can.

Repairs that reveal further issues are handled by re-running the scan until a
pass finds nothing to do or the pass bound is hit. With --dry-run the planned
repairs are reported without touching anything.

The exit status is non-zero when the library still needs repairs after the
final pass.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("dry-run", false, "report planned repairs without applying them")
	validateCmd.Flags().Int("max-passes", 0, "override the configured pass bound")
}

func runValidate(cmd *cobra.Command, args []string) {
	log := logger.Get()
	ctx := logger.WithCtx(context.Background(), log)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	mediaDir, err := resolveMediaDir(cfg.Library.MediaDir, args)
	if err != nil {
		log.Fatal(err)
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	dryRun = dryRun || cfg.Validator.DryRun
	maxPasses, _ := cmd.Flags().GetInt("max-passes")
	if maxPasses == 0 {
		maxPasses = cfg.Validator.MaxPasses
	}

	parser, pathStrat, norm, err := strategies(cfg)
	if err != nil {
		log.Fatalf("failed to resolve strategies: %v", err)
	}

	fs := &fileio.MediaFileSystem{}

	// queued subscriptions reserve episode numbers, so load them when the
	// store exists
	var subs []subscriptions.Entry
	if fs.FileExists(cfg.Store.Path) {
		store := subscriptions.NewStore(fs, norm, pathStrat, cfg.Store.ShowRoot)
		subs, err = store.Load(ctx, cfg.Store.Path)
		if err != nil {
			log.Fatalf("failed to load store: %v", err)
		}
	}

	val := validator.New(mediaDir, fs, parser, pathStrat, norm,
		validator.WithMaxPasses(maxPasses),
		validator.WithDryRun(dryRun),
	)

	res, err := val.Run(ctx, subs)
	if err != nil {
		log.Fatalf("validation failed: %v", err)
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		log.Fatalf("failed to encode result: %v", err)
	}
	fmt.Fprintln(os.Stdout, string(out))

	if !res.Converged && !dryRun {
		os.Exit(1)
	}
}

// resolveMediaDir prefers the positional argument over the configured root.
func resolveMediaDir(configured string, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if configured == "" {
		return "", errors.New("no media root configured or given")
	}
	return configured, nil
}
