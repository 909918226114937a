package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pelosub/pelosub/config"
	fileio "github.com/pelosub/pelosub/pkg/io"
	"github.com/pelosub/pelosub/pkg/logger"
	"github.com/pelosub/pelosub/pkg/manager"
	"github.com/pelosub/pelosub/pkg/publish"
	"github.com/pelosub/pelosub/pkg/scraper"
	sqliteStorage "github.com/pelosub/pelosub/pkg/storage/sqlite"
	"github.com/pelosub/pelosub/pkg/subscriptions"
	"github.com/pelosub/pelosub/pkg/validator"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the subscription file with the media library",
	Long: `Sync validates and repairs the media library, removes subscriptions that
already finished downloading, prunes subscriptions that sat in the queue too
long, queues newly scraped classes, and rewrites the subscription file. The
run summary is printed to stdout as JSON.`,
	Run: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().Bool("publish", false, "push the rewritten store on a branch and open a pull request")
}

func runSync(cmd *cobra.Command, args []string) {
	log := logger.Get()
	ctx := logger.WithCtx(context.Background(), log)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Library.MediaDir == "" {
		log.Fatal("library.mediaDir must be configured")
	}

	parser, pathStrat, norm, err := strategies(cfg)
	if err != nil {
		log.Fatalf("failed to resolve strategies: %v", err)
	}

	fs := &fileio.MediaFileSystem{}

	history, err := sqliteStorage.New(cfg.History.Path)
	if err != nil {
		log.Fatalf("failed to open history database: %v", err)
	}
	defer history.Close()

	var src scraper.Scraper
	if cfg.Scraper.ClassesFile != "" {
		src = scraper.NewFileSource(fs, cfg.Scraper.ClassesFile)
	}

	store := subscriptions.NewStore(fs, norm, pathStrat, cfg.Store.ShowRoot)
	val := validator.New(cfg.Library.MediaDir, fs, parser, pathStrat, norm,
		validator.WithMaxPasses(cfg.Validator.MaxPasses),
		validator.WithDryRun(cfg.Validator.DryRun),
	)

	m := manager.New(store, history, val, src, parser, norm, manager.Options{
		MediaDir:   cfg.Library.MediaDir,
		StorePath:  cfg.Store.Path,
		Activities: cfg.Scraper.Activities,
		ClassLimit: cfg.Scraper.ClassLimit,
		StaleAfter: cfg.History.StaleAfterDuration(),
	})

	summary, err := m.Sync(ctx)
	if err != nil {
		log.Fatalf("sync failed: %v", err)
	}

	shouldPublish, _ := cmd.Flags().GetBool("publish")
	if shouldPublish || cfg.Publish.Enabled {
		if err := publishStore(ctx, cfg, summary); err != nil {
			log.Fatalf("publish failed: %v", err)
		}
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		log.Fatalf("failed to encode summary: %v", err)
	}
	fmt.Fprintln(os.Stdout, string(out))
}

// publishStore pushes the rewritten store file on a run branch and, when a
// GitHub repo is configured, opens a pull request for it.
func publishStore(ctx context.Context, cfg config.Config, summary manager.RunSummary) error {
	log := logger.FromCtx(ctx)

	pub := publish.NewGitPublisher(cfg.Publish.RepoDir, cfg.Publish.Remote, cfg.Publish.Token)
	message := fmt.Sprintf("Update subscriptions: %d added, %d removed", summary.Added, summary.Removed)

	branch, err := pub.Publish(ctx, summary.RunID, []string{cfg.Store.Path}, message)
	if err != nil {
		if errors.Is(err, publish.ErrNothingToPublish) {
			log.Infow("store unchanged, skipping publish")
			return nil
		}
		return err
	}

	if cfg.Publish.Repo == "" {
		return nil
	}

	pr := publish.NewGitHubPullRequester(cfg.Publish.Repo, cfg.Publish.Branch, cfg.Publish.Token)
	body := fmt.Sprintf("Run `%s`: %d queued, %d removed, %d pruned, %d episodes on disk.",
		summary.RunID, summary.Added, summary.Removed, summary.Pruned, summary.MediaEpisodes)
	url, err := pr.OpenPullRequest(ctx, branch, message, body)
	if err != nil {
		return err
	}

	log.Infow("pull request opened", "url", url)
	return nil
}
