package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pelosub/pelosub/config"
	"github.com/pelosub/pelosub/pkg/strategy"
	"github.com/pelosub/pelosub/pkg/strategy/peloton"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pelosub",
	Short: "pelosub keeps a class subscription file in agreement with the media library",
	Long: `pelosub reconciles a downloader subscription file with what is already on
disk: it validates and repairs the library layout, drops subscriptions that
finished downloading, queues newly found classes with stable episode numbers,
and rewrites the subscription file deterministically.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file")
}

func initConfig() {
	viper.SetConfigFile(cfgFile)

	viper.SetEnvPrefix("PELOSUB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", ""))
	viper.AutomaticEnv()

	viper.SetDefault("library.mediaDir", "")

	viper.SetDefault("store.path", "subscriptions.yaml")
	viper.SetDefault("store.showRoot", "/media/peloton")

	viper.SetDefault("history.path", "pelosub.sqlite")
	viper.SetDefault("history.staleAfterDays", 15)

	viper.SetDefault("validator.maxPasses", 5)
	viper.SetDefault("validator.dryRun", false)

	viper.SetDefault("scraper.activities", []string{})
	viper.SetDefault("scraper.classLimit", 25)

	viper.SetDefault("publish.enabled", false)
	viper.SetDefault("publish.remote", "origin")
	viper.SetDefault("publish.branch", "main")

	viper.SetDefault("strategies.parser", peloton.Name)
	viper.SetDefault("strategies.path", peloton.Name)
	viper.SetDefault("strategies.normalizer", peloton.Name)
}

func loadConfig() (config.Config, error) {
	return config.New(viper.GetViper())
}

// strategies resolves the configured strategy set from the built-in registry.
func strategies(cfg config.Config) (strategy.NameParser, strategy.PathStrategy, strategy.Normalizer, error) {
	reg := strategy.NewRegistry()
	peloton.Register(reg)

	parser, err := reg.Parser(cfg.Strategies.Parser)
	if err != nil {
		return nil, nil, nil, err
	}
	path, err := reg.Path(cfg.Strategies.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	norm, err := reg.Normalizer(cfg.Strategies.Normalizer)
	if err != nil {
		return nil, nil, nil, err
	}

	return parser, path, norm, nil
}
