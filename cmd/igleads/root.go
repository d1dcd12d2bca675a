package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"igleads/pkg/auth"
	"igleads/pkg/config"
	"igleads/pkg/logger"
	"igleads/pkg/ui"
)

var (
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	dbPath     string
)

var rootCmd = &cobra.Command{
	Use:   "igleads",
	Short: "Instagram influencer lead discovery and outreach",
	Long: `igleads discovers golf content creators on Instagram via hashtag
scraping, enriches their profiles, extracts contact emails, qualifies
influencers by reel view counts, and runs email outreach.

Discovery results are cached with a staleness window and per-account
enrichment state is tracked so repeated runs only process what changed.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		ui.PrintError("Error", err.Error())
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the SQLite database")
}

// globalFlags collects the persistent flag values for config merging.
func globalFlags() map[string]interface{} {
	return map[string]interface{}{
		"log-level": logLevel,
		"db":        dbPath,
	}
}

// loadConfig loads configuration without requiring API tokens, for
// commands that only touch local state.
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	cfg.MergeCommandLineFlags(flags)
	return cfg, nil
}

// loadConfigWithTokens loads and validates the full configuration,
// resolving missing API tokens from the token store chain.
func loadConfigWithTokens(flags map[string]interface{}) (*config.Config, error) {
	if manager, err := auth.NewManager(); err == nil {
		if _, ok := flags["apify-token"].(string); !ok || flags["apify-token"] == "" {
			if token, err := manager.Retrieve(auth.ProviderApify); err == nil {
				flags["apify-token"] = token
			}
		}
		if _, ok := flags["openai-key"].(string); !ok || flags["openai-key"] == "" {
			if key, err := manager.Retrieve(auth.ProviderOpenAI); err == nil {
				flags["openai-key"] = key
			}
		}
	}
	return config.Load(configFile, flags)
}

// initLogger configures the global logger from config.
func initLogger(cfg *config.Config) error {
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	return nil
}
