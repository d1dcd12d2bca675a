package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"igleads/pkg/apify"
	"igleads/pkg/cache"
	"igleads/pkg/discovery"
	"igleads/pkg/ledger"
	"igleads/pkg/ratelimit"
	"igleads/pkg/store"
	"igleads/pkg/ui"
)

var (
	discoverHashtags     []string
	discoverResultsLimit int
	discoverApifyToken   string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run hashtag discovery only and print the usernames found",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := globalFlags()
		flags["hashtags"] = discoverHashtags
		flags["results-limit"] = discoverResultsLimit
		flags["apify-token"] = discoverApifyToken
		// Discovery needs no OpenAI key; satisfy validation with a
		// placeholder when none is configured.
		flags["openai-key"] = "unused"

		cfg, err := loadConfigWithTokens(flags)
		if err != nil {
			return err
		}
		if err := initLogger(cfg); err != nil {
			return err
		}

		st, err := store.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer st.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		limiter := ratelimit.NewTokenBucket(cfg.RateLimit.BurstSize,
			time.Minute/time.Duration(cfg.RateLimit.RequestsPerMinute))
		scraper := apify.NewScraper(apify.NewClient(&cfg.Apify, limiter, nil), &cfg.Apify)

		l := ledger.New(st)
		c := cache.New(st, cfg.Discovery.CacheTTL)
		ctrl := discovery.NewController(c, l, scraper, cfg.Discovery.MaxAttempts)

		result, err := ctrl.Discover(ctx, cfg.Discovery.Hashtags, cfg.Discovery.ResultsLimit)
		if err != nil {
			return err
		}

		ui.PrintInfo("Outcome", string(result.Outcome))
		ui.PrintInfo("Attempts", fmt.Sprintf("%d (final limit %d)", result.Attempts, result.FinalLimit))
		for _, username := range result.Usernames {
			fmt.Println(username)
		}
		return nil
	},
}

func init() {
	discoverCmd.Flags().StringSliceVar(&discoverHashtags, "hashtags", nil, "hashtags to discover (comma separated)")
	discoverCmd.Flags().IntVar(&discoverResultsLimit, "results-limit", 0, "baseline discovery results limit")
	discoverCmd.Flags().StringVar(&discoverApifyToken, "apify-token", "", "Apify API token")
	rootCmd.AddCommand(discoverCmd)
}
