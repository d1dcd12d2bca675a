package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"igleads/pkg/cache"
	"igleads/pkg/store"
	"igleads/pkg/ui"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the discovery cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show discovery cache occupancy",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := openCache()
		if err != nil {
			return err
		}
		defer cleanup()

		stats, err := c.Stats()
		if err != nil {
			return fmt.Errorf("reading cache stats: %w", err)
		}

		ui.PrintHighlight("Discovery cache")
		ui.PrintInfo("Active combinations", fmt.Sprintf("%d", stats.ActiveCombos))
		ui.PrintInfo("Active entries", fmt.Sprintf("%d", stats.ActiveEntries))
		ui.PrintInfo("Expired entries", fmt.Sprintf("%d", stats.ExpiredEntries))
		for _, combo := range stats.Combos {
			fmt.Printf("  %s (limit %d): %d usernames, newest %s\n",
				ui.Cyan(combo.CacheKey), combo.ResultsLimit, combo.Count, ui.Dim(combo.Newest))
		}
		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired discovery cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := openCache()
		if err != nil {
			return err
		}
		defer cleanup()

		deleted, err := c.PurgeExpired()
		if err != nil {
			return fmt.Errorf("purging cache: %w", err)
		}
		ui.PrintSuccess(fmt.Sprintf("Purged %d expired entries", deleted))
		return nil
	},
}

func openCache() (*cache.Cache, func(), error) {
	cfg, err := loadConfig(globalFlags())
	if err != nil {
		return nil, nil, err
	}
	if err := initLogger(cfg); err != nil {
		return nil, nil, err
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return cache.New(st, cfg.Discovery.CacheTTL), func() { st.Close() }, nil
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
