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
	"igleads/pkg/config"
	"igleads/pkg/discovery"
	"igleads/pkg/enrich"
	"igleads/pkg/extract"
	"igleads/pkg/inspect"
	"igleads/pkg/ledger"
	"igleads/pkg/outreach"
	"igleads/pkg/pipeline"
	"igleads/pkg/progress"
	"igleads/pkg/ratelimit"
	"igleads/pkg/report"
	"igleads/pkg/store"
	"igleads/pkg/ui"
)

var (
	runHashtags     []string
	runResultsLimit int
	runOutreach     bool
	runProgressFile string
	runControlFile  string
	runExportFile   string
	runApifyToken   string
	runOpenAIKey    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one full discovery and enrichment cycle",
	Long: `Runs the complete pipeline: hashtag discovery (cache-first with
escalating limits), profile fetching, email extraction, influencer
qualification, and optionally outreach.

The cycle can be stopped cleanly by writing "stop" into the control file;
it then exits at the next stage boundary.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringSliceVar(&runHashtags, "hashtags", nil, "hashtags to discover (comma separated)")
	runCmd.Flags().IntVar(&runResultsLimit, "results-limit", 0, "baseline discovery results limit")
	runCmd.Flags().BoolVar(&runOutreach, "outreach", false, "send outreach emails to qualified accounts")
	runCmd.Flags().StringVar(&runProgressFile, "progress-file", "", "write run progress to this JSON file")
	runCmd.Flags().StringVar(&runControlFile, "control-file", "", "poll this file for a stop request")
	runCmd.Flags().StringVar(&runExportFile, "export", "", "export qualified influencers to this file after the run")
	runCmd.Flags().StringVar(&runApifyToken, "apify-token", "", "Apify API token")
	runCmd.Flags().StringVar(&runOpenAIKey, "openai-key", "", "OpenAI API key")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	flags := globalFlags()
	flags["hashtags"] = runHashtags
	flags["results-limit"] = runResultsLimit
	flags["outreach"] = runOutreach
	flags["apify-token"] = runApifyToken
	flags["openai-key"] = runOpenAIKey

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

	p, sink, l, err := buildPipeline(cfg, st)
	if err != nil {
		return err
	}
	if sink != nil {
		defer sink.Remove()
	}

	ui.PrintHighlight("Starting discovery cycle")
	ui.PrintInfo("Hashtags", fmt.Sprintf("%v", cfg.Discovery.Hashtags))
	ui.PrintInfo("Results limit", fmt.Sprintf("%d", cfg.Discovery.ResultsLimit))

	started := time.Now()
	summary, err := p.Run(ctx)
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	printSummary(summary, time.Since(started))

	if runExportFile != "" {
		count, err := report.NewExporter(l).ExportInfluencers(runExportFile, true)
		if err != nil {
			return fmt.Errorf("exporting influencers: %w", err)
		}
		ui.PrintSuccess(fmt.Sprintf("Exported %d influencers to %s", count, runExportFile))
	}
	return nil
}

// buildPipeline wires every collaborator from configuration.
func buildPipeline(cfg *config.Config, st *store.Store) (*pipeline.Pipeline, *progress.FileSink, *ledger.Ledger, error) {
	l := ledger.New(st)
	c := cache.New(st, cfg.Discovery.CacheTTL)

	limiter := ratelimit.NewTokenBucket(cfg.RateLimit.BurstSize,
		time.Minute/time.Duration(cfg.RateLimit.RequestsPerMinute))
	client := apify.NewClient(&cfg.Apify, limiter, nil)
	scraper := apify.NewScraper(client, &cfg.Apify)

	extractor := extract.NewExtractor(&cfg.OpenAI, nil)
	checker := inspect.NewChecker(scraper, &cfg.Influencer, nil)

	var outreachRunner pipeline.OutreachRunner
	if cfg.Outreach.Enabled {
		generator := extract.NewGenerator(&cfg.OpenAI, &cfg.Outreach, nil)
		mailer := outreach.NewMailer(&cfg.Outreach, nil)
		outreachRunner = outreach.NewRunner(l, mailer, generator, cfg.Outreach.SendDelay)
	}

	var sink *progress.FileSink
	var trackerSink progress.Sink
	if runProgressFile != "" {
		var err error
		sink, err = progress.NewFileSink(runProgressFile)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("creating progress file: %w", err)
		}
		trackerSink = sink
	}
	var stopCheck progress.StopCheck
	if runControlFile != "" {
		stopCheck = progress.ControlFileStop(runControlFile)
	}
	tracker := progress.NewTracker(trackerSink, stopCheck)

	p := pipeline.New(pipeline.Options{
		Hashtags:     cfg.Discovery.Hashtags,
		ResultsLimit: cfg.Discovery.ResultsLimit,
		Controller:   discovery.NewController(c, l, scraper, cfg.Discovery.MaxAttempts),
		Reconciler:   enrich.NewReconciler(l),
		Profiles:     scraper,
		Extractor:    extractor,
		Checker:      checker,
		Outreach:     outreachRunner,
		Ledger:       l,
		Tracker:      tracker,
	})
	return p, sink, l, nil
}

func printSummary(summary *pipeline.Summary, elapsed time.Duration) {
	if summary.Stopped {
		ui.PrintWarning("Run stopped early by control file")
	}
	if summary.Discovery != nil {
		ui.PrintInfo("Discovery", fmt.Sprintf("%d accounts in %d attempts (%s)",
			len(summary.Discovery.Usernames), summary.Discovery.Attempts, summary.Discovery.Outcome))
	}
	ui.PrintInfo("Profiles fetched", fmt.Sprintf("%d", summary.ProfilesFetched))
	ui.PrintInfo("Bios processed", fmt.Sprintf("%d", summary.EmailsResolved))
	ui.PrintInfo("Influencer checks", fmt.Sprintf("%d (%d failed)", summary.ChecksRun, summary.ChecksFailed))
	if summary.Outreach.EmailsSent > 0 || summary.Outreach.DMsPrepared > 0 {
		ui.PrintInfo("Outreach", fmt.Sprintf("%d emails, %d DMs prepared",
			summary.Outreach.EmailsSent, summary.Outreach.DMsPrepared))
	}
	ui.PrintSuccess(fmt.Sprintf("Cycle finished in %s", elapsed.Round(time.Second)))
}
