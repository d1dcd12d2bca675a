// Package pipeline runs one full lead discovery cycle as a strictly
// ordered sequence of stages: discovery, profile fetch, email extraction,
// influencer check, outreach. There is no internal fan-out; external calls
// are the only operations that suspend. Cancellation is cooperative and
// honored between stages and between per-account units of work, never
// mid-transaction.
package pipeline

import (
	"context"
	"fmt"

	"igleads/pkg/apify"
	"igleads/pkg/discovery"
	"igleads/pkg/enrich"
	"igleads/pkg/ledger"
	"igleads/pkg/logger"
	"igleads/pkg/outreach"
	"igleads/pkg/progress"
)

// ProfileScraper fetches profiles for usernames.
type ProfileScraper interface {
	ScrapeProfiles(ctx context.Context, usernames []string) ([]apify.ProfileItem, error)
}

// EmailExtractor resolves emails for a batch of bios.
type EmailExtractor interface {
	ExtractBatch(ctx context.Context, bios map[string]string) (map[string]*string, error)
}

// InfluencerChecker classifies one account.
type InfluencerChecker interface {
	Check(ctx context.Context, username string) (bool, error)
}

// OutreachRunner contacts qualified accounts.
type OutreachRunner interface {
	Run(ctx context.Context, stop func() bool) (outreach.Stats, error)
}

// Summary reports what one cycle accomplished.
type Summary struct {
	Discovery       *discovery.Result
	ProfilesFetched int
	Flagged         int
	EmailsResolved  int
	ChecksRun       int
	ChecksFailed    int
	Outreach        outreach.Stats
	Stopped         bool
}

// Pipeline wires the stages of one discovery cycle together.
type Pipeline struct {
	hashtags     []string
	resultsLimit int

	controller *discovery.Controller
	reconciler *enrich.Reconciler
	profiles   ProfileScraper
	extractor  EmailExtractor
	checker    InfluencerChecker
	outreach   OutreachRunner
	ledger     *ledger.Ledger
	tracker    *progress.Tracker
	logger     logger.Logger
}

// Options configures a Pipeline.
type Options struct {
	Hashtags     []string
	ResultsLimit int

	Controller *discovery.Controller
	Reconciler *enrich.Reconciler
	Profiles   ProfileScraper
	Extractor  EmailExtractor
	Checker    InfluencerChecker
	// Outreach may be nil; the outreach stage is then skipped.
	Outreach OutreachRunner
	Ledger   *ledger.Ledger
	// Tracker may be nil; a tracker with no sink is used.
	Tracker *progress.Tracker
}

// New creates a Pipeline from its collaborators.
func New(opts Options) *Pipeline {
	tracker := opts.Tracker
	if tracker == nil {
		tracker = progress.NewTracker(nil, nil)
	}
	return &Pipeline{
		hashtags:     opts.Hashtags,
		resultsLimit: opts.ResultsLimit,
		controller:   opts.Controller,
		reconciler:   opts.Reconciler,
		profiles:     opts.Profiles,
		extractor:    opts.Extractor,
		checker:      opts.Checker,
		outreach:     opts.Outreach,
		ledger:       opts.Ledger,
		tracker:      tracker,
		logger:       logger.GetLogger(),
	}
}

// Run executes one full cycle. A stop request ends the run cleanly at the
// next stage boundary with the summary of the work already done.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	if stopped, err := p.stageDiscovery(ctx, summary); stopped || err != nil {
		summary.Stopped = stopped
		return summary, err
	}
	if stopped, err := p.stageProfiles(ctx, summary); stopped || err != nil {
		summary.Stopped = stopped
		return summary, err
	}
	if stopped, err := p.stageExtraction(ctx, summary); stopped || err != nil {
		summary.Stopped = stopped
		return summary, err
	}
	if stopped, err := p.stageInfluencerCheck(ctx, summary); stopped || err != nil {
		summary.Stopped = stopped
		return summary, err
	}
	if stopped, err := p.stageOutreach(ctx, summary); stopped || err != nil {
		summary.Stopped = stopped
		return summary, err
	}

	return summary, nil
}

func (p *Pipeline) checkBoundary(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if p.tracker.ShouldStop() {
		p.logger.Info("stop requested, exiting at stage boundary")
		return true, nil
	}
	return false, nil
}

func (p *Pipeline) stageDiscovery(ctx context.Context, summary *Summary) (bool, error) {
	if stopped, err := p.checkBoundary(ctx); stopped || err != nil {
		return stopped, err
	}
	p.tracker.StageStarted(progress.StageDiscovery, fmt.Sprintf("%d hashtags", len(p.hashtags)))

	result, err := p.controller.Discover(ctx, p.hashtags, p.resultsLimit)
	if err != nil {
		return false, fmt.Errorf("discovery: %w", err)
	}
	summary.Discovery = result

	p.tracker.StageCompleted(progress.StageDiscovery,
		fmt.Sprintf("%d accounts (%s)", len(result.Usernames), result.Outcome))
	return false, nil
}

func (p *Pipeline) stageProfiles(ctx context.Context, summary *Summary) (bool, error) {
	if stopped, err := p.checkBoundary(ctx); stopped || err != nil {
		return stopped, err
	}
	p.tracker.StageStarted(progress.StageProfiles, "")

	usable, needFetch, err := p.reconciler.Partition(summary.Discovery.Usernames)
	if err != nil {
		return false, fmt.Errorf("partitioning accounts: %w", err)
	}
	p.logger.InfoWithFields("partitioned discovered accounts", map[string]interface{}{
		"usable":     len(usable),
		"need_fetch": len(needFetch),
	})

	if len(needFetch) > 0 {
		items, err := p.profiles.ScrapeProfiles(ctx, needFetch)
		if err != nil {
			return false, fmt.Errorf("fetching profiles: %w", err)
		}
		summary.ProfilesFetched = len(items)

		flagged, err := p.reconciler.Ingest(items)
		if err != nil {
			return false, fmt.Errorf("ingesting profiles: %w", err)
		}
		summary.Flagged = len(flagged)
	}

	p.tracker.StageCompleted(progress.StageProfiles,
		fmt.Sprintf("%d fetched, %d flagged", summary.ProfilesFetched, summary.Flagged))
	return false, nil
}

func (p *Pipeline) stageExtraction(ctx context.Context, summary *Summary) (bool, error) {
	if stopped, err := p.checkBoundary(ctx); stopped || err != nil {
		return stopped, err
	}
	p.tracker.StageStarted(progress.StageExtraction, "")

	bios, err := p.reconciler.PendingBios()
	if err != nil {
		return false, fmt.Errorf("loading pending bios: %w", err)
	}

	if len(bios) > 0 {
		results, err := p.extractor.ExtractBatch(ctx, bios)
		if err != nil {
			return false, fmt.Errorf("extracting emails: %w", err)
		}

		requested := make([]string, 0, len(bios))
		for username := range bios {
			requested = append(requested, username)
		}
		if err := p.reconciler.ApplyEmailResults(requested, results); err != nil {
			return false, fmt.Errorf("recording extraction results: %w", err)
		}
		summary.EmailsResolved = len(requested)
	}

	p.tracker.StageCompleted(progress.StageExtraction,
		fmt.Sprintf("%d bios processed", summary.EmailsResolved))
	return false, nil
}

func (p *Pipeline) stageInfluencerCheck(ctx context.Context, summary *Summary) (bool, error) {
	if stopped, err := p.checkBoundary(ctx); stopped || err != nil {
		return stopped, err
	}
	p.tracker.StageStarted(progress.StageInfluencerCheck, "")

	unchecked, err := p.ledger.UncheckedInfluencers()
	if err != nil {
		return false, fmt.Errorf("loading unchecked accounts: %w", err)
	}

	for _, username := range unchecked {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if p.tracker.ShouldStop() {
			p.tracker.StageCompleted(progress.StageInfluencerCheck,
				fmt.Sprintf("stopped after %d checks", summary.ChecksRun))
			return true, nil
		}

		isInfluencer, err := p.checker.Check(ctx, username)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			// A failed check still counts as checked; the previous
			// verdict is preserved.
			p.logger.WarnWithFields("influencer check failed", map[string]interface{}{
				"username": username,
				"error":    err.Error(),
			})
			if err := p.ledger.MarkInfluencerCheckFailed(username); err != nil {
				return false, err
			}
			summary.ChecksFailed++
		} else if err := p.ledger.MarkInfluencerChecked(username, isInfluencer); err != nil {
			return false, err
		}
		summary.ChecksRun++
	}

	p.tracker.StageCompleted(progress.StageInfluencerCheck,
		fmt.Sprintf("%d checked, %d failed", summary.ChecksRun, summary.ChecksFailed))
	return false, nil
}

func (p *Pipeline) stageOutreach(ctx context.Context, summary *Summary) (bool, error) {
	if stopped, err := p.checkBoundary(ctx); stopped || err != nil {
		return stopped, err
	}
	if p.outreach == nil {
		p.tracker.StageCompleted(progress.StageOutreach, "disabled")
		return false, nil
	}
	p.tracker.StageStarted(progress.StageOutreach, "")

	stats, err := p.outreach.Run(ctx, p.tracker.ShouldStop)
	summary.Outreach = stats
	if err != nil {
		return false, fmt.Errorf("outreach: %w", err)
	}

	p.tracker.StageCompleted(progress.StageOutreach,
		fmt.Sprintf("%d emails, %d dms", stats.EmailsSent, stats.DMsPrepared))
	return false, nil
}
