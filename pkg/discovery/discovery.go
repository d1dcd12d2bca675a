// Package discovery runs hashtag discovery with escalating result limits.
//
// A discovery attempt first consults the cache, falling back to the
// hashtag scraper on a miss. When every discovered username already has a
// complete ledger record there is nothing new to enrich, so the controller
// escalates the limit and tries again instead of re-processing a static
// set. The loop is bounded; hitting the ceiling returns the last set
// as-is, since forward progress beats blocking.
package discovery

import (
	"context"

	"igleads/pkg/cache"
	"igleads/pkg/ledger"
	"igleads/pkg/logger"
)

// DefaultMaxAttempts bounds the escalation loop.
const DefaultMaxAttempts = 3

// escalationCap bounds how much a single escalation step may add.
const escalationCap = 50

// HashtagScraper discovers post owners for a hashtag set.
type HashtagScraper interface {
	ScrapeHashtags(ctx context.Context, hashtags []string, limit int) ([]string, error)
}

// Outcome is the terminal state of a discovery run.
type Outcome string

const (
	// OutcomeSuccess means the run found at least one username whose
	// enrichment record is incomplete.
	OutcomeSuccess Outcome = "success"
	// OutcomeExhausted means the retry ceiling was reached; the returned
	// usernames are the last fetched set regardless of completeness.
	OutcomeExhausted Outcome = "exhausted"
)

// Result is what a discovery run produced.
type Result struct {
	Outcome   Outcome
	Usernames []string
	Attempts  int
	// FinalLimit is the results limit in effect on the last attempt.
	FinalLimit int
	// CacheHits counts attempts served from the cache.
	CacheHits int
}

// Controller drives the escalating discovery loop.
type Controller struct {
	cache       *cache.Cache
	ledger      *ledger.Ledger
	scraper     HashtagScraper
	maxAttempts int
	logger      logger.Logger
}

// NewController creates a Controller. maxAttempts <= 0 falls back to
// DefaultMaxAttempts.
func NewController(c *cache.Cache, l *ledger.Ledger, scraper HashtagScraper, maxAttempts int) *Controller {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Controller{
		cache:       c,
		ledger:      l,
		scraper:     scraper,
		maxAttempts: maxAttempts,
		logger:      logger.GetLogger(),
	}
}

// NextLimit computes the escalated results limit: the limit doubles while
// small, then grows by a fixed step once doubling would overshoot.
func NextLimit(limit int) int {
	doubled := 2 * limit
	capped := limit + escalationCap
	if doubled < capped {
		return doubled
	}
	return capped
}

// Discover runs the escalation loop for the hashtag set starting at
// baseLimit.
func (c *Controller) Discover(ctx context.Context, hashtags []string, baseLimit int) (*Result, error) {
	result := &Result{FinalLimit: baseLimit}
	limit := baseLimit

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result.Attempts = attempt
		result.FinalLimit = limit

		usernames, cached, err := c.fetch(ctx, hashtags, limit)
		if err != nil {
			return result, err
		}
		if cached {
			result.CacheHits++
		}
		result.Usernames = usernames
		logger.LogDiscovery(hashtags, limit, len(usernames), cached)

		allComplete, err := c.allComplete(usernames)
		if err != nil {
			return result, err
		}
		if len(usernames) > 0 && !allComplete {
			result.Outcome = OutcomeSuccess
			return result, nil
		}

		if attempt == c.maxAttempts {
			break
		}

		next := NextLimit(limit)
		c.logger.InfoWithFields("all discovered accounts already enriched, escalating", map[string]interface{}{
			"attempt":    attempt,
			"limit":      limit,
			"next_limit": next,
			"found":      len(usernames),
		})
		limit = next
	}

	result.Outcome = OutcomeExhausted
	c.logger.WarnWithFields("discovery exhausted retry ceiling", map[string]interface{}{
		"attempts": result.Attempts,
		"limit":    result.FinalLimit,
		"found":    len(result.Usernames),
	})
	return result, nil
}

// fetch returns the usernames for one attempt, preferring the cache and
// writing scraper results back through it.
func (c *Controller) fetch(ctx context.Context, hashtags []string, limit int) ([]string, bool, error) {
	usernames, err := c.cache.Get(hashtags, limit)
	if err != nil {
		return nil, false, err
	}
	if len(usernames) > 0 {
		return usernames, true, nil
	}

	usernames, err = c.scraper.ScrapeHashtags(ctx, hashtags, limit)
	if err != nil {
		return nil, false, err
	}
	if len(usernames) > 0 {
		if err := c.cache.Put(hashtags, limit, usernames); err != nil {
			return nil, false, err
		}
	}
	return usernames, false, nil
}

// allComplete reports whether every username already has a ledger record
// with both a full name and a bio.
func (c *Controller) allComplete(usernames []string) (bool, error) {
	if len(usernames) == 0 {
		return true, nil
	}
	records, err := c.ledger.GetProfiles(usernames)
	if err != nil {
		return false, err
	}
	for _, username := range usernames {
		rec, ok := records[username]
		if !ok || rec.FullName == "" || rec.Bio == nil {
			return false, nil
		}
	}
	return true, nil
}
