// Package inspect decides whether an account qualifies as an influencer by
// sampling the view counts of its recent reels.
//
// The newest few reels are skipped because their view counts are still
// climbing. The check then samples a fixed window of older reels and
// qualifies the account when enough of them clear the view threshold.
package inspect

import (
	"context"

	"igleads/pkg/apify"
	"igleads/pkg/config"
	"igleads/pkg/logger"
)

// PostScraper fetches an account's recent posts.
type PostScraper interface {
	ScrapeUserPosts(ctx context.Context, username string, limit int) ([]apify.PostItem, error)
}

// Checker samples reel view counts to classify accounts.
type Checker struct {
	scraper       PostScraper
	viewThreshold int
	skipReels     int
	sampleReels   int
	minQualified  int
	logger        logger.Logger
}

// NewChecker creates a Checker with the configured sampling parameters.
func NewChecker(scraper PostScraper, cfg *config.InfluencerConfig, log logger.Logger) *Checker {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Checker{
		scraper:       scraper,
		viewThreshold: cfg.ViewThreshold,
		skipReels:     cfg.SkipReels,
		sampleReels:   cfg.SampleReels,
		minQualified:  cfg.MinQualified,
		logger:        log,
	}
}

// Check classifies one account. It returns an error when the account's
// posts could not be fetched; the account is then recorded as checked but
// keeps whatever verdict it already had.
func (c *Checker) Check(ctx context.Context, username string) (bool, error) {
	// Fetch generously so the reel window survives interleaved photo posts.
	limit := (c.skipReels + c.sampleReels) * 3
	posts, err := c.scraper.ScrapeUserPosts(ctx, username, limit)
	if err != nil {
		return false, err
	}

	var reels []apify.PostItem
	for _, post := range posts {
		if post.IsReel() {
			reels = append(reels, post)
		}
	}

	if len(reels) <= c.skipReels {
		c.logger.DebugWithFields("not enough reels to sample", map[string]interface{}{
			"username": username,
			"reels":    len(reels),
		})
		return false, nil
	}

	sample := reels[c.skipReels:]
	if len(sample) > c.sampleReels {
		sample = sample[:c.sampleReels]
	}

	qualified := 0
	for _, reel := range sample {
		if reel.Views() > c.viewThreshold {
			qualified++
		}
	}

	isInfluencer := qualified >= c.minQualified
	c.logger.InfoWithFields("influencer check complete", map[string]interface{}{
		"username":      username,
		"sampled":       len(sample),
		"qualified":     qualified,
		"is_influencer": isInfluencer,
	})
	return isInfluencer, nil
}
