package apify

import (
	"context"
	"sort"

	"igleads/pkg/config"
)

// maxResultsPerHashtag caps how many posts a single hashtag run may
// request, matching the hashtag actor's own hard limit.
const maxResultsPerHashtag = 500

// Scraper runs the Instagram scraping actors. It is the provider behind
// discovery and enrichment; actor failures surface as empty result sets so
// a bad hashtag or account never aborts a whole pipeline run.
type Scraper struct {
	client *Client
	cfg    *config.ApifyConfig
}

// NewScraper creates a Scraper using the given client and actor IDs.
func NewScraper(client *Client, cfg *config.ApifyConfig) *Scraper {
	return &Scraper{client: client, cfg: cfg}
}

// ScrapeHashtags runs the hashtag scraper for the given hashtags and
// returns the distinct post owners, sorted. The overall results limit is
// split evenly across hashtags and capped per hashtag.
//
// An actor failure returns an empty slice, not an error; cancellation is
// the only error surfaced.
func (s *Scraper) ScrapeHashtags(ctx context.Context, hashtags []string, resultsLimit int) ([]string, error) {
	if len(hashtags) == 0 || resultsLimit <= 0 {
		return nil, nil
	}

	perHashtag := resultsLimit / len(hashtags)
	if perHashtag < 1 {
		perHashtag = 1
	}
	if perHashtag > s.maxPerHashtag() {
		perHashtag = s.maxPerHashtag()
	}

	input := hashtagRunInput{
		Hashtags:     hashtags,
		ResultsLimit: perHashtag,
	}
	if s.cfg.UseResidentialProxies {
		input.ProxyConfiguration = &proxyConfiguration{
			UseApifyProxy:    true,
			ApifyProxyGroups: []string{"RESIDENTIAL"},
		}
	}

	var posts []hashtagPost
	if err := s.client.RunActor(ctx, s.cfg.HashtagScraperID, input, &posts); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.client.logger.WarnWithFields("hashtag scrape failed, treating as empty", map[string]interface{}{
			"hashtags": hashtags,
			"error":    err.Error(),
		})
		return nil, nil
	}

	seen := make(map[string]bool, len(posts))
	var usernames []string
	for _, post := range posts {
		if post.OwnerUsername == "" || seen[post.OwnerUsername] {
			continue
		}
		seen[post.OwnerUsername] = true
		usernames = append(usernames, post.OwnerUsername)
	}
	sort.Strings(usernames)
	return usernames, nil
}

// ScrapeProfiles runs the profile scraper for the given usernames. A
// failed run returns an empty slice; accounts the actor could not resolve
// are simply missing from the result.
func (s *Scraper) ScrapeProfiles(ctx context.Context, usernames []string) ([]ProfileItem, error) {
	if len(usernames) == 0 {
		return nil, nil
	}

	var items []ProfileItem
	err := s.client.RunActor(ctx, s.cfg.ProfileScraperID, profileRunInput{Usernames: usernames}, &items)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.client.logger.WarnWithFields("profile scrape failed, treating as empty", map[string]interface{}{
			"usernames": len(usernames),
			"error":     err.Error(),
		})
		return nil, nil
	}

	resolved := items[:0]
	for _, item := range items {
		if item.Username != "" {
			resolved = append(resolved, item)
		}
	}
	return resolved, nil
}

// ScrapeUserPosts runs the post scraper for a single account and returns
// its recent posts, newest first as the actor emits them.
func (s *Scraper) ScrapeUserPosts(ctx context.Context, username string, limit int) ([]PostItem, error) {
	var items []PostItem
	err := s.client.RunActor(ctx, s.cfg.PostScraperID, postRunInput{
		Username:     []string{username},
		ResultsLimit: limit,
	}, &items)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Scraper) maxPerHashtag() int {
	if s.cfg.MaxResultsPerHashtag > 0 && s.cfg.MaxResultsPerHashtag < maxResultsPerHashtag {
		return s.cfg.MaxResultsPerHashtag
	}
	return maxResultsPerHashtag
}
