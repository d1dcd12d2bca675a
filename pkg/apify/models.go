package apify

import (
	"regexp"
	"strings"
)

// proxyConfiguration selects the Apify proxy pool for an actor run.
type proxyConfiguration struct {
	UseApifyProxy    bool     `json:"useApifyProxy"`
	ApifyProxyGroups []string `json:"apifyProxyGroups,omitempty"`
}

// hashtagRunInput is the input document for the hashtag scraper actor.
type hashtagRunInput struct {
	Hashtags           []string            `json:"hashtags"`
	ResultsLimit       int                 `json:"resultsLimit"`
	ProxyConfiguration *proxyConfiguration `json:"proxyConfiguration,omitempty"`
}

// hashtagPost is a single post item from the hashtag scraper dataset. Only
// the owner matters for discovery.
type hashtagPost struct {
	OwnerUsername string `json:"ownerUsername"`
}

// profileRunInput is the input document for the profile scraper actor.
type profileRunInput struct {
	Usernames []string `json:"usernames"`
}

// ProfileItem is one scraped profile from the profile scraper dataset.
type ProfileItem struct {
	Username  string  `json:"username"`
	FullName  string  `json:"fullName"`
	Biography *string `json:"biography"`
}

// postRunInput is the input document for the post scraper actor.
type postRunInput struct {
	Username     []string `json:"username"`
	ResultsLimit int      `json:"resultsLimit"`
}

// PostItem is one scraped post from the post scraper dataset.
type PostItem struct {
	Type           string `json:"type"`
	ProductType    string `json:"productType"`
	Caption        string `json:"caption"`
	VideoViewCount int    `json:"videoViewCount"`
	VideoPlayCount int    `json:"videoPlayCount"`
}

var hashtagPattern = regexp.MustCompile(`#(\w+)`)

// Hashtags returns the distinct hashtags found in the post caption,
// lowercased, in order of first appearance.
func (p PostItem) Hashtags() []string {
	var tags []string
	seen := make(map[string]bool)
	for _, m := range hashtagPattern.FindAllStringSubmatch(p.Caption, -1) {
		tag := strings.ToLower(m[1])
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

// IsReel reports whether the post is a reel-style video.
func (p PostItem) IsReel() bool {
	return p.Type == "Video" || p.ProductType == "clips"
}

// Views returns the best available view count for the post. The post
// scraper reports views as plays for some accounts.
func (p PostItem) Views() int {
	if p.VideoViewCount > 0 {
		return p.VideoViewCount
	}
	return p.VideoPlayCount
}
