// Package retry implements retry logic with configurable backoff strategies
// for calls to the external scraping and extraction providers.
//
// The retry predicate understands the typed errors from pkg/errors: network,
// rate-limit and server errors are retried; auth, parsing and not-found
// errors fail fast. Context cancellation always wins over a pending backoff.
//
// Basic usage:
//
//	err := retry.Do(func() error {
//	    return client.ScrapeHashtags(ctx, tags, limit)
//	}, retry.DefaultConfig())
//
// Typed results:
//
//	posts, err := retry.DoWithResult(func() ([]apify.Post, error) {
//	    return client.ScrapeHashtags(ctx, tags, limit)
//	}, cfg)
package retry
