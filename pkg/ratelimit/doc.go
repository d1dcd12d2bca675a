// Package ratelimit provides rate limiting primitives used to bound
// calls to the external scraping and extraction providers.
//
// Two strategies are available:
//
//   - TokenBucket: a fixed number of tokens refilled on a period. Good for
//     hard per-minute API quotas where bursts up to the bucket size are fine.
//
//   - SlidingWindow: tracks request timestamps within a rolling window.
//     Smoother than the bucket under sustained load.
//
// Both satisfy the Limiter interface. Wait is context-aware so a cancelled
// pipeline run never blocks on a cooldown.
package ratelimit
