// Package apify wraps the Apify actor-run API for the Instagram scraping
// actors this tool depends on. Every scrape call runs an actor
// synchronously and returns the resulting dataset items.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"igleads/pkg/config"
	errs "igleads/pkg/errors"
	"igleads/pkg/logger"
	"igleads/pkg/ratelimit"
	"igleads/pkg/retry"
)

// DefaultBaseURL is the Apify API root.
const DefaultBaseURL = "https://api.apify.com"

// Client calls Apify actors synchronously.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    ratelimit.Limiter
	retrier    *retry.Retrier
	logger     logger.Logger
}

// NewClient creates an Apify client from configuration. A nil limiter
// disables client-side rate limiting.
func NewClient(cfg *config.ApifyConfig, limiter ratelimit.Limiter, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		baseURL: baseURL,
		token:   cfg.Token,
		limiter: limiter,
		retrier: retry.NewRetrier(retry.DefaultConfig()).
			WithBackoff(retry.DefaultExponentialBackoff()),
		logger: log,
	}
}

// RunActor runs the given actor with the supplied input and decodes the
// dataset items the run produced into target. It blocks until the run
// finishes or ctx is cancelled.
func (c *Client) RunActor(ctx context.Context, actorID string, input interface{}, target interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	endpoint := fmt.Sprintf("%s/v2/acts/%s/run-sync-get-dataset-items?token=%s",
		c.baseURL, url.PathEscape(actorID), url.QueryEscape(c.token))

	payload, err := json.Marshal(input)
	if err != nil {
		return errs.New(errs.ErrorTypeParsing, 0, "encoding actor input: %v", err)
	}

	return c.retrier.WithContext(ctx).Do(func() error {
		return c.postJSON(ctx, actorID, endpoint, payload, target)
	})
}

func (c *Client) postJSON(ctx context.Context, actorID, endpoint string, payload []byte, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return errs.New(errs.ErrorTypeUnknown, 0, "creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	c.logger.DebugWithFields("starting actor run", map[string]interface{}{
		"actor": actorID,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.ErrorWithFields("actor run request failed", map[string]interface{}{
			"actor": actorID,
			"error": err.Error(),
		})
		return errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "reading response body: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WarnWithFields("actor run returned error status", map[string]interface{}{
			"actor":    actorID,
			"status":   resp.StatusCode,
			"duration": duration,
		})
		return errs.New(errs.TypeForStatusCode(resp.StatusCode), resp.StatusCode,
			"actor %s returned status %d", actorID, resp.StatusCode)
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse dataset items", map[string]interface{}{
			"actor":        actorID,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errs.New(errs.ErrorTypeParsing, resp.StatusCode, "parsing dataset items: %v", err)
	}

	c.logger.DebugWithFields("actor run completed", map[string]interface{}{
		"actor":    actorID,
		"status":   resp.StatusCode,
		"duration": duration,
	})
	return nil
}
