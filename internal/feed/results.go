package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/wager-engine/internal/config"
	"github.com/yourusername/wager-engine/internal/metrics"
	"github.com/yourusername/wager-engine/internal/models"
)

// ResultsClient fetches finishing orders over HTTP. Results are never cached:
// a contest that was not final a minute ago may be final now.
type ResultsClient struct {
	http    *RateLimitedHTTPClient
	baseURL string
	apiKey  string
	logger  *logrus.Logger
}

// NewResultsClient creates a results feed client
func NewResultsClient(cfg *config.ResultsFeedConfig, logger *logrus.Logger) *ResultsClient {
	httpCfg := DefaultHTTPClientConfig()
	httpCfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second

	return &ResultsClient{
		http:    NewRateLimitedHTTPClient(httpCfg, logger),
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
}

// resultsResponse is the results source's wire format: finishing positions
// keyed by position number, plus a finality flag.
type resultsResponse struct {
	ContestID string            `json:"contest_id"`
	Final     bool              `json:"final"`
	Positions map[string]string `json:"positions"`
}

// Results returns the finishing order for a contest. A partial order is
// returned as-is; ErrResultsNotFinal means the contest has not produced any
// official positions yet.
func (c *ResultsClient) Results(ctx context.Context, contestID string) (models.Results, error) {
	url := fmt.Sprintf("%s/api/v1/contests/%s/results", c.baseURL, contestID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(ctx, req)
	metrics.FeedLookupDuration.WithLabelValues("results").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FeedErrorsTotal.WithLabelValues("results").Inc()
		return nil, fmt.Errorf("results request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: contest %s", models.ErrNotFound, contestID)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("results source returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed resultsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}

	if !parsed.Final && len(parsed.Positions) == 0 {
		return nil, fmt.Errorf("%w: contest %s", ErrResultsNotFinal, contestID)
	}

	results := make(models.Results, len(parsed.Positions))
	for posStr, entrantID := range parsed.Positions {
		pos, err := strconv.Atoi(posStr)
		if err != nil || pos < 1 {
			c.logger.WithFields(logrus.Fields{
				"contest_id": contestID,
				"position":   posStr,
			}).Warn("Skipping malformed result position")
			continue
		}
		results[pos] = entrantID
	}
	return results, nil
}

// Close releases the underlying HTTP client
func (c *ResultsClient) Close() error {
	return c.http.Close()
}
