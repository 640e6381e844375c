package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/wager-engine/internal/config"
	"github.com/yourusername/wager-engine/internal/metrics"
	"github.com/yourusername/wager-engine/internal/models"
)

// PredictorClient fetches win probability estimates over HTTP. Responses are
// cached per contest; on a fetch error a still-cached estimate is served so a
// brief predictor outage does not stall optimization.
type PredictorClient struct {
	http    *RateLimitedHTTPClient
	baseURL string
	apiKey  string
	cache   *cache.Cache
	logger  *logrus.Logger
}

// NewPredictorClient creates a predictor feed client
func NewPredictorClient(cfg *config.PredictorFeedConfig, logger *logrus.Logger) *PredictorClient {
	httpCfg := DefaultHTTPClientConfig()
	httpCfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	httpCfg.MaxRetries = cfg.RetryAttempts
	httpCfg.RateLimit = cfg.RateLimitPerSec

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	return &PredictorClient{
		http:    NewRateLimitedHTTPClient(httpCfg, logger),
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		cache:   cache.New(ttl, ttl*2),
		logger:  logger,
	}
}

// probabilitiesResponse is the predictor's wire format
type probabilitiesResponse struct {
	ContestID string           `json:"contest_id"`
	Entrants  []models.Entrant `json:"entrants"`
}

// Probabilities returns the predictor's win probability per entrant. Cached
// values are returned within the TTL; on upstream failure an expired cache
// entry is better than nothing and is returned with a warning.
func (c *PredictorClient) Probabilities(ctx context.Context, contestID string) ([]models.Entrant, error) {
	if cached, found := c.cache.Get(contestID); found {
		c.logger.WithField("contest_id", contestID).Debug("Probability cache hit")
		return cached.([]models.Entrant), nil
	}

	start := time.Now()
	entrants, err := c.fetch(ctx, contestID)
	metrics.FeedLookupDuration.WithLabelValues("predictor").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FeedErrorsTotal.WithLabelValues("predictor").Inc()
		if stale, found := c.cache.Get(staleKey(contestID)); found {
			c.logger.WithField("contest_id", contestID).Warnf("Predictor fetch failed, serving last known probabilities: %v", err)
			return stale.([]models.Entrant), nil
		}
		c.logger.WithField("contest_id", contestID).Warnf("Predictor fetch failed: %v", err)
		return nil, err
	}

	c.cache.Set(contestID, entrants, cache.DefaultExpiration)
	c.cache.Set(staleKey(contestID), entrants, cache.NoExpiration)
	return entrants, nil
}

// staleKey names the never-expiring copy of the last good response, served
// when a refetch after TTL expiry fails.
func staleKey(contestID string) string {
	return "stale:" + contestID
}

func (c *PredictorClient) fetch(ctx context.Context, contestID string) ([]models.Entrant, error) {
	url := fmt.Sprintf("%s/api/v1/contests/%s/probabilities", c.baseURL, contestID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("predictor request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: contest %s", models.ErrNotFound, contestID)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("predictor returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed probabilitiesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode probabilities: %w", err)
	}
	if len(parsed.Entrants) == 0 {
		return nil, fmt.Errorf("%w: predictor returned no entrants for contest %s", models.ErrInvalidInput, contestID)
	}
	return parsed.Entrants, nil
}

// Close releases the underlying HTTP client
func (c *PredictorClient) Close() error {
	return c.http.Close()
}
