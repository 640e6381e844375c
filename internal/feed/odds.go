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
	"github.com/yourusername/wager-engine/internal/pricing"
)

// OddsClient fetches market quotes over HTTP with a short TTL cache; quoted
// odds move quickly, so the cache only smooths out repeated lookups within
// one optimization pass.
type OddsClient struct {
	http    *RateLimitedHTTPClient
	baseURL string
	apiKey  string
	cache   *cache.Cache
	logger  *logrus.Logger
}

// NewOddsClient creates an odds feed client
func NewOddsClient(cfg *config.OddsFeedConfig, logger *logrus.Logger) *OddsClient {
	httpCfg := DefaultHTTPClientConfig()
	httpCfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	httpCfg.RateLimit = cfg.RateLimitPerSec

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	return &OddsClient{
		http:    NewRateLimitedHTTPClient(httpCfg, logger),
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		cache:   cache.New(ttl, ttl*2),
		logger:  logger,
	}
}

// oddsResponse is the odds source's wire format: decimal odds keyed by
// combination key within each wager type.
type oddsResponse struct {
	ContestID string                        `json:"contest_id"`
	Markets   map[string]map[string]float64 `json:"markets"`
}

// Quotes returns the current quote book for a contest.
func (c *OddsClient) Quotes(ctx context.Context, contestID string) (pricing.QuoteBook, error) {
	if cached, found := c.cache.Get(contestID); found {
		return cached.(pricing.StaticQuotes), nil
	}

	start := time.Now()
	quotes, err := c.fetch(ctx, contestID)
	metrics.FeedLookupDuration.WithLabelValues("odds").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FeedErrorsTotal.WithLabelValues("odds").Inc()
		return nil, err
	}

	c.cache.Set(contestID, quotes, cache.DefaultExpiration)
	return quotes, nil
}

func (c *OddsClient) fetch(ctx context.Context, contestID string) (pricing.StaticQuotes, error) {
	url := fmt.Sprintf("%s/api/v1/contests/%s/odds", c.baseURL, contestID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("odds request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: contest %s", models.ErrNotFound, contestID)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("odds source returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed oddsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode odds: %w", err)
	}

	quotes := make(pricing.StaticQuotes, len(parsed.Markets))
	for market, byCombo := range parsed.Markets {
		structure := models.WagerStructure(market)
		if !structure.Valid() {
			c.logger.WithFields(logrus.Fields{
				"contest_id": contestID,
				"market":     market,
			}).Debug("Skipping unknown market type")
			continue
		}
		quotes[structure] = byCombo
	}
	return quotes, nil
}

// Close releases the underlying HTTP client
func (c *OddsClient) Close() error {
	return c.http.Close()
}
