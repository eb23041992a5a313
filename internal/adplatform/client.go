package adplatform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/radiusdt/funnelpulse/internal/config"
	"github.com/radiusdt/funnelpulse/internal/metrics"
)

// SpendSummary is one campaign's spend for the requested window, in minor
// currency units like everything else that crosses this service.
type SpendSummary struct {
	Platform        string `json:"platform"`
	CampaignID      string `json:"campaignId"`
	CampaignName    string `json:"campaignName,omitempty"`
	SpendMinorUnits int64  `json:"spendMinorUnits"`
}

// Client calls the ad platform reporting API with cached bearer auth.
type Client struct {
	baseURL    string
	tokens     *TokenCache
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewClient creates an ad platform client from configuration.
func NewClient(cfg config.AdPlatformConfig, logger *zap.Logger, m *metrics.Metrics) *Client {
	source := NewOAuthTokenSource(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret)
	cache := NewTokenCache(source)
	cache.onRefresh = m.RecordTokenRefresh
	return &Client{
		baseURL: cfg.APIBaseURL,
		tokens:  cache,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:  logger,
		metrics: m,
	}
}

// FetchSpend returns per-campaign spend for the tenant's ad account over
// the window.
func (c *Client) FetchSpend(ctx context.Context, tenantID string, start, end time.Time) ([]SpendSummary, error) {
	token, err := c.tokens.Get(ctx)
	if err != nil {
		c.metrics.RecordAdPlatformCall("token_error")
		return nil, err
	}

	q := url.Values{
		"account": {tenantID},
		"from":    {start.Format(time.RFC3339)},
		"to":      {end.Format(time.RFC3339)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/spend?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build spend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordAdPlatformCall("error")
		return nil, fmt.Errorf("spend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordAdPlatformCall("error")
		return nil, fmt.Errorf("ad platform returned status %d", resp.StatusCode)
	}

	var summaries []SpendSummary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		c.metrics.RecordAdPlatformCall("decode_error")
		return nil, fmt.Errorf("failed to decode spend response: %w", err)
	}

	c.metrics.RecordAdPlatformCall("ok")
	return summaries, nil
}
