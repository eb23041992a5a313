package adplatform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

// refreshBuffer is how far ahead of expiry a cached token is still trusted.
const refreshBuffer = 60 * time.Second

// Token is a bearer credential with its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// TokenSource fetches a fresh token from the platform.
type TokenSource interface {
	Fetch(ctx context.Context) (Token, error)
}

// OAuthTokenSource performs a client-credentials grant against the
// platform's token endpoint.
type OAuthTokenSource struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// NewOAuthTokenSource creates a client-credentials token source.
func NewOAuthTokenSource(tokenURL, clientID, clientSecret string) *OAuthTokenSource {
	return &OAuthTokenSource{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *OAuthTokenSource) Fetch(ctx context.Context) (Token, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Token{}, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Token{}, fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return Token{}, fmt.Errorf("token endpoint returned an empty token")
	}

	return Token{
		Value:     body.AccessToken,
		ExpiresAt: time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}

// TokenCache reuses a token until it is within the refresh buffer of
// expiry, then fetches and overwrites. The check-then-set is deliberately
// not mutually exclusive: concurrent requests arriving at expiry may each
// refresh, which is tolerated because a refresh is idempotent and
// side-effect-free beyond obtaining a new credential. The cached value
// itself is held atomically so readers always see a consistent token.
type TokenCache struct {
	source TokenSource
	cached atomic.Pointer[Token]

	// now is replaceable in tests.
	now func() time.Time

	// onRefresh, when set, is called after each successful refresh.
	onRefresh func()
}

// NewTokenCache creates a cache around the given source.
func NewTokenCache(source TokenSource) *TokenCache {
	return &TokenCache{
		source: source,
		now:    time.Now,
	}
}

// Get returns a valid bearer token, refreshing when the cached one is
// absent or expires within the buffer.
func (c *TokenCache) Get(ctx context.Context) (string, error) {
	if t := c.cached.Load(); t != nil && c.now().Add(refreshBuffer).Before(t.ExpiresAt) {
		return t.Value, nil
	}

	t, err := c.source.Fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to refresh ad platform token: %w", err)
	}
	c.cached.Store(&t)
	if c.onRefresh != nil {
		c.onRefresh()
	}
	return t.Value, nil
}
