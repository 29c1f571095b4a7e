package riot

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

const (
	// RankedSoloQueue is the queue type used by league-v4
	RankedSoloQueue = "RANKED_SOLO_5x5"
	// RankedSoloQueueID is the match-v5 queue filter for ranked solo/duo
	RankedSoloQueueID = 420

	defaultHTTPTimeout = 30 * time.Second
)

// Client is a Riot API client for the league-v4 and match-v5 endpoints.
// Pacing between requests is the caller's job (see internal/ratelimit).
type Client struct {
	apiKey     string
	httpClient *http.Client

	platformURL string // e.g. https://na1.api.riotgames.com
	routingURL  string // e.g. https://americas.api.riotgames.com
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithPlatformURL overrides the platform host (useful for testing)
func WithPlatformURL(u string) ClientOption {
	return func(c *Client) {
		c.platformURL = u
	}
}

// WithRoutingURL overrides the regional routing host (useful for testing)
func WithRoutingURL(u string) ClientOption {
	return func(c *Client) {
		c.routingURL = u
	}
}

// WithHTTPTimeout sets the per-request timeout
func WithHTTPTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient creates a client for the given platform (na1, euw1, ...) and
// routing region (americas, europe, asia, sea).
func NewClient(apiKey, platformRegion, routingRegion string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("riot API key is empty")
	}

	c := &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
		platformURL: PlatformURL(platformRegion),
		routingURL:  RoutingURL(routingRegion),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// PlatformURL returns the API host for a platform region
func PlatformURL(platformRegion string) string {
	return fmt.Sprintf("https://%s.api.riotgames.com", platformRegion)
}

// RoutingURL returns the API host for a regional routing value
func RoutingURL(routingRegion string) string {
	return fmt.Sprintf("https://%s.api.riotgames.com", routingRegion)
}

// doRequest performs a single GET and decodes a 200 response into result.
// Failures are returned as-is; nothing is retried.
func (c *Client) doRequest(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Riot-Token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newStatusError(resp, endpoint)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode %s: %w", redactPath(endpoint), err)
	}
	return nil
}

// GetLeagueEntries fetches one page of the ranked solo ladder for a tier/division
func (c *Client) GetLeagueEntries(ctx context.Context, tier, division string, page int) ([]LeagueEntryResponse, error) {
	endpoint := fmt.Sprintf("%s/lol/league/v4/entries/%s/%s/%s?page=%d",
		c.platformURL, RankedSoloQueue, url.PathEscape(tier), url.PathEscape(division), page)

	var entries []LeagueEntryResponse
	err := c.doRequest(ctx, endpoint, &entries)
	return entries, err
}

// GetMatchHistory fetches the most recent match IDs for a player, filtered to a queue
func (c *Client) GetMatchHistory(ctx context.Context, puuid string, count, queue int) ([]string, error) {
	params := url.Values{}
	params.Set("count", strconv.Itoa(count))
	params.Set("queue", strconv.Itoa(queue))
	endpoint := fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids?%s",
		c.routingURL, url.PathEscape(puuid), params.Encode())

	var matchIDs []string
	err := c.doRequest(ctx, endpoint, &matchIDs)
	return matchIDs, err
}

// GetMatch fetches match details
func (c *Client) GetMatch(ctx context.Context, matchID string) (*MatchResponse, error) {
	endpoint := fmt.Sprintf("%s/lol/match/v5/matches/%s", c.routingURL, url.PathEscape(matchID))

	var match MatchResponse
	if err := c.doRequest(ctx, endpoint, &match); err != nil {
		return nil, err
	}
	return &match, nil
}
