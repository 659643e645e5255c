package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/singleflight"

	"release_tracker/internal/domain"
	"release_tracker/internal/lifecycle"
)

const (
	SourceID   = "rawg"
	SourceName = "RAWG Video Games Database"

	// maxResponseSize bounds how much of a response body is read.
	maxResponseSize = 10 * 1024 * 1024

	userAgent = "ReleaseTracker/1.0"
)

// Config holds catalog client configuration.
type Config struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	SearchTTL      time.Duration
	DetailTTL      time.Duration
	StaleTTL       time.Duration
	MaxEntries     int
}

// Client is a rate-limit aware client for the external game catalog. It is
// safe for concurrent use by request handlers and background jobs.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	search *TieredCache[*domain.CatalogSearchResult]
	detail *TieredCache[*domain.CatalogGame]
	group  singleflight.Group

	logger *slog.Logger
}

// New creates a new catalog client.
func New(cfg Config, logger *slog.Logger) *Client {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		maxAttempts:    maxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		search:         NewTieredCache[*domain.CatalogSearchResult](cfg.MaxEntries, cfg.SearchTTL, cfg.StaleTTL),
		detail:         NewTieredCache[*domain.CatalogGame](cfg.MaxEntries, cfg.DetailTTL, cfg.StaleTTL),
		logger:         logger.With("source", SourceID),
	}
}

// Name returns human-readable name.
func (c *Client) Name() string {
	return SourceName
}

// Search looks up games by free text.
func (c *Client) Search(ctx context.Context, query string, page int) (*domain.CatalogSearchResult, error) {
	if page < 1 {
		page = 1
	}
	query = strings.TrimSpace(query)
	key := fmt.Sprintf("search:%s:%d", strings.ToLower(query), page)

	params := url.Values{}
	params.Set("search", query)
	params.Set("page", strconv.Itoa(page))

	return lookup(ctx, c, c.search, key, "/games", params, c.decodeSearch)
}

// GetGame fetches one game by its catalog id.
func (c *Client) GetGame(ctx context.Context, externalID int64) (*domain.CatalogGame, error) {
	key := "game:" + strconv.FormatInt(externalID, 10)
	path := "/games/" + strconv.FormatInt(externalID, 10)

	return lookup(ctx, c, c.detail, key, path, url.Values{}, c.decodeGame)
}

// lookup serves key from the fresh tier, otherwise fetches it once (collapsing
// concurrent callers), and falls back to the stale tier if the fetch fails.
// The shared fetch is detached from the caller that started it and is bounded
// by the http client timeout and the retry budget instead; each caller still
// stops waiting when its own context ends.
func lookup[V any](
	ctx context.Context,
	c *Client,
	cache *TieredCache[V],
	key, path string,
	params url.Values,
	decode func([]byte) (V, error),
) (V, error) {
	if v, ok := cache.GetFresh(key); ok {
		return v, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		body, err := c.fetch(fetchCtx, path, params)
		if err != nil {
			return nil, err
		}
		v, err := decode(body)
		if err != nil {
			return nil, err
		}
		cache.SetBoth(key, v)
		return v, nil
	})

	var err error
	select {
	case res := <-ch:
		if res.Err == nil {
			return res.Val.(V), nil
		}
		err = res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}

	if v, ok := cache.GetStale(key); ok {
		c.logger.Warn("serving stale catalog entry",
			"key", key,
			"error", err,
		)
		return v, nil
	}

	var zero V
	return zero, classify(err)
}

// fetch performs a GET, retrying only on rate-limit responses.
func (c *Client) fetch(ctx context.Context, path string, params url.Values) ([]byte, error) {
	attempt := 0
	operation := func() ([]byte, error) {
		attempt++
		body, err := c.doRequest(ctx, path, params)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, domain.ErrRateLimited) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(uint(c.maxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.logger.Warn("request rate limited, retrying",
				"path", path,
				"attempt", attempt,
				"backoff", wait,
				"error", err,
			)
		}),
	)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			return nil, fmt.Errorf("after %d attempts: %w", attempt, err)
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = c.maxBackoff
	b.Reset()
	return b
}

func (c *Client) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	reqURL := c.baseURL + path
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The url.Error wrapper would leak the api key into logs.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("%w: execute request %s: %v", domain.ErrUpstreamUnavailable, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Path: path}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read response %s: %v", domain.ErrUpstreamUnavailable, path, err)
	}
	if len(body) > maxResponseSize {
		return nil, fmt.Errorf("%w: response %s exceeds %d bytes", domain.ErrUpstreamUnavailable, path, maxResponseSize)
	}

	return body, nil
}

func (c *Client) decodeGame(body []byte) (*domain.CatalogGame, error) {
	var resp gameResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrUpstreamUnavailable, err)
	}
	game := c.transform(resp)
	return &game, nil
}

func (c *Client) decodeSearch(body []byte) (*domain.CatalogSearchResult, error) {
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrUpstreamUnavailable, err)
	}

	result := &domain.CatalogSearchResult{
		Count: resp.Count,
		Next:  resp.Next != nil && *resp.Next != "",
		Games: make([]domain.CatalogGame, 0, len(resp.Results)),
	}
	for _, r := range resp.Results {
		result.Games = append(result.Games, c.transform(r))
	}
	return result, nil
}

func (c *Client) transform(r gameResponse) domain.CatalogGame {
	game := domain.CatalogGame{
		ExternalID:      r.ID,
		Title:           r.Name,
		TBA:             r.TBA,
		MetacriticScore: r.Metacritic,
		Rating:          r.Rating,
		RatingsCount:    r.RatingsCount,
		CoverImage:      nonEmpty(r.BackgroundImage),
		BannerImage:     nonEmpty(r.BackgroundImageAdditional),
		Description:     nonEmpty(r.DescriptionRaw),
	}

	if r.Released != nil && *r.Released != "" {
		game.ReleaseDate = lifecycle.ParseReleaseDate(*r.Released)
		if game.ReleaseDate == nil {
			c.logger.Warn("failed to parse release date",
				"external_id", r.ID,
				"released", *r.Released,
			)
		}
	}

	return game
}

// classify makes sure every error leaving the client carries one of the
// catalog sentinels.
func classify(err error) error {
	switch {
	case errors.Is(err, domain.ErrRateLimited),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUpstreamUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
