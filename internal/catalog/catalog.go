// Package catalog draws random cards from the external trading card catalog.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"serwer-kart/internal/models"
	"strconv"
	"time"
)

const (
	DefaultBaseURL  = "https://api.pokemontcg.io/v2"
	DefaultPageSize = 250
	DefaultTimeout  = 5 * time.Second

	maxErrorBody = 4 << 10
)

var (
	// ErrUnavailable means the catalog could not be reached at all.
	ErrUnavailable = errors.New("card catalog unavailable")
	ErrEmptyPage   = errors.New("card catalog returned no cards")
)

// StatusError carries a non-success answer from the catalog.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("card catalog returned status %d", e.StatusCode)
}

// PageCache stores raw catalog pages between draws.
type PageCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

type Config struct {
	BaseURL  string
	APIKey   string
	PageSize int
	Timeout  time.Duration
	CacheTTL time.Duration
}

type Client struct {
	baseURL    string
	apiKey     string
	pageSize   int
	cacheTTL   time.Duration
	httpClient *http.Client
	cache      PageCache
	pick       func(n int) int
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithCache(cache PageCache) Option {
	return func(cl *Client) {
		cl.cache = cache
	}
}

// WithPicker replaces the uniform random index selection.
func WithPicker(pick func(n int) int) Option {
	return func(cl *Client) {
		cl.pick = pick
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		pageSize:   cfg.PageSize,
		cacheTTL:   cfg.CacheTTL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		pick:       rand.IntN,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiCard is the subset of the catalog's card object we read.
type apiCard struct {
	Name   string   `json:"name"`
	Types  []string `json:"types"`
	Images struct {
		Small string `json:"small"`
		Large string `json:"large"`
	} `json:"images"`
	NationalPokedexNumbers []int `json:"nationalPokedexNumbers"`
}

type apiPage struct {
	Data []apiCard `json:"data"`
}

// DrawRandomCard fetches one page and returns a uniformly chosen entry. No
// retry is attempted.
func (c *Client) DrawRandomCard(ctx context.Context) (*models.CardDraft, error) {
	page, err := c.fetchPage(ctx)
	if err != nil {
		return nil, err
	}
	if len(page.Data) == 0 {
		return nil, ErrEmptyPage
	}

	draft := toDraft(page.Data[c.pick(len(page.Data))])
	return &draft, nil
}

func (c *Client) pageKey() string {
	return fmt.Sprintf("catalog:page:%d:1", c.pageSize)
}

func (c *Client) fetchPage(ctx context.Context) (*apiPage, error) {
	if c.cache != nil {
		if raw, ok := c.cache.Get(ctx, c.pageKey()); ok {
			var page apiPage
			if err := json.Unmarshal([]byte(raw), &page); err == nil && len(page.Data) > 0 {
				return &page, nil
			}
		}
	}

	params := url.Values{}
	params.Set("pageSize", strconv.Itoa(c.pageSize))
	params.Set("page", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/cards?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.WarnContext(ctx, "card catalog request failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var page apiPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("%w: decode page: %v", ErrUnavailable, err)
	}

	if c.cache != nil && c.cacheTTL > 0 && len(page.Data) > 0 {
		if err := c.cache.Set(ctx, c.pageKey(), string(raw), c.cacheTTL); err != nil {
			slog.WarnContext(ctx, "failed to cache catalog page", "error", err)
		}
	}

	return &page, nil
}

func toDraft(card apiCard) models.CardDraft {
	draft := models.CardDraft{
		Name:     card.Name,
		Type:     models.UnknownCardType,
		ImageURL: card.Images.Large,
	}
	if len(card.Types) > 0 && card.Types[0] != "" {
		draft.Type = card.Types[0]
	}
	if len(card.NationalPokedexNumbers) > 0 {
		index := card.NationalPokedexNumbers[0]
		draft.CatalogIndex = &index
	}
	return draft
}
