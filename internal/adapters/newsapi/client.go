package newsapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/polysignal/internal/adapters/httpclient"
	"github.com/alejandrodnm/polysignal/internal/domain"
)

const (
	defaultBaseURL  = "https://newsapi.org"
	defaultLanguage = "en"
	defaultMaxItems = 10
	defaultTimeout  = 30 * time.Second

	// Límite de NewsAPI para pageSize.
	maxPageSize       = 100
	maxDescriptionLen = 200
)

// Config configura el cliente de NewsAPI.
type Config struct {
	BaseURL  string
	APIKey   string
	Language string
	MaxItems int // usado cuando FetchContext recibe maxItems <= 0
	Timeout  time.Duration
}

// Client implementa ports.ContextProvider sobre /v2/everything.
type Client struct {
	http     *httpclient.Client
	baseURL  string
	apiKey   string
	language string
	maxItems int
}

type everythingResponse struct {
	Status   string    `json:"status"`
	Message  string    `json:"message"`
	Articles []article `json:"articles"`
}

type article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Source      struct {
		Name string `json:"name"`
	} `json:"source"`
}

// NewClient crea un Client. Sin APIKey el cliente no hace llamadas.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = defaultMaxItems
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		http: httpclient.New(httpclient.Options{
			Timeout:     cfg.Timeout,
			CallTimeout: cfg.Timeout,
			RatePerSec:  1,
			Burst:       2,
			Headers:     map[string]string{"X-Api-Key": cfg.APIKey},
		}),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		language: cfg.Language,
		maxItems: cfg.MaxItems,
	}
}

// FetchContext busca los artículos más recientes para query y devuelve
// como mucho maxItems líneas "title: description".
func (c *Client) FetchContext(ctx context.Context, query string, maxItems int) ([]string, error) {
	if c.apiKey == "" {
		slog.Debug("news api key not set, skipping context fetch")
		return nil, nil
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if maxItems <= 0 {
		maxItems = c.maxItems
	}
	if maxItems > maxPageSize {
		maxItems = maxPageSize
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("language", c.language)
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(maxItems))

	var resp everythingResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/v2/everything?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("newsapi.FetchContext: %w", err)
	}
	if resp.Status != "" && resp.Status != "ok" {
		return nil, fmt.Errorf("newsapi.FetchContext: status %q: %s", resp.Status, resp.Message)
	}

	lines := make([]string, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if line := formatArticle(a); line != "" {
			lines = append(lines, line)
		}
		if len(lines) == maxItems {
			break
		}
	}

	slog.Debug("news context fetched", "query", domain.Truncate(query, 60), "lines", len(lines))
	return lines, nil
}

// formatArticle descarta los artículos sin título (NewsAPI marca los
// eliminados como "[Removed]").
func formatArticle(a article) string {
	title := strings.TrimSpace(a.Title)
	if title == "" || title == "[Removed]" {
		return ""
	}
	desc := strings.TrimSpace(a.Description)
	if desc == "" || desc == "[Removed]" {
		return title
	}
	return title + ": " + domain.Truncate(desc, maxDescriptionLen)
}
