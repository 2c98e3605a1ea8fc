package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/polysignal/internal/adapters/httpclient"
)

const (
	defaultBaseURL     = "https://api.groq.com/openai/v1"
	defaultModel       = "llama-3.3-70b-versatile"
	defaultTemperature = 0.3
	defaultMaxTokens   = 300
	defaultTimeout     = 60 * time.Second

	// Groq free tier: 30 req/min. Nos quedamos en ~60%.
	ratePerSec = 0.3
	rateBurst  = 3
)

// ErrMissingAPIKey se devuelve sin llamar a la API si no hay key configurada.
var ErrMissingAPIKey = errors.New("llm: missing api key")

// Config configura el cliente del servicio de estimación.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
}

// Client implementa ports.ProbabilityService sobre chat-completions.
type Client struct {
	http        *httpclient.Client
	url         string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

// NewClient crea un Client. Los campos vacíos usan los defaults de Groq.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	base := strings.TrimSuffix(strings.TrimRight(cfg.BaseURL, "/"), "/chat/completions")
	return &Client{
		http: httpclient.New(httpclient.Options{
			Timeout:     cfg.Timeout,
			CallTimeout: cfg.Timeout,
			RatePerSec:  ratePerSec,
			Burst:       rateBurst,
			MaxRetries:  cfg.MaxRetries,
			Headers:     map[string]string{"Authorization": "Bearer " + cfg.APIKey},
		}),
		url:         base + "/chat/completions",
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// EstimateProbability envía la pregunta al modelo y devuelve el texto crudo.
func (c *Client) EstimateProbability(ctx context.Context, question string, contextLines []string, calibration string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(question, contextLines, calibration)},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	var resp chatResponse
	if err := c.http.PostJSON(ctx, c.url, req, &resp); err != nil {
		return "", fmt.Errorf("llm.EstimateProbability: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm.EstimateProbability: empty choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("llm reply received",
		"model", c.model,
		"calibrated", calibration != "",
		"chars", len(content),
	)
	return content, nil
}
