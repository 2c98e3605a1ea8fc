package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultRetryWait  = 500 * time.Millisecond
	maxRetryWait      = 8 * time.Second
	maxErrorBody      = 512
)

// Options configura un Client.
type Options struct {
	Timeout       time.Duration // timeout por intento
	CallTimeout   time.Duration // tope de la llamada completa, retries incluidos (0 = sin tope)
	RatePerSec    float64       // 0 = sin límite
	Burst         int
	MaxRetries    int
	BaseRetryWait time.Duration
	Headers       map[string]string
}

// Client es un HTTP client JSON con rate limiting y retries.
// Lo comparten los adapters del LLM, NewsAPI y el indexer.
type Client struct {
	http       *http.Client
	limiter    *rate.Limiter
	headers    map[string]string
	maxRetries int
	baseWait   time.Duration
	callLimit  time.Duration
}

// StatusError es una respuesta HTTP no exitosa.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.Code)
	}
	return fmt.Sprintf("http status %d: %s", e.Code, e.Body)
}

// New crea un Client aplicando defaults a las opciones vacías.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.BaseRetryWait <= 0 {
		opts.BaseRetryWait = defaultRetryWait
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSec > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}
	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}
	return &Client{
		http:       &http.Client{Timeout: opts.Timeout},
		limiter:    limiter,
		headers:    headers,
		maxRetries: opts.MaxRetries,
		baseWait:   opts.BaseRetryWait,
		callLimit:  opts.CallTimeout,
	}
}

// GetJSON hace un GET y decodifica la respuesta en out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	return c.doWithRetry(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}, out)
}

// PostJSON hace un POST con body JSON y decodifica la respuesta en out.
func (c *Client) PostJSON(ctx context.Context, url string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	return c.doWithRetry(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, out)
}

// doWithRetry ejecuta la request con backoff exponencial.
// Reintenta errores de red, 429 y 5xx; un 4xx se devuelve directamente.
// Con CallTimeout todos los intentos comparten un mismo deadline.
func (c *Client) doWithRetry(ctx context.Context, newReq func(context.Context) (*http.Request, error), out any) error {
	if c.callLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callLimit)
		defer cancel()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := newReq(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return fmt.Errorf("request canceled: %w", err)
			}
			slog.Debug("http request failed", "url", req.URL.Path, "attempt", attempt+1, "err", err)
			if attempt < c.maxRetries {
				c.sleep(ctx, attempt, "")
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = &StatusError{Code: resp.StatusCode, Body: readBody(resp)}
			slog.Debug("retryable http status", "url", req.URL.Path, "status", resp.StatusCode, "attempt", attempt+1)
			if attempt < c.maxRetries {
				c.sleep(ctx, attempt, resp.Header.Get("Retry-After"))
			}
			continue
		}

		if resp.StatusCode >= 400 {
			return &StatusError{Code: resp.StatusCode, Body: readBody(resp)}
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("request failed after %d retries: %w", c.maxRetries, lastErr)
}

// sleep espera con backoff exponencial respetando Retry-After y el contexto.
func (c *Client) sleep(ctx context.Context, attempt int, retryAfter string) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.baseWait
	if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs > 0 {
		wait = time.Duration(secs) * time.Second
	}
	if wait > maxRetryWait {
		wait = maxRetryWait
	}
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

func readBody(resp *http.Response) string {
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return strings.TrimSpace(string(b))
}
