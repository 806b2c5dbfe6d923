package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alejandrodnm/tokenpools/internal/domain"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.coingecko.com/api/v3"

	// Demo plan: 30 calls/min. Nos quedamos al ~60%: 18/min.
	defaultRatePerSec = 0.3
	defaultBurst      = 3

	defaultMaxAttempts = 3
	baseRetryWait      = 500 * time.Millisecond
	maxRetryWait       = 2 * time.Second
	defaultMaxWait     = 5 * time.Second

	apiKeyHeader = "x-cg-demo-api-key"
)

// Config configura el cliente. Los campos vacíos usan los defaults de producción.
type Config struct {
	BaseURL     string
	APIKey      string
	RatePerSec  float64
	MaxAttempts int
	RetryWait   time.Duration // espera base del backoff
	MaxWait     time.Duration // espera máxima por un turno del rate limiter
	Timeout     time.Duration
}

// Client es el HTTP client de CoinGecko con rate limiting y retries acotados.
// Implementa ports.PriceOracle y ports.MarketLister.
type Client struct {
	http        *http.Client
	baseURL     string
	apiKey      string
	limiter     *rate.Limiter
	maxAttempts int
	retryWait   time.Duration
	maxWait     time.Duration
}

// NewClient crea un Client con la configuración dada.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = baseRetryWait
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		http:        &http.Client{Timeout: cfg.Timeout},
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RatePerSec), defaultBurst),
		maxAttempts: cfg.MaxAttempts,
		retryWait:   cfg.RetryWait,
		maxWait:     cfg.MaxWait,
	}
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, url string, out any) error {
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set(apiKeyHeader, c.apiKey)
		}
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta fn con backoff exponencial acotado.
// 429 y 5xx se reintentan; 4xx falla inmediatamente. Agotados los intentos
// el error envuelve domain.ErrOracleUnavailable.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, attempt-1); err != nil {
				return err
			}
		}
		if err := c.waitTurn(ctx); err != nil {
			return err
		}

		resp, err := fn()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			slog.Warn("price feed request failed, retrying",
				"status", resp.StatusCode,
				"attempt", attempt+1,
				"max_attempts", c.maxAttempts,
			)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: after %d attempts: %w", domain.ErrOracleUnavailable, c.maxAttempts, lastErr)
}

// waitTurn reserva un turno del rate limiter. Si la cola obliga a esperar
// más de maxWait (o más de lo que permite el contexto) cancela la reserva y
// devuelve ErrOracleUnavailable en vez de bloquear.
func (c *Client) waitTurn(ctx context.Context) error {
	r := c.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("%w: rate limiter refused reservation", domain.ErrOracleUnavailable)
	}
	delay := r.Delay()
	if delay == 0 {
		return nil
	}
	limit := c.maxWait
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < limit {
		limit = time.Until(dl)
	}
	if delay > limit {
		r.Cancel()
		return fmt.Errorf("%w: rate limit wait %s exceeds %s", domain.ErrOracleUnavailable, delay.Round(time.Millisecond), limit.Round(time.Millisecond))
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return errors.Join(domain.ErrOracleUnavailable, ctx.Err())
	}
}

// sleep espera con backoff exponencial (tope maxRetryWait), respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) error {
	wait := c.retryWait << attempt
	if wait > maxRetryWait {
		wait = maxRetryWait
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return errors.Join(domain.ErrOracleUnavailable, ctx.Err())
	}
}
