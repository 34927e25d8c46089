package httpclient

// Base HTTP client shared by the upstream API clients.
// Transport layer only: rate limiting, circuit breaking, size-capped reads,
// request/response logging. Non-2xx responses come back as *retry.HTTPError.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"token-holders/internal/infra/log"
	"token-holders/internal/infra/retry"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Options struct {
	Name            string        // breaker name, also used in log lines
	Timeout         time.Duration // per-request timeout
	RateLimit       float64       // requests per second, 0 disables the limiter
	RateBurst       int
	MaxResponseSize int64
	// BreakerFailures trips the breaker after this many consecutive failures; 0 disables it.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	Headers         map[string]string
}

func DefaultOptions(name string) Options {
	return Options{
		Name:            name,
		Timeout:         30 * time.Second,
		RateLimit:       10,
		RateBurst:       20,
		MaxResponseSize: 10 * 1024 * 1024,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

type Client struct {
	name            string
	httpClient      *http.Client
	rateLimiter     *rate.Limiter
	circuitBreaker  *gobreaker.CircuitBreaker
	maxResponseSize int64
	headers         map[string]string
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxResponseSize <= 0 {
		opts.MaxResponseSize = 10 * 1024 * 1024
	}

	c := &Client{
		name:            opts.Name,
		maxResponseSize: opts.MaxResponseSize,
		headers:         opts.Headers,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				DisableKeepAlives: false,
				MaxIdleConns:      10,
				IdleConnTimeout:   90 * time.Second,
			},
		},
	}

	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.rateLimiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	if opts.BreakerFailures > 0 {
		failures := opts.BreakerFailures
		c.circuitBreaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        opts.Name,
			MaxRequests: 3,
			Interval:    60 * time.Second,
			Timeout:     opts.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			// 4xx answers mean the upstream is healthy.
			IsSuccessful: func(err error) bool {
				var he *retry.HTTPError
				if errors.As(err, &he) {
					return he.StatusCode < 500
				}
				return err == nil
			},
		})
	}

	return c
}

// Get sends a GET to url and returns the response body.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, url, nil)
}

// PostJSON marshals body and POSTs it to url.
func (c *Client) PostJSON(ctx context.Context, url string, body interface{}) ([]byte, error) {
	return c.Do(ctx, http.MethodPost, url, body)
}

// Do performs one request through the rate limiter and circuit breaker.
func (c *Client) Do(ctx context.Context, method, url string, body interface{}) ([]byte, error) {
	requestID := log.GenerateRequestID()
	startTime := time.Now()

	if ctx.Err() != nil {
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	}

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	if c.circuitBreaker == nil {
		return c.doRequest(ctx, requestID, method, url, body, startTime)
	}

	var respBody []byte
	_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		b, err := c.doRequest(ctx, requestID, method, url, body, startTime)
		respBody = b
		return b, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		log.LogError("Circuit breaker rejected request",
			zap.String("client", c.name),
			zap.String("request_id", requestID),
			zap.String("endpoint", url),
			zap.Error(err))
	}
	if err != nil {
		return nil, err
	}
	return respBody, nil
}

func (c *Client) doRequest(ctx context.Context, requestID, method, url string, body interface{}, startTime time.Time) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	log.LogRequest(requestID, method, url, zap.String("client", c.name))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		duration := time.Since(startTime).Milliseconds()
		log.LogResponse(requestID, 0, duration, zap.String("endpoint", url), zap.Error(err))
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	if err != nil {
		duration := time.Since(startTime).Milliseconds()
		log.LogResponse(requestID, resp.StatusCode, duration, zap.String("endpoint", url), zap.Error(err))
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	duration := time.Since(startTime).Milliseconds()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.LogResponse(requestID, resp.StatusCode, duration, zap.String("endpoint", url))
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Body:       respBody,
			RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	log.LogResponse(requestID, resp.StatusCode, duration, zap.String("endpoint", url))
	return respBody, nil
}
