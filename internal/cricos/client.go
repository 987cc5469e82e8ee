package cricos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"studentoffer/internal/config"
)

const (
	ValidatePath = "/api/V1/StudentOffers/Validate"
	SubmitPath   = "/api/V1/StudentOffers"
)

type Client struct {
	cfg        config.Config
	baseURL    string
	httpClient *http.Client
	limiter    *RateLimiter
	backoff    func(attempt int) time.Duration

	// tokenSem guards token; holding it means a fetch may be in flight
	tokenSem chan struct{}
	token    *oauth2.Token
}

// Result is the raw outcome of a POST. Non-2xx statuses are results, not
// errors; only transport failures are returned as errors.
type Result struct {
	StatusCode int
	Body       []byte
}

func (r Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON decodes the body, or returns nil when the body is not JSON.
func (r Result) JSON() any {
	var v any
	if err := json.Unmarshal(r.Body, &v); err != nil {
		return nil
	}
	return v
}

// Pretty renders the body indented when it is JSON and verbatim otherwise.
func (r Result) Pretty() string {
	v := r.JSON()
	if v == nil {
		return string(r.Body)
	}
	buf := bytes.NewBuffer(nil)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return string(r.Body)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func NewClient(cfg config.Config) *Client {
	c := &Client{
		cfg:        cfg,
		tokenSem:   make(chan struct{}, 1),
		httpClient: &http.Client{Timeout: time.Duration(cfg.CricosTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.CricosRateLimitRPS),
		backoff: func(attempt int) time.Duration {
			return time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
		},
	}
	return c.WithBaseURL(cfg.CricosAPIBaseURL)
}

// WithBaseURL points the client at another deployment. The cached token is
// dropped with it.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
	c.token = nil
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// AccessToken returns the bearer token, fetching it on first use and after
// expiry. Waiting for another caller's fetch and the fetch itself both end
// with ctx.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	select {
	case c.tokenSem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-c.tokenSem }()

	if c.token.Valid() {
		return c.token.AccessToken, nil
	}
	tok, err := c.fetchToken(ctx)
	if err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", errors.New("cricos token: no access token in response")
	}
	c.token = tok
	return tok.AccessToken, nil
}

func (c *Client) fetchToken(ctx context.Context) (*oauth2.Token, error) {
	if err := c.cfg.RequireCricosCredentials(); err != nil {
		return nil, err
	}
	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.baseURL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	if c.cfg.CricosTokenTimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.cfg.CricosTokenTimeoutMs)*time.Millisecond)
		defer cancel()
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := conf.PasswordCredentialsToken(ctx, c.cfg.CricosAPIUsername, c.cfg.CricosAPIPassword)
	if err != nil {
		return nil, fmt.Errorf("cricos token: %w", err)
	}
	return tok, nil
}

// Validate posts the offer to the validation endpoint, retrying throttling
// and server errors.
func (c *Client) Validate(ctx context.Context, offer []byte) (Result, error) {
	attempts := c.cfg.CricosValidateRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		res, err := c.post(ctx, ValidatePath, offer)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, err
			}
			lastErr = err
		} else if !isRetryableStatus(res.StatusCode) || attempt == attempts {
			return res, nil
		} else {
			lastErr = fmt.Errorf("cricos status %d", res.StatusCode)
		}

		if attempt < attempts {
			if err := sleepCtx(ctx, c.backoff(attempt)); err != nil {
				return Result{}, err
			}
		}
	}

	if lastErr == nil {
		lastErr = errors.New("cricos validate failed")
	}
	return Result{}, lastErr
}

// Submit posts the offer once. Submission is not idempotent.
func (c *Client) Submit(ctx context.Context, offer []byte) (Result, error) {
	return c.post(ctx, SubmitPath, offer)
}

func (c *Client) post(ctx context.Context, path string, body []byte) (Result, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return Result{}, err
	}
	if err := c.limiter.WaitTurn(ctx); err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}
	return Result{StatusCode: resp.StatusCode, Body: blob}, nil
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
