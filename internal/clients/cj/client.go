// Package cj is a typed client for the CJ Dropshipping API v2.
package cj

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"dropship-service/internal/clients"
	"dropship-service/internal/models"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://developers.cjdropshipping.com/api2.0/v1"

	tokenHeader = "CJ-Access-Token"

	// refresh this long before the reported expiry
	tokenExpiryMargin = time.Hour

	// used when CJ omits or garbles expiry dates
	defaultAccessTokenTTL  = 15 * 24 * time.Hour
	defaultRefreshTokenTTL = 180 * 24 * time.Hour
)

// CJ business codes that mean the access token is no longer accepted
var authErrorCodes = map[int]bool{
	1600001: true,
	1600002: true,
	1600003: true,
}

// APIError is a non-success response from CJ, either an HTTP error or
// an envelope whose code is not 200.
type APIError struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"requestId,omitempty"`
	HTTPStatus int    `json:"httpStatus"`
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("cj api error %d (http %d, request %s): %s", e.Code, e.HTTPStatus, e.RequestID, e.Message)
	}
	return fmt.Sprintf("cj api error %d (http %d): %s", e.Code, e.HTTPStatus, e.Message)
}

// IsAuthError reports whether the error means the credentials or token were rejected
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return authErrorCodes[apiErr.Code] || apiErr.HTTPStatus == http.StatusUnauthorized
}

// Token is a CJ access/refresh token pair
type Token struct {
	AccessToken        string    `json:"accessToken"`
	AccessTokenExpiry  time.Time `json:"accessTokenExpiry"`
	RefreshToken       string    `json:"refreshToken"`
	RefreshTokenExpiry time.Time `json:"refreshTokenExpiry"`
}

func (t *Token) accessValid(now time.Time) bool {
	return t != nil && t.AccessToken != "" && now.Add(tokenExpiryMargin).Before(t.AccessTokenExpiry)
}

func (t *Token) refreshValid(now time.Time) bool {
	return t != nil && t.RefreshToken != "" && now.Add(tokenExpiryMargin).Before(t.RefreshTokenExpiry)
}

// TokenStore persists tokens across restarts. CJ throttles getAccessToken
// heavily, so reusing a stored token avoids lockouts after a redeploy.
type TokenStore interface {
	LoadToken(ctx context.Context) (*Token, error)
	SaveToken(ctx context.Context, token *Token) error
}

// Config configures a Client
type Config struct {
	BaseURL           string
	APIKey            string
	Email             string
	RequestsPerSecond float64
	Retry             *clients.RetryConfig
	HTTPClient        *http.Client
	TokenStore        TokenStore
}

// Client implements clients.SupplierClient for CJ Dropshipping
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	email       string
	rateLimiter *rate.Limiter
	retrier     *clients.Retrier
	breaker     *clients.CircuitBreaker
	tokenStore  TokenStore

	mu    sync.Mutex
	token *Token
	now   func() time.Time
}

var _ clients.SupplierClient = (*Client)(nil)

// NewClient creates a CJ client
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing CJ api key")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		email:       cfg.Email,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), 1),
		retrier:     clients.NewRetrier(cfg.Retry),
		breaker:     clients.NewCircuitBreaker(5, time.Minute),
		tokenStore:  cfg.TokenStore,
		now:         time.Now,
	}, nil
}

// GetType returns the supplier type
func (c *Client) GetType() models.SupplierType {
	return models.SupplierTypeCJ
}

// TestConnection authenticates against CJ, bypassing any cached token
func (c *Client) TestConnection(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticateLocked(ctx)
}

// CircuitState exposes the breaker state for health reporting
func (c *Client) CircuitState() clients.CircuitState {
	return c.breaker.State()
}

// accessToken returns a usable token, refreshing or re-authenticating as needed
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.token == nil && c.tokenStore != nil {
		if stored, err := c.tokenStore.LoadToken(ctx); err == nil && stored != nil {
			c.token = stored
		}
	}
	if c.token.accessValid(now) {
		return c.token.AccessToken, nil
	}
	if c.token.refreshValid(now) {
		if err := c.refreshLocked(ctx); err == nil {
			return c.token.AccessToken, nil
		}
	}
	if err := c.authenticateLocked(ctx); err != nil {
		return "", err
	}
	return c.token.AccessToken, nil
}

func (c *Client) invalidateToken(rejected string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != nil && c.token.AccessToken == rejected {
		c.token.AccessToken = ""
	}
}

func (c *Client) authenticateLocked(ctx context.Context) error {
	body := map[string]string{"apiKey": c.apiKey}
	if c.email != "" {
		body = map[string]string{"email": c.email, "password": c.apiKey}
	}

	var data tokenData
	if err := c.send(ctx, http.MethodPost, "/authentication/getAccessToken", nil, body, "", &data); err != nil {
		return fmt.Errorf("failed to get CJ access token: %w", err)
	}
	return c.storeTokenLocked(ctx, data)
}

func (c *Client) refreshLocked(ctx context.Context) error {
	body := map[string]string{"refreshToken": c.token.RefreshToken}

	var data tokenData
	if err := c.send(ctx, http.MethodPost, "/authentication/refreshAccessToken", nil, body, "", &data); err != nil {
		return fmt.Errorf("failed to refresh CJ access token: %w", err)
	}
	return c.storeTokenLocked(ctx, data)
}

func (c *Client) storeTokenLocked(ctx context.Context, data tokenData) error {
	if data.AccessToken == "" {
		return fmt.Errorf("CJ returned an empty access token")
	}
	now := c.now()
	c.token = &Token{
		AccessToken:        data.AccessToken,
		AccessTokenExpiry:  parseTime(data.AccessTokenExpiryDate, now.Add(defaultAccessTokenTTL)),
		RefreshToken:       data.RefreshToken,
		RefreshTokenExpiry: parseTime(data.RefreshTokenExpiryDate, now.Add(defaultRefreshTokenTTL)),
	}
	if c.tokenStore != nil {
		// a failed save only costs a re-authentication after restart
		_ = c.tokenStore.SaveToken(ctx, c.token)
	}
	return nil
}

// doRequest performs an authenticated request and decodes envelope data into out.
// A rejected token is discarded and the request retried once.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body interface{}, out interface{}) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	err = c.send(ctx, method, path, params, body, token, out)
	if err != nil && IsAuthError(err) {
		c.invalidateToken(token)
		if token, err = c.accessToken(ctx); err != nil {
			return err
		}
		err = c.send(ctx, method, path, params, body, token, out)
	}
	return err
}

// send issues one logical request through the breaker, limiter and retrier
func (c *Client) send(ctx context.Context, method, path string, params url.Values, body interface{}, token string, out interface{}) error {
	if !c.breaker.Allow() {
		return clients.ErrCircuitOpen
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	resp, result := c.retrier.DoHTTP(ctx, func(ctx context.Context) (*http.Response, error) {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set(tokenHeader, token)
		}
		return c.httpClient.Do(req)
	})
	if resp == nil {
		c.breaker.RecordFailure()
		return fmt.Errorf("cj request %s %s failed after %d attempts: %w", method, path, result.Attempts, result.LastError)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure()
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			c.breaker.RecordFailure()
		}
		apiErr := &APIError{HTTPStatus: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var env envelope
		if json.Unmarshal(respBody, &env) == nil && env.Message != "" {
			apiErr.Code = env.Code
			apiErr.Message = env.Message
			apiErr.RequestID = env.RequestID
		}
		return apiErr
	}
	c.breaker.RecordSuccess()

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("failed to parse response envelope: %w", err)
	}
	if env.Code != 200 {
		return &APIError{Code: env.Code, Message: env.Message, RequestID: env.RequestID, HTTPStatus: resp.StatusCode}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", path, err)
	}
	return nil
}

func parseTime(value string, fallback time.Time) time.Time {
	if value == "" {
		return fallback
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05.000-0700"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return fallback
}
