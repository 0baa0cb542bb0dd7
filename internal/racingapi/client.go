package racingapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/darkhorses-odds/internal/config"
)

// Client is a Racing API client with basic authentication
type Client struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	username   string
	password   string
	pageLimit  int
	cooldown   time.Duration
	logger     *logrus.Entry
}

// NewClient creates a Racing API client from configuration. pageLimit
// bounds each results page; zero or negative falls back to the API maximum.
func NewClient(cfg *config.RacingAPIConfig, httpClient *RateLimitedHTTPClient, pageLimit int, log *logrus.Entry) *Client {
	if pageLimit <= 0 {
		pageLimit = 50
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    cfg.BaseURL,
		username:   cfg.Username,
		password:   cfg.Password,
		pageLimit:  pageLimit,
		cooldown:   5 * time.Second,
		logger:     log,
	}
}

// get executes an authenticated GET request. A 429 response triggers a single
// cooldown-and-retry; a 404 is surfaced as ErrNotFound so callers can treat
// it as an empty day.
func (c *Client) get(ctx context.Context, endpoint, url string) ([]byte, error) {
	body, retry, err := c.getOnce(ctx, endpoint, url)
	if retry {
		c.logger.WithField("endpoint", endpoint).Warnf("rate limited, retrying after %s", c.cooldown)
		select {
		case <-time.After(c.cooldown):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		body, retry, err = c.getOnce(ctx, endpoint, url)
		if retry {
			return nil, NewAPIError(endpoint, ErrCodeRateLimitExceeded, "rate limit exceeded after cooldown", ErrRateLimitExceeded)
		}
	}
	return body, err
}

func (c *Client) getOnce(ctx context.Context, endpoint, url string) (body []byte, rateLimited bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, NewAPIError(endpoint, ErrCodeNetworkError, "failed to create request", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, false, NewAPIError(endpoint, ErrCodeNetworkError, "request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, NewAPIError(endpoint, ErrCodeInvalidData, "failed to read response body", err)
		}
		return data, false, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, false, NewAPIError(endpoint, ErrCodeAuthenticationFailed, "invalid credentials", ErrAuthenticationFailed)
	case http.StatusNotFound:
		return nil, false, NewAPIError(endpoint, ErrCodeNotFound, "no data for request", ErrNotFound)
	case http.StatusTooManyRequests:
		return nil, true, nil
	default:
		data, _ := io.ReadAll(resp.Body)
		return nil, false, NewAPIError(endpoint, ErrCodeServerError, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(data)), nil)
	}
}

// Close releases client resources
func (c *Client) Close() error {
	return c.httpClient.Close()
}
