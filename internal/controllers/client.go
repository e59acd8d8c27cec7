package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yegors/flightdesk/internal/config"
	"github.com/yegors/flightdesk/pkg/logger"
)

// Client fetches controller and ATIS lists from the upstream HTTP API
type Client struct {
	baseURL    string
	maxRetries int
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new upstream API client
func NewClient(cfg config.ControllersConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSecs) * time.Second,
		},
		logger: log.Named("controllers-client"),
	}
}

// FetchControllers fetches the online controller list
func (c *Client) FetchControllers(ctx context.Context) ([]RawController, error) {
	var result []RawController
	if err := c.fetchWithRetry(ctx, "/controllers", &result); err != nil {
		return nil, err
	}
	return result, nil
}

// FetchATIS fetches the published ATIS list
func (c *Client) FetchATIS(ctx context.Context) ([]map[string]json.RawMessage, error) {
	var result []map[string]json.RawMessage
	if err := c.fetchWithRetry(ctx, "/atis", &result); err != nil {
		return nil, err
	}
	return result, nil
}

// fetchWithRetry performs a GET with retry logic and exponential backoff
func (c *Client) fetchWithRetry(ctx context.Context, path string, target any) error {
	url := c.baseURL + path
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(500*(1<<uint(attempt-1))) * time.Millisecond
			c.logger.Debug("Retrying upstream fetch",
				logger.String("path", path),
				logger.Int("attempt", attempt),
				logger.Duration("backoff", backoff))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		lastErr = c.fetchOnce(ctx, url, target)
		if lastErr == nil {
			if attempt > 0 {
				c.logger.Info("Fetched upstream data after retries",
					logger.String("path", path),
					logger.Int("attempts_needed", attempt+1))
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Warn("Upstream request failed, may retry",
			logger.String("path", path),
			logger.Error(lastErr),
			logger.Int("attempt", attempt+1),
			logger.Int("max_attempts", c.maxRetries+1))
	}

	return fmt.Errorf("failed to fetch %s after %d attempts: %w", path, c.maxRetries+1, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, url string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}
