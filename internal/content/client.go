// Package content fetches riddles from the external riddles API and
// stores them once per distinct text and answer.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// FetchedRiddle is one riddle as returned by the external API.
type FetchedRiddle struct {
	Text   string `json:"riddle"`
	Answer string `json:"answer"`
}

type riddlesResponse struct {
	RiddlesArray []FetchedRiddle `json:"riddlesArray"`
}

// Client wraps the riddles API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
}

// NewClient creates a riddles API client for baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		maxRetries: 4,
		backoff:    time.Second,
	}
}

// NormalizeCategory lower-cases and trims a category name.
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// Fetch returns up to count riddles in category.
func (c *Client) Fetch(ctx context.Context, category string, count int) ([]FetchedRiddle, error) {
	category = NormalizeCategory(category)
	if category == "" {
		return nil, fmt.Errorf("category is required")
	}
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", count)
	}
	path := fmt.Sprintf("/%s/%d", url.PathEscape(category), count)

	body, err := c.doRequest(ctx, path)
	if err != nil {
		return nil, err
	}

	var resp riddlesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse riddles response: %w", err)
	}
	riddles := resp.RiddlesArray[:0]
	for _, r := range resp.RiddlesArray {
		if strings.TrimSpace(r.Text) == "" {
			log.Printf("Warning: [Riddles Client] dropping riddle with empty text in %s", category)
			continue
		}
		riddles = append(riddles, r)
	}
	return riddles, nil
}

// doRequest performs a GET with retry on transport errors, 429 and 5xx.
func (c *Client) doRequest(ctx context.Context, path string) ([]byte, error) {
	log.Printf("[Riddles Client] GET %s", path)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(math.Pow(2, float64(attempt-1))) * c.backoff
			log.Printf("[Riddles Client] Retry attempt %d/%d for %s in %v", attempt, c.maxRetries-1, path, wait)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			log.Printf("[Riddles Client] ERROR: request failed (attempt %d): %v", attempt+1, err)
			lastErr = err
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("riddles API status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("riddles API error %d: %s", resp.StatusCode, string(body))
		}
		return body, nil
	}

	log.Printf("[Riddles Client] ERROR: Max retries (%d) exceeded for %s: %v", c.maxRetries, path, lastErr)
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
