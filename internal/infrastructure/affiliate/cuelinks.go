// Package affiliate rewrites product URLs into monetised affiliate links
// through the Cuelinks API.
package affiliate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/linkloot/affiliate-api/internal/core/domain"
	"github.com/linkloot/affiliate-api/internal/core/ports"
)

const placeholderKey = "YOUR_CUELINKS_API_KEY"

// Client implements ports.LinkRewriter.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient returns a Client. An empty or placeholder apiKey yields a client
// that skips every rewrite.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether rewrites will reach the API.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.apiKey != placeholderKey && c.baseURL != ""
}

type linkResponse struct {
	AffiliateURL string `json:"affiliate_url"`
}

// Rewrite asks the API for an affiliate URL. The returned URL may equal the
// input when the merchant pays no commission; callers treat that as no rewrite.
func (c *Client) Rewrite(ctx context.Context, productURL string) ports.RewriteResult {
	if !c.Configured() {
		return ports.RewriteResult{DeliveryResult: ports.Skipped("affiliate api key not configured"), URL: productURL}
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.failed(productURL, fmt.Errorf("parse api url: %w", err))
	}
	q := u.Query()
	q.Set("url", productURL)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return c.failed(productURL, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Token token="+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.failed(productURL, fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return c.failed(productURL, fmt.Errorf("api returned status %d: %s", resp.StatusCode, string(body)))
	}

	var out linkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return c.failed(productURL, fmt.Errorf("decode response: %w", err))
	}
	if out.AffiliateURL == "" || out.AffiliateURL == productURL {
		return ports.RewriteResult{DeliveryResult: ports.Skipped("affiliate api returned the original url"), URL: productURL}
	}

	return ports.RewriteResult{DeliveryResult: ports.Sent(), URL: out.AffiliateURL}
}

func (c *Client) failed(productURL string, err error) ports.RewriteResult {
	return ports.RewriteResult{
		DeliveryResult: ports.Failed(fmt.Errorf("%w: cuelinks: %v", domain.ErrUpstreamUnavailable, err)),
		URL:            productURL,
	}
}
