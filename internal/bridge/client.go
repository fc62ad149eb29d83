package bridge

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	fetchTimeout   = 10 * time.Second
	fetchRetries   = 3
	retryBackoff   = 500 * time.Millisecond
)

// Client fetches upstream bridge JSON, with a single documented TLS
// verification exception (spec.md §4.4 step 3).
type Client struct {
	insecureSkipVerifyHost string
	plain                  *http.Client
	insecure               *http.Client
}

// NewClient creates a Client. insecureSkipVerifyHost, if non-empty, names
// the single upstream host allowed to skip TLS verification.
func NewClient(insecureSkipVerifyHost string) *Client {
	return &Client{
		insecureSkipVerifyHost: insecureSkipVerifyHost,
		plain:                  &http.Client{Timeout: fetchTimeout},
		insecure: &http.Client{
			Timeout: fetchTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

func (c *Client) httpClientFor(rawURL string) *http.Client {
	if c.insecureSkipVerifyHost == "" {
		return c.plain
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() != c.insecureSkipVerifyHost {
		return c.plain
	}
	return c.insecure
}

// Fetch retrieves the body at rawURL, retrying up to fetchRetries times with
// a short fixed backoff within this single tick.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	client := c.httpClientFor(rawURL)

	var lastErr error
	for attempt := 0; attempt <= fetchRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBackoff):
			}
		}

		body, err := c.fetchOnce(ctx, client, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("fetch %s: empty body", rawURL)
	}
	return body, nil
}
