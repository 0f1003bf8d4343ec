package shortlink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Options configures the VPLink client.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Client relays URLs to the VPLink shortening API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

const (
	defaultBaseURL = "https://vplink.in/api"
	defaultTimeout = 15 * time.Second
)

// NewClient creates a VPLink shortener client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("vplink api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		apiKey:  strings.TrimSpace(opts.APIKey),
		baseURL: baseURL,
		client:  client,
	}, nil
}

// Shorten returns the shortened form of rawURL. The upstream responds in
// plain text, with error reports delivered in-band as text containing
// "error", so the body is inspected rather than trusted wholesale.
func (c *Client) Shorten(ctx context.Context, rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", errors.New("url is required")
	}

	q := url.Values{}
	q.Set("api", c.apiKey)
	q.Set("url", rawURL)
	q.Set("format", "text")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build shorten request: %w", err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("vplink request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vplink status %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("read shorten response: %w", err)
	}
	short := strings.TrimSpace(string(body))
	if short == "" || strings.Contains(strings.ToLower(short), "error") {
		return "", fmt.Errorf("vplink rejected url: %q", short)
	}
	return short, nil
}
