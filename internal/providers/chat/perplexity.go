package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Message is one turn of a chat conversation, relayed verbatim upstream.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options configures the Perplexity client.
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxTokens  int
	HTTPClient *http.Client
}

// Client relays chat completions to the Perplexity API.
type Client struct {
	apiKey    string
	model     string
	baseURL   string
	maxTokens int
	client    *http.Client
}

const (
	defaultModel       = "sonar"
	defaultBaseURL     = "https://api.perplexity.ai"
	defaultMaxTokens   = 500
	defaultTemperature = 0.7
	defaultTimeout     = 60 * time.Second
)

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewClient creates a Perplexity chat client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("perplexity api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		apiKey:    strings.TrimSpace(opts.APIKey),
		model:     model,
		baseURL:   baseURL,
		maxTokens: maxTokens,
		client:    client,
	}, nil
}

// Complete relays the conversation and returns the assistant's reply.
// maxTokens caps the response length; zero falls back to the configured cap.
func (c *Client) Complete(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("messages are required")
	}
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	payload := chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: defaultTemperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("perplexity request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return "", fmt.Errorf("perplexity status %d: %s", res.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("perplexity returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
