// Package llm adapts the external language-model collaborator behind a typed
// boundary. The pipeline hands it a prompt and a token bound and gets back
// ordered response segments; malformed API responses are rejected here.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Config holds configuration for the completion client.
type Config struct {
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	client   *resty.Client
	model    string
	endpoint string
}

// NewClient creates a new completion client.
// Parameters:
//   - cfg: model configuration including API key and base URL.
// Returns:
//   - *Client: initialized client wrapper.
func NewClient(cfg *Config) *Client {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	// Model calls are the long pole of the pipeline; bound them so a stalled
	// request fails the invocation instead of hanging it
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	client.SetTimeout(timeout)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &Client{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
	}
}

// Model returns the model name being used.
func (c *Client) Model() string {
	return c.model
}

// OpenAI-compatible Chat Completion API request/response structures
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends a single-turn prompt with a bounded output length and
// returns the response segments in API order. At least one segment is
// guaranteed on success; an empty choice list is treated as a malformed
// response.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - prompt: user prompt text.
//   - maxTokens: output token bound for this call.
// Returns:
//   - []string: ordered response segments, never empty on success.
//   - error: non-nil if the request fails or the response is malformed.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) ([]string, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		MaxTokens: maxTokens,
	}

	var resp chatResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(c.endpoint)

	if err != nil {
		return nil, fmt.Errorf("failed to call completion API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errorMsg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
		if resp.Error != nil {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		} else if len(httpResp.Body()) > 0 {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
		}
		return nil, fmt.Errorf("completion API returned error: %s", errorMsg)
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("completion API error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("malformed completion response: no choices (status: %d)", httpResp.StatusCode())
	}

	segments := make([]string, len(resp.Choices))
	for i, choice := range resp.Choices {
		segments[i] = choice.Message.Content
	}
	return segments, nil
}
