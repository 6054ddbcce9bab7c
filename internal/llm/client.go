// Package llm provides a chat-completion client for OpenAI-compatible APIs.
//
// The answer generator, verification judge, and query refiner all speak
// through the Client interface. The OpenAI implementation rate-limits,
// retries transient failures with exponential backoff, and scrubs secret
// patterns from user content before it leaves the process.
package llm

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

	"golang.org/x/time/rate"
)

// Default configuration values.
const (
	defaultBaseURL         = "https://api.openai.com"
	defaultGenerationModel = "gpt-4o"
	defaultReasoningModel  = "o1-mini"
	defaultTimeout         = 60 * time.Second
	defaultMaxRetries      = 3
	defaultBaseBackoff     = 1 * time.Second
)

// Rate limiter defaults: 50 requests per minute.
const (
	defaultRateLimit = 50.0 / 60.0 // ~0.83 requests per second
	defaultBurst     = 5           // Allow bursts of up to 5 requests
)

// Request is a single chat-completion request.
type Request struct {
	// System is the system prompt. Omitted from the conversation when empty.
	System string

	// Prompt is the user message.
	Prompt string

	// Temperature controls sampling randomness. Zero uses the server
	// default. Ignored on reasoning requests.
	Temperature float64

	// MaxTokens caps the completion length. 0 uses the server default.
	// Sent as max_completion_tokens on reasoning requests.
	MaxTokens int

	// Reasoning selects the reasoning model instead of the generation model.
	Reasoning bool
}

// Client generates chat completions.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config holds configuration for the OpenAI chat client.
type Config struct {
	// BaseURL is the API endpoint, with or without a trailing /v1.
	// Default: "https://api.openai.com"
	BaseURL string

	// APIKey authenticates requests. Optional for keyless local servers.
	APIKey string

	// GenerationModel answers user queries.
	// Default: "gpt-4o"
	GenerationModel string

	// ReasoningModel judges answers and refines queries.
	// Default: "o1-mini"
	ReasoningModel string

	// Timeout bounds each HTTP request. Default: 60s.
	Timeout time.Duration
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.GenerationModel == "" {
		c.GenerationModel = defaultGenerationModel
	}
	if c.ReasoningModel == "" {
		c.ReasoningModel = defaultReasoningModel
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

// chatCompletionsURL builds the completions endpoint from a base URL that may
// or may not already carry the /v1 suffix, so the same value works for both
// api.openai.com and OpenAI-compatible servers configured with /v1.
func chatCompletionsURL(baseURL string) string {
	u := strings.TrimSuffix(baseURL, "/")
	u = strings.TrimSuffix(u, "/v1")
	return u + "/v1/chat/completions"
}

// OpenAIClient talks to an OpenAI-compatible chat completions API.
type OpenAIClient struct {
	config     Config
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
}

// NewOpenAIClient creates a chat client for an OpenAI-compatible API.
func NewOpenAIClient(config Config) *OpenAIClient {
	config.ApplyDefaults()

	return &OpenAIClient{
		config:   config,
		endpoint: chatCompletionsURL(config.BaseURL),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		maxRetries: defaultMaxRetries,
	}
}

// chatRequest represents the request format for the chat completions API.
type chatRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	MaxTokens           int           `json:"max_tokens,omitempty"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
	Temperature         float64       `json:"temperature,omitempty"`
}

// chatMessage represents a message in the conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse represents the response from the chat completions API.
type chatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// chatError represents an error response from the API.
type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Param   string `json:"param"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Complete generates a chat completion.
//
// The request is rate limited, user content is scrubbed for secret patterns
// before transmission, and transient failures (429, 5xx, transport errors)
// are retried with exponential backoff. Context cancellation is respected
// between attempts and during each HTTP request.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if req.Prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	model := c.config.GenerationModel
	if req.Reasoning {
		model = c.config.ReasoningModel
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	// Scrub secrets from user content before sending to the API. Uploaded
	// documents are arbitrary user files and may contain credentials.
	messages = append(messages, chatMessage{Role: "user", Content: scrubSecrets(req.Prompt)})

	apiReq := chatRequest{
		Model:    model,
		Messages: messages,
	}
	if req.Reasoning {
		// Reasoning models take max_completion_tokens and reject an
		// explicit temperature.
		apiReq.MaxCompletionTokens = req.MaxTokens
	} else {
		apiReq.MaxTokens = req.MaxTokens
		apiReq.Temperature = req.Temperature
	}

	// Make request with retries
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := defaultBaseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		response, err := c.doRequest(ctx, apiReq)
		if err == nil {
			return response, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return "", err
		}
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

// doRequest performs the actual HTTP request to the chat completions API.
func (c *OpenAIClient) doRequest(ctx context.Context, req chatRequest) (string, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &retryableError{err: fmt.Errorf("API request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	// Handle rate limiting
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &retryableError{err: fmt.Errorf("rate limited (429)")}
	}

	// Handle server errors (retryable)
	if resp.StatusCode >= 500 {
		return "", &retryableError{err: fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp chatError
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("empty response from API")
	}

	return apiResp.Choices[0].Message.Content, nil
}

// retryableError wraps an error to indicate the request can be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryableError reports whether the request that produced err should be
// retried.
func isRetryableError(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// Ensure OpenAIClient implements Client.
var _ Client = (*OpenAIClient)(nil)
