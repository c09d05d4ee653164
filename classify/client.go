// Package classify assigns technology subtypes through an external
// text-completion oracle, accepting only high-confidence answers from a
// fixed label set. Oracle failure is a normal outcome here, never an
// error surfaced to the caller.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// CompletionClient is the classification oracle boundary: one prompt
// in, raw response text out. Implementations must be safe for
// concurrent use.
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ClientConfig configures the HTTP oracle client.
type ClientConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	Timeout   time.Duration
	RateLimit rate.Limit
}

// DefaultClientConfig returns the client defaults. The API key has no
// default: a missing key is a startup configuration error, checked in
// config.Validate before any processing begins.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Model:     "gpt-4o-mini",
		BaseURL:   "https://api.openai.com/v1",
		Timeout:   30 * time.Second,
		RateLimit: rate.Every(time.Second),
	}
}

// AIClient talks to an OpenAI-compatible chat-completions endpoint.
type AIClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *CircuitBreaker
	logger     *slog.Logger
}

// NewAIClient creates an oracle client. Zero config fields fall back to
// the defaults.
func NewAIClient(config ClientConfig) *AIClient {
	defaults := DefaultClientConfig()
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.RateLimit == 0 {
		config.RateLimit = defaults.RateLimit
	}

	return &AIClient{
		apiKey:     config.APIKey,
		model:      config.Model,
		baseURL:    config.BaseURL,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(config.RateLimit, 1),
		breaker:    NewCircuitBreaker(),
		logger:     slog.Default().With("component", "ai_client"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one chat-completion request and returns the raw
// assistant text. Exactly one call per invocation, no retries.
func (c *AIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !c.breaker.CanProceed() {
		return "", fmt.Errorf("circuit breaker open, oracle calls suspended")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.1,
		MaxTokens:   200,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return "", fmt.Errorf("oracle request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.breaker.RecordFailure()
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("oracle returned status %d: %s", resp.StatusCode, string(payload))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.breaker.RecordFailure()
		return "", fmt.Errorf("decode oracle response: %w", err)
	}

	if len(parsed.Choices) == 0 {
		c.breaker.RecordFailure()
		return "", fmt.Errorf("oracle response has no choices")
	}

	c.breaker.RecordSuccess()
	return parsed.Choices[0].Message.Content, nil
}
