package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// MistralClient implements Completer against the Mistral chat-completions API.
type MistralClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int

	timeout    time.Duration
	maxRetries int
	backoff    time.Duration

	client *http.Client
	logger *zap.Logger
}

type MistralConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	// Timeout bounds each attempt. Zero leaves only the caller's context.
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type ChatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

func NewMistralClient(cfg MistralConfig, logger *zap.Logger) *MistralClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mistral.ai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "mistral-small"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MistralClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		maxRetries:  cfg.MaxRetries,
		backoff:     cfg.Backoff,
		client:      &http.Client{},
		logger:      logger,
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *MistralClient) WithHTTPClient(client *http.Client) *MistralClient {
	c.client = client
	return c
}

// Complete sends prompt as a single user message and returns the first choice.
// Transport errors, 429 and 5xx responses are retried with exponential backoff.
func (c *MistralClient) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelay(c.backoff, attempt-1)
			c.logger.Warn("retrying completion request",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return "", &TransportError{Err: ctx.Err()}
			case <-time.After(delay):
			}
		}

		answer, err := c.do(ctx, prompt)
		if err == nil {
			return answer, nil
		}
		lastErr = err

		if ctx.Err() != nil || !isRetryable(err) {
			break
		}
	}
	return "", lastErr
}

func (c *MistralClient) do(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(ChatRequest{
		Model:       c.model,
		Messages:    []ChatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.Debug("completion response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", &TransportError{Err: fmt.Errorf("%w: %v", errMalformed, err)}
	}
	if len(chatResp.Choices) == 0 {
		return "", &TransportError{Err: fmt.Errorf("%w: no choices", errMalformed)}
	}
	return chatResp.Choices[0].Message.Content, nil
}

// retryDelay grows exponentially from base and is capped at 5s.
func retryDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base << attempt
	if d > 5*time.Second || d <= 0 {
		d = 5 * time.Second
	}
	return d
}
