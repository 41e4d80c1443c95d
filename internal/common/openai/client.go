// Package openai is a minimal chat-completion client that asks for JSON output.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"maritime-edge/internal/common/errors"
	edgehttp "maritime-edge/internal/common/http"
	"maritime-edge/internal/common/metrics"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"

	serviceName    = "openai"
	initialBackoff = 500 * time.Millisecond
)

type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	// Backoff is the first retry delay; it doubles per attempt.
	Backoff time.Duration
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is one completion call. Model falls back to the client default.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

type responseFormat struct {
	Type string `json:"type"`
}

type completionRequest struct {
	Model          string         `json:"model"`
	Messages       []Message      `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat responseFormat `json:"response_format"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type Client struct {
	config     Config
	httpClient *edgehttp.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = initialBackoff
	}
	return &Client{
		config:     cfg,
		httpClient: edgehttp.NewClient(cfg.Timeout),
	}
}

// System and User build the two-message conversation every function sends.
func System(content string) Message { return Message{Role: "system", Content: content} }
func User(content string) Message   { return Message{Role: "user", Content: content} }

// ChatJSON returns choices[0].message.content. Non-2xx replies map to OPENAI_API_ERROR
// and an empty completion to INVALID_RESPONSE, both 502.
func (c *Client) ChatJSON(ctx context.Context, req ChatRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.config.Model
	}
	payload := completionRequest{
		Model:          model,
		Messages:       req.Messages,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		ResponseFormat: responseFormat{Type: "json_object"},
	}
	headers := map[string]string{"Authorization": "Bearer " + c.config.APIKey}
	url := c.config.BaseURL + "/chat/completions"

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.wait(ctx, attempt); err != nil {
				return "", err
			}
		}

		started := time.Now()
		reply, err := c.httpClient.DoJSON(ctx, http.MethodPost, url, payload, headers)
		if err != nil {
			if ctx.Err() != nil {
				metrics.ObserveExternalCall(serviceName, string(errors.ErrCodeTimeout), started)
				return "", fmt.Errorf("openai request: %w", ctx.Err())
			}
			metrics.ObserveExternalCall(serviceName, string(errors.ErrCodeOpenAIAPI), started)
			lastErr = errors.NewUpstreamError(errors.ErrCodeOpenAIAPI, "OpenAI", 0, err.Error()).WithCause(err)
			continue
		}

		if !reply.OK() {
			metrics.ObserveExternalCall(serviceName, string(errors.ErrCodeOpenAIAPI), started)
			lastErr = errors.NewUpstreamError(errors.ErrCodeOpenAIAPI, "OpenAI", reply.StatusCode, string(reply.Body))
			if retryable(reply.StatusCode) {
				continue
			}
			return "", lastErr
		}

		var parsed completionResponse
		if err := json.Unmarshal(reply.Body, &parsed); err != nil {
			metrics.ObserveExternalCall(serviceName, string(errors.ErrCodeInvalidResponse), started)
			return "", errors.NewInvalidResponseError("OpenAI", err.Error())
		}
		if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
			metrics.ObserveExternalCall(serviceName, string(errors.ErrCodeInvalidResponse), started)
			return "", errors.NewInvalidResponseError("OpenAI", "No content in completion")
		}

		metrics.ObserveExternalCall(serviceName, "success", started)
		return parsed.Choices[0].Message.Content, nil
	}

	return "", lastErr
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// wait sleeps Backoff*2^(attempt-1) plus up to 50% jitter.
func (c *Client) wait(ctx context.Context, attempt int) error {
	backoff := c.config.Backoff * time.Duration(1<<(attempt-1))
	backoff += time.Duration(rand.Int64N(int64(backoff)/2 + 1))

	select {
	case <-ctx.Done():
		return fmt.Errorf("openai retry: %w", ctx.Err())
	case <-time.After(backoff):
		return nil
	}
}
