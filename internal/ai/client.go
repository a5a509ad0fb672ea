// Package ai provides the text-understanding client used by the source
// extractors. The deduplication engine never calls it.
package ai

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Extraction is a simple structured-output task, so the cost-efficient
// model is the default. INTAKE_MODEL overrides it.
const (
	// ModelSonnet is the high-end model for complex reasoning
	ModelSonnet = "claude-sonnet-4-5-20250929"

	// ModelHaiku is the cost-efficient model for simple structured tasks
	ModelHaiku = "claude-3-5-haiku-20241022"
)

// GetDefaultModel returns the extraction model, checking INTAKE_MODEL first
func GetDefaultModel() string {
	if model := os.Getenv("INTAKE_MODEL"); model != "" {
		return model
	}
	return ModelHaiku
}

// Client wraps the Anthropic API with the retry, circuit-breaker, rate, and
// concurrency controls every caller should go through.
type Client struct {
	client         *anthropic.Client
	model          string
	retry          RetryConfig
	circuitBreaker *CircuitBreaker
	concurrencySem *semaphore.Weighted
	limiter        *rate.Limiter
}

// Config holds client configuration
type Config struct {
	APIKey string      // Anthropic API key (if empty, reads from ANTHROPIC_API_KEY env var)
	Model  string      // Model to use (default: GetDefaultModel())
	Retry  RetryConfig // Retry configuration (uses defaults if not specified)

	// RequestsPerSecond throttles outgoing API calls. 0 disables the
	// limiter. Default: 0.
	RequestsPerSecond float64
}

// NewClient creates a new text-understanding client
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = GetDefaultModel()
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	var circuitBreaker *CircuitBreaker
	if retry.CircuitBreakerEnabled {
		circuitBreaker = NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout)
	}

	var concurrencySem *semaphore.Weighted
	if retry.MaxConcurrentCalls > 0 {
		concurrencySem = semaphore.NewWeighted(int64(retry.MaxConcurrentCalls))
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		client:         &client,
		model:          model,
		retry:          retry,
		circuitBreaker: circuitBreaker,
		concurrencySem: concurrencySem,
		limiter:        limiter,
	}, nil
}

// Model returns the model the client sends requests to
func (c *Client) Model() string {
	return c.model
}

// Complete makes a single-prompt API call and returns the response text.
// The operation name labels log lines and circuit-breaker failures.
func (c *Client) Complete(ctx context.Context, prompt string, operation string, maxTokens int) (string, error) {
	startTime := time.Now()

	if maxTokens == 0 {
		maxTokens = 4096
	}

	var response *anthropic.Message
	err := c.retryWithBackoff(ctx, operation, func(attemptCtx context.Context) error {
		resp, apiErr := c.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(c.model),
			MaxTokens: int64(maxTokens),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var responseText string
	for _, block := range response.Content {
		if block.Type == "text" {
			responseText += block.Text
		}
	}

	duration := time.Since(startTime)
	fmt.Printf("AI %s call: input=%d tokens, output=%d tokens, duration=%v\n",
		operation, response.Usage.InputTokens, response.Usage.OutputTokens, duration)

	return responseText, nil
}

// HealthCheck reports whether the client can currently make calls.
// Returns an error while the circuit breaker is open.
func (c *Client) HealthCheck() error {
	if c.circuitBreaker != nil {
		state, failures, _ := c.circuitBreaker.GetMetrics()
		if state == CircuitOpen {
			return fmt.Errorf("text-understanding unavailable: %w (failures=%d, retry in %v)",
				ErrCircuitOpen, failures, c.retry.OpenTimeout)
		}
	}
	return nil
}
