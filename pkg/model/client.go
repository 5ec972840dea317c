package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	engerrors "github.com/typixhq/typix/pkg/errors"
	"github.com/typixhq/typix/pkg/logging"
)

const (
	defaultTimeout = 30 * time.Second

	// Conservative limit; the inference service handles far more, but the
	// engine should never be the thing that saturates it.
	defaultRateLimit = rate.Limit(5)
	defaultBurstSize = 10

	// systemPrompt matches what the Typix model was tuned against. Changing
	// it changes correction behavior, not just phrasing.
	systemPrompt = "Fix spelling and grammar. Make minimal changes. Return only the corrected text."

	defaultTemperature       = 0.2
	defaultMinP              = 0.15
	defaultRepetitionPenalty = 1.05
)

// RetryConfig configures the retry mechanism for backend requests.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryConfig returns sane retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
	}
}

// Client is an HTTP Corrector against an OpenAI-compatible endpoint.
type Client struct {
	apiKey      string
	baseURL     string
	modelID     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	retryConfig RetryConfig
	logger      *logging.Logger
}

// ClientOptions tunes optional client behavior.
type ClientOptions struct {
	// Timeout overrides the HTTP client timeout; zero keeps the default.
	Timeout time.Duration
	// RetryConfig is optional; if nil, defaults are used.
	RetryConfig *RetryConfig
	// RateLimit and Burst override the request rate limiter when RateLimit
	// is greater than zero.
	RateLimit float64
	Burst     int
	Logger    *logging.Logger
}

// NewClient creates a corrector client for the given endpoint and model.
func NewClient(apiKey, baseURL, modelID string) *Client {
	return NewClientWithOptions(apiKey, baseURL, modelID, ClientOptions{})
}

// NewClientWithOptions creates a corrector client with explicit options.
func NewClientWithOptions(apiKey, baseURL, modelID string, opts ClientOptions) *Client {
	timeout := defaultTimeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	retryConfig := DefaultRetryConfig()
	if opts.RetryConfig != nil {
		retryConfig = *opts.RetryConfig
	}
	limit := defaultRateLimit
	burst := defaultBurstSize
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
		if opts.Burst > 0 {
			burst = opts.Burst
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	return &Client{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		modelID:     modelID,
		rateLimiter: rate.NewLimiter(limit, burst),
		retryConfig: retryConfig,
		logger:      logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetTimeout updates the underlying HTTP client timeout (0 disables it).
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// Correct sends text to the backend and returns the corrected version with
// a fresh correlation id. The request is retried on retryable failures;
// correction is a pure function of its input, so replaying it is safe.
func (c *Client) Correct(ctx context.Context, req CorrectionRequest) (*CorrectionResult, error) {
	if req.Text == "" {
		return nil, engerrors.New(engerrors.ErrCodeInvalidInput, "empty text")
	}

	chatReq := ChatRequest{
		Model:             c.modelID,
		Messages:          buildMessages(req),
		Temperature:       defaultTemperature,
		MinP:              defaultMinP,
		RepetitionPenalty: defaultRepetitionPenalty,
	}
	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, engerrors.Wrap(err, engerrors.ErrCodeInternal, "encode request")
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.calculateBackoff(attempt - 1)
			select {
			case <-ctx.Done():
				return nil, engerrors.Wrap(ctx.Err(), engerrors.ErrCodeBackendTimeout, "correction cancelled")
			case <-time.After(delay):
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, engerrors.Wrap(err, engerrors.ErrCodeBackendTimeout, "rate limit wait")
		}

		resp, err := c.doChatCompletion(ctx, body)
		if err == nil {
			corrected, err := firstChoice(resp)
			if err != nil {
				return nil, err
			}
			return &CorrectionResult{
				RequestID: uuid.NewString(),
				Corrected: corrected,
				Latency:   time.Since(start),
			}, nil
		}
		lastErr = err
		if !isRetryableError(err) {
			break
		}
		c.logger.Log(logging.LevelWarn, logging.CategoryBackend, "retrying", "", map[string]any{
			"attempt": attempt + 1,
			"error":   err.Error(),
		})
	}
	return nil, lastErr
}

func (c *Client) doChatCompletion(ctx context.Context, body []byte) (*ChatResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, engerrors.Wrap(err, engerrors.ErrCodeInternal, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, engerrors.Wrap(err, engerrors.ErrCodeBackendTimeout, "correction request").WithRetryable(false)
		}
		return nil, engerrors.Wrap(err, engerrors.ErrCodeBackendRequest, "correction request").WithRetryable(true)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, engerrors.Wrap(err, engerrors.ErrCodeBackendResponse, "read response").WithRetryable(true)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(respBody), 256),
			Retryable:  resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
		code := engerrors.ErrCodeBackendRequest
		if resp.StatusCode == http.StatusTooManyRequests {
			code = engerrors.ErrCodeBackendRateLimit
		}
		return nil, engerrors.Wrap(apiErr, code, "correction request failed").WithRetryable(apiErr.Retryable)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, engerrors.Wrap(err, engerrors.ErrCodeBackendResponse, "decode response")
	}
	return &chatResp, nil
}

// buildMessages assembles the prompt. Tone and instruction extend the
// system prompt rather than the user message so the text being corrected
// stays byte-exact.
func buildMessages(req CorrectionRequest) []Message {
	system := systemPrompt
	if req.Context.Tone != "" {
		system += fmt.Sprintf(" Match a %s tone.", req.Context.Tone)
	}
	if req.Context.Instruction != "" {
		system += " " + req.Context.Instruction
	}
	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: req.Text},
	}
}

func firstChoice(resp *ChatResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", engerrors.New(engerrors.ErrCodeBackendResponse, "response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func isRetryableError(err error) bool {
	return engerrors.IsRetryable(err)
}

// calculateBackoff returns the delay before the next retry attempt using
// exponential backoff with jitter.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	delay := float64(c.retryConfig.InitialInterval)
	for i := 0; i < attempt; i++ {
		delay *= c.retryConfig.Multiplier
	}
	if delay > float64(c.retryConfig.MaxInterval) {
		delay = float64(c.retryConfig.MaxInterval)
	}
	jitter := rand.Float64() * delay * 0.5
	return time.Duration(delay*0.75 + jitter)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
