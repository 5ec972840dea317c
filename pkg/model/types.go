// Package model talks to the Typix correction backend: an OpenAI-compatible
// inference service that takes a text (whole document or single sentence)
// and returns a minimally corrected version of it.
package model

import (
	"context"
	"fmt"
	"time"
)

// Message represents a chat message sent to the inference service.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// ChatRequest is the wire request for the chat completions endpoint.
type ChatRequest struct {
	Model             string    `json:"model"`
	Messages          []Message `json:"messages"`
	Temperature       float64   `json:"temperature,omitempty"`
	MinP              float64   `json:"min_p,omitempty"`
	RepetitionPenalty float64   `json:"repetition_penalty,omitempty"`
	MaxTokens         int       `json:"max_tokens,omitempty"`
}

// Choice is one completion candidate in a chat response.
type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// ChatResponse is the wire response from the chat completions endpoint.
type ChatResponse struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// RequestContext carries the surface metadata that accompanies a correction
// request. All fields are optional.
type RequestContext struct {
	SessionID       string `json:"sessionId,omitempty"`
	EditorKind      string `json:"editorKind,omitempty"`
	EditorSignature string `json:"editorSignature,omitempty"`
	PageURL         string `json:"pageUrl,omitempty"`
	// Tone adjusts the correction style ("formal", "casual", ...). Empty
	// means plain spelling/grammar fixing.
	Tone string `json:"tone,omitempty"`
	// Instruction is a free-form extra instruction appended to the system
	// prompt.
	Instruction string `json:"instruction,omitempty"`
}

// CorrectionRequest asks the backend to correct Text.
type CorrectionRequest struct {
	Text    string
	Context RequestContext
}

// CorrectionResult is a completed correction with its correlation id.
type CorrectionResult struct {
	// RequestID is an opaque correlation id, fresh per completed request.
	RequestID string        `json:"requestId"`
	Corrected string        `json:"corrected"`
	Latency   time.Duration `json:"latency"`
}

// Corrector is the correction backend boundary. Implementations must be
// safe for concurrent use.
type Corrector interface {
	Correct(ctx context.Context, req CorrectionRequest) (*CorrectionResult, error)
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Body       string
	Retryable  bool
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned HTTP %d: %s", e.StatusCode, e.Body)
}
