package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ollamaui/models"
)

// Provider interface for the inference server
type Provider interface {
	// List installed models
	ListModels(ctx context.Context) ([]models.ModelDescriptor, error)

	// Translate request to provider format
	TranslateRequest(ctx context.Context, req *ChatRequest) (*ProviderRequest, error)

	// Execute request
	Execute(ctx context.Context, req *ProviderRequest) (*ProviderResponse, error)

	// Translate response to chat format
	TranslateResponse(ctx context.Context, resp *ProviderResponse) (*ChatResponse, error)

	// Health check
	HealthCheck(ctx context.Context) error

	// Get provider info
	GetInfo() ProviderInfo
}

// Chat roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the chat endpoint request body
type ChatRequest struct {
	Model    string                 `json:"model"`
	Messages []Message              `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// ChatResponse is the chat endpoint response body. Fields the UI does not need are
// decoded for logging only.
type ChatResponse struct {
	Model           string           `json:"model"`
	CreatedAt       string           `json:"created_at"`
	Message         *ResponseMessage `json:"message"`
	Done            bool             `json:"done"`
	DoneReason      string           `json:"done_reason"`
	TotalDuration   int64            `json:"total_duration"`
	PromptEvalCount int              `json:"prompt_eval_count"`
	EvalCount       int              `json:"eval_count"`
}

// ResponseMessage is the assistant turn returned by the chat endpoint.
// Content is nil when the server omitted it.
type ResponseMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

// Content returns the message text and whether the server sent one
func (r *ChatResponse) Content() (string, bool) {
	if r == nil || r.Message == nil || r.Message.Content == nil {
		return "", false
	}
	return *r.Message.Content, true
}

// ProviderRequest is the request to send to the provider
type ProviderRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    interface{}
	Timeout time.Duration
}

// ProviderResponse is the response from the provider
type ProviderResponse struct {
	StatusCode int
	Body       []byte
}

// ProviderInfo contains provider metadata
type ProviderInfo struct {
	Name           string
	Version        string
	BaseURL        string
	SupportsStream bool
	MaxRequestSize int
}

// ErrEmptyBody is returned when the server answered with no body at all
var ErrEmptyBody = errors.New("empty response body")

// ErrNoModels is returned when the catalog body has no models array
var ErrNoModels = errors.New("catalog response has no models field")

// StatusError reports a non-2xx answer from the inference server
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("inference server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("inference server returned status %d: %s", e.StatusCode, e.Body)
}

// DecodeError reports a body that could not be parsed
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// CheckStatus returns a StatusError for any non-2xx response
func CheckStatus(resp *ProviderResponse) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body := string(resp.Body)
	if len(body) > 512 {
		body = body[:512]
	}
	return &StatusError{StatusCode: resp.StatusCode, Body: body}
}
