package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ollamaui/models"
)

const maxResponseSize = 16 * 1024 * 1024

// OllamaConfig holds the connection settings for an Ollama-style server
type OllamaConfig struct {
	BaseURL        string
	ChatTimeout    time.Duration
	CatalogTimeout time.Duration
	Options        map[string]interface{}
	HTTPClient     *http.Client
}

// OllamaProvider talks to the native Ollama API (/tags, /chat, /version)
type OllamaProvider struct {
	client         *http.Client
	baseURL        string
	chatTimeout    time.Duration
	catalogTimeout time.Duration
	options        map[string]interface{}
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(cfg OllamaConfig) *OllamaProvider {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &OllamaProvider{
		client:         client,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		chatTimeout:    cfg.ChatTimeout,
		catalogTimeout: cfg.CatalogTimeout,
		options:        cfg.Options,
	}
}

// ListModels fetches the tag catalog
func (o *OllamaProvider) ListModels(ctx context.Context) ([]models.ModelDescriptor, error) {
	resp, err := o.Execute(ctx, &ProviderRequest{
		URL:     o.baseURL + "/tags",
		Method:  http.MethodGet,
		Timeout: o.catalogTimeout,
	})
	if err != nil {
		return nil, err
	}

	if err := CheckStatus(resp); err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil, ErrEmptyBody
	}

	var catalog struct {
		Models *[]models.ModelDescriptor `json:"models"`
	}
	if err := json.Unmarshal(resp.Body, &catalog); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if catalog.Models == nil {
		return nil, ErrNoModels
	}

	return *catalog.Models, nil
}

// TranslateRequest builds the POST /chat request. Messages are copied with only
// role and content kept.
func (o *OllamaProvider) TranslateRequest(ctx context.Context, req *ChatRequest) (*ProviderRequest, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}

	messages := make([]Message, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = Message{Role: msg.Role, Content: msg.Content}
	}

	body := &ChatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   false,
		Options:  req.Options,
	}
	if len(body.Options) == 0 && len(o.options) > 0 {
		body.Options = o.options
	}

	return &ProviderRequest{
		URL:    o.baseURL + "/chat",
		Method: http.MethodPost,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body:    body,
		Timeout: o.chatTimeout,
	}, nil
}

// Execute sends the request to the inference server. Any status code is returned
// as a response; only transport failures are errors.
func (o *OllamaProvider) Execute(ctx context.Context, req *ProviderRequest) (*ProviderResponse, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var body io.Reader
	if req.Body != nil {
		jsonBody, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &ProviderResponse{
		StatusCode: resp.StatusCode,
		Body:       data,
	}, nil
}

// TranslateResponse decodes the chat endpoint body
func (o *OllamaProvider) TranslateResponse(ctx context.Context, resp *ProviderResponse) (*ChatResponse, error) {
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil, &DecodeError{Err: ErrEmptyBody}
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(resp.Body, &chatResp); err != nil {
		return nil, &DecodeError{Err: err}
	}

	return &chatResp, nil
}

// HealthCheck asks the server for its version
func (o *OllamaProvider) HealthCheck(ctx context.Context) error {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := o.Execute(healthCtx, &ProviderRequest{
		URL:    o.baseURL + "/version",
		Method: http.MethodGet,
	})
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}

	return CheckStatus(resp)
}

// GetInfo returns provider information
func (o *OllamaProvider) GetInfo() ProviderInfo {
	return ProviderInfo{
		Name:           "Ollama",
		Version:        "1.0",
		BaseURL:        o.baseURL,
		SupportsStream: false,
		MaxRequestSize: maxResponseSize,
	}
}
