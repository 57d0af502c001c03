// Package chat turns a prompt and client-held history into a chat completion call and
// turns the reply into the response / chain-of-thought pair the UI renders.
package chat

import (
	"context"
	"strings"
	"time"

	"ollamaui/logger"
	"ollamaui/models"
	"ollamaui/providers"
	"ollamaui/reasoning"
)

// NoResponseText is used when the server answered without message content
const NoResponseText = "No response generated"

// Directive is the fixed instruction prepended to every outbound conversation
type Directive struct {
	Role    string
	Content string
}

// Message returns the directive as a chat message
func (d Directive) Message() providers.Message {
	return providers.Message{Role: d.Role, Content: d.Content}
}

// Responder lists models and generates chat responses. It holds no per-request state
// and is safe for concurrent use.
type Responder struct {
	provider  providers.Provider
	directive Directive
}

// NewResponder creates a responder over the given provider
func NewResponder(provider providers.Provider, directive Directive) *Responder {
	return &Responder{
		provider:  provider,
		directive: directive,
	}
}

// Directive returns the configured directive
func (r *Responder) Directive() Directive {
	return r.directive
}

// ListModels returns the server's model catalog, or the single placeholder entry when
// the catalog cannot be read. It never fails.
func (r *Responder) ListModels(ctx context.Context) []models.ModelDescriptor {
	list, err := r.provider.ListModels(ctx)
	if err != nil {
		logger.Component("CATALOG").Warn("model catalog unavailable", "err", err)
		return models.CatalogUnavailable()
	}

	logger.Component("CATALOG").Debug("model catalog fetched", "count", len(list))
	return list
}

// GenerateChatResponse sends [directive] ++ history to the chat endpoint and splits the
// reply. The caller must already have appended the prompt as the final user turn of
// history (see WithPrompt); the responder never appends it.
func (r *Responder) GenerateChatResponse(ctx context.Context, prompt, model string, history []providers.Message) (reasoning.Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return reasoning.Result{}, &GenerationError{Kind: KindInvalidRequest, Err: ErrEmptyPrompt}
	}
	if n := len(history); n == 0 || history[n-1].Role != providers.RoleUser {
		return reasoning.Result{}, &GenerationError{Kind: KindInvalidRequest, Err: ErrPromptNotInHistory}
	}

	req := &providers.ChatRequest{
		Model:    model,
		Messages: r.outbound(history),
		Stream:   false,
	}

	log := logger.Component("CHAT")
	start := time.Now()

	providerReq, err := r.provider.TranslateRequest(ctx, req)
	if err != nil {
		return reasoning.Result{}, &GenerationError{Kind: KindInvalidRequest, Err: err}
	}

	resp, err := r.provider.Execute(ctx, providerReq)
	if err != nil {
		genErr := classify(err)
		log.Error("chat request failed", "model", model, "kind", genErr.Kind, "err", err)
		return reasoning.Result{}, genErr
	}

	if err := providers.CheckStatus(resp); err != nil {
		genErr := classify(err)
		log.Error("chat request rejected", "model", model, "status", resp.StatusCode)
		return reasoning.Result{}, genErr
	}

	chatResp, err := r.provider.TranslateResponse(ctx, resp)
	if err != nil {
		genErr := classify(err)
		log.Error("chat response unreadable", "model", model, "err", err)
		return reasoning.Result{}, genErr
	}

	content, ok := chatResp.Content()
	if !ok {
		log.Warn("chat response had no message content", "model", model)
		content = NoResponseText
	}

	result := reasoning.Split(content)
	log.Debug("chat response",
		"model", model,
		"messages", len(req.Messages),
		"duration", time.Since(start),
		"has_thought", reasoning.HasReasoning(content),
		"eval_count", chatResp.EvalCount,
	)
	return result, nil
}

// outbound prepends the directive. The caller's slice is never modified.
func (r *Responder) outbound(history []providers.Message) []providers.Message {
	messages := make([]providers.Message, 0, len(history)+1)
	messages = append(messages, r.directive.Message())
	for _, msg := range history {
		messages = append(messages, providers.Message{Role: msg.Role, Content: msg.Content})
	}
	return messages
}

// Ping reports whether the inference server is reachable
func (r *Responder) Ping(ctx context.Context) error {
	return r.provider.HealthCheck(ctx)
}
