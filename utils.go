package main

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"

	"ollamaui/logger"
)

// generateSignature creates a hash signature for content
// Used for correlating requests in telemetry without logging their text
func generateSignature(content string) string {
	hash := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", hash)[:16] // First 16 chars of hash
}

// generateRequestID returns a fresh request identifier
func generateRequestID() string {
	return uuid.NewString()
}

// RequestTelemetry holds per-request data logged when the request finishes
type RequestTelemetry struct {
	RequestID    string
	Front        string
	Method       string
	Path         string
	RemoteAddr   string
	Model        string
	InputHash    string
	OutputHash   string
	InputTokens  int
	OutputTokens int
	ErrorKind    string
	Status       int
	StartTime    time.Time
	Duration     time.Duration
}

func newTelemetry(front, remoteAddr string) *RequestTelemetry {
	return &RequestTelemetry{
		RequestID:  generateRequestID(),
		Front:      front,
		RemoteAddr: remoteAddr,
		StartTime:  time.Now(),
	}
}

// Finish records the duration and logs the request
func (t *RequestTelemetry) Finish() {
	t.Duration = time.Since(t.StartTime)

	keyvals := []interface{}{
		"request_id", t.RequestID,
		"remote", t.RemoteAddr,
		"duration", t.Duration,
	}
	if t.Method != "" {
		keyvals = append(keyvals, "method", t.Method, "path", t.Path, "status", t.Status)
	}
	if t.Model != "" {
		keyvals = append(keyvals, "model", t.Model, "input", t.InputHash, "output", t.OutputHash)
	}
	if t.InputTokens > 0 || t.OutputTokens > 0 {
		keyvals = append(keyvals, "input_tokens", t.InputTokens, "output_tokens", t.OutputTokens)
	}
	if t.ErrorKind != "" {
		keyvals = append(keyvals, "error_kind", t.ErrorKind)
		logger.Component(t.Front).Warn("request failed", keyvals...)
		return
	}
	logger.Component(t.Front).Info("request complete", keyvals...)
}

// TokenCounter estimates token counts for telemetry. The BPE tables are loaded on first
// use; if they cannot be loaded the estimate falls back to four bytes per token.
type TokenCounter struct {
	enabled bool
	once    sync.Once
	enc     *tiktoken.Tiktoken
}

// NewTokenCounter returns a counter; a disabled counter always reports zero
func NewTokenCounter(enabled bool) *TokenCounter {
	return &TokenCounter{enabled: enabled}
}

// Count returns the estimated number of tokens in text
func (c *TokenCounter) Count(text string) int {
	if c == nil || !c.enabled || text == "" {
		return 0
	}

	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			logger.Warn("token encoding unavailable, using length estimate", "err", err)
			return
		}
		c.enc = enc
	})

	if c.enc == nil {
		return (len(text) + 3) / 4
	}
	return len(c.enc.Encode(text, nil, nil))
}
