package chat

import (
	"context"
	"errors"
	"fmt"
	"net"

	"ollamaui/providers"
)

// ErrorKind classifies a failed generation
type ErrorKind string

const (
	KindInvalidRequest ErrorKind = "invalid_request"
	KindTransport      ErrorKind = "transport"
	KindTimeout        ErrorKind = "timeout"
	KindStatus         ErrorKind = "status"
	KindDecode         ErrorKind = "decode"
)

var (
	ErrEmptyPrompt        = errors.New("prompt is empty")
	ErrPromptNotInHistory = errors.New("history must end with the user's prompt")
)

// GenerationError is returned when no GenerationResult could be produced
type GenerationError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *GenerationError) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("generation failed (%s %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("generation failed (%s): %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// KindOf returns the kind of a generation error, or "" for other errors
func KindOf(err error) ErrorKind {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return ""
}

// classify maps a provider failure to a GenerationError
func classify(err error) *GenerationError {
	var statusErr *providers.StatusError
	if errors.As(err, &statusErr) {
		return &GenerationError{Kind: KindStatus, StatusCode: statusErr.StatusCode, Err: err}
	}

	var decodeErr *providers.DecodeError
	if errors.As(err, &decodeErr) {
		return &GenerationError{Kind: KindDecode, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &GenerationError{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &GenerationError{Kind: KindTimeout, Err: err}
	}

	return &GenerationError{Kind: KindTransport, Err: err}
}
