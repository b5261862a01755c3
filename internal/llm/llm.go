package llm

import (
	"context"
	"errors"
)

// Client abstracts multimodal model providers that produce imaging reports.
type Client interface {
	AnalyzeImage(ctx context.Context, input ImageInput) (string, error)
}

// ImageInput is a normalized image ready to be sent to a model.
type ImageInput struct {
	FileName string
	MIMEType string
	Data     []byte
}

var (
	// ErrNotImplemented is returned by the placeholder client.
	ErrNotImplemented = errors.New("LLM not implemented")
	// ErrEmptyResponse is returned when the model answers without any text.
	ErrEmptyResponse = errors.New("model returned an empty response")
	// ErrToolLoop is returned when the model keeps calling tools past MaxToolRounds.
	ErrToolLoop = errors.New("model exceeded tool call rounds")
)

// PlaceholderClient is a stub used when no provider is configured.
type PlaceholderClient struct{}

// AnalyzeImage returns ErrNotImplemented.
func (PlaceholderClient) AnalyzeImage(ctx context.Context, input ImageInput) (string, error) {
	_ = ctx
	_ = input
	return "", ErrNotImplemented
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, input ImageInput) (string, error)

func (f ClientFunc) AnalyzeImage(ctx context.Context, input ImageInput) (string, error) {
	return f(ctx, input)
}
