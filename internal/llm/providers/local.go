// File path: internal/llm/providers/local.go
package providers

import (
	"context"
	"errors"
)

type Message struct {
	Role    string
	Content string
}

type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Embed(ctx context.Context, input []string) ([][]float32, error)
	Name() string
}

// ErrNotConfigured indicates no generative/embedding credential is present.
var ErrNotConfigured = errors.New("llm provider not configured")

// LocalProvider is the stand-in used when no credential is configured. Every
// capability fails with ErrNotConfigured so callers fall back deterministically.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

func (l *LocalProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	return "", ErrNotConfigured
}

func (l *LocalProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	return nil, ErrNotConfigured
}

func (l *LocalProvider) Name() string {
	return "local"
}
