package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Completer submits a prompt to a text generation service and returns the raw completion.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Supported generation providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// ErrEmptyCompletion is returned when the service answers without any text.
var ErrEmptyCompletion = errors.New("empty completion")

// CompleterOptions configures NewCompleter.
type CompleterOptions struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// NewCompleter returns the Completer for the configured provider.
func NewCompleter(ctx context.Context, opts CompleterOptions) (Completer, error) {
	switch strings.ToLower(opts.Provider) {
	case "", ProviderGemini:
		return NewGeminiCompleter(ctx, opts.APIKey, opts.Model, opts.BaseURL)
	case ProviderOpenAI:
		return NewOpenAICompleter(opts.APIKey, opts.Model, opts.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q: must be %s or %s", opts.Provider, ProviderGemini, ProviderOpenAI)
	}
}
