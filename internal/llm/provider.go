package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ChatProvider is the single capability the decision core needs from a
// language model provider.
type ChatProvider interface {
	Chat(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)
	Available(ctx context.Context) bool
}

// Options parameterise a provider client.
type Options struct {
	BaseURL     string
	APIKey      string
	Temperature float64
	Timeout     time.Duration
}

// NewProvider dispatches on the configured provider name.
func NewProvider(name string, opts Options, logger zerolog.Logger) (ChatProvider, error) {
	switch strings.ToLower(name) {
	case "ollama":
		return NewOllamaClient(opts, logger), nil
	case "openai":
		return NewOpenAIClient(opts, logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", name)
	}
}
