package llm

import (
	"context"
)

type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options apply to every request a client sends.
type Options struct {
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
}
