package llm

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("empty model response")

// Options are per-call sampling settings.
type Options struct {
	Temperature float32
	MaxTokens   int
	Stream      bool
}

// TokenFunc receives streamed text deltas. It may be nil.
type TokenFunc func(delta string)

// Client is a blocking text-completion service.
type Client interface {
	Complete(ctx context.Context, prompt string, opts Options, onToken TokenFunc) (string, error)
}

// Normalize is the single place where raw model output becomes reply text.
func Normalize(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Func adapts a function to Client.
type Func func(ctx context.Context, prompt string, opts Options, onToken TokenFunc) (string, error)

func (f Func) Complete(ctx context.Context, prompt string, opts Options, onToken TokenFunc) (string, error) {
	return f(ctx, prompt, opts, onToken)
}
