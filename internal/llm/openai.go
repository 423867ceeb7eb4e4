package llm

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	goopenai "github.com/sashabaranov/go-openai"

	"salescoach/internal/backoff"
)

// OpenAIConfig configures an OpenAI-compatible chat endpoint such as DeepSeek.
type OpenAIConfig struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// OpenAIClient talks to a chat completions endpoint.
type OpenAIClient struct {
	api        *goopenai.Client
	model      string
	maxRetries int
	tokens     *TokenCounter
	sleep      func(time.Duration)
}

// NewOpenAIClient reads the API key from the configured environment variable.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, errors.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	return newOpenAIClient(cfg, key), nil
}

func newOpenAIClient(cfg OpenAIConfig, key string) *OpenAIClient {
	oc := goopenai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	oc.HTTPClient = &http.Client{Timeout: t}
	return &OpenAIClient{
		api:        goopenai.NewClientWithConfig(oc),
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		tokens:     NewTokenCounter(),
		sleep:      time.Sleep,
	}
}

// Complete sends prompt as a single user message.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, opts Options, onToken TokenFunc) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    []goopenai.ChatCompletionMessage{{Role: goopenai.ChatMessageRoleUser, Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      opts.Stream,
	}
	log.Debug().Str("model", c.model).Int("prompt_tokens", c.tokens.Count(prompt)).Bool("stream", opts.Stream).Msg("model call")

	for attempt := 0; ; attempt++ {
		var (
			raw string
			err error
		)
		if opts.Stream {
			raw, err = c.stream(ctx, req, onToken)
		} else {
			raw, err = c.once(ctx, req)
		}
		if err == nil {
			return Normalize(raw)
		}
		if attempt >= c.maxRetries || !backoff.Retryable(err) || ctx.Err() != nil {
			return "", errors.Wrap(err, "model call failed")
		}
		d := backoff.Delay(attempt)
		log.Warn().Err(err).Int("attempt", attempt+1).Dur("backoff", d).Msg("model call failed, retrying")
		c.sleep(d)
	}
}

func (c *OpenAIClient) once(ctx context.Context, req goopenai.ChatCompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) stream(ctx context.Context, req goopenai.ChatCompletionRequest, onToken TokenFunc) (string, error) {
	stream, err := c.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()
	var b strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return "", errors.Wrap(err, "read stream")
		}
		for _, ch := range resp.Choices {
			if ch.Delta.Content == "" {
				continue
			}
			b.WriteString(ch.Delta.Content)
			if onToken != nil {
				onToken(ch.Delta.Content)
			}
		}
	}
}
