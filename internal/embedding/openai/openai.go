package openai

import (
	"context"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	goopenai "github.com/sashabaranov/go-openai"

	"salescoach/internal/backoff"
)

// Client is an OpenAI-compatible embeddings client.
type Client struct {
	api        *goopenai.Client
	model      string
	maxRetries int
	sleep      func(time.Duration)
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, errors.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	return newClient(cfg, key), nil
}

func newClient(cfg Config, key string) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	oc := goopenai.DefaultConfig(key)
	oc.BaseURL = cfg.BaseURL
	oc.HTTPClient = &http.Client{Timeout: t}
	return &Client{
		api:        goopenai.NewClientWithConfig(oc),
		model:      cfg.Model,
		maxRetries: 5,
		sleep:      time.Sleep,
	}
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai:" + c.model }

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	req := goopenai.EmbeddingRequest{
		Input: texts,
		Model: goopenai.EmbeddingModel(c.model),
	}
	for attempt := 0; ; attempt++ {
		resp, err := c.api.CreateEmbeddings(ctx, req)
		if err == nil {
			return toVectors(resp, len(texts))
		}
		if attempt >= c.maxRetries || !backoff.Retryable(err) || ctx.Err() != nil {
			return nil, errors.Wrap(err, "openai embeddings failed")
		}
		d := backoff.Delay(attempt)
		log.Warn().Err(err).Int("attempt", attempt+1).Dur("backoff", d).Msg("embedding request failed, retrying")
		c.sleep(d)
	}
}

func toVectors(resp goopenai.EmbeddingResponse, want int) ([][]float64, error) {
	if len(resp.Data) != want {
		return nil, errors.Errorf("no embedding returned: got %d of %d", len(resp.Data), want)
	}
	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float64, len(data))
	for i, d := range data {
		if len(d.Embedding) == 0 {
			return nil, errors.Errorf("empty embedding at index %d", d.Index)
		}
		v := make([]float64, len(d.Embedding))
		for j, x := range d.Embedding {
			v[j] = float64(x)
		}
		out[i] = v
	}
	return out, nil
}
