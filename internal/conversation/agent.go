package conversation

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"salescoach/internal/domain"
	"salescoach/internal/llm"
	"salescoach/internal/persona"
)

// Mode selects whether replies are grounded in retrieved catalog content.
type Mode int

const (
	Plain Mode = iota
	Augmented
)

func (m Mode) String() string {
	if m == Augmented {
		return "augmented"
	}
	return "plain"
}

// Gateway is the retrieval entry point an augmented agent consults.
type Gateway interface {
	Query(ctx context.Context, query string, k int) []domain.Document
}

// Options tune an agent.
type Options struct {
	LLM          llm.Options
	HistoryLimit int
	RetrievalK   int
}

// DefaultOptions mirrors the default configuration.
func DefaultOptions() Options {
	return Options{
		LLM:          llm.Options{Temperature: 0.7, MaxTokens: 500, Stream: true},
		HistoryLimit: 10,
		RetrievalK:   1,
	}
}

// Agent produces customer replies for one persona.
type Agent struct {
	registry *persona.Registry
	persona  persona.Persona
	mode     Mode
	client   llm.Client
	gateway  Gateway
	opts     Options
}

// NewAgent resolves the persona; an unknown name returns a nil agent.
func NewAgent(registry *persona.Registry, name string, mode Mode, client llm.Client, gateway Gateway, opts Options) (*Agent, error) {
	p, err := registry.Get(name)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.New("agent needs a model client")
	}
	if mode == Augmented && gateway == nil {
		return nil, errors.New("augmented agent needs a retrieval gateway")
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	if opts.RetrievalK <= 0 {
		opts.RetrievalK = 1
	}
	return &Agent{registry: registry, persona: p, mode: mode, client: client, gateway: gateway, opts: opts}, nil
}

// Persona returns the agent's persona.
func (a *Agent) Persona() persona.Persona { return a.persona }

// Mode returns the agent's mode.
func (a *Agent) Mode() Mode { return a.mode }

// Prompt renders the prompt for input given the prior history. history is not modified.
func (a *Agent) Prompt(ctx context.Context, history []domain.Turn, input string) (string, error) {
	if a.mode == Plain {
		return a.registry.Render(a.persona.Name, false, persona.Slots{
			History: domain.RenderTurns(history),
			Input:   input,
		})
	}
	snippet := domain.NoProductInfo
	if docs := a.gateway.Query(ctx, input, a.opts.RetrievalK); len(docs) > 0 {
		snippet = docs[0].Content
		log.Debug().Str("persona", a.persona.Speaker).Int64("product_id", docs[0].Metadata.ProductID).
			Str("source", string(docs[0].Metadata.Source)).Msg("retrieved context")
	}
	return a.registry.Render(a.persona.Name, true, persona.Slots{
		History: domain.RenderTurns(recent(history, a.opts.HistoryLimit)),
		Input:   input,
		Context: snippet,
	})
}

// Reply renders the prompt and asks the model for the customer's next line.
func (a *Agent) Reply(ctx context.Context, history []domain.Turn, input string, onToken llm.TokenFunc) (string, error) {
	prompt, err := a.Prompt(ctx, history, input)
	if err != nil {
		return "", err
	}
	reply, err := a.client.Complete(ctx, prompt, a.opts.LLM, onToken)
	if err != nil {
		return "", errors.Wrapf(err, "%s reply", a.persona.Speaker)
	}
	return reply, nil
}

func recent(turns []domain.Turn, limit int) []domain.Turn {
	if len(turns) <= limit {
		return turns
	}
	return turns[len(turns)-limit:]
}
