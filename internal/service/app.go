package service

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"salescoach/internal/catalog"
	"salescoach/internal/chunker"
	"salescoach/internal/config"
	"salescoach/internal/conversation"
	"salescoach/internal/embedding"
	"salescoach/internal/embedding/hashing"
	"salescoach/internal/embedding/openai"
	"salescoach/internal/evaluation"
	"salescoach/internal/keyword"
	"salescoach/internal/llm"
	"salescoach/internal/persona"
	"salescoach/internal/reports"
	"salescoach/internal/retrieval"
	"salescoach/internal/vectorindex"
)

// Option customizes an App.
type Option func(*App)

// WithLLM replaces the configured chat model client.
func WithLLM(c llm.Client) Option {
	return func(a *App) { a.llmOverride = c }
}

// WithEmbeddingModel replaces the configured embedding model.
func WithEmbeddingModel(m embedding.Model) Option {
	return func(a *App) { a.embedOverride = m }
}

// WithCatalog replaces the catalog source.
func WithCatalog(s *catalog.Store) Option {
	return func(a *App) { a.catalogOverride = s }
}

// App owns every shared component. Each is built on first use and then reused
// until Reset.
type App struct {
	cfg *config.AppConfig

	llmOverride     llm.Client
	embedOverride   embedding.Model
	catalogOverride *catalog.Store

	mu         sync.Mutex
	catalog    *catalog.Store
	embeddings *embedding.Provider
	index      *vectorindex.Index
	keyword    *keyword.Scorer
	gateway    *retrieval.Gateway
	personas   *persona.Registry
	client     llm.Client
	evaluator  *evaluation.Engine
	reports    *reports.Store
}

// New returns an App for cfg. Nothing is loaded until first use.
func New(cfg *config.AppConfig, opts ...Option) *App {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Config returns the configuration the App was built with.
func (a *App) Config() *config.AppConfig { return a.cfg }

// Catalog returns the product catalog.
func (a *App) Catalog() *catalog.Store {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.catalogLocked()
}

func (a *App) catalogLocked() *catalog.Store {
	if a.catalog == nil {
		if a.catalogOverride != nil {
			a.catalog = a.catalogOverride
		} else {
			a.catalog = catalog.NewStore(a.cfg.Catalog.Path)
		}
	}
	return a.catalog
}

// Embeddings returns the shared embedding provider.
func (a *App) Embeddings() *embedding.Provider {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.embeddingsLocked()
}

func (a *App) embeddingsLocked() *embedding.Provider {
	if a.embeddings == nil {
		a.embeddings = embedding.NewProvider(a.embeddingFactory(), a.cfg.Embedder.BatchSize)
	}
	return a.embeddings
}

func (a *App) embeddingFactory() embedding.Factory {
	if a.embedOverride != nil {
		m := a.embedOverride
		return func() (embedding.Model, error) { return m, nil }
	}
	ec := a.cfg.Embedder
	switch ec.Type {
	case "hashing", "":
		dim := 0
		if ec.Hashing != nil {
			dim = ec.Hashing.Dimension
		}
		return func() (embedding.Model, error) { return hashing.NewEmbedder(dim), nil }
	case "openai":
		return func() (embedding.Model, error) {
			if ec.OpenAI == nil {
				return nil, errors.New("openai embedder config missing")
			}
			return openai.NewClient(openai.Config{
				BaseURL:   ec.OpenAI.BaseURL,
				APIKeyEnv: ec.OpenAI.APIKeyEnv,
				Model:     ec.OpenAI.Model,
				Timeout:   time.Duration(ec.OpenAI.TimeoutSecs) * time.Second,
			})
		}
	default:
		return func() (embedding.Model, error) {
			return nil, errors.Errorf("unknown embedder: %s", ec.Type)
		}
	}
}

// Index returns the persisted vector index.
func (a *App) Index() *vectorindex.Index {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.indexLocked()
}

func (a *App) indexLocked() *vectorindex.Index {
	if a.index == nil {
		vc := a.cfg.VectorIndex
		a.index = vectorindex.New(
			vectorindex.Config{Path: vc.Path},
			a.catalogLocked(),
			a.embeddingsLocked(),
			chunker.NewCharChunker(vc.ChunkSize, vc.ChunkOverlap),
		)
	}
	return a.index
}

// Keyword returns the memoized keyword scorer.
func (a *App) Keyword() *keyword.Scorer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.keywordLocked()
}

func (a *App) keywordLocked() *keyword.Scorer {
	if a.keyword == nil {
		a.keyword = keyword.NewScorer(a.catalogLocked(), a.cfg.Retrieval.KeywordCacheSize)
	}
	return a.keyword
}

// Gateway returns the retrieval gateway: vector index first, keyword fallback.
func (a *App) Gateway() *retrieval.Gateway {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gateway == nil {
		a.gateway = retrieval.NewGateway(a.indexLocked(), a.keywordLocked())
	}
	return a.gateway
}

// Personas returns the built-in persona registry.
func (a *App) Personas() *persona.Registry {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.personas == nil {
		a.personas = persona.Default()
	}
	return a.personas
}

// LLM returns the chat model client. A failed construction is retried on the next call.
func (a *App) LLM() (llm.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.llmLocked()
}

func (a *App) llmLocked() (llm.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	if a.llmOverride != nil {
		a.client = a.llmOverride
		return a.client, nil
	}
	lc := a.cfg.LLM
	c, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		BaseURL:    lc.BaseURL,
		APIKeyEnv:  lc.APIKeyEnv,
		Model:      lc.Model,
		Timeout:    time.Duration(lc.TimeoutSecs) * time.Second,
		MaxRetries: lc.MaxRetries,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init chat model")
	}
	log.Info().Str("model", lc.Model).Str("base_url", lc.BaseURL).Msg("chat model ready")
	a.client = c
	return c, nil
}

// Evaluator returns the shared evaluation engine.
func (a *App) Evaluator() *evaluation.Engine {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.evaluator == nil {
		opts := llm.Options{
			Temperature: a.cfg.Evaluation.Temperature,
			MaxTokens:   a.cfg.Evaluation.MaxTokens,
			Stream:      a.cfg.LLM.Stream,
		}
		a.evaluator = evaluation.NewEngine(a.LLM, opts)
	}
	return a.evaluator
}

// Reports returns the report store, creating its directory on first use.
func (a *App) Reports() (*reports.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.reports == nil {
		s, err := reports.NewStore(a.cfg.Reports.Dir)
		if err != nil {
			return nil, err
		}
		a.reports = s
	}
	return a.reports, nil
}

// ConversationOptions derives agent options from the configuration.
func (a *App) ConversationOptions() conversation.Options {
	return conversation.Options{
		LLM: llm.Options{
			Temperature: a.cfg.LLM.Temperature,
			MaxTokens:   a.cfg.LLM.MaxTokens,
			Stream:      a.cfg.LLM.Stream,
		},
		HistoryLimit: a.cfg.Conversation.HistoryLimit,
		RetrievalK:   a.cfg.Retrieval.AugmentedK,
	}
}

// NewSession creates an agent for the named persona and an empty session around it.
func (a *App) NewSession(name string, augmented bool) (*conversation.Session, error) {
	client, err := a.LLM()
	if err != nil {
		return nil, err
	}
	mode := conversation.Plain
	var gw conversation.Gateway
	if augmented {
		mode = conversation.Augmented
		gw = a.Gateway()
	}
	agent, err := conversation.NewAgent(a.Personas(), name, mode, client, gw, a.ConversationOptions())
	if err != nil {
		return nil, err
	}
	return conversation.NewSession(agent), nil
}

// BuildIndex builds the vector index unless it is already on disk.
func (a *App) BuildIndex(ctx context.Context) (vectorindex.BuildStatus, error) {
	return a.Index().Build(ctx)
}

// Evaluate scores the session and saves the result as a report.
func (a *App) Evaluate(ctx context.Context, s *conversation.Session, onToken llm.TokenFunc) (reports.Report, error) {
	transcript := s.Transcript()
	text, err := a.Evaluator().Evaluate(ctx, transcript, onToken)
	if err != nil {
		return reports.Report{}, err
	}
	store, err := a.Reports()
	if err != nil {
		return reports.Report{}, err
	}
	return store.Save(s.Agent().Persona().Name, text, transcript)
}

// SaveConversation writes the session's raw transcript next to the reports.
func (a *App) SaveConversation(s *conversation.Session) (string, error) {
	store, err := a.Reports()
	if err != nil {
		return "", err
	}
	return store.SaveConversation(s.Agent().Persona().Name, s.Transcript())
}

// Reset drops every cached component so the next access rebuilds it.
func (a *App) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.index != nil {
		a.index.Reset()
	}
	if a.keyword != nil {
		a.keyword.Reset()
	}
	if a.embeddings != nil {
		a.embeddings.Reset()
	}
	if a.evaluator != nil {
		a.evaluator.Reset()
	}
	a.catalog = nil
	a.embeddings = nil
	a.index = nil
	a.keyword = nil
	a.gateway = nil
	a.personas = nil
	a.client = nil
	a.evaluator = nil
	a.reports = nil
}
