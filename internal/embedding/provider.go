package embedding

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultBatchSize bounds how many texts are sent to the model at once.
const DefaultBatchSize = 32

// Model converts free text into numeric vectors.
type Model interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Factory builds the underlying model. It is expensive and called at most once per successful Provider.
type Factory func() (Model, error)

// Provider exposes document and query embedding over a lazily built model shared by all callers.
type Provider struct {
	factory   Factory
	batchSize int

	mu        sync.Mutex
	model     Model
	dimension int
}

// NewProvider wraps factory; batchSize <= 0 selects DefaultBatchSize.
func NewProvider(factory Factory, batchSize int) *Provider {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Provider{factory: factory, batchSize: batchSize}
}

// Model returns the shared model, building it on first use. A failed build is retried next time.
func (p *Provider) Model() (Model, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model != nil {
		return p.model, nil
	}
	m, err := p.factory()
	if err != nil {
		return nil, errors.Wrap(err, "init embedding model")
	}
	log.Info().Str("model", m.Name()).Int("batch_size", p.batchSize).Msg("embedding model ready")
	p.model = m
	return m, nil
}

// Dimension returns the vector size seen so far, or 0 before the first embedding.
func (p *Provider) Dimension() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dimension
}

// EmbedDocuments embeds texts in fixed-size batches, preserving order.
func (p *Provider) EmbedDocuments(ctx context.Context, texts []string) ([][]float64, error) {
	m, err := p.Model()
	if err != nil {
		return nil, err
	}
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += p.batchSize {
		end := start + p.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vecs, err := m.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, errors.Wrapf(err, "embed batch %d-%d", start, end)
		}
		if len(vecs) != end-start {
			return nil, errors.Errorf("embed batch %d-%d: got %d vectors", start, end, len(vecs))
		}
		for _, v := range vecs {
			if err := p.checkDimension(v); err != nil {
				return nil, err
			}
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// EmbedQuery embeds a single query text.
func (p *Provider) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	vecs, err := p.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// Reset drops the model so the next call rebuilds it.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.model = nil
	p.dimension = 0
}

func (p *Provider) checkDimension(v []float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(v) == 0 {
		return errors.New("empty embedding vector")
	}
	if p.dimension == 0 {
		p.dimension = len(v)
		return nil
	}
	if len(v) != p.dimension {
		return errors.Errorf("embedding dimension changed: %d != %d", len(v), p.dimension)
	}
	return nil
}
