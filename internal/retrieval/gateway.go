package retrieval

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"salescoach/internal/domain"
)

var errNoResults = errors.New("no results")

// Fallback tries Primary and falls through to Secondary on error or an empty result.
type Fallback struct {
	Primary   domain.Retriever
	Secondary domain.Retriever
}

// Retrieve returns the primary result when usable, otherwise the secondary result untouched.
func (f Fallback) Retrieve(ctx context.Context, query string, k int) ([]domain.Document, error) {
	if f.Primary != nil {
		docs, err := f.Primary.Retrieve(ctx, query, k)
		if err == nil && len(docs) > 0 {
			return docs, nil
		}
		if err == nil {
			err = errNoResults
		}
		log.Debug().Err(err).Str("query", query).Msg("primary retriever unavailable, falling back")
	}
	if f.Secondary == nil {
		return nil, errNoResults
	}
	return f.Secondary.Retrieve(ctx, query, k)
}

// Gateway is the single retrieval entry point for the dialogue layer.
type Gateway struct {
	retriever domain.Retriever
}

// NewGateway prefers vector and falls back to keyword.
func NewGateway(vector, keyword domain.Retriever) *Gateway {
	return &Gateway{retriever: Fallback{Primary: vector, Secondary: keyword}}
}

// Query returns between 1 and k documents and never fails; k < 1 is treated as 1.
func (g *Gateway) Query(ctx context.Context, query string, k int) []domain.Document {
	if k < 1 {
		k = 1
	}
	docs, err := g.retriever.Retrieve(ctx, query, k)
	if err != nil || len(docs) == 0 {
		log.Warn().Err(err).Str("query", query).Msg("retrieval failed, returning sentinel")
		return []domain.Document{domain.Sentinel(domain.NoProductInfo)}
	}
	if len(docs) > k {
		docs = docs[:k]
	}
	return docs
}
