package keyword

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"salescoach/internal/catalog"
	"salescoach/internal/domain"
)

// DefaultCacheSize is the number of distinct (query, k) results kept.
const DefaultCacheSize = 128

// weakMatchTokens is how many leading query tokens the weak match inspects.
const weakMatchTokens = 3

// Vocabulary is the fixed set of catalog terms a query is scored against.
var Vocabulary = []string{"手镯", "黄金", "价格", "克", "折扣", "工艺", "设计", "传承", "星动", "玲珑", "福运"}

type memoKey struct {
	query string
	k     int
}

// Scorer ranks catalog products by vocabulary overlap with the query.
// Results are memoized per exact (query, k).
type Scorer struct {
	catalog domain.CatalogSource
	memo    *lru.Cache[memoKey, []domain.Document]
	fills   singleflight.Group
	scans   atomic.Int64
}

// NewScorer returns a scorer over source; cacheSize <= 0 selects DefaultCacheSize.
func NewScorer(source domain.CatalogSource, cacheSize int) *Scorer {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	memo, err := lru.New[memoKey, []domain.Document](cacheSize)
	if err != nil {
		// only returned for non-positive sizes
		panic(err)
	}
	return &Scorer{catalog: source, memo: memo}
}

// Retrieve returns up to k scored products, or a single sentinel. It never returns an error.
func (s *Scorer) Retrieve(_ context.Context, query string, k int) ([]domain.Document, error) {
	if k < 1 {
		k = 1
	}
	key := memoKey{query: query, k: k}
	if docs, ok := s.memo.Get(key); ok {
		return clone(docs), nil
	}
	v, _, _ := s.fills.Do(strconv.Itoa(k)+"\x00"+query, func() (interface{}, error) {
		if docs, ok := s.memo.Get(key); ok {
			return docs, nil
		}
		docs, cacheable := s.search(query, k)
		if cacheable {
			s.memo.Add(key, docs)
		}
		return docs, nil
	})
	return clone(v.([]domain.Document)), nil
}

func (s *Scorer) search(query string, k int) ([]domain.Document, bool) {
	products, err := s.catalog.Products()
	if err != nil {
		log.Warn().Err(err).Msg("keyword search: catalog unavailable")
		return []domain.Document{domain.Sentinel(domain.CatalogLoadFailed)}, false
	}
	s.scans.Add(1)

	q := strings.ToLower(query)
	var terms []string
	for _, kw := range Vocabulary {
		if strings.Contains(q, kw) {
			terms = append(terms, kw)
		}
	}
	lead := strings.Fields(q)
	if len(lead) > weakMatchTokens {
		lead = lead[:weakMatchTokens]
	}

	type candidate struct {
		product domain.Product
		score   int
	}
	var candidates []candidate
	for _, p := range products {
		hay := catalog.Haystack(p)
		score := 0
		for _, kw := range terms {
			if strings.Contains(hay, kw) {
				score++
			}
		}
		if score > 0 || containsAny(hay, lead) {
			candidates = append(candidates, candidate{product: p, score: score})
		}
	}
	if len(candidates) == 0 {
		return []domain.Document{domain.Sentinel(domain.NoProductInfo)}, true
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	docs := make([]domain.Document, len(candidates))
	for i, c := range candidates {
		docs[i] = domain.Document{
			Content: catalog.Describe(c.product),
			Metadata: domain.Metadata{
				ProductID: c.product.ID,
				Score:     c.score,
				Source:    domain.SourceKeyword,
			},
		}
	}
	return docs, true
}

// Scans returns how many times the catalog has been scanned.
func (s *Scorer) Scans() int64 { return s.scans.Load() }

// Cached returns the number of memoized entries.
func (s *Scorer) Cached() int { return s.memo.Len() }

// Reset empties the memo and the scan counter.
func (s *Scorer) Reset() {
	s.memo.Purge()
	s.scans.Store(0)
}

func containsAny(hay string, words []string) bool {
	for _, w := range words {
		if strings.Contains(hay, w) {
			return true
		}
	}
	return false
}

func clone(docs []domain.Document) []domain.Document {
	return append([]domain.Document(nil), docs...)
}
