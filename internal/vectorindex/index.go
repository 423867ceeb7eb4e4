package vectorindex

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"salescoach/internal/catalog"
	"salescoach/internal/domain"
	"salescoach/internal/vectorstore/memory"
	"salescoach/internal/vectorstore/sqlite"
)

// ErrNotBuilt is returned by Retrieve when no persisted index exists yet.
var ErrNotBuilt = errors.New("vector index not built")

// BuildStatus reports the outcome of Build.
type BuildStatus int

const (
	StatusFailed BuildStatus = iota
	StatusCreated
	StatusSkipped
)

func (s BuildStatus) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Embedder is the subset of the embedding provider the index needs.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float64, error)
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
}

// Config locates the persisted index.
type Config struct {
	Path string
}

// Index builds the persisted catalog index once and serves similarity lookups from memory.
type Index struct {
	cfg      Config
	catalog  domain.CatalogSource
	embedder Embedder
	chunker  domain.Chunker

	mu      sync.Mutex
	store   *memory.Storage
	loadErr error
}

// New wires an index. The embedder is only touched when building or querying.
func New(cfg Config, source domain.CatalogSource, embedder Embedder, chunker domain.Chunker) *Index {
	return &Index{cfg: cfg, catalog: source, embedder: embedder, chunker: chunker}
}

// Path returns the configured index location.
func (ix *Index) Path() string { return ix.cfg.Path }

// Exists reports whether a persisted index is present.
func (ix *Index) Exists() bool {
	_, err := os.Stat(ix.cfg.Path)
	return err == nil
}

// Build creates the persisted index unless one already exists. It never overwrites.
func (ix *Index) Build(ctx context.Context) (BuildStatus, error) {
	if ix.Exists() {
		log.Info().Str("path", ix.cfg.Path).Msg("vector index exists, skipping build")
		return StatusSkipped, nil
	}
	start := time.Now()
	n, err := ix.build(ctx)
	if err != nil {
		log.Error().Err(err).Str("path", ix.cfg.Path).Msg("vector index build failed")
		return StatusFailed, err
	}
	log.Info().Str("path", ix.cfg.Path).Int("chunks", n).Dur("elapsed", time.Since(start)).Msg("vector index saved")
	return StatusCreated, nil
}

func (ix *Index) build(ctx context.Context) (int, error) {
	products, err := ix.catalog.Products()
	if err != nil {
		return 0, errors.Wrap(err, "load catalog")
	}
	var chunks []domain.Chunk
	for _, p := range products {
		cs, err := ix.chunker.Chunk(domain.Passage{
			ID:        strconv.FormatInt(p.ID, 10),
			ProductID: p.ID,
			Text:      catalog.Summary(p),
		})
		if err != nil {
			return 0, errors.Wrapf(err, "chunk product %d", p.ID)
		}
		chunks = append(chunks, cs...)
	}
	if len(chunks) == 0 {
		return 0, errors.New("catalog produced no chunks")
	}
	log.Debug().Int("products", len(products)).Int("chunks", len(chunks)).Msg("embedding catalog")

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := ix.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, errors.Wrap(err, "embed chunks")
	}

	if err := os.MkdirAll(filepath.Dir(ix.cfg.Path), 0o755); err != nil {
		return 0, errors.Wrap(err, "create index dir")
	}
	tmp := ix.cfg.Path + ".tmp"
	_ = os.Remove(tmp)
	if err := writeIndex(tmp, chunks, vectors); err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, ix.cfg.Path); err != nil {
		_ = os.Remove(tmp)
		return 0, errors.Wrap(err, "publish index")
	}
	return len(chunks), nil
}

func writeIndex(path string, chunks []domain.Chunk, vectors [][]float64) error {
	st, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Init(len(vectors[0])); err != nil {
		return err
	}
	return st.Upsert(chunks, vectors)
}

// Retrieve returns the k chunks most similar to query.
// Without a persisted index it returns ErrNotBuilt and does not build one.
func (ix *Index) Retrieve(ctx context.Context, query string, k int) ([]domain.Document, error) {
	store, err := ix.loaded()
	if err != nil {
		return nil, err
	}
	vec, err := ix.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "embed query")
	}
	results, err := store.Search(vec, k)
	if err != nil {
		return nil, errors.Wrap(err, "search index")
	}
	docs := make([]domain.Document, 0, len(results))
	for _, r := range results {
		docs = append(docs, domain.Document{
			Content: r.Chunk.Text,
			Metadata: domain.Metadata{
				ProductID:  r.Chunk.ProductID,
				Similarity: r.Score,
				Source:     domain.SourceVector,
			},
		})
	}
	return docs, nil
}

// loaded returns the in-memory index, loading it on first use.
// Absence is rechecked on every call; a failed load is remembered.
func (ix *Index) loaded() (*memory.Storage, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.store != nil {
		return ix.store, nil
	}
	if ix.loadErr != nil {
		return nil, ix.loadErr
	}
	if !ix.Exists() {
		return nil, ErrNotBuilt
	}
	log.Info().Str("path", ix.cfg.Path).Msg("loading vector index")
	store, err := load(ix.cfg.Path)
	if err != nil {
		ix.loadErr = errors.Wrap(err, "load vector index")
		log.Warn().Err(err).Str("path", ix.cfg.Path).Msg("vector index unusable")
		return nil, ix.loadErr
	}
	ix.store = store
	return store, nil
}

func load(path string) (*memory.Storage, error) {
	st, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	mem := memory.NewStorage()
	if err := st.LoadInto(mem); err != nil {
		return nil, err
	}
	return mem, nil
}

// Reset forgets the loaded index and any remembered load failure.
func (ix *Index) Reset() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.store = nil
	ix.loadErr = nil
}
