package vectorindex

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"salescoach/internal/catalog"
	"salescoach/internal/chunker"
	"salescoach/internal/domain"
	"salescoach/internal/embedding"
	"salescoach/internal/embedding/hashing"
)

var products = []domain.Product{
	{ID: 1, Name: "传承金手镯", Series: "传承系列", Craft: "古法手工", Meaning: "代代相传", PriceYuan: 6800, WeightG: 12.5, Description: "经典"},
	{ID: 2, Name: "星动手镯", Series: "星动系列", Craft: "3D硬金", Meaning: "闪耀", PriceYuan: 4200, WeightG: 8, Description: "时尚"},
	{ID: 3, Name: "福运手镯", Series: "福运系列", Craft: "镂空", Meaning: "好运", PriceYuan: 3000, WeightG: 10, Description: "吉祥"},
}

type countingModel struct {
	inner *hashing.Embedder
	calls int32
	fail  bool
}

func (m *countingModel) Name() string { return "counting" }

func (m *countingModel) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.fail {
		return nil, errors.New("model offline")
	}
	return m.inner.Embed(ctx, texts)
}

func newIndex(t *testing.T, path string, source domain.CatalogSource) (*Index, *countingModel) {
	t.Helper()
	m := &countingModel{inner: hashing.NewEmbedder(256)}
	p := embedding.NewProvider(func() (embedding.Model, error) { return m, nil }, 32)
	return New(Config{Path: path}, source, p, chunker.NewCharChunker(200, 20)), m
}

func TestBuildTwiceSkipsSecond(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store", "index.db")
	ix, m := newIndex(t, path, catalog.NewStatic(products))

	status, err := ix.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusCreated, status)
	calls := atomic.LoadInt32(&m.calls)
	require.Equal(t, int32(1), calls)

	status, err = ix.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusSkipped, status)
	require.Equal(t, calls, atomic.LoadInt32(&m.calls))
}

func TestRetrieveWithoutIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ix, m := newIndex(t, path, catalog.NewStatic(products))

	_, err := ix.Retrieve(context.Background(), "手镯", 1)
	require.ErrorIs(t, err, ErrNotBuilt)
	require.False(t, ix.Exists())
	require.Zero(t, atomic.LoadInt32(&m.calls))

	// absence is not cached: once built, the same handle serves queries
	_, err = ix.Build(context.Background())
	require.NoError(t, err)
	docs, err := ix.Retrieve(context.Background(), "传承金手镯", 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, int64(1), docs[0].Metadata.ProductID)
	require.Equal(t, domain.SourceVector, docs[0].Metadata.Source)
	require.Contains(t, docs[0].Content, "传承金手镯")
}

func TestRetrieveLoadsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	builder, _ := newIndex(t, path, catalog.NewStatic(products))
	_, err := builder.Build(context.Background())
	require.NoError(t, err)

	ix, _ := newIndex(t, path, catalog.NewStatic(products))
	_, err = ix.Retrieve(context.Background(), "星动", 2)
	require.NoError(t, err)

	// removing the file after the first load does not affect later queries
	require.NoError(t, os.Remove(path))
	docs, err := ix.Retrieve(context.Background(), "星动", 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, int64(2), docs[0].Metadata.ProductID)
}

func TestCorruptIndexFailsAndIsRemembered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	require.NoError(t, os.WriteFile(path, []byte("not a database at all, just bytes"), 0o644))
	ix, _ := newIndex(t, path, catalog.NewStatic(products))

	_, err := ix.Retrieve(context.Background(), "手镯", 1)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotBuilt)

	_, err2 := ix.Retrieve(context.Background(), "手镯", 1)
	require.Equal(t, err, err2)

	body, err3 := os.ReadFile(path)
	require.NoError(t, err3)
	require.Equal(t, "not a database at all, just bytes", string(body))

	ix.Reset()
	require.NoError(t, os.Remove(path))
	_, err = ix.Retrieve(context.Background(), "手镯", 1)
	require.ErrorIs(t, err, ErrNotBuilt)
}

func TestBuildFailuresLeaveNoIndex(t *testing.T) {
	dir := t.TempDir()

	missing := catalog.NewStore(filepath.Join(dir, "missing.csv"))
	ix, _ := newIndex(t, filepath.Join(dir, "a.db"), missing)
	status, err := ix.Build(context.Background())
	require.Error(t, err)
	require.Equal(t, StatusFailed, status)
	require.False(t, ix.Exists())

	ix, m := newIndex(t, filepath.Join(dir, "b.db"), catalog.NewStatic(products))
	m.fail = true
	status, err = ix.Build(context.Background())
	require.Error(t, err)
	require.Equal(t, StatusFailed, status)
	require.False(t, ix.Exists())
	_, statErr := os.Stat(filepath.Join(dir, "b.db.tmp"))
	require.True(t, os.IsNotExist(statErr))
}

func TestBuildEmbedsSummaryNotDescription(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ix, _ := newIndex(t, path, catalog.NewStatic(products[:1]))
	_, err := ix.Build(context.Background())
	require.NoError(t, err)

	docs, err := ix.Retrieve(context.Background(), "x", 1)
	require.NoError(t, err)
	require.Equal(t, catalog.Summary(products[0]), docs[0].Content)
	require.NotContains(t, docs[0].Content, "经典")
}
