package retrieval

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"salescoach/internal/catalog"
	"salescoach/internal/chunker"
	"salescoach/internal/domain"
	"salescoach/internal/embedding"
	"salescoach/internal/embedding/hashing"
	"salescoach/internal/keyword"
	"salescoach/internal/vectorindex"
)

type stubRetriever struct {
	docs  []domain.Document
	err   error
	calls int
}

func (s *stubRetriever) Retrieve(_ context.Context, _ string, _ int) ([]domain.Document, error) {
	s.calls++
	return s.docs, s.err
}

func doc(id int64) domain.Document {
	return domain.Document{Content: fmt.Sprintf("product %d", id), Metadata: domain.Metadata{ProductID: id}}
}

func TestFallbackPrefersPrimary(t *testing.T) {
	primary := &stubRetriever{docs: []domain.Document{doc(1)}}
	secondary := &stubRetriever{docs: []domain.Document{doc(2)}}
	docs, err := Fallback{Primary: primary, Secondary: secondary}.Retrieve(context.Background(), "q", 1)
	require.NoError(t, err)
	require.Equal(t, []domain.Document{doc(1)}, docs)
	require.Zero(t, secondary.calls)
}

func TestFallbackOnErrorOrEmpty(t *testing.T) {
	secondary := &stubRetriever{docs: []domain.Document{doc(2)}}
	for _, primary := range []*stubRetriever{{err: errors.New("boom")}, {}} {
		docs, err := Fallback{Primary: primary, Secondary: secondary}.Retrieve(context.Background(), "q", 1)
		require.NoError(t, err)
		require.Equal(t, []domain.Document{doc(2)}, docs)
	}
}

func TestGatewayNeverFails(t *testing.T) {
	broken := &stubRetriever{err: errors.New("down")}
	g := NewGateway(broken, broken)
	docs := g.Query(context.Background(), "q", 3)
	require.Equal(t, []domain.Document{domain.Sentinel(domain.NoProductInfo)}, docs)

	g = NewGateway(nil, &stubRetriever{})
	require.Len(t, g.Query(context.Background(), "q", 3), 1)
}

func TestGatewayBoundsResultLength(t *testing.T) {
	many := &stubRetriever{docs: []domain.Document{doc(1), doc(2), doc(3), doc(4)}}
	g := NewGateway(many, nil)
	for k := -1; k <= 6; k++ {
		docs := g.Query(context.Background(), "q", k)
		want := k
		if want < 1 {
			want = 1
		}
		if want > 4 {
			want = 4
		}
		require.Len(t, docs, want, "k=%d", k)
	}
}

var products = []domain.Product{
	{ID: 1, Name: "传承金手镯", Series: "传承系列", Craft: "古法手工", Meaning: "代代相传", PriceYuan: 6800, WeightG: 12.5, Description: "经典"},
	{ID: 2, Name: "星动手镯", Series: "星动系列", Craft: "3D硬金", Meaning: "闪耀", PriceYuan: 4200, WeightG: 8, Description: "时尚设计"},
	{ID: 3, Name: "福运手镯", Series: "福运系列", Craft: "镂空", Meaning: "好运", PriceYuan: 3000, WeightG: 10, Description: "吉祥"},
}

func newTiers(t *testing.T) (*vectorindex.Index, *keyword.Scorer) {
	t.Helper()
	source := catalog.NewStatic(products)
	p := embedding.NewProvider(func() (embedding.Model, error) { return hashing.NewEmbedder(128), nil }, 0)
	ix := vectorindex.New(vectorindex.Config{Path: filepath.Join(t.TempDir(), "index.db")}, source, p, chunker.NewCharChunker(200, 20))
	return ix, keyword.NewScorer(source, 0)
}

func TestGatewayMatchesKeywordWithoutIndex(t *testing.T) {
	ix, kw := newTiers(t)
	g := NewGateway(ix, keyword.NewScorer(catalog.NewStatic(products), 0))
	for _, q := range []string{"手镯多少钱", "星动 设计", "zzz", "福运", ""} {
		for _, k := range []int{1, 2, 5} {
			want, err := kw.Retrieve(context.Background(), q, k)
			require.NoError(t, err)
			require.Equal(t, want, g.Query(context.Background(), q, k), "q=%q k=%d", q, k)
		}
	}
}

func TestGatewayUsesVectorIndexWhenBuilt(t *testing.T) {
	ix, kw := newTiers(t)
	_, err := ix.Build(context.Background())
	require.NoError(t, err)

	g := NewGateway(ix, kw)
	for k := 1; k <= 4; k++ {
		docs := g.Query(context.Background(), "星动手镯", k)
		require.NotEmpty(t, docs)
		require.LessOrEqual(t, len(docs), k)
		require.Equal(t, domain.SourceVector, docs[0].Metadata.Source)
	}
	require.Equal(t, int64(2), g.Query(context.Background(), "星动手镯", 1)[0].Metadata.ProductID)
	require.Zero(t, kw.Scans())
}
