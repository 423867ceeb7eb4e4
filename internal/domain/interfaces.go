package domain

import "context"

// Passage is a unit of catalog text handed to the chunker.
type Passage struct {
	ID        string
	ProductID int64
	Text      string
}

// Chunk is a bounded slice of a passage used for vector indexing.
type Chunk struct {
	PassageID string
	ChunkID   string
	ProductID int64
	Text      string
	Index     int
}

// SearchResult represents a matching chunk with a similarity score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Chunker splits passages into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(passage Passage) ([]Chunk, error)
}

// Retriever returns up to k documents relevant to query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Document, error)
}

// CatalogSource provides the product table.
type CatalogSource interface {
	Products() ([]Product, error)
}
