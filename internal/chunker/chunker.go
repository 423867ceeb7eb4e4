package chunker

import (
	"strconv"
	"strings"
	"unicode"

	"salescoach/internal/domain"
)

// CharChunker splits text into rune-counted chunks with overlap.
// A chunk prefers to end on whitespace when one falls in its last quarter.
type CharChunker struct {
	size    int
	overlap int
}

// NewCharChunker returns a chunker; size defaults to 200, overlap is clamped below size.
func NewCharChunker(size, overlap int) *CharChunker {
	if size <= 0 {
		size = 200
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 10
	}
	return &CharChunker{size: size, overlap: overlap}
}

// Chunk splits one passage. Empty passages yield no chunks.
func (c *CharChunker) Chunk(passage domain.Passage) ([]domain.Chunk, error) {
	runes := []rune(strings.TrimSpace(passage.Text))
	if len(runes) == 0 {
		return nil, nil
	}
	var chunks []domain.Chunk
	start := 0
	idx := 0
	for start < len(runes) {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		} else if cut := lastSpace(runes[start:end], c.size*3/4); cut > 0 {
			end = start + cut
		}
		text := strings.TrimSpace(string(runes[start:end]))
		if text != "" {
			chunks = append(chunks, domain.Chunk{
				PassageID: passage.ID,
				ChunkID:   passage.ID + ":" + strconv.Itoa(idx),
				ProductID: passage.ProductID,
				Text:      text,
				Index:     idx,
			})
			idx++
		}
		if end == len(runes) {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks, nil
}

// lastSpace returns the index just past the last whitespace at or after min, or 0.
func lastSpace(runes []rune, min int) int {
	for i := len(runes) - 1; i >= min; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return 0
}
