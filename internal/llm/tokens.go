package llm

import (
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter estimates prompt size with the cl100k_base encoding.
type TokenCounter struct {
	once  sync.Once
	codec tokenizer.Codec
}

func NewTokenCounter() *TokenCounter { return &TokenCounter{} }

// Count returns the token count, or the rune count if the codec is unavailable.
func (t *TokenCounter) Count(text string) int {
	t.once.Do(func() {
		codec, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			log.Warn().Err(err).Msg("tokenizer unavailable, counting runes")
			return
		}
		t.codec = codec
	})
	if t.codec == nil {
		return utf8.RuneCountInString(text)
	}
	ids, _, err := t.codec.Encode(text)
	if err != nil {
		return utf8.RuneCountInString(text)
	}
	return len(ids)
}
