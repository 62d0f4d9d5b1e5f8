// Package tokenizer provides the tiktoken adapter implementing
// ports.Tokenizer. Chunk sizes are counted with the generation model's own
// tokenization scheme so they stay meaningful for context-window budgeting.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE used by the gpt-4o model family.
const DefaultEncoding = "o200k_base"

// TiktokenAdapter implements ports.Tokenizer over a tiktoken encoding.
type TiktokenAdapter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken creates a tokenizer for the named encoding.
func NewTiktoken(encoding string) (*TiktokenAdapter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading encoding %s: %w", encoding, err)
	}
	return &TiktokenAdapter{enc: enc}, nil
}

// Count returns the number of tokens in text.
func (t *TiktokenAdapter) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Encode tokenizes text.
func (t *TiktokenAdapter) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Decode reassembles text from tokens.
func (t *TiktokenAdapter) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}
