package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"negotiation-agent/internal/domain/ports/adapter"
)

const fallbackEncoding = "cl100k_base"

// TokenCounter counts prompt tokens with tiktoken. Encodings are loaded
// lazily; when none can be loaded it estimates four bytes per token.
type TokenCounter struct {
	mu   sync.Mutex
	encs map[string]*tiktoken.Tiktoken
}

func NewTokenCounter() *TokenCounter {
	return &TokenCounter{encs: make(map[string]*tiktoken.Tiktoken)}
}

func (c *TokenCounter) encoding(model string) *tiktoken.Tiktoken {
	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encs[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
	}
	if err != nil {
		enc = nil
	}
	c.encs[model] = enc
	return enc
}

func (c *TokenCounter) Count(model, text string) int {
	if c == nil {
		return estimateTokens(text)
	}
	if enc := c.encoding(model); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return estimateTokens(text)
}

// CountMessages follows the chat format overhead of ~4 tokens per message.
func (c *TokenCounter) CountMessages(model string, msgs []adapter.Message) int {
	n := 3
	for _, m := range msgs {
		n += 4 + c.Count(model, m.Content)
	}
	return n
}

func estimateTokens(text string) int {
	return (len(text) + 3) / 4
}
