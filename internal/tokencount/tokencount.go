// Package tokencount measures prompt sizes for context budgeting. It
// prefers a real tiktoken encoding and degrades to a character-ratio
// estimate when the encoding cannot be initialized (e.g. offline).
package tokencount

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// defaultEncoding fits the GPT-4 family and is a reasonable proxy for
// budgeting against other providers.
const defaultEncoding = "cl100k_base"

// Counter counts tokens. Safe for concurrent use.
type Counter struct {
	encoding string
	once     sync.Once
	enc      *tiktoken.Tiktoken
	logger   *zap.Logger
}

// NewCounter creates a counter for the default encoding.
func NewCounter(logger *zap.Logger) *Counter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Counter{
		encoding: defaultEncoding,
		logger:   logger.With(zap.String("component", "tokencount")),
	}
}

// Count returns the token count of text. The tiktoken encoding is
// initialized lazily on first use; if that fails the counter logs once and
// estimates for the rest of its life.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}

	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(c.encoding)
		if err != nil {
			c.logger.Warn("tiktoken unavailable, falling back to estimation",
				zap.String("encoding", c.encoding),
				zap.Error(err),
			)
			return
		}
		c.enc = enc
	})

	if c.enc != nil {
		return len(c.enc.Encode(text, nil, nil))
	}
	return Estimate(text)
}

// Estimate approximates the token count from character classes: CJK runs
// about 1.5 chars per token, everything else about 4.
func Estimate(text string) int {
	if text == "" {
		return 0
	}

	totalChars := utf8.RuneCountInString(text)
	cjkCount := 0
	for _, r := range text {
		if isCJK(r) {
			cjkCount++
		}
	}

	cjkTokens := float64(cjkCount) / 1.5
	asciiTokens := float64(totalChars-cjkCount) / 4.0
	estimated := int(cjkTokens + asciiTokens)

	if estimated == 0 {
		estimated = 1
	}
	return estimated
}

// isCJK returns true if the rune is a CJK character.
func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || // CJK Unified Ideographs
		(r >= 0x3400 && r <= 0x4DBF) || // CJK Extension A
		(r >= 0x20000 && r <= 0x2A6DF) || // CJK Extension B
		(r >= 0xF900 && r <= 0xFAFF) || // CJK Compatibility Ideographs
		(r >= 0x3000 && r <= 0x303F) || // CJK Symbols and Punctuation
		(r >= 0xFF00 && r <= 0xFFEF) // Halfwidth and Fullwidth Forms
}
