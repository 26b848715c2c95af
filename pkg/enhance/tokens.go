package enhance

import (
	"strings"

	"github.com/tiktoken-go/tokenizer"
)

// encodingForModel maps OpenAI model names to tiktoken encoding names.
var encodingForModel = map[string]tokenizer.Encoding{
	"gpt-4o":        tokenizer.O200kBase,
	"gpt-4o-mini":   tokenizer.O200kBase,
	"o1":            tokenizer.O200kBase,
	"o1-mini":       tokenizer.O200kBase,
	"o3-mini":       tokenizer.O200kBase,
	"gpt-4-turbo":   tokenizer.Cl100kBase,
	"gpt-4":         tokenizer.Cl100kBase,
	"gpt-3.5-turbo": tokenizer.Cl100kBase,
}

// CountTokens counts prompt tokens for the given model. Models with a known
// tiktoken encoding are counted exactly; everything else, including
// Anthropic models, gets a character-based estimate. Counting never fails:
// this feeds cost metering and prompt-size logging, where an estimate beats
// an error.
func CountTokens(text, model string) int64 {
	enc, ok := encodingForModel[model]
	if !ok {
		return estimateTokens(text)
	}

	codec, err := tokenizer.Get(enc)
	if err != nil {
		return estimateTokens(text)
	}

	ids, _, err := codec.Encode(text)
	if err != nil {
		return estimateTokens(text)
	}
	return int64(len(ids))
}

// estimateTokens approximates with 4 characters per token.
func estimateTokens(text string) int64 {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return 0
	}
	return int64((len(text) + 3) / 4)
}
