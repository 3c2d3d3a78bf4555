package ingestion

import (
	"fmt"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// CountTokens reports the total token footprint of the loaded documents
// under the tokenizer of the given model, used to tell users how full
// their context budget is.
func CountTokens(documents []SourceDocument, model string) (int, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0, fmt.Errorf("load tokenizer: %w", err)
		}
	}

	total := 0
	for _, doc := range documents {
		total += len(enc.Encode(doc.Content, nil, nil))
	}
	return total, nil
}

// ContextUsagePercent converts a token count into the share of the model
// context budget it occupies, capped at 100.
func ContextUsagePercent(tokens, maxTokens int) float64 {
	if maxTokens <= 0 {
		return 0
	}
	percent := float64(tokens) / float64(maxTokens) * 100
	if percent > 100 {
		return 100
	}
	return percent
}
