package tokenizer

import (
	"fmt"
	"os"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"

	"github.com/ressKim-io/stance-classifier/internal/domain/service"
)

var _ service.TokenCounter = (*Tokenizer)(nil)

// Tokenizer splits premises the way the model tokenizer does
type Tokenizer struct {
	tk *tokenizer.Tokenizer
}

// FromFile loads a HuggingFace tokenizer.json
func FromFile(path string) (*Tokenizer, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open tokenizer: %w", err)
	}

	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer %s: %w", path, err)
	}

	return &Tokenizer{tk: tk}, nil
}

// Spans returns the source range of every token, special tokens excluded
func (t *Tokenizer) Spans(text string) ([]service.TokenSpan, error) {
	encoding, err := t.tk.EncodeSingle(text, false)
	if err != nil {
		return nil, fmt.Errorf("failed to encode text: %w", err)
	}

	offsets := encoding.GetOffsets()
	spans := make([]service.TokenSpan, 0, len(offsets))
	for _, offset := range offsets {
		if len(offset) != 2 {
			continue
		}
		spans = append(spans, service.TokenSpan{Start: offset[0], End: offset[1]})
	}

	return spans, nil
}
