package service

import (
	"fmt"
	"unicode/utf8"
)

// TruncationPolicy decides what happens to texts longer than the model input
type TruncationPolicy string

const (
	// TruncationTruncate cuts the text after the last token that fits
	TruncationTruncate TruncationPolicy = "truncate"
	// TruncationReject fails the run with ErrTextTooLong
	TruncationReject TruncationPolicy = "reject"
)

// ParseTruncationPolicy parses a policy name
func ParseTruncationPolicy(s string) (TruncationPolicy, error) {
	switch p := TruncationPolicy(s); p {
	case TruncationTruncate, TruncationReject:
		return p, nil
	default:
		return "", fmt.Errorf("unknown truncation policy %q", s)
	}
}

// TokenSpan is the byte range of one token in the source text
type TokenSpan struct {
	Start int
	End   int
}

// TokenCounter splits text into model tokens
type TokenCounter interface {
	Spans(text string) ([]TokenSpan, error)
}

// ApplyTruncation enforces the token budget for one text.
// A nil counter or a non-positive budget disables the local check.
func ApplyTruncation(policy TruncationPolicy, counter TokenCounter, text string, maxTokens int) (string, error) {
	if counter == nil || maxTokens <= 0 {
		return text, nil
	}

	spans, err := counter.Spans(text)
	if err != nil {
		return "", fmt.Errorf("failed to tokenize text: %w", err)
	}
	if len(spans) <= maxTokens {
		return text, nil
	}

	if policy == TruncationReject {
		return "", fmt.Errorf("%w: %d tokens, limit %d", ErrTextTooLong, len(spans), maxTokens)
	}

	end := spans[maxTokens-1].End
	if end > len(text) {
		end = len(text)
	}
	for end > 0 && end < len(text) && !utf8.RuneStart(text[end]) {
		end--
	}
	return text[:end], nil
}
