package service

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTemplate is returned for templates without exactly one slot
var ErrInvalidTemplate = errors.New("invalid hypothesis template")

// TemplateSlot is the placeholder replaced by each candidate label
const TemplateSlot = "{}"

// HypothesisTemplate is a sentence pattern with one label slot
type HypothesisTemplate string

// Validate checks that the template has exactly one slot
func (h HypothesisTemplate) Validate() error {
	n := strings.Count(string(h), TemplateSlot)
	if n != 1 {
		return fmt.Errorf("%w: %q has %d slots, want 1", ErrInvalidTemplate, string(h), n)
	}
	return nil
}

// Hypothesis fills the slot with a label
func (h HypothesisTemplate) Hypothesis(label string) string {
	return strings.Replace(string(h), TemplateSlot, label, 1)
}

// String returns the raw template
func (h HypothesisTemplate) String() string {
	return string(h)
}
