package service

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Candidate labels and hypothesis used for stance detection
const (
	LabelTakesPosition = "takes a position"
	LabelNoPosition    = "does not take a position"

	StanceHypothesisTemplate = "This tweet {} on a political issue"
)

// StanceLabels is the closed set of labels presented to the model
var StanceLabels = []string{LabelTakesPosition, LabelNoPosition}

// Error definitions for classification
var (
	ErrModelLoad         = errors.New("model load failed")
	ErrDeviceUnavailable = errors.New("compute device unavailable")
	ErrOutOfMemory       = errors.New("compute device out of memory")
	ErrTextTooLong       = errors.New("text exceeds model input length")
	ErrInvalidResult     = errors.New("invalid classification result")
)

// scoreSumTolerance bounds the drift allowed when single-label scores are summed
const scoreSumTolerance = 1e-3

// ZeroShotRequest is one zero-shot classification request
type ZeroShotRequest struct {
	Texts              []string
	CandidateLabels    []string
	HypothesisTemplate HypothesisTemplate
	MultiLabel         bool
}

// NewStanceRequest builds the single-label stance request for the given texts
func NewStanceRequest(texts []string) *ZeroShotRequest {
	return &ZeroShotRequest{
		Texts:              texts,
		CandidateLabels:    StanceLabels,
		HypothesisTemplate: HypothesisTemplate(StanceHypothesisTemplate),
		MultiLabel:         false,
	}
}

// ClassificationResult holds the ranked labels and scores for one text
type ClassificationResult struct {
	Sequence string    `json:"sequence"`
	Labels   []string  `json:"labels"`
	Scores   []float64 `json:"scores"`
}

// Top returns the highest ranked label and its score
func (r *ClassificationResult) Top() (string, float64) {
	if len(r.Labels) == 0 || len(r.Scores) == 0 {
		return "", 0
	}
	return r.Labels[0], r.Scores[0]
}

// Validate checks the result against the candidate labels it was requested with
func (r *ClassificationResult) Validate(candidates []string, multiLabel bool) error {
	if len(r.Labels) != len(candidates) || len(r.Scores) != len(candidates) {
		return fmt.Errorf("%w: got %d labels and %d scores for %d candidates",
			ErrInvalidResult, len(r.Labels), len(r.Scores), len(candidates))
	}

	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		seen[c] = false
	}
	for _, label := range r.Labels {
		used, ok := seen[label]
		if !ok {
			return fmt.Errorf("%w: unexpected label %q", ErrInvalidResult, label)
		}
		if used {
			return fmt.Errorf("%w: duplicate label %q", ErrInvalidResult, label)
		}
		seen[label] = true
	}

	sum := 0.0
	for i, score := range r.Scores {
		if math.IsNaN(score) || score < 0 || score > 1 {
			return fmt.Errorf("%w: score %v out of [0, 1]", ErrInvalidResult, score)
		}
		if i > 0 && score > r.Scores[i-1] {
			return fmt.Errorf("%w: scores are not ranked", ErrInvalidResult)
		}
		sum += score
	}

	if !multiLabel && math.Abs(sum-1) > scoreSumTolerance {
		return fmt.Errorf("%w: single-label scores sum to %v", ErrInvalidResult, sum)
	}

	return nil
}

// Classifier defines the interface for zero-shot text classification
type Classifier interface {
	// Classify returns one result per request text, in request order
	Classify(ctx context.Context, req *ZeroShotRequest) ([]*ClassificationResult, error)
}

// PremisePreparer is implemented by classifiers that rewrite texts, for
// example by truncation, before they reach the model. Prepare returns the
// premises exactly as Classify would send them, so results can be looked
// up by what the model actually saw.
type PremisePreparer interface {
	Prepare(req *ZeroShotRequest) ([]string, error)
}
