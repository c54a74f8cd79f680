package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassificationResult_Top(t *testing.T) {
	t.Run("returns first label and score", func(t *testing.T) {
		r := &ClassificationResult{
			Labels: []string{LabelTakesPosition, LabelNoPosition},
			Scores: []float64{0.9, 0.1},
		}

		label, score := r.Top()

		assert.Equal(t, LabelTakesPosition, label)
		assert.Equal(t, 0.9, score)
	})

	t.Run("empty result", func(t *testing.T) {
		label, score := (&ClassificationResult{}).Top()

		assert.Empty(t, label)
		assert.Zero(t, score)
	})
}

func TestClassificationResult_Validate(t *testing.T) {
	tests := []struct {
		name       string
		labels     []string
		scores     []float64
		multiLabel bool
		wantErr    bool
	}{
		{"valid single label", []string{LabelTakesPosition, LabelNoPosition}, []float64{0.9, 0.1}, false, false},
		{"valid reversed order", []string{LabelNoPosition, LabelTakesPosition}, []float64{0.7, 0.3}, false, false},
		{"sum within tolerance", []string{LabelTakesPosition, LabelNoPosition}, []float64{0.9004, 0.1}, false, false},
		{"too few labels", []string{LabelTakesPosition}, []float64{1}, false, true},
		{"unknown label", []string{LabelTakesPosition, "neutral"}, []float64{0.9, 0.1}, false, true},
		{"duplicate label", []string{LabelTakesPosition, LabelTakesPosition}, []float64{0.5, 0.5}, false, true},
		{"score above one", []string{LabelTakesPosition, LabelNoPosition}, []float64{1.2, -0.2}, false, true},
		{"not ranked", []string{LabelTakesPosition, LabelNoPosition}, []float64{0.1, 0.9}, false, true},
		{"single label sum off", []string{LabelTakesPosition, LabelNoPosition}, []float64{0.6, 0.2}, false, true},
		{"multi label sum free", []string{LabelTakesPosition, LabelNoPosition}, []float64{0.6, 0.2}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &ClassificationResult{Labels: tt.labels, Scores: tt.scores}

			err := r.Validate(StanceLabels, tt.multiLabel)

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidResult)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewStanceRequest(t *testing.T) {
	req := NewStanceRequest([]string{"a", "b"})

	assert.Equal(t, []string{"a", "b"}, req.Texts)
	assert.Equal(t, []string{"takes a position", "does not take a position"}, req.CandidateLabels)
	assert.Equal(t, "This tweet {} on a political issue", req.HypothesisTemplate.String())
	assert.False(t, req.MultiLabel)
	assert.NoError(t, req.HypothesisTemplate.Validate())
}

func TestHypothesisTemplate(t *testing.T) {
	t.Run("fills the slot", func(t *testing.T) {
		h := HypothesisTemplate(StanceHypothesisTemplate)

		assert.Equal(t, "This tweet takes a position on a political issue", h.Hypothesis(LabelTakesPosition))
	})

	t.Run("rejects missing slot", func(t *testing.T) {
		err := HypothesisTemplate("This tweet is political").Validate()

		assert.ErrorIs(t, err, ErrInvalidTemplate)
	})

	t.Run("rejects two slots", func(t *testing.T) {
		err := HypothesisTemplate("{} and {}").Validate()

		assert.ErrorIs(t, err, ErrInvalidTemplate)
	})
}

// wordCounter splits on spaces; enough to exercise the policy
type wordCounter struct{}

func (wordCounter) Spans(text string) ([]TokenSpan, error) {
	var spans []TokenSpan
	start := -1
	for i, r := range text {
		if r == ' ' {
			if start >= 0 {
				spans = append(spans, TokenSpan{Start: start, End: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, TokenSpan{Start: start, End: len(text)})
	}
	return spans, nil
}

type failingCounter struct{}

func (failingCounter) Spans(string) ([]TokenSpan, error) {
	return nil, errors.New("tokenizer broken")
}

func TestApplyTruncation(t *testing.T) {
	long := "one two three four five"

	t.Run("within budget is unchanged", func(t *testing.T) {
		out, err := ApplyTruncation(TruncationReject, wordCounter{}, long, 5)

		require.NoError(t, err)
		assert.Equal(t, long, out)
	})

	t.Run("truncate cuts after last allowed token", func(t *testing.T) {
		out, err := ApplyTruncation(TruncationTruncate, wordCounter{}, long, 3)

		require.NoError(t, err)
		assert.Equal(t, "one two three", out)
	})

	t.Run("reject returns ErrTextTooLong", func(t *testing.T) {
		_, err := ApplyTruncation(TruncationReject, wordCounter{}, long, 3)

		assert.ErrorIs(t, err, ErrTextTooLong)
	})

	t.Run("nil counter disables the check", func(t *testing.T) {
		out, err := ApplyTruncation(TruncationReject, nil, long, 1)

		require.NoError(t, err)
		assert.Equal(t, long, out)
	})

	t.Run("cut never splits a rune", func(t *testing.T) {
		counter := fixedSpans{{Start: 0, End: 2}, {Start: 2, End: 4}}

		out, err := ApplyTruncation(TruncationTruncate, counter, "aé€", 1)

		require.NoError(t, err)
		assert.Equal(t, "a", out)
		assert.True(t, strings.HasPrefix("aé€", out))
	})

	t.Run("tokenizer error propagates", func(t *testing.T) {
		_, err := ApplyTruncation(TruncationTruncate, failingCounter{}, long, 3)

		assert.Error(t, err)
	})
}

type fixedSpans []TokenSpan

func (f fixedSpans) Spans(string) ([]TokenSpan, error) {
	return f, nil
}

func TestParseTruncationPolicy(t *testing.T) {
	p, err := ParseTruncationPolicy("reject")
	require.NoError(t, err)
	assert.Equal(t, TruncationReject, p)

	_, err = ParseTruncationPolicy("drop")
	assert.Error(t, err)
}

func TestParseDevice(t *testing.T) {
	tests := []struct {
		in      string
		want    Device
		wantErr bool
	}{
		{"", DeviceAuto, false},
		{"auto", DeviceAuto, false},
		{"CPU", DeviceCPU, false},
		{" cuda ", DeviceCUDA, false},
		{"mps", DeviceMPS, false},
		{"tpu", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseDevice(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}
}

func TestNormalizeText(t *testing.T) {
	decomposed := "cafe\u0301"

	assert.Equal(t, "caf\u00e9", NormalizeText(decomposed))
	assert.Equal(t, "plain", NormalizeText("plain"))
}
