package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ressKim-io/stance-classifier/internal/domain/service"
)

// specialTokenReserve covers the [CLS]/[SEP] tokens of a premise/hypothesis pair
const specialTokenReserve = 3

// BatchHook is called after every classified batch
type BatchHook func(size int, elapsed time.Duration)

// ZeroShotOptions configures the classifier adapter
type ZeroShotOptions struct {
	Model     string
	Device    service.Device
	BatchSize int

	// Truncation decides what happens to premises over the token budget
	Truncation service.TruncationPolicy
	// MaxTokens is the model input limit; zero uses the limit the service reports
	MaxTokens int
	// Tokenizer enables the local token budget check when set
	Tokenizer service.TokenCounter

	OnBatch BatchHook
	Logger  *zap.Logger
}

var _ service.PremisePreparer = (*ZeroShotClassifier)(nil)

// ZeroShotClassifier adapts MLClient to the Classifier interface
type ZeroShotClassifier struct {
	client       *MLClient
	opts         ZeroShotOptions
	modelVersion string
	device       string
	maxTokens    int
	logger       *zap.Logger
}

// NewZeroShotClassifier loads the model on the ML service and returns a
// classifier bound to it. Loading happens here, once, and never lazily.
func NewZeroShotClassifier(ctx context.Context, client *MLClient, opts ZeroShotOptions) (*ZeroShotClassifier, error) {
	if opts.BatchSize < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", opts.BatchSize)
	}
	if opts.Device == "" {
		opts.Device = service.DeviceAuto
	}
	if opts.Truncation == "" {
		opts.Truncation = service.TruncationTruncate
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	resp, err := client.LoadModel(ctx, &LoadModelRequest{
		Model:     opts.Model,
		Device:    string(opts.Device),
		BatchSize: opts.BatchSize,
	})
	if err != nil {
		if errors.Is(err, service.ErrModelLoad) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", service.ErrModelLoad, err)
	}

	if opts.Device != service.DeviceAuto && resp.Device != string(opts.Device) {
		return nil, fmt.Errorf("%w: requested %s, service bound %s", service.ErrDeviceUnavailable, opts.Device, resp.Device)
	}

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = resp.MaxSequenceLength
	}

	logger.Info("Model loaded",
		zap.String("model", opts.Model),
		zap.String("model_version", resp.ModelVersion),
		zap.String("device", resp.Device),
		zap.Int("batch_size", opts.BatchSize),
		zap.Int("max_tokens", maxTokens),
	)

	return &ZeroShotClassifier{
		client:       client,
		opts:         opts,
		modelVersion: resp.ModelVersion,
		device:       resp.Device,
		maxTokens:    maxTokens,
		logger:       logger,
	}, nil
}

// Model returns the model name
func (c *ZeroShotClassifier) Model() string {
	return c.opts.Model
}

// ModelVersion returns the version reported by the ML service
func (c *ZeroShotClassifier) ModelVersion() string {
	return c.modelVersion
}

// Device returns the device the model is bound to
func (c *ZeroShotClassifier) Device() string {
	return c.device
}

// premiseBudget is the token budget left for the premise once the longest
// hypothesis and the special tokens are accounted for
func (c *ZeroShotClassifier) premiseBudget(req *service.ZeroShotRequest) (int, error) {
	if c.opts.Tokenizer == nil || c.maxTokens <= 0 {
		return 0, nil
	}

	longest := 0
	for _, label := range req.CandidateLabels {
		spans, err := c.opts.Tokenizer.Spans(req.HypothesisTemplate.Hypothesis(label))
		if err != nil {
			return 0, fmt.Errorf("failed to tokenize hypothesis: %w", err)
		}
		if len(spans) > longest {
			longest = len(spans)
		}
	}

	budget := c.maxTokens - longest - specialTokenReserve
	if budget < 1 {
		return 0, fmt.Errorf("hypothesis leaves no room for the premise within %d tokens", c.maxTokens)
	}
	return budget, nil
}

// MaxTokens returns the model input limit in effect
func (c *ZeroShotClassifier) MaxTokens() int {
	return c.maxTokens
}

// Prepare applies the truncation policy to every request text
func (c *ZeroShotClassifier) Prepare(req *service.ZeroShotRequest) ([]string, error) {
	if err := req.HypothesisTemplate.Validate(); err != nil {
		return nil, err
	}
	if len(req.CandidateLabels) == 0 {
		return nil, errors.New("no candidate labels")
	}

	budget, err := c.premiseBudget(req)
	if err != nil {
		return nil, err
	}

	premises := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		premises[i], err = service.ApplyTruncation(c.opts.Truncation, c.opts.Tokenizer, text, budget)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
	}
	return premises, nil
}

// Classify classifies texts in batches of the configured size
func (c *ZeroShotClassifier) Classify(ctx context.Context, req *service.ZeroShotRequest) ([]*service.ClassificationResult, error) {
	premises, err := c.Prepare(req)
	if err != nil {
		return nil, err
	}

	results := make([]*service.ClassificationResult, 0, len(premises))
	for start := 0; start < len(premises); start += c.opts.BatchSize {
		end := start + c.opts.BatchSize
		if end > len(premises) {
			end = len(premises)
		}

		batch, err := c.classifyBatch(ctx, req, premises[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch at row %d: %w", start, err)
		}
		results = append(results, batch...)
	}

	return results, nil
}

func (c *ZeroShotClassifier) classifyBatch(ctx context.Context, req *service.ZeroShotRequest, premises []string) ([]*service.ClassificationResult, error) {
	started := time.Now()
	requestID := uuid.New().String()

	resp, err := c.client.ZeroShot(ctx, &ZeroShotRequest{
		RequestID:          requestID,
		Model:              c.opts.Model,
		Sequences:          premises,
		CandidateLabels:    req.CandidateLabels,
		HypothesisTemplate: req.HypothesisTemplate.String(),
		MultiLabel:         req.MultiLabel,
		Truncation:         c.opts.Truncation == service.TruncationTruncate,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Results) != len(premises) {
		return nil, fmt.Errorf("%w: request %s sent %d sequences, got %d results",
			service.ErrInvalidResult, requestID, len(premises), len(resp.Results))
	}

	results := make([]*service.ClassificationResult, len(resp.Results))
	for i, r := range resp.Results {
		if r.Sequence != "" && r.Sequence != premises[i] {
			return nil, fmt.Errorf("%w: result %d does not match its sequence", service.ErrInvalidResult, i)
		}
		result := &service.ClassificationResult{
			Sequence: premises[i],
			Labels:   r.Labels,
			Scores:   r.Scores,
		}
		if err := result.Validate(req.CandidateLabels, req.MultiLabel); err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
		results[i] = result
	}

	elapsed := time.Since(started)
	c.logger.Debug("Classified batch",
		zap.String("request_id", requestID),
		zap.Int("size", len(premises)),
		zap.Duration("elapsed", elapsed),
	)
	if c.opts.OnBatch != nil {
		c.opts.OnBatch(len(premises), elapsed)
	}

	return results, nil
}
