package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ressKim-io/stance-classifier/internal/domain/entity"
	"github.com/ressKim-io/stance-classifier/internal/domain/repository"
	"github.com/ressKim-io/stance-classifier/internal/domain/service"
)

// Error definitions for the stance pipeline
var (
	ErrInputAccess    = errors.New("input access failed")
	ErrClassification = errors.New("classification failed")
	ErrOutputWrite    = errors.New("output write failed")
	ErrPersist        = errors.New("result persistence failed")
)

// Default names of the columns added to the table
const (
	DefaultLabelColumn = "predicted_label"
	DefaultScoreColumn = "score"
)

// RunInput represents the input of one classification run
type RunInput struct {
	InputPath   string
	OutputPath  string
	ParquetPath string
	TextColumn  string
}

// RunOutput summarises a finished run
type RunOutput struct {
	RunID          uuid.UUID      `json:"run_id"`
	RowsRead       int            `json:"rows_read"`
	RowsDropped    int            `json:"rows_dropped"`
	RowsClassified int            `json:"rows_classified"`
	CacheHits      int            `json:"cache_hits"`
	LabelCounts    map[string]int `json:"label_counts"`
	Duration       time.Duration  `json:"duration"`
}

// MetricsRecorder receives the counters of a run
type MetricsRecorder interface {
	ObserveLoad(read, dropped int)
	ObserveLabel(label string)
	ObserveCache(hits, misses int)
	ObserveRun(status string, finishedAt time.Time)
}

// ModelDescriber is implemented by classifiers that know what they are bound to
type ModelDescriber interface {
	Model() string
	ModelVersion() string
	Device() string
}

// Option configures a StanceUsecase
type Option func(*StanceUsecase)

// WithCache looks results up before classifying and stores new ones after writing
func WithCache(cache repository.ResultCache) Option {
	return func(u *StanceUsecase) { u.cache = cache }
}

// WithRepository persists the run and its rows after the output is written
func WithRepository(repo repository.ClassificationRepository) Option {
	return func(u *StanceUsecase) { u.repo = repo }
}

// WithParquet also writes the annotated table to RunInput.ParquetPath
func WithParquet(writer repository.TableWriter) Option {
	return func(u *StanceUsecase) { u.parquet = writer }
}

// WithMetrics records run counters
func WithMetrics(recorder MetricsRecorder) Option {
	return func(u *StanceUsecase) { u.metrics = recorder }
}

// WithObserver receives stage notifications
func WithObserver(observer RunObserver) Option {
	return func(u *StanceUsecase) { u.observer = observer }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(u *StanceUsecase) { u.logger = logger }
}

// WithColumns renames the label and score columns
func WithColumns(label, score string) Option {
	return func(u *StanceUsecase) {
		u.labelColumn = label
		u.scoreColumn = score
	}
}

// WithNormalization sends NFC normalised premises to the classifier
func WithNormalization(enabled bool) Option {
	return func(u *StanceUsecase) { u.normalize = enabled }
}

// StanceUsecase runs load, classify, annotate and write once
type StanceUsecase struct {
	loader     repository.TableReader
	classifier service.Classifier
	writer     repository.TableWriter

	parquet  repository.TableWriter
	cache    repository.ResultCache
	repo     repository.ClassificationRepository
	metrics  MetricsRecorder
	observer RunObserver
	logger   *zap.Logger

	labelColumn string
	scoreColumn string
	normalize   bool
}

// NewStanceUsecase creates a new stance usecase
func NewStanceUsecase(loader repository.TableReader, classifier service.Classifier, writer repository.TableWriter, opts ...Option) *StanceUsecase {
	u := &StanceUsecase{
		loader:      loader,
		classifier:  classifier,
		writer:      writer,
		observer:    nopObserver{},
		logger:      zap.NewNop(),
		labelColumn: DefaultLabelColumn,
		scoreColumn: DefaultScoreColumn,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Run executes the pipeline. Any failure aborts the run; no output file
// is left behind unless the write stage completed.
func (u *StanceUsecase) Run(ctx context.Context, input *RunInput) (*RunOutput, error) {
	started := time.Now()
	runID := uuid.New()
	u.observer.RunStarted(runID)
	logger := u.logger.With(zap.String("run_id", runID.String()))

	output, err := u.run(ctx, runID, input, logger)
	finished := time.Now()
	u.observer.RunFinished(err)

	if err != nil {
		if u.metrics != nil {
			u.metrics.ObserveRun(string(entity.RunStatusFailed), finished)
		}
		logger.Error("Run failed", zap.Error(err))
		return nil, err
	}

	output.Duration = finished.Sub(started)
	if u.metrics != nil {
		u.metrics.ObserveRun(string(entity.RunStatusCompleted), finished)
	}
	logger.Info("Run completed",
		zap.Int("rows_read", output.RowsRead),
		zap.Int("rows_dropped", output.RowsDropped),
		zap.Int("rows_classified", output.RowsClassified),
		zap.Int("cache_hits", output.CacheHits),
		zap.Duration("duration", output.Duration),
	)
	return output, nil
}

func (u *StanceUsecase) run(ctx context.Context, runID uuid.UUID, input *RunInput, logger *zap.Logger) (*RunOutput, error) {
	textColumn := input.TextColumn
	if textColumn == "" {
		textColumn = "text"
	}

	// Load
	u.observer.StageStarted(StageLoad, 0)
	loaded, err := u.loader.Load(ctx, input.InputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputAccess, err)
	}
	if u.metrics != nil {
		u.metrics.ObserveLoad(loaded.RowsRead, loaded.RowsDropped)
	}
	logger.Info("Loaded input",
		zap.String("path", input.InputPath),
		zap.Int("rows_read", loaded.RowsRead),
		zap.Int("rows_dropped", loaded.RowsDropped),
	)

	table := loaded.Table
	texts, err := table.Column(textColumn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputAccess, err)
	}

	premises := make([]string, len(texts))
	for i, text := range texts {
		if u.normalize {
			text = service.NormalizeText(text)
		}
		premises[i] = text
	}

	// Cached results are keyed by the premise the model sees, so the
	// truncation policy runs before the cache lookup
	if preparer, ok := u.classifier.(service.PremisePreparer); ok && len(premises) > 0 {
		premises, err = preparer.Prepare(service.NewStanceRequest(premises))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrClassification, err)
		}
	}

	// Classify
	results, hits, err := u.classify(ctx, premises, logger)
	if err != nil {
		return nil, err
	}

	labels := make([]string, len(results))
	scores := make([]string, len(results))
	counts := make(map[string]int, len(service.StanceLabels))
	for i, result := range results {
		label, score := result.Top()
		labels[i] = label
		scores[i] = entity.FormatScore(score)
		counts[label]++
		if u.metrics != nil {
			u.metrics.ObserveLabel(label)
		}
	}
	if err := table.SetColumn(u.labelColumn, labels); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassification, err)
	}
	if err := table.SetColumn(u.scoreColumn, scores); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassification, err)
	}

	// Write
	u.observer.StageStarted(StageWrite, table.Len())
	if err := u.writer.Write(ctx, table, input.OutputPath); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOutputWrite, err)
	}
	logger.Info("Wrote output", zap.String("path", input.OutputPath), zap.Int("rows", table.Len()))

	if u.parquet != nil && input.ParquetPath != "" {
		if err := u.parquet.Write(ctx, table, input.ParquetPath); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrOutputWrite, err)
		}
		logger.Info("Wrote parquet export", zap.String("path", input.ParquetPath))
	}

	u.fillCache(ctx, premises, results, hits, logger)

	// Persist
	if u.repo != nil {
		u.observer.StageStarted(StagePersist, table.Len())
		if err := u.persist(ctx, runID, input, loaded, texts, results); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPersist, err)
		}
		logger.Info("Persisted run", zap.Int("rows", len(results)))
	}

	return &RunOutput{
		RunID:          runID,
		RowsRead:       loaded.RowsRead,
		RowsDropped:    loaded.RowsDropped,
		RowsClassified: len(results),
		CacheHits:      countCached(premises, hits),
		LabelCounts:    counts,
	}, nil
}

// classify returns one result per premise, in order, together with the set
// of premises answered from the cache
func (u *StanceUsecase) classify(ctx context.Context, premises []string, logger *zap.Logger) ([]*service.ClassificationResult, map[string]bool, error) {
	known := u.lookupCache(ctx, premises, logger)
	hits := make(map[string]bool, len(known))
	for text := range known {
		hits[text] = true
	}

	var pending []string
	queued := make(map[string]bool)
	for _, premise := range premises {
		if _, ok := known[premise]; ok || queued[premise] {
			continue
		}
		queued[premise] = true
		pending = append(pending, premise)
	}

	u.observer.StageStarted(StageClassify, len(pending))
	if len(pending) > 0 {
		classified, err := u.classifier.Classify(ctx, service.NewStanceRequest(pending))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrClassification, err)
		}
		if len(classified) != len(pending) {
			return nil, nil, fmt.Errorf("%w: %w: sent %d texts, got %d results",
				ErrClassification, service.ErrInvalidResult, len(pending), len(classified))
		}
		for i, result := range classified {
			known[pending[i]] = result
		}
	}

	results := make([]*service.ClassificationResult, len(premises))
	for i, premise := range premises {
		results[i] = known[premise]
	}

	logger.Info("Classified rows",
		zap.Int("rows", len(premises)),
		zap.Int("unique_requested", len(pending)),
		zap.Int("cache_hits", len(hits)),
	)
	return results, hits, nil
}

// lookupCache returns valid cached results. Cache failures only cost a
// cache miss.
func (u *StanceUsecase) lookupCache(ctx context.Context, premises []string, logger *zap.Logger) map[string]*service.ClassificationResult {
	known := make(map[string]*service.ClassificationResult)
	if u.cache == nil || len(premises) == 0 {
		return known
	}

	cached, err := u.cache.GetMany(ctx, premises)
	if err != nil {
		logger.Warn("Result cache lookup failed, classifying every row", zap.Error(err))
		return known
	}

	for text, result := range cached {
		if err := result.Validate(service.StanceLabels, false); err != nil {
			logger.Warn("Ignoring invalid cached result", zap.Error(err))
			continue
		}
		known[text] = result
	}

	if u.metrics != nil {
		covered := countCached(premises, known)
		u.metrics.ObserveCache(covered, len(premises)-covered)
	}
	return known
}

// countCached counts the rows whose premise has a known result
func countCached[V any](premises []string, known map[string]V) int {
	n := 0
	for _, p := range premises {
		if _, ok := known[p]; ok {
			n++
		}
	}
	return n
}

func (u *StanceUsecase) fillCache(ctx context.Context, premises []string, results []*service.ClassificationResult, hits map[string]bool, logger *zap.Logger) {
	if u.cache == nil {
		return
	}

	fresh := make(map[string]*service.ClassificationResult)
	for i, premise := range premises {
		if !hits[premise] {
			fresh[premise] = results[i]
		}
	}

	if err := u.cache.SetMany(ctx, fresh); err != nil {
		logger.Warn("Failed to store results in cache", zap.Error(err))
	}
}

func (u *StanceUsecase) persist(ctx context.Context, runID uuid.UUID, input *RunInput, loaded *repository.LoadResult, texts []string, results []*service.ClassificationResult) error {
	run := entity.NewClassificationRun(runID, "", service.StanceHypothesisTemplate, input.InputPath, input.OutputPath)
	if d, ok := u.classifier.(ModelDescriber); ok {
		run.Model = d.Model()
		run.ModelVersion = d.ModelVersion()
		run.Device = d.Device()
	}
	run.RowsRead = loaded.RowsRead
	run.RowsDropped = loaded.RowsDropped
	run.Complete(len(results))

	if err := u.repo.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	tweets := make([]*entity.ClassifiedTweet, len(results))
	for i, result := range results {
		label, score := result.Top()
		tweets[i] = entity.NewClassifiedTweet(runID, loaded.Table.Rows[i].Index, texts[i], label, score)
	}

	if err := u.repo.CreateTweets(ctx, tweets); err != nil {
		run.Fail()
		if updateErr := u.repo.UpdateRun(ctx, run); updateErr != nil {
			return fmt.Errorf("failed to create tweets: %w (marking run failed: %w)", err, updateErr)
		}
		return fmt.Errorf("failed to create tweets: %w", err)
	}

	return nil
}
