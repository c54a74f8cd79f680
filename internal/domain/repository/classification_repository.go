package repository

import (
	"context"

	"github.com/ressKim-io/stance-classifier/internal/domain/entity"
	"github.com/ressKim-io/stance-classifier/internal/domain/service"
)

// TableReader loads a table from a path
type TableReader interface {
	// Load reads the table and removes rows without text
	Load(ctx context.Context, path string) (*LoadResult, error)
}

// LoadResult is a loaded table plus the row accounting of the load
type LoadResult struct {
	Table       *entity.Table
	RowsRead    int
	RowsDropped int
}

// TableWriter persists a table to a path
type TableWriter interface {
	Write(ctx context.Context, table *entity.Table, path string) error
}

// ClassificationRepository defines the interface for run data operations
type ClassificationRepository interface {
	// CreateRun stores a new run
	CreateRun(ctx context.Context, run *entity.ClassificationRun) error

	// UpdateRun stores the final state of a run
	UpdateRun(ctx context.Context, run *entity.ClassificationRun) error

	// CreateTweets stores the classified rows of a run
	CreateTweets(ctx context.Context, tweets []*entity.ClassifiedTweet) error
}

// ResultCache stores classification results by premise text. A cache is
// scoped to one model, template and label set.
type ResultCache interface {
	// GetMany returns the cached results for the texts that are present
	GetMany(ctx context.Context, texts []string) (map[string]*service.ClassificationResult, error)

	// SetMany stores results by text
	SetMany(ctx context.Context, results map[string]*service.ClassificationResult) error
}
