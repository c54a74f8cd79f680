package entity

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the current state of a classification run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ClassificationRun records one execution of the stance pipeline
type ClassificationRun struct {
	ID                 uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	Status             RunStatus  `json:"status" gorm:"type:varchar(20);not null;default:'running'"`
	Model              string     `json:"model" gorm:"type:varchar(200);not null"`
	ModelVersion       string     `json:"model_version" gorm:"type:varchar(100)"`
	Device             string     `json:"device" gorm:"type:varchar(20)"`
	HypothesisTemplate string     `json:"hypothesis_template" gorm:"type:text;not null"`
	InputPath          string     `json:"input_path" gorm:"type:text;not null"`
	OutputPath         string     `json:"output_path" gorm:"type:text;not null"`
	RowsRead           int        `json:"rows_read" gorm:"default:0"`
	RowsDropped        int        `json:"rows_dropped" gorm:"default:0"`
	RowsClassified     int        `json:"rows_classified" gorm:"default:0"`
	StartedAt          time.Time  `json:"started_at" gorm:"not null"`
	FinishedAt         *time.Time `json:"finished_at"`

	// Relations
	Tweets []ClassifiedTweet `json:"tweets,omitempty" gorm:"foreignKey:RunID"`
}

// TableName returns the table name for GORM
func (ClassificationRun) TableName() string {
	return "classification_runs"
}

// NewClassificationRun creates a running ClassificationRun
func NewClassificationRun(id uuid.UUID, model, template, inputPath, outputPath string) *ClassificationRun {
	return &ClassificationRun{
		ID:                 id,
		Status:             RunStatusRunning,
		Model:              model,
		HypothesisTemplate: template,
		InputPath:          inputPath,
		OutputPath:         outputPath,
		StartedAt:          time.Now().UTC(),
	}
}

// Complete marks the run as completed
func (r *ClassificationRun) Complete(rowsClassified int) {
	now := time.Now().UTC()
	r.Status = RunStatusCompleted
	r.RowsClassified = rowsClassified
	r.FinishedAt = &now
}

// Fail marks the run as failed
func (r *ClassificationRun) Fail() {
	now := time.Now().UTC()
	r.Status = RunStatusFailed
	r.FinishedAt = &now
}

// ClassifiedTweet is one classified row of a run
type ClassifiedTweet struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	RunID          uuid.UUID `json:"run_id" gorm:"type:uuid;not null;index"`
	RowIndex       int       `json:"row_index" gorm:"not null"`
	Text           string    `json:"text" gorm:"type:text;not null"`
	PredictedLabel string    `json:"predicted_label" gorm:"type:varchar(50);not null"`
	Score          float64   `json:"score" gorm:"type:decimal(7,6)"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM
func (ClassifiedTweet) TableName() string {
	return "classified_tweets"
}

// NewClassifiedTweet creates a new ClassifiedTweet
func NewClassifiedTweet(runID uuid.UUID, rowIndex int, text, label string, score float64) *ClassifiedTweet {
	return &ClassifiedTweet{
		ID:             uuid.New(),
		RunID:          runID,
		RowIndex:       rowIndex,
		Text:           text,
		PredictedLabel: label,
		Score:          score,
	}
}
