package usecase

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stage is one step of the pipeline
type Stage string

const (
	StageLoad     Stage = "load"
	StageClassify Stage = "classify"
	StageWrite    Stage = "write"
	StagePersist  Stage = "persist"
)

// RunObserver receives progress notifications from a run
type RunObserver interface {
	RunStarted(runID uuid.UUID)
	// StageStarted reports a stage and the number of rows it will handle
	StageStarted(stage Stage, rows int)
	// RowsClassified reports one classified batch
	RowsClassified(n int, elapsed time.Duration)
	RunFinished(err error)
}

// MultiObserver fans notifications out to several observers
type MultiObserver []RunObserver

func (m MultiObserver) RunStarted(runID uuid.UUID) {
	for _, o := range m {
		o.RunStarted(runID)
	}
}

func (m MultiObserver) StageStarted(stage Stage, rows int) {
	for _, o := range m {
		o.StageStarted(stage, rows)
	}
}

func (m MultiObserver) RowsClassified(n int, elapsed time.Duration) {
	for _, o := range m {
		o.RowsClassified(n, elapsed)
	}
}

func (m MultiObserver) RunFinished(err error) {
	for _, o := range m {
		o.RunFinished(err)
	}
}

// RunSnapshot is a point-in-time view of a run
type RunSnapshot struct {
	RunID          string     `json:"run_id,omitempty"`
	Status         string     `json:"status"`
	Stage          Stage      `json:"stage,omitempty"`
	RowsToClassify int        `json:"rows_to_classify"`
	RowsClassified int        `json:"rows_classified"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	Err            error      `json:"-"`
}

// RunState tracks the current run for the status endpoint
type RunState struct {
	mu   sync.RWMutex
	snap RunSnapshot
}

// NewRunState creates an idle run state
func NewRunState() *RunState {
	return &RunState{snap: RunSnapshot{Status: "idle"}}
}

// Snapshot returns a copy of the current state
func (s *RunState) Snapshot() RunSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *RunState) RunStarted(runID uuid.UUID) {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = RunSnapshot{
		RunID:     runID.String(),
		Status:    "running",
		StartedAt: &now,
	}
}

func (s *RunState) StageStarted(stage Stage, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Stage = stage
	if stage == StageClassify {
		s.snap.RowsToClassify = rows
	}
}

func (s *RunState) RowsClassified(n int, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.RowsClassified += n
}

func (s *RunState) RunFinished(err error) {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.FinishedAt = &now
	if err != nil {
		s.snap.Status = "failed"
		s.snap.Err = err
		return
	}
	s.snap.Status = "completed"
}

type nopObserver struct{}

func (nopObserver) RunStarted(uuid.UUID)              {}
func (nopObserver) StageStarted(Stage, int)           {}
func (nopObserver) RowsClassified(int, time.Duration) {}
func (nopObserver) RunFinished(error)                 {}
