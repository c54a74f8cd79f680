package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ressKim-io/stance-classifier/internal/usecase"
)

// StatusHandler exposes the state of the current run
type StatusHandler struct {
	state *usecase.RunState
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(state *usecase.RunState) *StatusHandler {
	return &StatusHandler{state: state}
}

// RunStatus is the /status payload
type RunStatus struct {
	usecase.RunSnapshot
	Progress float64    `json:"progress"`
	Error    *ErrorInfo `json:"error,omitempty"`
}

// Status handles GET /status
func (h *StatusHandler) Status(c *gin.Context) {
	snap := h.state.Snapshot()

	progress := 0.0
	switch {
	case snap.Status == "completed":
		progress = 1
	case snap.RowsToClassify > 0:
		progress = float64(snap.RowsClassified) / float64(snap.RowsToClassify)
		if progress > 1 {
			progress = 1
		}
	}

	respondSuccess(c, http.StatusOK, RunStatus{
		RunSnapshot: snap,
		Progress:    progress,
		Error:       MapRunError(snap.Err),
	})
}
