package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ressKim-io/stance-classifier/internal/domain/service"
	"github.com/ressKim-io/stance-classifier/internal/usecase"
)

type statusEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		RunID          string     `json:"run_id"`
		Status         string     `json:"status"`
		Stage          string     `json:"stage"`
		RowsToClassify int        `json:"rows_to_classify"`
		RowsClassified int        `json:"rows_classified"`
		Progress       float64    `json:"progress"`
		Error          *ErrorInfo `json:"error"`
	} `json:"data"`
}

func getStatus(t *testing.T, state *usecase.RunState) statusEnvelope {
	t.Helper()
	router := gin.New()
	router.GET("/status", NewStatusHandler(state).Status)

	w := serve(router, "GET", "/status")
	require.Equal(t, http.StatusOK, w.Code)

	var env statusEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestStatusHandler_Status(t *testing.T) {
	t.Run("idle before any run", func(t *testing.T) {
		env := getStatus(t, usecase.NewRunState())

		assert.True(t, env.Success)
		assert.Equal(t, "idle", env.Data.Status)
		assert.Nil(t, env.Data.Error)
	})

	t.Run("reports classification progress", func(t *testing.T) {
		state := usecase.NewRunState()
		id := uuid.New()
		state.RunStarted(id)
		state.StageStarted(usecase.StageClassify, 64)
		state.RowsClassified(32, time.Second)

		env := getStatus(t, state)

		assert.Equal(t, id.String(), env.Data.RunID)
		assert.Equal(t, "running", env.Data.Status)
		assert.Equal(t, "classify", env.Data.Stage)
		assert.Equal(t, 32, env.Data.RowsClassified)
		assert.InDelta(t, 0.5, env.Data.Progress, 1e-9)
	})

	t.Run("reports failures with a code", func(t *testing.T) {
		state := usecase.NewRunState()
		state.RunStarted(uuid.New())
		state.RunFinished(fmt.Errorf("%w: %w", usecase.ErrClassification, service.ErrOutOfMemory))

		env := getStatus(t, state)

		assert.Equal(t, "failed", env.Data.Status)
		require.NotNil(t, env.Data.Error)
		assert.Equal(t, "OUT_OF_MEMORY", env.Data.Error.Code)
	})

	t.Run("completed run is fully done", func(t *testing.T) {
		state := usecase.NewRunState()
		state.RunStarted(uuid.New())
		state.StageStarted(usecase.StageClassify, 0)
		state.RunFinished(nil)

		env := getStatus(t, state)

		assert.Equal(t, "completed", env.Data.Status)
		assert.Equal(t, 1.0, env.Data.Progress)
	})
}
