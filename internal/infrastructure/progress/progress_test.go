package progress

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ressKim-io/stance-classifier/internal/usecase"
)

func TestBar(t *testing.T) {
	t.Run("completes when every row is classified", func(t *testing.T) {
		var buf bytes.Buffer
		bar := New(&buf, 40)

		bar.RunStarted(uuid.New())
		bar.StageStarted(usecase.StageLoad, 0)
		bar.StageStarted(usecase.StageClassify, 40)
		bar.RowsClassified(32, 10*time.Millisecond)
		bar.RowsClassified(8, 5*time.Millisecond)

		done := make(chan struct{})
		go func() {
			bar.RunFinished(nil)
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("progress bar did not finish")
		}
	})

	t.Run("nothing to classify renders nothing", func(t *testing.T) {
		var buf bytes.Buffer
		bar := New(&buf, 40)

		bar.StageStarted(usecase.StageClassify, 0)
		bar.RowsClassified(0, 0)
		bar.RunFinished(nil)

		assert.Empty(t, buf.String())
	})

	t.Run("failed run does not block", func(t *testing.T) {
		var buf bytes.Buffer
		bar := New(&buf, 40)

		bar.StageStarted(usecase.StageClassify, 10)
		bar.RowsClassified(3, time.Millisecond)
		bar.RunFinished(errors.New("boom"))
	})

	t.Run("non-terminal output uses the fallback width", func(t *testing.T) {
		var buf bytes.Buffer

		assert.Equal(t, 64, New(&buf, 0).width)
	})
}
