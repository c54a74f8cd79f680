package progress

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vbauerster/mpb"
	"github.com/vbauerster/mpb/decor"
	"golang.org/x/term"

	"github.com/ressKim-io/stance-classifier/internal/usecase"
)

var _ usecase.RunObserver = (*Bar)(nil)

// Bar renders classified rows as a terminal progress bar
type Bar struct {
	mu       sync.Mutex
	out      io.Writer
	width    int
	progress *mpb.Progress
	bar      *mpb.Bar
}

// New creates a progress bar writing to out. A width of zero uses the
// terminal width when out is a terminal.
func New(out io.Writer, width int) *Bar {
	if width <= 0 {
		width = terminalWidth(out)
	}
	return &Bar{out: out, width: width}
}

func terminalWidth(out io.Writer) int {
	const fallback = 64
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return fallback
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}

func (b *Bar) RunStarted(uuid.UUID) {}

// StageStarted adds a bar when classification of at least one row begins
func (b *Bar) StageStarted(stage usecase.Stage, rows int) {
	if stage != usecase.StageClassify || rows == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.progress = mpb.New(mpb.WithWidth(b.width), mpb.WithOutput(b.out))
	b.bar = b.progress.AddBar(int64(rows),
		mpb.PrependDecorators(decor.Name("classify")),
		mpb.PrependDecorators(decor.CountersNoUnit("%d/%d", decor.WCSyncSpace)),
		mpb.AppendDecorators(decor.AverageETA(decor.ET_STYLE_GO)),
		mpb.BarRemoveOnComplete(),
	)
}

// RowsClassified advances the bar
func (b *Bar) RowsClassified(n int, elapsed time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		b.bar.IncrBy(n, elapsed)
	}
}

// RunFinished waits for the bar to render its final state. A failed run
// never completes its bar, so it is left as is.
func (b *Bar) RunFinished(err error) {
	b.mu.Lock()
	progress := b.progress
	b.progress = nil
	b.bar = nil
	b.mu.Unlock()

	if progress != nil && err == nil {
		progress.Wait()
	}
}
