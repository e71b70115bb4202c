package progress

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Reporter receives progress for one phase at a time. Advance may be called
// from several goroutines.
type Reporter interface {
	Start(phase string, total int)
	Advance(item string)
	Done()
}

// Nop discards progress.
type Nop struct{}

func (Nop) Start(string, int) {}
func (Nop) Advance(string)    {}
func (Nop) Done()             {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Reporter) Reporter {
	if r == nil {
		return Nop{}
	}
	return r
}

// Bar renders a terminal progress bar.
type Bar struct {
	mu  sync.Mutex
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewBar returns a Bar writing to out.
func NewBar(out io.Writer) *Bar {
	return &Bar{out: out}
}

// Start replaces any running bar with a fresh one for phase.
func (b *Bar) Start(phase string, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar != nil {
		_ = b.bar.Finish()
	}
	b.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(b.out),
		progressbar.OptionSetDescription(phase),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// Advance moves the bar by one.
func (b *Bar) Advance(string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar != nil {
		_ = b.bar.Add(1)
	}
}

// Done finishes the current bar.
func (b *Bar) Done() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar != nil {
		_ = b.bar.Finish()
		b.bar = nil
	}
}
