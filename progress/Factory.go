package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	richDefaultWidth = 50
	textDefaultWidth = 30
)

// Options configures bar construction. The zero value gives a bar on
// os.Stdout with the backend's default width, picking the rich backend
// whenever stdout is an interactive terminal.
type Options struct {
	// Output is the stream bars are drawn on.
	// Default: os.Stdout
	Output io.Writer

	// Width is the bar width in characters. Zero means the backend default
	// (50 rich, 30 text). Rich backends treat it as a layout hint only.
	Width int

	// DisableRich forces the text backend regardless of the environment.
	// This replaces the old process-wide availability flag so tests stay
	// hermetic and parallel-safe.
	DisableRich bool

	// IsTerminal probes whether the output has an interactive display
	// surface attached. Default: a TTY check on *os.File outputs, false for
	// anything else. Tests inject their own probe.
	IsTerminal func(io.Writer) bool

	// now is the clock used for the elapsed/remaining estimates.
	now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Output == nil {
		o.Output = os.Stdout
	}
	if o.IsTerminal == nil {
		o.IsTerminal = defaultIsTerminal
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

func defaultIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func richAvailable(o Options) bool {
	return !o.DisableRich && o.IsTerminal(o.Output)
}

func (o Options) richWidth() int {
	if o.Width == 0 {
		return richDefaultWidth
	}
	return o.Width
}

func (o Options) textWidth() int {
	if o.Width == 0 {
		return textDefaultWidth
	}
	return o.Width
}

// New builds the best bar the environment supports. It never fails: when
// the rich backend cannot be constructed the text backend steps in, because
// a progress indicator must never abort the computation it is decorating.
func New(totalIterations int, opts Options) Bar {
	o := opts.withDefaults()

	if richAvailable(o) {
		return newRichBar(totalIterations, o.richWidth(), o.Output, o.now)
	}

	return newTextBar(totalIterations, o.textWidth(), o.Output, o.now)
}

// NewBatch builds count independent bars sharing a single backend decision.
// Like New, it is best-effort and never fails.
func NewBatch(totalIterations, count int, opts Options) []Bar {
	o := opts.withDefaults()

	rich := richAvailable(o)

	bars := make([]Bar, 0, count)
	for i := 0; i < count; i++ {
		if rich {
			bars = append(bars, newRichBar(totalIterations, o.richWidth(), o.Output, o.now))
		} else {
			bars = append(bars, newTextBar(totalIterations, o.textWidth(), o.Output, o.now))
		}
	}

	return bars
}

// NewRichBatch builds count rich bars or fails with ErrBackendUnavailable.
// There is no silent downgrade here: several simultaneous text bars would
// interleave illegibly on one stream.
func NewRichBatch(totalIterations, count int, opts Options) ([]Bar, error) {
	o := opts.withDefaults()

	if !richAvailable(o) {
		return nil, fmt.Errorf("cannot build %d rich bars: %w", count, ErrBackendUnavailable)
	}

	bars := make([]Bar, count)
	for i := range bars {
		bars[i] = newRichBar(totalIterations, o.richWidth(), o.Output, o.now)
	}

	return bars, nil
}

// With hands a best-effort bar to fn and guarantees the final 100% render
// on every exit path, including early returns and panics.
func With(totalIterations int, opts Options, fn func(Bar) error) error {
	bar := New(totalIterations, opts)
	defer bar.Finish()

	return fn(bar)
}

// WithBatch is With for a best-effort batch. Bars are finished in creation
// order on every exit path.
func WithBatch(totalIterations, count int, opts Options, fn func([]Bar) error) error {
	bars := NewBatch(totalIterations, count, opts)
	defer finishAll(bars)

	return fn(bars)
}

// WithRichBatch is WithBatch for a required-rich batch. It fails with
// ErrBackendUnavailable before fn runs if the rich backend cannot be built.
func WithRichBatch(totalIterations, count int, opts Options, fn func([]Bar) error) error {
	bars, err := NewRichBatch(totalIterations, count, opts)
	if err != nil {
		return err
	}
	defer finishAll(bars)

	return fn(bars)
}

func finishAll(bars []Bar) {
	for _, bar := range bars {
		bar.Finish()
	}
}
