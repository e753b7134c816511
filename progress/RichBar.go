package progress

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// RichBar renders through an interactive gauge widget: a 0-100 gauge plus a
// text label, both mutated in place after being attached to the output once
// at construction.
type RichBar struct {
	barState
	gauge *progressbar.ProgressBar
}

func newRichBar(total, width int, out io.Writer, now func() time.Time) *RichBar {
	gauge := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetWidth(width),
		progressbar.OptionSetRenderBlankState(true), // show an initial blank bar
		progressbar.OptionUseANSICodes(true),
	)

	bar := &RichBar{
		barState: newBarState(total, width, now),
		gauge:    gauge,
	}

	bar.render(0)

	return bar
}

// Advance moves the bar to the given iteration, rendering only when the
// throttle allows it.
func (b *RichBar) Advance(iteration int) {
	b.advance(iteration, b.render)
}

// Increase advances the bar by one iteration.
func (b *RichBar) Increase() {
	b.Advance(b.lastIteration + 1)
}

// Finish renders the terminal 100% state, bypassing the throttle.
func (b *RichBar) Finish() {
	b.render(b.total)
	b.lastIteration = b.total
	b.lastRenderedPercent = 100
}

// render updates the gauge and its label in place. The gauge value is the
// raw percentage: a caller advancing past the total will see a gauge beyond
// 100, which is accepted as caller error rather than defended against.
func (b *RichBar) render(iteration int) {
	percent := float64(iteration) / float64(b.total) * 100.0

	b.gauge.Describe(b.label(iteration))
	// The gauge API takes whole points, so the fractional part is lost in
	// the truncation here; values above 100 still pass through untouched.
	_ = b.gauge.Set(int(percent))
}
