package progress

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// TextBar draws an ASCII bar onto a character stream, overwriting the same
// terminal line on every render via a carriage return.
type TextBar struct {
	barState
	out      io.Writer
	fillChar string
}

func newTextBar(total, width int, out io.Writer, now func() time.Time) *TextBar {
	bar := &TextBar{
		barState: newBarState(total, width, now),
		out:      out,
		fillChar: "*",
	}

	// Show the empty bar straight away.
	bar.render(0)

	return bar
}

// Advance moves the bar to the given iteration, rendering only when the
// throttle allows it.
func (b *TextBar) Advance(iteration int) {
	b.advance(iteration, b.render)
}

// Increase advances the bar by one iteration.
func (b *TextBar) Increase() {
	b.Advance(b.lastIteration + 1)
}

// Finish renders the terminal 100% state, bypassing the throttle. No
// trailing newline is written; that is the caller's choice.
func (b *TextBar) Finish() {
	b.render(b.total)
	b.lastIteration = b.total
	b.lastRenderedPercent = 100
}

// render writes the bar and its label over the current terminal line. A
// broken stream is tolerated silently: progress output is cosmetic and must
// never fail the computation it is decorating.
func (b *TextBar) render(iteration int) {
	_, _ = fmt.Fprintf(b.out, "\r%s  %s", b.glyph(iteration), b.label(iteration))

	if flusher, ok := b.out.(interface{ Flush() error }); ok {
		_ = flusher.Flush()
	}
}

// glyph composes the bracketed bar with the percentage spliced into its
// middle. The result is always exactly width characters long.
func (b *TextBar) glyph(iteration int) string {
	percent := float64(iteration) / float64(b.total) * 100.0

	percentDone := int(math.Round(percent))
	if percentDone < 0 {
		percentDone = 0
	}
	if percentDone > 100 {
		percentDone = 100
	}

	// One character each side is reserved for the brackets. A width below 2
	// leaves no interior at all; renders must never panic, so clamp rather
	// than let the repeat counts go negative.
	interior := b.width - 2
	if interior < 0 {
		interior = 0
	}

	filled := int(math.Round(float64(percentDone) / 100.0 * float64(interior)))

	bar := "[" + strings.Repeat(b.fillChar, filled) + strings.Repeat(" ", interior-filled) + "]"

	pct := strconv.Itoa(percentDone) + "%"
	if len(pct) > interior {
		// Too narrow to carry the overlay at all.
		return bar
	}

	at := len(bar)/2 - len(pct)

	// Keep the splice inside the brackets for every width. For widths where
	// the centered position would touch a bracket, the overlay shifts off
	// center instead of overwriting the delimiter.
	if at < 1 {
		at = 1
	}
	if at+len(pct) > len(bar)-1 {
		at = len(bar) - 1 - len(pct)
	}

	return bar[:at] + pct + bar[at+len(pct):]
}
