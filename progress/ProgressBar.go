package progress

import (
	"errors"
	"fmt"
	"time"
)

// ErrBackendUnavailable is returned when the rich backend was explicitly
// required but could not be constructed.
var ErrBackendUnavailable = errors.New("rich progress backend unavailable")

// Bar reports progress of a fixed-size iteration.
type Bar interface {
	// Advance moves the bar to the given iteration. Iterations may move
	// backward (e.g. a retry loop); a decrease always triggers a redraw.
	Advance(iteration int)
	// Increase advances the bar by one iteration.
	Increase()
	// Finish forces a final render at 100%. Call it exactly once, when the
	// work the bar is decorating is over.
	Finish()
}

// barState holds the bookkeeping shared by every backend: the iteration
// counters, the render throttle and the time estimate.
type barState struct {
	total               int
	width               int
	startTime           time.Time
	lastIteration       int
	lastRenderedPercent float64
	now                 func() time.Time
}

func newBarState(total, width int, now func() time.Time) barState {
	if total < 1 {
		// Guard the divisions below; a bar over nothing is a bar over one.
		total = 1
	}
	if now == nil {
		now = time.Now
	}
	return barState{
		total:     total,
		width:     width,
		startTime: now(),
		now:       now,
	}
}

// advance applies the render throttle: the backend draws only when the
// percentage moved backward or gained at least one point since the last
// draw. Redraws are expensive (I/O for text, layout for rich), so this
// bounds the number of renders to ~100 regardless of the iteration count.
func (s *barState) advance(iteration int, draw func(iteration int)) {
	percent := float64(iteration) / float64(s.total) * 100.0

	if percent-s.lastRenderedPercent < 0 || percent-s.lastRenderedPercent >= 1 {
		draw(iteration)
		s.lastIteration = iteration
		s.lastRenderedPercent = percent
	} else {
		s.lastIteration++
	}
}

// label builds the elapsed/remaining text shown next to the bar glyph.
func (s *barState) label(iteration int) string {
	deltaT := s.now().Sub(s.startTime).Seconds()

	elapsedIter := iteration
	if elapsedIter > s.total {
		elapsedIter = s.total
	}

	return fmt.Sprintf("%d / %d in %.1f s (%s remaining)",
		elapsedIter, s.total, deltaT, s.remainingTime(iteration, deltaT))
}

// remainingTime estimates time to completion from the average pace so far.
// Before the first iteration there is no pace, hence the sentinel.
func (s *barState) remainingTime(iteration int, deltaT float64) string {
	if iteration == 0 {
		return "--:--"
	}

	secondsPerIteration := deltaT / float64(iteration)
	secondsToGo := secondsPerIteration * float64(s.total-iteration)

	return formatSeconds(int64(secondsToGo))
}

// formatSeconds renders truncated whole seconds in H:MM:SS notation.
func formatSeconds(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
}
