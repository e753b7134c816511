package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Tick(d time.Duration) {
	c.t = c.t.Add(d)
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2020, 3, 14, 12, 0, 0, 0, time.UTC)}
}

// renders counts how many times the text backend redrew its line.
func renders(buf *bytes.Buffer) int {
	return strings.Count(buf.String(), "\r")
}

func TestAdvanceThrottlesBelowOnePercent(t *testing.T) {
	buf := &bytes.Buffer{}
	bar := New(1000, Options{Output: buf, now: newFakeClock().Now})

	initial := renders(buf)
	assert.Equal(t, 1, initial) // blank state drawn at construction

	for i := 1; i <= 9; i++ {
		bar.Advance(i) // 0.1% .. 0.9%, all below the threshold
	}
	assert.Equal(t, initial, renders(buf))

	bar.Advance(10) // 1.0%, crosses the threshold
	assert.Equal(t, initial+1, renders(buf))
}

func TestAdvanceBackwardAlwaysRenders(t *testing.T) {
	buf := &bytes.Buffer{}
	bar := New(100, Options{Output: buf, now: newFakeClock().Now})

	bar.Advance(80)
	before := renders(buf)

	bar.Advance(40)
	assert.Equal(t, before+1, renders(buf), "a percentage decrease must force a render")
}

func TestAdvanceSkippedRendersStillTrackIterations(t *testing.T) {
	buf := &bytes.Buffer{}
	bar := New(1000, Options{Output: buf, now: newFakeClock().Now})

	// Nine throttled advances, then Increase should pick up from iteration 9.
	for i := 1; i <= 9; i++ {
		bar.Increase()
	}
	before := renders(buf)

	bar.Increase() // iteration 10 = 1.0%
	assert.Equal(t, before+1, renders(buf))
	assert.Contains(t, buf.String(), "10 / 1000")
}

func TestFinishRendersFullBarRegardlessOfProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	bar := New(10, Options{Output: buf, now: newFakeClock().Now})

	bar.Finish()

	out := buf.String()
	assert.Contains(t, out, "100%")
	assert.Contains(t, out, "10 / 10")
	assert.False(t, strings.HasSuffix(out, "\n"), "the trailing newline belongs to the caller")
}

func TestFinishAfterOvershoot(t *testing.T) {
	buf := &bytes.Buffer{}
	bar := New(10, Options{Output: buf, now: newFakeClock().Now})

	bar.Advance(25)
	bar.Finish()

	lines := strings.Split(buf.String(), "\r")
	last := lines[len(lines)-1]
	assert.Contains(t, last, "100%")
	assert.Contains(t, last, "10 / 10")
}

func TestLabelSentinelBeforeFirstIteration(t *testing.T) {
	buf := &bytes.Buffer{}
	New(50, Options{Output: buf, now: newFakeClock().Now})

	assert.Contains(t, buf.String(), "(--:-- remaining)")
}

func TestLabelEstimatesRemainingTime(t *testing.T) {
	clock := newFakeClock()
	buf := &bytes.Buffer{}
	bar := New(100, Options{Output: buf, now: clock.Now})

	clock.Tick(10 * time.Second)
	bar.Advance(50)

	// 0.2 s per iteration, 50 to go.
	assert.Contains(t, buf.String(), "50 / 100 in 10.0 s (0:00:10 remaining)")
}

func TestLabelClampsElapsedIterationsToTotal(t *testing.T) {
	clock := newFakeClock()
	buf := &bytes.Buffer{}
	bar := New(100, Options{Output: buf, now: clock.Now})

	clock.Tick(2 * time.Second)
	bar.Advance(150)

	assert.Contains(t, buf.String(), "100 / 100 in 2.0 s")
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "0:00:00", formatSeconds(0))
	assert.Equal(t, "0:00:05", formatSeconds(5))
	assert.Equal(t, "0:01:05", formatSeconds(65))
	assert.Equal(t, "1:02:03", formatSeconds(3723))
	assert.Equal(t, "27:46:40", formatSeconds(100000))
	assert.Equal(t, "0:00:00", formatSeconds(-12))
}

func TestZeroTotalIsGuarded(t *testing.T) {
	buf := &bytes.Buffer{}
	bar := New(0, Options{Output: buf, now: newFakeClock().Now})

	// Must not divide by zero anywhere.
	bar.Advance(1)
	bar.Finish()

	assert.Contains(t, buf.String(), "100%")
}
