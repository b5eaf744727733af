package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFaultLogger(window time.Duration) (*FaultLogger, *[]string, *time.Time) {
	l := NewFaultLogger(window)
	now := time.Unix(1000, 0)
	var emitted []string
	l.now = func() time.Time { return now }
	l.emit = func(line string) { emitted = append(emitted, line) }
	return l, &emitted, &now
}

func TestFaultLoggerSuppressesWithinWindow(t *testing.T) {
	l, emitted, now := newTestFaultLogger(5 * time.Second)

	// N faults inside one window: exactly one emission, the rest counted.
	const n = 10
	for i := 0; i < n; i++ {
		l.Report("malformed message")
		*now = now.Add(100 * time.Millisecond)
	}

	require.Len(t, *emitted, 1)
	assert.Contains(t, (*emitted)[0], "(0 similar faults suppressed)")
	assert.Equal(t, n-1, l.Suppressed())

	// The suppressed count is surfaced by the next post-window emission.
	*now = now.Add(10 * time.Second)
	l.Report("malformed message")
	require.Len(t, *emitted, 2)
	assert.Contains(t, (*emitted)[1], "(9 similar faults suppressed)")
	assert.Equal(t, 0, l.Suppressed())
}

func TestFaultLoggerResetsAfterWindow(t *testing.T) {
	l, emitted, now := newTestFaultLogger(5 * time.Second)

	l.Report("fault a")
	l.Report("fault b")
	assert.Equal(t, 1, l.Suppressed())

	*now = now.Add(6 * time.Second)
	l.Report("fault c")

	require.Len(t, *emitted, 2)
	assert.Contains(t, (*emitted)[1], "fault c")
	assert.Contains(t, (*emitted)[1], "(1 similar faults suppressed)")
	assert.Equal(t, 0, l.Suppressed())

	// A fresh window starts with a clean count.
	*now = now.Add(6 * time.Second)
	l.Report("fault d")
	require.Len(t, *emitted, 3)
	assert.Contains(t, (*emitted)[2], "(0 similar faults suppressed)")
}

func TestFaultLoggerDefaultWindow(t *testing.T) {
	l := NewFaultLogger(0)
	assert.Equal(t, DefaultFaultWindow, l.window)
}
