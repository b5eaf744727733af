package coordinator

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// FaultLogger bounds log volume under a misbehaving client to one line per
// window, without ever silently dropping all occurrences: each emitted line
// carries the count of faults suppressed since the previous one.
type FaultLogger struct {
	mu         sync.Mutex
	window     time.Duration
	lastEmit   time.Time
	suppressed int

	// Both swapped out in tests.
	now  func() time.Time
	emit func(line string)
}

// DefaultFaultWindow is the emission interval when config doesn't override.
const DefaultFaultWindow = 5 * time.Second

// NewFaultLogger creates a logger that emits at most once per window.
func NewFaultLogger(window time.Duration) *FaultLogger {
	if window <= 0 {
		window = DefaultFaultWindow
	}
	return &FaultLogger{
		window: window,
		now:    time.Now,
		emit:   func(line string) { log.Print(line) },
	}
}

// Report records a fault. Inside the window it only bumps the suppressed
// count; at or past the window boundary it emits one line folding in the
// count of prior suppressed occurrences, then resets.
func (l *FaultLogger) Report(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastEmit) < l.window {
		l.suppressed++
		return
	}

	msg := fmt.Sprintf(format, args...)
	l.emit(fmt.Sprintf("⚠️  %s (%d similar faults suppressed)", msg, l.suppressed))
	l.lastEmit = now
	l.suppressed = 0
}

// Suppressed returns the current suppressed count.
func (l *FaultLogger) Suppressed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.suppressed
}
