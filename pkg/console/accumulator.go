// Package console frames and interprets the operator side of the bridge:
// byte-at-a-time line accumulation from the host terminal and the command
// grammar that maps typed lines onto probe requests.
package console

import (
	"strings"
	"time"
)

// Accumulator frames operator input arriving byte by byte into complete
// command lines. A line completes on LF or CR (consumed, not appended), or
// when the buffer is non-empty and no byte has arrived for longer than the
// idle gap. The idle path exists because some terminals send no terminator
// at all ("line ending: none") and must not be dropped.
type Accumulator struct {
	idleGap  time.Duration
	buf      []byte
	lastByte time.Time
}

// NewAccumulator creates an accumulator with the given idle completion gap.
func NewAccumulator(idleGap time.Duration) *Accumulator {
	return &Accumulator{idleGap: idleGap}
}

// Push appends one byte. If the byte is a line terminator and the buffer
// holds anything, the completed line is returned trimmed and the buffer is
// cleared. Lines that trim to nothing are swallowed.
func (a *Accumulator) Push(b byte, now time.Time) (string, bool) {
	if b == '\n' || b == '\r' {
		return a.complete()
	}
	a.buf = append(a.buf, b)
	a.lastByte = now
	return "", false
}

// Poll completes a pending line once more than the idle gap has elapsed
// since the last byte. Callers invoke it every scheduler tick.
func (a *Accumulator) Poll(now time.Time) (string, bool) {
	if len(a.buf) == 0 {
		return "", false
	}
	if now.Sub(a.lastByte) > a.idleGap {
		return a.complete()
	}
	return "", false
}

func (a *Accumulator) complete() (string, bool) {
	line := strings.TrimSpace(string(a.buf))
	a.buf = a.buf[:0]
	if line == "" {
		return "", false
	}
	return line, true
}

// Pending reports whether a partial line is buffered.
func (a *Accumulator) Pending() bool {
	return len(a.buf) > 0
}
