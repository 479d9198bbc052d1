package console

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pushString(t *testing.T, a *Accumulator, s string, now time.Time) (string, bool) {
	t.Helper()
	for i := 0; i < len(s); i++ {
		if line, ok := a.Push(s[i], now); ok {
			require.Equal(t, len(s)-1, i, "line completed before the final byte")
			return line, true
		}
	}
	return "", false
}

func TestAccumulator_CompletesOnLF(t *testing.T) {
	a := NewAccumulator(300 * time.Millisecond)
	now := time.Unix(100, 0)

	line, ok := pushString(t, a, "stream on\n", now)
	require.True(t, ok)
	assert.Equal(t, "stream on", line)
	assert.False(t, a.Pending())
}

func TestAccumulator_CompletesOnCR(t *testing.T) {
	a := NewAccumulator(300 * time.Millisecond)
	now := time.Unix(100, 0)

	line, ok := pushString(t, a, "r\r", now)
	require.True(t, ok)
	assert.Equal(t, "r", line)
}

func TestAccumulator_TrimsWhitespace(t *testing.T) {
	a := NewAccumulator(300 * time.Millisecond)
	now := time.Unix(100, 0)

	line, ok := pushString(t, a, "  cal mid 1413  \n", now)
	require.True(t, ok)
	assert.Equal(t, "cal mid 1413", line)
}

func TestAccumulator_EmptyLinesSwallowed(t *testing.T) {
	a := NewAccumulator(300 * time.Millisecond)
	now := time.Unix(100, 0)

	_, ok := a.Push('\n', now)
	assert.False(t, ok)
	_, ok = a.Push('\r', now)
	assert.False(t, ok)

	_, ok = pushString(t, a, "   \n", now)
	assert.False(t, ok)
}

func TestAccumulator_IdleTimeout(t *testing.T) {
	a := NewAccumulator(300 * time.Millisecond)
	start := time.Unix(100, 0)

	_, ok := pushString(t, a, "help", start)
	require.False(t, ok)
	assert.True(t, a.Pending())

	// Exactly the idle gap is not enough; the pause must exceed it.
	_, ok = a.Poll(start.Add(300 * time.Millisecond))
	assert.False(t, ok)

	line, ok := a.Poll(start.Add(301 * time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, "help", line)
	assert.False(t, a.Pending())
}

func TestAccumulator_IdleGapMeasuredFromLastByte(t *testing.T) {
	a := NewAccumulator(300 * time.Millisecond)
	start := time.Unix(100, 0)

	a.Push('r', start)
	// A late byte restarts the idle clock.
	a.Push('a', start.Add(250*time.Millisecond))
	a.Push('w', start.Add(500*time.Millisecond))

	_, ok := a.Poll(start.Add(700 * time.Millisecond))
	assert.False(t, ok)

	line, ok := a.Poll(start.Add(801 * time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, "raw", line)
}

func TestAccumulator_PollWithEmptyBuffer(t *testing.T) {
	a := NewAccumulator(300 * time.Millisecond)

	_, ok := a.Poll(time.Unix(100, 0))
	assert.False(t, ok)
}

func TestAccumulator_NoByteLostAcrossTicks(t *testing.T) {
	a := NewAccumulator(300 * time.Millisecond)
	now := time.Unix(100, 0)

	// Bytes dribble in one per tick, interleaved with polls.
	for i, b := range []byte("period 500") {
		_, ok := a.Push(b, now.Add(time.Duration(i)*10*time.Millisecond))
		require.False(t, ok)
		_, ok = a.Poll(now.Add(time.Duration(i)*10*time.Millisecond))
		require.False(t, ok)
	}

	line, ok := a.Poll(now.Add(time.Second))
	require.True(t, ok)
	assert.Equal(t, "period 500", line)
}
