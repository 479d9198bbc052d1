package ezo

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquamet/ecbridge/pkg/config"
)

func newTestMock(t *testing.T) (*Mock, *Link, *FakeClock) {
	t.Helper()
	clock := NewFakeClock(time.Unix(2000, 0))
	mock := NewMock(&config.MockConfig{
		BaseEC:     1413.0,
		Drift:      5.0,
		ReplyDelay: 10 * time.Millisecond,
	}, clock)
	link := NewLink(mock, clock, io.Discard)
	return mock, link, clock
}

func TestMock_ReadIsParseable(t *testing.T) {
	_, link, _ := newTestMock(t)

	reply, err := link.Query("R", time.Second)
	require.NoError(t, err)

	r, ok := ParseReading(reply)
	require.True(t, ok, "mock reading %q should parse", reply)
	assert.InDelta(t, 1413.0, r.EC, 10.0)
	// Factory state has every tagged output enabled.
	assert.True(t, r.HasSG)
}

func TestMock_OutputFlagsShapeReading(t *testing.T) {
	_, link, _ := newTestMock(t)

	for _, cmd := range []string{"O,TDS,0", "O,SAL,0", "O,SG,0"} {
		reply, err := link.Query(cmd, time.Second)
		require.NoError(t, err)
		assert.Equal(t, AckMarker, reply)
	}

	reply, err := link.Query("R", time.Second)
	require.NoError(t, err)

	r, ok := ParseReading(reply)
	require.True(t, ok)
	assert.False(t, r.HasSG, "SG disabled, reply %q should not mention it", reply)
	assert.InDelta(t, 1413.0, r.EC, 10.0)
}

func TestMock_OutputQueryListsEnabled(t *testing.T) {
	_, link, _ := newTestMock(t)

	_, err := link.Query("O,TDS,0", time.Second)
	require.NoError(t, err)
	_, err = link.Query("O,SG,0", time.Second)
	require.NoError(t, err)

	reply, err := link.Query("O,?", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "?O,EC,SAL", reply)
}

func TestMock_ConfigCommandsAcknowledge(t *testing.T) {
	_, link, _ := newTestMock(t)

	for _, cmd := range []string{
		"T,25.00",
		"Cal,clear",
		"Cal,dry",
		"Cal,mid,1413.00",
		"L,1",
		"C,0",
		"K,1.0",
		"Factory",
	} {
		reply, err := link.Query(cmd, time.Second)
		require.NoError(t, err)
		assert.Equal(t, AckMarker, reply, "command %s", cmd)
	}
}

func TestMock_Queries(t *testing.T) {
	_, link, _ := newTestMock(t)

	reply, err := link.Query("T,?", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "?T,25.00", reply)

	_, err = link.Query("Cal,mid,1413.00", time.Second)
	require.NoError(t, err)
	reply, err = link.Query("Cal,?", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "?Cal,1", reply)

	reply, err = link.Query("K,?", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "?K,1.0", reply)

	reply, err = link.Query("I", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "?I,EC,2.10", reply)

	reply, err = link.Query("Status", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "?Status,P,5.038", reply)
}

func TestMock_SleepIsSilent(t *testing.T) {
	_, link, _ := newTestMock(t)

	reply, err := link.Query("Sleep", 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "", reply)
}

func TestMock_ReplyDelay(t *testing.T) {
	mock, _, clock := newTestMock(t)

	_, err := mock.Write([]byte("R\r"))
	require.NoError(t, err)

	// Nothing is readable before the simulated latency has passed.
	_, ok := mock.ReadByte()
	assert.False(t, ok)

	clock.Advance(10 * time.Millisecond)
	_, ok = mock.ReadByte()
	assert.True(t, ok)
}

func TestMock_UnknownCommand(t *testing.T) {
	_, link, _ := newTestMock(t)

	reply, err := link.Query("Bogus", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "*ER", reply)
}
