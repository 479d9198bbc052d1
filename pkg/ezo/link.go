package ezo

import (
	"fmt"
	"io"
	"sync"
	"time"
)

const (
	// Terminator ends every command and reply on the probe channel.
	Terminator = '\r'

	// DefaultPollInterval is how long ReceiveLine yields between polls of
	// the byte stream while waiting for a reply.
	DefaultPollInterval = time.Millisecond
)

// Link is the half-duplex request/response transport to the EZO probe.
// It frames outgoing commands with a carriage return, reads replies up to
// the terminator or a timeout, and echoes all traffic to the operator
// channel. The mutex guarantees a single outstanding request even if a
// second caller ever appears; the probe cannot handle interleaved frames.
type Link struct {
	stream ByteStream
	clock  Clock
	echo   io.Writer // operator channel; protocol traffic must be visible there

	mu           sync.Mutex
	pollInterval time.Duration
}

// NewLink creates a Link over the given byte stream. Echo receives a
// diagnostic line per command sent and per reply (or timeout) received.
func NewLink(stream ByteStream, clock Clock, echo io.Writer) *Link {
	return &Link{
		stream:       stream,
		clock:        clock,
		echo:         echo,
		pollInterval: DefaultPollInterval,
	}
}

// Send transmits the command followed by the carriage-return terminator.
func (l *Link) Send(cmd string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.send(cmd)
}

func (l *Link) send(cmd string) error {
	if _, err := l.stream.Write(append([]byte(cmd), Terminator)); err != nil {
		return fmt.Errorf("send %q: %w", cmd, err)
	}
	return nil
}

// ReceiveLine accumulates printable ASCII bytes from the probe until a
// carriage return arrives (consumed, not returned) or the timeout elapses.
// Non-printable bytes are dropped. An empty string means timeout; that is
// not an error, callers decide what an empty reply means.
func (l *Link) ReceiveLine(timeout time.Duration) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.receiveLine(timeout)
}

func (l *Link) receiveLine(timeout time.Duration) string {
	deadline := l.clock.Now().Add(timeout)
	var line []byte
	for {
		for {
			b, ok := l.stream.ReadByte()
			if !ok {
				break
			}
			if b == Terminator {
				return string(line)
			}
			if b >= 32 && b <= 126 {
				line = append(line, b)
			}
		}
		if !l.clock.Now().Before(deadline) {
			return string(line)
		}
		l.clock.Sleep(l.pollInterval)
	}
}

// Query sends a command and waits for its reply under one lock acquisition,
// so request and response can never interleave with another caller. The
// exchange is echoed to the operator channel; that echo is the operator's
// only view of probe traffic, not optional instrumentation.
func (l *Link) Query(cmd string, timeout time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.echo, "[ezo] send: %s\n", cmd)
	if err := l.send(cmd); err != nil {
		return "", err
	}
	reply := l.receiveLine(timeout)
	if reply == "" {
		fmt.Fprintln(l.echo, "[ezo] reply: (timeout)")
	} else {
		fmt.Fprintf(l.echo, "[ezo] reply: %s\n", reply)
	}
	return reply, nil
}
