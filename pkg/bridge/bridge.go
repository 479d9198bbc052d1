// Package bridge wires the operator terminal channel to the EZO probe
// channel: it owns the session state, the one-shot output configuration
// gate, the line accumulator, the command dispatcher and the streaming
// sampler, and drives them all from a single cooperative loop.
package bridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aquamet/ecbridge/pkg/config"
	"github.com/aquamet/ecbridge/pkg/console"
	"github.com/aquamet/ecbridge/pkg/ezo"
)

// DefaultTickInterval is how long the loop yields between ticks.
const DefaultTickInterval = time.Millisecond

// Bridge is the top-level coordinator. Everything runs on the goroutine
// that calls Run (or Tick), so host input, dispatching and sampling can
// never overlap; a reply being awaited blocks the other paths for at most
// that command's timeout budget, which is the accepted trade-off inherited
// from the protocol's half-duplex design.
type Bridge struct {
	host   ezo.ByteStream
	out    io.Writer
	clock  ezo.Clock
	logger *slog.Logger

	session    *Session
	acc        *console.Accumulator
	dispatcher *console.Dispatcher
	gate       *OutputGate
	sampler    *Sampler

	tickInterval time.Duration
}

// New assembles a bridge between the host byte stream and the probe
// querier. Operator output goes to the host stream itself; diagnostics go
// to the logger.
func New(cfg *config.Config, host ezo.ByteStream, probe Querier, clock ezo.Clock, logger *slog.Logger) *Bridge {
	session := NewSession(cfg.Sampling.DefaultPeriod)
	return &Bridge{
		host:         host,
		out:          host,
		clock:        clock,
		logger:       logger,
		session:      session,
		acc:          console.NewAccumulator(cfg.Console.IdleGap),
		dispatcher:   console.NewDispatcher(probe, session, host, cfg.Timeouts),
		gate:         NewOutputGate(probe, cfg.Timeouts.Configure),
		sampler:      NewSampler(probe, session, host, logger, cfg.Conversion, cfg.Sampling.ReadTimeout),
		tickInterval: DefaultTickInterval,
	}
}

// Session exposes the session state, mostly for tests and telemetry.
func (b *Bridge) Session() *Session {
	return b.session
}

// SetPublisher attaches an optional telemetry sink for streamed readings.
func (b *Bridge) SetPublisher(p Publisher) {
	b.sampler.SetPublisher(p)
}

// Tick runs one scheduler pass: retry the configuration gate, drain host
// bytes into the accumulator and dispatch completed lines, then give the
// sampler its turn. Errors are transport failures; nothing here is fatal.
func (b *Bridge) Tick() error {
	if !b.gate.Done() {
		if err := b.gate.Ensure(); err != nil {
			return err
		}
		if b.gate.Done() {
			fmt.Fprintln(b.out, "[config] outputs configured: EC on, TDS/SAL/SG off")
		}
	}

	for {
		c, ok := b.host.ReadByte()
		if !ok {
			break
		}
		if line, done := b.acc.Push(c, b.clock.Now()); done {
			if err := b.dispatcher.Dispatch(line); err != nil {
				return err
			}
		}
	}
	if line, ok := b.acc.Poll(b.clock.Now()); ok {
		if err := b.dispatcher.Dispatch(line); err != nil {
			return err
		}
	}

	return b.sampler.Tick(b.clock.Now())
}

// Run prints the help banner and ticks until the context is cancelled.
// Transport errors are logged and the loop keeps going; the bridge never
// halts on protocol trouble.
func (b *Bridge) Run(ctx context.Context) error {
	b.dispatcher.Help()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := b.Tick(); err != nil {
			b.logger.Warn("bridge tick", "error", err)
		}
		b.clock.Sleep(b.tickInterval)
	}
}
