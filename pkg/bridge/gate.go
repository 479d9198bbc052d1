package bridge

import (
	"fmt"
	"time"
)

// outputSequence is the one-time probe configuration: tagged EC output on,
// the derived fields off. The bridge computes TDS and SAL itself, and the
// parser still accepts untagged SAL/SG values should the probe send them.
var outputSequence = []string{
	"O,EC,1",
	"O,TDS,0",
	"O,SAL,0",
	"O,SG,0",
}

// OutputGate is a one-shot latch around the probe's output-field
// configuration. Ensure is retried every scheduler tick until the whole
// sequence has been issued; replies are not validated, any reply or timeout
// advances the sequence. Once complete the gate stays latched for the
// process lifetime.
type OutputGate struct {
	probe   Querier
	timeout time.Duration
	next    int
}

// NewOutputGate creates a gate using the given per-command reply budget.
func NewOutputGate(probe Querier, timeout time.Duration) *OutputGate {
	return &OutputGate{probe: probe, timeout: timeout}
}

// Done reports whether the configuration sequence has been fully issued.
func (g *OutputGate) Done() bool {
	return g.next >= len(outputSequence)
}

// Ensure issues the remaining configuration commands. On a transport error
// it stops so the next tick resumes from the same command.
func (g *OutputGate) Ensure() error {
	for g.next < len(outputSequence) {
		cmd := outputSequence[g.next]
		if _, err := g.probe.Query(cmd, g.timeout); err != nil {
			return fmt.Errorf("configure outputs: %w", err)
		}
		g.next++
	}
	return nil
}
