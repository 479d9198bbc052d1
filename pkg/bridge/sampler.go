package bridge

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aquamet/ecbridge/pkg/config"
	"github.com/aquamet/ecbridge/pkg/ezo"
)

// Querier issues one probe request and waits for its reply. Satisfied by
// *ezo.Link.
type Querier interface {
	Query(cmd string, timeout time.Duration) (string, error)
}

// Publisher fans a streamed reading out to an external sink. Satisfied by
// *publish.Client; publish failures are logged, never fatal.
type Publisher interface {
	PublishReading(r ezo.Reading) error
}

// Sampler triggers autonomous probe reads on a fixed period while the
// session has streaming enabled, parses the replies and reports them to
// the operator.
type Sampler struct {
	probe       Querier
	session     *Session
	out         io.Writer
	logger      *slog.Logger
	conv        config.ConversionConfig
	readTimeout time.Duration
	publisher   Publisher

	last time.Time
}

// NewSampler creates a sampler reporting to out.
func NewSampler(probe Querier, session *Session, out io.Writer, logger *slog.Logger, conv config.ConversionConfig, readTimeout time.Duration) *Sampler {
	return &Sampler{
		probe:       probe,
		session:     session,
		out:         out,
		logger:      logger,
		conv:        conv,
		readTimeout: readTimeout,
	}
}

// SetPublisher attaches an optional telemetry sink for valid readings.
func (s *Sampler) SetPublisher(p Publisher) {
	s.publisher = p
}

// Tick takes one scheduling decision: when streaming is enabled and a full
// period has elapsed since the previous sample, it rebases the timer and
// performs one read. The first tick after enabling samples immediately.
func (s *Sampler) Tick(now time.Time) error {
	if !s.session.Streaming() {
		return nil
	}
	if !s.last.IsZero() && now.Sub(s.last) < s.session.Period() {
		return nil
	}
	s.last = now

	reply, err := s.probe.Query("R", s.readTimeout)
	if err != nil {
		return err
	}
	if s.session.EchoRaw() {
		fmt.Fprintf(s.out, "[ezo] raw: %s\n", reply)
	}
	s.report(reply)
	return nil
}

// report interprets one streamed reply. Acknowledgments are suppressed, a
// timeout is named as such, and anything else unparseable is shown verbatim
// so the operator sees exactly what the probe said.
func (s *Sampler) report(reply string) {
	reading, ok := ezo.ParseReading(reply)
	switch {
	case ok:
		derived := reading.Derive(s.conv.TDSFactor, s.conv.SALFactor)
		fmt.Fprintln(s.out, "[reading]")
		fmt.Fprintf(s.out, "  EC: %.6f uS/cm\n", derived.EC)
		fmt.Fprintf(s.out, "  TDS: %.1f ppm\n", derived.TDS)
		fmt.Fprintf(s.out, "  SAL: %.1f ppm\n", derived.SAL)
		if derived.HasSG {
			fmt.Fprintf(s.out, "  SG: %.6f\n", derived.SG)
		} else {
			fmt.Fprintln(s.out, "  SG: n/a")
		}
		s.publish(derived)
	case strings.HasPrefix(reply, ezo.AckMarker):
		// Configuration acknowledgment, nothing to show.
	case reply == "":
		fmt.Fprintln(s.out, "[reading] (timeout)")
	default:
		fmt.Fprintf(s.out, "[reading] unparseable reply: %s\n", reply)
	}
}

func (s *Sampler) publish(r ezo.Reading) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishReading(r); err != nil {
		s.logger.Warn("telemetry publish failed", "error", err)
	}
}
