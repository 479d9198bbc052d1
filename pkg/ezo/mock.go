package ezo

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/aquamet/ecbridge/pkg/config"
)

// Mock simulates an EZO EC probe for testing and development. It implements
// ByteStream, so a Link drives it exactly like a serial port: commands in,
// terminated replies out after a configurable delay.
type Mock struct {
	cfg   *config.MockConfig
	clock Clock

	mu      sync.Mutex
	inbuf   []byte
	outbuf  []byte
	readyAt time.Time

	// Probe state
	outputs   map[string]bool // tagged output flags per channel
	tempComp  float64
	cellConst float64
	calPoints int
	led       bool
	cont      bool
	reads     int
}

var _ ByteStream = (*Mock)(nil)

// NewMock creates a simulated probe. The factory state has every tagged
// output enabled, which is what a fresh device reports before the startup
// configuration sequence trims it down to EC only.
func NewMock(cfg *config.MockConfig, clock Clock) *Mock {
	if cfg == nil {
		cfg = &config.MockConfig{
			BaseEC:     1413.0,
			Drift:      5.0,
			ReplyDelay: 50 * time.Millisecond,
		}
	}
	m := &Mock{
		cfg:   cfg,
		clock: clock,
	}
	m.factoryState()
	return m
}

func (m *Mock) factoryState() {
	m.outputs = map[string]bool{"EC": true, "TDS": true, "SAL": true, "SG": true}
	m.tempComp = 25.0
	m.cellConst = 1.0
	m.calPoints = 0
	m.led = true
	m.cont = false
}

// Write receives command bytes; each carriage return completes a command.
func (m *Mock) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range p {
		if b == Terminator {
			cmd := strings.TrimSpace(string(m.inbuf))
			m.inbuf = m.inbuf[:0]
			if cmd != "" {
				m.handle(cmd)
			}
			continue
		}
		m.inbuf = append(m.inbuf, b)
	}
	return len(p), nil
}

// ReadByte returns the next reply byte once the simulated latency has passed.
func (m *Mock) ReadByte() (byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.outbuf) == 0 || m.clock.Now().Before(m.readyAt) {
		return 0, false
	}
	b := m.outbuf[0]
	m.outbuf = m.outbuf[1:]
	return b, true
}

func (m *Mock) reply(s string) {
	m.outbuf = append(m.outbuf, s...)
	m.outbuf = append(m.outbuf, Terminator)
	m.readyAt = m.clock.Now().Add(m.cfg.ReplyDelay)
}

func (m *Mock) handle(cmd string) {
	fields := strings.Split(cmd, ",")
	switch strings.ToUpper(fields[0]) {
	case "R":
		m.reply(m.readingLine())
	case "T":
		if len(fields) == 2 && fields[1] == "?" {
			m.reply(fmt.Sprintf("?T,%.2f", m.tempComp))
		} else if len(fields) == 2 {
			m.tempComp = lenientFloat(fields[1])
			m.reply(AckMarker)
		} else {
			m.reply("*ER")
		}
	case "CAL":
		m.handleCal(fields[1:])
	case "O":
		m.handleOutput(fields[1:])
	case "K":
		if len(fields) == 2 && fields[1] == "?" {
			m.reply(fmt.Sprintf("?K,%.1f", m.cellConst))
		} else if len(fields) == 2 {
			m.cellConst = lenientFloat(fields[1])
			m.reply(AckMarker)
		} else {
			m.reply("*ER")
		}
	case "I":
		m.reply("?I,EC,2.10")
	case "STATUS":
		m.reply("?Status,P,5.038")
	case "L":
		if len(fields) == 2 {
			m.led = fields[1] == "1"
			m.reply(AckMarker)
		} else {
			m.reply("*ER")
		}
	case "C":
		if len(fields) == 2 {
			m.cont = fields[1] == "1"
			m.reply(AckMarker)
		} else {
			m.reply("*ER")
		}
	case "FACTORY":
		m.factoryState()
		m.reply(AckMarker)
	case "SLEEP":
		// A sleeping probe stays silent until the next command wakes it.
	default:
		m.reply("*ER")
	}
}

func (m *Mock) handleCal(args []string) {
	if len(args) == 0 {
		m.reply("*ER")
		return
	}
	switch strings.ToLower(args[0]) {
	case "?":
		m.reply(fmt.Sprintf("?Cal,%d", m.calPoints))
	case "clear":
		m.calPoints = 0
		m.reply(AckMarker)
	case "dry":
		m.calPoints = 1
		m.reply(AckMarker)
	case "low", "mid", "high":
		if len(args) != 2 {
			m.reply("*ER")
			return
		}
		m.calPoints++
		m.reply(AckMarker)
	default:
		m.reply("*ER")
	}
}

func (m *Mock) handleOutput(args []string) {
	if len(args) == 1 && args[0] == "?" {
		enabled := make([]string, 0, 4)
		for _, label := range []string{"EC", "TDS", "SAL", "SG"} {
			if m.outputs[label] {
				enabled = append(enabled, label)
			}
		}
		m.reply("?O," + strings.Join(enabled, ","))
		return
	}
	if len(args) != 2 {
		m.reply("*ER")
		return
	}
	label := strings.ToUpper(args[0])
	if _, known := m.outputs[label]; !known {
		m.reply("*ER")
		return
	}
	m.outputs[label] = args[1] == "1"
	m.reply(AckMarker)
}

// readingLine builds a tagged reply listing the enabled output fields, in
// the probe's fixed EC, TDS, SAL, SG order. The EC value wanders around the
// configured base so streamed output looks alive.
func (m *Mock) readingLine() string {
	m.reads++
	ec := m.cfg.BaseEC + m.cfg.Drift*math.Sin(float64(m.reads)*0.35)

	values := map[string]float64{
		"EC":  ec,
		"TDS": ec * 0.5,
		"SAL": ec * 0.0005,
		"SG":  1.0,
	}
	var parts []string
	for _, label := range []string{"EC", "TDS", "SAL", "SG"} {
		if m.outputs[label] {
			parts = append(parts, label, fmt.Sprintf("%.2f", values[label]))
		}
	}
	if len(parts) == 0 {
		return "*ER"
	}
	return strings.Join(parts, ",")
}
