package console

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aquamet/ecbridge/pkg/config"
)

// Querier issues one probe request and waits for its reply. Satisfied by
// *ezo.Link; tests substitute a recorder.
type Querier interface {
	Query(cmd string, timeout time.Duration) (string, error)
}

// Session is the mutable per-process state the dispatcher controls on
// behalf of the operator. Satisfied by *bridge.Session.
type Session interface {
	SetStreaming(on bool)
	SetPeriod(d time.Duration)
	SetEchoRaw(on bool)
}

const helpText = `commands (end with Enter):
  help                 show this help
  r                    immediate reading
  t <C>                set temperature compensation, e.g. t 25.0
  t ?                  query temperature compensation
  cal clear            erase calibration
  cal dry              dry calibration
  cal low <uS/cm>      low point, e.g. cal low 84.0
  cal mid <uS/cm>      mid point, e.g. cal mid 1413
  cal high <uS/cm>     high point, e.g. cal high 12880
  cal <uS/cm>          shortcut: picks low/mid/high by magnitude
  cal ?                query calibration state
  k <0.1|1.0|10.0>     set probe cell constant
  k ?                  query probe cell constant
  o ec|tds|sal|sg on|off   toggle a tagged output field
  o ?                  query output fields
  stream on|off        periodic readings
  period <ms>          set read period (default 1000)
  raw on|off           also echo the raw probe reply
  i                    device information
  status               device status
  led on|off           module LED
  factory              factory reset (erases calibration)
  sleep                low power mode (wakes on reset)
  c on|off             probe continuous mode (not recommended with stream)`

// Dispatcher maps validated operator commands onto probe requests with
// their reply-timeout budgets, mutates the session for the local verbs, and
// writes all operator-facing text to out. Probe replies are discarded here;
// the Query echo already showed them to the operator.
type Dispatcher struct {
	probe    Querier
	session  Session
	out      io.Writer
	timeouts config.TimeoutConfig
}

// NewDispatcher creates a dispatcher writing operator output to out.
func NewDispatcher(probe Querier, session Session, out io.Writer, timeouts config.TimeoutConfig) *Dispatcher {
	return &Dispatcher{
		probe:    probe,
		session:  session,
		out:      out,
		timeouts: timeouts,
	}
}

// Help prints the command summary.
func (d *Dispatcher) Help() {
	fmt.Fprintln(d.out, helpText)
}

// Dispatch parses and executes one operator line. Input errors are printed
// as usage messages and send nothing to the probe; the returned error is
// transport failure only.
func (d *Dispatcher) Dispatch(line string) error {
	cmd, err := ParseCommand(line)
	if err != nil {
		fmt.Fprintln(d.out, err.Error())
		return nil
	}
	return d.Execute(cmd)
}

// Execute runs one validated command.
func (d *Dispatcher) Execute(cmd Command) error {
	switch cmd.Verb {
	case VerbHelp:
		d.Help()
	case VerbRead:
		return d.query("R", d.timeouts.Read)
	case VerbTempQuery:
		return d.query("T,?", d.timeouts.TempComp)
	case VerbTempSet:
		return d.query(fmt.Sprintf("T,%.2f", cmd.Value), d.timeouts.TempComp)
	case VerbCalClear:
		return d.query("Cal,clear", d.timeouts.CalClear)
	case VerbCalDry:
		return d.query("Cal,dry", d.timeouts.CalDry)
	case VerbCalQuery:
		return d.query("Cal,?", d.timeouts.CalQuery)
	case VerbCalPoint:
		return d.query(fmt.Sprintf("Cal,%s,%.2f", cmd.Point, cmd.Value), d.timeouts.CalPoint)
	case VerbOutputQuery:
		return d.query("O,?", d.timeouts.Output)
	case VerbOutputSet:
		return d.query(fmt.Sprintf("O,%s,%d", strings.ToUpper(cmd.Channel), onOffBit(cmd.Enable)), d.timeouts.Output)
	case VerbStream:
		d.session.SetStreaming(cmd.Enable)
		fmt.Fprintf(d.out, "[stream] %s\n", onOffWord(cmd.Enable))
	case VerbPeriod:
		d.session.SetPeriod(cmd.Period)
		fmt.Fprintf(d.out, "[period] %d ms\n", cmd.Period.Milliseconds())
	case VerbRaw:
		d.session.SetEchoRaw(cmd.Enable)
		fmt.Fprintf(d.out, "[raw] %s\n", onOffWord(cmd.Enable))
	case VerbInfo:
		return d.query("I", d.timeouts.Info)
	case VerbStatus:
		return d.query("Status", d.timeouts.Status)
	case VerbLED:
		return d.query(fmt.Sprintf("L,%d", onOffBit(cmd.Enable)), d.timeouts.LED)
	case VerbFactory:
		return d.query("Factory", d.timeouts.Factory)
	case VerbSleep:
		return d.query("Sleep", d.timeouts.Sleep)
	case VerbContinuous:
		return d.query(fmt.Sprintf("C,%d", onOffBit(cmd.Enable)), d.timeouts.Continuous)
	case VerbCellQuery:
		return d.query("K,?", d.timeouts.CellQuery)
	case VerbCellSet:
		return d.query(fmt.Sprintf("K,%.1f", cmd.Value), d.timeouts.CellSet)
	default:
		fmt.Fprintf(d.out, "[cli] unknown command: %s\n", cmd.Raw)
	}
	return nil
}

func (d *Dispatcher) query(cmd string, timeout time.Duration) error {
	_, err := d.probe.Query(cmd, timeout)
	return err
}

func onOffBit(on bool) int {
	if on {
		return 1
	}
	return 0
}

func onOffWord(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
