package console

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
)

// Verb identifies one operation of the operator grammar.
type Verb int

const (
	VerbUnknown Verb = iota
	VerbHelp
	VerbRead
	VerbTempQuery
	VerbTempSet
	VerbCalClear
	VerbCalDry
	VerbCalQuery
	VerbCalPoint
	VerbOutputQuery
	VerbOutputSet
	VerbStream
	VerbPeriod
	VerbRaw
	VerbInfo
	VerbStatus
	VerbLED
	VerbFactory
	VerbSleep
	VerbContinuous
	VerbCellQuery
	VerbCellSet
)

// Command is one validated operator command. Only the fields relevant to
// the verb are populated; anything that reaches the dispatcher already
// passed argument validation, so no probe traffic happens on bad input.
type Command struct {
	Verb    Verb
	Value   float64       // temperature, calibration value, cell constant
	Point   string        // calibration point: low, mid, high
	Channel string        // output channel: ec, tds, sal, sg
	Enable  bool          // on/off verbs
	Period  time.Duration // period verb
	Raw     string        // original line, for unknown-command reporting
}

// UsageError is a locally rejected operator line. It never causes probe
// traffic; the dispatcher prints it and carries on.
type UsageError struct {
	msg string
}

func (e *UsageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &UsageError{msg: fmt.Sprintf(format, args...)}
}

// Calibration shortcut thresholds in uS/cm: a bare "cal <value>" picks the
// point whose standard solution the value is closest in magnitude to.
const (
	calLowMax = 200.0
	calMidMax = 3000.0
)

// ParseCommand tokenizes a trimmed operator line into a Command. The verb
// is case-insensitive; the remainder is interpreted per verb. Invalid
// arguments return a UsageError describing the expected form.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	verb, rest, _ := strings.Cut(line, " ")
	verb = strings.ToLower(verb)
	rest = strings.TrimSpace(rest)

	switch verb {
	case "help":
		return Command{Verb: VerbHelp}, nil
	case "r":
		return Command{Verb: VerbRead}, nil
	case "t":
		return parseTemp(rest)
	case "cal":
		return parseCal(rest)
	case "o":
		return parseOutput(rest)
	case "stream":
		return parseToggle(VerbStream, rest, "stream on|off")
	case "period":
		return parsePeriod(rest)
	case "raw":
		return parseToggle(VerbRaw, rest, "raw on|off")
	case "i":
		return Command{Verb: VerbInfo}, nil
	case "status":
		return Command{Verb: VerbStatus}, nil
	case "led":
		return parseToggle(VerbLED, rest, "led on|off")
	case "factory":
		return Command{Verb: VerbFactory}, nil
	case "sleep":
		return Command{Verb: VerbSleep}, nil
	case "c":
		return parseToggle(VerbContinuous, rest, "c on|off")
	case "k":
		return parseCell(rest)
	default:
		return Command{Verb: VerbUnknown, Raw: line}, nil
	}
}

func parseTemp(rest string) (Command, error) {
	if rest == "?" {
		return Command{Verb: VerbTempQuery}, nil
	}
	v, err := strconv.ParseFloat(rest, 64)
	if err != nil {
		return Command{}, usagef("usage: t <celsius> or t ?, e.g. t 25.0")
	}
	return Command{Verb: VerbTempSet, Value: v}, nil
}

func parseCal(rest string) (Command, error) {
	fields, err := shlex.Split(rest)
	if err != nil || len(fields) == 0 {
		return Command{}, usagef("usage: cal clear|dry|low|mid|high <uS/cm>|? or cal <uS/cm>")
	}
	sub := strings.ToLower(fields[0])
	switch sub {
	case "clear":
		return Command{Verb: VerbCalClear}, nil
	case "dry":
		return Command{Verb: VerbCalDry}, nil
	case "?":
		return Command{Verb: VerbCalQuery}, nil
	case "low", "mid", "high":
		if len(fields) < 2 {
			return Command{}, usagef("missing value in uS/cm, e.g. cal %s 84.0", sub)
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Command{}, usagef("bad value %q, expected uS/cm, e.g. cal %s 84.0", fields[1], sub)
		}
		return Command{Verb: VerbCalPoint, Point: sub, Value: v}, nil
	}

	// Bare numeric shortcut: pick the point by magnitude.
	v, err := strconv.ParseFloat(sub, 64)
	if err != nil {
		return Command{}, usagef("usage: cal clear|dry|low|mid|high <uS/cm>|? or cal <uS/cm>")
	}
	point := "high"
	switch {
	case v <= calLowMax:
		point = "low"
	case v <= calMidMax:
		point = "mid"
	}
	return Command{Verb: VerbCalPoint, Point: point, Value: v}, nil
}

func parseOutput(rest string) (Command, error) {
	if rest == "?" {
		return Command{Verb: VerbOutputQuery}, nil
	}
	fields, err := shlex.Split(rest)
	if err != nil || len(fields) != 2 {
		return Command{}, usagef("usage: o ? or o ec|tds|sal|sg on|off")
	}
	channel := strings.ToLower(fields[0])
	switch channel {
	case "ec", "tds", "sal", "sg":
	default:
		return Command{}, usagef("unknown channel %q, expected ec|tds|sal|sg", fields[0])
	}
	enable, err := parseOnOff(fields[1])
	if err != nil {
		return Command{}, usagef("usage: o %s on|off", channel)
	}
	return Command{Verb: VerbOutputSet, Channel: channel, Enable: enable}, nil
}

func parseToggle(verb Verb, rest, usage string) (Command, error) {
	enable, err := parseOnOff(rest)
	if err != nil {
		return Command{}, usagef("usage: %s", usage)
	}
	return Command{Verb: verb, Enable: enable}, nil
}

func parsePeriod(rest string) (Command, error) {
	ms, err := strconv.ParseUint(rest, 10, 32)
	if err != nil || ms == 0 {
		return Command{}, usagef("usage: period <ms>, must be > 0")
	}
	return Command{Verb: VerbPeriod, Period: time.Duration(ms) * time.Millisecond}, nil
}

func parseCell(rest string) (Command, error) {
	if rest == "?" {
		return Command{Verb: VerbCellQuery}, nil
	}
	v, err := strconv.ParseFloat(rest, 64)
	if err != nil || v == 0 {
		return Command{}, usagef("usage: k ? or k 0.1|1.0|10.0")
	}
	return Command{Verb: VerbCellSet, Value: v}, nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off")
}
