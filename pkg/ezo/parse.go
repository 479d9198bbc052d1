package ezo

import (
	"strconv"
	"strings"
)

// AckMarker is the reply the probe sends when a configuration command was
// accepted. It carries no measurement data.
const AckMarker = "*OK"

// Reading is a single conductivity measurement as reported by the probe.
// EC and SG are taken as received; TDS and SAL may be recomputed from EC
// with Derive. HasSG records whether the raw reply mentioned the SG field
// at all, since the probe reports 0.0 both for "off" and "not present".
type Reading struct {
	EC    float64 // electrical conductivity, uS/cm
	TDS   float64 // total dissolved solids, ppm
	SAL   float64 // salinity, ppm
	SG    float64 // specific gravity
	HasSG bool
}

// Derive returns a copy of the reading with TDS and SAL recomputed from EC
// using the given conversion factors. The probe's own TDS/SAL values are
// discarded on purpose: the bridge owns those conversions.
func (r Reading) Derive(tdsFactor, salFactor float64) Reading {
	r.TDS = r.EC * tdsFactor
	r.SAL = r.EC * salFactor
	return r
}

var fieldLabels = map[string]bool{
	"EC":  true,
	"TDS": true,
	"SAL": true,
	"SG":  true,
}

// ParseReading interprets a raw probe reply line. It understands two reply
// shapes: the tagged format "EC,<v>,TDS,<v>,SAL,<v>,SG,<v>" (any subset and
// order of labels, EC required) and the untagged CSV format "ec" or
// "ec,tds,sal,sg". Acknowledgments, empty lines and anything else return
// ok=false; a timeout (empty string) is therefore "not a reading" too.
func ParseReading(line string) (Reading, bool) {
	s := strings.TrimSpace(line)
	if s == "" {
		return Reading{}, false
	}
	if strings.HasPrefix(s, AckMarker) {
		return Reading{}, false
	}

	tokens := strings.Split(s, ",")
	for i := range tokens {
		tokens[i] = strings.TrimSpace(tokens[i])
	}

	var r Reading
	var ok bool
	if hasLabel(tokens) {
		r, ok = parseTagged(tokens)
	} else {
		r, ok = parseUntagged(tokens)
	}
	if !ok {
		return Reading{}, false
	}
	// Availability of SG is a substring check on the raw reply, matching the
	// probe-side convention: a positional value with no label is still "n/a".
	r.HasSG = strings.Contains(s, "SG")
	return r, true
}

func hasLabel(tokens []string) bool {
	for _, tok := range tokens {
		if fieldLabels[tok] {
			return true
		}
	}
	return false
}

// parseTagged walks label/value pairs. Labels may appear in any order and
// any subset; absent fields default to zero. A reading is only valid when
// the EC label itself was present.
func parseTagged(tokens []string) (Reading, bool) {
	var r Reading
	ecFound := false
	for i := 0; i < len(tokens); i++ {
		if !fieldLabels[tokens[i]] {
			continue
		}
		var value float64
		if i+1 < len(tokens) {
			value = lenientFloat(tokens[i+1])
		}
		switch tokens[i] {
		case "EC":
			r.EC = value
			ecFound = true
		case "TDS":
			r.TDS = value
		case "SAL":
			r.SAL = value
		case "SG":
			r.SG = value
		}
		i++ // skip the consumed value token
	}
	if !ecFound {
		return Reading{}, false
	}
	return r, true
}

// parseUntagged accepts either a single EC value or exactly four positional
// fields (EC, TDS, SAL, SG). Two- and three-field lines are rejected.
func parseUntagged(tokens []string) (Reading, bool) {
	switch len(tokens) {
	case 1:
		return Reading{EC: lenientFloat(tokens[0])}, true
	case 4:
		return Reading{
			EC:  lenientFloat(tokens[0]),
			TDS: lenientFloat(tokens[1]),
			SAL: lenientFloat(tokens[2]),
			SG:  lenientFloat(tokens[3]),
		}, true
	default:
		return Reading{}, false
	}
}

// lenientFloat parses like the probe's own firmware does: garbage is 0.0,
// never an error.
func lenientFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
