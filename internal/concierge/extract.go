package concierge

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Unit is the magnitude suffix of a budget.
type Unit string

const (
	Thousand Unit = "k"
	Million  Unit = "M"
)

// Money is a budget figure as a visitor writes it: an amount, a magnitude
// and whether it is open-ended ("$1M+").
type Money struct {
	Amount float64
	Unit   Unit
	OrMore bool
}

// String renders "$700k", "$1.5M", "$1M+" and similar.
func (m Money) String() string {
	s := "$" + strconv.FormatFloat(m.Amount, 'f', -1, 64) + string(m.Unit)
	if m.OrMore {
		s += "+"
	}
	return s
}

// Dollars returns the figure in whole dollars.
func (m Money) Dollars() int {
	if m.Unit == Million {
		return int(math.Round(m.Amount * 1_000_000))
	}
	return int(math.Round(m.Amount * 1_000))
}

var (
	millionPlusRe = regexp.MustCompile(`\$?(\d+(?:\.\d+)?)\s*[Mm]\+`)
	millionRe     = regexp.MustCompile(`\$?(\d+(?:\.\d+)?)\s*(?:[Mm]|million)\b(\+)?`)
	thousandRe    = regexp.MustCompile(`\$?(\d+(?:\.\d+)?)\s*(?:[Kk]|thousand)\b(\+)?`)
)

// ParseBudget finds a budget figure in s. An explicit open-ended million
// figure wins over a plain million figure, which wins over thousands,
// wherever they appear in s. A magnitude letter that starts a longer word
// ("3 months", "2 kids") is not a budget.
func ParseBudget(s string) (Money, bool) {
	if m := millionPlusRe.FindStringSubmatch(s); m != nil {
		if n, err := strconv.ParseFloat(m[1], 64); err == nil {
			return Money{Amount: n, Unit: Million, OrMore: true}, true
		}
	}
	if m := millionRe.FindStringSubmatch(s); m != nil {
		if n, err := strconv.ParseFloat(m[1], 64); err == nil {
			return Money{Amount: n, Unit: Million, OrMore: m[2] != ""}, true
		}
	}
	if m := thousandRe.FindStringSubmatch(s); m != nil {
		if n, err := strconv.ParseFloat(m[1], 64); err == nil {
			return Money{Amount: n, Unit: Thousand, OrMore: m[2] != ""}, true
		}
	}
	return Money{}, false
}

// TimelineKind says which form a timeline answer took.
type TimelineKind int

const (
	// TimelineExact is a single count: "3 months".
	TimelineExact TimelineKind = iota + 1
	// TimelineRange is a bounded range: "1-3 months".
	TimelineRange
	// TimelineAtLeast is an open range: "6+ months".
	TimelineAtLeast
	// TimelineWithin is "within" followed by a free clause.
	TimelineWithin
	// TimelinePhrase is any other wording that mentions timing.
	TimelinePhrase
)

// Timeline is a parsed answer to "when are you looking to move?".
type Timeline struct {
	Kind TimelineKind
	Min  int
	Max  int
	// Unit is the unit as written ("months", "day").
	Unit string
	// Text is the clause after "within", or the whole answer for a phrase.
	Text string
}

// String renders the normalized timeline.
func (t Timeline) String() string {
	switch t.Kind {
	case TimelineExact:
		return strconv.Itoa(t.Min) + " " + t.Unit
	case TimelineRange:
		return strconv.Itoa(t.Min) + "-" + strconv.Itoa(t.Max) + " " + t.Unit
	case TimelineAtLeast:
		return strconv.Itoa(t.Min) + "+ " + t.Unit
	case TimelineWithin:
		return "Within " + t.Text
	default:
		return t.Text
	}
}

var (
	rangeRe  = regexp.MustCompile(`(?i)(?:(\d+)\s*-\s*(\d+)|(\d+)\+)\s*(months?|weeks?|days?)`)
	singleRe = regexp.MustCompile(`(?i)(\d+)\s*(months?|weeks?|days?)`)
	withinRe = regexp.MustCompile(`(?i)within\s+([^.!?]+)`)
)

var timelineCues = []string{"month", "week", "day", "soon", "immediately", "asap", "within"}

// HasTimelineCue reports whether s says anything about timing.
func HasTimelineCue(s string) bool {
	lower := strings.ToLower(s)
	for _, cue := range timelineCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}

// ParseTimeline extracts a timeline from s. Ranges are tried first, then a
// single count, then a "within" clause; any other mention of timing is
// kept verbatim. A count too large for an int skips its pattern.
func ParseTimeline(s string) (Timeline, bool) {
	s = strings.TrimSpace(s)
	if !HasTimelineCue(s) {
		return Timeline{}, false
	}

	if m := rangeRe.FindStringSubmatch(s); m != nil {
		unit := strings.ToLower(m[4])
		if m[3] != "" {
			if n, err := strconv.Atoi(m[3]); err == nil {
				return Timeline{Kind: TimelineAtLeast, Min: n, Unit: unit}, true
			}
		} else {
			lo, errLo := strconv.Atoi(m[1])
			hi, errHi := strconv.Atoi(m[2])
			if errLo == nil && errHi == nil {
				return Timeline{Kind: TimelineRange, Min: lo, Max: hi, Unit: unit}, true
			}
		}
	}

	if m := singleRe.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return Timeline{Kind: TimelineExact, Min: n, Max: n, Unit: strings.ToLower(m[2])}, true
		}
	}

	if m := withinRe.FindStringSubmatch(s); m != nil {
		return Timeline{Kind: TimelineWithin, Text: strings.TrimSpace(m[1])}, true
	}

	return Timeline{Kind: TimelinePhrase, Text: s}, true
}
